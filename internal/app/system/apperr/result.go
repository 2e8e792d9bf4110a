package apperr

// Result is the one-shot outcome of a user action. It replaces a bare
// success flag with the failure kind, so a screen can offer a retry for
// transient failures and a plain message for everything else.
type Result struct {
	OK      bool   `json:"ok"`
	Kind    Kind   `json:"kind,omitempty"`
	Message string `json:"message,omitempty"`
}

// Success is the result of an action that completed.
func Success() Result {
	return Result{OK: true}
}

// ResultOf converts err into a Result. A nil err is a success.
func ResultOf(err error) Result {
	if err == nil {
		return Success()
	}
	return Result{Kind: KindOf(err), Message: Message(err)}
}

// Retryable reports whether the failed action may succeed if repeated.
func (r Result) Retryable() bool {
	return !r.OK && r.Kind.Retryable()
}
