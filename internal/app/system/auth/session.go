package auth

import "net/http"

// RequestSession is the session store as one request sees it: the current
// identity, plus sign-in and sign-out that write through to the response.
type RequestSession struct {
	m    *SessionManager
	w    http.ResponseWriter
	r    *http.Request
	user *SessionUser
}

// ForRequest binds the manager to one request/response pair. The request
// must have passed through LoadSessionUser.
func (m *SessionManager) ForRequest(w http.ResponseWriter, r *http.Request) *RequestSession {
	u, _ := CurrentUser(r)
	return &RequestSession{m: m, w: w, r: r, user: u}
}

// Current returns the signed-in user, or nil.
func (s *RequestSession) Current() *SessionUser {
	return s.user
}

// Establish signs u in on the cookie and returns a bearer token for clients
// that do not keep cookies.
func (s *RequestSession) Establish(u SessionUser) (string, error) {
	if err := s.m.SignIn(s.w, s.r, u); err != nil {
		return "", err
	}
	token, _, err := s.m.IssueToken(u)
	if err != nil {
		return "", err
	}
	s.user = &u
	return token, nil
}

// End signs the user out.
func (s *RequestSession) End() error {
	s.user = nil
	return s.m.SignOut(s.w, s.r)
}
