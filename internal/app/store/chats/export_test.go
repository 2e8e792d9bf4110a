package chatstore

// SetAfterInitialList runs fn inside Watch once the first list has been read.
func (s *Store) SetAfterInitialList(fn func()) { s.afterInitialList = fn }
