package service

import "fmt"

// StoreError indicates a persistence fault while appending to the message
// log. Callers log it and degrade; it never aborts the client-visible flow.
type StoreError struct {
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store message: %v", e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// MergeError indicates a persistence fault during identity promotion. The
// transaction is rolled back in full before this is returned.
type MergeError struct {
	Err error
}

func (e *MergeError) Error() string {
	return fmt.Sprintf("merge sessions: %v", e.Err)
}

func (e *MergeError) Unwrap() error {
	return e.Err
}
