package sysfswatch

import "sync"

// Suppressor is the part of a Notifier a suppression scope needs.
type Suppressor interface {
	SetEnabled(enabled bool) bool
	IgnoreNextEvent()
}

// Suppress opens a suppression scope on s and returns the function that closes
// it. While open, delivery is disabled; in addition one ignore token is armed so
// the write is swallowed even if the poll that observes it runs after the scope
// closed. Closing restores the previous enabled value and leaves the ignore
// counter alone. The release function is idempotent.
//
//	defer sysfswatch.Suppress(n)()
func Suppress(s Suppressor) (release func()) {
	if isNilSuppressor(s) {
		return func() {}
	}

	prev := s.SetEnabled(false)
	s.IgnoreNextEvent()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.SetEnabled(prev)
		})
	}
}

// WithSuppressed runs fn inside a suppression scope. The scope is closed on
// every exit path, including a panic in fn.
func WithSuppressed(s Suppressor, fn func() error) error {
	release := Suppress(s)
	defer release()
	return fn()
}

func isNilSuppressor(s Suppressor) bool {
	if s == nil {
		return true
	}
	n, ok := s.(*Notifier)
	return ok && n == nil
}
