package sysfswatch

import "time"

// DropReason explains why a detected change produced no notification.
type DropReason string

const (
	DropIgnored    DropReason = "ignored"
	DropDisabled   DropReason = "disabled"
	DropNoCallback DropReason = "no_callback"
)

// Observer receives per-tick statistics from a Notifier. Implementations must be
// safe for concurrent use by several notifiers.
type Observer interface {
	TickCompleted(watcher string, took time.Duration, changed bool)
	EntryFailed(watcher string, path string, err error)
	Delivered(watcher string)
	Dropped(watcher string, reason DropReason)
}

type nopObserver struct{}

func (nopObserver) TickCompleted(string, time.Duration, bool) {}
func (nopObserver) EntryFailed(string, string, error)         {}
func (nopObserver) Delivered(string)                          {}
func (nopObserver) Dropped(string, DropReason)                {}
