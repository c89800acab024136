package systemd

import (
	"context"
	"fmt"

	"github.com/coreos/go-systemd/v22/login1"
	"github.com/godbus/dbus/v5"
)

const prepareForSleep = "org.freedesktop.login1.Manager.PrepareForSleep"

// SleepMonitor listens for logind sleep transitions on the system bus.
type SleepMonitor struct {
	conn    *login1.Conn
	signals chan *dbus.Signal
}

// NewSleepMonitor connects to logind and subscribes to PrepareForSleep.
func NewSleepMonitor() (*SleepMonitor, error) {
	conn, err := login1.New()
	if err != nil {
		return nil, fmt.Errorf("connect to logind: %w", err)
	}
	return &SleepMonitor{
		conn:    conn,
		signals: conn.Subscribe("PrepareForSleep"),
	}, nil
}

// Run calls onResume every time logind reports the end of a sleep. It
// returns when ctx is done or the bus connection goes away.
func (m *SleepMonitor) Run(ctx context.Context, onResume func()) {
	for {
		select {
		case <-ctx.Done():
			return
		case sig, ok := <-m.signals:
			if !ok {
				return
			}
			if sleeping, ok := sleepState(sig); ok && !sleeping {
				onResume()
			}
		}
	}
}

// Close cleanly closes the D-Bus connection.
func (m *SleepMonitor) Close() {
	if m.conn != nil {
		m.conn.Close()
	}
}

// sleepState decodes a PrepareForSleep signal. The single bool argument is
// true before sleep and false after wake-up.
func sleepState(sig *dbus.Signal) (sleeping bool, ok bool) {
	if sig == nil || sig.Name != prepareForSleep || len(sig.Body) != 1 {
		return false, false
	}
	sleeping, ok = sig.Body[0].(bool)
	return sleeping, ok
}
