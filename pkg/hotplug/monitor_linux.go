//go:build linux

package hotplug

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sys/unix"
)

// Monitor reads uevents from the kernel broadcast group.
type Monitor struct {
	fd int

	mu         sync.RWMutex
	subsystems map[string]struct{}
}

// NewMonitor opens and binds the netlink socket.
func NewMonitor() (*Monitor, error) {
	fd, err := unix.Socket(unix.AF_NETLINK, unix.SOCK_DGRAM|unix.SOCK_CLOEXEC, unix.NETLINK_KOBJECT_UEVENT)
	if err != nil {
		return nil, err
	}

	addr := &unix.SockaddrNetlink{
		Family: unix.AF_NETLINK,
		Groups: 1, // kernel broadcast group
	}
	if err := unix.Bind(fd, addr); err != nil {
		unix.Close(fd)
		return nil, err
	}

	// A receive timeout lets Run notice context cancellation.
	tv := unix.Timeval{Sec: 1}
	if err := unix.SetsockoptTimeval(fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &tv); err != nil {
		unix.Close(fd)
		return nil, err
	}

	return &Monitor{
		fd:         fd,
		subsystems: make(map[string]struct{}),
	}, nil
}

// AddSubsystemFilter restricts Run to events of subsystem. Without filters
// every event passes.
func (m *Monitor) AddSubsystemFilter(subsystem string) {
	m.mu.Lock()
	m.subsystems[subsystem] = struct{}{}
	m.mu.Unlock()
}

func (m *Monitor) accepts(e *Event) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.subsystems) == 0 {
		return true
	}
	_, ok := m.subsystems[e.Subsystem]
	return ok
}

// Close releases the socket.
func (m *Monitor) Close() error {
	return unix.Close(m.fd)
}

// Run sends matching events to out until ctx is done or the socket fails.
// out is closed when Run returns.
func (m *Monitor) Run(ctx context.Context, out chan<- Event) error {
	defer close(out)

	buf := make([]byte, 8192)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, _, err := unix.Recvfrom(m.fd, buf, 0)
		if err != nil {
			if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) {
				continue
			}
			return err
		}

		event := ParseUEvent(buf[:n])
		if event == nil || !m.accepts(event) {
			continue
		}

		select {
		case out <- *event:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
