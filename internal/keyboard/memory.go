package keyboard

import "sync"

// MemoryDriver keeps attributes in memory. It stands in for the kernel
// module on machines without one and has no root to watch.
type MemoryDriver struct {
	mu     sync.Mutex
	values map[Role]string
}

// NewMemory returns a driver holding the module's power-on defaults.
func NewMemory() *MemoryDriver {
	return &MemoryDriver{
		values: map[Role]string{
			RoleState:       "0",
			RoleBrightness:  "0",
			RoleMode:        "0",
			RoleColorLeft:   "0",
			RoleColorCenter: "0",
			RoleColorRight:  "0",
		},
	}
}

func (m *MemoryDriver) Root() string { return "" }

func (m *MemoryDriver) Supports(role Role) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.values[role]
	return ok
}

func (m *MemoryDriver) Read(role Role) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[role]
	if !ok {
		return "", &AttrError{Op: "read", Role: role, Err: ErrUnsupported}
	}
	return v, nil
}

func (m *MemoryDriver) Write(role Role, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.values[role]; !ok {
		return &AttrError{Op: "write", Role: role, Err: ErrUnsupported}
	}
	m.values[role] = value
	return nil
}
