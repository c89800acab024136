package keyboard

import (
	"os"

	"github.com/smazurov/kbdlight/internal/logging"
)

// Detect returns a sysfs driver when root (DefaultRoot if empty) holds the
// platform driver's attributes, and an in-memory driver otherwise.
func Detect(logger logging.Logger, root string) Driver {
	if root == "" {
		root = DefaultRoot
	}

	if _, err := os.Stat(root); err != nil {
		logger.Info("Keyboard driver not found, using in-memory driver", "root", root, "error", err)
		return NewMemory()
	}

	d, err := NewSysfs(root)
	if err != nil {
		logger.Warn("Keyboard driver unusable, using in-memory driver", "root", root, "error", err)
		return NewMemory()
	}

	supported := make([]string, 0, len(roleNames))
	for _, role := range Roles() {
		if d.Supports(role) {
			supported = append(supported, role.String())
		}
	}
	logger.Info("Using sysfs keyboard driver", "root", d.Root(), "attributes", supported)
	return d
}
