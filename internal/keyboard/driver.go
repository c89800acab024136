package keyboard

import (
	"errors"
	"fmt"
	"io/fs"
)

// Driver abstracts the backlight attribute store. Values are the raw text
// the kernel module reads and prints, without the trailing newline.
type Driver interface {
	// Root is the directory to watch for out-of-band changes. Drivers without
	// an observable store return "".
	Root() string

	// Supports reports whether the driver exposes role.
	Supports(role Role) bool

	Read(role Role) (string, error)
	Write(role Role, value string) error
}

// AttrError records a failed attribute access.
type AttrError struct {
	Op   string
	Role Role
	Path string
	Err  error
}

func (e *AttrError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Role, e.Err)
	}
	return fmt.Sprintf("%s %s (%s): %v", e.Op, e.Role, e.Path, e.Err)
}

func (e *AttrError) Unwrap() error { return e.Err }

// Is lets callers match kernel permission failures with ErrPermission.
func (e *AttrError) Is(target error) bool {
	return target == ErrPermission && errors.Is(e.Err, fs.ErrPermission)
}
