package keyboard

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SysfsDriver reads and writes the attribute files of a platform driver.
type SysfsDriver struct {
	root  string
	files map[Role]string
}

// NewSysfs maps every role to its file under root. Roles whose file is absent
// are reported as unsupported rather than failing construction.
func NewSysfs(root string) (*SysfsDriver, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("keyboard driver root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("keyboard driver root %s is not a directory", root)
	}

	files := make(map[Role]string, len(roleNames))
	for _, role := range Roles() {
		path := filepath.Join(root, role.String())
		if _, err := os.Lstat(path); err == nil {
			files[role] = path
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no backlight attributes under %s", root)
	}

	return &SysfsDriver{root: filepath.Clean(root), files: files}, nil
}

func (s *SysfsDriver) Root() string { return s.root }

func (s *SysfsDriver) Supports(role Role) bool {
	_, ok := s.files[role]
	return ok
}

// Read returns the first line of the attribute file.
func (s *SysfsDriver) Read(role Role) (string, error) {
	path, ok := s.files[role]
	if !ok {
		return "", &AttrError{Op: "read", Role: role, Err: ErrUnsupported}
	}

	f, err := os.Open(path)
	if err != nil {
		return "", &AttrError{Op: "read", Role: role, Path: path, Err: err}
	}
	defer f.Close()

	line, err := bufio.NewReader(f).ReadString('\n')
	if err != nil && line == "" {
		return "", &AttrError{Op: "read", Role: role, Path: path, Err: err}
	}
	return strings.TrimRight(line, "\r\n\t "), nil
}

// Write opens the attribute write-only and stores value followed by a
// newline in a single write call. The file is never created.
func (s *SysfsDriver) Write(role Role, value string) error {
	path, ok := s.files[role]
	if !ok {
		return &AttrError{Op: "write", Role: role, Err: ErrUnsupported}
	}

	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return &AttrError{Op: "write", Role: role, Path: path, Err: err}
	}

	_, werr := f.WriteString(strings.TrimRight(value, "\r\n\t ") + "\n")
	cerr := f.Close()
	if werr != nil {
		return &AttrError{Op: "write", Role: role, Path: path, Err: werr}
	}
	if cerr != nil {
		return &AttrError{Op: "write", Role: role, Path: path, Err: cerr}
	}
	return nil
}
