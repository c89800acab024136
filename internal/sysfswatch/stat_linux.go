//go:build linux

package sysfswatch

import (
	"io/fs"

	"golang.org/x/sys/unix"
)

func statPath(path string) (statInfo, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return statInfo{}, &fs.PathError{Op: "stat", Path: path, Err: err}
	}

	return statInfo{
		dir:     st.Mode&unix.S_IFMT == unix.S_IFDIR,
		size:    uint64(st.Size),
		modTime: st.Mtim.Nano(),
		ino:     st.Ino,
		dev:     uint64(st.Dev),
		mode:    st.Mode,
	}, nil
}
