//go:build !linux

package sysfswatch

import "os"

// statPath falls back to os.Stat where inode and device numbers are not
// portable. Directory identity then degrades to the mode bits.
func statPath(path string) (statInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		return statInfo{}, err
	}

	return statInfo{
		dir:     info.IsDir(),
		size:    uint64(info.Size()),
		modTime: info.ModTime().UnixNano(),
		mode:    uint32(info.Mode()),
	}, nil
}
