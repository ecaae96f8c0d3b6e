//go:build !windows

package daemon

import "syscall"

// diskStatfs reports total and free bytes for the filesystem containing
// path via the unix statfs syscall.
func diskStatfs(path string) (total, free uint64, ok bool) {
	var st syscall.Statfs_t
	if err := syscall.Statfs(path, &st); err != nil {
		return 0, 0, false
	}
	bsize := uint64(st.Bsize)
	return st.Blocks * bsize, st.Bfree * bsize, true
}
