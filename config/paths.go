package config

import "os"

// SamePath returns true if a and b refer to the same filesystem entry.
// Symlinks, case-insensitive filesystems and ".." segments all resolve to
// the same device+inode, which os.SameFile compares. Paths that cannot be
// stat'd only match when the strings are identical.
func SamePath(a, b string) bool {
	if a == b {
		return true
	}
	infoA, errA := os.Stat(a)
	infoB, errB := os.Stat(b)
	if errA != nil || errB != nil {
		return false
	}
	return os.SameFile(infoA, infoB)
}
