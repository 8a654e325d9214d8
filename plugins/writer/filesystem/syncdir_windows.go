//go:build windows

package filesystem

// syncDir is a no-op on Windows; directory handles cannot be fsynced.
func syncDir(string) error { return nil }
