//go:build !linux

package meta

// totalRAM has no portable probe outside Linux; callers treat 0 as unknown.
func totalRAM() uint64 {
	return 0
}
