//go:build linux

package meta

import "golang.org/x/sys/unix"

// totalRAM returns total physical memory in bytes, or 0 when the probe
// fails.
func totalRAM() uint64 {
	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		return 0
	}
	return uint64(info.Totalram) * uint64(info.Unit)
}
