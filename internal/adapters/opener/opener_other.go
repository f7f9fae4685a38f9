//go:build !linux && !darwin && !windows

package opener

func platformOpener() []string { return []string{"xdg-open"} }
