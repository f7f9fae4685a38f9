//go:build linux

package opener

func platformOpener() []string { return []string{"xdg-open"} }
