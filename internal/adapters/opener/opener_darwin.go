//go:build darwin

package opener

func platformOpener() []string { return []string{"open"} }
