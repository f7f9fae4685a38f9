//go:build windows

package opener

func platformOpener() []string { return []string{"rundll32", "url.dll,FileProtocolHandler"} }
