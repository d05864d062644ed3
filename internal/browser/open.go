// Package browser opens URLs in the user's default browser.
package browser

import (
	"fmt"
	"os/exec"
	"runtime"
)

// openCommand returns the platform launcher for url, or nil when the
// platform has none.
func openCommand(goos, url string) *exec.Cmd {
	switch goos {
	case "linux":
		return exec.Command("xdg-open", url)
	case "darwin":
		return exec.Command("open", url)
	case "windows":
		return exec.Command("cmd", "/c", "start", "", url)
	}
	return nil
}

// Open launches the default browser at url without waiting for it.
func Open(url string) error {
	cmd := openCommand(runtime.GOOS, url)
	if cmd == nil {
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() { _ = cmd.Wait() }() // reap the child
	return nil
}
