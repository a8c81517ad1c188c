//go:build !windows

package action

import (
	"fmt"
	"os/exec"
	"runtime"
)

// OpenBrowser opens url with the desktop's default handler.
func OpenBrowser(url string) error {
	name := "xdg-open"
	if runtime.GOOS == "darwin" {
		name = "open"
	}
	cmd := exec.Command(name, url)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	// Reap the launcher without blocking the dispatch loop.
	go func() { _ = cmd.Wait() }()
	return nil
}
