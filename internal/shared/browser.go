package shared

import (
	"fmt"
	"os/exec"
	"runtime"
)

var browserCommands = map[string][]string{
	"darwin":  {"open"},
	"linux":   {"xdg-open"},
	"freebsd": {"xdg-open"},
	"windows": {"rundll32", "url.dll,FileProtocolHandler"},
}

// OpenBrowser opens url in the default system browser without waiting for it to exit.
func OpenBrowser(url string) error {
	return openBrowser(runtime.GOOS, url)
}

func openBrowser(goos, url string) error {
	argv, ok := browserCommands[goos]
	if !ok {
		return fmt.Errorf("%w: cannot open a browser on %s", ErrNotImplemented, goos)
	}

	args := append(append([]string{}, argv[1:]...), url)
	if err := exec.Command(argv[0], args...).Start(); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}

	return nil
}
