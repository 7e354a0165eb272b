package shared

import (
	"fmt"
	"net/url"
	"os/exec"
	"runtime"
)

var startCommand = func(name string, args ...string) error {
	return exec.Command(name, args...).Start()
}

// BrowserCommand returns the launcher for goos that opens rawURL.
// Only absolute http(s) URLs are accepted.
func BrowserCommand(goos, rawURL string) (string, []string, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", nil, fmt.Errorf("%w: not an http url %q", ErrInvalidArgument, rawURL)
	}

	switch goos {
	case "darwin":
		return "open", []string{rawURL}, nil
	case "linux", "freebsd", "openbsd":
		return "xdg-open", []string{rawURL}, nil
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", rawURL}, nil
	}
	return "", nil, fmt.Errorf("%w: opening a browser on %s", ErrNotImplemented, goos)
}

// OpenBrowser opens rawURL in the default system browser without waiting for it.
func OpenBrowser(rawURL string) error {
	name, args, err := BrowserCommand(runtime.GOOS, rawURL)
	if err != nil {
		return err
	}
	if err := startCommand(name, args...); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	return nil
}
