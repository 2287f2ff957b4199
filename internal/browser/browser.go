// Package browser opens links in the user's default browser.
package browser

import (
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// Launcher starts an external program without waiting for it
type Launcher interface {
	Start(name string, args ...string) error
}

// ExecLauncher starts real processes
type ExecLauncher struct{}

// Start runs name in the background
func (ExecLauncher) Start(name string, args ...string) error {
	return exec.Command(name, args...).Start()
}

// Opener opens links with the platform handler. A BROWSER environment
// variable, as used by most Unix tools, takes precedence.
type Opener struct {
	Launcher Launcher
	GOOS     string
	Getenv   func(string) string
}

var defaultOpener = Opener{Launcher: ExecLauncher{}, GOOS: runtime.GOOS, Getenv: os.Getenv}

// Open opens link in the default browser
func Open(link string) error {
	return defaultOpener.Open(link)
}

// Open opens link. Only http and https links are opened since photo links
// come from the server.
func (o Opener) Open(link string) error {
	u, err := url.Parse(link)
	if err != nil {
		return fmt.Errorf("invalid link %q: %w", link, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("refusing to open %q: only http and https links are supported", link)
	}

	name, args, err := o.command(u.String())
	if err != nil {
		return err
	}
	return o.Launcher.Start(name, args...)
}

func (o Opener) command(link string) (string, []string, error) {
	if o.Getenv != nil {
		if fields := strings.Fields(o.Getenv("BROWSER")); len(fields) > 0 {
			return fields[0], append(fields[1:], link), nil
		}
	}

	switch o.GOOS {
	case "linux", "freebsd", "openbsd", "netbsd":
		return "xdg-open", []string{link}, nil
	case "darwin":
		return "open", []string{link}, nil
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", link}, nil
	default:
		return "", nil, fmt.Errorf("unsupported platform: %s", o.GOOS)
	}
}
