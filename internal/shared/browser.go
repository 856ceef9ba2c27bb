package shared

import (
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// launchers maps GOOS to the command that hands a URL to the desktop.
var launchers = map[string][]string{
	"darwin":  {"open"},
	"linux":   {"xdg-open"},
	"freebsd": {"xdg-open"},
	"windows": {"rundll32", "url.dll,FileProtocolHandler"},
}

// OpenConsent launches a browser on the authorization page at consentURL.
//
// $BROWSER takes precedence over the platform launcher.
func OpenConsent(consentURL string) error {
	argv, err := launchCommand(runtime.GOOS, os.Getenv("BROWSER"), consentURL)
	if err != nil {
		return err
	}
	if err := exec.Command(argv[0], argv[1:]...).Start(); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrNoBrowser, argv[0], err)
	}
	return nil
}

func launchCommand(goos, override, consentURL string) ([]string, error) {
	u, err := url.Parse(consentURL)
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		return nil, fmt.Errorf("%w: consent url %q", ErrInvalidInput, consentURL)
	}

	if fields := strings.Fields(override); len(fields) > 0 {
		return append(fields, consentURL), nil
	}

	base, ok := launchers[goos]
	if !ok {
		return nil, fmt.Errorf("%w: no launcher for %s", ErrNoBrowser, goos)
	}
	return append(append([]string{}, base...), consentURL), nil
}
