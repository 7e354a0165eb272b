package shared

import (
	"errors"
	"reflect"
	"testing"
)

func TestBrowserCommand(t *testing.T) {
	const consent = "https://accounts.spotify.com/authorize?client_id=abc"

	tests := []struct {
		name     string
		goos     string
		url      string
		wantName string
		wantArgs []string
		wantErr  error
	}{
		{name: "darwin", goos: "darwin", url: consent, wantName: "open", wantArgs: []string{consent}},
		{name: "linux", goos: "linux", url: consent, wantName: "xdg-open", wantArgs: []string{consent}},
		{name: "windows", goos: "windows", url: consent, wantName: "rundll32", wantArgs: []string{"url.dll,FileProtocolHandler", consent}},
		{name: "unsupported platform", goos: "plan9", url: consent, wantErr: ErrNotImplemented},
		{name: "non-http scheme", goos: "linux", url: "file:///etc/passwd", wantErr: ErrInvalidArgument},
		{name: "relative url", goos: "linux", url: "/callback", wantErr: ErrInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name, args, err := BrowserCommand(tt.goos, tt.url)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if name != tt.wantName || !reflect.DeepEqual(args, tt.wantArgs) {
				t.Errorf("got %s %v, want %s %v", name, args, tt.wantName, tt.wantArgs)
			}
		})
	}
}

func TestOpenBrowser(t *testing.T) {
	orig := startCommand
	t.Cleanup(func() { startCommand = orig })

	t.Run("starts the launcher", func(t *testing.T) {
		var started []string
		startCommand = func(name string, args ...string) error {
			started = append([]string{name}, args...)
			return nil
		}

		if err := OpenBrowser("http://127.0.0.1:3000/"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(started) == 0 || started[len(started)-1] != "http://127.0.0.1:3000/" {
			t.Errorf("expected url passed to launcher, got %v", started)
		}
	})

	t.Run("launcher failure", func(t *testing.T) {
		startCommand = func(string, ...string) error { return errors.New("no display") }

		if err := OpenBrowser("https://example.com"); err == nil {
			t.Error("expected an error")
		}
	})

	t.Run("rejects bad urls before launching", func(t *testing.T) {
		called := false
		startCommand = func(string, ...string) error { called = true; return nil }

		if err := OpenBrowser("javascript:alert(1)"); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
		if called {
			t.Error("launcher should not run")
		}
	})
}
