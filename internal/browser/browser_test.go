package browser

import (
	"fmt"
	"strings"
	"testing"
)

// mockLauncher records launches for testing
type mockLauncher struct {
	lastCommand string
	lastArgs    []string
	startError  error
}

func (m *mockLauncher) Start(name string, args ...string) error {
	m.lastCommand = name
	m.lastArgs = args
	return m.startError
}

func noEnv(string) string { return "" }

func TestOpener_PlatformCommands(t *testing.T) {
	link := "http://192.168.1.20:8081/c/3f2a"
	testCases := []struct {
		goos    string
		command string
		args    []string
	}{
		{"linux", "xdg-open", []string{link}},
		{"freebsd", "xdg-open", []string{link}},
		{"darwin", "open", []string{link}},
		{"windows", "rundll32", []string{"url.dll,FileProtocolHandler", link}},
	}

	for _, tc := range testCases {
		t.Run(tc.goos, func(t *testing.T) {
			mock := &mockLauncher{}
			o := Opener{Launcher: mock, GOOS: tc.goos, Getenv: noEnv}

			if err := o.Open(link); err != nil {
				t.Fatalf("expected no error, got: %v", err)
			}
			if mock.lastCommand != tc.command {
				t.Errorf("expected command %q, got %q", tc.command, mock.lastCommand)
			}
			if strings.Join(mock.lastArgs, " ") != strings.Join(tc.args, " ") {
				t.Errorf("expected args %v, got %v", tc.args, mock.lastArgs)
			}
		})
	}
}

func TestOpener_BrowserEnvWins(t *testing.T) {
	mock := &mockLauncher{}
	o := Opener{
		Launcher: mock,
		GOOS:     "linux",
		Getenv: func(key string) string {
			if key == "BROWSER" {
				return "firefox --new-tab"
			}
			return ""
		},
	}

	if err := o.Open("https://photos.example.com/c/1"); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if mock.lastCommand != "firefox" {
		t.Errorf("expected firefox, got %q", mock.lastCommand)
	}
	if len(mock.lastArgs) != 2 || mock.lastArgs[0] != "--new-tab" || mock.lastArgs[1] != "https://photos.example.com/c/1" {
		t.Errorf("unexpected args %v", mock.lastArgs)
	}
}

func TestOpener_UnsupportedPlatform(t *testing.T) {
	mock := &mockLauncher{}
	err := Opener{Launcher: mock, GOOS: "plan9", Getenv: noEnv}.Open("http://localhost:8081/c/1")

	if err == nil {
		t.Fatal("expected error for unsupported platform, got nil")
	}
	if !strings.Contains(err.Error(), "unsupported platform: plan9") {
		t.Errorf("unexpected error: %v", err)
	}
	if mock.lastCommand != "" {
		t.Errorf("expected nothing launched, got %q", mock.lastCommand)
	}
}

func TestOpener_RejectsOtherSchemes(t *testing.T) {
	for _, link := range []string{
		"file:///etc/passwd",
		"javascript:alert(1)",
		"/storage/v1/object/public/photos/a.jpg",
		"://missing-scheme",
	} {
		t.Run(link, func(t *testing.T) {
			mock := &mockLauncher{}
			err := Opener{Launcher: mock, GOOS: "linux", Getenv: noEnv}.Open(link)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if mock.lastCommand != "" {
				t.Errorf("expected nothing launched, got %q", mock.lastCommand)
			}
		})
	}
}

func TestOpener_LaunchError(t *testing.T) {
	mock := &mockLauncher{startError: fmt.Errorf("command execution failed")}

	err := Opener{Launcher: mock, GOOS: "linux", Getenv: noEnv}.Open("http://localhost:8081/c/1")
	if err == nil || err.Error() != "command execution failed" {
		t.Errorf("expected launch error, got: %v", err)
	}
}

func TestOpen_UsesDefaultOpener(t *testing.T) {
	original := defaultOpener
	defer func() { defaultOpener = original }()

	mock := &mockLauncher{}
	defaultOpener = Opener{Launcher: mock, GOOS: "darwin", Getenv: noEnv}

	if err := Open("http://localhost:8081/c/1"); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if mock.lastCommand != "open" {
		t.Errorf("expected open, got %q", mock.lastCommand)
	}
}

func TestExecLauncher_Start(t *testing.T) {
	err := ExecLauncher{}.Start("nonexistent-command-xyz-123")
	if err == nil {
		t.Error("expected error for nonexistent command, got nil")
	}
}
