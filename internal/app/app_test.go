package app

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/gorilla/websocket"

	"github.com/abrezinsky/consensus/internal/auth"
	"github.com/abrezinsky/consensus/internal/config"
	"github.com/abrezinsky/consensus/internal/logger"
	"github.com/abrezinsky/consensus/internal/models"
	"github.com/abrezinsky/consensus/internal/testutil"
)

func TestNew_InitializesApp(t *testing.T) {
	app := createTestApp(t, testConfig(t))

	if app.handlers == nil {
		t.Error("expected handlers to be initialized")
	}
	if app.repo == nil {
		t.Error("expected repo to be initialized")
	}
	if app.hub == nil {
		t.Error("expected hub to be initialized")
	}
	if app.cancelHub == nil {
		t.Error("expected cancelHub to be set")
	}
}

func TestNew_FailsWithBadDBPath(t *testing.T) {
	cfg := testConfig(t)
	cfg.DatabasePath = "/nonexistent/path/db.sqlite"

	_, err := New(logger.Nop(), cfg, createTestTemplatesFS(), fstest.MapFS{}, auth.NewAdmin("test-password"))
	if err == nil {
		t.Error("expected error for invalid db path")
	}
}

func TestNew_FailsWithMissingTemplates(t *testing.T) {
	_, err := New(logger.Nop(), testConfig(t), fstest.MapFS{}, fstest.MapFS{}, auth.NewAdmin("test-password"))
	if err == nil {
		t.Error("expected error for missing templates")
	}
}

func TestNew_ConfiguredBaseURLWins(t *testing.T) {
	cfg := testConfig(t)
	cfg.BaseURL = "https://photos.example.com"
	app := createTestApp(t, cfg)

	if app.BaseURL() != "https://photos.example.com" {
		t.Errorf("expected configured base URL, got %s", app.BaseURL())
	}
}

func TestNew_AppliesInitialSubmissionStatus(t *testing.T) {
	cfg := testConfig(t)
	cfg.InitialSubmissionStatus = string(models.SubmissionPending)
	app := createTestApp(t, cfg)

	val, err := app.repo.GetSetting(context.Background(), "initial_submission_status")
	if err != nil {
		t.Fatalf("failed to get setting: %v", err)
	}
	if val != string(models.SubmissionPending) {
		t.Errorf("expected pending, got %s", val)
	}
}

func TestApp_Router_ServesRequests(t *testing.T) {
	app := createTestApp(t, testConfig(t))
	server := httptest.NewServer(app.Router())
	defer server.Close()

	resp, err := http.Get(server.URL + "/healthz")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 for /healthz, got %d", resp.StatusCode)
	}
}

func TestApp_Router_RealtimeSubscribe(t *testing.T) {
	app := createTestApp(t, testConfig(t))
	server := httptest.NewServer(app.Router())
	defer server.Close()

	ws, _, err := websocket.DefaultDialer.Dial("ws"+server.URL[4:]+"/realtime/v1", nil)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer ws.Close()

	if err := ws.WriteJSON(models.WSMessage{Type: models.WSSubscribe, Topic: models.CategoriesTopic}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg models.WSMessage
	if err := ws.ReadJSON(&msg); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if msg.Type != models.WSSubscribed || msg.Topic != models.CategoriesTopic {
		t.Errorf("expected subscribed ack, got %+v", msg)
	}
}

func TestApp_LandingURLs_SkipsClosed(t *testing.T) {
	cfg := testConfig(t)
	cfg.BaseURL = "https://photos.example.com"
	app := createTestApp(t, cfg)

	open := testutil.SeedCategory(t, app.repo, "Sunsets", models.CategoryVoting)
	testutil.SeedCategory(t, app.repo, "Archive", models.CategoryClosed)

	urls, err := app.LandingURLs(context.Background())
	if err != nil {
		t.Fatalf("LandingURLs failed: %v", err)
	}
	if len(urls) != 1 {
		t.Fatalf("expected 1 landing URL, got %v", urls)
	}
	if want := "https://photos.example.com/c/" + open.ID; urls[0] != want {
		t.Errorf("expected %s, got %s", want, urls[0])
	}
}

func TestApp_Close_IsIdempotent(t *testing.T) {
	app := createTestApp(t, testConfig(t))

	app.Close()
	app.Close()
}

func TestApp_Serve_ShutsDownOnCancel(t *testing.T) {
	app := createTestApp(t, testConfig(t))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- app.serve(ctx, "127.0.0.1:0")
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected clean shutdown, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestApp_Serve_ListenError(t *testing.T) {
	app := createTestApp(t, testConfig(t))

	if err := app.serve(context.Background(), "256.0.0.1:99999"); err == nil {
		t.Error("expected listen error")
	}
}

func TestResolveBaseURL_StoresDetectedWhenEmpty(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	ctx := context.Background()

	got := resolveBaseURL(ctx, logger.Nop(), repo, "", "http://192.168.1.100:8081")
	if got != "http://192.168.1.100:8081" {
		t.Errorf("expected detected URL, got %s", got)
	}
	val, _ := repo.GetSetting(ctx, "base_url")
	if val != "http://192.168.1.100:8081" {
		t.Errorf("expected base_url to be stored, got %s", val)
	}
}

func TestResolveBaseURL_ReplacesLocalhost(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	ctx := context.Background()
	if err := repo.SetSetting(ctx, "base_url", "http://localhost:8081"); err != nil {
		t.Fatalf("failed to set initial setting: %v", err)
	}

	got := resolveBaseURL(ctx, logger.Nop(), repo, "", "http://192.168.1.100:8081")
	if got != "http://192.168.1.100:8081" {
		t.Errorf("expected localhost to be replaced, got %s", got)
	}
}

func TestResolveBaseURL_KeepsStoredURL(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	ctx := context.Background()
	if err := repo.SetSetting(ctx, "base_url", "http://192.168.1.50:8081"); err != nil {
		t.Fatalf("failed to set initial setting: %v", err)
	}

	got := resolveBaseURL(ctx, logger.Nop(), repo, "", "http://192.168.1.100:8081")
	if got != "http://192.168.1.50:8081" {
		t.Errorf("expected stored URL to be kept, got %s", got)
	}
}

func TestResolveBaseURL_ConfiguredOverridesStored(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	ctx := context.Background()
	if err := repo.SetSetting(ctx, "base_url", "http://192.168.1.50:8081"); err != nil {
		t.Fatalf("failed to set initial setting: %v", err)
	}

	got := resolveBaseURL(ctx, logger.Nop(), repo, "https://example.com", "http://192.168.1.100:8081")
	if got != "https://example.com" {
		t.Errorf("expected configured URL, got %s", got)
	}
	val, _ := repo.GetSetting(ctx, "base_url")
	if val != "https://example.com" {
		t.Errorf("expected configured URL to be stored, got %s", val)
	}
}

func TestResolveBaseURL_HandlesRepoError(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	repo.DB().Close()

	got := resolveBaseURL(context.Background(), logger.Nop(), repo, "", "http://10.0.0.2:8081")
	if got != "http://10.0.0.2:8081" {
		t.Errorf("expected detected URL on error, got %s", got)
	}
}

func TestIsPrivate172(t *testing.T) {
	tests := []struct {
		ip       string
		expected bool
	}{
		{"172.16.0.1", true},
		{"172.31.255.255", true},
		{"172.15.0.1", false},
		{"172.32.0.1", false},
		{"192.168.1.1", false},
		{"10.0.0.1", false},
		{"::1", false},
		{"fe80::1", false},
	}

	for _, tt := range tests {
		t.Run(tt.ip, func(t *testing.T) {
			if got := isPrivate172(net.ParseIP(tt.ip)); got != tt.expected {
				t.Errorf("isPrivate172(%s) = %v, want %v", tt.ip, got, tt.expected)
			}
		})
	}
	if isPrivate172(nil) {
		t.Error("isPrivate172(nil) should be false")
	}
}

// mockInterface implements networkInterface for testing
type mockInterface struct {
	flags net.Flags
	addrs []net.Addr
	err   error
}

func (m mockInterface) Flags() net.Flags {
	return m.flags
}

func (m mockInterface) Addrs() ([]net.Addr, error) {
	return m.addrs, m.err
}

type mockNetworkProvider struct {
	interfaces []networkInterface
	err        error
}

func (m mockNetworkProvider) Interfaces() ([]networkInterface, error) {
	return m.interfaces, m.err
}

func ipNet(s string) *net.IPNet {
	return &net.IPNet{IP: net.ParseIP(s), Mask: net.CIDRMask(24, 32)}
}

func TestGetPreferredIP(t *testing.T) {
	tests := []struct {
		name     string
		provider mockNetworkProvider
		want     string
	}{
		{
			name:     "provider error",
			provider: mockNetworkProvider{err: net.ErrClosed},
			want:     "localhost",
		},
		{
			name: "addrs error",
			provider: mockNetworkProvider{interfaces: []networkInterface{
				mockInterface{flags: net.FlagUp, err: net.ErrClosed},
			}},
			want: "localhost",
		},
		{
			name: "ip addr",
			provider: mockNetworkProvider{interfaces: []networkInterface{
				mockInterface{flags: net.FlagUp, addrs: []net.Addr{&net.IPAddr{IP: net.ParseIP("192.168.1.100")}}},
			}},
			want: "192.168.1.100",
		},
		{
			name: "public fallback",
			provider: mockNetworkProvider{interfaces: []networkInterface{
				mockInterface{flags: net.FlagUp, addrs: []net.Addr{ipNet("8.8.8.8")}},
			}},
			want: "8.8.8.8",
		},
		{
			name: "private preferred over public",
			provider: mockNetworkProvider{interfaces: []networkInterface{
				mockInterface{flags: net.FlagUp, addrs: []net.Addr{ipNet("8.8.8.8"), ipNet("172.20.0.5")}},
			}},
			want: "172.20.0.5",
		},
		{
			name: "loopback address skipped",
			provider: mockNetworkProvider{interfaces: []networkInterface{
				mockInterface{flags: net.FlagUp, addrs: []net.Addr{ipNet("127.0.0.1"), ipNet("192.168.1.50")}},
			}},
			want: "192.168.1.50",
		},
		{
			name: "down and loopback interfaces skipped",
			provider: mockNetworkProvider{interfaces: []networkInterface{
				mockInterface{flags: 0, addrs: []net.Addr{ipNet("10.0.0.1")}},
				mockInterface{flags: net.FlagUp | net.FlagLoopback, addrs: []net.Addr{ipNet("10.0.0.2")}},
			}},
			want: "localhost",
		},
		{
			name: "ipv6 ignored",
			provider: mockNetworkProvider{interfaces: []networkInterface{
				mockInterface{flags: net.FlagUp, addrs: []net.Addr{&net.IPNet{IP: net.ParseIP("fe80::1")}}},
			}},
			want: "localhost",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := getPreferredIP(tt.provider); got != tt.want {
				t.Errorf("getPreferredIP() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestGetPreferredIP_RealProvider(t *testing.T) {
	ip := getPreferredIP(realNetworkProvider{})
	if ip == "" {
		t.Fatal("IP should never be empty")
	}
	if ip != "localhost" {
		parsed := net.ParseIP(ip)
		if parsed == nil || parsed.To4() == nil {
			t.Errorf("expected IPv4 address or localhost, got: %s", ip)
		}
	}
}

// Helper functions

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	dir := t.TempDir()
	cfg.DatabasePath = filepath.Join(dir, "test.db")
	cfg.StorageDir = filepath.Join(dir, "storage")
	return cfg
}

func createTestTemplatesFS() fstest.MapFS {
	return fstest.MapFS{
		"landing.html": &fstest.MapFile{
			Data: []byte(`<html><body>{{.Category.Name}}</body></html>`),
		},
	}
}

func createTestApp(t *testing.T, cfg config.Config) *App {
	t.Helper()
	app, err := New(logger.Nop(), cfg, createTestTemplatesFS(), fstest.MapFS{}, auth.NewAdmin("test-password"))
	if err != nil {
		t.Fatalf("failed to create test app: %v", err)
	}
	t.Cleanup(app.Close)
	return app
}
