package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeProject(t *testing.T, module, yaml string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "go.mod"), []byte("module "+module+"\n\ngo 1.24\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if yaml != "" {
		if err := os.WriteFile(filepath.Join(dir, FileName), []byte(yaml), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestResolveDefaults(t *testing.T) {
	t.Setenv(TokenEnv, "")
	dir := writeProject(t, "github.com/acme/prayer-times", "")

	cfg, err := Resolve(dir)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if cfg.ModulePath != "github.com/acme/prayer-times" {
		t.Errorf("ModulePath = %q", cfg.ModulePath)
	}
	if cfg.AppName != "prayer-times" {
		t.Errorf("AppName = %q", cfg.AppName)
	}
	if cfg.AppID != "com.github.acme.prayertimes" {
		t.Errorf("AppID = %q", cfg.AppID)
	}
	if cfg.Provider != ProviderAuto {
		t.Errorf("Provider = %q", cfg.Provider)
	}
	if cfg.Timeout != 60*time.Second {
		t.Errorf("Timeout = %v", cfg.Timeout)
	}
	if cfg.IPInfoEndpoint != "https://ipinfo.io/json" {
		t.Errorf("IPInfoEndpoint = %q", cfg.IPInfoEndpoint)
	}
	if cfg.GeocodeEndpoint != "https://nominatim.openstreetmap.org/reverse" {
		t.Errorf("GeocodeEndpoint = %q", cfg.GeocodeEndpoint)
	}
	if cfg.PrayerEndpoint != "https://api.aladhan.com/v1/timings" || cfg.PrayerMethod != 2 {
		t.Errorf("prayertimes = %q / %d", cfg.PrayerEndpoint, cfg.PrayerMethod)
	}
}

func TestResolveFromFile(t *testing.T) {
	t.Setenv(TokenEnv, "")
	dir := writeProject(t, "github.com/acme/prayer-times", `
app:
  name: Prayer Times
  id: com.acme.prayer
provider: IPInfo
timeout: 15s
ipinfo:
  endpoint: http://localhost:8080/json
  token: abc
geocode:
  endpoint: https://geocode.internal/reverse
prayertimes:
  endpoint: https://aladhan.internal/v1/timings
  method: 0
`)

	cfg, err := Resolve(dir)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if cfg.AppName != "Prayer Times" || cfg.AppID != "com.acme.prayer" {
		t.Errorf("app = %q / %q", cfg.AppName, cfg.AppID)
	}
	if cfg.Provider != ProviderIPInfo {
		t.Errorf("Provider = %q", cfg.Provider)
	}
	if cfg.Timeout != 15*time.Second {
		t.Errorf("Timeout = %v", cfg.Timeout)
	}
	if cfg.IPInfoEndpoint != "http://localhost:8080/json" || cfg.IPInfoToken != "abc" {
		t.Errorf("ipinfo = %q / %q", cfg.IPInfoEndpoint, cfg.IPInfoToken)
	}
	if cfg.GeocodeEndpoint != "https://geocode.internal/reverse" {
		t.Errorf("GeocodeEndpoint = %q", cfg.GeocodeEndpoint)
	}
	if cfg.PrayerEndpoint != "https://aladhan.internal/v1/timings" || cfg.PrayerMethod != 0 {
		t.Errorf("prayertimes = %q / %d", cfg.PrayerEndpoint, cfg.PrayerMethod)
	}
}

func TestResolveProviders(t *testing.T) {
	for _, name := range []string{ProviderAuto, ProviderNative, ProviderIPInfo} {
		t.Run(name, func(t *testing.T) {
			dir := writeProject(t, "github.com/acme/app", "provider: "+name+"\n")
			cfg, err := Resolve(dir)
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if cfg.Provider != name {
				t.Errorf("Provider = %q", cfg.Provider)
			}
		})
	}
}

func TestResolveTokenFromEnv(t *testing.T) {
	t.Setenv(TokenEnv, "from-env")
	dir := writeProject(t, "github.com/acme/app", "ipinfo:\n  token: from-file\n")
	cfg, err := Resolve(dir)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if cfg.IPInfoToken != "from-env" {
		t.Errorf("IPInfoToken = %q", cfg.IPInfoToken)
	}
}

func TestResolveErrors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"bad yaml", "app: [", "failed to parse"},
		{"unknown provider", "provider: gps\n", "unknown provider"},
		{"bad timeout", "timeout: soon\n", "invalid timeout"},
		{"zero timeout", "timeout: 0s\n", "must be positive"},
		{"negative timeout", "timeout: -5s\n", "must be positive"},
		{"bad app id", "app:\n  id: nodots\n", "at least one '.'"},
		{"uppercase app id", "app:\n  id: com.Acme.app\n", "invalid character"},
		{"digit segment", "app:\n  id: com.1acme\n", "cannot start with a digit"},
		{"relative endpoint", "geocode:\n  endpoint: /reverse\n", "geocode.endpoint"},
		{"ftp endpoint", "ipinfo:\n  endpoint: ftp://ipinfo.io/json\n", "ipinfo.endpoint"},
		{"bad prayertimes endpoint", "prayertimes:\n  endpoint: aladhan\n", "prayertimes.endpoint"},
		{"negative method", "prayertimes:\n  method: -1\n", "prayertimes.method"},
		{"method out of range", "prayertimes:\n  method: 100\n", "prayertimes.method"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := writeProject(t, "github.com/acme/app", tt.yaml)
			_, err := Resolve(dir)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestResolveWithoutGoMod(t *testing.T) {
	if _, err := Resolve(t.TempDir()); err == nil || !strings.Contains(err.Error(), "go.mod") {
		t.Errorf("err = %v", err)
	}
}

func TestDefaultAppID(t *testing.T) {
	tests := []struct {
		module string
		name   string
		want   string
	}{
		{"github.com/acme/prayer-times", "prayer-times", "com.github.acme.prayertimes"},
		{"example.org/x/v2", "x", "org.example.x.v2"},
		{"github.com/9lives/app", "app", "com.github.a9lives.app"},
		{"prayer", "prayer", "com.example.prayer"},
		{"local", "My_App!", "com.example.myapp"},
	}
	for _, tt := range tests {
		t.Run(tt.module, func(t *testing.T) {
			got := defaultAppID(tt.module, tt.name)
			if got != tt.want {
				t.Errorf("defaultAppID(%q) = %q, want %q", tt.module, got, tt.want)
			}
			if err := validateAppID(got); err != nil {
				t.Errorf("generated ID fails validation: %v", err)
			}
		})
	}
}

func TestDefaultAppName(t *testing.T) {
	if got := defaultAppName("github.com/acme/prayer-times", "/tmp/x"); got != "prayer-times" {
		t.Errorf("got %q", got)
	}
	if got := defaultAppName("github.com/acme/qibla/v3", "/tmp/x"); got != "qibla" {
		t.Errorf("versioned module: got %q", got)
	}
}
