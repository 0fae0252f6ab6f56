package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/mod/modfile"
	"golang.org/x/mod/module"
	"gopkg.in/yaml.v3"

	"github.com/go-drift/geogate/pkg/commands"
	"github.com/go-drift/geogate/pkg/geocode"
	"github.com/go-drift/geogate/pkg/ipinfo"
	"github.com/go-drift/geogate/pkg/prayertimes"
)

// FileName is the optional project configuration file.
const FileName = "geogate.yaml"

// TokenEnv overrides ipinfo.token when set.
const TokenEnv = "GEOGATE_IPINFO_TOKEN"

// Provider names. ProviderAuto picks native when a host bridge is installed
// and ipinfo otherwise.
const (
	ProviderAuto   = "auto"
	ProviderNative = "native"
	ProviderIPInfo = "ipinfo"
)

// Config represents the optional geogate.yaml configuration.
type Config struct {
	App         AppConfig         `yaml:"app"`
	Provider    string            `yaml:"provider,omitempty"`
	Timeout     string            `yaml:"timeout,omitempty"`
	IPInfo      IPInfoConfig      `yaml:"ipinfo"`
	Geocode     GeocodeConfig     `yaml:"geocode"`
	PrayerTimes PrayerTimesConfig `yaml:"prayertimes"`
}

// AppConfig contains application metadata.
type AppConfig struct {
	Name string `yaml:"name,omitempty"`
	ID   string `yaml:"id,omitempty"`
}

// IPInfoConfig configures the ipinfo provider.
type IPInfoConfig struct {
	Endpoint string `yaml:"endpoint,omitempty"`
	Token    string `yaml:"token,omitempty"`
}

// GeocodeConfig configures reverse geocoding.
type GeocodeConfig struct {
	Endpoint string `yaml:"endpoint,omitempty"`
}

// PrayerTimesConfig configures the Aladhan prayer times lookup.
type PrayerTimesConfig struct {
	Endpoint string `yaml:"endpoint,omitempty"`
	Method   *int   `yaml:"method,omitempty"`
}

// Resolved contains resolved configuration values.
type Resolved struct {
	Root            string        `yaml:"root"`
	ModulePath      string        `yaml:"module"`
	AppName         string        `yaml:"app_name"`
	AppID           string        `yaml:"app_id"`
	Provider        string        `yaml:"provider"`
	Timeout         time.Duration `yaml:"timeout"`
	IPInfoEndpoint  string        `yaml:"ipinfo_endpoint"`
	IPInfoToken     string        `yaml:"-"`
	GeocodeEndpoint string        `yaml:"geocode_endpoint"`
	PrayerEndpoint  string        `yaml:"prayertimes_endpoint"`
	PrayerMethod    int           `yaml:"prayertimes_method"`
}

// LoadOptional reads geogate.yaml if present.
func LoadOptional(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", FileName, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", FileName, err)
	}

	return &cfg, nil
}

// Resolve loads geogate.yaml (if present) and resolves defaults.
func Resolve(dir string) (*Resolved, error) {
	modulePath, err := modulePath(dir)
	if err != nil {
		return nil, err
	}

	cfg, err := LoadOptional(dir)
	if err != nil {
		return nil, err
	}

	appName := strings.TrimSpace(cfg.App.Name)
	if appName == "" {
		appName = defaultAppName(modulePath, dir)
	}

	appID := strings.TrimSpace(cfg.App.ID)
	if appID == "" {
		appID = defaultAppID(modulePath, appName)
	}
	if err := validateAppID(appID); err != nil {
		return nil, err
	}

	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" {
		provider = ProviderAuto
	}
	if err := ValidateProvider(provider); err != nil {
		return nil, err
	}

	timeout := commands.DefaultTimeout
	if s := strings.TrimSpace(cfg.Timeout); s != "" {
		timeout, err = time.ParseDuration(s)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout %q: %w", s, err)
		}
		if timeout <= 0 {
			return nil, fmt.Errorf("timeout must be positive (got %s)", s)
		}
	}

	ipinfoEndpoint, err := endpoint("ipinfo.endpoint", cfg.IPInfo.Endpoint, ipinfo.DefaultEndpoint)
	if err != nil {
		return nil, err
	}
	geocodeEndpoint, err := endpoint("geocode.endpoint", cfg.Geocode.Endpoint, geocode.DefaultEndpoint)
	if err != nil {
		return nil, err
	}

	prayerEndpoint, err := endpoint("prayertimes.endpoint", cfg.PrayerTimes.Endpoint, prayertimes.DefaultEndpoint)
	if err != nil {
		return nil, err
	}
	prayerMethod := prayertimes.DefaultMethod
	if cfg.PrayerTimes.Method != nil {
		prayerMethod = prayertimes.Method(*cfg.PrayerTimes.Method)
		if !prayerMethod.Valid() {
			return nil, fmt.Errorf("prayertimes.method must be between 0 and 99 (got %d)", *cfg.PrayerTimes.Method)
		}
	}

	token := strings.TrimSpace(cfg.IPInfo.Token)
	if env := strings.TrimSpace(os.Getenv(TokenEnv)); env != "" {
		token = env
	}

	return &Resolved{
		Root:            dir,
		ModulePath:      modulePath,
		AppName:         appName,
		AppID:           appID,
		Provider:        provider,
		Timeout:         timeout,
		IPInfoEndpoint:  ipinfoEndpoint,
		IPInfoToken:     token,
		GeocodeEndpoint: geocodeEndpoint,
		PrayerEndpoint:  prayerEndpoint,
		PrayerMethod:    int(prayerMethod),
	}, nil
}

// ValidateProvider reports whether name is a known provider.
func ValidateProvider(name string) error {
	switch name {
	case ProviderAuto, ProviderNative, ProviderIPInfo:
		return nil
	}
	return fmt.Errorf("unknown provider %q (use %s, %s or %s)", name, ProviderAuto, ProviderNative, ProviderIPInfo)
}

// FindProjectRoot walks up from the current directory to find go.mod.
func FindProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("not in a Go module (no go.mod found)")
		}
		dir = parent
	}
}

func endpoint(key, value, fallback string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback, nil
	}
	u, err := url.Parse(value)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", fmt.Errorf("%s must be an http(s) URL (got %q)", key, value)
	}
	return value, nil
}

func modulePath(dir string) (string, error) {
	data, err := os.ReadFile(filepath.Join(dir, "go.mod"))
	if err != nil {
		return "", fmt.Errorf("failed to read go.mod: %w", err)
	}
	path := modfile.ModulePath(data)
	if path == "" {
		return "", fmt.Errorf("could not determine module path from go.mod")
	}
	return path, nil
}

func defaultAppName(modulePath, dir string) string {
	base := filepath.Base(dir)
	modName, _, ok := module.SplitPathVersion(modulePath)
	if ok {
		if i := strings.LastIndex(modName, "/"); i >= 0 {
			base = modName[i+1:]
		} else {
			base = modName
		}
	}
	if base == "" || base == "." || base == string(filepath.Separator) {
		return "geogate_app"
	}
	return base
}

// defaultAppID turns a module path like github.com/acme/prayer-times into
// com.github.acme.prayertimes.
func defaultAppID(modulePath, appName string) string {
	parts := strings.Split(modulePath, "/")
	if len(parts) < 2 || !strings.Contains(parts[0], ".") {
		return "com.example." + sanitizeSegment(appName)
	}

	host := strings.Split(parts[0], ".")
	for i, j := 0, len(host)-1; i < j; i, j = i+1, j-1 {
		host[i], host[j] = host[j], host[i]
	}

	segments := host
	for _, p := range parts[1:] {
		if p != "" {
			segments = append(segments, p)
		}
	}
	for i, segment := range segments {
		segments[i] = sanitizeSegment(segment)
	}

	return strings.Join(segments, ".")
}

// sanitizeSegment lowercases segment, drops anything outside [a-z0-9] and
// guards against a leading digit.
func sanitizeSegment(segment string) string {
	var out []rune
	for _, r := range strings.TrimSpace(segment) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			out = append(out, r)
		case r >= 'A' && r <= 'Z':
			out = append(out, r+('a'-'A'))
		}
	}

	if len(out) == 0 {
		out = []rune("app")
	}
	if out[0] >= '0' && out[0] <= '9' {
		out = append([]rune{'a'}, out...)
	}

	return string(out)
}

func validateAppID(appID string) error {
	if !strings.Contains(appID, ".") {
		return fmt.Errorf("app.id must contain at least one '.' (got %q)", appID)
	}
	for _, segment := range strings.Split(appID, ".") {
		if segment == "" {
			return fmt.Errorf("app.id contains an empty segment (%q)", appID)
		}
		if segment[0] >= '0' && segment[0] <= '9' {
			return fmt.Errorf("app.id segments cannot start with a digit (%q)", appID)
		}
		if segment[0] == '_' {
			return fmt.Errorf("app.id segments cannot start with '_' (%q)", appID)
		}
		for _, r := range segment {
			if !(r == '_' || r >= 'a' && r <= 'z' || r >= '0' && r <= '9') {
				return fmt.Errorf("app.id contains invalid character %q in %q", r, appID)
			}
		}
	}
	return nil
}
