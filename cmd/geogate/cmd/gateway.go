package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-drift/geogate/cmd/geogate/internal/config"
	"github.com/go-drift/geogate/pkg/commands"
	"github.com/go-drift/geogate/pkg/geocode"
	"github.com/go-drift/geogate/pkg/geolocation"
	"github.com/go-drift/geogate/pkg/ipinfo"
	"github.com/go-drift/geogate/pkg/platform"
	"github.com/go-drift/geogate/pkg/prayertimes"
)

// errNoBridge is returned when the native provider is chosen in a process
// where no host has installed a bridge.
var errNoBridge = errors.New("native provider needs a host bridge; use --provider ipinfo")

// loadConfig resolves the project configuration, applying a --provider
// override when one was given.
func loadConfig(provider string) (*config.Resolved, error) {
	root, err := config.FindProjectRoot()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Resolve(root)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if provider != "" {
		provider = strings.ToLower(provider)
		if err := config.ValidateProvider(provider); err != nil {
			return nil, err
		}
		cfg.Provider = provider
	}
	return cfg, nil
}

// selectProvider settles ProviderAuto and checks that the native provider
// can be reached.
func selectProvider(cfg *config.Resolved) error {
	switch cfg.Provider {
	case config.ProviderAuto:
		cfg.Provider = config.ProviderIPInfo
		if platform.HasNativeBridge() {
			cfg.Provider = config.ProviderNative
		}
	case config.ProviderNative:
		if !platform.HasNativeBridge() {
			return errNoBridge
		}
	}
	return nil
}

func newService(cfg *config.Resolved) geolocation.Service {
	if cfg.Provider == config.ProviderIPInfo {
		return ipinfo.New(
			ipinfo.WithEndpoint(cfg.IPInfoEndpoint),
			ipinfo.WithToken(cfg.IPInfoToken),
			ipinfo.WithUserAgent(cfg.AppID),
		)
	}
	return platform.Geolocation
}

// invoke registers the command plugin for cfg and calls method on it the way
// a host would.
func invoke(cfg *config.Resolved, method string) ([]byte, error) {
	if err := selectProvider(cfg); err != nil {
		return nil, err
	}
	prayers := prayertimes.New(
		prayertimes.WithEndpoint(cfg.PrayerEndpoint),
		prayertimes.WithMethod(prayertimes.Method(cfg.PrayerMethod)),
		prayertimes.WithUserAgent(cfg.AppID),
	)
	commands.Register(geolocation.NewGateway(newService(cfg)), commands.Options{
		Timeout:     cfg.Timeout,
		Geocoder:    geocode.NewNominatim(cfg.AppID, geocode.WithEndpoint(cfg.GeocodeEndpoint)),
		PrayerTimes: prayers,
	})
	out, err := platform.HandleMethodCall(commands.ChannelName, method, nil)
	if err != nil {
		var chErr *platform.ChannelError
		if errors.As(err, &chErr) {
			return nil, fmt.Errorf("%s (%s)", chErr.Message, chErr.Code)
		}
		return nil, err
	}
	return out, nil
}

// providerFlag consumes "--provider NAME" or "--provider=NAME" at args[i].
// It returns the value and how many extra arguments were consumed.
func providerFlag(args []string, i int) (string, int, bool, error) {
	arg := args[i]
	if v, ok := strings.CutPrefix(arg, "--provider="); ok {
		return v, 0, true, nil
	}
	if arg != "--provider" {
		return "", 0, false, nil
	}
	if i+1 >= len(args) {
		return "", 0, true, fmt.Errorf("--provider requires a name (auto, native or ipinfo)")
	}
	return args[i+1], 1, true, nil
}
