package cmd

import (
	"fmt"

	"github.com/go-drift/geogate/pkg/commands"
)

func init() {
	RegisterCommand(&Command{
		Name:  "locate",
		Short: "Print the device location",
		Long: `Request location permission and, if it is granted, read one
high-accuracy position and print it as JSON.

With --details the position is reverse geocoded and the nearest city and
country are included. Reverse geocoding uses geocode.endpoint and identifies
itself with the app ID.

Usage:
  geogate locate                    # {"latitude":..,"longitude":..}
  geogate locate --details          # {"coords":{..},"city":..,"country":..}
  geogate locate --provider ipinfo  # locate by IP address`,
		Usage: "geogate locate [--details] [--provider auto|native|ipinfo]",
		Run:   runLocate,
	})
}

func runLocate(args []string) error {
	var provider string
	details := false
	for i := 0; i < len(args); i++ {
		if args[i] == "--details" {
			details = true
			continue
		}
		v, skip, ok, err := providerFlag(args, i)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("unknown flag %q", args[i])
		}
		provider = v
		i += skip
	}

	cfg, err := loadConfig(provider)
	if err != nil {
		return err
	}

	method := commands.MethodGetLocation
	if details {
		method = commands.MethodGetDetails
	}
	out, err := invoke(cfg, method)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, string(out))
	return nil
}
