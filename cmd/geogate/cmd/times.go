package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/go-drift/geogate/pkg/commands"
	"github.com/go-drift/geogate/pkg/prayertimes"
)

func init() {
	RegisterCommand(&Command{
		Name:  "times",
		Short: "Print today's prayer times and the next prayer",
		Long: `Locate the device, look up today's prayer times for that position and
print them together with the next prayer and the time left until it.

Prayer times come from prayertimes.endpoint (Aladhan) using the calculation
method prayertimes.method. Times already past today roll over to tomorrow.

Usage:
  geogate times                    # table plus the next prayer
  geogate times --json             # the get_prayer_times result as JSON
  geogate times --provider ipinfo  # locate by IP address`,
		Usage: "geogate times [--json] [--provider auto|native|ipinfo]",
		Run:   runTimes,
	})
}

func runTimes(args []string) error {
	var provider string
	asJSON := false
	for i := 0; i < len(args); i++ {
		if args[i] == "--json" {
			asJSON = true
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
	out, err := invoke(cfg, commands.MethodGetPrayerTimes)
	if err != nil {
		return err
	}
	if asJSON {
		fmt.Fprintln(stdout, string(out))
		return nil
	}

	var s prayertimes.Schedule
	if err := json.Unmarshal(out, &s); err != nil {
		return fmt.Errorf("failed to decode prayer times: %w", err)
	}
	for _, p := range prayertimes.Prayers {
		fmt.Fprintf(stdout, "%-8s %s\n", p, s.Timings.Time(p))
	}
	fmt.Fprintln(stdout)
	if s.Due {
		fmt.Fprintf(stdout, "It's time for %s prayer\n", s.Next)
		return nil
	}
	fmt.Fprintf(stdout, "Next: %s at %s (in %s)\n", s.Next, s.NextAt.Format("15:04"), s.Until)
	return nil
}
