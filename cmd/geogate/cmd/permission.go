package cmd

import (
	"fmt"

	"github.com/go-drift/geogate/pkg/commands"
	"github.com/go-drift/geogate/pkg/platform"
)

func init() {
	RegisterCommand(&Command{
		Name:  "permission",
		Short: "Request location permission",
		Long: `Request location permission from the configured provider and print the
decision: Allowed, Denied or Unspecified.

The ipinfo provider needs no OS permission and always reports Allowed.`,
		Usage: "geogate permission [--provider auto|native|ipinfo]",
		Run:   runPermission,
	})
}

func runPermission(args []string) error {
	var provider string
	for i := 0; i < len(args); i++ {
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
	out, err := invoke(cfg, commands.MethodRequestPermission)
	if err != nil {
		return err
	}

	status, err := platform.DefaultCodec.Decode(out)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, status)
	return nil
}
