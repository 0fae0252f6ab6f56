// Command geogate requests location permission and reads the device location.
package main

import (
	"fmt"
	"os"

	"github.com/go-drift/geogate/cmd/geogate/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
