// availog - Availability Reconstruction Tool
//
// availog reads a monitoring system's event log and archives and reports how
// long each host and service spent in each state during a window.
package main

import (
	"os"

	"github.com/ccollicutt/availog/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
