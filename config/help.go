package config

import (
	"flag"
	"fmt"
)

const HelpMessage = `
Ride coordination service.

Usage:
  coordinator [flags]

Flags:
  -config-path string   Path to the config yaml file (default "config.yaml")
  -help                 Show this message
`

func PrintHelp() {
	if HelpMessage != "" {
		fmt.Printf("%s", HelpMessage)
	} else {
		flag.Usage()
	}
}
