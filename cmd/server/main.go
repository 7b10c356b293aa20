// Package main is the entry point for the energy advisor server.
//
// The binary has two commands:
//
//	energy-advisor serve                 start the HTTP server
//	energy-advisor migrate up|down|version
//
// All actual logic lives in internal/; main only reads configuration,
// builds the logger and hands over.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
