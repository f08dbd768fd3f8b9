// Package main hosts the report2csv CLI entrypoint and command graph.
//
// The Cobra-based command tree turns terminal invocations into batch runs
// over inspection reports, database listings, and maintenance operations.
// It centralizes configuration resolution, the run lock, and logger setup so
// subcommands can focus on output instead of wiring.
//
// Keep this package lean: new behavior belongs in the internal packages
// first and is surfaced here through dedicated commands or flags.
package main
