// Package config loads, normalizes, and validates report2csv configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours the REPORT2CSV_DATABASE_DSN
// environment fallback. The Config type centralizes the output, log, and
// database directories, the stage list offered to a batch, the worker pool
// size, and the export header style.
//
// Always obtain settings through this package so downstream code receives
// absolute paths, canonical driver names, and clear validation errors.
package config
