// Package sink persists an extraction result to both of its targets: the
// CSV export (overwritten per title) and the relational store (appended).
package sink
