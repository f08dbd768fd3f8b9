// Package pipeline runs one job end to end: classify the file name, open the
// workbook, extract the card, stamp the job prefix, and persist.
package pipeline
