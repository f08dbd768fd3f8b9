// Package extract reads the two fixed card templates.
//
// Each template is a Layout: named anchor sheets, A1 references for the part
// number, title and the two metrics, and a TableWindow that slices nine
// columns out of every matching measurement sheet. The geometry is a format
// constant; a workbook that does not match it is rejected, never repaired.
package extract
