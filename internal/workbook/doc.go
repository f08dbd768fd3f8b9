// Package workbook opens report spreadsheets and exposes them as ordered,
// named grids of cell text.
//
// Loader.Open tries a direct open first: OOXML packages go through excelize
// and plain legacy BIFF workbooks through the BIFF reader. Only when the file
// turns out to be a compound container the direct path cannot read does the
// loader pay for the fallback. It inspects the container and decrypts with the
// default "VelvetSweatshop" key: an encrypted OOXML package through excelize,
// or a legacy stream protected by a FILEPASS record through package biff. The
// decrypted bytes are reopened in memory.
//
// A Workbook belongs to the caller that opened it and must be closed on every
// exit path.
package workbook
