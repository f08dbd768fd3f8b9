// Package biff works on the Workbook stream of legacy .xls files at the
// record level.
//
// Records walks the stream headers. Decrypt removes FILEPASS record
// encryption (RC4 and RC4 CryptoAPI) so the stream can be handed to a BIFF
// reader, and Pack wraps a stream in a single-stream compound file, which is
// the only container the BIFF reader accepts. Encrypt is the inverse of
// Decrypt for the RC4 scheme and exists for fixtures.
package biff
