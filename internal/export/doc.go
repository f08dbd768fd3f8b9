// Package export writes an extraction result to a delimited file in the
// configured output directory.
//
// Files are UTF-8 with a byte-order mark so spreadsheet tools pick the right
// encoding, are named after the part title, and are replaced atomically: a
// later export of the same title supersedes the earlier file.
package export
