// Package mpak reads MPAK archives (.mpk and .npk files).
//
// An MPAK archive is a 4-byte "MPAK" magic, 17 opaque reserved bytes, and a
// sequence of compressed blocks with no length prefixes:
//   - Block A: the archive's display name
//   - Block B: the directory, packed 284-byte records describing each file
//   - Payloads: one block per file, located at the directory base offset
//     (the position right after block B) plus the record's relative offset
//
// Open validates the header and decodes the directory once. Entries are then
// listed with [Archive.Entries] and extracted on demand with
// [Archive.ExtractByName]; only the requested payload is decompressed.
//
//	a, err := mpak.Open("zones.mpk")
//	if err != nil {
//	    return err
//	}
//	defer a.Close()
//	data, err := a.ExtractByName("Zones.csv")
//
// Name lookups ignore case. An Archive serializes access to its stream, but
// parallel extraction is best done with one Archive per goroutine.
//
// Archive also implements fs.FS, fs.StatFS, fs.ReadFileFS, and fs.ReadDirFS
// over a flat namespace whose only directory is ".".
package mpak
