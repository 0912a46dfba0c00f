package testutil

import (
	flatbuffers "github.com/google/flatbuffers/go"
)

// RecordSize is the size of one packed directory record.
const RecordSize = 0x11C

// TestRecord holds data for building one directory record.
type TestRecord struct {
	Name             string
	Unknown3         uint64
	Unknown1         int32
	UncompressedSize int32
	RelativeOffset   uint32
	CompressedSize   int32
	Unknown2         int32

	// RawName, when non-nil, is copied into the name field verbatim
	// instead of Name plus a NUL terminator.
	RawName []byte
}

// EncodeRecord packs a record into its RecordSize-byte layout.
func EncodeRecord(r TestRecord) []byte {
	buf := make([]byte, RecordSize)
	if r.RawName != nil {
		copy(buf, r.RawName)
	} else {
		copy(buf, r.Name) // the remaining zero bytes terminate the name
	}
	flatbuffers.WriteUint64(buf[0x100:], r.Unknown3)
	flatbuffers.WriteInt32(buf[0x108:], r.Unknown1)
	flatbuffers.WriteInt32(buf[0x10C:], r.UncompressedSize)
	flatbuffers.WriteUint32(buf[0x110:], r.RelativeOffset)
	flatbuffers.WriteInt32(buf[0x114:], r.CompressedSize)
	flatbuffers.WriteInt32(buf[0x118:], r.Unknown2)
	return buf
}

// BuildTestDirectory concatenates encoded records.
func BuildTestDirectory(records []TestRecord) []byte {
	out := make([]byte, 0, len(records)*RecordSize)
	for _, r := range records {
		out = append(out, EncodeRecord(r)...)
	}
	return out
}
