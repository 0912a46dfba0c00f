package index

import (
	"bytes"
	"fmt"
	"time"
	"unicode/utf8"

	flatbuffers "github.com/google/flatbuffers/go"

	"github.com/meigma/mpak/internal/mpaktype"
	"github.com/meigma/mpak/internal/sizing"
)

// RecordSize is the size of one packed directory record.
const RecordSize = 0x11C

// Field offsets within a record. All integers are little-endian.
const (
	nameOffset             = 0x000
	unknown3Offset         = 0x100 // uint64
	unknown1Offset         = 0x108 // int32
	uncompressedSizeOffset = 0x10C // int32
	fileOffsetOffset       = 0x110 // uint32, relative to the directory base
	compressedSizeOffset   = 0x114 // int32
	unknown2Offset         = 0x118 // int32
)

// The last field must end exactly at the record boundary.
var _ = [1]struct{}{}[unknown2Offset+4-RecordSize]

// Creation times count 100ns ticks from 0001-01-01 UTC. Each Unknown3 unit
// is 1,000,000 ticks (100ms) past a fixed reference tick.
const (
	referenceTicks = 18208454827
	ticksPerUnit   = 1_000_000
	unitsPerSecond = 10_000_000 / ticksPerUnit
)

var tickEpoch = time.Date(1, time.January, 1, 0, 0, 0, 0, time.UTC)

// Record is a view of one packed directory record.
// It must be exactly RecordSize bytes long.
type Record []byte

// Name returns the NUL-terminated file name.
func (r Record) Name() (string, error) {
	end := bytes.IndexByte(r[nameOffset:], 0)
	if end < 0 {
		return "", fmt.Errorf("%w: unterminated entry name", mpaktype.ErrFormat)
	}
	return latin1(r[nameOffset : nameOffset+end]), nil
}

// Unknown3 returns the opaque 64-bit field that seeds the creation time.
func (r Record) Unknown3() uint64 {
	return flatbuffers.GetUint64(r[unknown3Offset:])
}

// Unknown1 returns the first opaque 32-bit field.
func (r Record) Unknown1() int32 {
	return flatbuffers.GetInt32(r[unknown1Offset:])
}

// UncompressedSize returns the decoded payload size.
func (r Record) UncompressedSize() int32 {
	return flatbuffers.GetInt32(r[uncompressedSizeOffset:])
}

// RelativeOffset returns the payload offset relative to the directory base.
func (r Record) RelativeOffset() uint32 {
	return flatbuffers.GetUint32(r[fileOffsetOffset:])
}

// CompressedSize returns the stored payload size.
func (r Record) CompressedSize() int32 {
	return flatbuffers.GetInt32(r[compressedSizeOffset:])
}

// Unknown2 returns the second opaque 32-bit field.
func (r Record) Unknown2() int32 {
	return flatbuffers.GetInt32(r[unknown2Offset:])
}

// Entry decodes the record, resolving its offset against base.
func (r Record) Entry(base int64) (mpaktype.Entry, error) {
	name, err := r.Name()
	if err != nil {
		return mpaktype.Entry{}, err
	}
	offset, ok := sizing.AddInt64(base, int64(r.RelativeOffset()))
	if !ok {
		return mpaktype.Entry{}, fmt.Errorf("%s: %w", name, mpaktype.ErrSizeOverflow)
	}
	unknown3 := r.Unknown3()
	return mpaktype.Entry{
		Name:             name,
		Offset:           offset,
		CompressedSize:   r.CompressedSize(),
		UncompressedSize: r.UncompressedSize(),
		Created:          CreationTime(unknown3),
		Unknown1:         r.Unknown1(),
		Unknown2:         r.Unknown2(),
		Unknown3:         unknown3,
	}, nil
}

// CreationTime derives an entry's creation time from its Unknown3 field.
func CreationTime(unknown3 uint64) time.Time {
	ref := tickEpoch.Add(time.Duration(referenceTicks) * 100)
	// unknown3 * ticksPerUnit can overflow; add whole seconds separately.
	secs := unknown3 / unitsPerSecond
	frac := time.Duration(unknown3%unitsPerSecond) * ticksPerUnit * 100
	t := ref.Add(frac)
	return time.Unix(t.Unix()+int64(secs), int64(t.Nanosecond())).UTC() //nolint:gosec // secs <= MaxUint64/10
}

// latin1 maps each byte to the rune of the same value.
func latin1(b []byte) string {
	ascii := true
	for _, c := range b {
		if c >= utf8.RuneSelf {
			ascii = false
			break
		}
	}
	if ascii {
		return string(b)
	}
	runes := make([]rune, len(b))
	for i, c := range b {
		runes[i] = rune(c)
	}
	return string(runes)
}
