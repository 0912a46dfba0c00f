package mpaktype

// BlockFormat identifies the framing of compressed blocks in an archive.
type BlockFormat uint8

const (
	// BlockZlib is an RFC 1950 stream: 2-byte header, deflate data, Adler-32.
	BlockZlib BlockFormat = iota
	// BlockDeflate is a raw RFC 1951 deflate stream.
	BlockDeflate
)

func (f BlockFormat) String() string {
	switch f {
	case BlockZlib:
		return "zlib"
	case BlockDeflate:
		return "deflate"
	default:
		return "unknown"
	}
}

// Container header layout.
const (
	// Magic identifies an MPAK archive.
	Magic = "MPAK"

	// ReservedSize is the number of opaque bytes following the magic.
	ReservedSize = 17

	// HeaderSize is the total size of magic and reserved bytes.
	HeaderSize = len(Magic) + ReservedSize
)
