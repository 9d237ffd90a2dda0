package speex

import (
	"bytes"

	"github.com/pidato/speexconv/binio"
)

const (
	HeaderSize = 80

	headerMagic   = "Speex   "
	headerVersion = "speex-1.0"

	versionID         = 1
	bitstreamVersion  = 4
	versionFieldSize  = 20
	commentHeaderSize = 8
)

// Header is the identification header carried by the first packet of a
// stream, or embedded in the fmt chunk of a Speex WAVE file.
//
//	 0 -  7: "Speex   "
//	 8 - 27: "speex-1.0", zero padded
//	28 - 31: version id (1)
//	32 - 35: header size (80)
//	36 - 39: sample rate
//	40 - 43: mode (0=NB, 1=WB, 2=UWB)
//	44 - 47: mode bitstream version (4)
//	48 - 51: channels
//	52 - 55: bitrate (-1 unset)
//	56 - 59: frame size (160 << mode)
//	60 - 63: vbr
//	64 - 67: frames per packet
//	68 - 79: extra headers, two reserved words
type Header struct {
	SampleRate      int
	Mode            Mode
	Channels        int
	Bitrate         int
	VBR             bool
	FramesPerPacket int
}

func NewHeader(sampleRate int, mode Mode, channels int, vbr bool, framesPerPacket int) Header {
	return Header{
		SampleRate:      sampleRate,
		Mode:            mode,
		Channels:        channels,
		Bitrate:         -1,
		VBR:             vbr,
		FramesPerPacket: framesPerPacket,
	}
}

// FrameSize is the number of samples per channel of one frame.
func (h Header) FrameSize() int {
	return h.Mode.FrameSize()
}

// PacketSamples is the granule advance of one packet.
func (h Header) PacketSamples() int {
	return h.FramesPerPacket * h.FrameSize()
}

func (h Header) Marshal() []byte {
	b := make([]byte, HeaderSize)
	copy(b[0:8], headerMagic)
	copy(b[8:8+versionFieldSize], headerVersion)
	binio.PutUint32(b, 28, versionID)
	binio.PutUint32(b, 32, HeaderSize)
	binio.PutUint32(b, 36, uint32(h.SampleRate))
	binio.PutUint32(b, 40, uint32(h.Mode))
	binio.PutUint32(b, 44, bitstreamVersion)
	binio.PutUint32(b, 48, uint32(h.Channels))
	binio.PutInt32(b, 52, int32(h.Bitrate))
	binio.PutUint32(b, 56, uint32(h.FrameSize()))
	if h.VBR {
		binio.PutUint32(b, 60, 1)
	}
	binio.PutUint32(b, 64, uint32(h.FramesPerPacket))
	return b
}

func BuildHeader(sampleRate int, mode Mode, channels int, vbr bool, framesPerPacket int) []byte {
	return NewHeader(sampleRate, mode, channels, vbr, framesPerPacket).Marshal()
}

// ParseHeader decodes an identification header. It fails with ErrFormat when
// b is not a recognizable header.
func ParseHeader(b []byte) (Header, error) {
	if len(b) != HeaderSize {
		return Header{}, Errorf("speex header", -1, ErrFormat, "length %d", len(b))
	}
	if !bytes.Equal(b[0:8], []byte(headerMagic)) {
		return Header{}, Errorf("speex header", 0, ErrFormat, "bad magic %q", b[0:8])
	}
	h := Header{
		SampleRate:      int(binio.Uint32(b, 36)),
		Mode:            Mode(binio.Uint32(b, 40)),
		Channels:        int(binio.Uint32(b, 48)),
		Bitrate:         int(binio.Int32(b, 52)),
		VBR:             binio.Uint32(b, 60) != 0,
		FramesPerPacket: int(binio.Uint32(b, 64)),
	}
	if !h.Mode.Valid() {
		return Header{}, Errorf("speex header", 40, ErrFormat, "mode %d", int(h.Mode))
	}
	if h.Channels < 1 {
		return Header{}, Errorf("speex header", 48, ErrFormat, "%d channels", h.Channels)
	}
	if h.FramesPerPacket < 1 {
		h.FramesPerPacket = 1
	}
	return h, nil
}

// BuildComment encodes the vendor string as a comment header with no user
// comments.
func BuildComment(vendor string) []byte {
	b := make([]byte, commentHeaderSize+len(vendor))
	binio.PutUint32(b, 0, uint32(len(vendor)))
	copy(b[4:], vendor)
	binio.PutUint32(b, 4+len(vendor), 0)
	return b
}

func ParseComment(b []byte) (string, error) {
	if len(b) < commentHeaderSize {
		return "", Errorf("speex comment", -1, ErrFormat, "length %d", len(b))
	}
	n := int(binio.Uint32(b, 0))
	if n < 0 || n > len(b)-commentHeaderSize {
		return "", Errorf("speex comment", 0, ErrFormat, "vendor length %d", n)
	}
	vendor := string(b[4 : 4+n])
	if count := binio.Uint32(b, 4+n); count != 0 {
		return "", Errorf("speex comment", int64(4+n), ErrUnsupported, "%d user comments", count)
	}
	return vendor, nil
}
