// Package ogg muxes and demuxes the Ogg pages of a Speex stream.
//
// Packets are limited to a single lacing segment (at most 254 bytes); packets
// continued across segments or pages are not supported.
package ogg

import (
	"github.com/pidato/speexconv/binio"
	"github.com/pidato/speexconv/speex"
)

const (
	FlagContinued = 0x01
	FlagBOS       = 0x02
	FlagEOS       = 0x04
)

const (
	// PacketsPerPage must stay below the 255 segment limit.
	PacketsPerPage = 250
	MaxPacketSize  = 254

	pageHeaderSize = 27
	capturePattern = "OggS"
	checksumOffset = 22
	segmentsOffset = 26
)

type Page struct {
	HeaderType byte
	GranulePos uint64
	Serial     uint32
	Sequence   uint32
	Checksum   uint32
	Segments   []byte
	Payload    []byte

	// Offset is the position of the page in the stream it was read from.
	Offset int64
}

func (p *Page) IsBOS() bool       { return p.HeaderType&FlagBOS != 0 }
func (p *Page) IsEOS() bool       { return p.HeaderType&FlagEOS != 0 }
func (p *Page) IsContinued() bool { return p.HeaderType&FlagContinued != 0 }

// Size is the number of bytes the page takes in a stream.
func (p *Page) Size() int {
	return pageHeaderSize + len(p.Segments) + len(p.Payload)
}

// Packets splits the payload along the lacing table. A lacing value of 255
// would continue a packet into the next segment and is rejected.
func (p *Page) Packets() ([][]byte, error) {
	packets := make([][]byte, 0, len(p.Segments))
	off := 0
	for i, n := range p.Segments {
		if n == 255 {
			return nil, speex.Errorf("ogg page", p.Offset+pageHeaderSize+int64(i), speex.ErrUnsupported,
				"continued packet in segment %d", i)
		}
		end := off + int(n)
		if end > len(p.Payload) {
			return nil, speex.Errorf("ogg page", p.Offset+pageHeaderSize+int64(i), speex.ErrFormat,
				"segment %d overruns payload", i)
		}
		packets = append(packets, p.Payload[off:end:end])
		off = end
	}
	return packets, nil
}

// header serializes the fixed header and the lacing table with the checksum
// field zeroed.
func (p *Page) header() []byte {
	b := make([]byte, pageHeaderSize+len(p.Segments))
	copy(b[0:4], capturePattern)
	b[4] = 0
	b[5] = p.HeaderType
	binio.PutUint64(b, 6, p.GranulePos)
	binio.PutUint32(b, 14, p.Serial)
	binio.PutUint32(b, 18, p.Sequence)
	b[segmentsOffset] = byte(len(p.Segments))
	copy(b[pageHeaderSize:], p.Segments)
	return b
}

// Marshal serializes the page and stores the computed checksum in it.
func (p *Page) Marshal() []byte {
	b := p.header()
	crc := Checksum(0, b, 0, len(b))
	crc = Checksum(crc, p.Payload, 0, len(p.Payload))
	binio.PutUint32(b, checksumOffset, crc)
	p.Checksum = crc
	return append(b, p.Payload...)
}
