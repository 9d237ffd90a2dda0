package transcode

import (
	"bufio"
	"fmt"
	"io"

	"github.com/pidato/speexconv/ogg"
	"github.com/pidato/speexconv/speex"
	"github.com/pidato/speexconv/wave"
)

// PageInfo describes one verified Ogg page.
type PageInfo struct {
	Offset     int64
	Sequence   uint32
	Serial     uint32
	GranulePos uint64
	Flags      byte
	Packets    int
	Size       int
}

// Report is what Inspect found in a file.
type Report struct {
	Container Container
	// Header is nil when no identification header was found.
	Header  *speex.Header
	Comment string

	Pages []PageInfo
	// Format and DataSize are set for WAVE files.
	Format   *wave.Format
	DataSize int64

	// Err is the first error met; the report covers everything before it.
	Err error
}

// Inspect walks an Ogg or WAVE file without decoding any audio. Pages are
// listed up to the first one failing verification.
func Inspect(r io.Reader) *Report {
	defer closeIfCloser(r)
	br := bufio.NewReader(r)
	rep := &Report{Container: sniff(br)}
	switch rep.Container {
	case ContainerOgg:
		inspectOgg(br, rep)
	case ContainerWave:
		inspectWave(br, rep)
	default:
		rep.Err = fmt.Errorf("%w: cannot inspect %v", speex.ErrUnsupported, rep.Container)
	}
	return rep
}

func inspectOgg(r io.Reader, rep *Report) {
	pr := ogg.NewReader(r)
	wantComment := false
	for {
		p, err := pr.ReadPage()
		if err == io.EOF {
			return
		}
		if err != nil {
			rep.Err = err
			return
		}
		packets, err := p.Packets()
		if err != nil {
			rep.Err = err
			return
		}
		rep.Pages = append(rep.Pages, PageInfo{
			Offset:     p.Offset,
			Sequence:   p.Sequence,
			Serial:     p.Serial,
			GranulePos: p.GranulePos,
			Flags:      p.HeaderType,
			Packets:    len(packets),
			Size:       p.Size(),
		})
		for _, packet := range packets {
			switch {
			case rep.Header == nil:
				if h, err := speex.ParseHeader(packet); err == nil {
					rep.Header = &h
					wantComment = true
				}
			case wantComment:
				wantComment = false
				if c, err := speex.ParseComment(packet); err == nil {
					rep.Comment = c
				}
			}
		}
	}
}

func inspectWave(r io.Reader, rep *Report) {
	wr, err := wave.NewReader(r)
	if err != nil {
		rep.Err = err
		return
	}
	f := wr.Format()
	rep.Format = &f
	rep.DataSize = wr.DataSize()
	if f.IsSpeex() {
		rep.Header = f.Header
		rep.Comment = f.Comment
	}
}
