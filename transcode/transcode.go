// Package transcode runs the encode and decode pipelines between PCM audio
// and Speex streams held in Ogg, WAVE or RTP dump containers.
package transcode

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/pidato/speexconv/speex"
)

// PacketWriter consumes encoded packets.
type PacketWriter interface {
	io.Closer

	WritePacket(packet []byte) error
}

// PacketReader yields encoded packets and io.EOF at the end of the stream. A
// nil packet with a nil error stands for a packet lost in transit.
type PacketReader interface {
	io.Closer

	ReadPacket() ([]byte, error)
}

// SampleWriter consumes interleaved 16-bit samples.
type SampleWriter interface {
	io.Closer

	WriteSamples(pcm []int16) error
}

type Container int

const (
	ContainerAuto Container = iota
	ContainerOgg
	ContainerWave
	ContainerRaw
	ContainerRTP
	ContainerMP3
)

var containerNames = [...]string{
	ContainerAuto: "auto",
	ContainerOgg:  "ogg",
	ContainerWave: "wav",
	ContainerRaw:  "raw",
	ContainerRTP:  "rtp",
	ContainerMP3:  "mp3",
}

func (c Container) String() string {
	if c < 0 || int(c) >= len(containerNames) {
		return fmt.Sprintf("container(%d)", int(c))
	}
	return containerNames[c]
}

func ParseContainer(s string) (Container, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return ContainerAuto, nil
	case "ogg", "spx":
		return ContainerOgg, nil
	case "wav", "wave":
		return ContainerWave, nil
	case "raw", "pcm":
		return ContainerRaw, nil
	case "rtp", "rtpdump":
		return ContainerRTP, nil
	case "mp3":
		return ContainerMP3, nil
	}
	return ContainerAuto, fmt.Errorf("%w: container %q", speex.ErrUnsupported, s)
}

func (c Container) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Container) UnmarshalText(text []byte) error {
	v, err := ParseContainer(string(text))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// ContainerForPath picks the container from a file extension. Unknown
// extensions give ContainerAuto.
func ContainerForPath(path string) Container {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".spx", ".ogg", ".oga":
		return ContainerOgg
	case ".wav", ".wave":
		return ContainerWave
	case ".raw", ".pcm", ".sw":
		return ContainerRaw
	case ".rtp", ".rtpdump":
		return ContainerRTP
	case ".mp3":
		return ContainerMP3
	}
	return ContainerAuto
}

func closeIfCloser(v any) {
	if c, ok := v.(io.Closer); ok {
		_ = c.Close()
	}
}

// sniff peeks at the first bytes of br to recognize a container. MP3 is only
// recognized by its ID3 tag; a bare frame sync is indistinguishable from PCM.
func sniff(br *bufio.Reader) Container {
	b, _ := br.Peek(4)
	switch {
	case bytes.HasPrefix(b, []byte("OggS")):
		return ContainerOgg
	case bytes.HasPrefix(b, []byte("RIFF")):
		return ContainerWave
	case bytes.HasPrefix(b, []byte("ID3")):
		return ContainerMP3
	}
	return ContainerRaw
}
