package transcode

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/hajimehoshi/go-mp3"
	"github.com/pidato/speexconv/binio"
	"github.com/pidato/speexconv/ogg"
	"github.com/pidato/speexconv/pool"
	"github.com/pidato/speexconv/speex"
	"github.com/pidato/speexconv/transport"
	"github.com/pidato/speexconv/wave"
)

// Encode reads PCM audio from src and writes a Speex stream to dst.
//
// The source is opts.Input, recognized from its first bytes when auto: a PCM
// WAVE file, an MP3 file or raw 16-bit little-endian PCM described by
// opts.SampleRate and opts.Channels. The output is opts.Output, Ogg when auto.
// WAVE output needs dst to implement io.Seeker.
//
// Encode owns src and dst: both are closed on return when they implement
// io.Closer.
func Encode(src io.Reader, dst io.Writer, opts Options) (Result, error) {
	res, err := encode(src, dst, &opts)
	if opts.Done != nil {
		opts.Done(res, err)
	}
	return res, err
}

// EncodeFile encodes the file in into the file out. Containers left on auto
// are picked from the file extensions.
func EncodeFile(in, out string, opts Options) (Result, error) {
	res, err := encodeFile(in, out, &opts)
	if opts.Done != nil {
		opts.Done(res, err)
	}
	return res, err
}

func encodeFile(in, out string, opts *Options) (Result, error) {
	if opts.Input == ContainerAuto {
		opts.Input = ContainerForPath(in)
	}
	if opts.Output == ContainerAuto {
		opts.Output = ContainerForPath(out)
	}
	src, err := os.Open(in)
	if err != nil {
		return Result{}, err
	}
	dst, err := os.Create(out)
	if err != nil {
		src.Close()
		return Result{}, err
	}
	return encode(src, dst, opts)
}

// pcmSource is PCM audio ready to be cut into frames.
type pcmSource struct {
	r          io.Reader
	sampleRate int
	channels   int
}

func encode(src io.Reader, dst io.Writer, opts *Options) (res Result, err error) {
	defer closeIfCloser(src)
	var pw PacketWriter
	defer func() {
		if pw == nil {
			closeIfCloser(dst)
			return
		}
		if cerr := pw.Close(); err == nil {
			err = cerr
		}
	}()

	if err := opts.validate(); err != nil {
		return res, err
	}
	log := opts.logger()
	codec, err := opts.codec()
	if err != nil {
		return res, err
	}

	br := bufio.NewReader(src)
	res.Input = opts.Input
	if res.Input == ContainerAuto {
		res.Input = sniff(br)
	}
	source, err := openPCMSource(br, res.Input, opts)
	if err != nil {
		return res, err
	}

	channels := source.channels
	if res.Input != ContainerRaw && opts.Channels > 0 {
		channels = opts.Channels
	}
	if channels < 1 || channels > 2 {
		return res, fmt.Errorf("%w: %d channels", speex.ErrUnsupported, channels)
	}
	mode := opts.Mode
	if mode == speex.ModeAuto {
		mode = speex.ModeForRate(source.sampleRate)
	}
	rate := source.sampleRate
	if opts.Resample {
		rate = mode.SampleRate()
	}
	pcm := source.r
	if channels != source.channels || rate != source.sampleRate {
		c, err := newConverter(source.r, source.sampleRate, source.channels, rate, channels)
		if err != nil {
			return res, err
		}
		log.Debug("converting source", "from_rate", source.sampleRate, "from_channels", source.channels,
			"to_rate", rate, "to_channels", channels)
		pcm = c
	}

	res.Output = opts.Output
	if res.Output == ContainerAuto {
		res.Output = ContainerOgg
	}
	nframes := max(opts.FramesPerPacket, 1)
	if res.Output == ContainerWave {
		qi, err := mode.QualityInfo(channels, opts.Quality)
		if err != nil {
			return res, err
		}
		nframes = qi.FramesPerBlock
	}
	res.Header = speex.NewHeader(rate, mode, channels, opts.VBR, nframes)
	res.Comment = opts.Comment

	enc, err := codec.NewEncoder(mode, channels, opts.encoderOptions())
	if err != nil {
		return res, err
	}
	if pw, err = openPacketWriter(dst, res.Output, res.Header, opts); err != nil {
		return res, err
	}

	log.Info("encoding",
		"input", res.Input,
		"output", res.Output,
		"mode", mode,
		"sample_rate", rate,
		"channels", channels,
		"frames_per_packet", nframes,
		"quality", opts.Quality,
		"vbr", opts.VBR)

	if err := encodePackets(pcm, enc, pw, res.Header, opts, &res); err != nil {
		return res, err
	}
	log.Info("encoded", "packets", res.Packets, "samples", res.Samples)
	return res, nil
}

func openPCMSource(br *bufio.Reader, in Container, opts *Options) (pcmSource, error) {
	switch in {
	case ContainerWave:
		r, err := wave.NewReader(br)
		if err != nil {
			return pcmSource{}, err
		}
		f := r.Format()
		if f.IsSpeex() {
			return pcmSource{}, fmt.Errorf("%w: source is already Speex", speex.ErrUnsupported)
		}
		return pcmSource{r: r, sampleRate: f.SampleRate, channels: f.Channels}, nil
	case ContainerMP3:
		d, err := mp3.NewDecoder(io.NopCloser(br))
		if err != nil {
			return pcmSource{}, fmt.Errorf("%w: mp3: %v", speex.ErrFormat, err)
		}
		// go-mp3 always decodes to 16-bit stereo
		return pcmSource{r: d, sampleRate: d.SampleRate(), channels: 2}, nil
	case ContainerRaw:
		rate := opts.sampleRate()
		if rate == 0 {
			rate = opts.Mode.SampleRate()
		}
		if rate == 0 {
			rate = speex.Narrowband.SampleRate()
		}
		return pcmSource{r: br, sampleRate: rate, channels: max(opts.Channels, 1)}, nil
	}
	return pcmSource{}, fmt.Errorf("%w: cannot encode from %v", speex.ErrUnsupported, in)
}

func openPacketWriter(dst io.Writer, out Container, h speex.Header, opts *Options) (PacketWriter, error) {
	switch out {
	case ContainerOgg:
		var wopts []ogg.WriterOption
		if opts.Serial != 0 {
			wopts = append(wopts, ogg.WithSerial(opts.Serial))
		}
		w := ogg.NewWriter(dst, h, wopts...)
		if err := w.WriteHeaders(opts.Comment); err != nil {
			return nil, err
		}
		return w, nil
	case ContainerWave:
		w, err := wave.NewSpeexWriter(dst, h, opts.Quality, opts.Comment)
		if err != nil {
			return nil, err
		}
		return w, nil
	case ContainerRTP:
		return transport.NewWriter(dst, h), nil
	case ContainerRaw:
		return &rawPacketWriter{w: dst}, nil
	}
	return nil, fmt.Errorf("%w: cannot encode to %v", speex.ErrUnsupported, out)
}

// encodePackets reads blocks of h.FramesPerPacket frames, encodes every frame
// and writes one packet per block.
func encodePackets(pcm io.Reader, enc speex.Encoder, pw PacketWriter, h speex.Header, opts *Options, res *Result) error {
	p, err := pool.Of(h.Mode, h.Channels)
	if err != nil {
		return err
	}
	frame := p.PCM.Get()
	defer p.PCM.Release(frame)
	packet := p.Packet.Get()
	defer func() { p.Packet.Release(packet) }()

	frameBytes := 2 * pool.FrameSizeOf(h.Mode, h.Channels)
	block := make([]byte, h.FramesPerPacket*frameBytes)
	var offset int64
	for {
		n, err := io.ReadFull(pcm, block)
		if err == io.EOF {
			return nil
		}
		last := false
		if err == io.ErrUnexpectedEOF {
			last = true
			if n%2 != 0 {
				return speex.Errorf("encoder", offset+int64(n)-1, speex.ErrSampleSize, "trailing odd byte")
			}
			switch opts.Tail {
			case TailTruncate:
				return nil
			case TailReject:
				return speex.Errorf("encoder", offset, speex.ErrSampleSize,
					"final block of %d bytes, packets need %d", n, len(block))
			}
			clear(block[n:])
		} else if err != nil {
			return err
		}

		for i := 0; i < h.FramesPerPacket; i++ {
			off := i * frameBytes
			for j := range frame {
				frame[j] = int16(binio.Uint16(block, off+2*j))
			}
			if err := enc.Encode(frame); err != nil {
				return fmt.Errorf("encode frame: %w", err)
			}
		}
		packet = enc.Flush(packet[:0])
		if len(packet) > 0 {
			if err := pw.WritePacket(packet); err != nil {
				return err
			}
			res.Packets++
		}
		res.Samples += int64(n / (2 * h.Channels))
		offset += int64(n)
		if last {
			return nil
		}
	}
}
