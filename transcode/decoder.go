package transcode

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/pidato/speexconv/ogg"
	"github.com/pidato/speexconv/pool"
	"github.com/pidato/speexconv/speex"
	"github.com/pidato/speexconv/transport"
	"github.com/pidato/speexconv/wave"
)

// Decode reads a Speex stream from src and writes PCM audio to dst.
//
// The source is opts.Input, recognized from its first bytes when auto. Ogg
// and WAVE sources carry their own header; RTP dumps and raw packet streams
// are described by opts. The output is opts.Output, a PCM WAVE file when
// auto, which needs dst to implement io.Seeker.
//
// opts.Loss percent of the packets are dropped before decoding and concealed
// like packets missing from an RTP dump.
//
// Decode owns src and dst: both are closed on return when they implement
// io.Closer.
func Decode(src io.Reader, dst io.Writer, opts Options) (Result, error) {
	res, err := decode(src, dst, &opts)
	if opts.Done != nil {
		opts.Done(res, err)
	}
	return res, err
}

// DecodeFile decodes the file in into the file out. Containers left on auto
// are picked from the file extensions; an output with an unknown extension is
// raw PCM.
func DecodeFile(in, out string, opts Options) (Result, error) {
	res, err := decodeFile(in, out, &opts)
	if opts.Done != nil {
		opts.Done(res, err)
	}
	return res, err
}

func decodeFile(in, out string, opts *Options) (Result, error) {
	if opts.Input == ContainerAuto {
		opts.Input = ContainerForPath(in)
	}
	if opts.Output == ContainerAuto {
		opts.Output = ContainerForPath(out)
		if opts.Output == ContainerAuto {
			opts.Output = ContainerRaw
		}
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
	return decode(src, dst, opts)
}

func decode(src io.Reader, dst io.Writer, opts *Options) (res Result, err error) {
	defer closeIfCloser(src)
	var sw SampleWriter
	defer func() {
		if sw == nil {
			closeIfCloser(dst)
			return
		}
		if cerr := sw.Close(); err == nil {
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
	pr, err := openPacketSource(br, opts, log, &res)
	if err != nil {
		return res, err
	}
	defer pr.Close()

	h := res.Header
	if h.Channels < 1 || h.Channels > 2 {
		return res, fmt.Errorf("%w: %d channels", speex.ErrUnsupported, h.Channels)
	}
	dec, err := codec.NewDecoder(h.Mode, h.Channels, opts.Enhanced)
	if err != nil {
		return res, err
	}

	res.Output = opts.Output
	if res.Output == ContainerAuto {
		res.Output = ContainerWave
	}
	if sw, err = openSampleWriter(dst, res.Output, h); err != nil {
		return res, err
	}

	log.Info("decoding",
		"input", res.Input,
		"output", res.Output,
		"mode", h.Mode,
		"sample_rate", h.SampleRate,
		"channels", h.Channels,
		"frames_per_packet", h.FramesPerPacket,
		"vbr", h.VBR,
		"comment", res.Comment)

	err = decodePackets(pr, dec, sw, h, opts, &res)
	if rr, ok := pr.(*transport.Receiver); ok {
		st := rr.Stats()
		res.Dropped = st.Dropped
		log.Info("rtp stream", "ssrc", rr.SSRC(), "received", st.Received, "missing", st.Lost,
			"dropped", st.Dropped, "resyncs", st.Resyncs)
	}
	if err != nil {
		return res, err
	}
	log.Info("decoded", "packets", res.Packets, "lost", res.Lost, "samples", res.Samples)
	return res, nil
}

// openPacketSource positions the source on its first audio packet and fills
// res.Header and res.Comment.
func openPacketSource(br *bufio.Reader, opts *Options, log *slog.Logger, res *Result) (PacketReader, error) {
	switch res.Input {
	case ContainerOgg:
		r := ogg.NewReader(br)
		if err := readOggHeaders(r, log, res); err != nil {
			return nil, err
		}
		return r, nil
	case ContainerWave:
		r, err := wave.NewReader(br)
		if err != nil {
			return nil, err
		}
		f := r.Format()
		if !f.IsSpeex() {
			return nil, fmt.Errorf("%w: not a Speex WAVE file, format tag %#04x", speex.ErrUnsupported, f.Tag)
		}
		res.Header = *f.Header
		res.Header.SampleRate = f.SampleRate
		res.Header.Channels = f.Channels
		res.Comment = f.Comment
		return r, nil
	case ContainerRTP:
		res.Header = opts.streamHeader()
		return transport.NewReceiver(br), nil
	case ContainerRaw:
		if opts.PacketSize <= 0 {
			return nil, fmt.Errorf("%w: raw Speex input needs a packet size", speex.ErrUnsupported)
		}
		res.Header = opts.streamHeader()
		return newRawPacketReader(br, opts.PacketSize), nil
	}
	return nil, fmt.Errorf("%w: cannot decode from %v", speex.ErrUnsupported, res.Input)
}

// readOggHeaders looks for the identification header, skipping payloads that
// are not one, and takes the packet after it as the comment header.
func readOggHeaders(r *ogg.Reader, log *slog.Logger, res *Result) error {
	for {
		packet, err := r.ReadPacket()
		if err == io.EOF {
			return speex.Errorf("decoder", r.Offset(), speex.ErrFormat, "no Speex header in %d packets", res.Skipped)
		}
		if err != nil {
			return err
		}
		h, err := speex.ParseHeader(packet)
		if err != nil {
			res.Skipped++
			p := r.Page()
			log.Debug("skipping payload", "page", p.Sequence, "offset", p.Offset, "len", len(packet), "error", err)
			continue
		}
		res.Header = h
		break
	}

	packet, err := r.ReadPacket()
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return err
	}
	comment, err := speex.ParseComment(packet)
	if err != nil {
		log.Debug("ignoring comment header", "error", err)
		return nil
	}
	res.Comment = comment
	return nil
}

// streamHeader describes a source that carries no header.
func (o *Options) streamHeader() speex.Header {
	rate := o.sampleRate()
	mode := o.Mode
	if mode == speex.ModeAuto {
		mode = speex.Narrowband
		if rate > 0 {
			mode = speex.ModeForRate(rate)
		}
	}
	if rate == 0 {
		rate = mode.SampleRate()
	}
	return speex.NewHeader(rate, mode, max(o.Channels, 1), o.VBR, max(o.FramesPerPacket, 1))
}

func openSampleWriter(dst io.Writer, out Container, h speex.Header) (SampleWriter, error) {
	switch out {
	case ContainerWave:
		w, err := wave.NewPCMWriter(dst, h.SampleRate, h.Channels)
		if err != nil {
			return nil, err
		}
		return w, nil
	case ContainerRaw:
		return newRawSampleWriter(dst), nil
	}
	return nil, fmt.Errorf("%w: cannot decode to %v", speex.ErrUnsupported, out)
}

// decodePackets decodes h.FramesPerPacket frames out of every packet. A lost
// packet, missing from the source or dropped by the loss simulation, is
// concealed frame by frame.
func decodePackets(pr PacketReader, dec speex.Decoder, sw SampleWriter, h speex.Header, opts *Options, res *Result) error {
	p, err := pool.Of(h.Mode, h.Channels)
	if err != nil {
		return err
	}
	frame := p.Float.Get()
	defer p.Float.Release(frame)
	pcm := p.PCM.Get()
	defer p.PCM.Release(pcm)

	write := func() error {
		for i, v := range frame {
			pcm[i] = saturate(v)
		}
		res.Samples += int64(h.FrameSize())
		return sw.WriteSamples(pcm)
	}

	rng := opts.rand()
	for {
		packet, err := pr.ReadPacket()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		res.Packets++

		lost := packet == nil
		if !lost && opts.Loss > 0 && rng.IntN(100) < opts.Loss {
			lost = true
		}
		if lost {
			res.Lost++
			err = dec.Decode(nil, frame)
		} else {
			err = dec.Decode(packet, frame)
		}
		if err != nil {
			return fmt.Errorf("decode packet %d: %w", res.Packets, err)
		}
		if err := write(); err != nil {
			return err
		}
		for i := 1; i < h.FramesPerPacket; i++ {
			if err := dec.DecodeNext(lost, frame); err != nil {
				return fmt.Errorf("decode packet %d frame %d: %w", res.Packets, i, err)
			}
			if err := write(); err != nil {
				return err
			}
		}
	}
}

// saturate rounds half away from zero and clamps to the int16 range.
func saturate(v float32) int16 {
	switch {
	case v >= 32767:
		return 32767
	case v <= -32768:
		return -32768
	case v > 0:
		return int16(v + 0.5)
	default:
		return int16(v - 0.5)
	}
}
