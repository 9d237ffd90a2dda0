package pool

import (
	"fmt"
	"sync"

	"github.com/gobwas/pool/pbytes"
	"github.com/pidato/speexconv/speex"
)

const (
	frameSizeNB  = 160
	frameSizeWB  = 320
	frameSizeUWB = 640

	// PacketCap is the capacity of pooled packet buffers. It matches the
	// largest packet a single Ogg lacing value can describe.
	PacketCap = 254
)

// Pool holds the buffers of one mode and channel count.
type Pool struct {
	Mode     speex.Mode
	Channels int

	PCM    *PCMPool
	Float  *FloatPool
	Packet *PacketPool
}

func newPool(mode speex.Mode, channels, frameSize int) *Pool {
	samples := frameSize * channels
	return &Pool{
		Mode:     mode,
		Channels: channels,
		PCM:      newPCMPool(samples),
		Float:    newFloatPool(samples),
		Packet:   &PacketPool{Cap: PacketCap},
	}
}

var (
	poolNBMono    = newPool(speex.Narrowband, 1, frameSizeNB)
	poolNBStereo  = newPool(speex.Narrowband, 2, frameSizeNB)
	poolWBMono    = newPool(speex.Wideband, 1, frameSizeWB)
	poolWBStereo  = newPool(speex.Wideband, 2, frameSizeWB)
	poolUWBMono   = newPool(speex.UltraWideband, 1, frameSizeUWB)
	poolUWBStereo = newPool(speex.UltraWideband, 2, frameSizeUWB)
)

// Of returns the shared pool for a mode and channel count.
func Of(mode speex.Mode, channels int) (*Pool, error) {
	switch mode {
	case speex.Narrowband:
		switch channels {
		case 1:
			return poolNBMono, nil
		case 2:
			return poolNBStereo, nil
		}
	case speex.Wideband:
		switch channels {
		case 1:
			return poolWBMono, nil
		case 2:
			return poolWBStereo, nil
		}
	case speex.UltraWideband:
		switch channels {
		case 1:
			return poolUWBMono, nil
		case 2:
			return poolUWBStereo, nil
		}
	}
	return nil, fmt.Errorf("%w: %v with %d channels", speex.ErrUnsupported, mode, channels)
}

// FrameSizeOf is the number of interleaved samples in one frame.
func FrameSizeOf(mode speex.Mode, channels int) int {
	switch mode {
	case speex.Narrowband:
		return frameSizeNB * channels
	case speex.Wideband:
		return frameSizeWB * channels
	case speex.UltraWideband:
		return frameSizeUWB * channels
	}
	return 0
}

// PacketPool hands out empty packet buffers backed by pbytes.
type PacketPool struct {
	Cap int
}

func (p *PacketPool) Get() []byte {
	return pbytes.GetCap(p.Cap)
}

func (p *PacketPool) Release(b []byte) {
	pbytes.Put(b)
}

type PCMPool struct {
	FrameSize int
	pool      sync.Pool
}

func newPCMPool(frameSize int) *PCMPool {
	return &PCMPool{
		FrameSize: frameSize,
		pool: sync.Pool{New: func() interface{} {
			return make([]int16, frameSize)
		}},
	}
}

func (p *PCMPool) Get() []int16 {
	return p.pool.Get().([]int16)
}

func (p *PCMPool) Release(pcm []int16) {
	if cap(pcm) < p.FrameSize {
		return
	}
	pcm = pcm[:p.FrameSize]
	p.pool.Put(pcm)
}

type FloatPool struct {
	FrameSize int
	pool      sync.Pool
}

func newFloatPool(frameSize int) *FloatPool {
	return &FloatPool{
		FrameSize: frameSize,
		pool: sync.Pool{New: func() interface{} {
			return make([]float32, frameSize)
		}},
	}
}

func (p *FloatPool) Get() []float32 {
	return p.pool.Get().([]float32)
}

func (p *FloatPool) Release(pcm []float32) {
	if cap(pcm) < p.FrameSize {
		return
	}
	pcm = pcm[:p.FrameSize]
	p.pool.Put(pcm)
}
