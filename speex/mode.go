package speex

import (
	"fmt"
	"strings"
)

// Mode is the codec operating point. Each mode fixes the frame size, the
// nominal sample rate and the Speex-in-WAVE quality tables.
type Mode int

const (
	ModeAuto      Mode = -1
	Narrowband    Mode = 0
	Wideband      Mode = 1
	UltraWideband Mode = 2
)

const (
	MinQuality = 0
	MaxQuality = 10
)

// QualityInfo is one entry of the SpeexACM QualityInfo table.
type QualityInfo struct {
	FramesPerBlock int
	BitsPerFrame   int
}

// BlockSize is the number of bytes of one block of FramesPerBlock frames.
func (q QualityInfo) BlockSize() int {
	return (q.FramesPerBlock*q.BitsPerFrame + 7) >> 3
}

// EffectiveBitrate is the bitrate once block padding is taken into account.
// Every mode runs at 50 frames per second.
func (q QualityInfo) EffectiveBitrate() int {
	return (q.BlockSize() * 8 * 50) / q.FramesPerBlock
}

type modeInfo struct {
	name       string
	sampleRate int
	// indexed by [channels-1][quality]
	framesPerBlock [2][11]int
	bitsPerFrame   [2][11]int
}

var modes = [...]modeInfo{
	Narrowband: {
		name:       "narrowband",
		sampleRate: 8000,
		framesPerBlock: [2][11]int{
			{8, 8, 8, 1, 1, 2, 2, 2, 2, 2, 2},
			{2, 1, 1, 7, 7, 8, 8, 8, 8, 3, 3},
		},
		bitsPerFrame: [2][11]int{
			{43, 79, 119, 160, 160, 220, 220, 300, 300, 364, 492},
			{60, 96, 136, 177, 177, 237, 237, 317, 317, 381, 509},
		},
	},
	Wideband: {
		name:       "wideband",
		sampleRate: 16000,
		framesPerBlock: [2][11]int{
			{8, 8, 8, 2, 1, 1, 2, 2, 2, 2, 2},
			{1, 2, 2, 8, 7, 6, 3, 3, 3, 3, 3},
		},
		bitsPerFrame: [2][11]int{
			{79, 115, 155, 196, 256, 336, 412, 476, 556, 684, 844},
			{96, 132, 172, 213, 273, 353, 429, 493, 573, 701, 861},
		},
	},
	UltraWideband: {
		name:       "ultra-wideband",
		sampleRate: 32000,
		framesPerBlock: [2][11]int{
			{8, 8, 8, 1, 2, 2, 1, 1, 1, 1, 1},
			{2, 1, 1, 7, 8, 3, 6, 6, 5, 5, 5},
		},
		bitsPerFrame: [2][11]int{
			{83, 151, 191, 232, 292, 372, 448, 512, 592, 720, 880},
			{100, 168, 208, 249, 309, 389, 465, 529, 609, 737, 897},
		},
	},
}

func (m Mode) Valid() bool {
	return m >= Narrowband && m <= UltraWideband
}

// FrameSize is the number of samples per channel in one frame.
func (m Mode) FrameSize() int {
	return 160 << uint(m)
}

// SampleRate is the native rate of the mode.
func (m Mode) SampleRate() int {
	if !m.Valid() {
		return 0
	}
	return modes[m].sampleRate
}

func (m Mode) String() string {
	if m == ModeAuto {
		return "auto"
	}
	if !m.Valid() {
		return fmt.Sprintf("mode(%d)", int(m))
	}
	return modes[m].name
}

func (m Mode) QualityInfo(channels, quality int) (QualityInfo, error) {
	if !m.Valid() {
		return QualityInfo{}, fmt.Errorf("%w: mode %d", ErrUnsupported, int(m))
	}
	if channels < 1 || channels > 2 {
		return QualityInfo{}, fmt.Errorf("%w: %d channels", ErrUnsupported, channels)
	}
	if quality < MinQuality || quality > MaxQuality {
		return QualityInfo{}, fmt.Errorf("%w: quality %d", ErrUnsupported, quality)
	}
	return QualityInfo{
		FramesPerBlock: modes[m].framesPerBlock[channels-1][quality],
		BitsPerFrame:   modes[m].bitsPerFrame[channels-1][quality],
	}, nil
}

// ModeForRate picks the mode for a sample rate.
func ModeForRate(sampleRate int) Mode {
	switch {
	case sampleRate < 12000:
		return Narrowband
	case sampleRate < 24000:
		return Wideband
	default:
		return UltraWideband
	}
}

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return ModeAuto, nil
	case "0", "nb", "narrowband":
		return Narrowband, nil
	case "1", "wb", "wideband":
		return Wideband, nil
	case "2", "uwb", "ultra-wideband", "ultrawideband":
		return UltraWideband, nil
	}
	return ModeAuto, fmt.Errorf("%w: mode %q", ErrUnsupported, s)
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(text []byte) error {
	v, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = v
	return nil
}
