package commands

import (
	"github.com/spf13/cobra"

	"github.com/pidato/speexconv/transcode"
)

var (
	encodeStream     streamFlags
	encodeQuality    int
	encodeComplexity int
	encodeBitrate    int
	encodeVBR        bool
	encodeVBRQuality float32
	encodeVAD        bool
	encodeDTX        bool
	encodeResample   bool
	encodeComment    string
	encodeTail       string
	encodeSerial     uint32
)

var encodeCmd = &cobra.Command{
	Use:   "encode <input> [output]",
	Short: "Encode PCM audio to Speex",
	Long: `Encode a PCM WAVE file, an MP3 file or raw 16-bit PCM to Speex.

The output defaults to the input name with a .spx extension. Raw PCM input
is described with --rate and --channels. The mode follows the sample rate
unless --mode is given; --resample converts the input to the mode's rate.

A final block too short for a whole packet is padded with silence, dropped
(--tail truncate) or refused (--tail reject).

Example options file (speexconv.yaml):
  mode: wb
  quality: 8
  vbr: true
  frames_per_packet: 2
  comment: recorded at the front desk`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := loadOptions()
		if err != nil {
			return err
		}
		if err := encodeStream.apply(cmd, &opts); err != nil {
			return err
		}
		fs := cmd.Flags()
		if fs.Changed("quality") {
			opts.Quality = encodeQuality
		}
		if fs.Changed("complexity") {
			opts.Complexity = encodeComplexity
		}
		if fs.Changed("bitrate") {
			opts.Bitrate = encodeBitrate
		}
		if fs.Changed("vbr") {
			opts.VBR = encodeVBR
		}
		if fs.Changed("vbr-quality") {
			opts.VBRQuality = encodeVBRQuality
		}
		if fs.Changed("vad") {
			opts.VAD = encodeVAD
		}
		if fs.Changed("dtx") {
			opts.DTX = encodeDTX
		}
		if fs.Changed("resample") {
			opts.Resample = encodeResample
		}
		if fs.Changed("comment") {
			opts.Comment = encodeComment
		}
		if fs.Changed("tail") {
			if opts.Tail, err = transcode.ParseTailPolicy(encodeTail); err != nil {
				return err
			}
		}
		if fs.Changed("serial") {
			opts.Serial = encodeSerial
		}

		res, err := transcode.EncodeFile(args[0], outputPath(args, ".spx"), opts)
		if err != nil {
			return err
		}
		printResult(cmd, "encoded", res)
		return nil
	},
}

func init() {
	encodeStream.register(encodeCmd)
	fs := encodeCmd.Flags()
	fs.IntVarP(&encodeQuality, "quality", "q", 8, "quality 0-10")
	fs.IntVar(&encodeComplexity, "complexity", 3, "encoder complexity 1-10")
	fs.IntVar(&encodeBitrate, "bitrate", -1, "target bitrate in bits per second, -1 for none")
	fs.BoolVar(&encodeVBR, "vbr", false, "variable bitrate")
	fs.Float32Var(&encodeVBRQuality, "vbr-quality", -1, "VBR quality 0-10, -1 to follow --quality")
	fs.BoolVar(&encodeVAD, "vad", false, "voice activity detection")
	fs.BoolVar(&encodeDTX, "dtx", false, "discontinuous transmission")
	fs.BoolVar(&encodeResample, "resample", false, "resample the input to the mode's native rate")
	fs.StringVar(&encodeComment, "comment", "", "vendor string of the comment header")
	fs.StringVar(&encodeTail, "tail", "pad", "short final block: pad, truncate or reject")
	fs.Uint32Var(&encodeSerial, "serial", 0, "Ogg stream serial number, 0 for random")
}
