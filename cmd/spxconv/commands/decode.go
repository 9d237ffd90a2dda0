package commands

import (
	"github.com/spf13/cobra"

	"github.com/pidato/speexconv/transcode"
)

var (
	decodeStream     streamFlags
	decodeLoss       int
	decodeSeed       uint64
	decodeEnhanced   bool
	decodePacketSize int
)

var decodeCmd = &cobra.Command{
	Use:   "decode <input> [output]",
	Short: "Decode Speex to PCM audio",
	Long: `Decode an Ogg Speex file, a Speex WAVE file, an RTP dump or raw Speex
packets to PCM.

The output defaults to the input name with a .wav extension; an output with
an unknown extension receives raw 16-bit little-endian PCM. RTP dumps and
raw packets carry no header: describe them with --mode, --rate, --channels
and --nframes. Raw packets also need --packet-size.

--loss drops that percentage of packets before decoding, to hear how the
decoder conceals them. Packets missing from an RTP dump are concealed too.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := loadOptions()
		if err != nil {
			return err
		}
		if err := decodeStream.apply(cmd, &opts); err != nil {
			return err
		}
		fs := cmd.Flags()
		if fs.Changed("loss") {
			opts.Loss = decodeLoss
		}
		if fs.Changed("seed") {
			opts.Seed = decodeSeed
		}
		if fs.Changed("enhanced") {
			opts.Enhanced = decodeEnhanced
		}
		if fs.Changed("packet-size") {
			opts.PacketSize = decodePacketSize
		}

		res, err := transcode.DecodeFile(args[0], outputPath(args, ".wav"), opts)
		if err != nil {
			return err
		}
		printResult(cmd, "decoded", res)
		return nil
	},
}

func init() {
	decodeStream.register(decodeCmd)
	fs := decodeCmd.Flags()
	fs.IntVar(&decodeLoss, "loss", 0, "percentage of packets to drop")
	fs.Uint64Var(&decodeSeed, "seed", 0, "seed of the packet loss simulation, 0 for random")
	fs.BoolVar(&decodeEnhanced, "enhanced", true, "perceptual enhancement")
	fs.IntVar(&decodePacketSize, "packet-size", 0, "size of every packet of a raw Speex input")
}
