package commands

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pidato/speexconv/speex"
	"github.com/pidato/speexconv/transcode"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "spxconv",
	Short: "Speex encoder and decoder",
	Long: `spxconv converts between PCM audio and Speex streams.

Containers are picked from file extensions and recognized from the first
bytes of the input:
  - .spx .ogg       Ogg Speex
  - .wav            PCM WAVE, or Speex WAVE (format tag 0xA109)
  - .rtp .rtpdump   RTP dump (uint16 length + RTP packet per record)
  - .raw .pcm       headerless 16-bit little-endian PCM or Speex packets
  - .mp3            MP3 (encode input only)

Settings can be kept in a YAML file passed with --config; flags win over
the file.

Examples:
  spxconv encode speech.wav speech.spx
  spxconv encode --mode wb --quality 10 --vbr speech.wav
  spxconv decode --loss 10 --seed 1 speech.spx lossy.wav
  spxconv inspect speech.spx
`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML options file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(encodeCmd)
	rootCmd.AddCommand(decodeCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(codecsCmd)
}

var codecsCmd = &cobra.Command{
	Use:   "codecs",
	Short: "List the registered frame codecs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		names := speex.Codecs()
		if len(names) == 0 {
			return speex.ErrNoCodec
		}
		fmt.Fprintln(cmd.OutOrStdout(), strings.Join(names, "\n"))
		return nil
	},
}

// loadOptions starts from the config file, or the defaults without one.
func loadOptions() (transcode.Options, error) {
	opts := transcode.DefaultOptions()
	if cfgFile != "" {
		var err error
		if opts, err = transcode.LoadOptions(cfgFile); err != nil {
			return opts, err
		}
	}
	if verbose {
		opts.Verbose = true
	}
	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	opts.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	return opts, nil
}

// streamFlags describe streams that carry no header and apply to both
// directions.
type streamFlags struct {
	mode            string
	sampleRate      int
	channels        int
	framesPerPacket int
	codec           string
	input           string
	output          string
}

func (f *streamFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVarP(&f.mode, "mode", "m", "auto", "nb, wb, uwb or auto")
	fs.IntVarP(&f.sampleRate, "rate", "r", 0, "sample rate in Hz, or kHz below 100")
	fs.IntVarP(&f.channels, "channels", "c", 0, "channel count")
	fs.IntVar(&f.framesPerPacket, "nframes", 1, "frames per packet")
	fs.StringVar(&f.codec, "codec", "", "frame codec name (see 'spxconv codecs')")
	fs.StringVar(&f.input, "in-format", "auto", "input container: ogg, wav, rtp, raw, mp3 or auto")
	fs.StringVar(&f.output, "out-format", "auto", "output container: ogg, wav, rtp, raw or auto")
}

// apply copies the flags the user set on top of opts.
func (f *streamFlags) apply(cmd *cobra.Command, opts *transcode.Options) error {
	fs := cmd.Flags()
	var err error
	if fs.Changed("mode") {
		if opts.Mode, err = speex.ParseMode(f.mode); err != nil {
			return err
		}
	}
	if fs.Changed("rate") {
		opts.SampleRate = f.sampleRate
	}
	if fs.Changed("channels") {
		opts.Channels = f.channels
	}
	if fs.Changed("nframes") {
		opts.FramesPerPacket = f.framesPerPacket
	}
	if fs.Changed("codec") {
		opts.Codec = f.codec
	}
	if fs.Changed("in-format") {
		if opts.Input, err = transcode.ParseContainer(f.input); err != nil {
			return err
		}
	}
	if fs.Changed("out-format") {
		if opts.Output, err = transcode.ParseContainer(f.output); err != nil {
			return err
		}
	}
	return nil
}

// outputPath replaces the extension of in when out is not given.
func outputPath(args []string, ext string) string {
	if len(args) > 1 {
		return args[1]
	}
	in := args[0]
	if i := strings.LastIndexByte(in, '.'); i > strings.LastIndexByte(in, os.PathSeparator) {
		in = in[:i]
	}
	return in + ext
}

func printResult(cmd *cobra.Command, verb string, res transcode.Result) {
	h := res.Header
	fmt.Fprintf(cmd.ErrOrStderr(), "%s %v -> %v: %s %d Hz, %d channel(s), %d frame(s)/packet, %d packets, %d samples",
		verb, res.Input, res.Output, h.Mode, h.SampleRate, h.Channels, h.FramesPerPacket, res.Packets, res.Samples)
	if res.Lost > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), ", %d lost", res.Lost)
	}
	fmt.Fprintln(cmd.ErrOrStderr())
}
