package commands

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pidato/speexconv/ogg"
	"github.com/pidato/speexconv/speex"
	"github.com/pidato/speexconv/transcode"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <file.spx|file.wav>",
	Short: "Print the pages and headers of a Speex file",
	Long: `Print the headers of an Ogg or WAVE file and, for Ogg, every page with its
sequence number, granule position, flags and packet count. The listing
stops at the first page failing its checksum. No codec is needed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		rep := transcode.Inspect(f)
		printReport(cmd.OutOrStdout(), rep)
		return rep.Err
	},
}

func printReport(w io.Writer, rep *transcode.Report) {
	fmt.Fprintf(w, "container: %v\n", rep.Container)
	if f := rep.Format; f != nil {
		fmt.Fprintf(w, "format:    tag %#04x, %d Hz, %d channel(s), %d bytes/s, block %d, %d bits\n",
			f.Tag, f.SampleRate, f.Channels, f.AvgBytesPerSec, f.BlockAlign, f.BitsPerSample)
		fmt.Fprintf(w, "data:      %d bytes\n", rep.DataSize)
	}
	if h := rep.Header; h != nil {
		printHeader(w, h)
		fmt.Fprintf(w, "comment:   %q\n", rep.Comment)
	}
	if len(rep.Pages) == 0 {
		return
	}
	fmt.Fprintf(w, "%10s %6s %10s %12s %-10s %7s %5s\n", "offset", "seq", "serial", "granule", "flags", "packets", "size")
	for _, p := range rep.Pages {
		fmt.Fprintf(w, "%10d %6d %#010x %12d %-10s %7d %5d\n",
			p.Offset, p.Sequence, p.Serial, p.GranulePos, pageFlags(p.Flags), p.Packets, p.Size)
	}
	status := "ok"
	if rep.Err != nil {
		status = rep.Err.Error()
	}
	fmt.Fprintf(w, "checksums: %s\n", status)
}

func printHeader(w io.Writer, h *speex.Header) {
	fmt.Fprintf(w, "mode:      %s\n", h.Mode)
	fmt.Fprintf(w, "rate:      %d Hz\n", h.SampleRate)
	fmt.Fprintf(w, "channels:  %d\n", h.Channels)
	fmt.Fprintf(w, "bitrate:   %d\n", h.Bitrate)
	fmt.Fprintf(w, "vbr:       %t\n", h.VBR)
	fmt.Fprintf(w, "nframes:   %d\n", h.FramesPerPacket)
}

func pageFlags(flags byte) string {
	var names []string
	if flags&ogg.FlagContinued != 0 {
		names = append(names, "cont")
	}
	if flags&ogg.FlagBOS != 0 {
		names = append(names, "bos")
	}
	if flags&ogg.FlagEOS != 0 {
		names = append(names, "eos")
	}
	if len(names) == 0 {
		return "-"
	}
	return strings.Join(names, ",")
}
