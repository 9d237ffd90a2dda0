// Package main provides spxconv, a converter between PCM audio and Speex
// streams in Ogg, WAVE and RTP dump containers.
//
// Usage:
//
//	spxconv [flags] <command> [args]
//
// Commands:
//
//	encode  - PCM WAVE, MP3 or raw PCM to Speex
//	decode  - Speex to PCM WAVE or raw PCM
//	inspect - list the pages and headers of a Speex file
package main

import (
	"fmt"
	"os"

	"github.com/pidato/speexconv/cmd/spxconv/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
