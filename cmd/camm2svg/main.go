package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/pflag"

	"github.com/tkremer/dxfutils/camm"
	"github.com/tkremer/dxfutils/utils"
)

// camm2svg renders a CAMM-GL III command stream into SVG so a cutting
// program can be inspected before it reaches the device.

const pipeName = "-"

var (
	output = pflag.StringP("output", "o", pipeName, "Output file")
	split  = pflag.Bool("split", false, "One path per pen-down stretch, colored in cutting order")
	quiet  = pflag.BoolP("quiet", "q", false, "Suppress warnings about unknown commands")
)

func main() {
	log.SetFlags(0)

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: camm2svg [flags] [file.camm]\n")
		pflag.PrintDefaults()
	}
	pflag.Parse()
	if pflag.NArg() > 1 {
		pflag.Usage()
		os.Exit(2)
	}

	var in io.ReadCloser = os.Stdin
	if src := pflag.Arg(0); src != "" && src != pipeName {
		f, err := os.Open(src)
		if err != nil {
			log.Fatalf(utils.DecorateText("Failed to open the input: %v\n", utils.ErrorMessage), err)
		}
		in = f
	}
	defer in.Close()

	var out io.WriteCloser = os.Stdout
	if *output != "" && *output != pipeName {
		f, err := os.Create(*output)
		if err != nil {
			log.Fatalf(utils.DecorateText("Failed to create the output file: %v\n", utils.ErrorMessage), err)
		}
		out = f
	}
	defer out.Close()

	data, err := io.ReadAll(in)
	if err != nil {
		log.Fatalf(utils.DecorateText("Failed to read the input: %v\n", utils.ErrorMessage), err)
	}

	opt := camm.RenderOptions{Split: *split}
	if !*quiet {
		opt.Warn = func(err error) {
			fmt.Fprintln(os.Stderr, utils.DecorateText("warning: "+err.Error(), utils.StatusMessage))
		}
	}
	if err := camm.Render(out, data, opt); err != nil {
		log.Fatalf(utils.DecorateText("Error rendering the stream: %v\n", utils.ErrorMessage), err)
	}
}
