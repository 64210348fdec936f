package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/pflag"

	"github.com/tkremer/dxfutils"
	"github.com/tkremer/dxfutils/utils"
)

// dxf2xml mirrors a DXF document into XML and back. The tree is
// preserved exactly; only the surface syntax changes.

const pipeName = "-"

var (
	output   = pflag.StringP("output", "o", pipeName, "Output file")
	fromXML  = pflag.Bool("from-xml", false, "Convert the XML mirror back into DXF")
	canonize = pflag.Bool("canonicalize", false, "Canonicalize the tree before writing")
	strip    = pflag.Bool("strip", false, "Strip tables, objects and comments")
)

func main() {
	log.SetFlags(0)

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: dxf2xml [flags] [file.dxf|file.xml]\n")
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

	warn := func(err error) {
		fmt.Fprintln(os.Stderr, utils.DecorateText("warning: "+err.Error(), utils.StatusMessage))
	}

	var (
		root *dxfutils.Node
		err  error
	)
	if *fromXML {
		root, err = dxfutils.ReadXML(in)
	} else {
		p := &dxfutils.Parser{Warn: warn}
		root, err = p.Parse(in)
	}
	if err != nil {
		log.Fatalf(utils.DecorateText("Error parsing the input: %v\n", utils.ErrorMessage), err)
	}

	if *canonize {
		if err := dxfutils.Canonicalize(root, false); err != nil {
			log.Fatalf(utils.DecorateText("Error canonicalizing: %v\n", utils.ErrorMessage), err)
		}
	}
	if *strip {
		dxfutils.Strip(root)
	}

	if *fromXML {
		err = dxfutils.Emit(out, root)
	} else {
		err = dxfutils.WriteXML(out, root)
	}
	if err != nil {
		log.Fatalf(utils.DecorateText("Error writing the output: %v\n", utils.ErrorMessage), err)
	}
}
