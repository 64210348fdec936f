/*
Package dxfutils converts 2D vector drawings between the DXF CAD
interchange format, an XML mirror of the DXF tree, an SVG view and the
CAMM-GL III instruction stream of Roland knife cutters, simplifying and
optimising the geometry on the way so that a cutter traces the figures
efficiently and cleanly.

The package provides command line tools for the conversions. To check
the supported options type:

	$ dxf2camm --help

In case you wish to integrate the pipeline in a self constructed
environment here is a simple example:

	package main

	import (
		"fmt"
		"os"

		"github.com/tkremer/dxfutils"
	)

	func main() {
		p := dxfutils.NewProcessor()
		p.Offset = 0.25

		if err := p.Process(os.Stdin, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Error converting drawing: %s", err)
		}
	}
*/
package dxfutils
