package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/tkremer/dxfutils"
	"github.com/tkremer/dxfutils/poly"
	"github.com/tkremer/dxfutils/utils"
)

const HelpBanner = `
┌┬┐─┐ ┬┌─┐┌─┐┌─┐┌─┐┌┬┐┌┬┐
 ││┌┴┬┘├┤ ┌─┘│  ├─┤││││││
─┴┘┴ └─└  └─┘└─┘┴ ┴┴ ┴┴ ┴

Convert DXF drawings into CAMM-GL III cutting programs.
    Version: %s

`

// pipeName is the file name that indicates stdin/stdout is being used.
const pipeName = "-"

// Version indicates the current build version.
var Version string

var (
	// Flags
	output          = pflag.StringP("output", "o", pipeName, "Output file")
	offset          = pflag.Float64("offset", 0.25, "Knife offset (mm)")
	offsetlessStart = pflag.Bool("offsetless-start", false, "Start each path on its first point instead of overshooting")
	alignKnife      = pflag.Bool("align-knife", true, "Turn the blade into the new direction at path starts")
	noAlignKnife    = pflag.Bool("no-align-knife", false, "Disable --align-knife")
	bbox            = pflag.Float64("bbox", 0, "Cut a frame around everything with this margin (mm)")
	overlap         = pflag.Float64("overlap", 0, "Re-trace closed figures by this length (mm)")
	raw             = pflag.Bool("raw", false, "Suppress the device header and footer")
	relative        = pflag.Bool("relative", false, "Emit uncompensated polylines in relative coordinates")
	epsilon         = pflag.Float64("epsilon", 1e-4, "Endpoint matching distance")
	shortline       = pflag.Float64("shortline", 0.5, "Longest segment treated as an interpolation step (mm)")
	smallangle      = pflag.Float64("smallangle", 10, "Sharpest corner treated as an interpolation step (deg)")
	coarsify        = pflag.Float64("coarsify", 0, "Drop points closer than this distance (mm)")
	combine         = pflag.Bool("combine", true, "Stitch polylines sharing endpoints")
	noCombine       = pflag.Bool("no-combine", false, "Disable --combine")
	combineCycles   = pflag.Bool("combine-cycles", false, "Embed cycles sharing a point into each other")
	combineReverse  = pflag.Bool("combine-reverse", false, "Allow reversing a polyline while stitching")
	translate       = pflag.String("translate", "", "Shift everything by x,y (mm)")
	scale           = pflag.Float64("scale", 1, "Scale everything by this factor")
	sortCriteria    = pflag.String("sort", "", "Cut order criteria, e.g. box,left-asc,bottom")
	layers          = pflag.String("layers", "", "Layer filter, e.g. +CUT,MARK or -NOTES")
	colors          = pflag.String("colors", "", "Color filter with the same syntax")
	profile         = pflag.String("profile", "", "Cutter profile file")
)

func main() {
	log.SetFlags(0)

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, HelpBanner, Version)
		pflag.PrintDefaults()
	}
	pflag.Parse()
	if pflag.NArg() > 1 {
		pflag.Usage()
		os.Exit(2)
	}

	proc := dxfutils.NewProcessor()
	proc.Offset = *offset
	proc.OffsetlessStart = *offsetlessStart
	proc.AlignKnife = *alignKnife && !*noAlignKnife
	proc.BBox = *bbox
	proc.Overlap = *overlap
	proc.Raw = *raw
	proc.Relative = *relative
	proc.Epsilon = *epsilon
	proc.ShortLine = *shortline
	proc.SmallAngleDeg = *smallangle
	proc.Coarsify = *coarsify
	proc.Combine = *combine && !*noCombine
	proc.CombineCycles = *combineCycles
	proc.CombineReverse = *combineReverse
	proc.Scale = *scale
	proc.SortCriteria = *sortCriteria
	proc.Layers = *layers
	proc.Colors = *colors
	proc.Warn = func(err error) {
		fmt.Fprintln(os.Stderr, utils.DecorateText("warning: "+err.Error(), utils.StatusMessage))
	}

	if *translate != "" {
		shift, err := parsePoint(*translate)
		if err != nil {
			log.Fatalf(utils.DecorateText("Bad --translate value: %v\n", utils.ErrorMessage), err)
		}
		proc.Translate = shift
	}

	if err := loadProfile(proc); err != nil {
		log.Fatalf(
			utils.DecorateText("Failed to load the cutter profile: %v", utils.ErrorMessage),
			utils.DecorateText(err.Error(), utils.DefaultMessage),
		)
	}

	in, out := openStreams(pflag.Arg(0), *output)
	defer in.Close()
	defer out.Close()
	proc.LiveSink = !isRegular(out)

	var spinner *utils.Spinner
	if term.IsTerminal(int(os.Stderr.Fd())) {
		spinnerText := fmt.Sprintf("%s %s",
			utils.DecorateText("⚡ DXF2CAMM", utils.StatusMessage),
			utils.DecorateText("is converting the drawing...", utils.DefaultMessage))
		spinner = utils.NewSpinner(spinnerText, time.Millisecond*200)
		spinner.Start()
	}

	now := time.Now()
	err := proc.Process(in, out)
	if spinner != nil {
		spinner.StopMsg = fmt.Sprintf("Converted in: %s\n",
			utils.DecorateText(utils.FormatTime(time.Since(now)), utils.SuccessMessage))
		spinner.Stop()
	}
	if err != nil {
		log.Fatalf(
			utils.DecorateText("Error converting the drawing: %v", utils.ErrorMessage),
			utils.DecorateText(err.Error(), utils.DefaultMessage),
		)
	}
}

// loadProfile reads the cutter device profile: speed, force and tool
// defaults, plus the idle-guard switch. Values come from an explicit
// --profile file, a dxfutils config in the usual places, or the
// DXFUTILS_* environment.
func loadProfile(proc *dxfutils.Processor) error {
	v := viper.New()
	v.SetDefault("speed", 0.0)
	v.SetDefault("force", 0)
	v.SetDefault("tool", 1)
	v.SetDefault("idle_guard", true)
	v.SetEnvPrefix("DXFUTILS")
	v.AutomaticEnv()

	if *profile != "" {
		v.SetConfigFile(*profile)
		if err := v.ReadInConfig(); err != nil {
			return err
		}
	} else {
		v.SetConfigName("dxfutils")
		v.AddConfigPath("$HOME/.config/dxfutils")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return err
			}
		}
	}

	proc.Defaults.Speed = v.GetFloat64("speed")
	proc.Defaults.Force = v.GetInt("force")
	proc.Defaults.Tool = v.GetInt("tool")
	proc.DisableIdleGuard = !v.GetBool("idle_guard")
	return nil
}

func openStreams(src, dst string) (io.ReadCloser, io.WriteCloser) {
	var (
		in  io.ReadCloser  = os.Stdin
		out io.WriteCloser = os.Stdout
		err error
	)
	if src != "" && src != pipeName {
		if in, err = os.Open(src); err != nil {
			log.Fatalf(
				utils.DecorateText("Failed to open the source drawing: %v", utils.ErrorMessage),
				utils.DecorateText(err.Error(), utils.DefaultMessage),
			)
		}
	}
	if dst != "" && dst != pipeName {
		if out, err = os.Create(dst); err != nil {
			log.Fatalf(
				utils.DecorateText("Failed to create the output file: %v", utils.ErrorMessage),
				utils.DecorateText(err.Error(), utils.DefaultMessage),
			)
		}
	}
	return in, out
}

func isRegular(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fs, err := f.Stat()
	if err != nil {
		return false
	}
	return fs.Mode().IsRegular()
}

func parsePoint(s string) (poly.Point, error) {
	parts := strings.SplitN(s, ",", 2)
	if len(parts) != 2 {
		return poly.Point{}, fmt.Errorf("expected x,y, got %q", s)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return poly.Point{}, err
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return poly.Point{}, err
	}
	return poly.Point{X: x, Y: y}, nil
}
