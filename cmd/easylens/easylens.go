package main

import (
	"flag"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/easylens/easylens/pkg/compose"
	"github.com/easylens/easylens/pkg/lif"
	"github.com/easylens/easylens/pkg/lut"
)

var (
	fLif           string
	fIndexes       intList
	fChannels      intList
	fZIndex        int
	fLuts          nameList
	fLowThreshold  float64
	fHighThreshold float64
	fOutput        string
	fConfig        string
	fScale         float64
	fVerbosity     int
)

func init() {
	flag.StringVar(&fLif, "lif", "", "path to the .lif project (required)")
	flag.Var(&fIndexes, "indexes", "comma-separated image indexes to process (default: all)")
	flag.Var(&fChannels, "channels", "comma-separated channel ids to display (default: all)")
	flag.IntVar(&fZIndex, "zindex", 0, "z slice to extract")
	flag.Var(&fLuts, "lut", "comma-separated look up tables, from: "+strings.Join(lut.Names(), " ")+"; cycled when shorter than the channel list")
	flag.Float64Var(&fLowThreshold, "low-threshold", 0, "intensities at or below this render black")
	flag.Float64Var(&fHighThreshold, "high-threshold", 4095, "intensities at or above this render at full LUT color")
	flag.StringVar(&fOutput, "output", "", "output prefix, or an existing directory to save into (default: project file stem)")
	flag.StringVar(&fConfig, "config", "", "optional YAML file of default options")
	flag.Float64Var(&fScale, "scale", 1, "scale factor for the output image")
	flag.IntVar(&fVerbosity, "v", 0, "how verbose to get")
	flag.Parse()

	log.Printf("easylens starting\n")
}

func main() {
	if fLif == "" {
		log.Fatal("-lif is required")
	}

	opts := compose.NewOptions()
	if fConfig != "" {
		var err error
		if opts, err = compose.LoadOptions(fConfig); err != nil {
			log.Fatal(err)
		}
		log.Printf("loaded base options from %s\n", fConfig)
	}

	// Command line args override the config file, where given
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "indexes":
			opts.Indexes = fIndexes
		case "channels":
			opts.Channels = fChannels
		case "zindex":
			opts.ZIndex = fZIndex
		case "lut":
			opts.LUTs = fLuts
		case "low-threshold":
			opts.LowThreshold = fLowThreshold
		case "high-threshold":
			opts.HighThreshold = fHighThreshold
		case "output":
			opts.Output = fOutput
		case "scale":
			opts.Scale = fScale
		case "v":
			opts.Verbosity = fVerbosity
		}
	})

	if err := opts.Resolve(); err != nil {
		log.Fatal(err)
	}
	if opts.Verbosity > 0 {
		log.Printf("options:-\n\n%s\n", opts.AsYaml())
	}

	project, err := lif.Open(fLif)
	if err != nil {
		log.Fatal(err)
	}
	defer project.Close()

	if err := compose.Run(project, fLif, opts); err != nil {
		log.Fatal(err)
	}
}

// intList accepts comma-separated integers, e.g. -channels 0,2,3
type intList []int

func (l *intList) String() string {
	ids := make([]string, len(*l))
	for i, v := range *l {
		ids[i] = strconv.Itoa(v)
	}
	return strings.Join(ids, ",")
}

func (l *intList) Set(s string) error {
	*l = nil
	for _, part := range strings.Split(s, ",") {
		v, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return fmt.Errorf("not an integer: '%s'", part)
		}
		*l = append(*l, v)
	}
	return nil
}

// nameList accepts comma-separated names, e.g. -lut dapi,green
type nameList []string

func (l *nameList) String() string { return strings.Join(*l, ",") }

func (l *nameList) Set(s string) error {
	*l = nil
	for _, part := range strings.Split(s, ",") {
		*l = append(*l, strings.TrimSpace(part))
	}
	return nil
}
