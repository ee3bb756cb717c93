package info

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/gruppe-adler/meh-submerge/internal/layer"
	"github.com/gruppe-adler/meh-submerge/internal/metajson"
	"github.com/gruppe-adler/meh-submerge/internal/validate"
)

// Run is the program's entrypoint
func Run(flagSet *flag.FlagSet) {
	inputPtr := flagSet.String("in", "", "Path to raster file")
	jsonPtr := flagSet.Bool("json", false, "Print metadata as JSON")

	flagSet.Parse(os.Args[2:])

	if *inputPtr == "" {
		flagSet.PrintDefaults()
		os.Exit(1)
	}

	if err := validate.RasterFile(*inputPtr); err != nil {
		log.Fatal(err)
	}

	l, err := layer.Open(*inputPtr)
	if err != nil {
		log.Fatal(err)
	}
	meta := metajson.FromLayer(l)

	if *jsonPtr {
		bytes, err := json.MarshalIndent(meta, "", "    ")
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(string(bytes))
		return
	}

	Print(os.Stdout, meta)
}

// Print writes a human readable summary of meta to w
func Print(w io.Writer, meta metajson.LayerMeta) {
	fmt.Fprintf(w, "ℹ️  %s\n", meta.ID)
	fmt.Fprintf(w, "    Driver:     %s\n", meta.Driver)
	fmt.Fprintf(w, "    Size:       %d x %d\n", meta.Width, meta.Height)
	fmt.Fprintf(w, "    Format:     %s\n", meta.Format)
	if meta.Palette != "" {
		fmt.Fprintf(w, "    Palette:    %s\n", meta.Palette)
	}

	if meta.GeoTransform != nil {
		gt := meta.GeoTransform
		fmt.Fprintf(w, "    Origin:     (%g, %g)\n", gt[0], gt[3])
		fmt.Fprintf(w, "    Pixel size: (%g, %g)\n", gt[1], gt[5])
		if gt[2] != 0 || gt[4] != 0 {
			fmt.Fprintf(w, "    Shear:      (%g, %g)\n", gt[2], gt[4])
		}
	} else {
		fmt.Fprintln(w, "    Not georeferenced")
	}
	if meta.Bounds != nil {
		b := meta.Bounds
		fmt.Fprintf(w, "    Bounds:     (%g, %g) - (%g, %g)\n", b[0], b[1], b[2], b[3])
	}

	crs := meta.CRSKind
	if meta.EPSG != 0 {
		crs = fmt.Sprintf("%s, EPSG:%d", crs, meta.EPSG)
	}
	fmt.Fprintf(w, "    CRS:        %s\n", crs)

	for _, b := range meta.Bands {
		stats := "computed"
		if b.EmbeddedStats {
			stats = "embedded"
		}
		line := []string{
			fmt.Sprintf("    Band %d:     %s %s", b.Index, b.SampleType, b.ColorRole),
			fmt.Sprintf("block %dx%d", b.BlockWidth, b.BlockHeight),
			fmt.Sprintf("min %g max %g (%s)", b.Min, b.Max, stats),
		}
		if b.NoData != nil {
			line = append(line, fmt.Sprintf("nodata %g", *b.NoData))
		}
		fmt.Fprintln(w, strings.Join(line, ", "))
	}
}
