package terrainrgb

import (
	"errors"
	"flag"
	"fmt"
	"image"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/gruppe-adler/meh-submerge/internal/layer"
	"github.com/gruppe-adler/meh-submerge/internal/mbtiles"
	"github.com/gruppe-adler/meh-submerge/internal/tilejson"
	"github.com/gruppe-adler/meh-submerge/internal/utils"
	"github.com/gruppe-adler/meh-submerge/internal/validate"
	"github.com/paulmach/orb"
)

// Run is the program's entrypoint
func Run(flagSet *flag.FlagSet) {

	var timer time.Time
	start := time.Now()

	outputPtr := flagSet.String("out", "", "Path to output directory")
	inputPtr := flagSet.String("in", "", "Path to elevation model")
	offsetPtr := flagSet.Float64("offset", 0, "Elevation offset in meters added to every sample")
	mbtilesPtr := flagSet.Bool("mbtiles", false, "Write terrain-rgb.mbtiles instead of a tile directory")

	flagSet.Parse(os.Args[2:])

	// make sure both flags are present
	if *outputPtr == "" || *inputPtr == "" {
		flagSet.PrintDefaults()
		os.Exit(1)
	}

	// make sure given output directory is a valid directory
	if !utils.IsDirectory(*outputPtr) {
		log.Fatal(errors.New("Output directory doesn't exists"))
	}

	if err := validate.RasterFile(*inputPtr); err != nil {
		log.Fatal(err)
	}

	fmt.Println("✔️  Validated input file")

	// load DEM
	timer = time.Now()
	fmt.Println("▶️  Loading DEM")
	dem, err := layer.Open(*inputPtr)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("✔️  Loaded DEM in", time.Now().Sub(timer).String())

	// calculating image
	timer = time.Now()
	fmt.Println("▶️  Calculating image from DEM")
	img := calculateImage(dem, *offsetPtr)
	fmt.Println("✔️  Calculated image in", time.Now().Sub(timer).String())

	// calculate max LOD
	maxLod := utils.CalcMaxLodFromImage(img)
	fmt.Println("ℹ️  Calculated max lod:", maxLod)

	var writer utils.TileWriter = utils.DirectoryWriter{Dir: *outputPtr, Ext: "png"}
	var mbt *mbtiles.MBTiles
	if *mbtilesPtr {
		mbt, err = mbtiles.Open(filepath.Join(*outputPtr, "terrain-rgb.mbtiles"), "Terrain-RGB", "png")
		if err != nil {
			log.Fatal(err)
		}
		writer = mbt
	}

	// build tiles
	timer = time.Now()
	fmt.Println("▶️  Building tiles")
	for lod := uint8(0); lod <= maxLod; lod++ {
		timer2 := time.Now()
		if err := utils.BuildTileSet(lod, img, writer); err != nil {
			log.Fatal(err)
		}
		fmt.Println("    ✔️  Finished tiles for LOD", lod, "in", time.Now().Sub(timer2).String())
	}
	fmt.Println("✔️  Built Terrain-RGB tiles in", time.Now().Sub(timer).String())

	if mbt != nil {
		err := mbt.InsertMeta([][2]string{
			{"minzoom", "0"},
			{"maxzoom", fmt.Sprint(maxLod)},
			{"encoding", "mapbox"},
		})
		if err == nil {
			err = mbt.Close()
		}
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("\n    🎉  Finished in %s\n", time.Now().Sub(start).String())
		return
	}

	// write tile.json
	timer = time.Now()
	fmt.Println("▶️  Creating tile.json")
	name := filepath.Base(*inputPtr)
	var bounds *orb.Bound
	if bound, ok := dem.GeographicBound(); ok {
		bounds = &bound
	}
	tj := tilejson.New(maxLod, fmt.Sprintf("%s Terrain-RGB Tiles", name), fmt.Sprintf("Mapbox Terrain-RGB tiles of %s", name), bounds)
	tj.Encoding = "mapbox"
	if err := tilejson.Write(*outputPtr, tj); err != nil {
		log.Fatal(err)
	}
	fmt.Println("✔️  Created tile.json in", time.Now().Sub(timer).String())

	fmt.Printf("\n    🎉  Finished in %s\n", time.Now().Sub(start).String())
}

// calculateImage encodes every DEM sample. NODATA samples are encoded as
// the offset alone.
func calculateImage(dem *layer.Layer, elevationOffset float64) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, dem.Width, dem.Height))

	var nodata float64
	hasNoData := false
	if len(dem.Bands) > 0 {
		nodata, hasNoData = dem.Bands[0].NoData, dem.Bands[0].HasNoData
	}

	for row := 0; row < dem.Height; row++ {
		for col := 0; col < dem.Width; col++ {
			height, _ := dem.Elevation(col, row)
			if hasNoData && height == nodata {
				height = 0
			}

			img.SetRGBA(col, row, HeightToRgb(height+elevationOffset))
		}
	}

	return img
}
