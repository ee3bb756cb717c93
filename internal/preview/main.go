package preview

import (
	"errors"
	"flag"
	"fmt"
	"image"
	"image/png"
	"log"
	"os"
	"path"
	"time"

	"github.com/gruppe-adler/meh-submerge/internal/layer"
	"github.com/gruppe-adler/meh-submerge/internal/utils"
	"github.com/gruppe-adler/meh-submerge/internal/validate"
	"github.com/nfnt/resize"
)

var sizes = []uint{128, 256, 512, 1024}

// Run is the program's entrypoint
func Run(flagSet *flag.FlagSet) {

	var timer time.Time
	start := time.Now()

	outputPtr := flagSet.String("out", "", "Path to output directory")
	inputPtr := flagSet.String("in", "", "Path to raster file")

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

	timer = time.Now()
	fmt.Println("▶️  Loading raster")

	l, err := layer.Open(*inputPtr)
	if err != nil {
		log.Fatal(err)
	}
	if l.Display == nil {
		log.Fatal(fmt.Errorf("%s has no displayable pixel format (%s)", *inputPtr, l.Format))
	}

	fmt.Println("✔️  Loaded raster in", time.Now().Sub(timer).String())

	timer = time.Now()
	fmt.Println("▶️  Writing original preview image to output")
	if err := saveImage(path.Join(*outputPtr, "preview.png"), l.Display); err != nil {
		log.Fatal(err)
	}

	fmt.Println("✔️  Wrote original preview image in", time.Now().Sub(timer).String())

	for _, size := range sizes {
		timer = time.Now()
		fmt.Printf("▶️  Building x%d image\n", size)

		img := Resize(l.Display, size)
		if err := saveImage(path.Join(*outputPtr, fmt.Sprintf("preview_%d.png", size)), img); err != nil {
			log.Fatal(err)
		}

		fmt.Printf("✔️  Built x%d in %s\n", size, time.Now().Sub(timer).String())
	}

	fmt.Printf("\n    🎉  Finished in %s\n", time.Now().Sub(start).String())
}

// Resize scales img to the given height, keeping the aspect ratio
func Resize(img image.Image, height uint) image.Image {
	factor := float64(height) / float64(img.Bounds().Dy())
	w := uint(float64(img.Bounds().Dx()) * factor)
	if w == 0 {
		w = 1
	}

	return resize.Resize(w, height, img, resize.MitchellNetravali)
}

func saveImage(path string, img image.Image) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := png.Encode(out, img); err != nil {
		out.Close()
		return err
	}

	return out.Close()
}
