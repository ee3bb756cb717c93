package georef

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// WorldFileExt returns the conventional world file extension for an image,
// made from the first and last letter of its extension plus "w"
// (".png" -> ".pgw", ".tif" -> ".tfw").
func WorldFileExt(imagePath string) string {
	ext := strings.ToLower(filepath.Ext(imagePath))
	if len(ext) < 3 {
		return ".wld"
	}

	return "." + ext[1:2] + ext[len(ext)-1:] + "w"
}

// FindWorldFile looks for a world file next to the given image.
func FindWorldFile(imagePath string) (string, bool) {
	base := strings.TrimSuffix(imagePath, filepath.Ext(imagePath))
	candidates := []string{
		base + WorldFileExt(imagePath),
		imagePath + "w",
		base + ".wld",
	}

	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}
	}

	return "", false
}

// ReadWorldFile reads the six lines of an ESRI world file.
// World files reference the center of the top left pixel, the returned
// transform references its outer corner.
func ReadWorldFile(path string) (Affine, error) {
	file, err := os.Open(path)
	if err != nil {
		return Affine{}, err
	}
	defer file.Close()

	var values []float64
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		f, err := strconv.ParseFloat(line, 64)
		if err != nil {
			return Affine{}, fmt.Errorf("world file %s: %w", path, err)
		}
		values = append(values, f)
	}
	if err := scanner.Err(); err != nil {
		return Affine{}, err
	}

	if len(values) != 6 {
		return Affine{}, fmt.Errorf("world file %s: expected 6 values, got %d", path, len(values))
	}

	// A D B E C F
	a, d, b, e, c, f := values[0], values[1], values[2], values[3], values[4], values[5]

	return Affine{
		a, b, c - a/2 - b/2,
		d, e, f - d/2 - e/2,
	}, nil
}

// WriteWorldFile writes the transform as an ESRI world file.
func WriteWorldFile(path string, a Affine) error {
	center := a.Apply(0.5, 0.5)

	content := fmt.Sprintf("%s\n%s\n%s\n%s\n%s\n%s\n",
		formatFloat(a[0]),
		formatFloat(a[3]),
		formatFloat(a[1]),
		formatFloat(a[4]),
		formatFloat(center[0]),
		formatFloat(center[1]),
	)

	return os.WriteFile(path, []byte(content), 0644)
}

// PrjPath returns the path of the projection sidecar of a raster.
func PrjPath(imagePath string) string {
	return strings.TrimSuffix(imagePath, filepath.Ext(imagePath)) + ".prj"
}

// ReadPrj reads the projection sidecar. ok is false if there is none.
func ReadPrj(imagePath string) (def string, ok bool, err error) {
	bytes, err := os.ReadFile(PrjPath(imagePath))
	if os.IsNotExist(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	return strings.TrimSpace(string(bytes)), true, nil
}

// WritePrj writes the projection sidecar. Empty definitions are skipped.
func WritePrj(imagePath string, def string) error {
	if strings.TrimSpace(def) == "" {
		return nil
	}

	return os.WriteFile(PrjPath(imagePath), []byte(def+"\n"), 0644)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
