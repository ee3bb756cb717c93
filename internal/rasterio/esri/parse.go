package esri

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

var headerKeywords = []string{"NCOLS", "NROWS", "XLLCENTER", "XLLCORNER", "YLLCENTER", "YLLCORNER", "CELLSIZE", "NODATA_VALUE"}

// Parse reads an ESRI ASCII grid. Data values may wrap over any number of lines.
func Parse(reader io.Reader) (*Grid, error) {
	grid := &Grid{}
	missing := append([]string(nil), headerKeywords...)
	var values []float64

	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)

	inHeader := true
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		keyword := strings.ToUpper(fields[0])

		if inHeader && contains(missing, keyword) {
			missing = remove(missing, keyword)

			// there can either be corner or center not both
			switch keyword {
			case "XLLCENTER", "YLLCENTER":
				missing = remove(missing, "XLLCORNER")
				missing = remove(missing, "YLLCORNER")
			case "XLLCORNER", "YLLCORNER":
				missing = remove(missing, "XLLCENTER")
				missing = remove(missing, "YLLCENTER")
			}

			if err := parseHeaderLine(fields, grid); err != nil {
				return nil, err
			}
			continue
		}

		if inHeader {
			// NODATA_VALUE is the only optional header
			missing = remove(missing, "NODATA_VALUE")
			if len(missing) > 0 {
				return nil, fmt.Errorf("grid is missing headers %s", strings.Join(missing, ", "))
			}

			inHeader = false
			values = make([]float64, 0, grid.Ncols*grid.Nrows)
		}

		for _, field := range fields {
			if len(values) == cap(values) {
				break
			}
			f, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("grid value %q: %w", field, err)
			}
			values = append(values, f)
		}

		if len(values) == cap(values) {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if inHeader {
		return nil, fmt.Errorf("grid has no data")
	}
	if len(values) < grid.Ncols*grid.Nrows {
		return nil, fmt.Errorf("grid holds %d values, expected %d", len(values), grid.Ncols*grid.Nrows)
	}

	grid.Data = make([][]float64, grid.Nrows)
	for row := 0; row < grid.Nrows; row++ {
		grid.Data[row] = values[row*grid.Ncols : (row+1)*grid.Ncols]
	}

	return grid, nil
}

func parseHeaderLine(fields []string, grid *Grid) error {
	if len(fields) != 2 {
		return fmt.Errorf("header line must have exactly two fields, got %q", strings.Join(fields, " "))
	}

	keyword := strings.ToUpper(fields[0])

	if keyword == "NCOLS" || keyword == "NROWS" {
		i, err := strconv.ParseUint(fields[1], 10, 31)
		if err != nil {
			return fmt.Errorf("%s: %w", keyword, err)
		}
		if i == 0 {
			return fmt.Errorf("%s must be greater than 0", keyword)
		}
		if keyword == "NCOLS" {
			grid.Ncols = int(i)
		} else {
			grid.Nrows = int(i)
		}
		return nil
	}

	f, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return fmt.Errorf("%s: %w", keyword, err)
	}

	switch keyword {
	case "XLLCENTER":
		grid.XllCenter = &f
	case "XLLCORNER":
		grid.XllCorner = &f
	case "YLLCENTER":
		grid.YllCenter = &f
	case "YLLCORNER":
		grid.YllCorner = &f
	case "CELLSIZE":
		if f <= 0.0 {
			return fmt.Errorf("CELLSIZE must be greater than 0")
		}
		grid.CellSize = f
	case "NODATA_VALUE":
		grid.NoData = &f
	default:
		return fmt.Errorf("unknown header keyword: %s", fields[0])
	}

	return nil
}

// contains checks whether an array contains a string
func contains(array []string, element string) bool {
	for _, e := range array {
		if e == element {
			return true
		}
	}
	return false
}

// remove removes a string from an array
func remove(array []string, element string) []string {
	var remaining []string
	for _, e := range array {
		if e != element {
			remaining = append(remaining, e)
		}
	}
	return remaining
}
