package georef

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// WGS84 is the PROJ.4 definition of EPSG:4326.
	WGS84 = "+proj=longlat +datum=WGS84 +no_defs"
	// WebMercator is the PROJ.4 definition of EPSG:3857.
	WebMercator = "+proj=merc +a=6378137 +b=6378137 +lat_ts=0.0 +lon_0=0.0 +x_0=0.0 +y_0=0 +k=1.0 +units=m +nadgrids=@null +no_defs"
)

var epsgDefinitions = map[int]string{
	4326: WGS84,
	4269: "+proj=longlat +datum=NAD83 +no_defs",
	4258: "+proj=longlat +ellps=GRS80 +no_defs",
	3857: WebMercator,
}

// EPSGDefinition returns a PROJ.4 definition for the EPSG codes we know
// about: a handful of geographic systems, web mercator and the WGS84 UTM zones.
func EPSGDefinition(code int) (string, bool) {
	if def, ok := epsgDefinitions[code]; ok {
		return def, true
	}

	switch {
	case code > 32600 && code <= 32660:
		return fmt.Sprintf("+proj=utm +zone=%d +datum=WGS84 +units=m +no_defs", code-32600), true
	case code > 32700 && code <= 32760:
		return fmt.Sprintf("+proj=utm +zone=%d +south +datum=WGS84 +units=m +no_defs", code-32700), true
	}

	return "", false
}

// EPSGCode guesses the EPSG code of a definition. It understands
// "EPSG:<code>" references, the definitions of EPSGDefinition and any
// WGS84 based longlat or UTM PROJ.4 string.
func EPSGCode(def string) (int, bool) {
	def = strings.TrimSpace(def)
	if code, ok := parseEPSGRef(def); ok {
		return code, true
	}

	for code, known := range epsgDefinitions {
		if def == known {
			return code, true
		}
	}

	params := proj4Params(def)
	if params["datum"] != "WGS84" && params["ellps"] != "WGS84" {
		return 0, false
	}

	switch params["proj"] {
	case "longlat", "latlong":
		return 4326, true
	case "utm":
		zone, err := strconv.Atoi(params["zone"])
		if err != nil || zone < 1 || zone > 60 {
			return 0, false
		}
		if _, south := params["south"]; south {
			return 32700 + zone, true
		}
		return 32600 + zone, true
	}

	return 0, false
}

func proj4Params(def string) map[string]string {
	params := map[string]string{}
	for _, field := range strings.Fields(def) {
		if !strings.HasPrefix(field, "+") {
			continue
		}
		kv := strings.SplitN(field[1:], "=", 2)
		if len(kv) == 2 {
			params[kv[0]] = kv[1]
		} else {
			params[kv[0]] = ""
		}
	}
	return params
}
