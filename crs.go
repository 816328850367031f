package hexstat

import (
	"fmt"
	"strconv"
	"strings"
)

// CRS represents a coordinate reference system.
type CRS struct {
	Code  int    // EPSG code (e.g., 4326 for WGS84); 0 for a custom definition
	Name  string // CRS name
	Proj4 string // proj4 definition used for transforms
}

// WGS84 returns the standard WGS84 CRS (EPSG:4326).
func WGS84() *CRS {
	return &CRS{
		Code:  4326,
		Name:  "WGS 84",
		Proj4: "+proj=longlat +datum=WGS84 +no_defs",
	}
}

// WebMercator returns the spherical mercator CRS (EPSG:3857).
func WebMercator() *CRS {
	return &CRS{
		Code:  3857,
		Name:  "WGS 84 / Pseudo-Mercator",
		Proj4: "+proj=merc +a=6378137 +b=6378137 +lat_ts=0.0 +lon_0=0.0 +x_0=0.0 +y_0=0 +k=1.0 +units=m +nadgrids=@null +no_defs",
	}
}

var epsgRegistry = map[int]CRS{
	4326: *WGS84(),
	4258: {Code: 4258, Name: "ETRS89", Proj4: "+proj=longlat +ellps=GRS80 +towgs84=0,0,0,0,0,0,0 +no_defs"},
	3857: *WebMercator(),
	27700: {
		Code:  27700,
		Name:  "OSGB36 / British National Grid",
		Proj4: "+proj=tmerc +lat_0=49 +lon_0=-2 +k=0.9996012717 +x_0=400000 +y_0=-100000 +ellps=airy +towgs84=446.448,-125.157,542.06,0.15,0.247,0.842,-20.489 +units=m +no_defs",
	},
}

// LookupEPSG returns the CRS registered for an EPSG code. UTM zones on
// WGS84 (326xx north, 327xx south) are derived on demand.
func LookupEPSG(code int) (*CRS, error) {
	if code == 900913 {
		code = 3857
	}
	if c, ok := epsgRegistry[code]; ok {
		return &c, nil
	}

	switch {
	case code >= 32601 && code <= 32660:
		zone := code - 32600
		return &CRS{
			Code:  code,
			Name:  fmt.Sprintf("WGS 84 / UTM zone %dN", zone),
			Proj4: fmt.Sprintf("+proj=utm +zone=%d +datum=WGS84 +units=m +no_defs", zone),
		}, nil
	case code >= 32701 && code <= 32760:
		zone := code - 32700
		return &CRS{
			Code:  code,
			Name:  fmt.Sprintf("WGS 84 / UTM zone %dS", zone),
			Proj4: fmt.Sprintf("+proj=utm +zone=%d +south +datum=WGS84 +units=m +no_defs", zone),
		}, nil
	}

	return nil, fmt.Errorf("%w: EPSG:%d is not in the built-in registry, supply a proj4 definition", ErrConfiguration, code)
}

// ParseCRS accepts "EPSG:27700", a bare code such as "27700", or a proj4
// string starting with "+proj=". Proj4 definitions are checked against the
// supported projections.
func ParseCRS(s string) (*CRS, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return nil, fmt.Errorf("%w: empty CRS", ErrConfiguration)
	case strings.HasPrefix(s, "+proj="):
		c := &CRS{Name: "custom", Proj4: s}
		if err := c.Validate(); err != nil {
			return nil, err
		}
		return c, nil
	}

	code := strings.TrimPrefix(strings.ToUpper(s), "EPSG:")
	n, err := strconv.Atoi(code)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot parse CRS %q", ErrConfiguration, s)
	}
	return LookupEPSG(n)
}

// Equal reports whether c and other describe the same coordinate space.
// A nil CRS is treated as WGS84.
func (c *CRS) Equal(other *CRS) bool {
	a, b := c.orDefault(), other.orDefault()
	if a.Code != 0 || b.Code != 0 {
		return a.Code == b.Code
	}
	return a.Proj4 == b.Proj4
}

func (c *CRS) String() string {
	c = c.orDefault()
	if c.Code != 0 {
		return "EPSG:" + strconv.Itoa(c.Code)
	}
	return c.Proj4
}

func (c *CRS) orDefault() *CRS {
	if c == nil {
		return WGS84()
	}
	return c
}
