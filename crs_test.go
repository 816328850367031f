package hexstat

import (
	"errors"
	"testing"
)

func TestLookupEPSG(t *testing.T) {
	tests := []struct {
		code     int
		wantCode int
		wantErr  bool
	}{
		{4326, 4326, false},
		{3857, 3857, false},
		{900913, 3857, false},
		{27700, 27700, false},
		{32632, 32632, false},
		{32733, 32733, false},
		{2154, 0, true},
		{32661, 0, true},
	}

	for _, tt := range tests {
		crs, err := LookupEPSG(tt.code)
		if tt.wantErr {
			if !errors.Is(err, ErrConfiguration) {
				t.Errorf("EPSG:%d: expected ErrConfiguration, got %v", tt.code, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("EPSG:%d: unexpected error %v", tt.code, err)
			continue
		}
		if crs.Code != tt.wantCode || crs.Proj4 == "" {
			t.Errorf("EPSG:%d: got %+v", tt.code, crs)
		}
	}
}

func TestLookupEPSG_UTMSouth(t *testing.T) {
	crs, err := LookupEPSG(32733)
	if err != nil {
		t.Fatalf("LookupEPSG failed: %v", err)
	}
	if crs.Proj4 != "+proj=utm +zone=33 +south +datum=WGS84 +units=m +no_defs" {
		t.Errorf("unexpected proj4 %q", crs.Proj4)
	}
}

func TestParseCRS(t *testing.T) {
	for _, in := range []string{"EPSG:3857", "epsg:3857", "3857"} {
		crs, err := ParseCRS(in)
		if err != nil {
			t.Errorf("%q: %v", in, err)
			continue
		}
		if crs.Code != 3857 {
			t.Errorf("%q: expected 3857, got %d", in, crs.Code)
		}
	}

	custom, err := ParseCRS("+proj=longlat +datum=WGS84 +no_defs")
	if err != nil {
		t.Fatalf("ParseCRS failed: %v", err)
	}
	if custom.Code != 0 {
		t.Errorf("expected custom CRS, got code %d", custom.Code)
	}

	for _, in := range []string{"", "EPSG:abc", "lambert", "+proj=nonsense +units=m"} {
		if _, err := ParseCRS(in); !errors.Is(err, ErrConfiguration) {
			t.Errorf("%q: expected ErrConfiguration, got %v", in, err)
		}
	}
}

func TestCRSEqual(t *testing.T) {
	var nilCRS *CRS
	if !nilCRS.Equal(WGS84()) {
		t.Error("nil CRS should equal WGS84")
	}
	if WGS84().Equal(WebMercator()) {
		t.Error("WGS84 should not equal WebMercator")
	}

	a := &CRS{Proj4: "+proj=utm +zone=32 +datum=WGS84"}
	b := &CRS{Proj4: "+proj=utm +zone=32 +datum=WGS84"}
	if !a.Equal(b) {
		t.Error("identical proj4 definitions should be equal")
	}
	if nilCRS.String() != "EPSG:4326" {
		t.Errorf("expected EPSG:4326, got %s", nilCRS.String())
	}
}
