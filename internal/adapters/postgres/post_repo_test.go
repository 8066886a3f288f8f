package postgres

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/vibepin/vibepin/internal/pkg/metrics"
)

// fakeRow feeds scanPost a canned geography column value.
type fakeRow struct {
	hexEWKB string
}

func (r fakeRow) Scan(dest ...any) error {
	if s, ok := dest[4].(*string); ok {
		*s = r.hexEWKB
	}
	return nil
}

func TestScanPost_DecodesStoredGeography(t *testing.T) {
	p, err := scanPost(fakeRow{hexEWKB: "0101000020E6100000A137DCB44721C0BF7A0E25E0F0C04940"}, false, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Location.Lat < 51 || p.Location.Lat > 52 {
		t.Errorf("unexpected latitude: %v", p.Location.Lat)
	}
	if !strings.HasPrefix(p.LocationWKT, "POINT(") {
		t.Errorf("WKT not rebuilt: %q", p.LocationWKT)
	}
}

func TestScanPost_CorruptGeographyCounted(t *testing.T) {
	before := testutil.ToFloat64(metrics.LocationDecodeErrors)

	if _, err := scanPost(fakeRow{hexEWKB: "zz-not-hex"}, false, false); err == nil {
		t.Fatal("expected decode error for corrupt column value")
	}

	after := testutil.ToFloat64(metrics.LocationDecodeErrors)
	if after != before+1 {
		t.Errorf("decode error counter not incremented: before %v, after %v", before, after)
	}
}
