// Package geocodec normalizes point geometries between the wire formats
// the geography column round-trips through: GeoJSON objects (views that
// pre-convert), WKT text (hand-built writes), and hex-encoded EWKB (raw
// column reads). Decoding accepts all three because client and server
// evolve independently and cannot coordinate a format upgrade atomically.
package geocodec

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/vibepin/vibepin/internal/core/domain"
)

// Decode failure modes. Callers branch with errors.Is.
var (
	ErrMalformedWKT     = errors.New("geocodec: malformed WKT point")
	ErrMalformedHex     = errors.New("geocodec: malformed hex EWKB")
	ErrTruncated        = errors.New("geocodec: truncated EWKB buffer")
	ErrOutOfRange       = errors.New("geocodec: coordinates out of range")
	ErrUnsupportedValue = errors.New("geocodec: unsupported location value")
)

// EWKB type words carry an SRID-present flag in this bit. PostGIS always
// sets it; other producers may not, so the range check below stays the
// safety net rather than this mask.
const ewkbSRIDFlag = 0x20000000

// GeoJSONPoint is the structured form a geometry view returns.
type GeoJSONPoint struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

// wktPointRe extracts two signed decimals separated by whitespace and/or a
// comma, with optional space between the keyword and the parentheses.
var wktPointRe = regexp.MustCompile(`(?i)^point\s*\(\s*([+-]?(?:\d+\.?\d*|\.\d+))[\s,]+([+-]?(?:\d+\.?\d*|\.\d+))\s*\)$`)

// Decode normalizes a location value of unknown wire format into a
// coordinate pair. Structured GeoJSON values are checked first, then the
// WKT prefix, then hex EWKB. Every path ends in a range check.
func Decode(value any) (domain.GeoPoint, error) {
	switch v := value.(type) {
	case GeoJSONPoint:
		return fromCoordinates(v.Coordinates)
	case *GeoJSONPoint:
		if v == nil {
			return domain.GeoPoint{}, ErrUnsupportedValue
		}
		return fromCoordinates(v.Coordinates)
	case map[string]any:
		coords, ok := coordinatesField(v)
		if !ok {
			return domain.GeoPoint{}, fmt.Errorf("%w: object without coordinates", ErrUnsupportedValue)
		}
		return fromCoordinates(coords)
	case []float64:
		return fromCoordinates(v)
	case string:
		return DecodeString(v)
	default:
		return domain.GeoPoint{}, fmt.Errorf("%w: %T", ErrUnsupportedValue, value)
	}
}

// DecodeString parses a textual location: WKT when the trimmed value has a
// case-insensitive POINT prefix, hex EWKB otherwise.
func DecodeString(s string) (domain.GeoPoint, error) {
	trimmed := strings.TrimSpace(s)
	if len(trimmed) >= 5 && strings.EqualFold(trimmed[:5], "POINT") {
		return decodeWKT(trimmed)
	}
	return decodeEWKBHex(trimmed)
}

// EncodeWKT produces the geography-column form, longitude first, at a
// fixed 6-decimal precision (~0.11 m) so float representation noise never
// reaches storage.
func EncodeWKT(p domain.GeoPoint) string {
	return fmt.Sprintf("POINT(%.6f %.6f)", p.Lng, p.Lat)
}

func coordinatesField(obj map[string]any) ([]float64, bool) {
	raw, ok := obj["coordinates"]
	if !ok {
		return nil, false
	}
	switch c := raw.(type) {
	case []float64:
		return c, true
	case []any:
		coords := make([]float64, 0, len(c))
		for _, item := range c {
			f, ok := item.(float64)
			if !ok {
				return nil, false
			}
			coords = append(coords, f)
		}
		return coords, true
	}
	return nil, false
}

func fromCoordinates(coords []float64) (domain.GeoPoint, error) {
	if len(coords) != 2 {
		return domain.GeoPoint{}, fmt.Errorf("%w: want 2 coordinates, got %d", ErrUnsupportedValue, len(coords))
	}
	return validated(domain.GeoPoint{Lng: coords[0], Lat: coords[1]})
}

func decodeWKT(s string) (domain.GeoPoint, error) {
	m := wktPointRe.FindStringSubmatch(s)
	if m == nil {
		return domain.GeoPoint{}, fmt.Errorf("%w: %q", ErrMalformedWKT, s)
	}
	lng, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return domain.GeoPoint{}, fmt.Errorf("%w: %q", ErrMalformedWKT, s)
	}
	lat, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return domain.GeoPoint{}, fmt.Errorf("%w: %q", ErrMalformedWKT, s)
	}
	return validated(domain.GeoPoint{Lng: lng, Lat: lat})
}

func decodeEWKBHex(s string) (domain.GeoPoint, error) {
	h := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(h)%2 != 0 {
		h = "0" + h
	}
	buf, err := hex.DecodeString(h)
	if err != nil {
		return domain.GeoPoint{}, fmt.Errorf("%w: %v", ErrMalformedHex, err)
	}

	if len(buf) < 1 {
		return domain.GeoPoint{}, fmt.Errorf("%w: empty buffer", ErrTruncated)
	}
	var order binary.ByteOrder = binary.BigEndian
	if buf[0] == 1 {
		order = binary.LittleEndian
	}
	off := 1

	if len(buf) < off+4 {
		return domain.GeoPoint{}, fmt.Errorf("%w: missing type word", ErrTruncated)
	}
	typ := order.Uint32(buf[off:])
	off += 4

	if typ&ewkbSRIDFlag != 0 {
		if len(buf) < off+4 {
			return domain.GeoPoint{}, fmt.Errorf("%w: missing SRID", ErrTruncated)
		}
		off += 4 // SRID is always geographic here; discard it
	}

	if len(buf) < off+16 {
		return domain.GeoPoint{}, fmt.Errorf("%w: missing coordinates", ErrTruncated)
	}
	lng := math.Float64frombits(order.Uint64(buf[off:]))
	lat := math.Float64frombits(order.Uint64(buf[off+8:]))
	return validated(domain.GeoPoint{Lng: lng, Lat: lat})
}

func validated(p domain.GeoPoint) (domain.GeoPoint, error) {
	if math.IsNaN(p.Lng) || math.IsInf(p.Lng, 0) || math.IsNaN(p.Lat) || math.IsInf(p.Lat, 0) {
		return domain.GeoPoint{}, fmt.Errorf("%w: non-finite coordinates", ErrOutOfRange)
	}
	if p.Lng < -180 || p.Lng > 180 || p.Lat < -90 || p.Lat > 90 {
		return domain.GeoPoint{}, fmt.Errorf("%w: lng=%v lat=%v", ErrOutOfRange, p.Lng, p.Lat)
	}
	return p, nil
}
