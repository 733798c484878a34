package tiger

import (
	"strconv"

	"acsgeo/internal/geoid"
	"acsgeo/internal/geom"
	"acsgeo/internal/metrics"
)

// Record is one block-group boundary: the 12-digit GEOID, its key
// components, and the boundary as WKT in EPSG:4326.
type Record struct {
	GEOID string
	Key   geoid.Key
	WKT   string
}

// The same conceptual field arrives under different property names
// across MapServer layer versions. Each field is resolved through an
// ordered alias chain; the first present, non-empty property wins.
var (
	geoidAliases      = []string{"GEOID", "GEOID10", "BG_GEOID"}
	stateAliases      = []string{"STATE", "STATEFP", "STATEFP10"}
	countyAliases     = []string{"COUNTY", "COUNTYFP", "COUNTYFP10"}
	tractAliases      = []string{"TRACT", "TRACTCE", "TRACTCE10"}
	blockGroupAliases = []string{"BLKGRP", "BLOCK_GROUP", "BLKGRPCE", "BLKGRPCE10"}
)

// normalize turns one GeoJSON feature into a Record. It keeps only
// polygonal geometries and repairs the identifier fields:
//
//  1. every property value is reduced to its digits,
//  2. state/county/tract are zero-padded to width, block group is
//     truncated to its first digit,
//  3. components still missing are recovered by slicing a 12+ digit
//     GEOID when one was supplied,
//  4. a feature whose components cannot all be brought to their exact
//     fixed widths is dropped,
//  5. a missing GEOID is synthesized from the validated components.
//
// ok=false means the feature is excluded from the output entirely.
func normalize(f feature) (Record, bool) {
	wkt, ok := geom.WKT(f.Geometry)
	if !ok {
		metrics.RecordFeatures("dropped_geometry", 1)
		return Record{}, false
	}

	id := geoid.Digits(property(f.Properties, geoidAliases))

	// Zero-padding an empty string would yield all zeros, masking a
	// missing component and blocking the GEOID-slicing repair, so blank
	// values stay blank until step 3.
	key := geoid.Key{
		State:      padNonEmpty(geoid.Digits(property(f.Properties, stateAliases)), geoid.StateWidth),
		County:     padNonEmpty(geoid.Digits(property(f.Properties, countyAliases)), geoid.CountyWidth),
		Tract:      padNonEmpty(geoid.Digits(property(f.Properties, tractAliases)), geoid.TractWidth),
		BlockGroup: firstDigit(geoid.Digits(property(f.Properties, blockGroupAliases))),
	}

	if key.State == "" || key.County == "" || key.Tract == "" || key.BlockGroup == "" {
		derived, ok := geoid.Split(id)
		if ok {
			if key.State == "" {
				key.State = derived.State
			}
			if key.County == "" {
				key.County = derived.County
			}
			if key.Tract == "" {
				key.Tract = derived.Tract
			}
			if key.BlockGroup == "" {
				key.BlockGroup = derived.BlockGroup
			}
		}
	}

	if !key.Valid() {
		metrics.RecordFeatures("dropped_identifier", 1)
		return Record{}, false
	}

	switch {
	case id == "":
		id = key.GEOID()
	case len(id) < geoid.Width:
		// A supplied but undersized GEOID is unusable and suspicious
		// enough to reject the whole feature.
		metrics.RecordFeatures("dropped_identifier", 1)
		return Record{}, false
	default:
		id = id[:geoid.Width]
	}

	return Record{GEOID: id, Key: key, WKT: wkt}, true
}

// property resolves an alias chain against the feature properties.
// JSON numbers are rendered without an exponent so a numeric GEOID
// keeps all of its digits.
func property(props map[string]any, aliases []string) string {
	for _, name := range aliases {
		v, ok := props[name]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case string:
			if t != "" {
				return t
			}
		case float64:
			return strconv.FormatFloat(t, 'f', -1, 64)
		}
	}
	return ""
}

func padNonEmpty(s string, w int) string {
	if s == "" {
		return ""
	}
	return geoid.Pad(s, w)
}

func firstDigit(s string) string {
	if s == "" {
		return ""
	}
	return s[:1]
}
