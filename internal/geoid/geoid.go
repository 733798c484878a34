// Package geoid models Census block-group geographic identifiers.
//
// A block group is identified by four fixed-width, zero-padded digit
// strings: state (2), county (3), tract (6), and block group (1). Their
// concatenation is the 12-digit GEOID. The Census and TIGERweb APIs are
// inconsistent about which of these fields they return and how they are
// padded, so this package centralizes the cleanup rules:
//
//   - values are reduced to their digit characters only,
//   - state/county/tract are left-padded with zeros to their fixed width,
//   - block group is truncated to its first digit,
//   - missing components can be recovered by slicing a 12+ digit GEOID.
//
// Records whose components cannot be brought to the exact fixed widths
// are rejected by the caller (Valid reports this).
package geoid

import "strings"

// Fixed component widths, in digits.
const (
	StateWidth      = 2
	CountyWidth     = 3
	TractWidth      = 6
	BlockGroupWidth = 1

	// Width is the length of a full GEOID.
	Width = StateWidth + CountyWidth + TractWidth + BlockGroupWidth
)

// Key is the (state, county, tract, block group) tuple identifying one
// block group. All fields are digit strings; a valid Key has every field
// at its exact fixed width.
type Key struct {
	State      string
	County     string
	Tract      string
	BlockGroup string
}

// GEOID returns the concatenated 12-digit identifier. It does not
// re-validate; call Valid first when the components come from an
// untrusted source.
func (k Key) GEOID() string {
	return k.State + k.County + k.Tract + k.BlockGroup
}

// Valid reports whether every component is digit-only and exactly its
// fixed width.
func (k Key) Valid() bool {
	return isDigits(k.State) && len(k.State) == StateWidth &&
		isDigits(k.County) && len(k.County) == CountyWidth &&
		isDigits(k.Tract) && len(k.Tract) == TractWidth &&
		isDigits(k.BlockGroup) && len(k.BlockGroup) == BlockGroupWidth
}

// Split derives the component tuple from a GEOID by fixed-offset
// slicing: state=[0:2], county=[2:5], tract=[5:11], block group=[11:12].
// The input must carry at least 12 digits; shorter or non-digit input
// returns ok=false and must be treated as a dropped record, never
// sliced. Extra trailing digits (e.g. a block-level GEOID) are ignored.
func Split(geoid string) (Key, bool) {
	if len(geoid) < Width || !isDigits(geoid) {
		return Key{}, false
	}
	return Key{
		State:      geoid[0:StateWidth],
		County:     geoid[StateWidth : StateWidth+CountyWidth],
		Tract:      geoid[StateWidth+CountyWidth : Width-BlockGroupWidth],
		BlockGroup: geoid[Width-BlockGroupWidth : Width],
	}, true
}

// Digits strips s down to its digit characters, preserving their order.
func Digits(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// Pad left-pads a digit string with zeros to width w. Strings already at
// or beyond w are returned unchanged; padding never truncates.
func Pad(s string, w int) string {
	if len(s) >= w {
		return s
	}
	return strings.Repeat("0", w-len(s)) + s
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
