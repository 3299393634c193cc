package core

// subfields.go encodes the composite values that are flattened into single
// CSV cells:
//
//   - Ownership:  owner:type:ownerKind[,...]
//   - Pairs:      key=value[;...]
//   - References: key=value[ || ...] limited to termSource, sourceRef, sourceUrl
//
// Decoders never fail; malformed segments fall back to the most permissive
// reading. Whitespace around delimiters is not preserved across a round trip.

import (
	"encoding/json"
	"sort"
	"strings"
)

// Ownership defaults applied to legacy and bare owner entries.
const (
	DefaultOwnershipType = "DATAOWNER"
	DefaultOwnerKind     = "CORP_USER"
	OwnerKindGroup       = "CORP_GROUP"
)

// Owner is one decoded ownership entry.
type Owner struct {
	Owner     string `json:"owner" yaml:"owner"`
	Type      string `json:"type" yaml:"type"`
	OwnerKind string `json:"ownerKind" yaml:"ownerKind"`
}

// ParseOwnership decodes an ownership cell.
//
// Entries with three or more ':'-separated parts read the last two as type
// and owner kind, so URN owners such as "urn:li:corpuser:alice" survive.
// Two parts are the legacy owner:type form; a bare owner gets both defaults.
func ParseOwnership(cell string) []Owner {
	if strings.TrimSpace(cell) == "" {
		return nil
	}

	var owners []Owner
	for _, item := range strings.Split(cell, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}

		parts := strings.Split(item, ":")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}

		switch {
		case len(parts) >= 3:
			n := len(parts)
			owners = append(owners, Owner{
				Owner:     strings.Join(parts[:n-2], ":"),
				Type:      parts[n-2],
				OwnerKind: parts[n-1],
			})
		case len(parts) == 2:
			owners = append(owners, Owner{Owner: parts[0], Type: parts[1], OwnerKind: DefaultOwnerKind})
		default:
			owners = append(owners, Owner{Owner: item, Type: DefaultOwnershipType, OwnerKind: DefaultOwnerKind})
		}
	}
	return owners
}

// FormatOwnership encodes owners as owner:type:ownerKind joined by ','
// with no padding, so exports compare cleanly against imports.
func FormatOwnership(owners []Owner) string {
	if len(owners) == 0 {
		return ""
	}
	parts := make([]string, 0, len(owners))
	for _, o := range owners {
		parts = append(parts, o.Owner+":"+o.Type+":"+o.OwnerKind)
	}
	return strings.Join(parts, ",")
}

// Pair is one decoded key/value entry.
type Pair struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

// ParsePairs decodes a key=value;key=value cell. A segment without '='
// becomes a key with an empty value.
func ParsePairs(cell string) []Pair {
	if cell == "" {
		return nil
	}

	var pairs []Pair
	for _, seg := range strings.Split(cell, ";") {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		idx := strings.Index(seg, "=")
		if idx == -1 {
			pairs = append(pairs, Pair{Key: seg})
			continue
		}
		pairs = append(pairs, Pair{
			Key:   strings.TrimSpace(seg[:idx]),
			Value: strings.TrimSpace(seg[idx+1:]),
		})
	}
	return pairs
}

// FormatPairs encodes pairs as key=value joined by "; ". Pairs with an
// empty key are dropped.
func FormatPairs(pairs []Pair) string {
	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		if p.Key == "" {
			continue
		}
		parts = append(parts, p.Key+"="+p.Value)
	}
	return strings.Join(parts, "; ")
}

// PairsToMap collapses pairs into a map; later keys win.
func PairsToMap(pairs []Pair) map[string]string {
	m := make(map[string]string, len(pairs))
	for _, p := range pairs {
		if p.Key != "" {
			m[p.Key] = p.Value
		}
	}
	return m
}

// MapToPairs returns the map as pairs sorted by key.
func MapToPairs(m map[string]string) []Pair {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]Pair, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, Pair{Key: k, Value: m[k]})
	}
	return pairs
}

// ParseCustomProperties reads a custom_properties cell. Older exports wrote
// a JSON object; anything else is read as key=value pairs.
func ParseCustomProperties(cell string) map[string]string {
	cell = strings.TrimSpace(cell)
	if cell == "" || cell == "{}" {
		return map[string]string{}
	}
	if strings.HasPrefix(cell, "{") {
		var m map[string]string
		if err := json.Unmarshal([]byte(cell), &m); err == nil {
			return m
		}
	}
	return PairsToMap(ParsePairs(cell))
}

// FormatCustomProperties encodes a property map in the pairs grammar with
// keys sorted.
func FormatCustomProperties(m map[string]string) string {
	return FormatPairs(MapToPairs(m))
}

// Recognized reference bundle keys.
const (
	RefTermSource = "termSource"
	RefSourceRef  = "sourceRef"
	RefSourceURL  = "sourceUrl"
)

var referenceKeys = []string{RefTermSource, RefSourceRef, RefSourceURL}

// References holds the recognized keys present in a reference bundle.
// Keys absent from the cell are absent from the map.
type References map[string]string

// ParseReferences decodes a "key=value || key=value" cell. Unrecognized
// keys and segments without '=' are ignored.
func ParseReferences(cell string) References {
	out := References{}
	if cell == "" {
		return out
	}
	for _, chunk := range strings.Split(cell, "||") {
		chunk = strings.TrimSpace(chunk)
		idx := strings.Index(chunk, "=")
		if idx == -1 {
			continue
		}
		k := strings.TrimSpace(chunk[:idx])
		v := strings.TrimSpace(chunk[idx+1:])
		if isReferenceKey(k) {
			out[k] = v
		}
	}
	return out
}

// FormatReferences encodes recognized, non-empty keys in fixed order
// joined by " || ".
func FormatReferences(refs References) string {
	parts := make([]string, 0, len(referenceKeys))
	for _, k := range referenceKeys {
		if v := refs[k]; v != "" {
			parts = append(parts, k+"="+v)
		}
	}
	return strings.Join(parts, " || ")
}

func isReferenceKey(k string) bool {
	for _, rk := range referenceKeys {
		if rk == k {
			return true
		}
	}
	return false
}

// SplitCommaList splits a comma list cell into trimmed, non-empty items.
func SplitCommaList(cell string) []string {
	if cell == "" {
		return nil
	}
	var out []string
	for _, s := range strings.Split(cell, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// JoinCommaList joins non-empty items with ", ".
func JoinCommaList(items []string) string {
	kept := make([]string, 0, len(items))
	for _, s := range items {
		if s != "" {
			kept = append(kept, s)
		}
	}
	return strings.Join(kept, ", ")
}
