package core

// pathid.go builds canonical path identifiers used to join imported rows
// with existing entities.
//
// Rules for each path component:
//   - '.' is the path separator and is removed from raw names
//   - whitespace runs become a single '-'
//   - anything outside A-Z a-z 0-9 '-' is deleted
//   - '-' runs collapse and leading/trailing '-' are trimmed
//
// Case is preserved. Cleaned components are joined with '.'. Stable
// identifiers (URNs) are never derived here; they are assigned remotely
// and treated as authoritative when present.

import (
	"regexp"
	"strings"
	"unicode"
)

// parentPathDelimiters matches the separators users paste from UI breadcrumbs.
var parentPathDelimiters = regexp.MustCompile(`\s*(?:>|/|→|\|)\s*`)

// urnPrefix recognizes stable identifiers such as "urn:li:glossaryTerm:abc".
var urnPrefix = regexp.MustCompile(`^urn:li:[a-zA-Z0-9]+:`)

// CleanComponent canonicalizes one raw name into a path component.
// The result is empty or matches ^[A-Za-z0-9]+(-[A-Za-z0-9]+)*$.
func CleanComponent(raw string) string {
	if raw == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(raw))

	inSpace := false
	for _, r := range raw {
		if r == '.' {
			continue
		}
		if unicode.IsSpace(r) || r == '\uFEFF' {
			if !inSpace {
				b.WriteByte('-')
				inSpace = true
			}
			continue
		}
		inSpace = false
		if isComponentRune(r) {
			b.WriteRune(r)
		}
	}

	return normalizeHyphens(b.String())
}

func isComponentRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-'
}

// normalizeHyphens collapses '-' runs and trims leading/trailing '-'.
func normalizeHyphens(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	prevHyphen := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '-' {
			if prevHyphen {
				continue
			}
			prevHyphen = true
		} else {
			prevHyphen = false
		}
		b.WriteByte(c)
	}

	return strings.Trim(b.String(), "-")
}

// SplitParentPath splits a breadcrumb string such as "Finance > Customer"
// into trimmed, non-empty segments. Accepted delimiters: > / → |
func SplitParentPath(input string) []string {
	s := strings.TrimSpace(input)
	if s == "" {
		return nil
	}

	parts := parentPathDelimiters.Split(s, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// SplitPathSegments handles input that is already split: empty segments
// are dropped and nothing is split further.
func SplitPathSegments(segments []string) []string {
	out := make([]string, 0, len(segments))
	for _, s := range segments {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// BuildPathID cleans each component, drops components that clean to empty,
// and joins the survivors with '.'. This is the only way a canonical
// identifier is produced, for imported rows and existing entities alike.
func BuildPathID(components []string) string {
	cleaned := make([]string, 0, len(components))
	for _, c := range components {
		if cc := CleanComponent(c); cc != "" {
			cleaned = append(cleaned, cc)
		}
	}
	return strings.Join(cleaned, ".")
}

// BuildCandidateID builds the canonical identifier for a parent path
// breadcrumb plus an entity name.
//
//	BuildCandidateID("Finance > Customer", "Physical Address")
//	// "Finance.Customer.Physical-Address"
func BuildCandidateID(parentPath, name string) string {
	parts := SplitParentPath(parentPath)
	return BuildPathID(append(parts, name))
}

// IDEqualsCandidate reports whether a path-based identifier equals the one
// built from parentPath and name. Only meaningful for path ids; compare URNs
// directly instead.
func IDEqualsCandidate(providedID, parentPath, name string) bool {
	if providedID == "" {
		return false
	}
	return providedID == BuildCandidateID(parentPath, name)
}

// LooksLikeURN reports whether s carries the stable identifier prefix.
// Such values must be used verbatim, never recomputed or overwritten.
func LooksLikeURN(s string) bool {
	if s == "" {
		return false
	}
	return urnPrefix.MatchString(s)
}
