package core

// reconcile.go classifies imported rows against a snapshot of existing
// entities.
//
// Matching uses only the canonical path id built from the row's parent path
// and name. A URN on the row is compared verbatim against the match and
// never rebuilt from a path; when the two disagree the classification
// carries a warning and the action is left as matching decided.
//
// Comparison policy:
//   - description: always compared, so a blank cell against an existing
//     description is a change
//   - term metadata: an empty imported cell never counts as a change,
//     whatever the existing value
//   - relationships: compared only when the imported cell is non-empty; an
//     empty or unloaded existing side counts as changed so a human reviews it
//   - ownership, domain, custom properties: compared only when supplied;
//     ownership entries are sorted on both sides first
//
// Classification never fails. A fault while classifying one row marks that
// row ActionUnknown and leaves the others untouched.

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Diff field names, in declaration order.
const (
	FieldDescription      = ColDescription
	FieldTermSource       = ColTermSource
	FieldSourceRef        = ColSourceRef
	FieldSourceURL        = ColSourceURL
	FieldRelatedContains  = ColRelatedContains
	FieldRelatedInherits  = ColRelatedInherits
	FieldOwnership        = ColOwnership
	FieldDomain           = ColDomainURN
	FieldCustomProperties = ColCustomProperties
)

var commaSpacing = regexp.MustCompile(`\s*,\s*`)

// normalizeForCompare trims s and removes whitespace around commas, so
// "a , b" and "a,b" compare equal.
func normalizeForCompare(s string) string {
	return commaSpacing.ReplaceAllString(strings.TrimSpace(s), ",")
}

// Reconciler classifies rows. The zero value is ready to use and emits no
// diagnostics.
type Reconciler struct {
	Tracer Tracer
}

// NewReconciler returns a Reconciler reporting to tracer. A nil tracer
// discards events.
func NewReconciler(tracer Tracer) *Reconciler {
	return &Reconciler{Tracer: tracer}
}

func (r *Reconciler) trace(event string, attrs ...any) {
	if r == nil || r.Tracer == nil {
		return
	}
	r.Tracer.Trace(event, attrs...)
}

// Classify matches one row against snap and reports the action and field
// diffs. snap is only read.
func (r *Reconciler) Classify(row FlatRow, snap Snapshot) (c Classification) {
	c.CanonicalID = BuildCandidateID(row.ParentNodes, row.Name)

	defer func() {
		if rec := recover(); rec != nil {
			c = Classification{
				Action:      ActionUnknown,
				CanonicalID: c.CanonicalID,
				Err:         fmt.Sprintf("classify row: %v", rec),
			}
			r.trace("reconcile.fault", "canonical_id", c.CanonicalID, "panic", rec)
		}
	}()

	existing, ok := r.match(c.CanonicalID, snap)
	c.Warning = r.checkURN(row, existing, ok, snap)
	if !ok {
		c.Action = ActionCreate
		r.trace("reconcile.create", "canonical_id", c.CanonicalID)
		return c
	}

	c.MatchedURN = existing.URN
	c.FieldDiffs = r.diff(row, existing)

	c.Action = ActionSkip
	for _, d := range c.FieldDiffs {
		if d.Changed {
			c.Action = ActionUpdate
			break
		}
	}

	r.trace("reconcile.classified",
		"canonical_id", c.CanonicalID,
		"urn", c.MatchedURN,
		"action", string(c.Action),
		"changed", len(c.ChangedFields()),
	)
	return c
}

// ClassifyAll classifies rows in order.
func (r *Reconciler) ClassifyAll(rows []FlatRow, snap Snapshot) []Classification {
	out := make([]Classification, len(rows))
	for i, row := range rows {
		out[i] = r.Classify(row, snap)
	}
	return out
}

// Classify uses a zero Reconciler.
func Classify(row FlatRow, snap Snapshot) Classification {
	var r Reconciler
	return r.Classify(row, snap)
}

// ClassifyAll uses a zero Reconciler.
func ClassifyAll(rows []FlatRow, snap Snapshot) []Classification {
	var r Reconciler
	return r.ClassifyAll(rows, snap)
}

func (r *Reconciler) match(candidateID string, snap Snapshot) (Entity, bool) {
	if candidateID == "" {
		return Entity{}, false
	}

	for _, key := range snap.URNs() {
		e := snap[key]
		if strings.TrimSpace(e.Name) == "" {
			continue
		}
		if CanonicalID(e) == candidateID {
			if e.URN == "" {
				e.URN = key
			}
			r.trace("reconcile.match_path", "urn", e.URN, "canonical_id", candidateID)
			return e, true
		}
	}
	return Entity{}, false
}

// checkURN compares a URN carried by the row with the path match and
// returns a warning when they disagree. Identifiers that are not URNs are
// not checked here.
func (r *Reconciler) checkURN(row FlatRow, matched Entity, ok bool, snap Snapshot) string {
	urn := strings.TrimSpace(row.URN)
	if !LooksLikeURN(urn) {
		return ""
	}

	if ok {
		if matched.URN == urn {
			return ""
		}
		r.trace("reconcile.urn_mismatch", "urn", urn, "matched", matched.URN)
		return fmt.Sprintf("urn %s does not match %s found at this path", urn, matched.URN)
	}

	if e, found := snap[urn]; found {
		id := CanonicalID(e)
		r.trace("reconcile.urn_path_changed", "urn", urn, "existing_id", id)
		return fmt.Sprintf("urn %s belongs to %s; renames and moves are not applied", urn, id)
	}
	r.trace("reconcile.urn_not_in_snapshot", "urn", urn)
	return fmt.Sprintf("urn %s not found in existing entities", urn)
}

func (r *Reconciler) diff(row FlatRow, e Entity) []FieldDiff {
	diffs := []FieldDiff{
		compareValues(FieldDescription, e.Description, row.Description),
	}

	if row.Kind() == KindTerm {
		for _, f := range []struct {
			name, existing, imported string
		}{
			{FieldTermSource, e.TermSource, row.TermSource},
			{FieldSourceRef, e.SourceRef, row.SourceRef},
			{FieldSourceURL, e.SourceURL, row.SourceURL},
		} {
			d := compareSupplied(f.name, f.existing, f.imported)
			d.ScopedToKind = KindTerm
			diffs = append(diffs, d)
		}
	}

	if strings.TrimSpace(row.RelatedContains) != "" {
		diffs = append(diffs, compareRelationships(FieldRelatedContains, e, e.Contains, row.RelatedContains))
	}
	if strings.TrimSpace(row.RelatedInherits) != "" {
		diffs = append(diffs, compareRelationships(FieldRelatedInherits, e, e.Inherits, row.RelatedInherits))
	}

	if strings.TrimSpace(row.Ownership) != "" {
		diffs = append(diffs, compareValues(FieldOwnership,
			canonicalOwnership(e.Owners),
			canonicalOwnership(ParseOwnership(row.Ownership)),
		))
	}

	if strings.TrimSpace(row.DomainURN) != "" {
		existingDomain := ""
		if e.Domain != nil {
			existingDomain = e.Domain.URN
		}
		diffs = append(diffs, compareValues(FieldDomain, existingDomain, row.DomainURN))
	}

	if cp := strings.TrimSpace(row.CustomProperties); cp != "" && cp != "{}" {
		diffs = append(diffs, compareValues(FieldCustomProperties,
			FormatCustomProperties(e.CustomProperties),
			FormatCustomProperties(ParseCustomProperties(cp)),
		))
	}

	for _, d := range diffs {
		if d.Changed {
			r.trace("reconcile.field_changed",
				"field", d.Field,
				"existing", d.ExistingValue,
				"imported", d.ImportedValue,
				"pending", d.PendingData,
			)
		}
	}
	return diffs
}

// canonicalOwnership formats owners sorted by owner, type and kind, so
// entry order does not count as a change.
func canonicalOwnership(owners []Owner) string {
	sorted := append([]Owner(nil), owners...)
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Owner != b.Owner {
			return a.Owner < b.Owner
		}
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		return a.OwnerKind < b.OwnerKind
	})
	return FormatOwnership(sorted)
}

// compareSupplied flags a change only when the imported value is non-empty.
func compareSupplied(field, existing, imported string) FieldDiff {
	d := FieldDiff{
		Field:         field,
		ExistingValue: normalizeForCompare(existing),
		ImportedValue: normalizeForCompare(imported),
	}
	if d.ImportedValue != "" {
		d.Changed = d.ExistingValue != d.ImportedValue
	}
	return d
}

func compareValues(field, existing, imported string) FieldDiff {
	d := FieldDiff{
		Field:         field,
		ExistingValue: normalizeForCompare(existing),
		ImportedValue: normalizeForCompare(imported),
	}
	d.Changed = d.ExistingValue != d.ImportedValue
	return d
}

// compareRelationships diffs a relationship cell against the resolved
// display paths of the existing edges. An empty existing side is always a
// change, including when relationships have not been loaded yet.
func compareRelationships(field string, e Entity, rels []Relationship, imported string) FieldDiff {
	existing := relationshipPaths(rels, ",")
	d := FieldDiff{
		Field:         field,
		ExistingValue: normalizeForCompare(existing),
		ImportedValue: normalizeForCompare(imported),
		ScopedToKind:  KindTerm,
		PendingData:   !e.RelationshipsLoaded,
	}
	if d.ExistingValue == "" {
		d.Changed = true
	} else {
		d.Changed = d.ExistingValue != d.ImportedValue
	}
	return d
}
