package core

import "strings"

// Flatten projects an existing entity onto the tabular row shape.
//
// The parent_nodes cell holds the display path (ancestor names joined with
// ", "). It is not the canonical id and must not be used for matching.
func Flatten(e Entity) FlatRow {
	kind := e.Kind
	if kind == "" {
		kind = KindTerm
	}

	row := FlatRow{
		EntityType:  string(kind),
		URN:         e.URN,
		Name:        e.Name,
		Description: e.Description,
		Ownership:   FormatOwnership(e.Owners),
		ParentNodes: strings.Join(e.AncestorNames(), ", "),
		Status:      e.Status,
	}

	if kind == KindTerm {
		row.TermSource = e.TermSource
		row.SourceRef = e.SourceRef
		row.SourceURL = e.SourceURL
		row.RelatedContains = relationshipPaths(e.Contains, ", ")
	}
	// related_inherits is reserved: no IsA edge is modelled for nodes and
	// term inheritance is not exported.

	if e.Domain != nil {
		row.DomainURN = e.Domain.URN
		row.DomainName = e.Domain.Name
	}
	if len(e.CustomProperties) > 0 {
		row.CustomProperties = FormatCustomProperties(e.CustomProperties)
	}
	if row.Status == "" {
		row.Status = StatusDraft
	}

	return row
}

// FlattenSnapshot flattens every entity for export: terms first, then
// nodes, each group ordered by URN.
func FlattenSnapshot(s Snapshot) []FlatRow {
	var terms, nodes []FlatRow
	for _, urn := range s.URNs() {
		e := s[urn]
		if e.Kind == KindNode {
			nodes = append(nodes, Flatten(e))
		} else {
			terms = append(terms, Flatten(e))
		}
	}
	return append(terms, nodes...)
}

// unknownTargetName stands in for a relationship target whose name was not
// fetched, so the edge still counts toward the diff.
const unknownTargetName = "Unknown"

// RelationshipPath resolves a relationship target to its hierarchical
// display path: ancestor names joined with '.', then the target name.
func RelationshipPath(r Relationship) string {
	parts := make([]string, 0, len(r.TargetAncestors)+1)
	for _, a := range r.TargetAncestors {
		if a.Name != "" {
			parts = append(parts, a.Name)
		}
	}
	name := r.Target.Name
	if name == "" {
		name = unknownTargetName
	}
	parts = append(parts, name)
	return strings.Join(parts, ".")
}

func relationshipPaths(rels []Relationship, sep string) string {
	paths := make([]string, 0, len(rels))
	for _, r := range rels {
		if p := RelationshipPath(r); p != "" {
			paths = append(paths, p)
		}
	}
	return strings.Join(paths, sep)
}

// NewEmptyRow returns the default row used when adding a row by hand.
func NewEmptyRow() FlatRow {
	return FlatRow{
		EntityType: string(KindTerm),
		Status:     StatusDraft,
	}
}
