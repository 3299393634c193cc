package core

import (
	"encoding/json"
	"strings"
)

// EntityKind distinguishes the two taxonomy entity kinds.
type EntityKind string

const (
	KindTerm EntityKind = "term" // Leaf carrying source/reference metadata
	KindNode EntityKind = "node" // Hierarchy container
)

// ParseEntityKind maps an entity_type cell to a kind.
// Accepts "term"/"node" and the wire aliases "glossaryTerm"/"glossaryNode".
func ParseEntityKind(s string) (EntityKind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "term", "glossaryterm":
		return KindTerm, true
	case "node", "glossarynode":
		return KindNode, true
	default:
		return "", false
	}
}

// Status is the lifecycle tag of a row. It is transport-only and never
// written to the tabular form.
type Status string

const (
	StatusDraft    Status = "Draft"
	StatusApproved Status = "Approved"
	StatusRejected Status = "Rejected"
)

// NormalizeStatus maps free text to a Status, defaulting to Draft.
func NormalizeStatus(s string) Status {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "approved":
		return StatusApproved
	case "rejected":
		return StatusRejected
	default:
		return StatusDraft
	}
}

// FlatRow is the single-level record representing one entity for tabular
// transport. Every field is a plain string; structure lives only inside
// individual cells via the sub-encodings.
type FlatRow struct {
	EntityType       string `json:"entity_type" validate:"required,entitykind"`
	URN              string `json:"urn"`
	Name             string `json:"name" validate:"required"`
	Description      string `json:"description"`
	TermSource       string `json:"term_source"`
	SourceRef        string `json:"source_ref"`
	SourceURL        string `json:"source_url"`
	Ownership        string `json:"ownership"`
	ParentNodes      string `json:"parent_nodes"`
	RelatedContains  string `json:"related_contains"`
	RelatedInherits  string `json:"related_inherits"`
	DomainURN        string `json:"domain_urn"`
	DomainName       string `json:"domain_name"`
	CustomProperties string `json:"custom_properties"`
	Status           Status `json:"status,omitempty" validate:"omitempty,oneof=Draft Approved Rejected"`
}

// Kind returns the row's entity kind. Unrecognized values report as a term,
// which matches the default for new rows.
func (r FlatRow) Kind() EntityKind {
	if k, ok := ParseEntityKind(r.EntityType); ok {
		return k
	}
	return KindTerm
}

// Column names of the tabular schema, in serialization order.
const (
	ColEntityType       = "entity_type"
	ColURN              = "urn"
	ColName             = "name"
	ColDescription      = "description"
	ColTermSource       = "term_source"
	ColSourceRef        = "source_ref"
	ColSourceURL        = "source_url"
	ColOwnership        = "ownership"
	ColParentNodes      = "parent_nodes"
	ColRelatedContains  = "related_contains"
	ColRelatedInherits  = "related_inherits"
	ColDomainURN        = "domain_urn"
	ColDomainName       = "domain_name"
	ColCustomProperties = "custom_properties"
)

// Columns is the fixed, ordered column schema.
var Columns = []string{
	ColEntityType,
	ColURN,
	ColName,
	ColDescription,
	ColTermSource,
	ColSourceRef,
	ColSourceURL,
	ColOwnership,
	ColParentNodes,
	ColRelatedContains,
	ColRelatedInherits,
	ColDomainURN,
	ColDomainName,
	ColCustomProperties,
}

// Cell returns the value of the named column.
func (r FlatRow) Cell(col string) string {
	switch col {
	case ColEntityType:
		return r.EntityType
	case ColURN:
		return r.URN
	case ColName:
		return r.Name
	case ColDescription:
		return r.Description
	case ColTermSource:
		return r.TermSource
	case ColSourceRef:
		return r.SourceRef
	case ColSourceURL:
		return r.SourceURL
	case ColOwnership:
		return r.Ownership
	case ColParentNodes:
		return r.ParentNodes
	case ColRelatedContains:
		return r.RelatedContains
	case ColRelatedInherits:
		return r.RelatedInherits
	case ColDomainURN:
		return r.DomainURN
	case ColDomainName:
		return r.DomainName
	case ColCustomProperties:
		return r.CustomProperties
	}
	return ""
}

// SetCell assigns the value of the named column. Unknown columns are ignored.
func (r *FlatRow) SetCell(col, value string) {
	switch col {
	case ColEntityType:
		r.EntityType = value
	case ColURN:
		r.URN = value
	case ColName:
		r.Name = value
	case ColDescription:
		r.Description = value
	case ColTermSource:
		r.TermSource = value
	case ColSourceRef:
		r.SourceRef = value
	case ColSourceURL:
		r.SourceURL = value
	case ColOwnership:
		r.Ownership = value
	case ColParentNodes:
		r.ParentNodes = value
	case ColRelatedContains:
		r.RelatedContains = value
	case ColRelatedInherits:
		r.RelatedInherits = value
	case ColDomainURN:
		r.DomainURN = value
	case ColDomainName:
		r.DomainName = value
	case ColCustomProperties:
		r.CustomProperties = value
	}
}

// Record returns the row's cells in schema column order.
func (r FlatRow) Record() []string {
	rec := make([]string, len(Columns))
	for i, col := range Columns {
		rec[i] = r.Cell(col)
	}
	return rec
}

// Action is the reconciliation outcome for one row.
type Action string

const (
	ActionCreate  Action = "create"
	ActionUpdate  Action = "update"
	ActionSkip    Action = "skip"
	ActionUnknown Action = "unknown" // Internal fault; row needs manual review
)

// FieldDiff compares one field of an imported row against the matched entity.
type FieldDiff struct {
	Field         string     `json:"field"`
	ExistingValue string     `json:"existingValue"`
	ImportedValue string     `json:"importedValue"`
	Changed       bool       `json:"changed"`
	ScopedToKind  EntityKind `json:"scopedToKind,omitempty"` // Set when the field only applies to one kind
	PendingData   bool       `json:"pendingData,omitempty"`  // Existing side not fully loaded yet
}

// Classification is the reconciliation result for one row.
type Classification struct {
	Action      Action      `json:"action"`
	MatchedURN  string      `json:"matchedStableId"` // Empty when no entity matched; encoded as null
	CanonicalID string      `json:"canonicalId"`
	FieldDiffs  []FieldDiff `json:"fieldDiffs"`
	Warning     string      `json:"warning,omitempty"` // Row URN disagrees with the path match
	Err         string      `json:"error,omitempty"`   // Set for ActionUnknown
}

// MarshalJSON encodes an unmatched row's matchedStableId as null and
// missing field diffs as an empty list.
func (c Classification) MarshalJSON() ([]byte, error) {
	type plain Classification
	out := struct {
		plain
		MatchedURN *string `json:"matchedStableId"`
	}{plain: plain(c)}
	if c.MatchedURN != "" {
		out.MatchedURN = &c.MatchedURN
	}
	if out.FieldDiffs == nil {
		out.FieldDiffs = []FieldDiff{}
	}
	return json.Marshal(out)
}

// Matched reports whether the row matched an existing entity.
func (c Classification) Matched() bool {
	return c.MatchedURN != ""
}

// ChangedFields returns the diffs flagged as changed, in declaration order.
func (c Classification) ChangedFields() []FieldDiff {
	var out []FieldDiff
	for _, d := range c.FieldDiffs {
		if d.Changed {
			out = append(out, d)
		}
	}
	return out
}

// UnchangedFields returns the diffs not flagged as changed, in declaration order.
func (c Classification) UnchangedFields() []FieldDiff {
	var out []FieldDiff
	for _, d := range c.FieldDiffs {
		if !d.Changed {
			out = append(out, d)
		}
	}
	return out
}
