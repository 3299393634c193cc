package core

import "sort"

// EntityRef is a lightweight reference to another entity.
type EntityRef struct {
	URN  string `json:"urn" yaml:"urn"`
	Name string `json:"name" yaml:"name"`
}

// Relationship is one outgoing edge. TargetAncestors are the target's
// parent nodes, outermost first.
type Relationship struct {
	Target          EntityRef   `json:"target" yaml:"target"`
	TargetAncestors []EntityRef `json:"targetAncestors,omitempty" yaml:"targetAncestors,omitempty"`
}

// Domain is the business domain an entity is linked to.
type Domain struct {
	URN  string `json:"urn" yaml:"urn"`
	Name string `json:"name" yaml:"name"`
}

// Entity is an existing taxonomy entity as read from a snapshot.
type Entity struct {
	URN         string     `json:"urn"`
	Kind        EntityKind `json:"kind"`
	Name        string     `json:"name"`
	Description string     `json:"description"`

	// Term-only metadata; always empty for nodes.
	TermSource string `json:"termSource,omitempty"`
	SourceRef  string `json:"sourceRef,omitempty"`
	SourceURL  string `json:"sourceUrl,omitempty"`

	Ancestors []EntityRef `json:"ancestors"` // Outermost first
	Owners    []Owner     `json:"owners,omitempty"`

	Contains []Relationship `json:"contains,omitempty"` // Outgoing HasA edges
	Inherits []Relationship `json:"inherits,omitempty"` // Outgoing IsA edges

	// RelationshipsLoaded is false when the snapshot was fetched without
	// relationship data; relationship diffs are then marked pending.
	RelationshipsLoaded bool `json:"relationshipsLoaded"`

	Domain           *Domain           `json:"domain,omitempty"`
	CustomProperties map[string]string `json:"customProperties,omitempty"`
	Status           Status            `json:"status,omitempty"`
}

// AncestorNames returns the ancestor display names, outermost first.
func (e Entity) AncestorNames() []string {
	names := make([]string, 0, len(e.Ancestors))
	for _, a := range e.Ancestors {
		names = append(names, a.Name)
	}
	return names
}

// CanonicalID derives the path identifier of an existing entity from its
// ancestor chain and name.
func CanonicalID(e Entity) string {
	return BuildPathID(append(e.AncestorNames(), e.Name))
}

// Snapshot is a read-only set of existing entities keyed by URN.
type Snapshot map[string]Entity

// URNs returns the snapshot keys in sorted order.
func (s Snapshot) URNs() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
