// Package snapshot loads existing taxonomy entities and converts them into
// the core entity model.
//
// Entities arrive in the shape returned by the metadata service's GraphQL
// API. Decoding happens once, here, so the reconciler only ever sees typed
// core.Entity values.
package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/JonMunkholm/taxonomy-import/internal/core"
)

// entityPayload is the GraphQL shape of a glossary term or node.
type entityPayload struct {
	URN         string             `json:"urn"`
	Type        string             `json:"type"`
	Properties  propertiesPayload  `json:"properties"`
	ParentNodes *parentNodesResult `json:"parentNodes"`
	Ownership   *ownershipPayload  `json:"ownership"`
	Domain      *domainPayload     `json:"domain"`
	Contains    *relationshipsList `json:"contains"`
	Inherits    *relationshipsList `json:"inherits"`
}

type propertiesPayload struct {
	Name             string           `json:"name"`
	Description      string           `json:"description"`
	TermSource       string           `json:"termSource"`
	SourceRef        string           `json:"sourceRef"`
	SourceURL        string           `json:"sourceUrl"`
	CustomProperties customProperties `json:"customProperties"`
	Status           string           `json:"status"`
}

type namedRef struct {
	URN        string `json:"urn"`
	Properties struct {
		Name string `json:"name"`
	} `json:"properties"`
}

type parentNodesResult struct {
	Nodes []namedRef `json:"nodes"`
}

type ownershipPayload struct {
	Owners []struct {
		Owner struct {
			URN      string `json:"urn"`
			Typename string `json:"__typename"`
			Username string `json:"username"`
			Name     string `json:"name"`
		} `json:"owner"`
		Type string `json:"type"`
	} `json:"owners"`
}

// domainPayload accepts both the flattened {urn, properties} form and the
// association form {domain: {urn, properties}}.
type domainPayload struct {
	namedRef
	Domain *namedRef `json:"domain"`
}

type relationshipsList struct {
	Relationships []struct {
		Entity struct {
			namedRef
			ParentNodes *parentNodesResult `json:"parentNodes"`
		} `json:"entity"`
	} `json:"relationships"`
}

// customProperties accepts a list of {key, value} entries or a plain object.
// Non-string scalar values keep their JSON text, so {"n": 1} reads as "1".
type customProperties map[string]string

func (c *customProperties) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '{' {
		var raw map[string]json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		m := make(map[string]string, len(raw))
		for k, v := range raw {
			m[k] = scalarText(v)
		}
		*c = m
		return nil
	}
	var entries []struct {
		Key   string          `json:"key"`
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	m := make(map[string]string, len(entries))
	for _, e := range entries {
		if e.Key != "" {
			m[e.Key] = scalarText(e.Value)
		}
	}
	*c = m
	return nil
}

// scalarText returns a JSON string's value, or the raw text of any other
// value. null reads as empty.
func scalarText(v json.RawMessage) string {
	v = bytes.TrimSpace(v)
	if len(v) == 0 || bytes.Equal(v, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s
	}
	return string(v)
}

// DecodeEntity converts one GraphQL-shaped JSON object into a core.Entity.
func DecodeEntity(data []byte) (core.Entity, error) {
	var p entityPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return core.Entity{}, fmt.Errorf("decode snapshot entity: %w", err)
	}
	return p.toEntity(), nil
}

// DecodeEntities decodes a JSON document holding either a list of entities
// or an object with an "entities" list. Each entity is decoded on its own:
// one that does not fit the expected shape is left out and counted in
// malformed. Only a document that is not a list of objects fails.
func DecodeEntities(data []byte) (entities []core.Entity, malformed int, err error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, 0, fmt.Errorf("decode snapshot: empty document")
	}

	var raws []json.RawMessage
	if data[0] == '[' {
		if err := json.Unmarshal(data, &raws); err != nil {
			return nil, 0, fmt.Errorf("decode snapshot: %w", err)
		}
	} else {
		var doc struct {
			Entities []json.RawMessage `json:"entities"`
		}
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, 0, fmt.Errorf("decode snapshot: %w", err)
		}
		raws = doc.Entities
	}

	entities = make([]core.Entity, 0, len(raws))
	for i, raw := range raws {
		e, err := DecodeEntity(raw)
		if err != nil {
			slog.Warn("malformed snapshot entity skipped", "index", i, "error", err)
			malformed++
			continue
		}
		entities = append(entities, e)
	}
	return entities, malformed, nil
}

// Build keys entities by URN. Entities without a URN cannot be matched
// and are counted in skipped.
func Build(entities []core.Entity) (snap core.Snapshot, skipped int) {
	snap = make(core.Snapshot, len(entities))
	for _, e := range entities {
		if e.URN == "" {
			skipped++
			continue
		}
		snap[e.URN] = e
	}
	return snap, skipped
}

func (p entityPayload) toEntity() core.Entity {
	e := core.Entity{
		URN:              strings.TrimSpace(p.URN),
		Kind:             kindOf(p.Type, p.URN),
		Name:             p.Properties.Name,
		Description:      p.Properties.Description,
		CustomProperties: p.Properties.CustomProperties,
		Status:           core.NormalizeStatus(p.Properties.Status),
	}

	if e.Kind == core.KindTerm {
		e.TermSource = p.Properties.TermSource
		e.SourceRef = p.Properties.SourceRef
		e.SourceURL = p.Properties.SourceURL
	}

	e.Ancestors = refs(p.ParentNodes)

	if p.Ownership != nil {
		for _, o := range p.Ownership.Owners {
			id := firstNonEmpty(o.Owner.Username, o.Owner.Name, o.Owner.URN)
			if id == "" {
				continue
			}
			e.Owners = append(e.Owners, core.Owner{
				Owner:     id,
				Type:      firstNonEmpty(o.Type, core.DefaultOwnershipType),
				OwnerKind: ownerKind(o.Owner.Typename, o.Owner.URN),
			})
		}
	}

	if p.Domain != nil {
		d := p.Domain.namedRef
		if p.Domain.Domain != nil {
			d = *p.Domain.Domain
		}
		if d.URN != "" {
			e.Domain = &core.Domain{URN: d.URN, Name: d.Properties.Name}
		}
	}

	// Relationships count as loaded when either list was fetched.
	e.RelationshipsLoaded = p.Contains != nil || p.Inherits != nil
	e.Contains = relationships(p.Contains)
	e.Inherits = relationships(p.Inherits)

	return e
}

func kindOf(typ, urn string) core.EntityKind {
	switch strings.ToUpper(strings.TrimSpace(typ)) {
	case "GLOSSARY_TERM":
		return core.KindTerm
	case "GLOSSARY_NODE":
		return core.KindNode
	}
	if k, ok := core.ParseEntityKind(typ); ok {
		return k
	}
	if strings.HasPrefix(urn, "urn:li:glossaryNode:") {
		return core.KindNode
	}
	return core.KindTerm
}

func ownerKind(typename, urn string) string {
	switch {
	case typename == "CorpGroup", strings.HasPrefix(urn, "urn:li:corpGroup:"):
		return core.OwnerKindGroup
	default:
		return core.DefaultOwnerKind
	}
}

func refs(p *parentNodesResult) []core.EntityRef {
	if p == nil {
		return nil
	}
	out := make([]core.EntityRef, 0, len(p.Nodes))
	for _, n := range p.Nodes {
		out = append(out, core.EntityRef{URN: n.URN, Name: n.Properties.Name})
	}
	return out
}

func relationships(l *relationshipsList) []core.Relationship {
	if l == nil {
		return nil
	}
	out := make([]core.Relationship, 0, len(l.Relationships))
	for _, r := range l.Relationships {
		out = append(out, core.Relationship{
			Target:          core.EntityRef{URN: r.Entity.URN, Name: r.Entity.Properties.Name},
			TargetAncestors: refs(r.Entity.ParentNodes),
		})
	}
	return out
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
