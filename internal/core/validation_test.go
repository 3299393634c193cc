package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRow(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(*FlatRow)
		wantFields []string
	}{
		{"valid term", func(r *FlatRow) {}, nil},
		{"missing name", func(r *FlatRow) { r.Name = "  " }, []string{ColName}},
		{"unknown entity type", func(r *FlatRow) { r.EntityType = "dataset" }, []string{ColEntityType}},
		{"empty entity type", func(r *FlatRow) { r.EntityType = "" }, []string{ColEntityType}},
		{"alias entity type", func(r *FlatRow) { r.EntityType = "glossaryNode" }, nil},
		{"path id", func(r *FlatRow) { r.URN = "Finance.Revenue" }, nil},
		{"good urn", func(r *FlatRow) { r.URN = "urn:li:glossaryTerm:x" }, nil},
		{"bad domain urn", func(r *FlatRow) { r.DomainURN = "finance" }, []string{ColDomainURN}},
		{"bad status", func(r *FlatRow) { r.Status = "Pending" }, []string{"status"}},
		{"punctuation name", func(r *FlatRow) { r.Name = "..." }, []string{ColName}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := NewEmptyRow()
			row.Name = "Revenue"
			tt.mutate(&row)

			res := ValidateRow(row)
			var fields []string
			for _, e := range res.Errors {
				fields = append(fields, e.Field)
			}
			assert.Equal(t, tt.wantFields, fields)
			assert.Equal(t, len(tt.wantFields) == 0, res.Valid)
		})
	}
}

func TestValidateRowNodeWarnings(t *testing.T) {
	row := NewEmptyRow()
	row.EntityType = "node"
	row.Name = "Finance"
	row.SourceURL = "https://example.com"

	res := ValidateRow(row)
	require.True(t, res.Valid)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, ColSourceURL, res.Warnings[0].Field)
}

func TestValidateRowPathIDs(t *testing.T) {
	tests := []struct {
		name     string
		id       string
		wantWarn bool
	}{
		{"matches canonical id", "Finance.Revenue", false},
		{"urn is not compared", "urn:li:glossaryTerm:elsewhere", false},
		{"different path", "Sales.Revenue", true},
		{"free text", "legacy-42", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := NewEmptyRow()
			row.ParentNodes = "Finance"
			row.Name = "Revenue"
			row.URN = tt.id

			res := ValidateRow(row)
			require.True(t, res.Valid, "a non-urn id never blocks the row")
			if !tt.wantWarn {
				assert.Empty(t, res.Warnings)
				return
			}
			require.Len(t, res.Warnings, 1)
			assert.Equal(t, ColURN, res.Warnings[0].Field)
			assert.Contains(t, res.Warnings[0].Message, "Finance.Revenue")
			assert.Equal(t, "VAL003", MapError(res.Warnings[0]).Code)
		})
	}
}

func TestValidateHeaders(t *testing.T) {
	_, err := ValidateHeaders(Columns)
	require.NoError(t, err)

	_, err = ValidateHeaders([]string{"name"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required columns: entity_type, parent_nodes")
	assert.Equal(t, "VAL004", MapError(err).Code)
}
