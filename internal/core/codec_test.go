package core

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const templateHeader = "entity_type,urn,name,description,term_source,source_ref,source_url,ownership,parent_nodes,related_contains,related_inherits,domain_urn,domain_name,custom_properties\n"

func TestTemplateCSV(t *testing.T) {
	assert.Equal(t, templateHeader, TemplateCSV())
	assert.Equal(t, templateHeader, SerializeCSV(nil))
}

func TestSerializeQuoting(t *testing.T) {
	row := NewEmptyRow()
	row.Name = "Revenue"
	row.Description = `says "hi", twice`
	row.Ownership = "alice:DATAOWNER:CORP_USER,bob:DATAOWNER:CORP_USER"
	row.CustomProperties = "line1\nline2"

	out := SerializeCSV([]FlatRow{row})
	lines := strings.SplitN(out, "\n", 2)
	require.Len(t, lines, 2)
	assert.Equal(t, strings.TrimSuffix(templateHeader, "\n"), lines[0])
	assert.Contains(t, out, `"says ""hi"", twice"`)
	assert.Contains(t, out, `"alice:DATAOWNER:CORP_USER,bob:DATAOWNER:CORP_USER"`)
	assert.Contains(t, out, "\"line1\nline2\"")
	assert.NotContains(t, out, "Draft", "status is transport-only")
}

func TestParseSerializeRoundTrip(t *testing.T) {
	rows := []FlatRow{
		{
			EntityType:       "term",
			URN:              "urn:li:glossaryTerm:rev",
			Name:             "Revenue",
			Description:      "Money in, \"gross\"\nbefore tax",
			TermSource:       "INTERNAL",
			SourceURL:        "https://example.com/a,b",
			Ownership:        "alice:DATAOWNER:CORP_USER",
			ParentNodes:      "Finance",
			CustomProperties: "team=finance; tier=gold",
			Status:           StatusDraft,
		},
		{
			EntityType:  "node",
			Name:        "Finance",
			Description: "Top level",
			DomainURN:   "urn:li:domain:fin",
			DomainName:  "Finance Domain",
			Status:      StatusDraft,
		},
	}

	res := ParseCSVBytes([]byte(SerializeCSV(rows)))
	require.Empty(t, res.Warnings)
	require.Equal(t, rows, res.Rows)
	assert.Equal(t, []int{2, 4}, res.Lines, "second row starts after the embedded newline")
}

func TestParseCSVReorderedAndMissingColumns(t *testing.T) {
	input := "Name,ENTITY_TYPE,parent_nodes,extra\n" +
		"  Revenue  ,term,Finance,ignored\n" +
		"\n" +
		"Cost,node,,\n"

	res := ParseCSVBytes([]byte(input))
	require.Len(t, res.Rows, 2)
	assert.Equal(t, "Revenue", res.Rows[0].Name)
	assert.Equal(t, "term", res.Rows[0].EntityType)
	assert.Equal(t, "Finance", res.Rows[0].ParentNodes)
	assert.Equal(t, "", res.Rows[0].Description)
	assert.Equal(t, StatusDraft, res.Rows[0].Status)
	assert.Equal(t, "node", res.Rows[1].EntityType)
	assert.Equal(t, []int{2, 4}, res.Lines)

	require.Len(t, res.Warnings, 1)
	assert.Equal(t, 1, res.Warnings[0].Line)
	assert.Contains(t, res.Warnings[0].Message, "missing columns")
	assert.Contains(t, res.Warnings[0].Message, ColDescription)
}

func TestParseCSVSkipsMalformedLines(t *testing.T) {
	input := "entity_type,name,description\n" +
		"term,Good,ok\n" +
		"term,Bad \"quote,x\n" +
		"term,Also Good,fine\n"

	res := ParseCSVBytes([]byte(input))
	require.Len(t, res.Rows, 2)
	assert.Equal(t, "Good", res.Rows[0].Name)
	assert.Equal(t, "Also Good", res.Rows[1].Name)

	var malformed []ParseWarning
	for _, w := range res.Warnings {
		if strings.Contains(w.Message, "malformed") {
			malformed = append(malformed, w)
		}
	}
	require.Len(t, malformed, 1)
	assert.Equal(t, 3, malformed[0].Line)
}

func TestParseCSVQuotedFieldAfterSpace(t *testing.T) {
	input := "entity_type,name,description\n" +
		"term, \"Revenue, net\",x\n" +
		"term,Cost,y\n"

	res := ParseCSVBytes([]byte(input))
	require.Len(t, res.Rows, 2)
	assert.Equal(t, "Revenue, net", res.Rows[0].Name)
	assert.Equal(t, "x", res.Rows[0].Description)
	assert.Equal(t, "Cost", res.Rows[1].Name)
	for _, w := range res.Warnings {
		assert.NotContains(t, w.Message, "malformed")
	}
}

func TestParseCSVReportsBytes(t *testing.T) {
	input := []byte("\xEF\xBB\xBFentity_type,name\nterm,A\n")
	res := ParseCSVBytes(input)
	assert.Equal(t, int64(len(input)), res.Bytes)

	recs := ParseRecords([][]string{{"entity_type", "name"}, {"term", "A"}})
	assert.Zero(t, recs.Bytes)
}

func TestParseCSVEdgeCases(t *testing.T) {
	t.Run("empty input", func(t *testing.T) {
		res := ParseCSVBytes(nil)
		assert.Empty(t, res.Rows)
		assert.Empty(t, res.Header)
		require.NotEmpty(t, res.Warnings)
	})

	t.Run("header only", func(t *testing.T) {
		res := ParseCSVBytes([]byte(templateHeader))
		assert.Empty(t, res.Rows)
		assert.Empty(t, res.Warnings)
		assert.Equal(t, Columns, res.Header)
	})

	t.Run("unrecognized header", func(t *testing.T) {
		res := ParseCSVBytes([]byte("foo,bar\n1,2\n"))
		assert.Empty(t, res.Rows)
		require.Len(t, res.Warnings, 1)
		assert.Contains(t, res.Warnings[0].Message, "no recognized columns")
	})

	t.Run("bom and crlf", func(t *testing.T) {
		data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("entity_type,name\r\nterm,Revenue\r\n")...)
		res := ParseCSV(bytes.NewReader(data))
		require.Len(t, res.Rows, 1)
		assert.Equal(t, "Revenue", res.Rows[0].Name)
		assert.Equal(t, []string{"entity_type", "name"}, res.Header)
	})

	t.Run("short rows leave trailing cells empty", func(t *testing.T) {
		res := ParseCSVBytes([]byte("entity_type,name,description\nterm,Revenue\n"))
		require.Len(t, res.Rows, 1)
		assert.Equal(t, "", res.Rows[0].Description)
	})

	t.Run("whitespace only line skipped", func(t *testing.T) {
		res := ParseCSVBytes([]byte("entity_type,name\n   \nterm,A\n"))
		require.Len(t, res.Rows, 1)
		assert.Equal(t, []int{3}, res.Lines)
	})
}

func TestParseRecords(t *testing.T) {
	res := ParseRecords([][]string{
		{"name", "entity_type"},
		{"Revenue", "term"},
		{"", ""},
		{"Finance", "node"},
	})
	require.Len(t, res.Rows, 2)
	assert.Equal(t, []int{2, 4}, res.Lines)
	assert.Equal(t, "Finance", res.Rows[1].Name)
}

func TestMakeHeaderIndex(t *testing.T) {
	idx := MakeHeaderIndex([]string{" Name ", `="URN"`, "name"})
	assert.Equal(t, 0, idx["name"], "first occurrence wins")
	assert.Equal(t, 1, idx["urn"])
}
