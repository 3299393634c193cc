package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOwnership(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []Owner
	}{
		{"empty", "", nil},
		{"three part", "alice:DATAOWNER:CORP_USER", []Owner{{"alice", "DATAOWNER", "CORP_USER"}}},
		{"legacy two part", "alice:TECHNICAL_OWNER", []Owner{{"alice", "TECHNICAL_OWNER", DefaultOwnerKind}}},
		{"bare owner", "alice", []Owner{{"alice", DefaultOwnershipType, DefaultOwnerKind}}},
		{
			"several with spacing",
			"alice:DATAOWNER:CORP_USER , finance:BUSINESS_OWNER:CORP_GROUP",
			[]Owner{{"alice", "DATAOWNER", "CORP_USER"}, {"finance", "BUSINESS_OWNER", OwnerKindGroup}},
		},
		{
			"urn owner",
			"urn:li:corpuser:alice:DATAOWNER:CORP_USER",
			[]Owner{{"urn:li:corpuser:alice", "DATAOWNER", "CORP_USER"}},
		},
		{"empty entries skipped", ",alice,,", []Owner{{"alice", DefaultOwnershipType, DefaultOwnerKind}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseOwnership(tt.in))
		})
	}
}

func TestOwnershipRoundTrip(t *testing.T) {
	owners := []Owner{{Owner: "alice", Type: "DATAOWNER", OwnerKind: "CORP_USER"}}
	require.Equal(t, "alice:DATAOWNER:CORP_USER", FormatOwnership(owners))
	require.Equal(t, owners, ParseOwnership("alice:DATAOWNER:CORP_USER"))

	for _, in := range []string{
		"alice:DATAOWNER:CORP_USER,bob:TECHNICAL_OWNER:CORP_GROUP",
		"alice : DATAOWNER : CORP_USER ,  bob:TECHNICAL_OWNER:CORP_GROUP",
	} {
		assert.Equal(t, "alice:DATAOWNER:CORP_USER,bob:TECHNICAL_OWNER:CORP_GROUP", FormatOwnership(ParseOwnership(in)))
	}
	assert.Equal(t, "", FormatOwnership(nil))
}

func TestParsePairs(t *testing.T) {
	assert.Nil(t, ParsePairs(""))
	assert.Equal(t, []Pair{{"team", "finance"}, {"tier", "gold"}}, ParsePairs("team=finance;tier=gold"))
	assert.Equal(t, []Pair{{"flag", ""}}, ParsePairs("flag"))
	assert.Equal(t, []Pair{{"expr", "a=b"}}, ParsePairs("expr=a=b"))
	assert.Equal(t, []Pair{{"k", "v"}}, ParsePairs(" ; k = v ; "))
}

func TestPairsRoundTrip(t *testing.T) {
	for _, tt := range []struct{ in, want string }{
		{"team=finance;tier=gold", "team=finance; tier=gold"},
		{"team = finance ;  tier=gold", "team=finance; tier=gold"},
		{"flag;team=finance", "flag=; team=finance"},
	} {
		assert.Equal(t, tt.want, FormatPairs(ParsePairs(tt.in)))
		assert.Equal(t, ParsePairs(tt.in), ParsePairs(FormatPairs(ParsePairs(tt.in))))
	}
}

func TestCustomProperties(t *testing.T) {
	assert.Empty(t, ParseCustomProperties(""))
	assert.Empty(t, ParseCustomProperties("{}"))
	assert.Equal(t, map[string]string{"team": "finance"}, ParseCustomProperties(`{"team":"finance"}`))
	assert.Equal(t, map[string]string{"team": "finance", "tier": "gold"}, ParseCustomProperties("tier=gold; team=finance"))
	assert.Equal(t, "team=finance; tier=gold", FormatCustomProperties(map[string]string{"tier": "gold", "team": "finance"}))
}

func TestReferences(t *testing.T) {
	refs := ParseReferences("termSource=INTERNAL || sourceUrl=https://example.com/a?b=c || bogus=1 || noequals")
	require.Equal(t, References{RefTermSource: "INTERNAL", RefSourceURL: "https://example.com/a?b=c"}, refs)

	_, hasRef := refs[RefSourceRef]
	assert.False(t, hasRef, "missing keys stay absent")

	assert.Equal(t, "termSource=INTERNAL || sourceUrl=https://example.com/a?b=c", FormatReferences(refs))
	assert.Equal(t, refs, ParseReferences(FormatReferences(refs)))

	reordered := ParseReferences("sourceRef=GL-1||termSource=EXTERNAL")
	assert.Equal(t, "termSource=EXTERNAL || sourceRef=GL-1", FormatReferences(reordered))
	assert.Empty(t, ParseReferences(""))
}

func TestCommaList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, SplitCommaList(" a ,, b "))
	assert.Equal(t, "a, b", JoinCommaList([]string{"a", "", "b"}))
	assert.Nil(t, SplitCommaList(""))
}
