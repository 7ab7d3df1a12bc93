package policy

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOwnerOnlyNamesExactlyOnePrincipal(t *testing.T) {
	t.Parallel()

	doc := OwnerOnly("alpha-data", "ALICEACCESSKEY123456")

	require.Equal(t, Version, doc.Version)
	require.Len(t, doc.Statement, 1)

	stmt := doc.Statement[0]
	require.Equal(t, "Allow", stmt.Effect)
	require.Equal(t, []string{"arn:aws:iam:::user/ALICEACCESSKEY123456"}, stmt.Principal.AWS)
	require.Equal(t, OwnerActions, stmt.Action)
	require.Equal(t, []string{
		"arn:aws:s3:::alpha-data",
		"arn:aws:s3:::alpha-data/*",
	}, stmt.Resource)

	require.Equal(t, []string{"ALICEACCESSKEY123456"}, doc.Principals())
}

func TestMarshalRoundTrip(t *testing.T) {
	t.Parallel()

	doc := OwnerOnly("beta-data", "SOMEACCESSKEY1234567")

	raw, err := Marshal(doc)
	require.NoError(t, err, "Marshal error")
	require.True(t, json.Valid([]byte(raw)), "marshaled policy is valid JSON")

	parsed, err := Parse(raw)
	require.NoError(t, err, "Parse error")
	require.Equal(t, doc, parsed)
}

func TestParseRejectsGarbage(t *testing.T) {
	t.Parallel()

	_, err := Parse("{not json")
	require.Error(t, err)
}

func TestPrincipalsAcrossStatements(t *testing.T) {
	t.Parallel()

	doc := Document{
		Version: Version,
		Statement: []Statement{
			{Principal: Principal{AWS: []string{"arn:aws:iam:::user/KEYONE8901234567890A"}}},
			{Principal: Principal{AWS: []string{"bare-principal"}}},
		},
	}

	require.Equal(t, []string{"KEYONE8901234567890A", "bare-principal"}, doc.Principals())
}
