package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const customerSchemaYAML = `
tables:
  - name: customers
    attributes:
      - { name: customer_id, kind: S, hashKey: true }
      - { name: tenant_id, kind: S, rangeKey: true }
      - { name: email }
      - { name: seq, kind: N }
    globalIndexes:
      - name: email-index
        attributes:
          - { name: email, kind: S, hashKey: true }
    localIndexes:
      - name: seq-index
        attributes:
          - { name: customer_id, kind: S, hashKey: true }
          - { name: seq, kind: N, rangeKey: true }
`

func TestParseSchema(t *testing.T) {
	defs, err := ParseSchema([]byte(customerSchemaYAML))
	require.NoError(t, err)
	require.Len(t, defs, 1)

	def := defs[0]
	assert.Equal(t, "customers", def.TableName)

	keyDef := def.PrimaryKeyDefinition()
	assert.Equal(t, KeyDef{Name: "customer_id", Kind: KeyKindS}, keyDef.PartitionKey)
	assert.Equal(t, KeyDef{Name: "tenant_id", Kind: KeyKindS}, keyDef.SortKey)

	// Unspecified kind defaults to S.
	assert.Equal(t, KeyKindS, def.Attributes[2].Kind)
	assert.Equal(t, KeyKindN, def.Attributes[3].Kind)

	require.Len(t, def.GlobalIndexes, 1)
	idx, ok := def.Index("email-index")
	require.True(t, ok)
	assert.Equal(t, "email", idx.PrimaryKeyDefinition().PartitionKey.Name)

	require.Len(t, def.LocalIndexes, 1)
	lsi, ok := def.Index("seq-index")
	require.True(t, ok)
	assert.Equal(t, KeyDef{Name: "seq", Kind: KeyKindN}, lsi.PrimaryKeyDefinition().SortKey)
}

func TestParseSchemaRejectsUnknownKind(t *testing.T) {
	_, err := ParseSchema([]byte(`
tables:
  - name: bad
    attributes:
      - { name: id, kind: X, hashKey: true }
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"X"`)
}

func TestParseSchemaRejectsUnnamedTable(t *testing.T) {
	_, err := ParseSchema([]byte(`
tables:
  - attributes:
      - { name: id, kind: S, hashKey: true }
`))
	require.Error(t, err)
}

func TestParseSchemaRejectsInvalidYAML(t *testing.T) {
	_, err := ParseSchema([]byte("tables: ["))
	require.Error(t, err)
}
