package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func customerDefinition() Definition {
	return Definition{
		TableName: "customers",
		Attributes: []AttributeDefinition{
			{Name: "customer_id", Kind: KeyKindS, HashKey: true},
			{Name: "tenant_id", Kind: KeyKindS, RangeKey: true},
			{Name: "email", Kind: KeyKindS},
			{Name: "status", Kind: KeyKindS},
			{Name: "created_at", Kind: KeyKindS},
		},
		GlobalIndexes: []IndexDefinition{
			{Name: "email-index", Attributes: []AttributeDefinition{
				{Name: "email", Kind: KeyKindS, HashKey: true},
			}},
			{Name: "status-index", Attributes: []AttributeDefinition{
				{Name: "status", Kind: KeyKindS, HashKey: true},
				{Name: "created_at", Kind: KeyKindS, RangeKey: true},
			}},
		},
		LocalIndexes: []IndexDefinition{
			{Name: "created-index", Attributes: []AttributeDefinition{
				{Name: "customer_id", Kind: KeyKindS, HashKey: true},
				{Name: "created_at", Kind: KeyKindS, RangeKey: true},
			}},
		},
	}
}

func TestExtractKeyMetadata(t *testing.T) {
	meta, err := ExtractKeyMetadata(customerDefinition())
	require.NoError(t, err)

	assert.Equal(t, "customer_id", meta.HashKey)
	assert.Equal(t, "tenant_id", meta.RangeKey)

	require.Len(t, meta.GSIs, 2)
	assert.Equal(t, IndexKeyMetadata{Name: "email-index", HashKey: "email"}, meta.GSIs[0])
	assert.Equal(t, IndexKeyMetadata{Name: "status-index", HashKey: "status", RangeKey: "created_at"}, meta.GSIs[1])

	require.Len(t, meta.LSIs, 1)
	assert.Equal(t, IndexKeyMetadata{Name: "created-index", HashKey: "customer_id", RangeKey: "created_at"}, meta.LSIs[0])
}

func TestExtractKeyMetadataIsIdempotent(t *testing.T) {
	def := customerDefinition()
	first, err := ExtractKeyMetadata(def)
	require.NoError(t, err)
	second, err := ExtractKeyMetadata(def)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestExtractKeyMetadataNoRangeKey(t *testing.T) {
	def := Definition{
		TableName: "singles",
		Attributes: []AttributeDefinition{
			{Name: "id", Kind: KeyKindS, HashKey: true},
			{Name: "payload", Kind: KeyKindS},
		},
	}
	meta, err := ExtractKeyMetadata(def)
	require.NoError(t, err)
	assert.Equal(t, "id", meta.HashKey)
	assert.Empty(t, meta.RangeKey)
	assert.Empty(t, meta.GSIs)
	assert.Empty(t, meta.LSIs)
}

func TestExtractKeyMetadataMissingHashKey(t *testing.T) {
	def := Definition{
		TableName: "broken",
		Attributes: []AttributeDefinition{
			{Name: "tenant_id", Kind: KeyKindS, RangeKey: true},
			{Name: "payload", Kind: KeyKindS},
		},
	}
	_, err := ExtractKeyMetadata(def)
	require.ErrorIs(t, err, ErrMissingHashKey)
}

func TestExtractKeyMetadataMalformedIndex(t *testing.T) {
	def := Definition{
		TableName: "customers",
		Attributes: []AttributeDefinition{
			{Name: "customer_id", Kind: KeyKindS, HashKey: true},
		},
		GlobalIndexes: []IndexDefinition{
			// No attribute marked as hash key. Extraction stays silent;
			// querying this index fails at the storage layer.
			{Name: "broken-index", Attributes: []AttributeDefinition{
				{Name: "email", Kind: KeyKindS},
			}},
		},
	}
	meta, err := ExtractKeyMetadata(def)
	require.NoError(t, err)
	require.Len(t, meta.GSIs, 1)
	assert.Empty(t, meta.GSIs[0].HashKey)
}

func TestKeyMetadataIndexLookup(t *testing.T) {
	meta, err := ExtractKeyMetadata(customerDefinition())
	require.NoError(t, err)

	idx, ok := meta.Index("status-index")
	require.True(t, ok)
	assert.Equal(t, "status", idx.HashKey)

	idx, ok = meta.Index("created-index")
	require.True(t, ok)
	assert.Equal(t, "created_at", idx.RangeKey)

	_, ok = meta.Index("nope")
	assert.False(t, ok)
}
