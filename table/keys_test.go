package table

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func compositeKeyDef() PrimaryKeyDefinition {
	return PrimaryKeyDefinition{
		PartitionKey: KeyDef{Name: "customer_id", Kind: KeyKindS},
		SortKey:      KeyDef{Name: "tenant_id", Kind: KeyKindS},
	}
}

func TestPrimaryKeyDDB(t *testing.T) {
	pk := PrimaryKey{
		Definition: compositeKeyDef(),
		Values:     PrimaryKeyValues{PartitionKey: "C0001", SortKey: "T1"},
	}
	av, err := pk.DDB()
	require.NoError(t, err)
	assert.Equal(t, &types.AttributeValueMemberS{Value: "C0001"}, av["customer_id"])
	assert.Equal(t, &types.AttributeValueMemberS{Value: "T1"}, av["tenant_id"])
}

func TestPrimaryKeyDDBNumericKey(t *testing.T) {
	pk := PrimaryKey{
		Definition: PrimaryKeyDefinition{
			PartitionKey: KeyDef{Name: "seq", Kind: KeyKindN},
		},
		Values: PrimaryKeyValues{PartitionKey: 42},
	}
	av, err := pk.DDB()
	require.NoError(t, err)
	assert.Equal(t, &types.AttributeValueMemberN{Value: "42"}, av["seq"])
	assert.Len(t, av, 1)
}

func TestPrimaryKeyDDBKindMismatch(t *testing.T) {
	pk := PrimaryKey{
		Definition: PrimaryKeyDefinition{
			PartitionKey: KeyDef{Name: "customer_id", Kind: KeyKindS},
		},
		Values: PrimaryKeyValues{PartitionKey: 42},
	}
	_, err := pk.DDB()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "customer_id")
}

func TestPrimaryKeyDDBMissingSortKey(t *testing.T) {
	pk := PrimaryKey{
		Definition: compositeKeyDef(),
		Values:     PrimaryKeyValues{PartitionKey: "C0001"},
	}
	_, err := pk.DDB()
	require.Error(t, err)
}

func TestExtractPrimaryKey(t *testing.T) {
	doc := map[string]types.AttributeValue{
		"customer_id": &types.AttributeValueMemberS{Value: "C0001"},
		"tenant_id":   &types.AttributeValueMemberS{Value: "T1"},
		"name":        &types.AttributeValueMemberS{Value: "User 1"},
	}
	pk, err := compositeKeyDef().ExtractPrimaryKey(doc)
	require.NoError(t, err)
	assert.Equal(t, "C0001", pk.Values.PartitionKey)
	assert.Equal(t, "T1", pk.Values.SortKey)
}

func TestExtractPrimaryKeyMissingAttribute(t *testing.T) {
	doc := map[string]types.AttributeValue{
		"customer_id": &types.AttributeValueMemberS{Value: "C0001"},
	}
	_, err := compositeKeyDef().ExtractPrimaryKey(doc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tenant_id")
}
