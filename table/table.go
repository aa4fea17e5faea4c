// Package table describes entity models: the table an entity lives in, its
// attributes, which of them form the primary key, and its secondary indexes.
// The repository derives all key handling from these descriptors, so
// application code never passes attribute-name strings around.
package table

// KeyKind is the DynamoDB scalar type of a key attribute.
type KeyKind string

const (
	KeyKindS KeyKind = "S"
	KeyKindN KeyKind = "N"
	KeyKindB KeyKind = "B"
)

// AttributeDefinition declares a single attribute. At most one attribute of a
// Definition (or of an IndexDefinition) may be marked HashKey, and at most one
// RangeKey.
type AttributeDefinition struct {
	Name     string
	Kind     KeyKind
	HashKey  bool
	RangeKey bool
}

// IndexDefinition declares a secondary index. Global indexes carry their own
// partition key; local indexes share the table's partition key and differ only
// in sort key, but both are declared the same way: an attribute set with
// hash/range markers.
type IndexDefinition struct {
	Name       string
	Attributes []AttributeDefinition
}

// Definition declares an entity's table layout.
type Definition struct {
	TableName     string
	Attributes    []AttributeDefinition
	GlobalIndexes []IndexDefinition
	LocalIndexes  []IndexDefinition
}

// PrimaryKeyDefinition derives the key schema from the attribute markers.
// If no attribute is marked as hash key the partition key is left empty;
// ExtractKeyMetadata is the place that turns that into an error.
func (d Definition) PrimaryKeyDefinition() PrimaryKeyDefinition {
	return keySchemaOf(d.Attributes)
}

// PrimaryKeyDefinition derives the index's key schema the same way the table
// derives its own.
func (i IndexDefinition) PrimaryKeyDefinition() PrimaryKeyDefinition {
	return keySchemaOf(i.Attributes)
}

// Index looks up a secondary index by name, searching global indexes first.
func (d Definition) Index(name string) (IndexDefinition, bool) {
	for _, idx := range d.GlobalIndexes {
		if idx.Name == name {
			return idx, true
		}
	}
	for _, idx := range d.LocalIndexes {
		if idx.Name == name {
			return idx, true
		}
	}
	return IndexDefinition{}, false
}

func keySchemaOf(attrs []AttributeDefinition) PrimaryKeyDefinition {
	var def PrimaryKeyDefinition
	for _, a := range attrs {
		if a.HashKey && def.PartitionKey.Name == "" {
			def.PartitionKey = KeyDef{Name: a.Name, Kind: a.Kind}
		}
		if a.RangeKey && def.SortKey.Name == "" {
			def.SortKey = KeyDef{Name: a.Name, Kind: a.Kind}
		}
	}
	return def
}
