package table

import "errors"

// ErrMissingHashKey is returned when an entity declares no hash-key attribute.
// This is the only invariant the extractor enforces.
var ErrMissingHashKey = errors.New("entity declares no hash key attribute")

// IndexKeyMetadata names the key attributes of one secondary index. HashKey
// may be empty for a malformed index declaration; queries against such an
// index fail at the storage layer, not here.
type IndexKeyMetadata struct {
	Name     string
	HashKey  string
	RangeKey string
}

// KeyMetadata is the derived, read-only key layout of an entity type.
// Recomputing it is idempotent and side-effect-free.
type KeyMetadata struct {
	HashKey  string
	RangeKey string // empty when the entity declares no range key
	GSIs     []IndexKeyMetadata
	LSIs     []IndexKeyMetadata
}

// ExtractKeyMetadata derives the key layout from an entity definition: a
// single pass over the declared attributes for the table key, and one pass
// per index for the index keys. Index order follows declaration order.
func ExtractKeyMetadata(def Definition) (KeyMetadata, error) {
	var meta KeyMetadata
	for _, a := range def.Attributes {
		if a.HashKey && meta.HashKey == "" {
			meta.HashKey = a.Name
		} else if a.RangeKey && meta.RangeKey == "" {
			meta.RangeKey = a.Name
		}
	}
	if meta.HashKey == "" {
		return KeyMetadata{}, ErrMissingHashKey
	}
	for _, idx := range def.GlobalIndexes {
		meta.GSIs = append(meta.GSIs, indexKeys(idx))
	}
	for _, idx := range def.LocalIndexes {
		meta.LSIs = append(meta.LSIs, indexKeys(idx))
	}
	return meta, nil
}

// Index looks up the key metadata of a named index, global indexes first.
func (m KeyMetadata) Index(name string) (IndexKeyMetadata, bool) {
	for _, idx := range m.GSIs {
		if idx.Name == name {
			return idx, true
		}
	}
	for _, idx := range m.LSIs {
		if idx.Name == name {
			return idx, true
		}
	}
	return IndexKeyMetadata{}, false
}

func indexKeys(idx IndexDefinition) IndexKeyMetadata {
	keys := IndexKeyMetadata{Name: idx.Name}
	for _, a := range idx.Attributes {
		if a.HashKey && keys.HashKey == "" {
			keys.HashKey = a.Name
		} else if a.RangeKey && keys.RangeKey == "" {
			keys.RangeKey = a.Name
		}
	}
	return keys
}
