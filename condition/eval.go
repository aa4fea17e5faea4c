package condition

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Matches evaluates the condition against a raw item. Paths are treated as
// top-level attribute names. Comparisons across differing attribute types
// never match (and for NotEquals always match), mirroring how the service
// evaluates filters.
func (c Condition) Matches(item map[string]types.AttributeValue) (bool, error) {
	switch c.op {
	case opNone:
		return true, nil
	case opAnd:
		for _, child := range c.children {
			ok, err := child.Matches(item)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	case opOr:
		for _, child := range c.children {
			ok, err := child.Matches(item)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	case opAttributeExists:
		_, ok := item[c.path]
		return ok, nil
	case opAttributeNotExists:
		_, ok := item[c.path]
		return !ok, nil
	}

	got, ok := item[c.path]
	if !ok {
		return false, nil
	}

	switch c.op {
	case opEqual, opNotEqual, opLessThan, opLessThanOrEqual, opGreaterThan, opGreaterThanOrEqual:
		want, err := attributevalue.Marshal(c.values[0])
		if err != nil {
			return false, fmt.Errorf("marshal condition value for %q: %w", c.path, err)
		}
		cmp, cmpOK := compareAttributeValues(got, want)
		if !cmpOK {
			return c.op == opNotEqual, nil
		}
		switch c.op {
		case opEqual:
			return cmp == 0, nil
		case opNotEqual:
			return cmp != 0, nil
		case opLessThan:
			return cmp < 0, nil
		case opLessThanOrEqual:
			return cmp <= 0, nil
		case opGreaterThan:
			return cmp > 0, nil
		default:
			return cmp >= 0, nil
		}
	case opBetween:
		lo, err := attributevalue.Marshal(c.values[0])
		if err != nil {
			return false, fmt.Errorf("marshal condition value for %q: %w", c.path, err)
		}
		hi, err := attributevalue.Marshal(c.values[1])
		if err != nil {
			return false, fmt.Errorf("marshal condition value for %q: %w", c.path, err)
		}
		cmpLo, okLo := compareAttributeValues(got, lo)
		cmpHi, okHi := compareAttributeValues(got, hi)
		return okLo && okHi && cmpLo >= 0 && cmpHi <= 0, nil
	case opBeginsWith:
		prefix, ok := c.values[0].(string)
		if !ok {
			return false, fmt.Errorf("begins_with on %q needs a string prefix, got %T", c.path, c.values[0])
		}
		s, ok := got.(*types.AttributeValueMemberS)
		if !ok {
			return false, nil
		}
		return strings.HasPrefix(s.Value, prefix), nil
	case opContains:
		sub, ok := c.values[0].(string)
		if !ok {
			return false, fmt.Errorf("contains on %q needs a string operand, got %T", c.path, c.values[0])
		}
		switch v := got.(type) {
		case *types.AttributeValueMemberS:
			return strings.Contains(v.Value, sub), nil
		case *types.AttributeValueMemberSS:
			for _, member := range v.Value {
				if member == sub {
					return true, nil
				}
			}
			return false, nil
		default:
			return false, nil
		}
	default:
		return false, fmt.Errorf("unknown condition operator %d", c.op)
	}
}

// compareAttributeValues orders two scalar attribute values of the same type.
// The second result is false when the values are of different types or of a
// type that has no ordering.
func compareAttributeValues(a, b types.AttributeValue) (int, bool) {
	switch av := a.(type) {
	case *types.AttributeValueMemberS:
		bv, ok := b.(*types.AttributeValueMemberS)
		if !ok {
			return 0, false
		}
		return strings.Compare(av.Value, bv.Value), true
	case *types.AttributeValueMemberN:
		bv, ok := b.(*types.AttributeValueMemberN)
		if !ok {
			return 0, false
		}
		af, err1 := strconv.ParseFloat(av.Value, 64)
		bf, err2 := strconv.ParseFloat(bv.Value, 64)
		if err1 != nil || err2 != nil {
			return 0, false
		}
		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		default:
			return 0, true
		}
	case *types.AttributeValueMemberB:
		bv, ok := b.(*types.AttributeValueMemberB)
		if !ok {
			return 0, false
		}
		return bytes.Compare(av.Value, bv.Value), true
	case *types.AttributeValueMemberBOOL:
		bv, ok := b.(*types.AttributeValueMemberBOOL)
		if !ok || av.Value != bv.Value {
			return 0, false
		}
		return 0, true
	default:
		return 0, false
	}
}
