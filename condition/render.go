package condition

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
)

// Filter renders the condition as a filter or condition expression builder.
func (c Condition) Filter() (expression.ConditionBuilder, error) {
	switch c.op {
	case opNone:
		return expression.ConditionBuilder{}, fmt.Errorf("cannot render an unset condition")
	case opEqual:
		return expression.Name(c.path).Equal(expression.Value(c.values[0])), nil
	case opNotEqual:
		return expression.Name(c.path).NotEqual(expression.Value(c.values[0])), nil
	case opLessThan:
		return expression.Name(c.path).LessThan(expression.Value(c.values[0])), nil
	case opLessThanOrEqual:
		return expression.Name(c.path).LessThanEqual(expression.Value(c.values[0])), nil
	case opGreaterThan:
		return expression.Name(c.path).GreaterThan(expression.Value(c.values[0])), nil
	case opGreaterThanOrEqual:
		return expression.Name(c.path).GreaterThanEqual(expression.Value(c.values[0])), nil
	case opBetween:
		return expression.Name(c.path).Between(expression.Value(c.values[0]), expression.Value(c.values[1])), nil
	case opBeginsWith:
		prefix, ok := c.values[0].(string)
		if !ok {
			return expression.ConditionBuilder{}, fmt.Errorf("begins_with on %q needs a string prefix, got %T", c.path, c.values[0])
		}
		return expression.Name(c.path).BeginsWith(prefix), nil
	case opContains:
		sub, ok := c.values[0].(string)
		if !ok {
			return expression.ConditionBuilder{}, fmt.Errorf("contains on %q needs a string operand, got %T", c.path, c.values[0])
		}
		return expression.Name(c.path).Contains(sub), nil
	case opAttributeExists:
		return expression.Name(c.path).AttributeExists(), nil
	case opAttributeNotExists:
		return expression.Name(c.path).AttributeNotExists(), nil
	case opAnd, opOr:
		parts := make([]expression.ConditionBuilder, 0, len(c.children))
		for _, child := range c.children {
			b, err := child.Filter()
			if err != nil {
				return expression.ConditionBuilder{}, err
			}
			parts = append(parts, b)
		}
		if c.op == opAnd {
			return expression.And(parts[0], parts[1], parts[2:]...), nil
		}
		return expression.Or(parts[0], parts[1], parts[2:]...), nil
	default:
		return expression.ConditionBuilder{}, fmt.Errorf("unknown condition operator %d", c.op)
	}
}

// KeyCondition renders the condition as a sort-key condition. Only the
// operators DynamoDB accepts on key attributes are allowed; composites and
// existence checks are not.
func (c Condition) KeyCondition() (expression.KeyConditionBuilder, error) {
	switch c.op {
	case opEqual:
		return expression.Key(c.path).Equal(expression.Value(c.values[0])), nil
	case opLessThan:
		return expression.Key(c.path).LessThan(expression.Value(c.values[0])), nil
	case opLessThanOrEqual:
		return expression.Key(c.path).LessThanEqual(expression.Value(c.values[0])), nil
	case opGreaterThan:
		return expression.Key(c.path).GreaterThan(expression.Value(c.values[0])), nil
	case opGreaterThanOrEqual:
		return expression.Key(c.path).GreaterThanEqual(expression.Value(c.values[0])), nil
	case opBetween:
		return expression.Key(c.path).Between(expression.Value(c.values[0]), expression.Value(c.values[1])), nil
	case opBeginsWith:
		prefix, ok := c.values[0].(string)
		if !ok {
			return expression.KeyConditionBuilder{}, fmt.Errorf("begins_with on %q needs a string prefix, got %T", c.path, c.values[0])
		}
		return expression.Key(c.path).BeginsWith(prefix), nil
	default:
		return expression.KeyConditionBuilder{}, fmt.Errorf("condition cannot be used on a key attribute")
	}
}

// Path returns the attribute path of a leaf condition, or "" for composites.
func (c Condition) Path() string {
	return c.path
}
