package screener

import (
	"fmt"
	"strings"
)

// Operator is a numeric comparison operator
type Operator string

const (
	OpGreater      Operator = ">"
	OpLess         Operator = "<"
	OpEqual        Operator = "="
	OpGreaterEqual Operator = ">="
	OpLessEqual    Operator = "<="
)

// ParseOperator validates a comparison operator. "==" is accepted as "=".
func ParseOperator(op string) (Operator, error) {
	switch Operator(op) {
	case OpGreater, OpLess, OpEqual, OpGreaterEqual, OpLessEqual:
		return Operator(op), nil
	case "==":
		return OpEqual, nil
	default:
		return "", fmt.Errorf("%w: unsupported operator %q (supported: >, <, =, >=, <=)", ErrInvalidQuery, op)
	}
}

// Compare applies the operator. Equality is exact.
func (op Operator) Compare(left, right float64) bool {
	switch op {
	case OpGreater:
		return left > right
	case OpLess:
		return left < right
	case OpEqual:
		return left == right
	case OpGreaterEqual:
		return left >= right
	case OpLessEqual:
		return left <= right
	default:
		return false
	}
}

// Logic joins the conditions of a group
type Logic string

const (
	LogicAnd Logic = "and"
	LogicOr  Logic = "or"
)

// ParseLogic validates a group's logic, case-insensitively
func ParseLogic(s string) (Logic, error) {
	switch Logic(strings.ToLower(s)) {
	case LogicAnd:
		return LogicAnd, nil
	case LogicOr:
		return LogicOr, nil
	default:
		return "", fmt.Errorf("%w: unsupported logic %q (supported: and, or)", ErrInvalidQuery, s)
	}
}

// fieldNames are the candle fields an operand may reference with a # prefix
var fieldNames = map[string]bool{
	"open":   true,
	"high":   true,
	"low":    true,
	"close":  true,
	"volume": true,
}

// ValidateIndicatorKey checks that an indicator reference is well-formed
func ValidateIndicatorKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: indicator name cannot be empty", ErrInvalidQuery)
	}
	for _, r := range key {
		if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' || r == '.') {
			return fmt.Errorf("%w: indicator name %q contains invalid character %q", ErrInvalidQuery, key, r)
		}
	}
	return nil
}
