package screener

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/mohamedkhairy/trade-journal/internal/models"
	"github.com/mohamedkhairy/trade-journal/pkg/logger"
)

// ErrInvalidQuery is returned when a query document does not match the grammar
var ErrInvalidQuery = errors.New("invalid screener query")

// Query is a validated screener query tree.
//
// The JSON grammar is:
//
//	"alert_key"                                         alert reference
//	{"indicator": "rvol_20", "compare": ">=", "value": 2}  indicator comparison
//	{"leftValue": "#close", "operator": ">", "rightValue": "sma_50"}
//	{"logic": "and", "conditions": [ ... ]}             logic group
//
// Operands are number literals, #open/#high/#low/#close/#volume fields, or bare
// indicator keys.
type Query struct {
	root node
}

type node interface {
	eval(c *models.Candle) bool
}

// ParseQuery parses and validates a whole query document
func ParseQuery(data []byte) (*Query, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: malformed JSON", ErrInvalidQuery)
	}
	root, err := parseNode(gjson.ParseBytes(data), "$")
	if err != nil {
		return nil, err
	}
	return &Query{root: root}, nil
}

// LoadQuery parses a persisted query document. An empty or invalid document
// yields a nil query, which matches every candle.
func LoadQuery(data []byte) *Query {
	if len(strings.TrimSpace(string(data))) == 0 || string(data) == "null" {
		return nil
	}
	q, err := ParseQuery(data)
	if err != nil {
		invalidQueries.Inc()
		logger.Warn("Ignoring invalid screener query",
			logger.ErrorField(err),
		)
		return nil
	}
	return q
}

// Evaluate reports whether the candle matches. A nil query matches everything.
func (q *Query) Evaluate(c *models.Candle) bool {
	if q == nil || q.root == nil {
		return true
	}
	if c == nil {
		return false
	}
	return q.root.eval(c)
}

func parseNode(r gjson.Result, path string) (node, error) {
	switch {
	case r.Type == gjson.String:
		if r.Str == "" {
			return nil, fmt.Errorf("%w: %s: empty alert reference", ErrInvalidQuery, path)
		}
		return alertNode{key: r.Str}, nil

	case r.IsObject():
		if logic := r.Get("logic"); logic.Exists() {
			return parseGroup(r, logic, path)
		}
		if ind := r.Get("indicator"); ind.Exists() {
			return parseIndicatorComparison(r, ind, path)
		}
		if r.Get("leftValue").Exists() {
			return parseValueComparison(r, path)
		}
		return nil, fmt.Errorf("%w: %s: unrecognised condition %s", ErrInvalidQuery, path, r.Raw)

	default:
		return nil, fmt.Errorf("%w: %s: unexpected %s", ErrInvalidQuery, path, r.Raw)
	}
}

func parseGroup(r, logicField gjson.Result, path string) (node, error) {
	if logicField.Type != gjson.String {
		return nil, fmt.Errorf("%w: %s: logic must be a string", ErrInvalidQuery, path)
	}
	logic, err := ParseLogic(logicField.Str)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	conditions := r.Get("conditions")
	if !conditions.IsArray() {
		return nil, fmt.Errorf("%w: %s: conditions must be an array", ErrInvalidQuery, path)
	}
	items := conditions.Array()
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: %s: a logic group needs at least one condition", ErrInvalidQuery, path)
	}

	group := groupNode{logic: logic, children: make([]node, 0, len(items))}
	for i, item := range items {
		child, err := parseNode(item, fmt.Sprintf("%s.conditions[%d]", path, i))
		if err != nil {
			return nil, err
		}
		group.children = append(group.children, child)
	}
	return group, nil
}

func parseIndicatorComparison(r, indicator gjson.Result, path string) (node, error) {
	if indicator.Type != gjson.String {
		return nil, fmt.Errorf("%w: %s: indicator must be a string", ErrInvalidQuery, path)
	}
	left, err := parseOperandString(indicator.Str)
	if err != nil {
		return nil, fmt.Errorf("%s.indicator: %w", path, err)
	}
	op, err := parseOperatorField(r.Get("compare"), path+".compare")
	if err != nil {
		return nil, err
	}
	right, err := parseOperand(r.Get("value"), path+".value")
	if err != nil {
		return nil, err
	}
	return comparisonNode{left: left, op: op, right: right}, nil
}

func parseValueComparison(r gjson.Result, path string) (node, error) {
	left, err := parseOperand(r.Get("leftValue"), path+".leftValue")
	if err != nil {
		return nil, err
	}
	op, err := parseOperatorField(r.Get("operator"), path+".operator")
	if err != nil {
		return nil, err
	}
	right, err := parseOperand(r.Get("rightValue"), path+".rightValue")
	if err != nil {
		return nil, err
	}
	return comparisonNode{left: left, op: op, right: right}, nil
}

func parseOperatorField(r gjson.Result, path string) (Operator, error) {
	if r.Type != gjson.String {
		return "", fmt.Errorf("%w: %s: operator must be a string", ErrInvalidQuery, path)
	}
	op, err := ParseOperator(r.Str)
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	return op, nil
}

func parseOperand(r gjson.Result, path string) (operand, error) {
	switch r.Type {
	case gjson.Number:
		return operand{kind: operandLiteral, literal: r.Num}, nil
	case gjson.String:
		o, err := parseOperandString(r.Str)
		if err != nil {
			return operand{}, fmt.Errorf("%s: %w", path, err)
		}
		return o, nil
	default:
		if !r.Exists() {
			return operand{}, fmt.Errorf("%w: %s: missing operand", ErrInvalidQuery, path)
		}
		return operand{}, fmt.Errorf("%w: %s: operand must be a number or a string, got %s", ErrInvalidQuery, path, r.Raw)
	}
}

// parseOperandString parses a #field or an indicator key
func parseOperandString(s string) (operand, error) {
	if name, ok := strings.CutPrefix(s, "#"); ok {
		if !fieldNames[name] {
			return operand{}, fmt.Errorf("%w: unknown field %q", ErrInvalidQuery, s)
		}
		return operand{kind: operandField, name: name}, nil
	}
	if err := ValidateIndicatorKey(s); err != nil {
		return operand{}, err
	}
	return operand{kind: operandIndicator, name: s}, nil
}

type operandKind int

const (
	operandLiteral operandKind = iota
	operandField
	operandIndicator
)

type operand struct {
	kind    operandKind
	literal float64
	name    string
}

// resolve dereferences the operand; ok is false for a missing or empty indicator
func (o operand) resolve(c *models.Candle) (float64, bool) {
	switch o.kind {
	case operandLiteral:
		return o.literal, true
	case operandField:
		return c.Field(o.name)
	default:
		return c.Indicator(o.name)
	}
}

type alertNode struct {
	key string
}

func (n alertNode) eval(c *models.Candle) bool {
	return c.Alerts.Has(n.key)
}

type comparisonNode struct {
	left  operand
	op    Operator
	right operand
}

func (n comparisonNode) eval(c *models.Candle) bool {
	l, ok := n.left.resolve(c)
	if !ok {
		return false
	}
	r, ok := n.right.resolve(c)
	if !ok {
		return false
	}
	return n.op.Compare(l, r)
}

type groupNode struct {
	logic    Logic
	children []node
}

func (n groupNode) eval(c *models.Candle) bool {
	if n.logic == LogicOr {
		for _, child := range n.children {
			if child.eval(c) {
				return true
			}
		}
		return false
	}
	for _, child := range n.children {
		if !child.eval(c) {
			return false
		}
	}
	return true
}
