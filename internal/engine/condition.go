package engine

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/commission-next/internal/models"

	"github.com/shopspring/decimal"
)

// 条件比较运算符
const (
	OperatorEqual                = "equal"
	OperatorNotEqual             = "notEqual"
	OperatorGreaterThan          = "greaterThan"
	OperatorGreaterThanInclusive = "greaterThanInclusive"
	OperatorLessThan             = "lessThan"
	OperatorLessThanInclusive    = "lessThanInclusive"
	OperatorIn                   = "in"
)

// ConditionNode 条件树节点
// All/Any 二选一构成分组节点，否则为 fact/operator/value 叶子比较。
type ConditionNode struct {
	All      []ConditionNode `json:"all,omitempty"`
	Any      []ConditionNode `json:"any,omitempty"`
	Fact     string          `json:"fact,omitempty"`
	Operator string          `json:"operator,omitempty"`
	Value    interface{}     `json:"value,omitempty"`
}

// ParseConditions 从规则存储的 JSON 解析条件树；空输入视为无条件
func ParseConditions(raw models.JSON) (*ConditionNode, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("encode conditions failed: %w", err)
	}
	var node ConditionNode
	if err := json.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("decode conditions failed: %w", err)
	}
	return &node, nil
}

// EvaluateConditions 对事实表求值条件树
// 分组短路：all 遇假即假，any 遇真即真。无副作用。
func EvaluateConditions(node *ConditionNode, facts map[string]interface{}) (bool, error) {
	if node == nil {
		return true, nil
	}
	if len(node.All) > 0 {
		for i := range node.All {
			ok, err := EvaluateConditions(&node.All[i], facts)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil
	}
	if len(node.Any) > 0 {
		for i := range node.Any {
			ok, err := EvaluateConditions(&node.Any[i], facts)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	}
	return evaluateLeaf(node, facts)
}

func evaluateLeaf(node *ConditionNode, facts map[string]interface{}) (bool, error) {
	fact := strings.TrimSpace(node.Fact)
	if fact == "" {
		return false, fmt.Errorf("condition fact is required")
	}
	actual, found := resolveFact(fact, facts)
	if !found {
		return false, nil
	}
	return compare(actual, node.Operator, node.Value)
}

// resolveFact 支持点号路径（deal.product_type）逐级下钻
func resolveFact(fact string, facts map[string]interface{}) (interface{}, bool) {
	parts := strings.Split(fact, ".")
	var current interface{} = facts
	for _, part := range parts {
		switch m := current.(type) {
		case map[string]interface{}:
			value, ok := m[part]
			if !ok {
				return nil, false
			}
			current = value
		case models.JSON:
			value, ok := m[part]
			if !ok {
				return nil, false
			}
			current = value
		default:
			return nil, false
		}
	}
	return current, true
}

func compare(actual interface{}, operator string, expected interface{}) (bool, error) {
	switch operator {
	case OperatorEqual:
		return valuesEqual(actual, expected), nil
	case OperatorNotEqual:
		return !valuesEqual(actual, expected), nil
	case OperatorGreaterThan, OperatorGreaterThanInclusive, OperatorLessThan, OperatorLessThanInclusive:
		left, leftOK := toDecimal(actual)
		right, rightOK := toDecimal(expected)
		if !leftOK || !rightOK {
			return false, fmt.Errorf("operator %s requires numeric operands", operator)
		}
		switch operator {
		case OperatorGreaterThan:
			return left.GreaterThan(right), nil
		case OperatorGreaterThanInclusive:
			return left.GreaterThanOrEqual(right), nil
		case OperatorLessThan:
			return left.LessThan(right), nil
		default:
			return left.LessThanOrEqual(right), nil
		}
	case OperatorIn:
		list, ok := expected.([]interface{})
		if !ok {
			return false, fmt.Errorf("operator in requires a list value")
		}
		for _, candidate := range list {
			if valuesEqual(actual, candidate) {
				return true, nil
			}
		}
		return false, nil
	default:
		return false, fmt.Errorf("unknown condition operator: %s", operator)
	}
}

func valuesEqual(actual, expected interface{}) bool {
	left, leftOK := toDecimal(actual)
	right, rightOK := toDecimal(expected)
	if leftOK && rightOK {
		return left.Equal(right)
	}
	return fmt.Sprintf("%v", actual) == fmt.Sprintf("%v", expected)
}

// toDecimal 尽量把事实值转成 decimal 参与数值比较
func toDecimal(value interface{}) (decimal.Decimal, bool) {
	switch v := value.(type) {
	case decimal.Decimal:
		return v, true
	case models.Money:
		return v.Decimal, true
	case float64:
		return decimal.NewFromFloat(v), true
	case float32:
		return decimal.NewFromFloat32(v), true
	case int:
		return decimal.NewFromInt(int64(v)), true
	case int64:
		return decimal.NewFromInt(v), true
	case uint:
		return decimal.NewFromInt(int64(v)), true
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		return d, err == nil
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(v))
		return d, err == nil
	default:
		return decimal.Decimal{}, false
	}
}
