package engine

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/commission-next/internal/constants"
	"github.com/commission-next/internal/models"

	"github.com/shopspring/decimal"
)

// Strategy 佣金计算策略
// Validate 在规则录入时拒绝非法配置；Calculate 在流水线内执行，必须无副作用。
type Strategy interface {
	Validate(config models.JSON) error
	Calculate(ctx *Context) (decimal.Decimal, error)
}

// Registry 策略注册表
// 启动期注册完毕后只读，可被并发计算安全共享。
type Registry struct {
	mu         sync.RWMutex
	strategies map[string]Strategy
}

// NewRegistry 创建注册表并装载内置策略
func NewRegistry() *Registry {
	r := &Registry{strategies: make(map[string]Strategy)}
	r.Register(constants.RuleTypeBaseRate, BaseRateStrategy{})
	r.Register(constants.RuleTypeTiered, TieredStrategy{})
	r.Register(constants.RuleTypeBonus, BonusStrategy{})
	r.Register(constants.RuleTypeAccelerator, AcceleratorStrategy{})
	r.Register(constants.RuleTypeDecelerator, DeceleratorStrategy{})
	r.Register(constants.RuleTypeProductRate, ProductRateStrategy{})
	r.Register(constants.RuleTypePerformanceGate, PerformanceGateStrategy{})
	r.Register(constants.RuleTypeTeamSplit, TeamSplitStrategy{})
	return r
}

// Register 注册策略（同名覆盖）
func (r *Registry) Register(ruleType string, strategy Strategy) {
	if r == nil || strategy == nil {
		return
	}
	normalized := strings.TrimSpace(ruleType)
	if normalized == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.strategies[normalized] = strategy
}

// Get 按规则类型查找策略
func (r *Registry) Get(ruleType string) (Strategy, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	strategy, ok := r.strategies[strings.TrimSpace(ruleType)]
	return strategy, ok
}

// Types 返回已注册的规则类型（排序后）
func (r *Registry) Types() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.strategies))
	for ruleType := range r.strategies {
		types = append(types, ruleType)
	}
	sort.Strings(types)
	return types
}

// configDecimal 读取配置中的数值字段
func configDecimal(config models.JSON, key string) (decimal.Decimal, bool) {
	if config == nil {
		return decimal.Decimal{}, false
	}
	value, ok := config[key]
	if !ok {
		return decimal.Decimal{}, false
	}
	return toDecimal(value)
}

// configString 读取配置中的字符串字段
func configString(config models.JSON, key string) string {
	if config == nil {
		return ""
	}
	value, ok := config[key]
	if !ok {
		return ""
	}
	s, _ := value.(string)
	return strings.TrimSpace(s)
}

// configStringSlice 读取配置中的字符串数组字段
func configStringSlice(config models.JSON, key string) []string {
	if config == nil {
		return nil
	}
	raw, ok := config[key].([]interface{})
	if !ok {
		return nil
	}
	result := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, isString := item.(string); isString {
			result = append(result, s)
		}
	}
	return result
}

// configObjectSlice 读取配置中的对象数组字段
func configObjectSlice(config models.JSON, key string) []map[string]interface{} {
	if config == nil {
		return nil
	}
	raw, ok := config[key].([]interface{})
	if !ok {
		return nil
	}
	result := make([]map[string]interface{}, 0, len(raw))
	for _, item := range raw {
		if m, isMap := item.(map[string]interface{}); isMap {
			result = append(result, m)
		}
	}
	return result
}

// configObject 读取配置中的嵌套对象字段
func configObject(config models.JSON, key string) map[string]interface{} {
	if config == nil {
		return nil
	}
	m, _ := config[key].(map[string]interface{})
	return m
}

func missingConfigErr(ruleType, key string) error {
	return fmt.Errorf("%s config requires %s", ruleType, key)
}
