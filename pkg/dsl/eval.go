package dsl

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/rushteam/dealkit/core"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvOnce sync.Once
)

// initCELEnv 初始化 CEL 环境，定义变量
func initCELEnv() (*cel.Env, error) {
	env, err := cel.NewEnv(
		cel.Variable("item", cel.DynType),
		cel.Variable("deal", cel.DynType),
		cel.Variable("label", cel.DynType),
		cel.Variable("rctx", cel.DynType),
	)
	return env, err
}

// getCELEnv 获取或创建 CEL 环境
func getCELEnv() (*cel.Env, error) {
	var err error
	celEnvOnce.Do(func() {
		celEnv, err = initCELEnv()
	})
	return celEnv, err
}

// Eval 是规则 DSL 解释器，使用 CEL (Common Expression Language) 实现。
//
// 表达式语法（CEL 标准语法）：
//   - 候选维度：item.score > 0.7 / deal.cashback >= 5.0
//   - 标签维度：label.recall_source == "vector"
//   - 上下文维度：rctx.user_id != ""
//   - 逻辑组合：deal.cashbackType == "percent" && deal.cashback > 3.0
//   - 包含："SE" in deal.countries
//
// 示例：
//   - `"DE" in deal.countries` → 只保留在德国可用的 deal
//   - `deal.cashback >= 2.0 || label.recall_source == "graph"`
//
// 注意：访问不存在的 key 会报错，用 key != null 先做存在性检查。
type Eval struct {
	item *core.Item
	rctx *core.RecommendContext
	env  *cel.Env
}

// NewEval 创建一个新的 DSL 解释器。
func NewEval(item *core.Item, rctx *core.RecommendContext) *Eval {
	env, _ := getCELEnv()
	return &Eval{
		item: item,
		rctx: rctx,
		env:  env,
	}
}

// Evaluate 解析并执行 DSL 表达式，返回布尔结果。
// 空表达式视为 true。
func (e *Eval) Evaluate(expr string) (bool, error) {
	if expr == "" {
		return true, nil
	}
	if e.env == nil {
		return false, fmt.Errorf("cel env not initialized")
	}

	ast, issues := e.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return false, fmt.Errorf("compile error: %v", issues.Err())
	}

	prg, err := e.env.Program(ast)
	if err != nil {
		return false, fmt.Errorf("program error: %v", err)
	}

	out, _, err := prg.Eval(e.buildInput())
	if err != nil {
		return false, fmt.Errorf("eval error: %v", err)
	}

	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression must return boolean, got %T", out.Value())
	}

	return result, nil
}

// buildInput 构建 CEL 表达式的输入数据
func (e *Eval) buildInput() map[string]any {
	labels := make(map[string]any)
	labelAccessor := make(map[string]any)
	for k, v := range e.item.Labels {
		labels[k] = map[string]any{"value": v.Value, "source": v.Source}
		// label.recall_source 直接取 value，兼容简写
		labelAccessor[k] = v.Value
	}

	item := map[string]any{
		"id":     e.item.ID,
		"score":  e.item.Score,
		"meta":   e.item.Meta,
		"labels": labels,
	}

	// deal 是 item.Meta 的顶层别名：Meta 承载 Deal payload 透传字段
	deal := e.item.Meta
	if deal == nil {
		deal = map[string]any{}
	}

	rctx := map[string]any{}
	if e.rctx != nil {
		rctx["user_id"] = e.rctx.UserID
		rctx["device_id"] = e.rctx.DeviceID
		rctx["scene"] = e.rctx.Scene
		rctx["params"] = e.rctx.Params
	}

	return map[string]any{
		"item":  item,
		"deal":  deal,
		"label": labelAccessor,
		"rctx":  rctx,
	}
}
