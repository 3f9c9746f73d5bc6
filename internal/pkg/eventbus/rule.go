package eventbus

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
)

var ruleEnv = sync.OnceValues(func() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("source", cel.StringType),
		cel.Variable("detailType", cel.StringType),
		cel.Variable("resources", cel.ListType(cel.StringType)),
		cel.Variable("detail", cel.DynType),
	)
})

// Rule 是编译后的订阅规则，基于 CEL 表达式，
// 例如 source == "ecommerce.orders" && detailType in ["OrderCreated"]
type Rule struct {
	expr string
	prg  cel.Program
}

// CompileRule 编译规则表达式
func CompileRule(expr string) (*Rule, error) {
	env, err := ruleEnv()
	if err != nil {
		return nil, fmt.Errorf("eventbus: create CEL env: %w", err)
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("eventbus: compile rule %q: %w", expr, issues.Err())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("eventbus: program rule %q: %w", expr, err)
	}
	return &Rule{expr: expr, prg: prg}, nil
}

// String 返回规则的原始表达式
func (r *Rule) String() string { return r.expr }

// Match 判断事件是否匹配规则
func (r *Rule) Match(evt Event) (bool, error) {
	var detail any = map[string]any{}
	if len(evt.Detail) > 0 {
		if err := json.Unmarshal(evt.Detail, &detail); err != nil {
			return false, fmt.Errorf("eventbus: decode detail for rule: %w", err)
		}
	}
	resources := evt.Resources
	if resources == nil {
		resources = []string{}
	}

	out, _, err := r.prg.Eval(map[string]any{
		"source":     evt.Source,
		"detailType": evt.DetailType,
		"resources":  resources,
		"detail":     detail,
	})
	if err != nil {
		return false, fmt.Errorf("eventbus: eval rule %q: %w", r.expr, err)
	}
	matched, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("eventbus: rule %q is not boolean", r.expr)
	}
	return matched, nil
}
