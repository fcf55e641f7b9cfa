package dsl

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvOnce sync.Once
	celEnvErr  error
)

// getCELEnv 获取或创建 CEL 环境，定义内容记录可见的变量。
func getCELEnv() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = cel.NewEnv(
			cel.Variable("record", cel.DynType),
		)
	})
	return celEnv, celEnvErr
}

// Eval 是内容相关性 DSL 解释器，使用 CEL (Common Expression Language) 实现。
// 表达式在构造时编译一次，之后可以对任意多条记录反复求值，线程安全。
//
// 表达式里可见一个 record 变量，字段由调用方提供（stream 包传入
// id/text/score/comment_count/source/age_hours）：
//   - `record.score + record.comment_count > 100.0`
//   - `record.source == "streetwear" && record.comment_count > 10`
//   - `record.text.contains("lighting")`
type Eval struct {
	expr string
	prg  cel.Program
}

// NewEval 编译一个 DSL 表达式。空表达式合法，求值恒为 true。
func NewEval(expr string) (*Eval, error) {
	e := &Eval{expr: expr}
	if expr == "" {
		return e, nil
	}

	env, err := getCELEnv()
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile error: %v", issues.Err())
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program error: %w", err)
	}
	e.prg = prg
	return e, nil
}

// Evaluate 对一条记录求值，返回布尔结果。
// 表达式结果不是 bool 时视为求值错误。
func (e *Eval) Evaluate(record map[string]any) (bool, error) {
	if e.prg == nil {
		return true, nil
	}

	out, _, err := e.prg.Eval(map[string]any{"record": record})
	if err != nil {
		return false, fmt.Errorf("eval error: %w", err)
	}

	b, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression %q did not evaluate to bool", e.expr)
	}
	return b, nil
}
