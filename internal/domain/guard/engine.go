// Package guard evaluates operator-configured CEL expressions against a
// tool call before it reaches the org platform. Guards supplement the
// access gate: they can only deny, never grant, and an empty guard set
// allows everything.
package guard

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/cel-go/cel"
)

// maxExpressionLength bounds configured expressions.
const maxExpressionLength = 1024

// maxCostBudget is the CEL runtime cost limit per evaluation.
const maxCostBudget = 100_000

// evalTimeout caps a single guard evaluation.
const evalTimeout = 5 * time.Second

// interruptCheckFreq is how often (in comprehension iterations) context
// cancellation is checked during evaluation.
const interruptCheckFreq = 100

// Rule is one configured guard: a name reported on denial and a CEL
// expression over {tool, org, args} that denies when it evaluates true.
type Rule struct {
	Name       string
	Expression string
}

// Decision is the outcome of checking a tool call against all guards.
type Decision struct {
	Denied bool
	Rule   string
}

type compiledRule struct {
	name    string
	program cel.Program
}

// Engine holds the compiled guard set. Expressions are compiled once at
// startup; a malformed expression is a configuration error and fatal.
type Engine struct {
	rules []compiledRule
	cache *decisionCache
}

// NewEngine compiles all configured rules. Returns an error naming the
// first rule that fails to compile.
func NewEngine(rules []Rule) (*Engine, error) {
	env, err := newEnv()
	if err != nil {
		return nil, fmt.Errorf("creating guard environment: %w", err)
	}

	e := &Engine{cache: newDecisionCache(1000)}
	for _, rule := range rules {
		if len(rule.Expression) > maxExpressionLength {
			return nil, fmt.Errorf("guard %q: expression too long (%d chars, max %d)",
				rule.Name, len(rule.Expression), maxExpressionLength)
		}
		ast, issues := env.Compile(rule.Expression)
		if issues != nil && issues.Err() != nil {
			return nil, fmt.Errorf("guard %q: %w", rule.Name, issues.Err())
		}
		prg, err := env.Program(ast,
			cel.EvalOptions(cel.OptOptimize),
			cel.CostLimit(maxCostBudget),
			cel.InterruptCheckFrequency(interruptCheckFreq),
		)
		if err != nil {
			return nil, fmt.Errorf("guard %q: %w", rule.Name, err)
		}
		e.rules = append(e.rules, compiledRule{name: rule.Name, program: prg})
	}
	return e, nil
}

func newEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("tool", cel.StringType),
		cel.Variable("org", cel.StringType),
		cel.Variable("args", cel.MapType(cel.StringType, cel.DynType)),
	)
}

// Check evaluates every guard in order; the first that matches denies the
// call. Decisions are cached by (tool, org, args).
func (e *Engine) Check(ctx context.Context, toolName, org string, args map[string]any) (Decision, error) {
	if len(e.rules) == 0 {
		return Decision{}, nil
	}

	key := decisionKey(toolName, org, args)
	if d, ok := e.cache.get(key); ok {
		return d, nil
	}

	activation := map[string]any{
		"tool": toolName,
		"org":  org,
		"args": args,
	}
	if args == nil {
		activation["args"] = map[string]any{}
	}

	evalCtx, cancel := context.WithTimeout(ctx, evalTimeout)
	defer cancel()

	for _, rule := range e.rules {
		result, _, err := rule.program.ContextEval(evalCtx, activation)
		if err != nil {
			return Decision{}, fmt.Errorf("guard %q evaluation failed: %w", rule.name, err)
		}
		matched, ok := result.Value().(bool)
		if !ok {
			return Decision{}, fmt.Errorf("guard %q did not return a boolean, got %T", rule.name, result.Value())
		}
		if matched {
			d := Decision{Denied: true, Rule: rule.name}
			e.cache.put(key, d)
			return d, nil
		}
	}

	d := Decision{}
	e.cache.put(key, d)
	return d, nil
}

// decisionKey hashes the evaluation inputs. Args go through JSON for a
// deterministic encoding.
func decisionKey(toolName, org string, args map[string]any) uint64 {
	h := xxhash.New()
	_, _ = h.WriteString(toolName)
	_, _ = h.Write([]byte{0})
	_, _ = h.WriteString(org)
	_, _ = h.Write([]byte{0})
	if len(args) > 0 {
		raw, _ := json.Marshal(args)
		_, _ = h.Write(raw)
	}
	return h.Sum64()
}
