package expression

import (
	"fmt"
	"strconv"
	"strings"
)

// EvaluationContext holds the values expressions may reference: step
// entries keyed by step path, and static configuration. Nothing else is
// reachable from a condition.
type EvaluationContext struct {
	// Steps maps a step path to its entry: status, failed flag, and the
	// step's return values.
	Steps map[string]map[string]any
	// Config holds static configuration values.
	Config map[string]any
}

// NewEvaluationContext creates an empty EvaluationContext.
func NewEvaluationContext() *EvaluationContext {
	return &EvaluationContext{
		Steps:  make(map[string]map[string]any),
		Config: make(map[string]any),
	}
}

// WithConfig sets the config map.
func (c *EvaluationContext) WithConfig(cfg map[string]any) *EvaluationContext {
	c.Config = cfg
	return c
}

// SetStep records a step entry under its path.
func (c *EvaluationContext) SetStep(path string, entry map[string]any) {
	c.Steps[path] = entry
}

// Evaluator evaluates parsed condition expressions.
type Evaluator struct{}

// NewEvaluator creates a new Evaluator.
func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// Evaluate evaluates an AST with the given context.
func (e *Evaluator) Evaluate(ast *AST, ctx *EvaluationContext) (bool, error) {
	if ast == nil || ast.Root == nil {
		return false, NewEvaluationError("nil AST", nil)
	}

	result, err := e.evaluateNode(ast.Root, ctx)
	if err != nil {
		return false, err
	}

	return toBool(result)
}

// EvaluateString parses and evaluates an expression string.
func (e *Evaluator) EvaluateString(expr string, ctx *EvaluationContext) (bool, error) {
	ast, err := Parse(expr)
	if err != nil {
		return false, err
	}
	return e.Evaluate(ast, ctx)
}

// evaluateNode evaluates a single AST node.
func (e *Evaluator) evaluateNode(node Node, ctx *EvaluationContext) (any, error) {
	switch n := node.(type) {
	case *LiteralNode:
		return n.Value, nil

	case *PathNode:
		return e.resolvePath(n.Path, ctx)

	case *ComparisonNode:
		return e.evaluateComparison(n, ctx)

	case *LogicalNode:
		return e.evaluateLogical(n, ctx)

	case *NotNode:
		val, err := e.evaluateNode(n.Operand, ctx)
		if err != nil {
			return nil, err
		}
		b, err := toBool(val)
		if err != nil {
			return nil, err
		}
		return !b, nil

	default:
		return nil, NewEvaluationError(fmt.Sprintf("unknown node type: %T", node), nil)
	}
}

// resolvePath resolves a dotted path against the context. Supported
// roots are "steps" (steps.<path>.<field>...) and "config"
// (config.<key>...); a bare identifier resolves against config.
func (e *Evaluator) resolvePath(path string, ctx *EvaluationContext) (any, error) {
	if ctx == nil {
		return nil, NewPathNotFoundError(path)
	}

	parts := strings.Split(path, ".")

	switch parts[0] {
	case "steps":
		if len(parts) < 3 {
			return nil, NewEvaluationError(fmt.Sprintf("step reference '%s' must name a step and a field", path), nil)
		}
		entry, ok := ctx.Steps[parts[1]]
		if !ok {
			return nil, NewPathNotFoundError(path)
		}
		return navigate(entry, parts[2:], path)

	case "config":
		if len(parts) < 2 {
			return nil, NewEvaluationError(fmt.Sprintf("config reference '%s' must name a key", path), nil)
		}
		val, ok := ctx.Config[parts[1]]
		if !ok {
			return nil, NewPathNotFoundError(path)
		}
		if len(parts) == 2 {
			return val, nil
		}
		m, ok := val.(map[string]any)
		if !ok {
			return nil, NewEvaluationError(fmt.Sprintf("cannot navigate into config value '%s'", parts[1]), nil)
		}
		return navigate(m, parts[2:], path)

	default:
		if val, ok := ctx.Config[path]; ok {
			return val, nil
		}
		return nil, NewPathNotFoundError(path)
	}
}

// navigate walks the remaining path segments through nested maps.
func navigate(m map[string]any, parts []string, fullPath string) (any, error) {
	var current any = m
	for _, part := range parts {
		cm, ok := current.(map[string]any)
		if !ok {
			return nil, NewEvaluationError(fmt.Sprintf("cannot resolve '%s': '%s' is not a map", fullPath, part), nil)
		}
		current, ok = cm[part]
		if !ok {
			return nil, NewPathNotFoundError(fullPath)
		}
	}
	return current, nil
}

// evaluateComparison evaluates a comparison expression.
func (e *Evaluator) evaluateComparison(node *ComparisonNode, ctx *EvaluationContext) (bool, error) {
	left, err := e.evaluateNode(node.Left, ctx)
	if err != nil {
		return false, err
	}

	right, err := e.evaluateNode(node.Right, ctx)
	if err != nil {
		return false, err
	}

	return compare(left, right, node.Operator)
}

// evaluateLogical evaluates AND/OR with short-circuiting.
func (e *Evaluator) evaluateLogical(node *LogicalNode, ctx *EvaluationContext) (bool, error) {
	leftVal, err := e.evaluateNode(node.Left, ctx)
	if err != nil {
		return false, err
	}

	leftBool, err := toBool(leftVal)
	if err != nil {
		return false, err
	}

	switch node.Operator {
	case "AND":
		if !leftBool {
			return false, nil
		}
	case "OR":
		if leftBool {
			return true, nil
		}
	default:
		return false, NewEvaluationError(fmt.Sprintf("unknown logical operator: %s", node.Operator), nil)
	}

	rightVal, err := e.evaluateNode(node.Right, ctx)
	if err != nil {
		return false, err
	}

	return toBool(rightVal)
}

// compare compares two values with the given operator.
func compare(left, right any, op string) (bool, error) {
	// Handle nil comparisons
	if left == nil || right == nil {
		switch op {
		case "==":
			return left == right, nil
		case "!=":
			return left != right, nil
		default:
			return false, NewEvaluationError(fmt.Sprintf("cannot compare nil with operator %s", op), nil)
		}
	}

	// Try numeric comparison first
	leftNum, leftIsNum := toFloat64(left)
	rightNum, rightIsNum := toFloat64(right)

	if leftIsNum && rightIsNum {
		return compareOrdered(leftNum, rightNum, op)
	}

	// String comparison
	return compareOrdered(fmt.Sprintf("%v", left), fmt.Sprintf("%v", right), op)
}

// compareOrdered compares two ordered values.
func compareOrdered[T float64 | string](left, right T, op string) (bool, error) {
	switch op {
	case "==":
		return left == right, nil
	case "!=":
		return left != right, nil
	case "<":
		return left < right, nil
	case ">":
		return left > right, nil
	case "<=":
		return left <= right, nil
	case ">=":
		return left >= right, nil
	default:
		return false, NewEvaluationError(fmt.Sprintf("unknown comparison operator: %s", op), nil)
	}
}

// toFloat64 converts a value to float64 if possible.
func toFloat64(v any) (float64, bool) {
	switch val := v.(type) {
	case int:
		return float64(val), true
	case int32:
		return float64(val), true
	case int64:
		return float64(val), true
	case float32:
		return float64(val), true
	case float64:
		return val, true
	case string:
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f, true
		}
		return 0, false
	default:
		return 0, false
	}
}

// toBool converts a value to bool.
func toBool(v any) (bool, error) {
	switch val := v.(type) {
	case bool:
		return val, nil
	case int:
		return val != 0, nil
	case int64:
		return val != 0, nil
	case float64:
		return val != 0, nil
	case string:
		switch strings.ToLower(val) {
		case "true", "1":
			return true, nil
		case "false", "0", "":
			return false, nil
		}
		return false, NewEvaluationError(fmt.Sprintf("cannot use string %q as a condition", val), nil)
	case nil:
		return false, nil
	default:
		return false, NewEvaluationError(fmt.Sprintf("cannot use %T as a condition", v), nil)
	}
}

// Evaluate is a convenience function to evaluate an expression string.
func Evaluate(expr string, ctx *EvaluationContext) (bool, error) {
	return NewEvaluator().EvaluateString(expr, ctx)
}
