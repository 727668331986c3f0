package expression

// Node represents a node in the expression AST.
type Node interface {
	nodeType() string
}

// LiteralNode represents a literal value (string, int64, float64, bool).
type LiteralNode struct {
	Value any
}

func (n *LiteralNode) nodeType() string { return "literal" }

// PathNode references a value by dotted path, e.g. "steps.deploy.status"
// or "config.target".
type PathNode struct {
	Path string
}

func (n *PathNode) nodeType() string { return "path" }

// ComparisonNode represents a comparison expression.
type ComparisonNode struct {
	Left     Node
	Operator string // ==, !=, <, >, <=, >=
	Right    Node
}

func (n *ComparisonNode) nodeType() string { return "comparison" }

// LogicalNode represents a logical expression (AND, OR).
type LogicalNode struct {
	Left     Node
	Operator string // AND, OR
	Right    Node
}

func (n *LogicalNode) nodeType() string { return "logical" }

// NotNode represents a NOT expression.
type NotNode struct {
	Operand Node
}

func (n *NotNode) nodeType() string { return "not" }

// AST wraps the root node of a parsed expression.
type AST struct {
	Root Node
}
