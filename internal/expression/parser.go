package expression

import (
	"strconv"
	"strings"
)

// Parser parses expression strings into an AST.
type Parser struct {
	lexer     *Lexer
	curToken  Token
	peekToken Token
}

// NewParser creates a new Parser for the given input.
func NewParser(input string) *Parser {
	p := &Parser{lexer: NewLexer(input)}
	// Read two tokens to initialize curToken and peekToken
	p.nextToken()
	p.nextToken()
	return p
}

// nextToken advances to the next token.
func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.lexer.NextToken()
}

// Parse parses the expression and returns the AST.
func (p *Parser) Parse() (*AST, error) {
	node, err := p.parseOr()
	if err != nil {
		return nil, err
	}

	if p.curToken.Type != TokenEOF {
		return nil, NewParseError(p.curToken.Pos, "end of expression", p.curToken.Literal)
	}

	return &AST{Root: node}, nil
}

// parseOr parses OR expressions (lowest precedence).
func (p *Parser) parseOr() (Node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}

	for p.curToken.Type == TokenOR {
		p.nextToken()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &LogicalNode{Left: left, Operator: "OR", Right: right}
	}

	return left, nil
}

// parseAnd parses AND expressions.
func (p *Parser) parseAnd() (Node, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}

	for p.curToken.Type == TokenAND {
		p.nextToken()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &LogicalNode{Left: left, Operator: "AND", Right: right}
	}

	return left, nil
}

// parseNot parses NOT expressions. NOT is right-associative.
func (p *Parser) parseNot() (Node, error) {
	if p.curToken.Type == TokenNOT {
		p.nextToken()
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &NotNode{Operand: operand}, nil
	}

	return p.parseComparison()
}

// parseComparison parses comparison expressions.
func (p *Parser) parseComparison() (Node, error) {
	left, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}

	if isComparisonOperator(p.curToken.Type) {
		op := p.curToken.Literal
		p.nextToken()
		right, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		return &ComparisonNode{Left: left, Operator: op, Right: right}, nil
	}

	return left, nil
}

// parsePrimary parses literals, paths, and parenthesized expressions.
func (p *Parser) parsePrimary() (Node, error) {
	switch p.curToken.Type {
	case TokenLParen:
		p.nextToken() // consume '('
		expr, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.curToken.Type != TokenRParen {
			return nil, NewParseError(p.curToken.Pos, ")", p.curToken.Literal)
		}
		p.nextToken() // consume ')'
		return expr, nil

	case TokenInt:
		val, err := strconv.ParseInt(p.curToken.Literal, 10, 64)
		if err != nil {
			return nil, NewParseError(p.curToken.Pos, "integer", p.curToken.Literal)
		}
		node := &LiteralNode{Value: val}
		p.nextToken()
		return node, nil

	case TokenFloat:
		val, err := strconv.ParseFloat(p.curToken.Literal, 64)
		if err != nil {
			return nil, NewParseError(p.curToken.Pos, "float", p.curToken.Literal)
		}
		node := &LiteralNode{Value: val}
		p.nextToken()
		return node, nil

	case TokenString:
		node := &LiteralNode{Value: p.curToken.Literal}
		p.nextToken()
		return node, nil

	case TokenBool:
		node := &LiteralNode{Value: strings.EqualFold(p.curToken.Literal, "true")}
		p.nextToken()
		return node, nil

	case TokenIdent:
		node := &PathNode{Path: p.curToken.Literal}
		p.nextToken()
		return node, nil

	case TokenEOF:
		return nil, NewParseError(p.curToken.Pos, "expression", "end of input")

	default:
		return nil, NewParseError(p.curToken.Pos, "expression", p.curToken.Literal)
	}
}

// isComparisonOperator returns true if the token is a comparison operator.
func isComparisonOperator(t TokenType) bool {
	switch t {
	case TokenEQ, TokenNE, TokenLT, TokenGT, TokenLE, TokenGE:
		return true
	default:
		return false
	}
}

// Parse is a convenience function to parse an expression string.
func Parse(input string) (*AST, error) {
	return NewParser(input).Parse()
}
