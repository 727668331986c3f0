package expression

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLexer_Operators(t *testing.T) {
	input := `== != < > <= >= && || !`

	expected := []struct {
		tokenType TokenType
		literal   string
	}{
		{TokenEQ, "=="},
		{TokenNE, "!="},
		{TokenLT, "<"},
		{TokenGT, ">"},
		{TokenLE, "<="},
		{TokenGE, ">="},
		{TokenAND, "&&"},
		{TokenOR, "||"},
		{TokenNOT, "!"},
		{TokenEOF, ""},
	}

	lexer := NewLexer(input)
	for i, exp := range expected {
		tok := lexer.NextToken()
		assert.Equal(t, exp.tokenType, tok.Type, "token %d type", i)
		assert.Equal(t, exp.literal, tok.Literal, "token %d literal", i)
	}
}

func TestLexer_Keywords(t *testing.T) {
	input := `AND OR NOT and or not true false TRUE FALSE`

	expected := []TokenType{
		TokenAND, TokenOR, TokenNOT,
		TokenAND, TokenOR, TokenNOT,
		TokenBool, TokenBool, TokenBool, TokenBool,
		TokenEOF,
	}

	lexer := NewLexer(input)
	for i, expType := range expected {
		tok := lexer.NextToken()
		assert.Equal(t, expType, tok.Type, "token %d", i)
	}
}

func TestLexer_Literals(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		tokenType TokenType
		literal   string
	}{
		{name: "integer", input: "42", tokenType: TokenInt, literal: "42"},
		{name: "negative integer", input: "-5", tokenType: TokenInt, literal: "-5"},
		{name: "float", input: "3.14", tokenType: TokenFloat, literal: "3.14"},
		{name: "double quoted string", input: `"hello"`, tokenType: TokenString, literal: "hello"},
		{name: "single quoted string", input: `'world'`, tokenType: TokenString, literal: "world"},
		{name: "identifier", input: "status", tokenType: TokenIdent, literal: "status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lexer := NewLexer(tt.input)
			tok := lexer.NextToken()
			assert.Equal(t, tt.tokenType, tok.Type)
			assert.Equal(t, tt.literal, tok.Literal)
		})
	}
}

func TestLexer_StepPaths(t *testing.T) {
	// Step paths contain dots and slashes and must lex as one identifier.
	tests := []struct {
		input   string
		literal string
	}{
		{input: "steps.deploy.status", literal: "steps.deploy.status"},
		{input: "steps.ci/deploy.status", literal: "steps.ci/deploy.status"},
		{input: "steps.run_tests.failed", literal: "steps.run_tests.failed"},
		{input: "config.environment", literal: "config.environment"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			lexer := NewLexer(tt.input)
			tok := lexer.NextToken()
			assert.Equal(t, TokenIdent, tok.Type)
			assert.Equal(t, tt.literal, tok.Literal)
			assert.Equal(t, TokenEOF, lexer.NextToken().Type)
		})
	}
}

func TestLexer_FullExpression(t *testing.T) {
	input := `steps.deploy.status == "completed" AND config.count > 3`

	expected := []TokenType{
		TokenIdent, TokenEQ, TokenString,
		TokenAND,
		TokenIdent, TokenGT, TokenInt,
		TokenEOF,
	}

	lexer := NewLexer(input)
	for i, expType := range expected {
		tok := lexer.NextToken()
		assert.Equal(t, expType, tok.Type, "token %d", i)
	}
}

func TestLexer_Parentheses(t *testing.T) {
	lexer := NewLexer("(true)")

	assert.Equal(t, TokenLParen, lexer.NextToken().Type)
	assert.Equal(t, TokenBool, lexer.NextToken().Type)
	assert.Equal(t, TokenRParen, lexer.NextToken().Type)
	assert.Equal(t, TokenEOF, lexer.NextToken().Type)
}

func TestLexer_IllegalCharacter(t *testing.T) {
	lexer := NewLexer("@")
	tok := lexer.NextToken()
	assert.Equal(t, TokenIllegal, tok.Type)
}

func TestLexer_Positions(t *testing.T) {
	lexer := NewLexer("a == b")

	tok := lexer.NextToken()
	assert.Equal(t, 0, tok.Pos)

	tok = lexer.NextToken()
	assert.Equal(t, 2, tok.Pos)

	tok = lexer.NextToken()
	assert.Equal(t, 5, tok.Pos)
}
