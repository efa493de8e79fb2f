package parser

import "github.com/deepnoodle-ai/pyreg/internal/token"

// Precedence order for operators
const (
	_ int = iota
	LOWEST
	SUM     // + or -
	PRODUCT // * or / or // or %
	PREFIX  // -X or +X
)

// Precedences for each token type
var precedences = map[token.Type]int{
	token.PLUS:         SUM,
	token.MINUS:        SUM,
	token.ASTERISK:     PRODUCT,
	token.SLASH:        PRODUCT,
	token.DOUBLE_SLASH: PRODUCT,
	token.MOD:          PRODUCT,
}

func (p *Parser) curPrecedence() int {
	if prec, ok := precedences[p.curToken.Type]; ok {
		return prec
	}
	return LOWEST
}
