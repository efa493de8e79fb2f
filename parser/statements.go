package parser

import (
	"github.com/deepnoodle-ai/pyreg/ast"
	"github.com/deepnoodle-ai/pyreg/internal/token"
)

func (p *Parser) parseStatement() (ast.Stmt, error) {
	if p.curTokenIs(token.DEF) {
		return p.parseFuncDef()
	}
	var (
		stmt ast.Stmt
		err  error
	)
	switch {
	case p.curTokenIs(token.RETURN):
		stmt, err = p.parseReturn()
	case p.curTokenIs(token.PRINT):
		stmt, err = p.parsePrint()
	case p.curTokenIs(token.IDENT) && p.peekTokenIs(token.ASSIGN):
		stmt, err = p.parseAssign()
	default:
		stmt, err = p.parseExprStmt()
	}
	if err != nil {
		return nil, err
	}
	if err := p.expectStatementEnd(); err != nil {
		return nil, err
	}
	return stmt, nil
}

// expectStatementEnd checks that a simple statement is followed by a
// newline or the end of input. The terminator is not consumed.
func (p *Parser) expectStatementEnd() error {
	if p.curTokenIs(token.NEWLINE) || p.curTokenIs(token.EOF) {
		return nil
	}
	return p.errorAt(p.curToken, token.Describe(token.NEWLINE), "Expected newline after statement")
}

func (p *Parser) parseAssign() (ast.Stmt, error) {
	name, err := p.expect(token.IDENT, "assignment statement")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.ASSIGN, "assignment statement"); err != nil {
		return nil, err
	}
	value, err := p.parseExpression(LOWEST)
	if err != nil {
		return nil, err
	}
	return &ast.Assign{
		Name:  &ast.Ident{NamePos: name.StartPosition, Name: name.Literal},
		Value: value,
	}, nil
}

func (p *Parser) parsePrint() (ast.Stmt, error) {
	printTok, err := p.expect(token.PRINT, "print statement")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LPAREN, "print statement"); err != nil {
		return nil, err
	}
	value, err := p.parseExpression(LOWEST)
	if err != nil {
		return nil, err
	}
	rparen, err := p.expect(token.RPAREN, "print statement")
	if err != nil {
		return nil, err
	}
	return &ast.Print{PrintPos: printTok.StartPosition, Value: value, Rparen: rparen.StartPosition}, nil
}

func (p *Parser) parseExprStmt() (ast.Stmt, error) {
	expr, err := p.parseExpression(LOWEST)
	if err != nil {
		return nil, err
	}
	return &ast.ExprStmt{X: expr}, nil
}

func (p *Parser) parseReturn() (ast.Stmt, error) {
	returnTok, err := p.expect(token.RETURN, "return statement")
	if err != nil {
		return nil, err
	}
	stmt := &ast.Return{ReturnPos: returnTok.StartPosition}
	if p.curTokenIs(token.NEWLINE) || p.curTokenIs(token.EOF) {
		return stmt, nil
	}
	if stmt.Value, err = p.parseExpression(LOWEST); err != nil {
		return nil, err
	}
	return stmt, nil
}

func (p *Parser) parseFuncDef() (ast.Stmt, error) {
	defTok, err := p.expect(token.DEF, "function definition")
	if err != nil {
		return nil, err
	}
	nameTok, err := p.expect(token.IDENT, "function definition")
	if err != nil {
		return nil, err
	}
	fn := &ast.FuncDef{
		DefPos: defTok.StartPosition,
		Name:   &ast.Ident{NamePos: nameTok.StartPosition, Name: nameTok.Literal},
	}
	if _, err := p.expect(token.LPAREN, "function definition"); err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	if !p.curTokenIs(token.RPAREN) {
		for {
			paramTok, err := p.expect(token.IDENT, "function parameter list")
			if err != nil {
				return nil, err
			}
			if seen[paramTok.Literal] {
				return nil, p.errorAt(paramTok, "", "Duplicate parameter '%s' in function definition", paramTok.Literal)
			}
			seen[paramTok.Literal] = true
			fn.Params = append(fn.Params, &ast.Ident{NamePos: paramTok.StartPosition, Name: paramTok.Literal})
			if !p.curTokenIs(token.COMMA) {
				break
			}
			p.nextToken()
		}
	}
	if _, err := p.expect(token.RPAREN, "function definition"); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.COLON, "function definition"); err != nil {
		return nil, err
	}

	// A single statement may follow the colon on the same line.
	if !p.curTokenIs(token.NEWLINE) {
		if p.curTokenIs(token.EOF) {
			return nil, p.errorAt(p.curToken, token.Describe(token.NEWLINE), "Expected newline in function definition")
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		fn.Body = append(fn.Body, stmt)
		return fn, nil
	}

	// Otherwise the body is every following line indented past "def".
	p.skipNewlines()
	for !p.curTokenIs(token.EOF) {
		if p.curToken.StartPosition.Column <= defTok.StartPosition.Column {
			break
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		fn.Body = append(fn.Body, stmt)
		p.skipNewlines()
	}
	return fn, nil
}
