package scanner_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/willow-lang/willow/lang/scanner"
	"github.com/willow-lang/willow/lang/token"
)

func scanAll(src string) []token.Token {
	sc := scanner.New(src)
	var toks []token.Token
	for {
		tok := sc.Scan()
		toks = append(toks, tok)
		if tok.Kind == token.EOF {
			break
		}
	}
	return toks
}

func TestScanPunctuationAndOperators(t *testing.T) {
	toks := scanAll(`(){};,.-+/*!!====<=>=<>`)
	var kinds []token.Kind
	for _, tok := range toks {
		kinds = append(kinds, tok.Kind)
	}
	assert.Equal(t, []token.Kind{
		token.LPAREN, token.RPAREN, token.LBRACE, token.RBRACE, token.SEMICOLON,
		token.COMMA, token.DOT, token.MINUS, token.PLUS, token.SLASH, token.STAR,
		token.BANG, token.BANG_EQ, token.EQ_EQ, token.EQ, token.LE, token.GE,
		token.LT, token.GT, token.EOF,
	}, kinds)
}

func TestScanKeywordsAndIdentifiers(t *testing.T) {
	toks := scanAll(`class fun var this super notakeyword`)
	require.Len(t, toks, 7)
	assert.Equal(t, token.CLASS, toks[0].Kind)
	assert.Equal(t, token.FUN, toks[1].Kind)
	assert.Equal(t, token.VAR, toks[2].Kind)
	assert.Equal(t, token.THIS, toks[3].Kind)
	assert.Equal(t, token.SUPER, toks[4].Kind)
	assert.Equal(t, token.IDENT, toks[5].Kind)
	assert.Equal(t, "notakeyword", toks[5].Lexeme)
}

func TestScanStringAndNumber(t *testing.T) {
	toks := scanAll(`"hello world" 1234 3.25`)
	require.Len(t, toks, 4)
	assert.Equal(t, token.STRING, toks[0].Kind)
	assert.Equal(t, `"hello world"`, toks[0].Lexeme)
	assert.Equal(t, token.NUMBER, toks[1].Kind)
	assert.Equal(t, "1234", toks[1].Lexeme)
	assert.Equal(t, token.NUMBER, toks[2].Kind)
	assert.Equal(t, "3.25", toks[2].Lexeme)
}

func TestScanSkipsCommentsAndTracksLines(t *testing.T) {
	toks := scanAll("var a = 1; // a comment\nvar b = 2;")
	assert.Equal(t, 1, toks[0].Line)
	assert.Equal(t, 2, toks[len(toks)-2].Line)
}

func TestScanUnterminatedStringIsAnError(t *testing.T) {
	sc := scanner.New(`"never closed`)
	tok := sc.Scan()
	assert.Equal(t, token.ILLEGAL, tok.Kind)
	require.Len(t, sc.Errors(), 1)
	assert.Contains(t, sc.Errors()[0].Error(), "unterminated string")
}

func TestScanUnexpectedCharacterIsAnError(t *testing.T) {
	sc := scanner.New("var a = 1 @ 2;")
	var errCount int
	for {
		tok := sc.Scan()
		if tok.Kind == token.EOF {
			break
		}
		if tok.Kind == token.ILLEGAL {
			errCount++
		}
	}
	assert.Equal(t, 1, errCount)
	require.Len(t, sc.Errors(), 1)
	assert.Contains(t, sc.Errors()[0].Error(), `unexpected character "@"`)
}
