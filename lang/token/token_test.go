package token_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/willow-lang/willow/lang/token"
)

func TestLookupIdentRecognizesKeywords(t *testing.T) {
	assert.Equal(t, token.CLASS, token.LookupIdent("class"))
	assert.Equal(t, token.WHILE, token.LookupIdent("while"))
	assert.Equal(t, token.IDENT, token.LookupIdent("classy"))
	assert.Equal(t, token.IDENT, token.LookupIdent(""))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "(", token.LPAREN.String())
	assert.Equal(t, "class", token.CLASS.String())
	assert.Equal(t, "unknown token", token.Kind(127).String())
}

func TestTokenString(t *testing.T) {
	tok := token.Token{Kind: token.STRING, Lexeme: `"hi"`}
	assert.Equal(t, `string "hi"`, tok.String())

	tok = token.Token{Kind: token.PLUS, Lexeme: "+"}
	assert.Equal(t, "+", tok.String())
}
