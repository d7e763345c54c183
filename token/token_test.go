package token

import (
	"testing"
)

func TestCreateToken(t *testing.T) {
	tests := []struct {
		name      string
		tokenType TokenType
		line      int32
		column    int
		wantLex   string
	}{
		{name: "Create ASSIGN token", tokenType: ASSIGN, line: 1, column: 4, wantLex: "="},
		{name: "Create LPA token", tokenType: LPA, line: 2, column: 0, wantLex: "("},
		{name: "Create EOF token", tokenType: EOF, line: 10, column: 0, wantLex: "EOF"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CreateToken(tt.tokenType, tt.line, tt.column)
			if got.TokenType != tt.tokenType {
				t.Errorf("TokenType = %v, want %v", got.TokenType, tt.tokenType)
			}
			if got.Lexeme != tt.wantLex {
				t.Errorf("Lexeme = %q, want %q", got.Lexeme, tt.wantLex)
			}
			if got.Line != tt.line || got.Column != tt.column {
				t.Errorf("position = %d:%d, want %d:%d", got.Line, got.Column, tt.line, tt.column)
			}
			if got.Literal != nil {
				t.Errorf("Literal = %v, want nil", got.Literal)
			}
		})
	}
}

func TestCreateLiteralToken(t *testing.T) {
	got := CreateLiteralToken(INT, int64(42), "42", 3, 1)
	if got.TokenType != INT {
		t.Errorf("TokenType = %v, want INT", got.TokenType)
	}
	if got.Literal != int64(42) {
		t.Errorf("Literal = %v, want 42", got.Literal)
	}
	if got.Lexeme != "42" {
		t.Errorf("Lexeme = %q, want %q", got.Lexeme, "42")
	}
}

func TestKeyWordsLookup(t *testing.T) {
	cases := map[string]TokenType{
		"if":        IF,
		"while":     WHILE,
		"class":     CLASS,
		"enum":      ENUM,
		"construct": CONSTRUCT,
		"final":     CONST,
	}
	for lexeme, want := range cases {
		got, ok := KeyWords[lexeme]
		if !ok {
			t.Fatalf("KeyWords[%q] missing", lexeme)
		}
		if got != want {
			t.Errorf("KeyWords[%q] = %v, want %v", lexeme, got, want)
		}
	}
	if _, ok := KeyWords["notAKeyword"]; ok {
		t.Errorf("expected notAKeyword to be absent from KeyWords")
	}
}

func TestIsAssignOp(t *testing.T) {
	for _, tt := range []TokenType{ASSIGN, PLUS_ASSIGN, MINUS_ASSIGN, MULT_ASSIGN, DIV_ASSIGN} {
		if !IsAssignOp(tt) {
			t.Errorf("IsAssignOp(%v) = false, want true", tt)
		}
	}
	if IsAssignOp(EQUAL_EQUAL) {
		t.Errorf("IsAssignOp(EQUAL_EQUAL) = true, want false")
	}
}

func TestCompoundBinaryOp(t *testing.T) {
	op, ok := CompoundBinaryOp(PLUS_ASSIGN)
	if !ok || op != ADD {
		t.Errorf("CompoundBinaryOp(PLUS_ASSIGN) = (%v, %v), want (ADD, true)", op, ok)
	}
	if _, ok := CompoundBinaryOp(ASSIGN); ok {
		t.Errorf("CompoundBinaryOp(ASSIGN) ok = true, want false")
	}
}
