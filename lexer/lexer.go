package lexer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/polotto/hetu-script/token"
)

const (
	LINE_COMMENT_CHAR  = '#'
	DOC_COMMENT_PREFIX = "///"
)

func isLetter(char rune) bool {
	return rune('a') <= char && char <= rune('z') || rune('A') <= char && char <= rune('Z') || char == rune('_')
}

func isNumber(char rune) bool {
	return rune('0') <= char && char <= rune('9')
}

// Lexer represents a lexical scanner for processing input text into tokens.
// It maintains the current scanning state, including the position within the
// input, the current character, and metadata for line/column tracking.
// The Lexer also records tokens and errors encountered during scanning.
type Lexer struct {
	// rune slice of the input string being scanned.
	characters []rune

	// Total number of runes in the input.
	totalChars int

	// Stores the sequence of tokens produced during lexing.
	tokens []token.Token

	// The index of the character that was previously read
	position int

	// The current character being examined.
	currentChar rune

	// The index of the next position where the next character
	// will be read
	readPosition int

	// Tracks the number of lines processed (incremented on newline).
	lineCount int32

	// Tracks the character's position within the current line.
	// Gets reset on every new line back to 0
	column int

	// Stores any scanning errors that occur during lexing.
	errors []error

	// docComments accumulates `///` doc comments keyed by the line
	// immediately following the comment run, for internal/doc rendering.
	docComments map[int32]string
}

// New initializes and returns a new Lexer instance.
func New(input string) *Lexer {
	lexer := &Lexer{
		characters:  []rune(input),
		docComments: make(map[int32]string),
	}
	lexer.totalChars = len(lexer.characters)
	lexer.readChar()
	return lexer
}

// DocComments returns the documentation-comment text collected during
// scanning, keyed by the source line the comment block precedes.
func (lexer *Lexer) DocComments() map[int32]string {
	return lexer.docComments
}

func (lexer *Lexer) advance() {
	lexer.position = lexer.readPosition
	lexer.readPosition++
	lexer.column = lexer.readPosition
}

func (lexer *Lexer) isFinished() bool {
	return lexer.readPosition >= lexer.totalChars
}

func (lexer *Lexer) readChar() {
	if lexer.isFinished() {
		lexer.currentChar = rune(0)
	} else {
		lexer.currentChar = lexer.characters[lexer.readPosition]
	}
	lexer.advance()
}

func (lexer *Lexer) readIllegal(startPos int) string {
	for !lexer.isWhiteSpace(lexer.currentChar) && !lexer.isFinished() {
		lexer.readChar()
	}
	return string(lexer.characters[startPos:lexer.readPosition])
}

func (lexer *Lexer) peek() rune {
	if lexer.isFinished() {
		return rune(0)
	}
	return lexer.characters[lexer.readPosition]
}

func (lexer *Lexer) peekNext() rune {
	nextReadPos := lexer.readPosition + 1
	if nextReadPos >= lexer.totalChars {
		return rune(0)
	}
	return lexer.characters[nextReadPos]
}

// handleLineComment consumes a `#` or `//` comment to end of line. A
// `///` run is instead captured as documentation attached to the next
// token's line, per the lexer's documentation-comment variant.
func (lexer *Lexer) handleLineComment() {
	initPos := lexer.position
	for lexer.currentChar != rune('\n') && !lexer.isFinished() {
		lexer.readChar()
	}
	text := string(lexer.characters[initPos:lexer.readPosition])
	if strings.HasPrefix(text, DOC_COMMENT_PREFIX) {
		docLine := lexer.lineCount + 1
		body := strings.TrimSpace(strings.TrimPrefix(text, DOC_COMMENT_PREFIX))
		if existing, ok := lexer.docComments[docLine]; ok {
			lexer.docComments[docLine] = existing + "\n" + body
		} else {
			lexer.docComments[docLine] = body
		}
	}
}

// handleBlockComment consumes a `/* ... */` block, tracking embedded
// newlines so line/column bookkeeping stays correct.
func (lexer *Lexer) handleBlockComment() {
	for !lexer.isFinished() {
		if lexer.currentChar == rune('\n') {
			lexer.lineCount++
			lexer.column = 0
		}
		if lexer.currentChar == rune('*') && lexer.peek() == rune('/') {
			lexer.readChar()
			break
		}
		lexer.readChar()
	}
}

func (lexer *Lexer) handleNumber() error {
	initPos := lexer.position
	decimalCount := 0

	for {
		nextChar := lexer.peek()
		if nextChar == rune(0) || nextChar == rune('\n') || !isNumber(nextChar) && nextChar != rune('.') {
			break
		}
		if nextChar == '.' {
			if lexer.peekNext() == rune(0) {
				illegalNumber := string(lexer.characters[initPos : lexer.readPosition+1])
				return fmt.Errorf("invalid number: '%s', line: %v", illegalNumber, lexer.lineCount)
			}
			if decimalCount == 1 {
				illegalNumber := lexer.readIllegal(initPos)
				return fmt.Errorf("invalid number: '%s', line: %v", illegalNumber, lexer.lineCount)
			}
			decimalCount++
		}
		if lexer.currentChar == rune('.') && isNumber(nextChar) {
			decimalCount++
		}
		lexer.advance()
	}
	number := string(lexer.characters[initPos:lexer.readPosition])
	var tok token.Token

	if decimalCount == 0 {
		result, _ := strconv.ParseInt(number, 0, 64)
		tok = token.CreateLiteralToken(token.INT, result, number, lexer.lineCount, lexer.column)
	} else {
		result, _ := strconv.ParseFloat(number, 64)
		tok = token.CreateLiteralToken(token.FLOAT, result, number, lexer.lineCount, lexer.column)
	}
	lexer.tokens = append(lexer.tokens, tok)

	return nil
}

// handleIdentifier processes a user identifier or a language keyword in
// the source code.
func (lexer *Lexer) handleIdentifier() {
	initPos := lexer.position
	for {
		result := lexer.peek()
		if result == rune(0) || !(isLetter(result) || isNumber(result)) {
			break
		}
		lexer.advance()
	}

	identifier := lexer.characters[initPos:lexer.readPosition]
	lexeme := token.Token{
		TokenType: token.IDENTIFIER,
		Lexeme:    string(identifier),
		Line:      lexer.lineCount,
		Column:    lexer.column,
	}

	if keywordType, exists := token.KeyWords[lexeme.Lexeme]; exists {
		lexeme.TokenType = keywordType
	}
	if lexeme.Lexeme == "true" || lexeme.Lexeme == "false" {
		lexeme.Literal = lexeme.Lexeme == "true"
	}

	lexer.tokens = append(lexer.tokens, lexeme)
}

// handleStringLiteral processes a single- or double-quoted string
// literal (closed by the same quote character that opened it),
// recognizing backslash escapes and `${ expr }` interpolation spans.
// A string with no interpolation produces a plain STRING token; a
// string with one or more spans produces a STRING_INTERP token whose
// Literal is a token.InterpolationSegment — one token stream per span,
// lexed independently (braces inside a span are counted so a nested
// struct literal like `${ {a: 1} }` is treated as one span).
func (lexer *Lexer) handleStringLiteral() error {
	initPos := lexer.position
	line := lexer.lineCount
	column := lexer.column
	quote := lexer.currentChar
	lexer.readChar()

	var literal strings.Builder
	var segments token.InterpolationSegment
	isClosed := false

	for {
		if lexer.isFinished() && lexer.currentChar == 0 {
			break
		}
		result := lexer.currentChar
		if result == quote {
			isClosed = true
			lexer.readChar()
			break
		}
		if result == '\\' {
			lexer.readChar()
			literal.WriteRune(unescape(lexer.currentChar))
			lexer.readChar()
			continue
		}
		if result == '$' && lexer.peek() == '{' {
			lexer.readChar()
			lexer.readChar()
			depth := 1
			var exprSrc strings.Builder
			for depth > 0 && !lexer.isFinished() {
				if lexer.currentChar == '{' {
					depth++
				} else if lexer.currentChar == '}' {
					depth--
					if depth == 0 {
						break
					}
				}
				exprSrc.WriteRune(lexer.currentChar)
				lexer.readChar()
			}
			lexer.readChar() // consume closing '}'
			sub := New(exprSrc.String())
			subTokens, err := sub.Scan()
			if err != nil {
				return fmt.Errorf("invalid interpolation expression: %w, line: %v", err, lexer.lineCount)
			}
			segments = append(segments, subTokens)
			literal.WriteString("\x00")
			continue
		}
		literal.WriteRune(result)
		lexer.readChar()
	}

	if !isClosed {
		end := lexer.readPosition
		if end > lexer.totalChars {
			end = lexer.totalChars
		}
		return fmt.Errorf("unclosed string literal: '%s', line: %v", string(lexer.characters[initPos+1:end]), lexer.lineCount)
	}

	if len(segments) == 0 {
		lexer.tokens = append(lexer.tokens, token.CreateLiteralToken(token.STRING, literal.String(), literal.String(), line, column))
		return nil
	}

	lexer.tokens = append(lexer.tokens, token.CreateLiteralToken(token.STRING_INTERP, segments, literal.String(), line, column))
	return nil
}

func unescape(char rune) rune {
	switch char {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case 'r':
		return '\r'
	case '"':
		return '"'
	case '\\':
		return '\\'
	default:
		return char
	}
}

func (lexer *Lexer) isMatch(expected rune) bool {
	if lexer.isFinished() {
		return false
	}
	if lexer.characters[lexer.readPosition] == expected {
		lexer.readPosition++
		return true
	}
	return false
}

// isWhiteSpace determines whether a given rune represents whitespace in
// the input stream. A run of two or more consecutive newlines produces
// an EMPTYLINE token, so the parser/disassembler can preserve blank
// lines in round-tripped source (spec.md §4.1).
func (lexer *Lexer) isWhiteSpace(char rune) bool {
	if char == rune(' ') || char == rune('\r') || char == rune('\t') {
		return true
	}
	if lexer.currentChar == rune('\n') {
		lexer.lineCount++
		lexer.column = 0
		if lexer.peek() == rune('\n') {
			lexer.tokens = append(lexer.tokens, token.CreateToken(token.EMPTYLINE, lexer.lineCount, 0))
		}
		return true
	}
	return false
}

func (lexer *Lexer) skipWhiteSpace() {
	for lexer.isWhiteSpace(lexer.currentChar) {
		lexer.readChar()
	}
}

// createToken processes the current character and appends a token (or
// a scan error) as applicable.
func (lexer *Lexer) createToken() {
	lexer.skipWhiteSpace()

	switch lexer.currentChar {
	case rune('('):
		lexer.tokens = append(lexer.tokens, token.CreateToken(token.LPA, lexer.lineCount, lexer.column))
	case rune(')'):
		lexer.tokens = append(lexer.tokens, token.CreateToken(token.RPA, lexer.lineCount, lexer.column))
	case rune('['):
		lexer.tokens = append(lexer.tokens, token.CreateToken(token.LBK, lexer.lineCount, lexer.column))
	case rune(']'):
		lexer.tokens = append(lexer.tokens, token.CreateToken(token.RBK, lexer.lineCount, lexer.column))
	case rune('{'):
		lexer.tokens = append(lexer.tokens, token.CreateToken(token.LCUR, lexer.lineCount, lexer.column))
	case rune('}'):
		lexer.tokens = append(lexer.tokens, token.CreateToken(token.RCUR, lexer.lineCount, lexer.column))
	case rune(';'):
		lexer.tokens = append(lexer.tokens, token.CreateToken(token.SEMICOLON, lexer.lineCount, lexer.column))
	case rune(','):
		lexer.tokens = append(lexer.tokens, token.CreateToken(token.COMMA, lexer.lineCount, lexer.column))
	case rune(':'):
		lexer.tokens = append(lexer.tokens, token.CreateToken(token.COLON, lexer.lineCount, lexer.column))
	case rune('.'):
		lexer.tokens = append(lexer.tokens, token.CreateToken(token.DOT, lexer.lineCount, lexer.column))
	case rune('?'):
		lexer.tokens = append(lexer.tokens, token.CreateToken(token.QUESTION, lexer.lineCount, lexer.column))
	case rune('%'):
		lexer.tokens = append(lexer.tokens, token.CreateToken(token.MOD, lexer.lineCount, lexer.column))
	case rune('*'):
		tok := token.CreateToken(token.MULT, lexer.lineCount, lexer.column)
		if lexer.isMatch(rune('=')) {
			tok = token.CreateToken(token.MULT_ASSIGN, lexer.lineCount, lexer.column)
		}
		lexer.tokens = append(lexer.tokens, tok)
	case rune('+'):
		tok := token.CreateToken(token.ADD, lexer.lineCount, lexer.column)
		if lexer.isMatch(rune('=')) {
			tok = token.CreateToken(token.PLUS_ASSIGN, lexer.lineCount, lexer.column)
		} else if lexer.isMatch(rune('+')) {
			tok = token.CreateToken(token.INCREMENT, lexer.lineCount, lexer.column)
		}
		lexer.tokens = append(lexer.tokens, tok)
	case rune('-'):
		tok := token.CreateToken(token.SUB, lexer.lineCount, lexer.column)
		if lexer.isMatch(rune('=')) {
			tok = token.CreateToken(token.MINUS_ASSIGN, lexer.lineCount, lexer.column)
		} else if lexer.isMatch(rune('-')) {
			tok = token.CreateToken(token.DECREMENT, lexer.lineCount, lexer.column)
		}
		lexer.tokens = append(lexer.tokens, tok)
	case rune('/'):
		if lexer.peek() == rune('/') {
			lexer.handleLineComment()
			break
		}
		if lexer.peek() == rune('*') {
			lexer.readChar()
			lexer.readChar()
			lexer.handleBlockComment()
			break
		}
		tok := token.CreateToken(token.DIV, lexer.lineCount, lexer.column)
		if lexer.isMatch(rune('=')) {
			tok = token.CreateToken(token.DIV_ASSIGN, lexer.lineCount, lexer.column)
		}
		lexer.tokens = append(lexer.tokens, tok)
	case rune('='):
		tok := token.CreateToken(token.ASSIGN, lexer.lineCount, lexer.column)
		if lexer.isMatch(rune('=')) {
			tok = token.CreateToken(token.EQUAL_EQUAL, lexer.lineCount, lexer.column)
		} else if lexer.isMatch(rune('>')) {
			tok = token.CreateToken(token.ARROW, lexer.lineCount, lexer.column)
		}
		lexer.tokens = append(lexer.tokens, tok)
	case rune('!'):
		tok := token.CreateToken(token.BANG, lexer.lineCount, lexer.column)
		if lexer.isMatch(rune('=')) {
			tok = token.CreateToken(token.NOT_EQUAL, lexer.lineCount, lexer.column)
		}
		lexer.tokens = append(lexer.tokens, tok)
	case rune('<'):
		tok := token.CreateToken(token.LESS, lexer.lineCount, lexer.column)
		if lexer.isMatch(rune('=')) {
			tok = token.CreateToken(token.LESS_EQUAL, lexer.lineCount, lexer.column)
		}
		lexer.tokens = append(lexer.tokens, tok)
	case rune('>'):
		tok := token.CreateToken(token.LARGER, lexer.lineCount, lexer.column)
		if lexer.isMatch(rune('=')) {
			tok = token.CreateToken(token.LARGER_EQUAL, lexer.lineCount, lexer.column)
		}
		lexer.tokens = append(lexer.tokens, tok)
	case rune('"'), rune('\''):
		if err := lexer.handleStringLiteral(); err != nil {
			lexer.errors = append(lexer.errors, err)
		}
		return
	case rune(LINE_COMMENT_CHAR):
		lexer.handleLineComment()
	default:
		if isLetter(lexer.currentChar) {
			lexer.handleIdentifier()
		} else if isNumber(lexer.currentChar) || lexer.currentChar == rune('.') {
			if err := lexer.handleNumber(); err != nil {
				lexer.errors = append(lexer.errors, err)
			}
		} else if !lexer.isFinished() {
			position := lexer.position
			column := lexer.column
			currentChar := lexer.currentChar
			illegal := lexer.readIllegal(position)
			err := fmt.Errorf("unexpected character: '%c' in: '%s', line: %v, column: %v", currentChar, illegal, lexer.lineCount, column)
			lexer.errors = append(lexer.errors, err)
			return
		}
	}

	lexer.readChar()
}

// Scan performs lexical analysis on the input and returns the resulting
// token stream, or the first error encountered.
func (lexer *Lexer) Scan() ([]token.Token, error) {
	if lexer.totalChars > 1 {
		for lexer.currentChar != rune(0) {
			lexer.createToken()
			if len(lexer.errors) == 1 {
				return lexer.tokens, lexer.errors[0]
			}
		}
	} else {
		lexer.createToken()
		if len(lexer.errors) == 1 {
			return lexer.tokens, lexer.errors[0]
		}
	}
	lexer.tokens = append(lexer.tokens, token.CreateToken(token.EOF, lexer.lineCount, lexer.column))
	return lexer.tokens, nil
}
