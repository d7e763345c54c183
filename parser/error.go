package parser

import "github.com/polotto/hetu-script/hetuerrors"

// CreateSyntaxError builds a hetuerrors.Error for a syntactic failure
// encountered by the parser. It takes no module key and leaves the
// error's module empty; the parser's own errors carry the module key
// given to Make.
func CreateSyntaxError(line int32, column int, message string) *hetuerrors.Error {
	return hetuerrors.Syntactic(hetuerrors.CodeUnexpectedToken, "", line, column, message)
}
