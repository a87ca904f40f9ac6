package spf

import (
	"errors"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokKeyword
	tokRef
	tokString
	tokInt
	tokReal
	tokEnum
	tokDollar
	tokStar
	tokEquals
	tokLParen
	tokRParen
	tokComma
	tokSemi
)

var tokenNames = [...]string{
	tokEOF:     "end of input",
	tokKeyword: "keyword",
	tokRef:     "instance name",
	tokString:  "string",
	tokInt:     "integer",
	tokReal:    "real",
	tokEnum:    "enumeration",
	tokDollar:  "'$'",
	tokStar:    "'*'",
	tokEquals:  "'='",
	tokLParen:  "'('",
	tokRParen:  "')'",
	tokComma:   "','",
	tokSemi:    "';'",
}

func (k tokenKind) String() string {
	if int(k) < len(tokenNames) {
		return tokenNames[k]
	}
	return "token(" + strconv.Itoa(int(k)) + ")"
}

// token is one lexeme. For strings text holds the decoded value; for
// enumerations it holds the name without dots.
type token struct {
	kind tokenKind
	text string
	line int
	col  int
}

// lexer splits ISO 10303-21 text into tokens.
type lexer struct {
	src  string
	pos  int
	line int
	col  int
}

func newLexer(src string) *lexer {
	return &lexer{src: src, line: 1, col: 1}
}

func (l *lexer) peekByte(off int) byte {
	if l.pos+off < len(l.src) {
		return l.src[l.pos+off]
	}
	return 0
}

func (l *lexer) advance(n int) {
	for i := 0; i < n && l.pos < len(l.src); i++ {
		if l.src[l.pos] == '\n' {
			l.line++
			l.col = 1
		} else {
			l.col++
		}
		l.pos++
	}
}

func (l *lexer) skipSpaceAndComments() error {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			l.advance(1)
		case c == '/' && l.peekByte(1) == '*':
			line, col := l.line, l.col
			end := strings.Index(l.src[l.pos+2:], "*/")
			if end < 0 {
				return syntaxErrorf(line, col, "unterminated comment")
			}
			l.advance(end + 4)
		default:
			return nil
		}
	}
	return nil
}

func isLetter(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || c == '_'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func (l *lexer) next() (token, error) {
	if err := l.skipSpaceAndComments(); err != nil {
		return token{}, err
	}
	line, col := l.line, l.col
	tok := func(kind tokenKind, text string) token {
		return token{kind: kind, text: text, line: line, col: col}
	}

	if l.pos >= len(l.src) {
		return tok(tokEOF, ""), nil
	}

	c := l.src[l.pos]
	switch {
	case c == '$':
		l.advance(1)
		return tok(tokDollar, "$"), nil
	case c == '*':
		l.advance(1)
		return tok(tokStar, "*"), nil
	case c == '=':
		l.advance(1)
		return tok(tokEquals, "="), nil
	case c == '(':
		l.advance(1)
		return tok(tokLParen, "("), nil
	case c == ')':
		l.advance(1)
		return tok(tokRParen, ")"), nil
	case c == ',':
		l.advance(1)
		return tok(tokComma, ","), nil
	case c == ';':
		l.advance(1)
		return tok(tokSemi, ";"), nil

	case c == '#':
		start := l.pos + 1
		end := start
		for end < len(l.src) && isDigit(l.src[end]) {
			end++
		}
		if end == start {
			return token{}, syntaxErrorf(line, col, "'#' must be followed by digits")
		}
		text := l.src[start:end]
		l.advance(end - l.pos)
		return tok(tokRef, text), nil

	case c == '\'':
		s, err := l.lexString()
		if err != nil {
			return token{}, err
		}
		return tok(tokString, s), nil

	case c == '.' && isLetter(l.peekByte(1)):
		start := l.pos + 1
		end := start
		for end < len(l.src) && (isLetter(l.src[end]) || isDigit(l.src[end])) {
			end++
		}
		if end >= len(l.src) || l.src[end] != '.' {
			return token{}, syntaxErrorf(line, col, "unterminated enumeration")
		}
		text := l.src[start:end]
		l.advance(end + 1 - l.pos)
		return tok(tokEnum, text), nil

	case isDigit(c) || ((c == '-' || c == '+') && isDigit(l.peekByte(1))):
		return l.lexNumber(line, col)

	case isLetter(c):
		end := l.pos
		for end < len(l.src) && (isLetter(l.src[end]) || isDigit(l.src[end]) || l.src[end] == '-') {
			end++
		}
		text := l.src[l.pos:end]
		l.advance(end - l.pos)
		return tok(tokKeyword, text), nil
	}

	r, _ := utf8.DecodeRuneInString(l.src[l.pos:])
	return token{}, syntaxErrorf(line, col, "unexpected character %q", r)
}

func (l *lexer) lexNumber(line, col int) (token, error) {
	start := l.pos
	end := start
	if l.src[end] == '-' || l.src[end] == '+' {
		end++
	}
	for end < len(l.src) && isDigit(l.src[end]) {
		end++
	}
	isReal := false
	if end < len(l.src) && l.src[end] == '.' {
		isReal = true
		end++
		for end < len(l.src) && isDigit(l.src[end]) {
			end++
		}
	}
	if end < len(l.src) && (l.src[end] == 'E' || l.src[end] == 'e') {
		isReal = true
		end++
		if end < len(l.src) && (l.src[end] == '-' || l.src[end] == '+') {
			end++
		}
		digits := end
		for end < len(l.src) && isDigit(l.src[end]) {
			end++
		}
		if end == digits {
			return token{}, syntaxErrorf(line, col, "malformed exponent in %q", l.src[start:end])
		}
	}
	text := l.src[start:end]
	l.advance(end - start)
	if isReal {
		return token{kind: tokReal, text: text, line: line, col: col}, nil
	}
	return token{kind: tokInt, text: text, line: line, col: col}, nil
}

// lexString reads a quoted string and decodes its escapes.
func (l *lexer) lexString() (string, error) {
	line, col := l.line, l.col
	l.advance(1)

	var raw strings.Builder
	for {
		if l.pos >= len(l.src) {
			return "", syntaxErrorf(line, col, "unterminated string")
		}
		c := l.src[l.pos]
		if c == '\'' {
			if l.peekByte(1) == '\'' {
				raw.WriteByte('\'')
				l.advance(2)
				continue
			}
			l.advance(1)
			break
		}
		raw.WriteByte(c)
		l.advance(1)
	}

	s, err := decodeString(raw.String())
	if err != nil {
		return "", syntaxErrorf(line, col, "%s", err.Error())
	}
	return s, nil
}

// decodeString resolves the control directives of a string body:
// \\ for a backslash, \X\hh for one ISO 8859-1 byte, \X2\...\X0\ for UTF-16
// code units and \X4\...\X0\ for UTF-32 code points. \S\c shifts c into the
// upper half of ISO 8859-1.
func decodeString(s string) (string, error) {
	if !strings.Contains(s, `\`) {
		return s, nil
	}

	var b strings.Builder
	for i := 0; i < len(s); {
		if s[i] != '\\' {
			b.WriteByte(s[i])
			i++
			continue
		}
		rest := s[i:]
		switch {
		case strings.HasPrefix(rest, `\\`):
			b.WriteByte('\\')
			i += 2
		case strings.HasPrefix(rest, `\X2\`), strings.HasPrefix(rest, `\X4\`):
			width := 4
			if rest[2] == '4' {
				width = 8
			}
			end := strings.Index(rest[4:], `\X0\`)
			if end < 0 {
				return "", errUnterminatedHex
			}
			hex := rest[4 : 4+end]
			if len(hex)%width != 0 {
				return "", errBadHex
			}
			var units []uint16
			for j := 0; j < len(hex); j += width {
				n, err := strconv.ParseUint(hex[j:j+width], 16, 32)
				if err != nil {
					return "", errBadHex
				}
				if width == 4 {
					units = append(units, uint16(n))
				} else {
					b.WriteRune(rune(n))
				}
			}
			if width == 4 {
				b.WriteString(string(utf16.Decode(units)))
			}
			i += 4 + end + 4
		case strings.HasPrefix(rest, `\X\`) && len(rest) >= 5:
			n, err := strconv.ParseUint(rest[3:5], 16, 8)
			if err != nil {
				return "", errBadHex
			}
			b.WriteRune(rune(n))
			i += 5
		case strings.HasPrefix(rest, `\S\`) && len(rest) >= 4:
			b.WriteRune(rune(rest[3]) + 0x80)
			i += 4
		default:
			return "", errBadEscape
		}
	}
	return b.String(), nil
}

var (
	errUnterminatedHex = errors.New(`unterminated \X2\ or \X4\ sequence`)
	errBadHex          = errors.New("malformed hex sequence in string")
	errBadEscape       = errors.New("unknown escape in string")
)
