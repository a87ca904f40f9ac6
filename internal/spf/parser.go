package spf

import (
	"strconv"
	"strings"
)

type paramKind int

const (
	paramNull paramKind = iota
	paramDerived
	paramString
	paramInt
	paramReal
	paramEnum
	paramRef
	paramList
	paramTyped
)

// param is one parsed parameter before it is bound to a schema kind.
type param struct {
	kind paramKind
	text string  // string, enum or typed-parameter keyword
	i    int64   // int and ref
	f    float64 // real
	list []param // list elements, or the single wrapped value of a typed parameter
	line int
	col  int
}

// instance is one parsed entity instance.
type instance struct {
	id     int64 // 0 for header entities
	typ    string
	params []param
	line   int
	col    int
}

// parsedFile is the syntax tree of a whole exchange file.
type parsedFile struct {
	header []instance
	data   []instance
}

type parser struct {
	lex *lexer
	tok token
}

func parse(src string) (*parsedFile, error) {
	p := &parser{lex: newLexer(src)}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return p.parseFile()
}

func (p *parser) advance() error {
	tok, err := p.lex.next()
	if err != nil {
		return err
	}
	p.tok = tok
	return nil
}

func (p *parser) errorf(format string, args ...any) *SyntaxError {
	return syntaxErrorf(p.tok.line, p.tok.col, format, args...)
}

func (p *parser) expect(kind tokenKind) (token, error) {
	tok := p.tok
	if tok.kind != kind {
		return tok, p.errorf("expected %s, found %s", kind, describe(tok))
	}
	return tok, p.advance()
}

func (p *parser) expectKeyword(word string) error {
	if p.tok.kind != tokKeyword || !strings.EqualFold(p.tok.text, word) {
		return p.errorf("expected %s, found %s", word, describe(p.tok))
	}
	return p.advance()
}

func (p *parser) atKeyword(word string) bool {
	return p.tok.kind == tokKeyword && strings.EqualFold(p.tok.text, word)
}

func describe(tok token) string {
	switch tok.kind {
	case tokKeyword, tokInt, tokReal:
		return tok.kind.String() + " " + tok.text
	case tokRef:
		return "#" + tok.text
	default:
		return tok.kind.String()
	}
}

func (p *parser) parseFile() (*parsedFile, error) {
	f := &parsedFile{}

	if err := p.expectKeyword(magic); err != nil {
		return nil, err
	}
	if _, err := p.expect(tokSemi); err != nil {
		return nil, err
	}

	if err := p.expectKeyword("HEADER"); err != nil {
		return nil, err
	}
	if _, err := p.expect(tokSemi); err != nil {
		return nil, err
	}
	for !p.atKeyword("ENDSEC") {
		inst, err := p.parseEntity(0)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokSemi); err != nil {
			return nil, err
		}
		f.header = append(f.header, inst)
	}
	if err := p.endSection(); err != nil {
		return nil, err
	}

	for p.atKeyword("DATA") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if _, err := p.expect(tokSemi); err != nil {
			return nil, err
		}
		for p.tok.kind == tokRef {
			inst, err := p.parseInstance()
			if err != nil {
				return nil, err
			}
			f.data = append(f.data, inst)
		}
		if err := p.endSection(); err != nil {
			return nil, err
		}
	}

	if err := p.expectKeyword("END-" + magic); err != nil {
		return nil, err
	}
	if _, err := p.expect(tokSemi); err != nil {
		return nil, err
	}
	if p.tok.kind != tokEOF {
		return nil, p.errorf("unexpected %s after end of file", describe(p.tok))
	}
	return f, nil
}

func (p *parser) endSection() error {
	if err := p.expectKeyword("ENDSEC"); err != nil {
		return err
	}
	_, err := p.expect(tokSemi)
	return err
}

// parseInstance parses #id=TYPE(params);
func (p *parser) parseInstance() (instance, error) {
	ref, err := p.expect(tokRef)
	if err != nil {
		return instance{}, err
	}
	id, err := strconv.ParseInt(ref.text, 10, 64)
	if err != nil || id <= 0 {
		return instance{}, syntaxErrorf(ref.line, ref.col, "invalid instance name #%s", ref.text)
	}
	if _, err := p.expect(tokEquals); err != nil {
		return instance{}, err
	}
	if p.tok.kind == tokLParen {
		return instance{}, p.errorf("complex entity instances are not supported")
	}
	inst, err := p.parseEntity(id)
	if err != nil {
		return instance{}, err
	}
	inst.line, inst.col = ref.line, ref.col
	if _, err := p.expect(tokSemi); err != nil {
		return instance{}, err
	}
	return inst, nil
}

// parseEntity parses TYPE(params).
func (p *parser) parseEntity(id int64) (instance, error) {
	kw, err := p.expect(tokKeyword)
	if err != nil {
		return instance{}, err
	}
	params, err := p.parseList()
	if err != nil {
		return instance{}, err
	}
	return instance{id: id, typ: kw.text, params: params, line: kw.line, col: kw.col}, nil
}

// parseList parses ( [param {, param}] ).
func (p *parser) parseList() ([]param, error) {
	if _, err := p.expect(tokLParen); err != nil {
		return nil, err
	}
	params := []param{}
	if p.tok.kind == tokRParen {
		return params, p.advance()
	}
	for {
		v, err := p.parseParam()
		if err != nil {
			return nil, err
		}
		params = append(params, v)
		if p.tok.kind == tokComma {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		if _, err := p.expect(tokRParen); err != nil {
			return nil, err
		}
		return params, nil
	}
}

func (p *parser) parseParam() (param, error) {
	tok := p.tok
	v := param{line: tok.line, col: tok.col}

	switch tok.kind {
	case tokDollar:
		v.kind = paramNull
	case tokStar:
		v.kind = paramDerived
	case tokString:
		v.kind, v.text = paramString, tok.text
	case tokEnum:
		v.kind, v.text = paramEnum, tok.text
	case tokInt:
		n, err := strconv.ParseInt(tok.text, 10, 64)
		if err != nil {
			return v, syntaxErrorf(tok.line, tok.col, "integer %s out of range", tok.text)
		}
		v.kind, v.i = paramInt, n
	case tokReal:
		f, err := strconv.ParseFloat(tok.text, 64)
		if err != nil {
			return v, syntaxErrorf(tok.line, tok.col, "malformed real %s", tok.text)
		}
		v.kind, v.f = paramReal, f
	case tokRef:
		n, err := strconv.ParseInt(tok.text, 10, 64)
		if err != nil || n <= 0 {
			return v, syntaxErrorf(tok.line, tok.col, "invalid reference #%s", tok.text)
		}
		v.kind, v.i = paramRef, n
	case tokLParen:
		list, err := p.parseList()
		if err != nil {
			return v, err
		}
		v.kind, v.list = paramList, list
		return v, nil
	case tokKeyword:
		if err := p.advance(); err != nil {
			return v, err
		}
		inner, err := p.parseList()
		if err != nil {
			return v, err
		}
		if len(inner) != 1 {
			return v, syntaxErrorf(tok.line, tok.col, "typed parameter %s takes one value, got %d", tok.text, len(inner))
		}
		v.kind, v.text, v.list = paramTyped, tok.text, inner
		return v, nil
	default:
		return v, p.errorf("expected a parameter, found %s", describe(tok))
	}

	return v, p.advance()
}
