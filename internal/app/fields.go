package app

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"review_ingest/internal/domain"
)

// Fields is a decoded dict that remembers key order.
type Fields struct {
	Keys   []string
	Values map[string]any
}

func newFields() *Fields { return &Fields{Values: map[string]any{}} }

// Set keeps the key's first position when it is assigned again.
func (f *Fields) Set(k string, v any) {
	if _, ok := f.Values[k]; !ok {
		f.Keys = append(f.Keys, k)
	}
	f.Values[k] = v
}

// ParseFields decodes an extract `fields` cell: a Python dict literal (quoted
// keys, True/False/None, nested lists, tuples and dicts) or a JSON object,
// which is read by the same grammar. Numbers keep their source text as
// json.Number.
func ParseFields(s string) (*Fields, error) {
	p := &literalParser{src: strings.TrimSpace(s)}
	v, err := p.value()
	if err == nil {
		p.skipSpace()
		if p.pos != len(p.src) {
			err = p.errorf("trailing input")
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: fields: %w", domain.ErrParse, err)
	}
	obj, ok := v.(*Fields)
	if !ok {
		return nil, fmt.Errorf("%w: fields: not an object", domain.ErrParse)
	}
	return obj, nil
}

// FieldString renders a field value as a CSV cell: strings as-is, null as
// empty, anything else in Python literal form.
func FieldString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return Repr(t)
	}
}

// Repr renders v the way Python prints the equivalent value, e.g.
// {'colour': 'red', 'n': 7, 'ok': True}.
func Repr(v any) string {
	var b strings.Builder
	writeRepr(&b, v)
	return b.String()
}

func writeRepr(b *strings.Builder, v any) {
	switch t := v.(type) {
	case nil:
		b.WriteString("None")
	case bool:
		if t {
			b.WriteString("True")
		} else {
			b.WriteString("False")
		}
	case string:
		b.WriteString(pyQuote(t))
	case json.Number:
		b.WriteString(pyNumber(t))
	case []any:
		b.WriteByte('[')
		for i, e := range t {
			if i > 0 {
				b.WriteString(", ")
			}
			writeRepr(b, e)
		}
		b.WriteByte(']')
	case *Fields:
		b.WriteByte('{')
		for i, k := range t.Keys {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(pyQuote(k))
			b.WriteString(": ")
			writeRepr(b, t.Values[k])
		}
		b.WriteByte('}')
	default:
		fmt.Fprint(b, t)
	}
}

// pyQuote prefers single quotes and switches to double quotes when the text
// holds a ' but no ".
func pyQuote(s string) string {
	q := byte('\'')
	if strings.ContainsRune(s, '\'') && !strings.ContainsRune(s, '"') {
		q = '"'
	}
	var b strings.Builder
	b.WriteByte(q)
	for _, r := range s {
		switch {
		case r == '\\' || r == rune(q):
			b.WriteByte('\\')
			b.WriteRune(r)
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\r':
			b.WriteString(`\r`)
		case r == '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte(q)
	return b.String()
}

// pyNumber normalizes a numeric literal: integers verbatim, floats in
// shortest form with a ".0" on whole values.
func pyNumber(n json.Number) string {
	text := n.String()
	if i, err := strconv.ParseInt(text, 10, 64); err == nil {
		return strconv.FormatInt(i, 10)
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return text
	}
	if abs := max(f, -f); abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}
	out := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(out, ".") {
		out += ".0"
	}
	return out
}

type literalParser struct {
	src string
	pos int
}

func (p *literalParser) errorf(format string, args ...any) error {
	return fmt.Errorf("offset %d: "+format, append([]any{p.pos}, args...)...)
}

func (p *literalParser) skipSpace() {
	for p.pos < len(p.src) && unicode.IsSpace(rune(p.src[p.pos])) {
		p.pos++
	}
}

func (p *literalParser) value() (any, error) {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return nil, p.errorf("unexpected end")
	}
	switch c := p.src[p.pos]; {
	case c == '{':
		return p.dict()
	case c == '[' || c == '(':
		return p.list()
	case c == '\'' || c == '"':
		return p.str()
	case c == '-' || c == '+' || c == '.' || (c >= '0' && c <= '9'):
		return p.number()
	default:
		return p.word()
	}
}

func (p *literalParser) dict() (any, error) {
	p.pos++ // {
	out := newFields()
	for {
		p.skipSpace()
		if p.pos < len(p.src) && p.src[p.pos] == '}' {
			p.pos++
			return out, nil
		}
		k, err := p.value()
		if err != nil {
			return nil, err
		}
		p.skipSpace()
		if p.pos >= len(p.src) || p.src[p.pos] != ':' {
			return nil, p.errorf("expected ':'")
		}
		p.pos++
		v, err := p.value()
		if err != nil {
			return nil, err
		}
		out.Set(FieldString(k), v)
		if err := p.sep('}'); err != nil {
			return nil, err
		}
	}
}

func (p *literalParser) list() (any, error) {
	closing := byte(']')
	if p.src[p.pos] == '(' {
		closing = ')'
	}
	p.pos++
	out := []any{}
	for {
		p.skipSpace()
		if p.pos < len(p.src) && p.src[p.pos] == closing {
			p.pos++
			return out, nil
		}
		v, err := p.value()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
		if err := p.sep(closing); err != nil {
			return nil, err
		}
	}
}

// sep consumes a ',' or leaves the closing byte for the caller's loop.
func (p *literalParser) sep(closing byte) error {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return p.errorf("unexpected end")
	}
	switch p.src[p.pos] {
	case ',':
		p.pos++
		return nil
	case closing:
		return nil
	default:
		return p.errorf("expected ',' or %q", closing)
	}
}

func (p *literalParser) str() (any, error) {
	quote := p.src[p.pos]
	p.pos++
	var b strings.Builder
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch {
		case c == quote:
			p.pos++
			return b.String(), nil
		case c == '\\' && p.pos+1 < len(p.src):
			p.pos++
			switch e := p.src[p.pos]; e {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			case 'b':
				b.WriteByte('\b')
			case 'f':
				b.WriteByte('\f')
			case 'u':
				if p.pos+4 < len(p.src) {
					if r, err := strconv.ParseUint(p.src[p.pos+1:p.pos+5], 16, 32); err == nil {
						b.WriteRune(rune(r))
						p.pos += 4
						break
					}
				}
				b.WriteByte(e)
			default:
				b.WriteByte(e)
			}
			p.pos++
		default:
			b.WriteByte(c)
			p.pos++
		}
	}
	return nil, p.errorf("unterminated string")
}

func (p *literalParser) number() (any, error) {
	start := p.pos
	for p.pos < len(p.src) && strings.IndexByte("+-.0123456789eE_", p.src[p.pos]) >= 0 {
		p.pos++
	}
	text := strings.ReplaceAll(strings.TrimPrefix(p.src[start:p.pos], "+"), "_", "")
	if _, err := strconv.ParseFloat(text, 64); err != nil {
		return nil, p.errorf("bad number %q", text)
	}
	return json.Number(text), nil
}

func (p *literalParser) word() (any, error) {
	start := p.pos
	for p.pos < len(p.src) && (unicode.IsLetter(rune(p.src[p.pos])) || p.src[p.pos] == '_') {
		p.pos++
	}
	switch w := p.src[start:p.pos]; w {
	case "True", "true":
		return true, nil
	case "False", "false":
		return false, nil
	case "None", "null":
		return nil, nil
	default:
		p.pos = start
		return nil, p.errorf("unexpected token %q", w)
	}
}
