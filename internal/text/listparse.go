package text

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

var ErrMalformedList = errors.New("malformed list literal")

// ParseList decodes a stored list literal such as ['a', "b\n", 3] without
// evaluating it. Items are quoted strings (single or double quotes, with
// backslash escapes) or bare numbers, which are returned as written. JSON
// string arrays are accepted too. A trailing comma is allowed.
func ParseList(s string) ([]string, error) {
	p := &listParser{src: s}
	p.skipSpace()
	if !p.consume('[') {
		return nil, p.errorf("expected '['")
	}

	items := []string{}
	p.skipSpace()
	if p.consume(']') {
		return p.finish(items)
	}

	for {
		p.skipSpace()
		item, err := p.item()
		if err != nil {
			return nil, err
		}
		items = append(items, item)

		p.skipSpace()
		if p.consume(']') {
			return p.finish(items)
		}
		if !p.consume(',') {
			return nil, p.errorf("expected ',' or ']'")
		}
		p.skipSpace()
		if p.consume(']') {
			return p.finish(items)
		}
	}
}

type listParser struct {
	src string
	pos int
}

func (p *listParser) errorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s at offset %d", ErrMalformedList, fmt.Sprintf(format, args...), p.pos)
}

func (p *listParser) eof() bool { return p.pos >= len(p.src) }

func (p *listParser) peek() byte { return p.src[p.pos] }

func (p *listParser) consume(b byte) bool {
	if !p.eof() && p.peek() == b {
		p.pos++
		return true
	}
	return false
}

func (p *listParser) skipSpace() {
	for !p.eof() {
		switch p.peek() {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *listParser) finish(items []string) ([]string, error) {
	p.skipSpace()
	if !p.eof() {
		return nil, p.errorf("unexpected trailing input")
	}
	return items, nil
}

func (p *listParser) item() (string, error) {
	if p.eof() {
		return "", p.errorf("unexpected end of input")
	}
	switch c := p.peek(); {
	case c == '\'' || c == '"':
		return p.quoted(c)
	case c == '-' || c == '+' || c == '.' || (c >= '0' && c <= '9'):
		return p.number()
	default:
		return "", p.errorf("unexpected %q", c)
	}
}

func (p *listParser) number() (string, error) {
	start := p.pos
	for !p.eof() {
		c := p.peek()
		if (c >= '0' && c <= '9') || c == '-' || c == '+' || c == '.' || c == 'e' || c == 'E' || c == '_' {
			p.pos++
			continue
		}
		break
	}
	lit := p.src[start:p.pos]
	if _, err := strconv.ParseFloat(strings.ReplaceAll(lit, "_", ""), 64); err != nil {
		p.pos = start
		return "", p.errorf("invalid number %q", lit)
	}
	return lit, nil
}

func (p *listParser) quoted(quote byte) (string, error) {
	p.pos++ // opening quote
	var b strings.Builder
	for {
		if p.eof() {
			return "", p.errorf("unterminated string")
		}
		c := p.peek()
		switch {
		case c == quote:
			p.pos++
			return b.String(), nil
		case c == '\\':
			p.pos++
			if err := p.escape(&b); err != nil {
				return "", err
			}
		default:
			r, size := utf8.DecodeRuneInString(p.src[p.pos:])
			b.WriteRune(r)
			p.pos += size
		}
	}
}

func (p *listParser) escape(b *strings.Builder) error {
	if p.eof() {
		return p.errorf("unterminated escape")
	}
	c := p.peek()
	p.pos++
	switch c {
	case '\\', '\'', '"', '/':
		b.WriteByte(c)
	case 'n':
		b.WriteByte('\n')
	case 'r':
		b.WriteByte('\r')
	case 't':
		b.WriteByte('\t')
	case 'b':
		b.WriteByte('\b')
	case 'f':
		b.WriteByte('\f')
	case '\n':
		// line continuation
	case 'x':
		return p.hexRune(b, 2)
	case 'u':
		return p.hexRune(b, 4)
	case 'U':
		return p.hexRune(b, 8)
	default:
		// unknown escapes are kept verbatim
		b.WriteByte('\\')
		b.WriteByte(c)
	}
	return nil
}

func (p *listParser) hexRune(b *strings.Builder, digits int) error {
	if p.pos+digits > len(p.src) {
		return p.errorf("truncated \\x/\\u escape")
	}
	v, err := strconv.ParseUint(p.src[p.pos:p.pos+digits], 16, 32)
	if err != nil {
		return p.errorf("invalid hex escape %q", p.src[p.pos:p.pos+digits])
	}
	p.pos += digits
	r := rune(v)
	if utf16.IsSurrogate(r) && strings.HasPrefix(p.src[p.pos:], `\u`) && p.pos+6 <= len(p.src) {
		if lo, err := strconv.ParseUint(p.src[p.pos+2:p.pos+6], 16, 32); err == nil {
			if pair := utf16.DecodeRune(r, rune(lo)); pair != utf8.RuneError {
				p.pos += 6
				r = pair
			}
		}
	}
	if !utf8.ValidRune(r) {
		return p.errorf("invalid code point U+%X", v)
	}
	b.WriteRune(r)
	return nil
}
