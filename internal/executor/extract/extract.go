// Package extract finds the top-level named function declarations in a piece
// of JavaScript source.
//
// WHY NOT A REGULAR EXPRESSION?
// A pattern like `function\s+(\w+)\s*\(([^)]*)\)\s*\{([\s\S]*?)\}` stops at the
// FIRST closing brace, so any body containing an if-block or an object literal
// gets cut in half. Instead we walk the text with a tiny state machine:
//
//	scanning → (saw "function name(") → params → (saw ")" then "{") → body → scanning
//
// and count brace depth inside the body. String literals, regex literals and
// comments are skipped so a "}" or a quote inside them doesn't end the body
// early. A "/" starts a regex literal when the previous significant token
// cannot end an expression (an operator, an opening bracket, a keyword such
// as return, or the start of input); otherwise it is division.
//
// This is NOT a JavaScript parser. It recognises exactly one shape and knows
// nothing about classes or arrow functions.
package extract

import (
	"strings"
)

// Unit is one independently invocable function discovered in the source.
type Unit struct {
	Name   string   `json:"name"`
	Params []string `json:"params"`
	Body   string   `json:"body"`
	// Offset is the byte offset of the "function" keyword in the source.
	Offset int `json:"offset"`
}

const keyword = "function"

// Extract scans src left to right and returns every top-level named function
// declaration in source order. Text that does not match is ignored, so an
// empty result is a normal outcome, never an error.
func Extract(src string) []Unit {
	units := []Unit{}
	s := &scanner{src: src}

	for s.pos < len(src) {
		if s.skipTrivia() {
			continue
		}
		if !s.atKeyword() {
			s.pos++
			continue
		}

		start := s.pos
		unit, end, ok := s.declaration(start)
		if !ok {
			// Not a full declaration; resume just after the keyword.
			s.pos = start + len(keyword)
			continue
		}
		units = append(units, unit)
		s.pos = end
	}

	return units
}

// Names returns the unit names in order. Handy for renderers that show the
// discovered functions before results arrive.
func Names(units []Unit) []string {
	names := make([]string, len(units))
	for i, u := range units {
		names[i] = u.Name
	}
	return names
}

type scanner struct {
	src string
	pos int
}

// skipTrivia advances past a string literal or comment starting at pos.
// It reports whether anything was skipped.
func (s *scanner) skipTrivia() bool {
	end := skipLiteral(s.src, s.pos)
	if end == s.pos {
		return false
	}
	s.pos = end
	return true
}

// atKeyword reports whether "function" starts at pos as a whole word.
func (s *scanner) atKeyword() bool {
	if !strings.HasPrefix(s.src[s.pos:], keyword) {
		return false
	}
	if s.pos > 0 && isIdentChar(s.src[s.pos-1]) {
		return false
	}
	after := s.pos + len(keyword)
	return after < len(s.src) && !isIdentChar(s.src[after])
}

// declaration tries to read `function name(params) { body }` starting at the
// keyword. It returns the unit and the offset just past the closing brace.
func (s *scanner) declaration(start int) (Unit, int, bool) {
	src := s.src
	i := start + len(keyword)

	// At least one whitespace character separates the keyword and the name.
	j := skipSpace(src, i)
	if j == i {
		return Unit{}, 0, false
	}
	i = j

	nameStart := i
	for i < len(src) && isIdentChar(src[i]) {
		i++
	}
	if i == nameStart {
		return Unit{}, 0, false
	}
	name := src[nameStart:i]

	i = skipSpace(src, i)
	if i >= len(src) || src[i] != '(' {
		return Unit{}, 0, false
	}

	paramsEnd, ok := matchClose(src, i, '(', ')')
	if !ok {
		return Unit{}, 0, false
	}
	params := splitParams(src[i+1 : paramsEnd])

	i = skipSpace(src, paramsEnd+1)
	if i >= len(src) || src[i] != '{' {
		return Unit{}, 0, false
	}

	bodyEnd, ok := matchClose(src, i, '{', '}')
	if !ok {
		return Unit{}, 0, false
	}

	return Unit{
		Name:   name,
		Params: params,
		Body:   strings.TrimSpace(src[i+1 : bodyEnd]),
		Offset: start,
	}, bodyEnd + 1, true
}

// matchClose returns the index of the bracket that closes the one at open,
// tracking nesting depth and skipping strings and comments.
func matchClose(src string, open int, opening, closing byte) (int, bool) {
	depth := 0
	i := open
	for i < len(src) {
		if next := skipLiteral(src, i); next != i {
			i = next
			continue
		}
		switch src[i] {
		case opening:
			depth++
		case closing:
			depth--
			if depth == 0 {
				return i, true
			}
		}
		i++
	}
	return 0, false
}

// skipLiteral returns the offset just past a string, template literal, regex
// literal or comment beginning at i, or i itself if none begins there. A
// quoted string ends at a raw line break if it is not closed before one; an
// unterminated template literal or block comment runs to the end of the input.
func skipLiteral(src string, i int) int {
	if i >= len(src) {
		return i
	}
	switch c := src[i]; c {
	case '\'', '"', '`':
		j := i + 1
		for j < len(src) {
			switch src[j] {
			case '\\':
				if strings.HasPrefix(src[j+1:], "\r\n") {
					j++
				}
				j += 2
				continue
			case '\n', '\r':
				if c != '`' {
					return j
				}
			case c:
				return j + 1
			}
			j++
		}
		return len(src)
	case '/':
		if i+1 >= len(src) {
			return i
		}
		switch src[i+1] {
		case '/':
			if nl := strings.IndexByte(src[i:], '\n'); nl >= 0 {
				return i + nl + 1
			}
			return len(src)
		case '*':
			if end := strings.Index(src[i+2:], "*/"); end >= 0 {
				return i + 2 + end + 2
			}
			return len(src)
		}
		if regexAllowed(src, i) {
			if end, ok := skipRegex(src, i); ok {
				return end
			}
		}
	}
	return i
}

// regexPrefixes are the characters after which a "/" cannot be division.
const regexPrefixes = "(,=:[!&|?{};+-*%<>~^"

// regexKeywords can be directly followed by an expression.
var regexKeywords = map[string]bool{
	"return": true, "typeof": true, "instanceof": true, "in": true, "of": true,
	"new": true, "delete": true, "void": true, "throw": true, "case": true,
	"do": true, "else": true, "yield": true, "await": true,
}

// regexAllowed reports whether a "/" at i starts a regex literal, judged by
// the previous significant character.
func regexAllowed(src string, i int) bool {
	j := i - 1
	for j >= 0 && isSpace(src[j]) {
		j--
	}
	if j < 0 {
		return true
	}
	c := src[j]
	if strings.IndexByte(regexPrefixes, c) >= 0 {
		return true
	}
	if !isIdentChar(c) {
		return false
	}
	k := j
	for k >= 0 && isIdentChar(src[k]) {
		k--
	}
	return regexKeywords[src[k+1:j+1]]
}

// skipRegex returns the offset just past the regex literal (and its flags)
// starting at i. A literal may not span lines; if there is no closing "/"
// before a line break it is not a regex literal.
func skipRegex(src string, i int) (int, bool) {
	inClass := false
	for j := i + 1; j < len(src); j++ {
		switch src[j] {
		case '\\':
			j++
		case '\n', '\r':
			return i, false
		case '[':
			inClass = true
		case ']':
			inClass = false
		case '/':
			if inClass {
				continue
			}
			j++
			for j < len(src) && isIdentChar(src[j]) {
				j++
			}
			return j, true
		}
	}
	return i, false
}

func splitParams(list string) []string {
	if strings.TrimSpace(list) == "" {
		return []string{}
	}
	parts := strings.Split(list, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

func skipSpace(src string, i int) int {
	for i < len(src) && isSpace(src[i]) {
		i++
	}
	return i
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\f', '\v':
		return true
	}
	return false
}

func isIdentChar(c byte) bool {
	return c == '_' || c == '$' ||
		('a' <= c && c <= 'z') ||
		('A' <= c && c <= 'Z') ||
		('0' <= c && c <= '9') ||
		c >= 0x80
}
