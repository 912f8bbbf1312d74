package dsl

import (
	"strconv"
	"strings"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNewline
	tokIdent
	tokNumber
	tokString
	tokSymbol
)

type token struct {
	kind  tokenKind
	text  string
	num   float64
	pos   int
}

// lex tokenizes src into a flat token stream, stripping `--` line comments
// first (the teacher's program_executor.go strips comments in the same
// line-oriented pre-pass before any structural parsing).
func lex(src string) ([]token, error) {
	var toks []token
	lines := strings.Split(src, "\n")
	pos := 0
	for _, line := range lines {
		if idx := strings.Index(line, "--"); idx >= 0 {
			line = line[:idx]
		}
		lt, err := lexLine(line, pos)
		if err != nil {
			return nil, err
		}
		toks = append(toks, lt...)
		if strings.TrimSpace(line) != "" {
			toks = append(toks, token{kind: tokNewline, pos: pos})
		}
		pos += len(line) + 1
	}
	toks = append(toks, token{kind: tokEOF, pos: pos})
	return toks, nil
}

func lexLine(line string, basePos int) ([]token, error) {
	var toks []token
	i := 0
	for i < len(line) {
		c := line[i]
		switch {
		case c == ' ' || c == '\t' || c == '\r':
			i++
		case c == '"':
			start := i + 1
			j := start
			for j < len(line) && line[j] != '"' {
				j++
			}
			if j >= len(line) {
				return nil, &ParseError{Pos: basePos + i, Message: "unterminated string literal"}
			}
			toks = append(toks, token{kind: tokString, text: line[start:j], pos: basePos + i})
			i = j + 1
		case isDigit(c) || (c == '.' && i+1 < len(line) && isDigit(line[i+1])):
			start := i
			for i < len(line) && (isDigit(line[i]) || line[i] == '.') {
				i++
			}
			v, err := strconv.ParseFloat(line[start:i], 64)
			if err != nil {
				return nil, &ParseError{Pos: basePos + start, Message: "malformed number"}
			}
			toks = append(toks, token{kind: tokNumber, num: v, pos: basePos + start})
		case isIdentStart(c):
			start := i
			for i < len(line) && isIdentByte(line[i]) {
				i++
			}
			toks = append(toks, token{kind: tokIdent, text: line[start:i], pos: basePos + start})
		case strings.ContainsRune("+-*()$#:~", rune(c)):
			toks = append(toks, token{kind: tokSymbol, text: string(c), pos: basePos + i})
			i++
		default:
			return nil, &ParseError{Pos: basePos + i, Message: "unexpected character '" + string(c) + "'"}
		}
	}
	return toks, nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentStart(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_'
}

func isIdentByte(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}
