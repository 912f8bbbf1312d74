package mininotation

import (
	"strconv"
)

// parser is a byte-position cursor over the source text, in the same
// hand-rolled recursive-descent style as the teacher's binary-format
// parsers (position tracked explicitly, errors carry that position).
type parser struct {
	src string
	pos int
}

// Parse parses a full mini-notation string into its AST, ready for the
// builders in build.go. The returned node is a kindSequence when the input
// holds zero or several items; a single item is returned as that item's
// own node (an atom, group, etc.).
func Parse(src string) (node, error) {
	p := &parser{src: src}
	n, err := p.parseSequence(0)
	if err != nil {
		return node{}, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return node{}, &ParseError{Pos: p.pos, Expected: "end of input", Source: src}
	}
	return n, nil
}

func (p *parser) errorf(expected string) error {
	return &ParseError{Pos: p.pos, Expected: expected, Source: p.src}
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' {
			p.pos++
			continue
		}
		break
	}
}

func (p *parser) peek() byte {
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) eof() bool { return p.pos >= len(p.src) }

// depth guards against unterminated groups recursing into nonsense; the
// grammar has no legitimate nesting deeper than a few dozen levels.
const maxDepth = 64

// parseSequence parses a space-separated run of items until a closing
// delimiter (one of `]`, `>`, `)`, `,`, `|`) or end of input.
func (p *parser) parseSequence(depth int) (node, error) {
	if depth > maxDepth {
		return node{}, p.errorf("bounded nesting depth")
	}
	var items []node
	for {
		p.skipSpace()
		if p.eof() || isSequenceTerminator(p.peek()) {
			break
		}
		item, err := p.parseItem(depth)
		if err != nil {
			return node{}, err
		}
		if item.replicate > 1 {
			for i := 0; i < item.replicate; i++ {
				cp := item
				cp.replicate = 1
				items = append(items, cp)
			}
		} else {
			items = append(items, item)
		}
	}
	if len(items) == 1 {
		return items[0], nil
	}
	return node{kind: kindSequence, children: items, weight: 1, replicate: 1}, nil
}

func isSequenceTerminator(c byte) bool {
	switch c {
	case ']', '>', ')', ',', '|', 0:
		return true
	}
	return false
}

// parseItem parses one atom-or-group plus its trailing modifiers.
func (p *parser) parseItem(depth int) (node, error) {
	n, err := p.parseChoiceGroup(depth)
	if err != nil {
		return node{}, err
	}
	n.weight = 1
	n.replicate = 1
	for {
		p.skipSpace()
		switch p.peek() {
		case '*':
			p.pos++
			v, err := p.parseNumberModifier()
			if err != nil {
				return node{}, err
			}
			n.fast = &v
		case '/':
			p.pos++
			v, err := p.parseNumberModifier()
			if err != nil {
				return node{}, err
			}
			n.slowBy = &v
		case '@':
			p.pos++
			v, err := p.parseNumberModifier()
			if err != nil {
				return node{}, err
			}
			n.weight = v
		case '?':
			p.pos++
			n.degrade = true
		case '!':
			p.pos++
			count := 2
			if isDigit(p.peek()) {
				v, err := p.parseInt()
				if err != nil {
					return node{}, err
				}
				count = v
			}
			n.replicate = count
		case ':':
			p.pos++
			v, err := p.parseInt()
			if err != nil {
				return node{}, err
			}
			n.variant = &v
		case '(':
			k, nn, off, err := p.parseEuclidArgs()
			if err != nil {
				return node{}, err
			}
			n.euclidK, n.euclidN, n.euclidOf = &k, &nn, off
		default:
			return n, nil
		}
	}
}

// parseChoiceGroup parses `a | b | c` at the current nesting level: a
// single atom or group optionally followed by `|`-separated alternatives,
// each of which is also a single atom or group. Alternatives are not whole
// sequences: `a b | c` chooses between `b` and `c` only, and `[a b] | c` is
// needed to choose between the sequence `a b` and `c`.
func (p *parser) parseChoiceGroup(depth int) (node, error) {
	first, err := p.parseAtomOrGroup(depth)
	if err != nil {
		return node{}, err
	}
	p.skipSpace()
	if p.peek() != '|' {
		return first, nil
	}
	choices := []node{first}
	for p.peek() == '|' {
		p.pos++
		p.skipSpace()
		nxt, err := p.parseAtomOrGroup(depth)
		if err != nil {
			return node{}, err
		}
		choices = append(choices, nxt)
		p.skipSpace()
	}
	return node{kind: kindChoice, children: choices, weight: 1, replicate: 1}, nil
}

func (p *parser) parseAtomOrGroup(depth int) (node, error) {
	p.skipSpace()
	switch p.peek() {
	case '~':
		p.pos++
		return node{kind: kindRest}, nil
	case '[':
		return p.parseBracketStack(depth)
	case '<':
		return p.parseAngleAlternation(depth)
	case '(':
		p.pos++
		inner, err := p.parseSequence(depth + 1)
		if err != nil {
			return node{}, err
		}
		p.skipSpace()
		if p.peek() != ')' {
			return node{}, p.errorf("')'")
		}
		p.pos++
		return inner, nil
	default:
		return p.parseSymbolOrNumber()
	}
}

func (p *parser) parseBracketStack(depth int) (node, error) {
	p.pos++ // consume '['
	var groups []node
	for {
		g, err := p.parseSequence(depth + 1)
		if err != nil {
			return node{}, err
		}
		groups = append(groups, g)
		p.skipSpace()
		if p.peek() == ',' {
			p.pos++
			continue
		}
		break
	}
	p.skipSpace()
	if p.peek() != ']' {
		return node{}, p.errorf("']'")
	}
	p.pos++
	if len(groups) == 1 {
		return groups[0], nil
	}
	return node{kind: kindStack, children: groups}, nil
}

func (p *parser) parseAngleAlternation(depth int) (node, error) {
	p.pos++ // consume '<'
	var items []node
	for {
		p.skipSpace()
		if p.peek() == '>' || p.eof() {
			break
		}
		item, err := p.parseItem(depth + 1)
		if err != nil {
			return node{}, err
		}
		items = append(items, item)
	}
	if p.peek() != '>' {
		return node{}, p.errorf("'>'")
	}
	p.pos++
	return node{kind: kindAlternation, children: items}, nil
}

func (p *parser) parseSymbolOrNumber() (node, error) {
	start := p.pos
	if p.peek() == '-' || isDigit(p.peek()) {
		for p.pos < len(p.src) && (isDigit(p.src[p.pos]) || p.src[p.pos] == '.' || (p.src[p.pos] == '-' && p.pos == start)) {
			p.pos++
		}
		if p.pos == start {
			return node{}, p.errorf("number")
		}
		return node{kind: kindAtom, token: p.src[start:p.pos]}, nil
	}
	for p.pos < len(p.src) && isSymbolByte(p.src[p.pos]) {
		p.pos++
	}
	if p.pos == start {
		return node{}, p.errorf("symbol")
	}
	return node{kind: kindAtom, token: p.src[start:p.pos]}, nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isSymbolByte(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	case c == '_' || c == '-' || c == '.':
		return true
	}
	return false
}

func (p *parser) parseNumberModifier() (float64, error) {
	start := p.pos
	if p.peek() == '(' {
		// `*<2 3>` style modulated modifiers are out of scope for the
		// closed grammar; only bare numbers are accepted here.
		return 0, p.errorf("number")
	}
	for p.pos < len(p.src) && (isDigit(p.src[p.pos]) || p.src[p.pos] == '.') {
		p.pos++
	}
	if p.pos == start {
		return 0, p.errorf("number")
	}
	v, err := strconv.ParseFloat(p.src[start:p.pos], 64)
	if err != nil {
		return 0, p.errorf("number")
	}
	return v, nil
}

func (p *parser) parseInt() (int, error) {
	v, err := p.parseNumberModifier()
	if err != nil {
		return 0, err
	}
	return int(v), nil
}

// parseEuclidArgs parses the `(k,n)` or `(k,n,offset)` suffix of a
// euclid-call atom.
func (p *parser) parseEuclidArgs() (k, n int, offset *int, err error) {
	p.pos++ // consume '('
	k, err = p.parseInt()
	if err != nil {
		return 0, 0, nil, err
	}
	p.skipSpace()
	if p.peek() != ',' {
		return 0, 0, nil, p.errorf("','")
	}
	p.pos++
	p.skipSpace()
	n, err = p.parseInt()
	if err != nil {
		return 0, 0, nil, err
	}
	p.skipSpace()
	if p.peek() == ',' {
		p.pos++
		p.skipSpace()
		off, e := p.parseInt()
		if e != nil {
			return 0, 0, nil, e
		}
		offset = &off
		p.skipSpace()
	}
	if p.peek() != ')' {
		return 0, 0, nil, p.errorf("')'")
	}
	p.pos++
	return k, n, offset, nil
}
