package pattern

import (
	"math"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// TokenKind classifies a raw step token
type TokenKind int

const (
	TokenRest TokenKind = iota
	TokenHit
)

func (k TokenKind) String() string {
	if k == TokenHit {
		return "hit"
	}
	return "rest"
}

// Token is one raw step as written in the pattern text.
// Text holds the step word without any expansion suffix.
type Token struct {
	Kind TokenKind
	Text string
}

var restToken = Token{Kind: TokenRest}

// maxExpansion bounds the slots a Euclidean or polymetric group may lay out
const maxExpansion = 1 << 16

// Tokenizer lazily scans pattern text into step tokens.
//
// Words are separated by whitespace or commas. A word is a step, a
// Euclidean group "step(k,n[,r])" spreading k copies of the step over n
// slots rotated right by r, or a polymetric group "{a b c}%n" cycling its
// elements over n slots. Any of these may be followed by "!N" or "*N"
// suffixes, each laying the word out N times in a row. Commas inside
// parentheses and anything inside braces do not separate words.
type Tokenizer struct {
	input string
	pos   int
	cur   expansion
}

// expansion is the slot layout of one word
type expansion struct {
	step   Token
	mask   []bool  // Euclidean pulses, nil when every slot carries step
	cycle  []Token // polymetric elements
	period uint64  // slots in one copy
	total  uint64  // slots left to emit
	index  uint64
}

func (e *expansion) next() Token {
	j := e.index % e.period
	e.index++
	e.total--
	switch {
	case e.cycle != nil:
		return e.cycle[j%uint64(len(e.cycle))]
	case e.mask != nil && !e.mask[j]:
		return restToken
	default:
		return e.step
	}
}

// NewTokenizer creates a tokenizer positioned at the start of input
func NewTokenizer(input string) *Tokenizer {
	return &Tokenizer{input: input}
}

// Reset rewinds the tokenizer to the start of its input
func (t *Tokenizer) Reset() {
	t.pos = 0
	t.cur = expansion{}
}

// Next returns the next token, or false once the input is exhausted
func (t *Tokenizer) Next() (Token, bool) {
	for {
		if t.cur.total > 0 {
			return t.cur.next(), true
		}
		word, ok := t.nextWord()
		if !ok {
			return Token{}, false
		}
		t.cur = expand(word)
	}
}

// Tokens drains the tokenizer from its current position
func (t *Tokenizer) Tokens() []Token {
	var out []Token
	for {
		tok, ok := t.Next()
		if !ok {
			return out
		}
		out = append(out, tok)
	}
}

func isDelimiter(r rune) bool {
	return r == ',' || unicode.IsSpace(r)
}

func (t *Tokenizer) nextWord() (string, bool) {
	for t.pos < len(t.input) {
		r, size := utf8.DecodeRuneInString(t.input[t.pos:])
		if !isDelimiter(r) {
			break
		}
		t.pos += size
	}
	if t.pos >= len(t.input) {
		return "", false
	}

	start := t.pos
	parens, braces := 0, 0
	for t.pos < len(t.input) {
		r, size := utf8.DecodeRuneInString(t.input[t.pos:])
		switch {
		case r == '{':
			braces++
		case r == '}' && braces > 0:
			braces--
		case braces > 0:
		case r == '(':
			parens++
		case r == ')' && parens > 0:
			parens--
		case unicode.IsSpace(r), r == ',' && parens == 0:
			return t.input[start:t.pos], true
		}
		t.pos += size
	}
	return t.input[start:t.pos], true
}

var malformed = expansion{step: restToken, period: 1, total: 1}

// expand lays out one word. Malformed expansions become a single rest.
func expand(word string) expansion {
	copies := uint64(1)
	for {
		i := lastTopLevel(word, "!*")
		if i <= 0 {
			break
		}
		n, err := strconv.ParseUint(word[i+1:], 10, 32)
		if err != nil {
			return malformed
		}
		copies = saturatingMul(copies, n)
		word = word[:i]
	}

	var e expansion
	switch {
	case strings.HasPrefix(word, "{"):
		var ok bool
		if e, ok = parsePolymetric(word); !ok {
			return malformed
		}
	case strings.HasSuffix(word, ")") && strings.IndexByte(word, '(') > 0:
		open := strings.IndexByte(word, '(')
		eu, ok := parseEuclidean(word[open+1 : len(word)-1])
		if !ok {
			return malformed
		}
		e = expansion{step: classify(word[:open]), mask: eu.layout(), period: eu.steps}
	default:
		e = expansion{step: classify(word), period: 1}
	}
	e.total = saturatingMul(e.period, copies)
	return e
}

// lastTopLevel finds the last byte of chars outside any bracket pair
func lastTopLevel(word, chars string) int {
	depth := 0
	for i := len(word) - 1; i >= 0; i-- {
		switch c := word[i]; {
		case c == ')' || c == '}':
			depth++
		case c == '(' || c == '{':
			depth--
		case depth == 0 && strings.IndexByte(chars, c) >= 0:
			return i
		}
	}
	return -1
}

func saturatingMul(a, b uint64) uint64 {
	if a != 0 && b > math.MaxUint64/a {
		return math.MaxUint64
	}
	return a * b
}

// classify maps a bare step word to a token. Unknown words are rests.
func classify(word string) Token {
	if word == "" {
		return restToken
	}
	switch c := word[0]; {
	case c == 'x' || c == 'X' || (c >= '0' && c <= '9'):
		return Token{Kind: TokenHit, Text: word}
	default:
		// ".", "-", "~" and anything unrecognised
		return restToken
	}
}

// parsePolymetric reads "{a b c}%n". Without "%n" the group spans one slot
// per element.
func parsePolymetric(word string) (expansion, bool) {
	end := strings.LastIndexByte(word, '}')
	if end < 0 {
		return expansion{}, false
	}
	body, suffix := word[1:end], word[end+1:]

	length := uint64(0)
	if suffix != "" {
		if suffix[0] != '%' {
			return expansion{}, false
		}
		n, err := strconv.ParseUint(suffix[1:], 10, 32)
		if err != nil || n == 0 || n > maxExpansion {
			return expansion{}, false
		}
		length = n
	}

	limit := length
	if limit == 0 {
		limit = maxExpansion
	}
	inner := NewTokenizer(body)
	var cycle []Token
	for uint64(len(cycle)) < limit {
		tok, ok := inner.Next()
		if !ok {
			break
		}
		cycle = append(cycle, tok)
	}
	if len(cycle) == 0 {
		return expansion{}, false
	}
	if length == 0 {
		length = uint64(len(cycle))
	}
	return expansion{cycle: cycle, period: length}, true
}

type euclidean struct {
	pulses   uint64
	steps    uint64
	rotation uint64
}

// layout distributes the pulses with Bjorklund's algorithm, starts the
// pattern on a pulse and then rotates it right
func (e euclidean) layout() []bool {
	n := int(e.steps)
	k := int(e.pulses)
	out := make([]bool, 0, n)

	switch {
	case k == 0:
		out = out[:n]
	case k == n:
		for i := 0; i < n; i++ {
			out = append(out, true)
		}
	default:
		counts := []int{}
		remainders := []int{k}
		divisor := n - k
		level := 0
		for {
			counts = append(counts, divisor/remainders[level])
			remainders = append(remainders, divisor%remainders[level])
			divisor = remainders[level]
			level++
			if remainders[level] <= 1 {
				break
			}
		}
		counts = append(counts, divisor)

		var build func(level int)
		build = func(level int) {
			switch level {
			case -1:
				out = append(out, false)
			case -2:
				out = append(out, true)
			default:
				for i := 0; i < counts[level]; i++ {
					build(level - 1)
				}
				if remainders[level] != 0 {
					build(level - 2)
				}
			}
		}
		build(level)

		for i, pulse := range out {
			if pulse {
				rotateLeft(out, i)
				break
			}
		}
		if n-k == 1 {
			rotateLeft(out, n-2)
		}
	}

	if r := int(e.rotation); r > 0 {
		rotateLeft(out, n-r)
	}
	return out
}

func rotateLeft(s []bool, k int) {
	if len(s) == 0 {
		return
	}
	k %= len(s)
	if k == 0 {
		return
	}
	rotated := append(append(make([]bool, 0, len(s)), s[k:]...), s[:k]...)
	copy(s, rotated)
}

func parseEuclidean(args string) (euclidean, bool) {
	parts := strings.Split(args, ",")
	if len(parts) < 2 || len(parts) > 3 {
		return euclidean{}, false
	}
	var nums [3]uint64
	for i, p := range parts {
		n, err := strconv.ParseUint(strings.TrimSpace(p), 10, 32)
		if err != nil {
			return euclidean{}, false
		}
		nums[i] = n
	}
	k, n, r := nums[0], nums[1], nums[2]
	if n == 0 || n > maxExpansion || k > n || r >= n {
		return euclidean{}, false
	}
	return euclidean{pulses: k, steps: n, rotation: r}, true
}
