package regex

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// maxGroups is the number of capture groups Vim supports, \1 through \9.
	maxGroups = 9

	// maxRepeat bounds the counts of \{n,m}; every count is unrolled into states.
	maxRepeat = 1000
)

type parserError struct {
	inner   error
	message string
}

func (p parserError) Error() string {
	return p.message
}

func (p parserError) Unwrap() error {
	return p.inner
}

func newParserError(i int, str string, inner error) parserError {
	return parserError{message: fmt.Sprintf("parser error at %d: %s", i, str), inner: inner}
}

// Flags control case sensitivity the way Vim's 'ignorecase' and 'smartcase' do.
// \c and \C in the pattern override both.
type Flags struct {
	IgnoreCase bool
	SmartCase  bool
}

type parser struct {
	re     string
	i      int
	fold   bool
	groups int
	depth  int
}

// Parse turns a Vim pattern (magic mode) into a syntax tree.
func Parse(re string, flags Flags) (Node, error) {
	p := &parser{re: re, fold: foldCase(re, flags)}
	return p.parseChoices()
}

// foldCase decides whether the pattern is matched ignoring case.
func foldCase(re string, flags Flags) bool {
	ignore, match, upper := false, false, false
	for i := 0; i < len(re); i++ {
		if re[i] == '\\' && i+1 < len(re) {
			switch re[i+1] {
			case 'c':
				ignore = true
			case 'C':
				match = true
			}
			i++
			continue
		}
		r, n := utf8.DecodeRuneInString(re[i:])
		if unicode.IsUpper(r) {
			upper = true
		}
		i += n - 1
	}
	switch {
	case ignore:
		return true
	case match:
		return false
	case flags.IgnoreCase && flags.SmartCase:
		return !upper
	}
	return flags.IgnoreCase
}

// branch \| branch \| ...
func (p *parser) parseChoices() (Node, error) {
	var choices []Node
	for {
		branch, err := p.parseBranch()
		if err != nil {
			return nil, err
		}
		choices = append(choices, branch)
		if !p.peekEscaped(p.i, '|') {
			break
		}
		p.i += 2
	}

	if len(choices) == 1 {
		return choices[0], nil
	}
	return Alternate{Subs: choices}, nil
}

// a sequence of pieces up to \|, \) or the end of the pattern
func (p *parser) parseBranch() (Node, error) {
	var subs []Node
	start := true
	for p.i < len(p.re) {
		if p.peekEscaped(p.i, '|') {
			break
		}
		if p.peekEscaped(p.i, ')') {
			if p.depth == 0 {
				return nil, newParserError(p.i, `unmatched \)`, nil)
			}
			break
		}
		if p.peekEscaped(p.i, '&') {
			return nil, newParserError(p.i, `\& is not supported`, nil)
		}

		// ^ is only magic at the start of a branch
		if start && p.re[p.i] == '^' {
			p.i++
			subs = append(subs, Assert{Anchor: AnchorLineStart})
			continue
		}

		piece, err := p.parsePiece(start)
		if err != nil {
			return nil, err
		}
		if piece != nil {
			subs = append(subs, piece)
			start = false
		}
	}

	switch len(subs) {
	case 0:
		return Empty{}, nil
	case 1:
		return subs[0], nil
	}
	return Concat{Subs: subs}, nil
}

// an atom followed by an optional multi
func (p *parser) parsePiece(start bool) (Node, error) {
	atom, err := p.parseAtom(start)
	if err != nil || atom == nil {
		return atom, err
	}

	mi, ma, lazy, ok, err := p.parseMulti()
	if err != nil || !ok {
		return atom, err
	}
	if p.atMulti() {
		return nil, newParserError(p.i, "nested multi", nil)
	}
	return Repeat{Sub: atom, Min: mi, Max: ma, Lazy: lazy}, nil
}

func (p *parser) parseAtom(start bool) (Node, error) {
	switch p.re[p.i] {
	case '\\':
		return p.parseEscape()
	case '.':
		p.i++
		return Any{}, nil
	case '[':
		return p.parseBracket(false)
	case '$':
		// $ is only magic at the end of a branch
		if p.atBranchEnd(p.i + 1) {
			p.i++
			return Assert{Anchor: AnchorLineEnd}, nil
		}
	case '*':
		if !start {
			return nil, newParserError(p.i, "nested multi", nil)
		}
	}
	r, n := utf8.DecodeRuneInString(p.re[p.i:])
	p.i += n
	return Literal{Char: r, FoldCase: p.fold}, nil
}

func (p *parser) parseEscape() (Node, error) {
	if p.i+1 >= len(p.re) {
		return nil, newParserError(p.i, "trailing backslash", nil)
	}

	i := p.i
	c := p.re[i+1]
	p.i += 2
	switch c {
	case '(':
		return p.parseGroup(i, true)
	case '%':
		if p.i >= len(p.re) {
			return nil, newParserError(i, `unexpected EOS after \%`, nil)
		}
		p.i++
		switch p.re[p.i-1] {
		case '(':
			return p.parseGroup(i, false)
		case '^':
			return Assert{Anchor: AnchorTextStart}, nil
		case '$':
			return Assert{Anchor: AnchorTextEnd}, nil
		}
		return nil, newParserError(i, fmt.Sprintf(`unsupported \%%%c`, p.re[p.i-1]), nil)
	case '+', '=', '?', '{':
		return nil, newParserError(i, fmt.Sprintf(`\%c follows nothing`, c), nil)
	case '<':
		return Assert{Anchor: AnchorWordStart}, nil
	case '>':
		return Assert{Anchor: AnchorWordEnd}, nil
	case 'z':
		if p.i < len(p.re) {
			p.i++
			switch p.re[p.i-1] {
			case 's':
				return MatchBound{}, nil
			case 'e':
				return MatchBound{End: true}, nil
			}
		}
		return nil, newParserError(i, `unsupported \z item`, nil)
	case 'c', 'C', 'm':
		// flags are resolved before parsing
		return nil, nil
	case 'v', 'V', 'M', '@':
		return nil, newParserError(i, fmt.Sprintf(`\%c is not supported`, c), nil)
	case '_':
		return p.parseNewlineVariant(i)
	case '1', '2', '3', '4', '5', '6', '7', '8', '9':
		return Backref{Group: int(c - '0'), FoldCase: p.fold}, nil
	}

	if cc, ok := classEscape(c); ok {
		return Class(cc), nil
	}
	if e, ok := escapedChar(c); ok {
		return Literal{Char: e}, nil
	}
	r, n := utf8.DecodeRuneInString(p.re[i+1:])
	p.i = i + 1 + n
	return Literal{Char: r, FoldCase: p.fold}, nil
}

// \_x: the item x, additionally matching a newline
func (p *parser) parseNewlineVariant(i int) (Node, error) {
	if p.i >= len(p.re) {
		return nil, newParserError(i, `unexpected EOS after \_`, nil)
	}
	c := p.re[p.i]
	switch c {
	case '.':
		p.i++
		return Any{Newline: true}, nil
	case '[':
		return p.parseBracket(true)
	case '^':
		p.i++
		return Assert{Anchor: AnchorLineStart}, nil
	case '$':
		p.i++
		return Assert{Anchor: AnchorLineEnd}, nil
	}
	if cc, ok := classEscape(c); ok {
		p.i++
		cc.Newline = true
		return Class(cc), nil
	}
	return nil, newParserError(i, fmt.Sprintf(`unsupported \_%c`, c), nil)
}

// \( ... \) and \%( ... \), the opening already consumed
func (p *parser) parseGroup(open int, capture bool) (Node, error) {
	index := 0
	if capture {
		if p.groups == maxGroups {
			return nil, newParserError(open, `too many \(`, nil)
		}
		p.groups++
		index = p.groups
	}

	p.depth++
	sub, err := p.parseChoices()
	p.depth--
	if err != nil {
		return nil, err
	}
	if !p.peekEscaped(p.i, ')') {
		return nil, newParserError(open, `unmatched \(`, nil)
	}
	p.i += 2
	return Group{Index: index, Sub: sub}, nil
}

// [...] and [^...]; without a closing ']' the '[' is taken literally, as Vim does
func (p *parser) parseBracket(newline bool) (Node, error) {
	open := p.i
	j := p.i + 1
	cc := CharClass{FoldCase: p.fold, Newline: newline}
	if j < len(p.re) && p.re[j] == '^' {
		cc.Negate = true
		j++
	}
	// a ']' right after the opening is a member
	if j < len(p.re) && p.re[j] == ']' {
		cc.Ranges = append(cc.Ranges, CharRange{From: ']', To: ']'})
		j++
	}

	for j < len(p.re) && p.re[j] != ']' {
		if p.re[j] == '[' {
			if rs, n := parsePosixCharSet(p.re, j); rs != nil {
				cc.Ranges = append(cc.Ranges, rs...)
				j += n
				continue
			}
		}

		lo, n := bracketChar(p.re, j)
		j += n
		hi := lo
		if j+1 < len(p.re) && p.re[j] == '-' && p.re[j+1] != ']' {
			hi, n = bracketChar(p.re, j+1)
			if hi < lo {
				return nil, newParserError(j, "reverse range in character class", nil)
			}
			j += 1 + n
		}
		cc.Ranges = append(cc.Ranges, CharRange{From: lo, To: hi})
	}

	if j >= len(p.re) {
		p.i = open + 1
		return Literal{Char: '[', FoldCase: p.fold}, nil
	}
	p.i = j + 1
	return Class(cc), nil
}

// bracketChar decodes one member character of a bracket expression at re[j].
// A backslash not starting a known escape stands for itself.
func bracketChar(re string, j int) (rune, int) {
	if re[j] == '\\' && j+1 < len(re) {
		switch c := re[j+1]; c {
		case '\\', ']', '^', '-':
			return rune(c), 2
		default:
			if e, ok := escapedChar(c); ok {
				return e, 2
			}
		}
		return '\\', 1
	}
	return utf8.DecodeRuneInString(re[j:])
}

func (p *parser) parseMulti() (mi int, ma int, lazy bool, ok bool, err error) {
	if p.i >= len(p.re) {
		return 1, 1, false, false, nil
	}
	if p.re[p.i] == '*' {
		p.i++
		return 0, Unbounded, false, true, nil
	}
	if p.re[p.i] != '\\' || p.i+1 >= len(p.re) {
		return 1, 1, false, false, nil
	}

	switch p.re[p.i+1] {
	case '+':
		p.i += 2
		return 1, Unbounded, false, true, nil
	case '=', '?':
		p.i += 2
		return 0, 1, false, true, nil
	case '{':
		return p.parseBrace()
	}
	return 1, 1, false, false, nil
}

// \{n,m} \{n} \{n,} \{,m} \{} and the lazy \{-...} forms
func (p *parser) parseBrace() (mi int, ma int, lazy bool, ok bool, err error) {
	open := p.i
	body := p.re[p.i+2:]
	end := strings.IndexByte(body, '}')
	if end == -1 {
		return 0, 0, false, false, newParserError(open, "did not find closing '}'", nil)
	}
	p.i += 2 + end + 1
	body = strings.TrimSuffix(body[:end], `\`)

	if strings.HasPrefix(body, "-") {
		lazy = true
		body = body[1:]
	}

	bound := func(s string, def int) (int, error) {
		if s == "" {
			return def, nil
		}
		if strings.TrimLeft(s, "0123456789") != "" {
			return 0, newParserError(open, fmt.Sprintf("invalid count %q", s), nil)
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return 0, newParserError(open, "failed to convert to number", err)
		}
		if n > maxRepeat {
			return 0, newParserError(open, fmt.Sprintf("count %d exceeds %d", n, maxRepeat), nil)
		}
		return n, nil
	}

	minStr, maxStr, hasComma := strings.Cut(body, ",")
	if mi, err = bound(minStr, 0); err != nil {
		return 0, 0, false, false, err
	}
	switch {
	case !hasComma && minStr == "":
		ma = Unbounded
	case !hasComma:
		ma = mi
	default:
		if ma, err = bound(maxStr, Unbounded); err != nil {
			return 0, 0, false, false, err
		}
	}

	if ma != Unbounded && ma < mi {
		mi, ma = ma, mi
	}
	return mi, ma, lazy, true, nil
}

func (p *parser) atMulti() bool {
	if p.i >= len(p.re) {
		return false
	}
	if p.re[p.i] == '*' {
		return true
	}
	if p.re[p.i] != '\\' || p.i+1 >= len(p.re) {
		return false
	}
	switch p.re[p.i+1] {
	case '+', '=', '?', '{':
		return true
	}
	return false
}

func (p *parser) peekEscaped(i int, c byte) bool {
	return i+1 < len(p.re) && p.re[i] == '\\' && p.re[i+1] == c
}

func (p *parser) atBranchEnd(i int) bool {
	return i >= len(p.re) || p.peekEscaped(i, '|') || p.peekEscaped(i, ')') || p.peekEscaped(i, '&')
}

var posixClasses = map[string][]CharRange{
	"alnum":     {{'0', '9'}, {'A', 'Z'}, {'a', 'z'}},
	"alpha":     {{'A', 'Z'}, {'a', 'z'}},
	"backspace": {{'\b', '\b'}},
	"blank":     {{' ', ' '}, {'\t', '\t'}},
	"cntrl":     {{0x0, 0x1f}, {0x7f, 0x7f}},
	"digit":     {{'0', '9'}},
	"escape":    {{0x1b, 0x1b}},
	"graph":     {{0x21, 0x7e}},
	"lower":     {{'a', 'z'}},
	"print":     {{0x20, 0x7e}},
	"punct":     {{'!', '/'}, {':', '@'}, {'[', '`'}, {'{', '~'}},
	"return":    {{'\r', '\r'}},
	"space":     {{' ', ' '}, {'\t', '\r'}},
	"tab":       {{'\t', '\t'}},
	"upper":     {{'A', 'Z'}},
	"xdigit":    {{'0', '9'}, {'A', 'F'}, {'a', 'f'}},
}

// parsePosixCharSet parses a [:name:] class inside a bracket expression.
// It returns nil if re[i:] does not start with a known class.
func parsePosixCharSet(re string, i int) ([]CharRange, int) {
	if !strings.HasPrefix(re[i:], "[:") {
		return nil, 0
	}
	end := strings.Index(re[i+2:], ":]")
	if end == -1 {
		return nil, 0
	}
	ranges, ok := posixClasses[re[i+2:i+2+end]]
	if !ok {
		return nil, 0
	}
	return ranges, 2 + end + 2
}

// classEscape returns the class of a Vim character class item such as \d or \S.
// The upper-case letter is the complement of the lower-case one, except for the
// option based classes \i \k \f \p, whose upper-case forms only exclude digits.
// Those use the defaults of 'isident', 'iskeyword', 'isfname' and 'isprint'.
func classEscape(c byte) (CharClass, bool) {
	if ranges, ok := optionClasses[unicode.ToLower(rune(c))]; ok {
		if c >= 'A' && c <= 'Z' {
			ranges = withoutDigits(ranges)
		}
		return CharClass{Ranges: ranges}, true
	}

	var ranges []CharRange
	switch unicode.ToLower(rune(c)) {
	case 's':
		ranges = []CharRange{{' ', ' '}, {'\t', '\t'}}
	case 'd':
		ranges = []CharRange{{'0', '9'}}
	case 'w':
		ranges = []CharRange{{'0', '9'}, {'A', 'Z'}, {'_', '_'}, {'a', 'z'}}
	case 'a':
		ranges = []CharRange{{'A', 'Z'}, {'a', 'z'}}
	case 'l':
		ranges = []CharRange{{'a', 'z'}}
	case 'u':
		ranges = []CharRange{{'A', 'Z'}}
	case 'x':
		ranges = []CharRange{{'0', '9'}, {'A', 'F'}, {'a', 'f'}}
	case 'o':
		ranges = []CharRange{{'0', '7'}}
	case 'h':
		ranges = []CharRange{{'A', 'Z'}, {'_', '_'}, {'a', 'z'}}
	default:
		return CharClass{}, false
	}
	return CharClass{Negate: c >= 'A' && c <= 'Z', Ranges: ranges}, true
}

var optionClasses = map[rune][]CharRange{
	'i': {{'0', '9'}, {'A', 'Z'}, {'_', '_'}, {'a', 'z'}, {0xc0, 0xff}},
	'k': {{'0', '9'}, {'A', 'Z'}, {'_', '_'}, {'a', 'z'}, {0xc0, 0xff}},
	'f': {{'#', '%'}, {'+', '9'}, {'=', '='}, {'A', 'Z'}, {'_', '_'}, {'a', 'z'}, {'~', '~'}, {0xc0, 0xff}},
	'p': {{0x20, 0x7e}, {0xa1, 0xff}},
}

// withoutDigits returns ranges with '0' to '9' cut out.
func withoutDigits(ranges []CharRange) []CharRange {
	out := make([]CharRange, 0, len(ranges)+1)
	for _, r := range ranges {
		if r.To < '0' || r.From > '9' {
			out = append(out, r)
			continue
		}
		if r.From < '0' {
			out = append(out, CharRange{From: r.From, To: '0' - 1})
		}
		if r.To > '9' {
			out = append(out, CharRange{From: '9' + 1, To: r.To})
		}
	}
	return out
}

// escapedChar returns the character for Vim's escapes of unprintable characters.
func escapedChar(c byte) (rune, bool) {
	switch c {
	case 'e':
		return 0x1b, true
	case 't':
		return '\t', true
	case 'r':
		return '\r', true
	case 'b':
		return '\b', true
	case 'n':
		return '\n', true
	}
	return 0, false
}
