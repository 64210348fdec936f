package camm

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ErrUnterminated marks an LB/WD text argument that never reaches its
// escape byte.
var ErrUnterminated = errors.New("unterminated text command")

// TokenKind classifies a scanned CAMM-GL token.
type TokenKind int

const (
	// TokCommand is a two-letter mnemonic with numeric arguments.
	TokCommand TokenKind = iota
	// TokText is LB or WD carrying text up to the escape byte.
	TokText
	// TokEscapeSet is DT, which rebinds the escape byte.
	TokEscapeSet
	// TokBang is a !XX command with newline-terminated arguments.
	TokBang
	// TokDevice is an ESC.X device-control command.
	TokDevice
	// TokLegacy is a single-letter mode-1 command.
	TokLegacy
	// TokBad is input that parses as nothing above.
	TokBad
)

// Token is one scanned command.
type Token struct {
	Kind TokenKind
	Name string
	Args []float64
	Text string
}

// Scanner splits a CAMM-GL byte stream into tokens. It is deliberately
// lenient: anything unrecognised becomes a TokBad token instead of
// stopping the scan, and argument lists may be ragged.
type Scanner struct {
	data     []byte
	pos      int
	tokStart int
	escape   byte
}

// NewScanner returns a scanner over the given stream.
func NewScanner(data []byte) *Scanner {
	return &Scanner{data: data, escape: DefaultEscape}
}

func isUpper(c byte) bool { return c >= 'A' && c <= 'Z' }

func isArgByte(c byte) bool {
	switch c {
	case '0', '1', '2', '3', '4', '5', '6', '7', '8', '9',
		'+', '-', '.', ',', 'e', 'E', ' ', '\t', '\r', '\n':
		return true
	}
	return false
}

// Next returns the next token. The boolean turns false at the end of
// the stream. The only hard error is an unterminated text argument.
func (s *Scanner) Next() (Token, bool, error) {
	bad := s.pos
	for s.pos < len(s.data) {
		if tok, ok, err := s.tryToken(); err != nil {
			return Token{}, false, err
		} else if ok {
			if bad != s.tokStart {
				// Re-deliver the recognised token next round;
				// the garbage before it comes first.
				s.pos = s.tokStart
				return Token{Kind: TokBad, Text: string(s.data[bad:s.tokStart])}, true, nil
			}
			return tok, true, nil
		}
		s.pos++
	}
	if bad != s.pos {
		return Token{Kind: TokBad, Text: string(s.data[bad:s.pos])}, true, nil
	}
	return Token{}, false, nil
}

// tryToken attempts to parse a token at the current position. On
// success the position is advanced past it.
func (s *Scanner) tryToken() (Token, bool, error) {
	s.tokStart = s.pos
	c := s.data[s.pos]
	switch {
	case c == 0x1b:
		return s.scanDevice()
	case c == '!':
		return s.scanBang()
	case isUpper(c):
		if s.pos+1 < len(s.data) && isUpper(s.data[s.pos+1]) {
			return s.scanMnemonic()
		}
		return s.scanLegacy()
	}
	return Token{}, false, nil
}

// scanDevice parses ESC.X with optional ';'-separated arguments
// terminated by ':'. A bare escape byte is not a command; it falls
// through to bad input, which callers tolerate.
func (s *Scanner) scanDevice() (Token, bool, error) {
	if s.pos+2 >= len(s.data) || s.data[s.pos+1] != '.' {
		return Token{}, false, nil
	}
	name := string(s.data[s.pos+2])
	i := s.pos + 3
	argStart := i
	for i < len(s.data) && (s.data[i] == ';' || isArgByte(s.data[i])) {
		i++
	}
	text := string(s.data[argStart:i])
	if i < len(s.data) && s.data[i] == ':' {
		i++
	}
	s.pos = i
	return Token{Kind: TokDevice, Name: "." + name, Text: text}, true, nil
}

// scanBang parses !XX with arguments up to the end of the line.
func (s *Scanner) scanBang() (Token, bool, error) {
	if s.pos+2 >= len(s.data) || !isUpper(s.data[s.pos+1]) || !isUpper(s.data[s.pos+2]) {
		return Token{}, false, nil
	}
	name := "!" + string(s.data[s.pos+1:s.pos+3])
	i := s.pos + 3
	for i < len(s.data) && s.data[i] != '\n' {
		i++
	}
	raw := string(s.data[s.pos+3 : i])
	if i < len(s.data) {
		i++
	}
	s.pos = i
	return Token{Kind: TokBang, Name: name, Args: parseArgs(raw), Text: raw}, true, nil
}

func (s *Scanner) scanMnemonic() (Token, bool, error) {
	name := string(s.data[s.pos : s.pos+2])
	i := s.pos + 2
	switch name {
	case "LB", "WD":
		for i < len(s.data) && s.data[i] != s.escape {
			i++
		}
		if i >= len(s.data) {
			return Token{}, false, errors.Wrapf(ErrUnterminated, "%s", name)
		}
		text := string(s.data[s.pos+2 : i])
		s.pos = i + 1
		return Token{Kind: TokText, Name: name, Text: text}, true, nil
	case "DT":
		if i >= len(s.data) {
			return Token{}, false, errors.Wrap(ErrUnterminated, "DT")
		}
		s.escape = s.data[i]
		i++
		if i < len(s.data) && (s.data[i] == ';' || s.data[i] == '\n') {
			i++
		}
		s.pos = i
		return Token{Kind: TokEscapeSet, Name: "DT", Text: string(s.escape)}, true, nil
	}
	for i < len(s.data) && isArgByte(s.data[i]) {
		i++
	}
	raw := string(s.data[s.pos+2 : i])
	if i < len(s.data) && s.data[i] == ';' {
		i++
	}
	s.pos = i
	return Token{Kind: TokCommand, Name: name, Args: parseArgs(raw), Text: raw}, true, nil
}

// scanLegacy consumes a single-letter mode-1 command with whatever
// argument bytes follow it.
func (s *Scanner) scanLegacy() (Token, bool, error) {
	name := string(s.data[s.pos])
	i := s.pos + 1
	for i < len(s.data) && isArgByte(s.data[i]) {
		i++
	}
	raw := string(s.data[s.pos+1 : i])
	if i < len(s.data) && s.data[i] == ';' {
		i++
	}
	s.pos = i
	return Token{Kind: TokLegacy, Name: name, Args: parseArgs(raw), Text: raw}, true, nil
}

// parseArgs splits a raw argument string on commas and whitespace,
// keeping every piece that parses as a number.
func parseArgs(raw string) []float64 {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\r' || r == '\n'
	})
	var out []float64
	for _, f := range fields {
		if v, err := strconv.ParseFloat(f, 64); err == nil {
			out = append(out, v)
		}
	}
	return out
}

// IsWhitespaceOnly reports whether a bad token consists of whitespace
// alone; such garbage is silently tolerated.
func (t Token) IsWhitespaceOnly() bool {
	return strings.TrimSpace(t.Text) == ""
}
