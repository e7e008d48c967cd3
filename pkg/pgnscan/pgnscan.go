// Package pgnscan is a minimal streaming reader for PGN text, mirroring the small
// visitor contract of the usual PGN-streaming readers: games are delivered as a
// sequence of callbacks (begin_game, header, end_headers, san, begin_variation,
// end_variation, end_game) so a caller never needs the whole file in memory at once.
package pgnscan

import (
	"bufio"
	"io"
	"strings"
)

// Visitor receives the events of one PGN stream. Implementations typically accumulate
// state into a scratch record between BeginGame and EndGame.
type Visitor interface {
	BeginGame()
	Header(key, value string)
	// EndHeaders returns true to discard the game without visiting its moves.
	EndHeaders() (skip bool)
	SAN(token string)
	// BeginVariation returns true to discard the variation's moves and comments.
	BeginVariation() (skip bool)
	EndVariation()
	EndGame()
}

// Scanner reads games out of a PGN stream one at a time.
type Scanner struct {
	r *bufio.Reader
}

// NewScanner wraps r for streaming PGN reads.
func NewScanner(r io.Reader) *Scanner {
	return &Scanner{r: bufio.NewReader(r)}
}

// ReadAll drives v through every game in the stream, in order, until EOF.
func (s *Scanner) ReadAll(v Visitor) error {
	for {
		more, err := s.readGame(v)
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
}

// readGame reads a single game's headers and movetext. It returns false, nil at EOF
// with nothing left to read.
func (s *Scanner) readGame(v Visitor) (bool, error) {
	sawHeader, err := s.skipBlankLinesAndPeekHeader()
	if err != nil && err != io.EOF {
		return false, err
	}
	if !sawHeader && err == io.EOF {
		return false, nil
	}

	v.BeginGame()

	for {
		line, lerr := s.r.ReadString('\n')
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			break
		}
		if key, value, ok := parseHeaderLine(trimmed); ok {
			v.Header(key, value)
		}
		if lerr != nil {
			break
		}
	}

	skip := v.EndHeaders()

	if err := s.readMovetext(v, skip); err != nil && err != io.EOF {
		return false, err
	}

	v.EndGame()
	return true, nil
}

// skipBlankLinesAndPeekHeader advances past blank lines until it finds a line, and
// reports whether any non-EOF content remains.
func (s *Scanner) skipBlankLinesAndPeekHeader() (bool, error) {
	for {
		b, err := s.r.Peek(1)
		if err != nil {
			return false, err
		}
		if b[0] == '\n' || b[0] == '\r' {
			if _, err := s.r.ReadByte(); err != nil {
				return false, err
			}
			continue
		}
		return true, nil
	}
}

func parseHeaderLine(line string) (key, value string, ok bool) {
	if !strings.HasPrefix(line, "[") || !strings.HasSuffix(line, "]") {
		return "", "", false
	}
	inner := line[1 : len(line)-1]
	sp := strings.IndexByte(inner, ' ')
	if sp < 0 {
		return "", "", false
	}
	key = inner[:sp]
	rest := strings.TrimSpace(inner[sp+1:])
	rest = strings.Trim(rest, `"`)
	return key, rest, true
}

// readMovetext tokenizes the movetext section up to (and consuming) the next blank
// line or EOF, emitting SAN tokens and variation boundaries to v. Move numbers, result
// markers, NAGs, and brace comments are recognized and discarded.
func (s *Scanner) readMovetext(v Visitor, topSkip bool) error {
	depth := 0
	skipStack := []bool{topSkip}

	for {
		tok, terr := s.nextToken()
		if tok == "" && terr != nil {
			return terr
		}
		if tok == "" {
			continue
		}

		switch {
		case tok == "(":
			depth++
			var skip bool
			if !skipStack[len(skipStack)-1] {
				skip = v.BeginVariation()
			} else {
				skip = true
			}
			skipStack = append(skipStack, skip)
			continue
		case tok == ")":
			if depth > 0 {
				depth--
				if !skipStack[len(skipStack)-1] {
					v.EndVariation()
				}
				skipStack = skipStack[:len(skipStack)-1]
			}
			continue
		case isResultToken(tok):
			if terr != nil {
				return terr
			}
			continue
		case isMoveNumber(tok):
			continue
		}

		if !skipStack[len(skipStack)-1] {
			v.SAN(tok)
		}

		if terr != nil {
			return terr
		}
	}
}

// nextToken reads the next whitespace- or punctuation-delimited movetext token,
// skipping brace comments, semicolon-to-end-of-line comments, and NAGs. A blank line
// (two consecutive newlines) ends the movetext and is reported as io.EOF to the caller.
func (s *Scanner) nextToken() (string, error) {
	var sb strings.Builder
	newlineRun := 0

	for {
		b, err := s.r.ReadByte()
		if err != nil {
			if sb.Len() > 0 {
				return sb.String(), err
			}
			return "", err
		}

		switch {
		case b == '{':
			if sb.Len() > 0 {
				_ = s.r.UnreadByte()
				return sb.String(), nil
			}
			if err := s.skipUntil('}'); err != nil {
				return "", err
			}
			continue
		case b == ';':
			if sb.Len() > 0 {
				_ = s.r.UnreadByte()
				return sb.String(), nil
			}
			if err := s.skipUntil('\n'); err != nil {
				return "", err
			}
			continue
		case b == '$':
			if sb.Len() > 0 {
				_ = s.r.UnreadByte()
				return sb.String(), nil
			}
			s.skipNAG()
			continue
		case b == '(' || b == ')':
			if sb.Len() > 0 {
				_ = s.r.UnreadByte()
				return sb.String(), nil
			}
			return string(b), nil
		case b == ' ' || b == '\t' || b == '\r':
			if sb.Len() > 0 {
				return sb.String(), nil
			}
			continue
		case b == '\n':
			if sb.Len() > 0 {
				// Leave the newline for the next call so a blank line right after
				// this token is still seen as two consecutive newlines.
				_ = s.r.UnreadByte()
				return sb.String(), nil
			}
			newlineRun++
			if newlineRun >= 2 {
				return "", io.EOF
			}
			continue
		default:
			newlineRun = 0
			sb.WriteByte(b)
		}
	}
}

func (s *Scanner) skipUntil(delim byte) error {
	_, err := s.r.ReadString(delim)
	return err
}

func (s *Scanner) skipNAG() {
	for {
		b, err := s.r.ReadByte()
		if err != nil {
			return
		}
		if b < '0' || b > '9' {
			_ = s.r.UnreadByte()
			return
		}
	}
}

func isResultToken(tok string) bool {
	switch tok {
	case "1-0", "0-1", "1/2-1/2", "*":
		return true
	}
	return false
}

// isMoveNumber reports whether tok is a move-number marker like "12." or "12...".
func isMoveNumber(tok string) bool {
	i := 0
	for i < len(tok) && tok[i] >= '0' && tok[i] <= '9' {
		i++
	}
	if i == 0 {
		return false
	}
	for i < len(tok) {
		if tok[i] != '.' {
			return false
		}
		i++
	}
	return true
}
