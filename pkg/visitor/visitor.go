// Package visitor implements the PGN visitor: a pure state machine that turns the
// header/SAN event stream from pkg/pgnscan into validated Game records, batched for
// the writer. No inheritance or visitor-pattern dispatch is needed, just a record
// under construction plus a skip flag.
package visitor

import (
	"strconv"
	"strings"
	"time"

	"github.com/seekerror/stdlib/pkg/lang"
)

// Speed is the time-control bucket assigned to a game.
type Speed string

const (
	UltraBullet    Speed = "ultraBullet"
	Bullet         Speed = "bullet"
	Blitz          Speed = "blitz"
	Rapid          Speed = "rapid"
	Classical      Speed = "classical"
	Correspondence Speed = "correspondence"
)

// Result is the game outcome from White's perspective.
type Result string

const (
	ResultWhite Result = "white"
	ResultBlack Result = "black"
	ResultDraw  Result = "draw"
)

// Game is one parsed PGN game, ready for compression and persistence.
type Game struct {
	ECO         string
	White       string
	Black       string
	Date        lang.Optional[time.Time]
	Result      Result
	WhiteElo    int
	BlackElo    int
	TimeControl Speed
	StartFEN    string // empty means the standard initial position
	SAN         []string
}

// speedFromSecondsAndIncrement buckets a time control by seconds + 40*increment.
func speedFromSecondsAndIncrement(seconds, increment int) Speed {
	total := seconds + 40*increment
	switch {
	case total < 30:
		return UltraBullet
	case total < 180:
		return Bullet
	case total < 480:
		return Blitz
	case total < 1500:
		return Rapid
	case total < 21600:
		return Classical
	default:
		return Correspondence
	}
}

// speedFromTimeControl parses a PGN TimeControl header value such as "180+2".
func speedFromTimeControl(value string) (Speed, bool) {
	if value == "-" || strings.Contains(value, "/") {
		return Correspondence, true
	}
	parts := strings.SplitN(value, "+", 2)
	seconds, err := strconv.Atoi(parts[0])
	if err != nil {
		return "", false
	}
	increment := 0
	if len(parts) == 2 {
		increment, err = strconv.Atoi(parts[1])
		if err != nil {
			return "", false
		}
	}
	return speedFromSecondsAndIncrement(seconds, increment), true
}

var epoch2000 = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// parseDate parses a PGN Date header of the form YYYY.MM.DD. "??" components for
// month or day fall back to 01; an unparseable value falls back to Jan 1 of the
// parsed year, and a wholly unparseable value is reported as absent.
func parseDate(value string) (time.Time, bool) {
	parts := strings.Split(value, ".")
	if len(parts) != 3 {
		return time.Time{}, false
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return time.Time{}, false
	}
	jan1 := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	month := 1
	if parts[1] != "??" {
		m, err := strconv.Atoi(parts[1])
		if err != nil || m < 1 || m > 12 {
			return jan1, true
		}
		month = m
	}
	day := 1
	if parts[2] != "??" {
		d, err := strconv.Atoi(parts[2])
		if err != nil || d < 1 {
			return jan1, true
		}
		day = d
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day {
		return jan1, true // e.g. February 30th
	}
	return t, true
}

// standardInitialFEN is the exact board FEN pgn-reader style importers treat as "no
// custom starting position" even when the game carries an explicit FEN header.
const standardInitialFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// Record accumulates one game across the pgnscan.Visitor callbacks.
type Record struct {
	game              Game
	skip              bool
	sawExplicitSpeed  bool
	batch             []Game
	batchSize         int
	emit              func([]Game)
}

// NewRecord returns a Record that calls emit with a full batch of batchSize games
// (and, via Flush, with whatever remains at end of stream).
func NewRecord(batchSize int, emit func([]Game)) *Record {
	return &Record{batchSize: batchSize, emit: emit}
}

func (r *Record) BeginGame() {
	r.skip = false
	r.sawExplicitSpeed = false
	r.game = Game{}
}

func (r *Record) Header(key, value string) {
	switch key {
	case "White":
		r.game.White = orUnknown(value)
	case "Black":
		r.game.Black = orUnknown(value)
	case "WhiteElo":
		r.game.WhiteElo = parseElo(value)
	case "BlackElo":
		r.game.BlackElo = parseElo(value)
	case "Date":
		if d, ok := parseDate(value); ok {
			r.game.Date = lang.Some(d)
		}
	case "Result":
		switch value {
		case "1-0":
			r.game.Result = ResultWhite
		case "0-1":
			r.game.Result = ResultBlack
		case "1/2-1/2":
			r.game.Result = ResultDraw
		default:
			r.skip = true
		}
	case "ECO":
		r.game.ECO = value
	case "TimeControl":
		if speed, ok := speedFromTimeControl(value); ok {
			r.game.TimeControl = speed
			r.sawExplicitSpeed = true
		}
	case "FEN":
		if value != standardInitialFEN {
			r.game.StartFEN = value
		}
	}
}

func (r *Record) EndHeaders() bool {
	if r.game.White == "" || r.game.Black == "" || r.game.ECO == "" {
		r.skip = true
	}
	if !r.sawExplicitSpeed {
		if d, ok := r.game.Date.V(); ok && d.Before(epoch2000) {
			r.game.TimeControl = Classical
		}
	}
	return r.skip
}

func (r *Record) SAN(token string) {
	r.game.SAN = append(r.game.SAN, token)
}

func (r *Record) BeginVariation() bool { return true }
func (r *Record) EndVariation()        {}

func (r *Record) EndGame() {
	if !r.skip {
		r.batch = append(r.batch, r.game)
	}
	if len(r.batch) >= r.batchSize {
		r.flush()
	}
}

// Flush emits whatever games remain in the current batch, even if it is short of
// batchSize. Callers must call this once after the PGN stream is exhausted.
func (r *Record) Flush() {
	if len(r.batch) > 0 {
		r.flush()
	}
}

func (r *Record) flush() {
	batch := r.batch
	r.batch = nil
	r.emit(batch)
}

func orUnknown(value string) string {
	if value == "?" {
		return "Unknown"
	}
	return value
}

func parseElo(value string) int {
	if value == "?" {
		return 0
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return n
}
