// Package writer implements the batch writer: compressing a batch of validated games
// and persisting them inside one transaction, deduplicating positions against an
// in-memory cache shared across batches.
package writer

import (
	"context"
	"errors"
	"sync"

	"github.com/corentings/chess/v2"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/seekerror/logw"

	"github.com/chesscompress/pgnvault/pkg/ingesterr"
	"github.com/chesscompress/pgnvault/pkg/movecodec"
	"github.com/chesscompress/pgnvault/pkg/poscodec"
	"github.com/chesscompress/pgnvault/pkg/visitor"
)

// classifyDBErr maps a pgx error to the ingesterr.Kind that determines how the caller
// reacts to it: a Postgres-reported integrity-constraint violation or a syntax/schema
// error (SQLSTATE classes 23 and 42) means the database itself rejected the statement
// and a retry cannot help, so it's DbFatal. Anything else (connection drops, timeouts,
// serialization failures) is DbTransient and worth one retry.
func classifyDBErr(err error) ingesterr.Kind {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && len(pgErr.Code) >= 2 {
		switch pgErr.Code[:2] {
		case "23", "42":
			return ingesterr.DbFatal
		}
	}
	return ingesterr.DbTransient
}

// Writer persists batches of games. A Writer is safe for concurrent use by multiple
// batch-processing goroutines; only the position cache is shared mutable state, and it
// is guarded by its own mutex.
type Writer struct {
	pool *pgxpool.Pool

	// MaxPliesPerGame caps how many of a game's positions are persisted; it keeps a
	// single very long game from dominating a batch's row count.
	MaxPliesPerGame int

	cacheMu sync.Mutex
	cache   map[string]int64
}

// New returns a Writer backed by pool.
func New(pool *pgxpool.Pool, maxPliesPerGame int) *Writer {
	return &Writer{
		pool:            pool,
		MaxPliesPerGame: maxPliesPerGame,
		cache:           make(map[string]int64),
	}
}

// compiledGame is one game after compression, ready to persist.
type compiledGame struct {
	src            visitor.Game
	compressedSAN  []byte
	plyPositions   []plyPosition // capped at MaxPliesPerGame
}

type plyPosition struct {
	ply    int
	packed []byte // wire form: 8-byte mask + nibbles
}

// WriteBatch compresses and persists games. Games that fail compression are dropped
// with a log line, per the contract that a single malformed game must not sink the
// whole batch. The transactional persistence step is retried once on failure; a
// second failure is returned to the caller. Errors whose kind aborts the process are
// returned at once, without a retry.
func (w *Writer) WriteBatch(ctx context.Context, games []visitor.Game) error {
	compiled := make([]compiledGame, 0, len(games))
	for _, g := range games {
		cg, err := w.compile(g)
		if err != nil {
			logw.Errorf(ctx, "writer: dropping game %v vs %v: %v", g.White, g.Black, err)
			continue
		}
		compiled = append(compiled, cg)
	}
	if len(compiled) == 0 {
		return nil
	}

	err := w.persist(ctx, compiled)
	if err == nil {
		return nil
	}

	var ierr *ingesterr.Error
	if errors.As(err, &ierr) && ierr.Kind.AbortsProcess() {
		return err
	}

	logw.Errorf(ctx, "writer: batch failed, retrying once: %v", err)
	return w.persist(ctx, compiled)
}

func (w *Writer) compile(g visitor.Game) (compiledGame, error) {
	start, err := startingPosition(g.StartFEN)
	if err != nil {
		return compiledGame{}, err
	}

	blob, err := movecodec.Encode(start, g.SAN)
	if err != nil {
		return compiledGame{}, err
	}

	var plies []plyPosition
	pos := start
	notation := chess.AlgebraicNotation{}
	for i, san := range g.SAN {
		if len(plies) >= w.MaxPliesPerGame {
			break
		}
		m, err := notation.Decode(pos, san)
		if err != nil {
			return compiledGame{}, ingesterr.New(ingesterr.UnparseableSan, err)
		}
		next := pos.Update(m)
		if next == nil {
			return compiledGame{}, ingesterr.Newf(ingesterr.PlayFailure,
				"writer: ply %d: engine rejected move %s", i+1, san)
		}
		pos = next

		cp := poscodec.Encode(pos)
		plies = append(plies, plyPosition{ply: i + 1, packed: cp.WriteTo(nil)})
	}

	return compiledGame{src: g, compressedSAN: blob, plyPositions: plies}, nil
}

func startingPosition(fen string) (*chess.Position, error) {
	if fen == "" {
		return chess.StartingPosition(), nil
	}
	pos := &chess.Position{}
	if err := pos.UnmarshalText([]byte(fen)); err != nil {
		return nil, ingesterr.New(ingesterr.FenParse, err)
	}
	return pos, nil
}

// persist runs the full insert sequence inside one transaction.
func (w *Writer) persist(ctx context.Context, games []compiledGame) error {
	tx, err := w.pool.Begin(ctx)
	if err != nil {
		return ingesterr.New(classifyDBErr(err), err)
	}
	defer tx.Rollback(ctx)

	gameIDs, err := w.insertGames(ctx, tx, games)
	if err != nil {
		return err
	}
	if len(gameIDs) != len(games) {
		return ingesterr.Newf(ingesterr.InternalConsistency,
			"writer: inserted %d game rows for %d games submitted", len(gameIDs), len(games))
	}

	positionIDs, err := w.resolvePositions(ctx, tx, games)
	if err != nil {
		return err
	}

	if err := w.insertGamePositions(ctx, tx, games, gameIDs, positionIDs); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return ingesterr.New(classifyDBErr(err), err)
	}
	return nil
}

func (w *Writer) insertGames(ctx context.Context, tx pgx.Tx, games []compiledGame) ([]int64, error) {
	ids := make([]int64, 0, len(games))
	for _, g := range games {
		src := g.src

		var playedOn any
		if d, ok := src.Date.V(); ok {
			playedOn = d
		}

		var id int64
		err := tx.QueryRow(ctx,
			`INSERT INTO games
				(eco, white_player, black_player, played_on, result, compressed_moves,
				 ply_count, white_elo, black_elo, time_control)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			 RETURNING id`,
			src.ECO, src.White, src.Black, playedOn, string(src.Result), g.compressedSAN,
			len(src.SAN), src.WhiteElo, src.BlackElo, string(src.TimeControl),
		).Scan(&id)
		if err != nil {
			return nil, ingesterr.New(classifyDBErr(err), err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// resolvePositions maps every unique compressed-position payload referenced by games
// to a position id, consulting the in-memory cache, then the database, then inserting
// whatever remains unresolved. It updates the cache with every id it discovers.
func (w *Writer) resolvePositions(ctx context.Context, tx pgx.Tx, games []compiledGame) (map[string]int64, error) {
	unique := map[string][]byte{}
	for _, g := range games {
		for _, p := range g.plyPositions {
			unique[string(p.packed)] = p.packed
		}
	}

	resolved := map[string]int64{}

	w.cacheMu.Lock()
	var missing [][]byte
	for key, raw := range unique {
		if id, ok := w.cache[key]; ok {
			resolved[key] = id
		} else {
			missing = append(missing, raw)
		}
	}
	w.cacheMu.Unlock()

	if len(missing) == 0 {
		return resolved, nil
	}

	rows, err := tx.Query(ctx, `SELECT id, compressed_fen FROM positions WHERE compressed_fen = ANY($1)`, missing)
	if err != nil {
		return nil, ingesterr.New(classifyDBErr(err), err)
	}
	found := map[string]bool{}
	for rows.Next() {
		var id int64
		var fen []byte
		if err := rows.Scan(&id, &fen); err != nil {
			rows.Close()
			return nil, ingesterr.New(classifyDBErr(err), err)
		}
		resolved[string(fen)] = id
		found[string(fen)] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, ingesterr.New(classifyDBErr(err), err)
	}

	var toInsert [][]byte
	for _, raw := range missing {
		if !found[string(raw)] {
			toInsert = append(toInsert, raw)
		}
	}

	if len(toInsert) > 0 {
		insRows, err := tx.Query(ctx,
			`INSERT INTO positions (compressed_fen) SELECT unnest($1::bytea[]) RETURNING id, compressed_fen`,
			toInsert)
		if err != nil {
			return nil, ingesterr.New(classifyDBErr(err), err)
		}
		for insRows.Next() {
			var id int64
			var fen []byte
			if err := insRows.Scan(&id, &fen); err != nil {
				insRows.Close()
				return nil, ingesterr.New(classifyDBErr(err), err)
			}
			resolved[string(fen)] = id
		}
		insRows.Close()
		if err := insRows.Err(); err != nil {
			return nil, ingesterr.New(classifyDBErr(err), err)
		}
	}

	w.cacheMu.Lock()
	for key, id := range resolved {
		w.cache[key] = id
	}
	w.cacheMu.Unlock()

	return resolved, nil
}

func (w *Writer) insertGamePositions(ctx context.Context, tx pgx.Tx, games []compiledGame, gameIDs []int64, positionIDs map[string]int64) error {
	type row struct {
		gameID, positionID int64
		ply                int
	}
	var rows []row
	for i, g := range games {
		for _, p := range g.plyPositions {
			id, ok := positionIDs[string(p.packed)]
			if !ok {
				return ingesterr.Newf(ingesterr.InternalConsistency,
					"writer: no resolved position id for game %d ply %d", gameIDs[i], p.ply)
			}
			rows = append(rows, row{gameID: gameIDs[i], positionID: id, ply: p.ply})
		}
	}
	if len(rows) == 0 {
		return nil
	}

	gameIDCol := make([]int64, len(rows))
	positionIDCol := make([]int64, len(rows))
	plyCol := make([]int32, len(rows))
	for i, r := range rows {
		gameIDCol[i] = r.gameID
		positionIDCol[i] = r.positionID
		plyCol[i] = int32(r.ply)
	}

	_, err := tx.Exec(ctx,
		`INSERT INTO game_positions (game_id, position_id, ply_number)
		 SELECT * FROM unnest($1::bigint[], $2::bigint[], $3::int[])`,
		gameIDCol, positionIDCol, plyCol)
	if err != nil {
		return ingesterr.New(classifyDBErr(err), err)
	}
	return nil
}
