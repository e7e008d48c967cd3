package writer

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chesscompress/pgnvault/pkg/ingesterr"
	"github.com/chesscompress/pgnvault/pkg/movecodec"
	"github.com/chesscompress/pgnvault/pkg/visitor"
)

func TestCompileProducesCappedPlyPositions(t *testing.T) {
	w := &Writer{MaxPliesPerGame: 2}

	g := visitor.Game{
		SAN: []string{"e4", "e5", "Nf3", "Nc6"},
	}

	cg, err := w.compile(g)
	require.NoError(t, err)
	assert.Len(t, cg.plyPositions, 2)
	assert.Equal(t, 1, cg.plyPositions[0].ply)
	assert.Equal(t, 2, cg.plyPositions[1].ply)
	assert.NotEmpty(t, cg.compressedSAN)
}

func TestCompileRoundTripsThroughMovecodec(t *testing.T) {
	w := &Writer{MaxPliesPerGame: 50}
	sans := []string{"d4", "Nf6", "c4", "e6"}

	cg, err := w.compile(visitor.Game{SAN: sans})
	require.NoError(t, err)

	start, err := startingPosition("")
	require.NoError(t, err)
	got, err := movecodec.Decode(start, cg.compressedSAN, len(sans))
	require.NoError(t, err)
	assert.Equal(t, sans, got)
}

func TestCompileDropsOnIllegalMove(t *testing.T) {
	w := &Writer{MaxPliesPerGame: 50}
	_, err := w.compile(visitor.Game{SAN: []string{"e5"}})
	require.Error(t, err)
}

func TestStartingPositionFromCustomFEN(t *testing.T) {
	pos, err := startingPosition("8/8/8/4k3/8/8/8/4K2R w K - 0 1")
	require.NoError(t, err)
	assert.Equal(t, "8/8/8/4k3/8/8/8/4K2R w K - 0 1", pos.String())
}

func TestStartingPositionRejectsMalformedFEN(t *testing.T) {
	_, err := startingPosition("not a fen")
	require.Error(t, err)
}

func TestClassifyDBErrConstraintViolationIsFatal(t *testing.T) {
	err := &pgconn.PgError{Code: "23505", Message: "duplicate key value"}
	assert.Equal(t, ingesterr.DbFatal, classifyDBErr(err))
}

func TestClassifyDBErrSyntaxErrorIsFatal(t *testing.T) {
	err := &pgconn.PgError{Code: "42601", Message: "syntax error"}
	assert.Equal(t, ingesterr.DbFatal, classifyDBErr(err))
}

func TestClassifyDBErrOtherPgErrorIsTransient(t *testing.T) {
	err := &pgconn.PgError{Code: "40001", Message: "serialization failure"}
	assert.Equal(t, ingesterr.DbTransient, classifyDBErr(err))
}

func TestClassifyDBErrNonPgErrorIsTransient(t *testing.T) {
	assert.Equal(t, ingesterr.DbTransient, classifyDBErr(errors.New("connection reset")))
}
