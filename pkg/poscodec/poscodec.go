// Package poscodec implements the position codec: compressing a chess position down
// to an occupied-square bitboard plus one nibble per occupied square, and reversing the
// process by rebuilding a FEN string and parsing it with the chess rules engine.
package poscodec

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/corentings/chess/v2"

	"github.com/chesscompress/pgnvault/pkg/ingesterr"
)

// Nibble values. 0..11 are the ordinary pieces; the rest are "special" nibbles that
// additionally carry a bit of position state (en-passant target, castling rights, side
// to move) that would otherwise need its own field.
const (
	nibbleWhitePawn   = 0
	nibbleBlackPawn   = 1
	nibbleWhiteKnight = 2
	nibbleBlackKnight = 3
	nibbleWhiteBishop = 4
	nibbleBlackBishop = 5
	nibbleWhiteRook   = 6
	nibbleBlackRook   = 7
	nibbleWhiteQueen  = 8
	nibbleBlackQueen  = 9
	nibbleWhiteKing   = 10
	nibbleBlackKing   = 11
	nibbleEnPassant   = 12 // pawn with its en-passant square behind it
	nibbleWhiteCastle = 13 // white rook with its castling right still intact
	nibbleBlackCastle = 14 // black rook with its castling right still intact
	nibbleBlackToMove = 15 // black king, black to move
)

// CompressedPosition is the on-the-wire form of a chess position: a bitboard of
// occupied squares, plus two nibbles per byte describing each occupied square in
// ascending square-index order.
type CompressedPosition struct {
	Occupied uint64
	Packed   []byte
}

// Encode compresses pos into its sparse form.
func Encode(pos *chess.Position) CompressedPosition {
	board := pos.Board()

	var occupied uint64
	var nibbles []byte

	for sq := 0; sq < 64; sq++ {
		p := board.Piece(chess.Square(sq))
		if p == chess.NoPiece {
			continue
		}
		occupied |= 1 << uint(sq)
		nibbles = append(nibbles, nibbleFor(pos, chess.Square(sq), p))
	}

	n := len(nibbles)
	packed := make([]byte, (n+1)/2)
	for i := range packed {
		lo := nibbles[2*i]
		var hi byte
		if 2*i+1 < n {
			hi = nibbles[2*i+1]
		}
		packed[i] = lo | hi<<4
	}

	return CompressedPosition{Occupied: occupied, Packed: packed}
}

func nibbleFor(pos *chess.Position, sq chess.Square, p chess.Piece) byte {
	role, color := p.Type(), p.Color()

	nibble := plainNibble(role, color)

	if role == chess.Pawn && isEnPassantPawn(pos, sq, color) {
		return nibbleEnPassant
	}

	if role == chess.Rook && hasCastlingRight(pos, sq, color) {
		if color == chess.White {
			return nibbleWhiteCastle
		}
		return nibbleBlackCastle
	}

	if role == chess.King && color == chess.Black && pos.Turn() == chess.Black {
		return nibbleBlackToMove
	}

	return nibble
}

func plainNibble(role chess.PieceType, color chess.Color) byte {
	idx := map[chess.PieceType]byte{
		chess.Pawn: 0, chess.Knight: 2, chess.Bishop: 4,
		chess.Rook: 6, chess.Queen: 8, chess.King: 10,
	}[role]
	if color == chess.Black {
		idx++
	}
	return idx
}

func isEnPassantPawn(pos *chess.Position, sq chess.Square, color chess.Color) bool {
	ep := pos.EnPassantSquare()
	if ep == chess.NoSquare {
		return false
	}
	file, rank := sq.File(), sq.Rank()
	if color == chess.White && rank == chess.Rank4 {
		return chess.NewSquare(file, chess.Rank3) == ep
	}
	if color == chess.Black && rank == chess.Rank5 {
		return chess.NewSquare(file, chess.Rank6) == ep
	}
	return false
}

func hasCastlingRight(pos *chess.Position, sq chess.Square, color chess.Color) bool {
	cr := pos.CastleRights()
	if color == chess.White {
		return (sq == chess.H1 && cr.CanCastle(chess.White, chess.KingSide)) ||
			(sq == chess.A1 && cr.CanCastle(chess.White, chess.QueenSide))
	}
	return (sq == chess.H8 && cr.CanCastle(chess.Black, chess.KingSide)) ||
		(sq == chess.A8 && cr.CanCastle(chess.Black, chess.QueenSide))
}

// Decode reverses Encode, rebuilding a FEN string square by square and parsing it with
// the chess rules engine. The halfmove clock and fullmove number are not stored, so the
// decoded position always has them at 0 and 1.
func Decode(cp CompressedPosition) (*chess.Position, error) {
	n := popcount(cp.Occupied)

	nibbles := make([]byte, 0, n)
	for _, b := range cp.Packed {
		nibbles = append(nibbles, b&0x0F)
		if len(nibbles) < n {
			nibbles = append(nibbles, (b>>4)&0x0F)
		}
	}
	if len(nibbles) < n {
		return nil, ingesterr.Newf(ingesterr.InsufficientData,
			"poscodec: need %d nibbles, packed bytes yielded %d", n, len(nibbles))
	}

	squareNibble := make(map[int]byte, n)
	idx := 0
	for sq := 0; sq < 64; sq++ {
		if cp.Occupied&(1<<uint(sq)) == 0 {
			continue
		}
		if idx >= len(nibbles) {
			return nil, ingesterr.New(ingesterr.InsufficientData,
				fmt.Errorf("poscodec: ran out of nibbles before occupied squares"))
		}
		squareNibble[sq] = nibbles[idx]
		idx++
	}

	sideToMove := "w"
	var castling strings.Builder
	epSquare := "-"

	var fen strings.Builder
	for rank := 7; rank >= 0; rank-- {
		if rank != 7 {
			fen.WriteByte('/')
		}
		empty := 0
		for file := 0; file < 8; file++ {
			sq := rank*8 + file
			nib, ok := squareNibble[sq]
			if !ok {
				empty++
				continue
			}
			if empty > 0 {
				fmt.Fprintf(&fen, "%d", empty)
				empty = 0
			}

			ch, err := pieceChar(nib, rank, file, &sideToMove, &castling, &epSquare)
			if err != nil {
				return nil, err
			}
			fen.WriteByte(ch)
		}
		if empty > 0 {
			fmt.Fprintf(&fen, "%d", empty)
		}
	}

	// Ranks are visited from 8 down to 1, so rights are collected as "qkQK"; FEN lists
	// them in "KQkq" order.
	rights := ""
	for _, c := range "KQkq" {
		if strings.ContainsRune(castling.String(), c) {
			rights += string(c)
		}
	}
	if rights == "" {
		rights = "-"
	}

	fullFEN := fmt.Sprintf("%s %s %s %s 0 1", fen.String(), sideToMove, rights, epSquare)

	// fullFEN is always syntactically well-formed FEN by construction (ranks, piece
	// letters, and the trailing fields are built from known-valid pieces above), so a
	// rejection here means the reconstructed position itself is chess-illegal (e.g. a
	// missing or duplicated king), not a parse failure.
	pos := &chess.Position{}
	if err := pos.UnmarshalText([]byte(fullFEN)); err != nil {
		return nil, ingesterr.New(ingesterr.IllegalPosition, err)
	}
	return pos, nil
}

func pieceChar(nib byte, rank, file int, sideToMove *string, castling *strings.Builder, epSquare *string) (byte, error) {
	switch nib {
	case nibbleWhitePawn:
		return 'P', nil
	case nibbleBlackPawn:
		return 'p', nil
	case nibbleWhiteKnight:
		return 'N', nil
	case nibbleBlackKnight:
		return 'n', nil
	case nibbleWhiteBishop:
		return 'B', nil
	case nibbleBlackBishop:
		return 'b', nil
	case nibbleWhiteRook:
		return 'R', nil
	case nibbleBlackRook:
		return 'r', nil
	case nibbleWhiteQueen:
		return 'Q', nil
	case nibbleBlackQueen:
		return 'q', nil
	case nibbleWhiteKing:
		return 'K', nil
	case nibbleBlackKing:
		return 'k', nil
	case nibbleEnPassant:
		var ch byte
		var epRank int
		if rank >= 4 {
			ch, epRank = 'p', 5 // rank 6 in 1-based FEN terms
		} else {
			ch, epRank = 'P', 2 // rank 3 in 1-based FEN terms
		}
		*epSquare = squareName(file, epRank)
		return ch, nil
	case nibbleWhiteCastle:
		if file == 7 {
			castling.WriteByte('K')
		} else if file == 0 {
			castling.WriteByte('Q')
		}
		return 'R', nil
	case nibbleBlackCastle:
		if file == 7 {
			castling.WriteByte('k')
		} else if file == 0 {
			castling.WriteByte('q')
		}
		return 'r', nil
	case nibbleBlackToMove:
		*sideToMove = "b"
		return 'k', nil
	default:
		return 0, ingesterr.Newf(ingesterr.InvalidNibble, "poscodec: invalid nibble value %d", nib)
	}
}

func squareName(file, rank int) string {
	return fmt.Sprintf("%c%d", 'a'+file, rank+1)
}

// WriteTo appends the sparse-form wire encoding of cp (8-byte big-endian occupied mask
// followed by the packed nibble bytes) to data.
func (cp CompressedPosition) WriteTo(data []byte) []byte {
	var mask [8]byte
	binary.BigEndian.PutUint64(mask[:], cp.Occupied)
	data = append(data, mask[:]...)
	return append(data, cp.Packed...)
}

// ReadFrom parses the sparse-form wire encoding out of the front of data.
func ReadFrom(data []byte) (CompressedPosition, error) {
	if len(data) < 8 {
		return CompressedPosition{}, ingesterr.Newf(ingesterr.InsufficientData,
			"poscodec: need 8 bytes for occupied mask, got %d", len(data))
	}
	occupied := binary.BigEndian.Uint64(data[:8])
	n := popcount(occupied)
	packedLen := (n + 1) / 2
	if len(data) < 8+packedLen {
		return CompressedPosition{}, ingesterr.Newf(ingesterr.InsufficientData,
			"poscodec: need %d bytes for packed state, got %d", packedLen, len(data)-8)
	}
	packed := make([]byte, packedLen)
	copy(packed, data[8:8+packedLen])
	return CompressedPosition{Occupied: occupied, Packed: packed}, nil
}

func popcount(x uint64) int {
	n := 0
	for x != 0 {
		x &= x - 1
		n++
	}
	return n
}
