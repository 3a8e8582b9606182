package match

import (
	"strings"

	"github.com/pairspace/pairspace/internal/services/game/domain/event"
)

// Rejection codes for the authoritative move path.
type Code string

const (
	// CodeInvalidRequest flags malformed input: bad cell, bad mark or a
	// missing participant id.
	CodeInvalidRequest Code = "invalid_request"
	// CodeAuthMismatch flags a credential that does not resolve to the
	// claimed participant.
	CodeAuthMismatch Code = "auth_mismatch"
	// CodeGameFinished rejects moves after a game has concluded.
	CodeGameFinished Code = "game_finished"
	// CodeWrongTurn rejects a move by the mark that is not up.
	CodeWrongTurn Code = "wrong_turn"
	// CodeCellOccupied rejects a move onto a taken cell.
	CodeCellOccupied Code = "cell_occupied"
	// CodeStoreUnavailable flags a transient event-log failure.
	CodeStoreUnavailable Code = "store_unavailable"
)

// MoveCommand is a move submission from a client.
type MoveCommand struct {
	Cell          int
	Mark          string
	ParticipantID string
}

// Rejection explains a refused move.
type Rejection struct {
	Code         Code
	ExpectedMark Mark
	Result       Result
	// Board and Moves are populated only in verbose mode on
	// game_finished rejections.
	Board []Mark
	Moves []MoveRecord
}

// DecideOptions tunes decision output.
type DecideOptions struct {
	// Verbose echoes the reconstructed board and move history on
	// game_finished rejections.
	Verbose bool
}

// DecideMove re-derives board state from the log and decides a move
// submission. It is stateless: every call replays from scratch because
// either participant's client may submit concurrently and no in-memory
// session can be trusted across racing requests.
//
// On acceptance it returns the MOVE payload the caller must append;
// whichever racer's append is durably recorded first becomes canonical.
func DecideMove(events []event.Event, cmd MoveCommand, opts DecideOptions) (event.Move, *Rejection) {
	mark, validMark := ParseMark(cmd.Mark)
	if !ValidCell(cmd.Cell) || !validMark || strings.TrimSpace(cmd.ParticipantID) == "" {
		return event.Move{}, &Rejection{Code: CodeInvalidRequest}
	}

	board, lastMark := reconstructBoard(events)

	result, _ := board.Outcome()
	if result != ResultNone {
		rejection := &Rejection{Code: CodeGameFinished, Result: result}
		if opts.Verbose {
			rejection.Board = board[:]
			rejection.Moves = foldMoveHistory(events)
		}
		return event.Move{}, rejection
	}

	expected := FirstMark
	if lastMark != MarkNone {
		expected = lastMark.Opponent()
	}
	if mark != expected {
		return event.Move{}, &Rejection{Code: CodeWrongTurn, ExpectedMark: expected}
	}

	if board[cmd.Cell] != MarkNone {
		return event.Move{}, &Rejection{Code: CodeCellOccupied}
	}

	return event.Move{Cell: cmd.Cell, Mark: string(mark)}, nil
}

// reconstructBoard is the validator's reduced replay: it folds only MOVE
// events, treating START, ACCEPT and accepted rematches as board resets,
// and ignores invite and chat bookkeeping entirely.
func reconstructBoard(events []event.Event) (Board, Mark) {
	var board Board
	lastMark := MarkNone
	for _, evt := range events {
		switch payload := evt.Payload().(type) {
		case event.Start, event.Accept, event.RematchAccept:
			board = Board{}
			lastMark = MarkNone
		case event.Move:
			mark, ok := ParseMark(payload.Mark)
			if !ok || !ValidCell(payload.Cell) {
				continue
			}
			board[payload.Cell] = mark
			lastMark = mark
		}
	}
	return board, lastMark
}

// foldMoveHistory collects the moves of the current game for verbose
// game_finished echoes.
func foldMoveHistory(events []event.Event) []MoveRecord {
	var moves []MoveRecord
	for _, evt := range events {
		switch payload := evt.Payload().(type) {
		case event.Start, event.Accept, event.RematchAccept:
			moves = nil
		case event.Move:
			mark, ok := ParseMark(payload.Mark)
			if !ok || !ValidCell(payload.Cell) {
				continue
			}
			moves = append(moves, MoveRecord{
				Cell:     payload.Cell,
				Mark:     mark,
				OwnerID:  evt.OwnerID,
				PlayedAt: evt.Timestamp,
			})
		}
	}
	return moves
}
