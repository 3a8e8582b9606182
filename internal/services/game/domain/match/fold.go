package match

import (
	"github.com/pairspace/pairspace/internal/services/game/domain/event"
)

// Replay folds an event sequence, already sorted ascending by
// (timestamp, seq), into current game state.
//
// Replay is deterministic and idempotent: the same sequence always yields
// the same state, and folding a prefix and then its suffix matches
// folding the whole sequence at once. The winning line is recomputed from
// the final board so any path into a winning position is flagged
// consistently.
func Replay(events []event.Event) State {
	state := NewState()
	for _, evt := range events {
		state = Fold(state, evt)
	}
	return Finalize(state)
}

// Finalize recomputes the result and winning line from the board. Replay
// calls it after the last fold; callers folding incrementally call it
// before reading the state.
func Finalize(state State) State {
	result, line := state.Board.Outcome()
	state.Result = result
	state.WinningLine = line
	return state
}

// Fold applies one event to game state. It is a passive fold: it records
// what the log says happened and never enforces move legality, which is
// the authoritative validator's job.
func Fold(state State, evt event.Event) State {
	switch payload := evt.Payload().(type) {
	case event.Propose:
		mark, ok := ParseMark(payload.Mark)
		if !ok {
			return state
		}
		state.PendingInvite = &Invite{
			Mark:       mark,
			AuthorName: payload.AuthorName,
			AuthorID:   payload.AuthorID,
			ProposedAt: evt.Timestamp,
		}

	case event.Accept:
		mark, ok := ParseMark(payload.Mark)
		if !ok {
			return state
		}
		invite := state.PendingInvite
		state.PendingInvite = nil
		state.resetBoard()
		// The proposer claimed this mark; their id travels in the invite
		// payload because invite rows are dual-materialized. The accepter
		// is reliably the owner of the accept row.
		if invite != nil && invite.AuthorID != "" {
			state.assignPlayer(mark, invite.AuthorID)
		}
		state.assignPlayer(mark.Opponent(), evt.OwnerID)

	case event.Start:
		mark, ok := ParseMark(payload.Mark)
		if !ok {
			return state
		}
		state.resetBoard()
		if _, taken := state.Players[mark]; !taken {
			state.assignPlayer(mark, evt.OwnerID)
		}

	case event.Move:
		mark, ok := ParseMark(payload.Mark)
		if !ok || !ValidCell(payload.Cell) {
			return state
		}
		state.Board[payload.Cell] = mark
		state.Turn = mark.Opponent()
		result, _ := state.Board.Outcome()
		state.Result = result
		state.Moves = append(state.Moves[:len(state.Moves):len(state.Moves)], MoveRecord{
			Cell:     payload.Cell,
			Mark:     mark,
			OwnerID:  evt.OwnerID,
			PlayedAt: evt.Timestamp,
		})
		if _, taken := state.Players[mark]; !taken && evt.OwnerID != "" {
			state.assignPlayer(mark, evt.OwnerID)
		}

	case event.RematchPropose:
		authorID := payload.AuthorID
		if authorID == "" {
			// Rows written before the author id was carried in-band.
			authorID = evt.OwnerID
		}
		state.PendingRematch = &RematchProposal{
			AuthorName: payload.AuthorName,
			AuthorID:   authorID,
			ProposedAt: evt.Timestamp,
		}

	case event.RematchAccept:
		state.PendingRematch = nil
		state.resetBoard()
		state.swapPlayers()

	case event.Message:
		state.Chat = append(state.Chat[:len(state.Chat):len(state.Chat)], ChatMessage{
			AuthorName: evt.AuthorName,
			Text:       payload.Text,
			SentAt:     evt.Timestamp,
		})
	}
	return state
}
