package match

import "time"

// Invite is an outstanding game proposal not yet resolved by an accept.
type Invite struct {
	Mark       Mark
	AuthorName string
	AuthorID   string
	ProposedAt time.Time
}

// RematchProposal is an outstanding rematch offer.
type RematchProposal struct {
	AuthorName string
	AuthorID   string
	ProposedAt time.Time
}

// MoveRecord is one applied move with attribution.
type MoveRecord struct {
	Cell     int
	Mark     Mark
	OwnerID  string
	PlayedAt time.Time
}

// ChatMessage is one in-game chat line, kept apart from the board.
type ChatMessage struct {
	AuthorName string
	Text       string
	SentAt     time.Time
}

// State is the game state derived by folding the event log. It has no
// storage lifetime of its own; it is recomputed every time the log is
// read.
type State struct {
	Board       Board
	Turn        Mark
	Result      Result
	WinningLine []int
	// Players maps a mark to the participant id playing it.
	Players map[Mark]string
	Moves   []MoveRecord
	Chat    []ChatMessage

	PendingInvite  *Invite
	PendingRematch *RematchProposal
}

// NewState returns the state before any game event has been applied.
func NewState() State {
	return State{Turn: FirstMark}
}

// Player returns the participant id assigned to a mark, if any.
func (s State) Player(mark Mark) (string, bool) {
	id, ok := s.Players[mark]
	return id, ok
}

// MarkOf returns the mark assigned to a participant, if any.
func (s State) MarkOf(participantID string) (Mark, bool) {
	for mark, id := range s.Players {
		if id == participantID {
			return mark, true
		}
	}
	return MarkNone, false
}

// Finished reports whether the current game has concluded.
func (s State) Finished() bool {
	return s.Result != ResultNone
}

// assignPlayer sets mark ownership without aliasing the previous state's
// map, keeping folds safe to branch from any prefix.
func (s *State) assignPlayer(mark Mark, participantID string) {
	players := make(map[Mark]string, 2)
	for k, v := range s.Players {
		players[k] = v
	}
	players[mark] = participantID
	s.Players = players
}

// resetBoard clears per-game state while preserving player assignment,
// chat history and pending proposals.
func (s *State) resetBoard() {
	s.Board = Board{}
	s.Turn = FirstMark
	s.Result = ResultNone
	s.WinningLine = nil
	s.Moves = nil
}

// swapPlayers flips which participant plays which mark so the previous
// second mover opens the next game.
func (s *State) swapPlayers() {
	if len(s.Players) == 0 {
		return
	}
	players := make(map[Mark]string, 2)
	if id, ok := s.Players[MarkX]; ok {
		players[MarkO] = id
	}
	if id, ok := s.Players[MarkO]; ok {
		players[MarkX] = id
	}
	s.Players = players
}
