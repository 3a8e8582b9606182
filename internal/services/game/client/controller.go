// Package client drives one participant's view of a game. It keeps an
// optimistic local state folded from the log, gates obviously bad moves
// before they reach the server, and reconciles after every append by
// replaying the authoritative log.
package client

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/pairspace/pairspace/internal/services/game/domain/event"
	"github.com/pairspace/pairspace/internal/services/game/domain/match"
)

// Local gating errors. The server remains authoritative; these only stop
// requests the local state already knows would be rejected.
var (
	ErrGameFinished = errors.New("game already finished")
	ErrNotYourTurn  = errors.New("not your turn")
	ErrCellOccupied = errors.New("cell already occupied")
	ErrInvalidCell  = errors.New("cell out of range")
)

// rematchExpiry bounds how long a rematch offer stays actionable in the
// local view. The log row never expires; only the prompt does.
const rematchExpiry = 2 * time.Minute

// Backend is the server surface the controller needs. Moves go through
// the authoritative validator; every other event is appended directly.
type Backend interface {
	ListEvents(ctx context.Context) ([]event.Event, error)
	SubmitMove(ctx context.Context, cell int, mark match.Mark) (event.Event, error)
	AppendEvent(ctx context.Context, payload event.Payload) (event.Event, error)
}

// Controller holds a participant's optimistic game state.
type Controller struct {
	backend       Backend
	participantID string
	authorName    string
	now           func() time.Time

	mu sync.Mutex
	// generation numbers replays so a slow ListEvents response cannot
	// clobber state installed by a later one.
	generation uint64
	applied    uint64
	state      match.State
}

// New returns a controller for the given participant.
func New(backend Backend, participantID, authorName string) *Controller {
	return &Controller{
		backend:       backend,
		participantID: participantID,
		authorName:    authorName,
		now:           time.Now,
		state:         match.NewState(),
	}
}

// State returns the current local state snapshot.
func (c *Controller) State() match.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Refresh replays the full log and installs the result. Concurrent
// refreshes may complete out of order; the one that started latest wins
// and earlier completions that finish after it are discarded.
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.Lock()
	c.generation++
	gen := c.generation
	c.mu.Unlock()

	events, err := c.backend.ListEvents(ctx)
	if err != nil {
		return err
	}
	state := match.Replay(events)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen < c.applied {
		return nil
	}
	c.applied = gen
	c.state = state
	return nil
}

// OnNotification reacts to a feed delivery. Notifications are hints, not
// state: the controller answers every one with a full replay.
func (c *Controller) OnNotification(ctx context.Context, _ event.Event) error {
	return c.Refresh(ctx)
}

// myMark returns the mark this participant plays, falling back to the
// mark currently up when no assignment has been folded yet (first move
// of a fresh game claims it).
func myMark(state match.State, participantID string) match.Mark {
	if mark, ok := state.MarkOf(participantID); ok {
		return mark
	}
	return state.Turn
}

// PlayMove gates the move locally, applies it optimistically, submits it
// to the authoritative validator, then reconciles from the log. A server
// rejection surfaces as the submit error after the reconciling replay
// has already rolled the optimistic move back.
func (c *Controller) PlayMove(ctx context.Context, cell int) error {
	if !match.ValidCell(cell) {
		return ErrInvalidCell
	}

	c.mu.Lock()
	state := match.Finalize(c.state)
	mark := myMark(state, c.participantID)
	switch {
	case state.Finished():
		c.mu.Unlock()
		return ErrGameFinished
	case mark != state.Turn:
		c.mu.Unlock()
		return ErrNotYourTurn
	case state.Board[cell] != match.MarkNone:
		c.mu.Unlock()
		return ErrCellOccupied
	}
	c.state = match.Fold(c.state, event.Event{
		OwnerID:   c.participantID,
		Content:   event.Encode(event.Move{Cell: cell, Mark: string(mark)}),
		Timestamp: c.now(),
	})
	c.mu.Unlock()

	_, submitErr := c.backend.SubmitMove(ctx, cell, mark)
	if err := c.Refresh(ctx); err != nil {
		return err
	}
	return submitErr
}

// ProposeInvite offers a new game, claiming the given mark.
func (c *Controller) ProposeInvite(ctx context.Context, mark match.Mark) error {
	return c.append(ctx, event.Propose{
		Mark:       string(mark),
		AuthorName: c.authorName,
		AuthorID:   c.participantID,
	})
}

// AcceptInvite answers the pending proposal, conceding the proposed mark
// to its author.
func (c *Controller) AcceptInvite(ctx context.Context) error {
	c.mu.Lock()
	invite := c.state.PendingInvite
	c.mu.Unlock()
	if invite == nil {
		return errors.New("no pending invite")
	}
	return c.append(ctx, event.Accept{
		Mark:         string(invite.Mark),
		ProposerName: invite.AuthorName,
		AccepterName: c.authorName,
	})
}

// ProposeRematch offers another game after the current one concludes.
func (c *Controller) ProposeRematch(ctx context.Context) error {
	return c.append(ctx, event.RematchPropose{
		AuthorName: c.authorName,
		AuthorID:   c.participantID,
	})
}

// AcceptRematch answers the pending rematch offer if it has not expired
// locally.
func (c *Controller) AcceptRematch(ctx context.Context) error {
	proposal, ok := c.PendingRematch()
	if !ok {
		return errors.New("no actionable rematch offer")
	}
	return c.append(ctx, event.RematchAccept{
		ProposerName: proposal.AuthorName,
		AccepterName: c.authorName,
	})
}

// PendingRematch returns the outstanding rematch offer, hiding offers
// older than the local expiry window and the participant's own offer.
func (c *Controller) PendingRematch() (match.RematchProposal, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	proposal := c.state.PendingRematch
	if proposal == nil {
		return match.RematchProposal{}, false
	}
	if proposal.AuthorID == c.participantID {
		return match.RematchProposal{}, false
	}
	if c.now().Sub(proposal.ProposedAt) > rematchExpiry {
		return match.RematchProposal{}, false
	}
	return *proposal, true
}

// SendMessage appends a chat line to the shared log.
func (c *Controller) SendMessage(ctx context.Context, text string) error {
	return c.append(ctx, event.Message{Text: text})
}

// append writes a non-move event then reconciles.
func (c *Controller) append(ctx context.Context, payload event.Payload) error {
	if _, err := c.backend.AppendEvent(ctx, payload); err != nil {
		return err
	}
	return c.Refresh(ctx)
}
