package http

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	connstorage "github.com/pairspace/pairspace/internal/services/connections/storage"
	"github.com/pairspace/pairspace/internal/services/game/domain/match"
)

type stateBody struct {
	Board       []string          `json:"board"`
	Turn        string            `json:"turn"`
	Result      string            `json:"result,omitempty"`
	WinningLine []int             `json:"winning_line,omitempty"`
	Players     map[string]string `json:"players,omitempty"`
	Finished    bool              `json:"finished"`
}

func toStateBody(state match.State) stateBody {
	board := make([]string, len(state.Board))
	for i, mark := range state.Board {
		board[i] = string(mark)
	}
	body := stateBody{
		Board:       board,
		Turn:        string(state.Turn),
		Result:      string(state.Result),
		WinningLine: state.WinningLine,
		Finished:    state.Finished(),
	}
	if len(state.Players) > 0 {
		body.Players = make(map[string]string, len(state.Players))
		for mark, id := range state.Players {
			body.Players[string(mark)] = id
		}
	}
	return body
}

// queryEvents returns the caller's pair-scoped log slice in replay order
// plus the state replaying it yields. Clients treat this as the full
// truth and discard any state derived from notifications.
func (h Handlers) queryEvents(c *gin.Context) {
	userID := authedUser(c)

	ctx, span := tracer.Start(c.Request.Context(), "game.events.query")
	defer span.End()

	owners := []string{userID}
	partnerID, err := h.Partners.ResolvePartner(ctx, userID)
	switch {
	case err == nil:
		owners = append(owners, partnerID)
	case errors.Is(err, connstorage.ErrNotFound):
	default:
		log.Printf("events: resolving partner for %s: %v", userID, err)
		writeError(c, codeUnavailable, "partner lookup failed")
		return
	}

	events, err := h.Events.ListEventsByOwners(ctx, owners)
	if err != nil {
		log.Printf("events: listing for %s: %v", userID, err)
		writeError(c, codeUnavailable, "event log unavailable")
		return
	}

	bodies := make([]eventBody, len(events))
	for i, evt := range events {
		bodies[i] = toEventBody(evt)
	}
	c.JSON(http.StatusOK, gin.H{
		"events": bodies,
		"state":  toStateBody(match.Replay(events)),
	})
}
