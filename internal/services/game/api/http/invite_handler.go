package http

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	connstorage "github.com/pairspace/pairspace/internal/services/connections/storage"
	"github.com/pairspace/pairspace/internal/services/game/domain/event"
	"github.com/pairspace/pairspace/internal/services/game/domain/match"
)

type inviteRequest struct {
	Mark       string `json:"mark"`
	AuthorName string `json:"author_name"`
	ProposerID string `json:"proposer_id"`
}

// submitInvite materializes one game proposal as two rows, one under
// each participant's log, in a single atomic batch. Both rows carry the
// proposer's id in the payload so replay can tell author from owner.
func (h Handlers) submitInvite(c *gin.Context) {
	var req inviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, codeMissingFields, "malformed request body")
		return
	}
	if _, ok := match.ParseMark(req.Mark); !ok ||
		strings.TrimSpace(req.AuthorName) == "" ||
		strings.TrimSpace(req.ProposerID) == "" {
		writeError(c, codeMissingFields, "mark, author_name and proposer_id are required")
		return
	}

	userID := authedUser(c)
	if req.ProposerID != userID {
		writeError(c, codeAuthMismatch, "credential does not match proposer")
		return
	}

	ctx, span := tracer.Start(c.Request.Context(), "game.invite.propose")
	defer span.End()

	partnerID, err := h.Partners.ResolvePartner(ctx, userID)
	if err != nil {
		if errors.Is(err, connstorage.ErrNotFound) {
			writeError(c, codeMissingFields, "no linked partner to invite")
			return
		}
		log.Printf("invite: resolving partner for %s: %v", userID, err)
		writeError(c, codeUnavailable, "partner lookup failed")
		return
	}

	content := event.Encode(event.Propose{
		Mark:       req.Mark,
		AuthorName: req.AuthorName,
		AuthorID:   userID,
	})
	now := h.now()
	inserted, err := h.Events.AppendEvents(ctx, []event.Event{
		{OwnerID: userID, AuthorName: req.AuthorName, Content: content, Timestamp: now},
		{OwnerID: partnerID, AuthorName: req.AuthorName, Content: content, Timestamp: now},
	})
	if err != nil {
		log.Printf("invite: appending for %s: %v", userID, err)
		writeError(c, codeUnavailable, "event log unavailable")
		return
	}

	if h.Hub != nil {
		h.Hub.PublishAll(inserted)
	}

	bodies := make([]eventBody, len(inserted))
	for i, evt := range inserted {
		bodies[i] = toEventBody(evt)
	}
	c.JSON(http.StatusCreated, gin.H{"inserted": bodies})
}
