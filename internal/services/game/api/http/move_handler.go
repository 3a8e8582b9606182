package http

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	connstorage "github.com/pairspace/pairspace/internal/services/connections/storage"
	"github.com/pairspace/pairspace/internal/services/game/domain/event"
	"github.com/pairspace/pairspace/internal/services/game/domain/match"
)

var tracer = otel.Tracer("pairspace/game/api")

const timestampLayout = time.RFC3339Nano

type moveRequest struct {
	Cell          *int   `json:"cell"`
	Mark          string `json:"mark"`
	ParticipantID string `json:"participant_id"`
	AuthorName    string `json:"author_name"`
}

type eventBody struct {
	ID         string `json:"id"`
	Seq        uint64 `json:"seq"`
	OwnerID    string `json:"owner_id"`
	AuthorName string `json:"author_name"`
	Content    string `json:"content"`
	Timestamp  string `json:"timestamp"`
}

func toEventBody(evt event.Event) eventBody {
	return eventBody{
		ID:         evt.ID,
		Seq:        evt.Seq,
		OwnerID:    evt.OwnerID,
		AuthorName: evt.AuthorName,
		Content:    evt.Content,
		Timestamp:  evt.Timestamp.UTC().Format(timestampLayout),
	}
}

// submitMove is the sole writer of MOVE records. It replays the pair's
// log, decides the move against the reconstructed board and appends the
// accepted move under the mover's own log.
func (h Handlers) submitMove(c *gin.Context) {
	var req moveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeRejection(c, &match.Rejection{Code: match.CodeInvalidRequest})
		return
	}
	// An absent participant id is a malformed request, not an identity
	// mismatch.
	if req.Cell == nil || strings.TrimSpace(req.ParticipantID) == "" {
		writeRejection(c, &match.Rejection{Code: match.CodeInvalidRequest})
		return
	}

	userID := authedUser(c)
	if req.ParticipantID != userID {
		writeError(c, codeAuthMismatch, "credential does not match participant")
		return
	}

	ctx, span := tracer.Start(c.Request.Context(), "game.move.decide")
	span.SetAttributes(
		attribute.Int("game.cell", *req.Cell),
		attribute.String("game.mark", req.Mark),
	)
	defer span.End()

	owners := []string{userID}
	partnerID, err := h.Partners.ResolvePartner(ctx, userID)
	switch {
	case err == nil:
		owners = append(owners, partnerID)
	case errors.Is(err, connstorage.ErrNotFound):
		// Unlinked users play against their own log.
	default:
		log.Printf("move: resolving partner for %s: %v", userID, err)
		writeError(c, codeUnavailable, "partner lookup failed")
		return
	}

	events, err := h.Events.ListEventsByOwners(ctx, owners)
	if err != nil {
		log.Printf("move: listing events for %s: %v", userID, err)
		writeError(c, codeUnavailable, "event log unavailable")
		return
	}

	move, rejection := match.DecideMove(events, match.MoveCommand{
		Cell:          *req.Cell,
		Mark:          req.Mark,
		ParticipantID: req.ParticipantID,
	}, match.DecideOptions{Verbose: h.Verbose})
	if rejection != nil {
		writeRejection(c, rejection)
		return
	}

	inserted, err := h.Events.AppendEvent(ctx, event.Event{
		OwnerID:    userID,
		AuthorName: req.AuthorName,
		Content:    event.Encode(move),
		Timestamp:  h.now(),
	})
	if err != nil {
		log.Printf("move: appending for %s: %v", userID, err)
		writeError(c, codeUnavailable, "event log unavailable")
		return
	}

	if h.Hub != nil {
		h.Hub.Notify(inserted, owners...)
	}

	c.JSON(http.StatusCreated, gin.H{"event": toEventBody(inserted)})
}
