// Package http exposes the game service JSON API: the authoritative move
// path, invite fan-out, log queries and the websocket notification feed.
package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	connstorage "github.com/pairspace/pairspace/internal/services/connections/storage"
	"github.com/pairspace/pairspace/internal/services/game/feed"
	"github.com/pairspace/pairspace/internal/services/game/storage"
)

// Handlers bundles the collaborators behind the API surface.
type Handlers struct {
	Events   storage.EventStore
	Partners connstorage.PartnerStore
	Hub      *feed.Hub
	Auth     Authorizer
	// Verbose echoes board and history on game_finished rejections.
	Verbose bool
	// Now is the append timestamp source; defaults to time.Now.
	Now func() time.Time
}

func (h Handlers) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// NewRouter builds the service router.
func NewRouter(h Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authed := router.Group("/game", BearerAuthMiddleware(h.Auth))
	authed.POST("/moves", h.submitMove)
	authed.POST("/invites", h.submitInvite)
	authed.GET("/events", h.queryEvents)
	if h.Hub != nil {
		wsHandler := feed.NewWSHandler(h.Hub, h.Auth)
		router.GET("/game/feed", gin.WrapH(wsHandler))
	}

	return router
}
