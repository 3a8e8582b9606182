package feed

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/websocket"

	"github.com/pairspace/pairspace/internal/services/game/domain/event"
)

// Authorizer resolves a bearer credential to a stable user id.
type Authorizer interface {
	Verify(token string) (string, error)
}

// wsFrame is the envelope pushed to feed subscribers.
type wsFrame struct {
	Type    string         `json:"type"`
	Payload wsEventPayload `json:"payload"`
}

type wsEventPayload struct {
	ID         string `json:"id"`
	Seq        uint64 `json:"seq"`
	OwnerID    string `json:"owner_id"`
	AuthorName string `json:"author_name"`
	Content    string `json:"content"`
	Timestamp  string `json:"timestamp"`
}

// NewWSHandler serves the notification feed over a websocket. The caller
// authenticates with a bearer token (Authorization header or
// access_token query parameter) and receives one frame per record
// inserted under their own id.
func NewWSHandler(hub *Hub, authorizer Authorizer) http.Handler {
	wsHandler := websocket.Handler(func(conn *websocket.Conn) {
		serveFeedConn(conn, hub)
	})

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hub == nil || authorizer == nil {
			http.Error(w, "feed is not configured", http.StatusServiceUnavailable)
			return
		}
		token := bearerToken(r)
		if token == "" {
			http.Error(w, "missing credentials", http.StatusUnauthorized)
			return
		}
		userID, err := authorizer.Verify(token)
		if err != nil || userID == "" {
			log.Printf("feed: websocket unauthorized: remote=%s err=%v", r.RemoteAddr, err)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		r = r.WithContext(withFeedUser(r.Context(), userID))
		wsHandler.ServeHTTP(w, r)
	})
}

func serveFeedConn(conn *websocket.Conn, hub *Hub) {
	defer conn.Close()

	userID := feedUser(conn.Request().Context())
	if userID == "" {
		return
	}

	events, cancel := hub.Subscribe(userID)
	defer cancel()

	// Reader goroutine exists only to observe the peer closing.
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = io.Copy(io.Discard, conn)
	}()

	encoder := json.NewEncoder(conn)
	for {
		select {
		case evt, ok := <-events:
			if !ok {
				return
			}
			if err := encoder.Encode(frameFor(evt)); err != nil {
				log.Printf("feed: write frame for user=%s: %v", userID, err)
				return
			}
		case <-done:
			return
		}
	}
}

func frameFor(evt event.Event) wsFrame {
	return wsFrame{
		Type: "event_inserted",
		Payload: wsEventPayload{
			ID:         evt.ID,
			Seq:        evt.Seq,
			OwnerID:    evt.OwnerID,
			AuthorName: evt.AuthorName,
			Content:    evt.Content,
			Timestamp:  evt.Timestamp.UTC().Format(time.RFC3339Nano),
		},
	}
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return strings.TrimSpace(r.URL.Query().Get("access_token"))
}
