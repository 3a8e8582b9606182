package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	connstorage "github.com/pairspace/pairspace/internal/services/connections/storage"
	"github.com/pairspace/pairspace/internal/services/game/domain/event"
	"github.com/pairspace/pairspace/internal/services/game/feed"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeEventStore struct {
	events []event.Event
	nextID int
	fail   error
}

func (s *fakeEventStore) append(evt event.Event) event.Event {
	s.nextID++
	evt.ID = fmt.Sprintf("evt-%03d", s.nextID)
	evt.Seq = uint64(s.nextID)
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(s.nextID) * time.Second)
	}
	s.events = append(s.events, evt)
	return evt
}

func (s *fakeEventStore) AppendEvent(_ context.Context, evt event.Event) (event.Event, error) {
	if s.fail != nil {
		return event.Event{}, s.fail
	}
	return s.append(evt), nil
}

func (s *fakeEventStore) AppendEvents(_ context.Context, events []event.Event) ([]event.Event, error) {
	if s.fail != nil {
		return nil, s.fail
	}
	inserted := make([]event.Event, len(events))
	for i, evt := range events {
		inserted[i] = s.append(evt)
	}
	return inserted, nil
}

func (s *fakeEventStore) ListEventsByOwners(_ context.Context, ownerIDs []string) ([]event.Event, error) {
	if s.fail != nil {
		return nil, s.fail
	}
	owners := make(map[string]bool, len(ownerIDs))
	for _, id := range ownerIDs {
		owners[id] = true
	}
	var out []event.Event
	for _, evt := range s.events {
		if owners[evt.OwnerID] {
			out = append(out, evt)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.Before(out[j].Timestamp)
		}
		return out[i].Seq < out[j].Seq
	})
	return out, nil
}

type fakePartnerStore struct {
	partners map[string]string
	fail     error
}

func (s *fakePartnerStore) PutPartnership(context.Context, connstorage.Partnership) error {
	return nil
}

func (s *fakePartnerStore) ResolvePartner(_ context.Context, userID string) (string, error) {
	if s.fail != nil {
		return "", s.fail
	}
	partner, ok := s.partners[userID]
	if !ok {
		return "", connstorage.ErrNotFound
	}
	return partner, nil
}

func (s *fakePartnerStore) DeletePartnership(context.Context, string) error {
	return nil
}

type fakeAuthorizer map[string]string

func (a fakeAuthorizer) Verify(token string) (string, error) {
	userID, ok := a[token]
	if !ok {
		return "", errors.New("unknown token")
	}
	return userID, nil
}

type testEnv struct {
	store    *fakeEventStore
	partners *fakePartnerStore
	hub      *feed.Hub
	router   *gin.Engine
}

func newTestEnv(t *testing.T, verbose bool) *testEnv {
	t.Helper()
	env := &testEnv{
		store: &fakeEventStore{},
		partners: &fakePartnerStore{partners: map[string]string{
			"alice-id": "bob-id",
			"bob-id":   "alice-id",
		}},
		hub: feed.NewHub(),
	}
	env.router = NewRouter(Handlers{
		Events:   env.store,
		Partners: env.partners,
		Hub:      env.hub,
		Auth:     fakeAuthorizer{"alice-token": "alice-id", "bob-token": "bob-id"},
		Verbose:  verbose,
	})
	return env
}

func (env *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body struct {
		Error map[string]any `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v (%s)", err, rec.Body.String())
	}
	return body.Error
}

func seed(env *testEnv, ownerID, content string) {
	env.store.append(event.Event{OwnerID: ownerID, AuthorName: "seed", Content: content})
}

func TestSubmitMoveAppendsAcceptedMove(t *testing.T) {
	env := newTestEnv(t, false)
	seed(env, "alice-id", "START|X|Alice")

	bobFeed, cancel := env.hub.Subscribe("bob-id")
	defer cancel()

	cell := 4
	rec := env.do(t, http.MethodPost, "/game/moves", "alice-token", moveRequest{
		Cell: &cell, Mark: "X", ParticipantID: "alice-id", AuthorName: "Alice",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d (%s)", rec.Code, http.StatusCreated, rec.Body.String())
	}

	var body struct {
		Event eventBody `json:"event"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Event.Content != "MOVE|4|X" {
		t.Fatalf("content = %q, want %q", body.Event.Content, "MOVE|4|X")
	}
	if body.Event.OwnerID != "alice-id" {
		t.Fatalf("owner = %q, want alice-id", body.Event.OwnerID)
	}

	// The partner is notified even though the record is single-owner.
	select {
	case evt := <-bobFeed:
		if evt.Content != "MOVE|4|X" {
			t.Fatalf("notified content = %q", evt.Content)
		}
	case <-time.After(time.Second):
		t.Fatal("partner never notified of the move")
	}
}

func TestSubmitMoveRejectsMismatchedParticipant(t *testing.T) {
	env := newTestEnv(t, false)

	cell := 0
	rec := env.do(t, http.MethodPost, "/game/moves", "alice-token", moveRequest{
		Cell: &cell, Mark: "X", ParticipantID: "bob-id",
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}
	if got := decodeError(t, rec)["code"]; got != "auth_mismatch" {
		t.Fatalf("code = %v, want auth_mismatch", got)
	}
	if len(env.store.events) != 0 {
		t.Fatalf("rejected move was persisted: %#v", env.store.events)
	}
}

func TestSubmitMoveRejectsMissingCell(t *testing.T) {
	env := newTestEnv(t, false)

	rec := env.do(t, http.MethodPost, "/game/moves", "alice-token", map[string]any{
		"mark": "X", "participant_id": "alice-id",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if got := decodeError(t, rec)["code"]; got != "invalid_request" {
		t.Fatalf("code = %v, want invalid_request", got)
	}
}

func TestSubmitMoveMissingParticipantIsInvalidRequest(t *testing.T) {
	env := newTestEnv(t, false)

	cell := 0
	rec := env.do(t, http.MethodPost, "/game/moves", "alice-token", moveRequest{
		Cell: &cell, Mark: "X",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if got := decodeError(t, rec)["code"]; got != "invalid_request" {
		t.Fatalf("code = %v, want invalid_request", got)
	}
}

func TestSubmitMoveWrongTurnEchoesExpectedMark(t *testing.T) {
	env := newTestEnv(t, false)
	seed(env, "alice-id", "MOVE|0|X")

	cell := 1
	rec := env.do(t, http.MethodPost, "/game/moves", "alice-token", moveRequest{
		Cell: &cell, Mark: "X", ParticipantID: "alice-id",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusConflict)
	}
	errBody := decodeError(t, rec)
	if errBody["code"] != "wrong_turn" {
		t.Fatalf("code = %v, want wrong_turn", errBody["code"])
	}
	if errBody["expected_mark"] != "O" {
		t.Fatalf("expected_mark = %v, want O", errBody["expected_mark"])
	}
}

func TestSubmitMoveSeesPartnerOwnedMoves(t *testing.T) {
	env := newTestEnv(t, false)
	// Bob's move lives under bob's log but still constrains alice's turn.
	seed(env, "bob-id", "MOVE|0|X")

	cell := 1
	rec := env.do(t, http.MethodPost, "/game/moves", "alice-token", moveRequest{
		Cell: &cell, Mark: "X", ParticipantID: "alice-id",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d (%s)", rec.Code, http.StatusConflict, rec.Body.String())
	}
	if got := decodeError(t, rec)["code"]; got != "wrong_turn" {
		t.Fatalf("code = %v, want wrong_turn", got)
	}
}

func TestSubmitMoveRejectsOccupiedCell(t *testing.T) {
	env := newTestEnv(t, false)
	seed(env, "alice-id", "MOVE|0|X")

	cell := 0
	rec := env.do(t, http.MethodPost, "/game/moves", "alice-token", moveRequest{
		Cell: &cell, Mark: "O", ParticipantID: "alice-id",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusConflict)
	}
	if got := decodeError(t, rec)["code"]; got != "cell_occupied" {
		t.Fatalf("code = %v, want cell_occupied", got)
	}
}

func TestSubmitMoveAfterWinVerboseEchoesBoard(t *testing.T) {
	env := newTestEnv(t, true)
	for _, content := range []string{"MOVE|0|X", "MOVE|3|O", "MOVE|1|X", "MOVE|4|O", "MOVE|2|X"} {
		seed(env, "alice-id", content)
	}

	cell := 5
	rec := env.do(t, http.MethodPost, "/game/moves", "bob-token", moveRequest{
		Cell: &cell, Mark: "O", ParticipantID: "bob-id",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusConflict)
	}
	errBody := decodeError(t, rec)
	if errBody["code"] != "game_finished" {
		t.Fatalf("code = %v, want game_finished", errBody["code"])
	}
	if errBody["winner"] != "X" {
		t.Fatalf("winner = %v, want X", errBody["winner"])
	}
	board, ok := errBody["board"].([]any)
	if !ok || len(board) != 9 {
		t.Fatalf("board = %v, want 9 cells", errBody["board"])
	}
	if board[0] != "X" || board[1] != "X" || board[2] != "X" {
		t.Fatalf("board top row = %v %v %v, want X X X", board[0], board[1], board[2])
	}
	moves, ok := errBody["moves"].([]any)
	if !ok || len(moves) != 5 {
		t.Fatalf("moves = %v, want 5 entries", errBody["moves"])
	}
}

func TestSubmitMoveStoreFailureIsUnavailable(t *testing.T) {
	env := newTestEnv(t, false)
	env.store.fail = errors.New("disk gone")

	cell := 0
	rec := env.do(t, http.MethodPost, "/game/moves", "alice-token", moveRequest{
		Cell: &cell, Mark: "X", ParticipantID: "alice-id",
	})
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
	if got := decodeError(t, rec)["code"]; got != "store_unavailable" {
		t.Fatalf("code = %v, want store_unavailable", got)
	}
}

func TestSubmitMoveWithoutCredentials(t *testing.T) {
	env := newTestEnv(t, false)

	cell := 0
	rec := env.do(t, http.MethodPost, "/game/moves", "", moveRequest{
		Cell: &cell, Mark: "X", ParticipantID: "alice-id",
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}
}

func TestSubmitInviteMaterializesBothRows(t *testing.T) {
	env := newTestEnv(t, false)

	rec := env.do(t, http.MethodPost, "/game/invites", "alice-token", inviteRequest{
		Mark: "X", AuthorName: "Alice", ProposerID: "alice-id",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d (%s)", rec.Code, http.StatusCreated, rec.Body.String())
	}

	var body struct {
		Inserted []eventBody `json:"inserted"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(body.Inserted) != 2 {
		t.Fatalf("inserted %d rows, want 2", len(body.Inserted))
	}
	owners := map[string]bool{}
	for _, evt := range body.Inserted {
		owners[evt.OwnerID] = true
		if evt.Content != "PROPOSE|X|Alice|alice-id" {
			t.Fatalf("content = %q, want identical payload with author id", evt.Content)
		}
	}
	if !owners["alice-id"] || !owners["bob-id"] {
		t.Fatalf("owners = %v, want one row per participant", owners)
	}
}

func TestSubmitInviteValidatesFields(t *testing.T) {
	env := newTestEnv(t, false)

	rec := env.do(t, http.MethodPost, "/game/invites", "alice-token", inviteRequest{
		Mark: "Z", AuthorName: "Alice", ProposerID: "alice-id",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if got := decodeError(t, rec)["code"]; got != "missing_fields" {
		t.Fatalf("code = %v, want missing_fields", got)
	}
	if len(env.store.events) != 0 {
		t.Fatal("invalid invite was persisted")
	}
}

func TestSubmitInviteRequiresLinkedPartner(t *testing.T) {
	env := newTestEnv(t, false)
	env.partners.partners = map[string]string{}

	rec := env.do(t, http.MethodPost, "/game/invites", "alice-token", inviteRequest{
		Mark: "X", AuthorName: "Alice", ProposerID: "alice-id",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestQueryEventsReturnsPairScopedReplay(t *testing.T) {
	env := newTestEnv(t, false)
	seed(env, "alice-id", "START|X|Alice")
	seed(env, "alice-id", "MOVE|0|X")
	seed(env, "bob-id", "MOVE|4|O")
	seed(env, "mallory-id", "MOVE|8|X")

	rec := env.do(t, http.MethodGet, "/game/events", "alice-token", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (%s)", rec.Code, http.StatusOK, rec.Body.String())
	}

	var body struct {
		Events []eventBody `json:"events"`
		State  stateBody   `json:"state"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(body.Events) != 3 {
		t.Fatalf("events = %d, want 3 (mallory's excluded)", len(body.Events))
	}
	if body.State.Board[0] != "X" || body.State.Board[4] != "O" {
		t.Fatalf("board = %v", body.State.Board)
	}
	if body.State.Turn != "X" {
		t.Fatalf("turn = %q, want X", body.State.Turn)
	}
}

func TestHealthzIsPublic(t *testing.T) {
	env := newTestEnv(t, false)

	rec := env.do(t, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}
