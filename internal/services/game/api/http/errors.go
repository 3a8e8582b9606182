package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pairspace/pairspace/internal/services/game/domain/match"
)

// Error codes surfaced by the invite path in addition to match codes.
const (
	codeMissingFields = "missing_fields"
	codeAuthMismatch  = string(match.CodeAuthMismatch)
	codeUnavailable   = string(match.CodeStoreUnavailable)
)

// statusFor maps a rejection code to an HTTP status.
//
// Game-rule rejections are conflicts, not client errors: the request was
// well-formed but the log says otherwise.
func statusFor(code string) int {
	switch match.Code(code) {
	case match.CodeInvalidRequest:
		return http.StatusBadRequest
	case match.CodeAuthMismatch:
		return http.StatusForbidden
	case match.CodeGameFinished, match.CodeWrongTurn, match.CodeCellOccupied:
		return http.StatusConflict
	case match.CodeStoreUnavailable:
		return http.StatusServiceUnavailable
	}
	if code == codeMissingFields {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

type errorBody struct {
	Code         string          `json:"code"`
	Message      string          `json:"message,omitempty"`
	ExpectedMark string          `json:"expected_mark,omitempty"`
	Winner       string          `json:"winner,omitempty"`
	Board        []string        `json:"board,omitempty"`
	Moves        []rejectionMove `json:"moves,omitempty"`
}

type rejectionMove struct {
	Cell     int    `json:"cell"`
	Mark     string `json:"mark"`
	OwnerID  string `json:"owner_id,omitempty"`
	PlayedAt string `json:"played_at,omitempty"`
}

func writeError(c *gin.Context, code string, message string) {
	c.AbortWithStatusJSON(statusFor(code), gin.H{"error": errorBody{Code: code, Message: message}})
}

func writeRejection(c *gin.Context, rejection *match.Rejection) {
	body := errorBody{Code: string(rejection.Code)}
	switch rejection.Code {
	case match.CodeWrongTurn:
		body.Message = "it is not this mark's turn"
		body.ExpectedMark = string(rejection.ExpectedMark)
	case match.CodeGameFinished:
		body.Message = "the game has already finished"
		body.Winner = string(rejection.Result)
		if rejection.Board != nil {
			board := make([]string, len(rejection.Board))
			for i, mark := range rejection.Board {
				board[i] = string(mark)
			}
			body.Board = board
		}
		for _, move := range rejection.Moves {
			body.Moves = append(body.Moves, rejectionMove{
				Cell:     move.Cell,
				Mark:     string(move.Mark),
				OwnerID:  move.OwnerID,
				PlayedAt: move.PlayedAt.UTC().Format(timestampLayout),
			})
		}
	case match.CodeCellOccupied:
		body.Message = "the cell is already occupied"
	case match.CodeInvalidRequest:
		body.Message = "cell, mark and participant id are required"
	}
	c.AbortWithStatusJSON(statusFor(string(rejection.Code)), gin.H{"error": body})
}
