package event

import (
	"strconv"
	"strings"
)

// Payload tags.
//
// The persisted content format is `TAG|field|field|...`. Content whose
// first segment is not a known tag is ordinary chat text and never
// touches game state.
const (
	tagPropose        = "PROPOSE"
	tagAccept         = "ACCEPT"
	tagStart          = "START"
	tagMove           = "MOVE"
	tagRematchPropose = "REMATCH_PROPOSE"
	tagRematchAccept  = "REMATCH_ACCEPT"
	tagMessage        = "MSG"
)

// Payload is the closed set of decoded event payloads.
type Payload interface {
	payload()
}

// Propose invites the partner to a game, claiming a mark for the author.
// Propose rows are dual-materialized, so the author id is carried in-band
// instead of being inferred from row ownership.
type Propose struct {
	Mark       string
	AuthorName string
	AuthorID   string
}

// Accept resolves a pending Propose. The accepting participant is the row
// owner; the proposer keeps the claimed mark.
type Accept struct {
	Mark         string
	ProposerName string
	AccepterName string
}

// Start resets the board and claims a mark for the row owner.
type Start struct {
	Mark       string
	AuthorName string
}

// Move places a mark on a cell. Only the authoritative validator appends
// these.
type Move struct {
	Cell int
	Mark string
}

// RematchPropose offers a rematch after a finished game. The author id is
// carried in-band like Propose; AuthorID is empty on rows written before
// that field existed and callers fall back to row ownership.
type RematchPropose struct {
	AuthorName string
	AuthorID   string
}

// RematchAccept resolves a pending RematchPropose and restarts the game
// with mark assignments swapped.
type RematchAccept struct {
	ProposerName string
	AccepterName string
}

// Message is an in-game chat message shown alongside the board.
type Message struct {
	Text string
}

// ChatText is any content without a recognized game tag. It flows through
// the log for the host app's chat feature and is ignored here.
type ChatText struct {
	Text string
}

func (Propose) payload()        {}
func (Accept) payload()         {}
func (Start) payload()          {}
func (Move) payload()           {}
func (RematchPropose) payload() {}
func (RematchAccept) payload()  {}
func (Message) payload()        {}
func (ChatText) payload()       {}

// validMark reports whether a payload field names one of the two marks.
// The codec validates marks so every consumer classifies a row the same
// way; chat text that merely starts with a game tag must never decode
// into a payload that one replay honors and another skips.
func validMark(value string) bool {
	return value == "X" || value == "O"
}

// Decode parses persisted content into a typed payload.
//
// Malformed game-tagged content, including a mark field that is not a
// valid mark, decodes to ChatText so a replay never fails on a bad row;
// the fold simply skips it.
func Decode(content string) Payload {
	tag, rest, _ := strings.Cut(content, "|")
	switch tag {
	case tagPropose:
		fields := strings.Split(rest, "|")
		if len(fields) < 3 || !validMark(fields[0]) {
			return ChatText{Text: content}
		}
		return Propose{Mark: fields[0], AuthorName: fields[1], AuthorID: fields[2]}
	case tagAccept:
		fields := strings.Split(rest, "|")
		if len(fields) < 3 || !validMark(fields[0]) {
			return ChatText{Text: content}
		}
		return Accept{Mark: fields[0], ProposerName: fields[1], AccepterName: fields[2]}
	case tagStart:
		fields := strings.Split(rest, "|")
		if len(fields) < 2 || !validMark(fields[0]) {
			return ChatText{Text: content}
		}
		return Start{Mark: fields[0], AuthorName: fields[1]}
	case tagMove:
		fields := strings.Split(rest, "|")
		if len(fields) < 2 || !validMark(fields[1]) {
			return ChatText{Text: content}
		}
		cell, err := strconv.Atoi(fields[0])
		if err != nil || cell < 0 || cell > 8 {
			return ChatText{Text: content}
		}
		return Move{Cell: cell, Mark: fields[1]}
	case tagRematchPropose:
		fields := strings.Split(rest, "|")
		if len(fields) < 1 || fields[0] == "" {
			return ChatText{Text: content}
		}
		proposal := RematchPropose{AuthorName: fields[0]}
		if len(fields) > 1 {
			proposal.AuthorID = fields[1]
		}
		return proposal
	case tagRematchAccept:
		fields := strings.Split(rest, "|")
		if len(fields) < 2 {
			return ChatText{Text: content}
		}
		return RematchAccept{ProposerName: fields[0], AccepterName: fields[1]}
	case tagMessage:
		return Message{Text: rest}
	default:
		return ChatText{Text: content}
	}
}

// Encode renders a typed payload into persisted content form.
func Encode(payload Payload) string {
	switch p := payload.(type) {
	case Propose:
		return strings.Join([]string{tagPropose, p.Mark, p.AuthorName, p.AuthorID}, "|")
	case Accept:
		return strings.Join([]string{tagAccept, p.Mark, p.ProposerName, p.AccepterName}, "|")
	case Start:
		return strings.Join([]string{tagStart, p.Mark, p.AuthorName}, "|")
	case Move:
		return strings.Join([]string{tagMove, strconv.Itoa(p.Cell), p.Mark}, "|")
	case RematchPropose:
		return strings.Join([]string{tagRematchPropose, p.AuthorName, p.AuthorID}, "|")
	case RematchAccept:
		return strings.Join([]string{tagRematchAccept, p.ProposerName, p.AccepterName}, "|")
	case Message:
		return tagMessage + "|" + p.Text
	case ChatText:
		return p.Text
	default:
		return ""
	}
}
