package network

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/luca-patrignani/mental-poker-channel/channel"
	"github.com/luca-patrignani/mental-poker-channel/referee"
)

// EnvelopeType tags an event streamed to a seat.
type EnvelopeType string

const (
	EnvelopeTurn         EnvelopeType = "turn"
	EnvelopeClaim        EnvelopeType = "claim"
	EnvelopeGameOver     EnvelopeType = "game_over"
	EnvelopeChallenged   EnvelopeType = "challenged"
	EnvelopeVerification EnvelopeType = "verification"
)

// Envelope is one websocket message of the events stream.
type Envelope struct {
	Type   EnvelopeType    `json:"type"`
	Turn   *channel.Turn   `json:"turn,omitempty"`
	Share  [2]uint         `json:"share,omitzero"`
	Reason string          `json:"reason,omitempty"`
	Update *channel.Update `json:"update,omitempty"`
}

type createRequest struct {
	Funds [2]uint `json:"funds"`
}

type createResponse struct {
	Game string `json:"game"`
}

type claimRequest struct {
	Share [2]uint `json:"share"`
}

type challengeRequest struct {
	Reason string `json:"reason"`
}

// GameInfo is the body of GET /games/{game}.
type GameInfo struct {
	Game   string  `json:"game"`
	Status string  `json:"status"`
	Funds  [2]uint `json:"funds"`
	Result [2]uint `json:"result,omitzero"`
	Blocks int     `json:"blocks"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// errorCodes maps referee sentinels to stable wire codes.
var errorCodes = map[string]error{
	"game_over":      referee.ErrGameOver,
	"disputed":       referee.ErrDisputed,
	"claim_pending":  referee.ErrClaimPending,
	"no_claim":       referee.ErrNoClaim,
	"own_claim":      referee.ErrOwnClaim,
	"invalid_share":  referee.ErrInvalidShare,
	"wrong_player":   referee.ErrWrongPlayer,
	"sequence":       referee.ErrSequence,
	"too_early":      referee.ErrTooEarly,
	"not_awaiting":   referee.ErrNotAwaiting,
	"unknown_game":   ErrUnknownGame,
	"seat_taken":     ErrSeatTaken,
	"bad_request":    ErrBadRequest,
	"unknown_player": ErrUnknownPlayer,
}

var (
	ErrUnknownGame   = errors.New("unknown game")
	ErrUnknownPlayer = errors.New("unknown player")
	ErrSeatTaken     = errors.New("seat already has an event subscriber")
	ErrBadRequest    = errors.New("malformed request")
)

func codeOf(err error) (string, int) {
	for code, sentinel := range errorCodes {
		if errors.Is(err, sentinel) {
			switch sentinel {
			case ErrUnknownGame, ErrUnknownPlayer:
				return code, http.StatusNotFound
			case ErrBadRequest:
				return code, http.StatusBadRequest
			}
			return code, http.StatusConflict
		}
	}
	return "", http.StatusInternalServerError
}

// remoteError rebuilds a server side error so that errors.Is matches the
// sentinel it was raised with.
type remoteError struct {
	status  int
	message string
	code    error
}

func (e *remoteError) Error() string {
	return fmt.Sprintf("server replied %d: %s", e.status, e.message)
}

func (e *remoteError) Unwrap() error { return e.code }

func decodeError(status int, body errorResponse) error {
	return &remoteError{status: status, message: body.Error, code: errorCodes[body.Code]}
}
