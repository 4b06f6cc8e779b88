package engine

import (
	"github.com/luca-patrignani/mental-poker-channel/channel"
	"github.com/luca-patrignani/mental-poker-channel/domain/poker"
)

// EventKind names an engine notification.
type EventKind string

const (
	EventPhase        EventKind = "phase"
	EventCards        EventKind = "cards"
	EventBetRequested EventKind = "bet-requested"
	EventBet          EventKind = "bet"
	EventResult       EventKind = "result"
	EventClaimed      EventKind = "claimed"
	EventChallenged   EventKind = "challenged"
	EventVerification EventKind = "verification"
	EventSettled      EventKind = "settled"
)

// Event is a notification for the host. Only the fields relevant to Kind
// are set; Phase and Bets are always the state at emission time.
type Event struct {
	Kind  EventKind
	Phase Phase
	Bets  poker.BetState

	// Player is the actor of a bet or the challenger.
	Player poker.PlayerID
	Action poker.Action
	// Cards are newly known cards by deck position.
	Cards map[int]poker.Card
	// Funds of the local player, set on bet requests.
	Funds  uint
	Result *poker.Result
	Share  [2]uint
	Reason string
	Update channel.Update
}
