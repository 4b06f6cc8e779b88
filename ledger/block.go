package ledger

import "encoding/json"

// Kind classifies what a block records.
type Kind string

const (
	KindGenesis    Kind = "genesis"
	KindTurn       Kind = "turn"
	KindClaim      Kind = "claim"
	KindConfirm    Kind = "confirm"
	KindChallenge  Kind = "challenge"
	KindTimeout    Kind = "timeout"
	KindSettlement Kind = "settlement"
)

// Referee is the Player value of blocks not written on behalf of a player.
const Referee = -1

// Block is a single recorded event.
type Block struct {
	Index     int             `json:"index"`
	Timestamp int64           `json:"timestamp"`
	PrevHash  string          `json:"prev_hash"`
	Hash      string          `json:"hash"`
	Kind      Kind            `json:"kind"`
	Player    int             `json:"player"`
	Data      json.RawMessage `json:"data,omitempty"`
}
