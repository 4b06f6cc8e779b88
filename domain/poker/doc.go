// Package poker implements the heads-up Texas Hold'em rules used by the
// mental poker engine: the card codec, the betting sub-engine, hand
// evaluation and the arithmetic that turns a finished hand into fund shares.
//
// # Core Types
//
// Card: a card encoded by its deck index (0-51). Value is index%13 and suit
// is index/13; ToIndex and Card.String convert to and from the display form.
//
// BetState: the betting position of one player, with the opponent's total
// and the current bet leader. Apply enforces call/check/raise/fold legality.
//
// Evaluator: the showdown collaborator. HoldemEvaluator is backed by
// github.com/paulhankin/poker.
//
// Result: winners and fund shares of a hand, indexed by PlayerID.
//
// # Betting Rounds
//
// A round starts with even bets and the leader to act. Raising makes the
// raiser the leader; the round closes when the other player levels the bets.
// Folding is only possible while the bets differ.
package poker
