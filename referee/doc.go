// Package referee is an in-memory turn channel for a single hand. It plays
// the part of the ledger and contract layer: it records every event in a
// hash chained ledger, relays turns between the two seats, settles agreed
// results, arbitrates challenges and honours timeout claims.
//
// # Seats
//
// A Referee has one Seat per player. Each Seat implements
// channel.TurnChannel and only ever sees what the counterparty published.
//
// # Settlement
//
// A hand is settled by the counterparty confirming a claim, by an Arbiter
// after a challenge, or by a timeout claim once the configured timeout has
// elapsed on the referee clock since the last move. GameOver is delivered
// to both seats exactly once.
package referee
