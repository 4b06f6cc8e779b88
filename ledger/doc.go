// Package ledger implements the append-only log kept by a referee for one
// hand: every turn, claim, confirmation, challenge and settlement.
//
// # Core Components
//
// Blockchain: an append-only sequence of blocks with hash chaining for tamper
// detection.
//
// Block: a single recorded event with its kind, the acting player and the
// JSON encoded data.
//
// # Usage
//
// Create a blockchain, append blocks as events happen and call Verify at any
// time to check that the chain is intact.
package ledger
