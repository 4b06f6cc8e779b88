// Package network exposes referees over HTTP and provides the matching
// remote channel.TurnChannel.
//
// # Server
//
// Server hosts any number of games, each backed by a referee.Referee:
//
//	POST /games                                   create a game, body {"funds": [a, b]}
//	POST /games/{game}/players/{player}/turns     submit a channel.Turn
//	POST /games/{game}/players/{player}/claim     body {"share": [a, b]}
//	POST /games/{game}/players/{player}/confirm
//	POST /games/{game}/players/{player}/challenge body {"reason": "..."}
//	POST /games/{game}/players/{player}/timeout
//	GET  /games/{game}/players/{player}/events    websocket stream of Envelope
//	GET  /games/{game}                            status and ledger
//
// player is "alice", "bob", 0 or 1. Each seat accepts a single event
// subscriber at a time.
//
// # Client
//
// Dial subscribes to a seat and returns a Client whose receive channels are
// fed by the websocket reader goroutine. Referee errors are carried by code
// so errors.Is works on the client side.
package network
