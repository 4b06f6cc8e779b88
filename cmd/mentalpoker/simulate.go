package main

import (
	"context"
	"crypto/x509"
	"fmt"
	"math/rand/v2"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/pterm/pterm"
	"golang.org/x/sync/errgroup"

	"github.com/luca-patrignani/mental-poker-channel/channel"
	"github.com/luca-patrignani/mental-poker-channel/domain/deck"
	"github.com/luca-patrignani/mental-poker-channel/domain/poker"
	"github.com/luca-patrignani/mental-poker-channel/engine"
	"github.com/luca-patrignani/mental-poker-channel/network"
	"github.com/luca-patrignani/mental-poker-channel/referee"
)

type SimulateCmd struct {
	Server string `short:"s" help:"Referee server; an in-process referee is used when empty"`
	CA     string `help:"PEM certificate to trust, for servers with a self signed certificate" type:"existingfile"`
	Alice  string `default:"check" enum:"check,aggressive,random" help:"Policy of Alice (check|aggressive|random)"`
	Bob    string `default:"random" enum:"check,aggressive,random" help:"Policy of Bob (check|aggressive|random)"`
	Step   uint   `default:"10" help:"Raise step of the aggressive and random policies"`
	Cheat  bool   `help:"Bob withholds his reveals, forcing the hand into verification"`
	Seed   uint64 `help:"Seed for the policies and the shuffle (0 for random)"`
	Hands  int    `default:"1" help:"Hands to play; funds carry over and the dealer alternates"`
}

// seat is a turn channel and what to do when the hand is over.
type seat struct {
	ch    channel.TurnChannel
	close func()
}

func (c *SimulateCmd) Run(a *app) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	seed := c.Seed
	if seed == 0 {
		seed = deck.NewRand().Uint64()
	}
	a.logger.Info("simulating", "seed", seed, "hands", c.Hands, "scheme", a.cfg.Scheme())
	rng := rand.New(rand.NewPCG(seed, 0))
	var policies [2]engine.Policy
	for p, name := range []string{c.Alice, c.Bob} {
		policy, err := parsePolicy(name, rng, c.Step)
		if err != nil {
			return err
		}
		policies[p] = policy
	}

	funds := a.cfg.Funds()
	dealer := poker.Alice
	for hand := range c.Hands {
		if funds[poker.Alice] < a.cfg.BigBlind() || funds[poker.Bob] < a.cfg.BigBlind() {
			pterm.Warning.Printfln("A player cannot post the big blind, stopping after %d hands", hand)
			break
		}
		pterm.DefaultSection.Printfln("Hand %d, %s deals", hand+1, dealer)
		share, err := c.playHand(ctx, a, hand, seed, funds, dealer, policies)
		if err != nil {
			return fmt.Errorf("hand %d: %w", hand+1, err)
		}
		funds = share
		dealer = dealer.Other()
	}
	pterm.Success.Printfln("Final funds: alice %d, bob %d", funds[poker.Alice], funds[poker.Bob])
	return nil
}

func (c *SimulateCmd) playHand(ctx context.Context, a *app, hand int, seed uint64, funds [2]uint, dealer poker.PlayerID, policies [2]engine.Policy) ([2]uint, error) {
	seats, wait, err := c.seats(ctx, a, funds)
	if err != nil {
		return funds, err
	}
	defer func() {
		for _, s := range seats {
			s.close()
		}
	}()

	var (
		results [2]poker.Result
		mu      sync.Mutex
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, p := range []poker.PlayerID{poker.Alice, poker.Bob} {
		e, err := engine.New(engine.Config{
			Player:          p,
			Dealer:          dealer,
			Funds:           funds,
			BigBlind:        a.cfg.BigBlind(),
			Scheme:          a.cfg.Scheme(),
			WithholdReveals: c.Cheat && p == poker.Bob,
			Logger:          a.logger.With("player", p),
			Rand:            rand.New(rand.NewPCG(seed, uint64(2*hand+int(p)+1))),
		}, seats[p].ch)
		if err != nil {
			return funds, err
		}
		g.Go(func() error {
			r, err := e.Run(gctx)
			results[p] = r
			return err
		})
		g.Go(func() error {
			return engine.Autoplay(gctx, e, policies[p], func(ev engine.Event) {
				if line := describeEvent(p, ev); line != "" {
					mu.Lock()
					defer mu.Unlock()
					pterm.Println(line)
				}
			})
		})
	}
	if err := g.Wait(); err != nil {
		return funds, err
	}
	wait()

	if results[poker.Alice].FundsShare != results[poker.Bob].FundsShare {
		return funds, fmt.Errorf("players settled differently: %v and %v",
			results[poker.Alice].FundsShare, results[poker.Bob].FundsShare)
	}
	return results[poker.Alice].FundsShare, nil
}

// seats opens the two turn channels of a hand, on a remote referee when
// Server is set.
func (c *SimulateCmd) seats(ctx context.Context, a *app, funds [2]uint) ([2]seat, func(), error) {
	var seats [2]seat
	if c.Server == "" {
		opts, err := refereeOptions(a)
		if err != nil {
			return seats, nil, err
		}
		ref := referee.New(funds, opts...)
		for p := range seats {
			seats[p] = seat{ch: ref.Seat(poker.PlayerID(p)), close: func() {}}
		}
		return seats, ref.Wait, nil
	}

	opts, err := clientOptions(a, c.CA)
	if err != nil {
		return seats, nil, err
	}
	game, err := network.CreateGame(ctx, c.Server, funds, opts...)
	if err != nil {
		return seats, nil, err
	}
	a.logger.Info("game created", "game", game, "server", c.Server)
	for p := range seats {
		client, err := network.Dial(ctx, c.Server, game, poker.PlayerID(p), opts...)
		if err != nil {
			for _, s := range seats[:p] {
				s.close()
			}
			return seats, nil, err
		}
		seats[p] = seat{ch: client, close: func() { _ = client.Close() }}
	}
	return seats, func() {}, nil
}

func clientOptions(a *app, caFile string) ([]network.ClientOption, error) {
	opts := []network.ClientOption{network.WithClientLogger(a.logger)}
	if caFile == "" {
		return opts, nil
	}
	pem, err := os.ReadFile(caFile)
	if err != nil {
		return nil, err
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("no certificate found in %s", caFile)
	}
	return append(opts, network.WithCertPool(pool)), nil
}

func parsePolicy(name string, rng *rand.Rand, step uint) (engine.Policy, error) {
	switch name {
	case "check":
		return engine.Passive(), nil
	case "aggressive":
		return engine.Aggressive(step), nil
	case "random":
		return engine.Random(rng, step), nil
	}
	return nil, fmt.Errorf("unknown policy %q", name)
}

// describeEvent renders the events of player p worth printing. Shared events
// are printed once, from the side of the player they concern.
func describeEvent(p poker.PlayerID, ev engine.Event) string {
	switch ev.Kind {
	case engine.EventPhase:
		if p != poker.Alice {
			return ""
		}
		return pterm.Sprintf("-- %s --", ev.Phase)
	case engine.EventCards:
		return pterm.Sprintf("%s sees %s", p, prettyCards(ev.Cards))
	case engine.EventBet:
		if ev.Player != p {
			return ""
		}
		return pterm.Sprintf("%s: %s (bets %d/%d)", p, ev.Action, ev.Bets.PlayerBets, ev.Bets.OpponentBets)
	case engine.EventClaimed:
		if ev.Player != p {
			return ""
		}
		return pterm.Sprintf("%s claims alice %d, bob %d", p, ev.Share[poker.Alice], ev.Share[poker.Bob])
	case engine.EventChallenged:
		if ev.Player != p {
			return ""
		}
		return pterm.LightRed(pterm.Sprintf("%s challenges the hand: %s", p, ev.Reason))
	case engine.EventSettled:
		line := pterm.Sprintf("%s settled: alice %d, bob %d", p, ev.Share[poker.Alice], ev.Share[poker.Bob])
		if ev.Reason != "" {
			line += " after " + ev.Reason
		}
		return line
	}
	return ""
}

func prettyCards(cards map[int]poker.Card) string {
	var parts []string
	for _, pos := range append(append(engine.HolePositions(poker.Alice), engine.HolePositions(poker.Bob)...), engine.BoardPositions()...) {
		if c, ok := cards[pos]; ok {
			parts = append(parts, c.Pretty())
		}
	}
	return strings.Join(parts, " ")
}
