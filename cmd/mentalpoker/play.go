package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"golang.org/x/sync/errgroup"

	"github.com/luca-patrignani/mental-poker-channel/channel"
	"github.com/luca-patrignani/mental-poker-channel/discovery"
	"github.com/luca-patrignani/mental-poker-channel/domain/deck"
	"github.com/luca-patrignani/mental-poker-channel/domain/poker"
	"github.com/luca-patrignani/mental-poker-channel/engine"
	"github.com/luca-patrignani/mental-poker-channel/network"
	"github.com/luca-patrignani/mental-poker-channel/referee"
)

type PlayCmd struct {
	Server   string `short:"s" help:"Referee server, e.g. 192.168.1.7:8080 or just 7; a local bot is played when empty"`
	Game     string `short:"g" help:"Game to join on the server; a new one is created when empty"`
	Player   string `short:"p" default:"alice" help:"Seat to take (alice|bob)"`
	Dealer   string `default:"alice" help:"Player opening the hand (alice|bob)"`
	CA       string `help:"PEM certificate to trust, for servers with a self signed certificate" type:"existingfile"`
	Bot      string `default:"random" enum:"check,aggressive,random" help:"Policy of the local opponent"`
	Discover bool   `short:"d" help:"Look for a referee announced on the local network"`
}

const discoveryTimeout = 30 * time.Second

var errQuit = errors.New("player left the table")

func (c *PlayCmd) Run(a *app) error {
	me, err := poker.ParsePlayer(c.Player)
	if err != nil {
		return err
	}
	dealer, err := poker.ParsePlayer(c.Dealer)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	banner()
	funds := a.cfg.Funds()
	ch, bot, closeSeat, err := c.connect(ctx, a, me, funds)
	if err != nil {
		return err
	}
	defer closeSeat()

	e, err := engine.New(engine.Config{
		Player:   me,
		Dealer:   dealer,
		Funds:    funds,
		BigBlind: a.cfg.BigBlind(),
		Scheme:   a.cfg.Scheme(),
		Logger:   a.logger.With("player", me),
	}, ch)
	if err != nil {
		return err
	}

	stall, err := a.cfg.Timeout()
	if err != nil {
		return err
	}
	g, gctx := errgroup.WithContext(ctx)
	if bot != nil {
		opponent, err := engine.New(engine.Config{
			Player:   me.Other(),
			Dealer:   dealer,
			Funds:    funds,
			BigBlind: a.cfg.BigBlind(),
			Scheme:   a.cfg.Scheme(),
			Logger:   a.logger.With("player", me.Other()),
		}, bot)
		if err != nil {
			return err
		}
		policy, err := parsePolicy(c.Bot, deck.NewRand(), a.cfg.BigBlind())
		if err != nil {
			return err
		}
		g.Go(func() error {
			_, err := opponent.Run(gctx)
			return err
		})
		g.Go(func() error { return engine.Autoplay(gctx, opponent, policy, nil) })
	}

	spinner, _ := pterm.DefaultSpinner.Start("Shuffling the cards ...")
	var result poker.Result
	g.Go(func() error {
		r, err := e.Run(gctx)
		result = r
		return err
	})
	g.Go(func() error { return c.seat(gctx, e, ch, newTableView(me, funds), spinner, stall) })
	if err := g.Wait(); err != nil {
		if errors.Is(err, errQuit) {
			pterm.Warning.Println("You left the table")
			return nil
		}
		return err
	}
	pterm.Success.Printfln("Hand over: alice %d, bob %d", result.FundsShare[poker.Alice], result.FundsShare[poker.Bob])
	return nil
}

// connect returns the local seat and, when no server is given, the seat of a
// local bot.
func (c *PlayCmd) connect(ctx context.Context, a *app, me poker.PlayerID, funds [2]uint) (ch, bot channel.TurnChannel, closeSeat func(), err error) {
	if c.Server == "" && c.Discover {
		entry, err := c.discover(ctx, a)
		if err != nil {
			return nil, nil, nil, err
		}
		c.Server = entry.URL
	}
	if c.Server == "" {
		opts, err := refereeOptions(a)
		if err != nil {
			return nil, nil, nil, err
		}
		ref := referee.New(funds, opts...)
		return ref.Seat(me), ref.Seat(me.Other()), ref.Wait, nil
	}

	opts, err := clientOptions(a, c.CA)
	if err != nil {
		return nil, nil, nil, err
	}
	base, err := serverURL(c.Server, outboundIP(), c.CA != "")
	if err != nil {
		return nil, nil, nil, err
	}
	game := c.Game
	if game == "" {
		if game, err = network.CreateGame(ctx, base, funds, opts...); err != nil {
			return nil, nil, nil, err
		}
		pterm.Info.Printfln("Created game %s, your opponent joins with --game %s --player %s", game, game, me.Other())
	}
	client, err := network.Dial(ctx, base, game, me, opts...)
	if err != nil {
		return nil, nil, nil, err
	}
	pterm.Info.Printfln("Seated as %s in game %s on %s", me, game, base)
	return client, nil, func() { _ = client.Close() }, nil
}

func (c *PlayCmd) discover(ctx context.Context, a *app) (discovery.Entry, error) {
	l, err := discovery.Listen(discovery.DefaultAddress, discovery.WithLogger(a.logger))
	if err != nil {
		return discovery.Entry{}, fmt.Errorf("listening for referees: %w", err)
	}
	defer l.Close()

	spinner, _ := pterm.DefaultSpinner.Start("Looking for a referee on the local network ...")
	ctx, cancel := context.WithTimeout(ctx, discoveryTimeout)
	defer cancel()
	entry, err := l.Find(ctx)
	if err != nil {
		spinner.Fail()
		return discovery.Entry{}, fmt.Errorf("no referee found: %w", err)
	}
	spinner.Success(fmt.Sprintf("Found %s at %s", entry.Name, entry.URL))
	if entry.TLS && c.CA == "" {
		pterm.Warning.Println("The referee uses a self signed certificate, pass its PEM with --ca")
	}
	return entry, nil
}

// seat renders e's events and asks the player for every bet. When nothing
// happens for stall the player is offered to claim the timeout on ch.
func (c *PlayCmd) seat(ctx context.Context, e *engine.Engine, ch channel.TurnChannel, v *tableView, spinner *pterm.SpinnerPrinter, stall time.Duration) error {
	timer := time.NewTimer(stall)
	defer timer.Stop()
	for {
		select {
		case ev, ok := <-e.Events():
			if !ok {
				if spinner != nil {
					spinner.Fail()
				}
				return nil
			}
			if err := show(ctx, e, v, ev, &spinner); err != nil {
				return err
			}
		case <-timer.C:
			if spinner != nil {
				_ = spinner.Stop()
				spinner = nil
			}
			if promptStall() {
				claimTimeout(ctx, ch)
			}
		}
		timer.Reset(stall)
	}
}

func show(ctx context.Context, e *engine.Engine, v *tableView, ev engine.Event, spinner **pterm.SpinnerPrinter) error {
	v.apply(ev)
	switch ev.Kind {
	case engine.EventPhase:
		if ev.Phase == engine.PhasePreflop && *spinner != nil {
			(*spinner).Success()
			*spinner = nil
		}
	case engine.EventBet:
		if ev.Player != v.me {
			printState(v, getActionPanel(v))
		}
	case engine.EventBetRequested:
		printState(v, getActionPanel(v))
		return inputAction(ctx, e, ev)
	case engine.EventChallenged:
		pterm.Warning.Println(v.challenge)
	case engine.EventSettled:
		printState(v, getWinnerPanel(v))
	}
	return nil
}

func promptStall() bool {
	ok, _ := pterm.DefaultInteractiveConfirm.
		WithDefaultText("Your opponent is not moving. Claim the timeout?").
		Show()
	return ok
}

// claimTimeout asks the referee to settle against a stalled opponent. The
// settlement itself arrives as an engine event.
func claimTimeout(ctx context.Context, ch channel.TurnChannel) bool {
	if err := ch.ClaimTimeout(ctx); err != nil {
		pterm.Warning.Printfln("Timeout not granted: %s", err)
		return false
	}
	pterm.Success.Println("Timeout claimed, waiting for the settlement")
	return true
}

func inputAction(ctx context.Context, e *engine.Engine, ev engine.Event) error {
	for {
		choice, err := promptAction(ev)
		if err != nil {
			return err
		}
		err = e.Act(ctx, choice)
		switch {
		case err == nil, errors.Is(err, engine.ErrFinished), errors.Is(err, engine.ErrNotYourTurn):
			return nil
		case errors.Is(err, context.Canceled):
			return err
		}
		pterm.Error.Printfln("Invalid action: %s", err)
	}
}

func promptAction(ev engine.Event) (poker.Action, error) {
	selected, err := pterm.DefaultInteractiveSelect.
		WithDefaultText(fmt.Sprintf("Select your next action (funds %d)", ev.Funds)).
		WithOptions(actionOptions(ev.Bets)).
		Show()
	if err != nil {
		return poker.Action{}, err
	}
	if selected == "quit" {
		ok, _ := pterm.DefaultInteractiveConfirm.WithDefaultText("Leave the table? Your opponent can claim the timeout").Show()
		if ok {
			return poker.Action{}, errQuit
		}
		return promptAction(ev)
	}
	if selected != string(poker.ActionRaise) {
		return poker.Action{Type: poker.ActionType(selected)}, nil
	}
	amount, _ := pterm.DefaultInteractiveTextInput.WithDefaultText("Enter the amount to raise").Show()
	n, err := strconv.ParseUint(amount, 10, 0)
	if err != nil {
		pterm.Error.Printfln("Invalid amount %q", amount)
		return promptAction(ev)
	}
	return poker.Raise(uint(n)), nil
}

// actionOptions lists the actions legal in bets, in menu order.
func actionOptions(bets poker.BetState) []string {
	if bets.Even() {
		return []string{string(poker.ActionCheck), string(poker.ActionRaise), "quit"}
	}
	return []string{string(poker.ActionCall), string(poker.ActionRaise), string(poker.ActionFold), "quit"}
}
