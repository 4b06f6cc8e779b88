package network

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/luca-patrignani/mental-poker-channel/channel"
	"github.com/luca-patrignani/mental-poker-channel/domain/poker"
	"github.com/luca-patrignani/mental-poker-channel/referee"
)

// Server hosts refereed games over HTTP.
type Server struct {
	router   chi.Router
	logger   *slog.Logger
	refOpts  []referee.Option
	upgrader websocket.Upgrader

	mu    sync.Mutex
	games map[string]*game
}

type game struct {
	ref        *referee.Referee
	subscribed [2]bool
}

// NewServer returns a Server with no games.
func NewServer(opts ...ServerOption) *Server {
	s := &Server{
		logger: slog.New(slog.DiscardHandler),
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		games: make(map[string]*game),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Post("/games", s.handleCreate)
	r.Route("/games/{game}", func(r chi.Router) {
		r.Get("/", s.handleInfo)
		r.Get("/ledger", s.handleLedger)
		r.Route("/players/{player}", func(r chi.Router) {
			r.Post("/turns", s.seatHandler(s.handleTurn))
			r.Post("/claim", s.seatHandler(s.handleClaim))
			r.Post("/confirm", s.seatHandler(func(r *http.Request, seat *referee.Seat) error {
				return seat.ConfirmResult(r.Context())
			}))
			r.Post("/challenge", s.seatHandler(s.handleChallenge))
			r.Post("/timeout", s.seatHandler(func(r *http.Request, seat *referee.Seat) error {
				return seat.ClaimTimeout(r.Context())
			}))
			r.Get("/events", s.handleEvents)
		})
	})
	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// CreateGame registers a new referee for funds and returns its id.
func (s *Server) CreateGame(funds [2]uint) string {
	var b [8]byte
	_, _ = rand.Read(b[:])
	id := hex.EncodeToString(b[:])
	ref := referee.New(funds, append(slices.Clone(s.refOpts), referee.WithLogger(s.logger.With("game", id)))...)

	s.mu.Lock()
	s.games[id] = &game{ref: ref}
	s.mu.Unlock()
	s.logger.Info("game created", "game", id, "funds", funds)
	return id
}

// Referee returns the referee of game id.
func (s *Server) Referee(id string) (*referee.Referee, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.games[id]
	if !ok {
		return nil, false
	}
	return g.ref, true
}

func (s *Server) lookup(r *http.Request) (*game, string, error) {
	id := chi.URLParam(r, "game")
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.games[id]
	if !ok {
		return nil, id, fmt.Errorf("%w %q", ErrUnknownGame, id)
	}
	return g, id, nil
}

func (s *Server) seat(r *http.Request) (*game, poker.PlayerID, error) {
	g, _, err := s.lookup(r)
	if err != nil {
		return nil, 0, err
	}
	p, err := poker.ParsePlayer(chi.URLParam(r, "player"))
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrUnknownPlayer, err)
	}
	return g, p, nil
}

// seatHandler resolves the seat of the request and reports fn's error.
func (s *Server) seatHandler(fn func(r *http.Request, seat *referee.Seat) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g, p, err := s.seat(r)
		if err == nil {
			err = fn(r, g.ref.Seat(p))
		}
		if err != nil {
			s.writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, fmt.Errorf("%w: %v", ErrBadRequest, err))
		return
	}
	writeJSON(w, http.StatusCreated, createResponse{Game: s.CreateGame(req.Funds)})
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	g, id, err := s.lookup(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	info := GameInfo{
		Game:   id,
		Status: g.ref.Status().String(),
		Funds:  g.ref.Funds(),
		Blocks: g.ref.Ledger().Len(),
	}
	info.Result, _ = g.ref.Result()
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleLedger(w http.ResponseWriter, r *http.Request) {
	g, _, err := s.lookup(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g.ref.Ledger().Blocks())
}

func (s *Server) handleTurn(r *http.Request, seat *referee.Seat) error {
	var t channel.Turn
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return seat.SubmitTurn(r.Context(), t)
}

func (s *Server) handleClaim(r *http.Request, seat *referee.Seat) error {
	var req claimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return seat.ClaimResult(r.Context(), req.Share)
}

func (s *Server) handleChallenge(r *http.Request, seat *referee.Seat) error {
	var req challengeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return seat.ChallengeGame(r.Context(), req.Reason)
}

// handleEvents streams the seat's notifications until the subscriber hangs
// up. Values taken from the seat when the write fails are lost.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	g, p, err := s.seat(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.mu.Lock()
	if g.subscribed[p] {
		s.mu.Unlock()
		s.writeError(w, ErrSeatTaken)
		return
	}
	g.subscribed[p] = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		g.subscribed[p] = false
		s.mu.Unlock()
	}()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("failed to upgrade connection", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	log := s.logger.With("game", chi.URLParam(r, "game"), "player", p)
	log.Debug("subscriber connected")
	if err := pump(ctx, conn, g.ref.Seat(p)); err != nil && !errors.Is(err, context.Canceled) {
		log.Warn("event stream closed", "error", err)
	}
	log.Debug("subscriber disconnected")
}

func pump(ctx context.Context, conn *websocket.Conn, seat channel.TurnChannel) error {
	for {
		var env Envelope
		select {
		case <-ctx.Done():
			return ctx.Err()
		case t := <-seat.TurnOver():
			env = Envelope{Type: EnvelopeTurn, Turn: &t}
		case share := <-seat.ResultClaimed():
			env = Envelope{Type: EnvelopeClaim, Share: share}
		case share := <-seat.GameOver():
			env = Envelope{Type: EnvelopeGameOver, Share: share}
		case reason := <-seat.GameChallenged():
			env = Envelope{Type: EnvelopeChallenged, Reason: reason}
		case u := <-seat.VerificationUpdates():
			env = Envelope{Type: EnvelopeVerification, Update: &u}
		}
		if err := conn.WriteJSON(env); err != nil {
			return err
		}
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code, status := codeOf(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), Code: code})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
