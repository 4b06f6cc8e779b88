package network

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/luca-patrignani/mental-poker-channel/channel"
	"github.com/luca-patrignani/mental-poker-channel/domain/poker"
)

const clientBuffer = 64

// Client is a remote seat. It is safe for concurrent use.
type Client struct {
	cfg    clientConfig
	seat   string
	player poker.PlayerID
	log    *slog.Logger
	conn   *websocket.Conn

	turns      chan channel.Turn
	claims     chan [2]uint
	over       chan [2]uint
	challenged chan string
	updates    chan channel.Update

	done      chan struct{}
	stop      chan struct{}
	closeOnce sync.Once
	mu        sync.Mutex
	readErr   error
}

var _ channel.TurnChannel = (*Client)(nil)

// CreateGame asks the server at baseURL for a new game and returns its id.
func CreateGame(ctx context.Context, baseURL string, funds [2]uint, opts ...ClientOption) (string, error) {
	cfg := newClientConfig(opts)
	var resp createResponse
	if err := post(ctx, cfg, strings.TrimRight(baseURL, "/")+"/games", createRequest{Funds: funds}, &resp); err != nil {
		return "", fmt.Errorf("creating game: %w", err)
	}
	return resp.Game, nil
}

// Dial subscribes to the events of player in game and returns its seat.
func Dial(ctx context.Context, baseURL, game string, player poker.PlayerID, opts ...ClientOption) (*Client, error) {
	cfg := newClientConfig(opts)
	seat := fmt.Sprintf("%s/games/%s/players/%d", strings.TrimRight(baseURL, "/"), url.PathEscape(game), player)

	u, err := url.Parse(seat + "/events")
	if err != nil {
		return nil, fmt.Errorf("invalid server URL: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	conn, resp, err := cfg.dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("subscribing to %s: %w", u, readError(resp))
		}
		return nil, fmt.Errorf("subscribing to %s: %w", u, err)
	}

	c := &Client{
		cfg:        cfg,
		seat:       seat,
		player:     player,
		log:        cfg.logger.With("game", game, "player", player),
		conn:       conn,
		turns:      make(chan channel.Turn, clientBuffer),
		claims:     make(chan [2]uint, clientBuffer),
		over:       make(chan [2]uint, clientBuffer),
		challenged: make(chan string, clientBuffer),
		updates:    make(chan channel.Update, clientBuffer),
		done:       make(chan struct{}),
		stop:       make(chan struct{}),
	}
	go c.readEnvelopes()
	return c, nil
}

// Close hangs up the event stream.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.stop)
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		err = c.conn.Close()
	})
	return err
}

// Done is closed when the event stream ends.
func (c *Client) Done() <-chan struct{} { return c.done }

// Err is the error that ended the event stream, if any.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readErr
}

func (c *Client) Player() poker.PlayerID { return c.player }

func (c *Client) SubmitTurn(ctx context.Context, t channel.Turn) error {
	return post(ctx, c.cfg, c.seat+"/turns", t, nil)
}

func (c *Client) ClaimResult(ctx context.Context, share [2]uint) error {
	return post(ctx, c.cfg, c.seat+"/claim", claimRequest{Share: share}, nil)
}

func (c *Client) ConfirmResult(ctx context.Context) error {
	return post(ctx, c.cfg, c.seat+"/confirm", nil, nil)
}

func (c *Client) ChallengeGame(ctx context.Context, reason string) error {
	return post(ctx, c.cfg, c.seat+"/challenge", challengeRequest{Reason: reason}, nil)
}

func (c *Client) ClaimTimeout(ctx context.Context) error {
	return post(ctx, c.cfg, c.seat+"/timeout", nil, nil)
}

func (c *Client) TurnOver() <-chan channel.Turn { return c.turns }
func (c *Client) ResultClaimed() <-chan [2]uint { return c.claims }
func (c *Client) GameOver() <-chan [2]uint { return c.over }
func (c *Client) GameChallenged() <-chan string { return c.challenged }
func (c *Client) VerificationUpdates() <-chan channel.Update { return c.updates }

func (c *Client) readEnvelopes() {
	defer close(c.done)
	for {
		var env Envelope
		if err := c.conn.ReadJSON(&env); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) && !errors.Is(err, net.ErrClosed) {
				c.mu.Lock()
				c.readErr = err
				c.mu.Unlock()
				c.log.Warn("event stream ended", "error", err)
			}
			return
		}
		c.dispatch(env)
	}
}

func (c *Client) dispatch(env Envelope) {
	switch env.Type {
	case EnvelopeTurn:
		if env.Turn == nil {
			c.log.Warn("turn envelope without a turn")
			return
		}
		deliver(c, c.turns, *env.Turn)
	case EnvelopeClaim:
		deliver(c, c.claims, env.Share)
	case EnvelopeGameOver:
		deliver(c, c.over, env.Share)
	case EnvelopeChallenged:
		deliver(c, c.challenged, env.Reason)
	case EnvelopeVerification:
		if env.Update != nil {
			deliver(c, c.updates, *env.Update)
		}
	default:
		c.log.Warn("unknown envelope", "type", env.Type)
	}
}

// deliver blocks until v is queued or the client is closed.
func deliver[T any](c *Client, ch chan T, v T) {
	select {
	case ch <- v:
	case <-c.stop:
	}
}

// post sends body as JSON to target and decodes the reply into out. Requests
// that do not reach the server are retried until the retry timeout.
func post(ctx context.Context, cfg clientConfig, target string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return err
		}
	}
	start := time.Now()
	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := cfg.http.Do(req)
		if err == nil {
			return readReply(resp, out)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if time.Since(start) > cfg.retry {
			return fmt.Errorf("connection attempts timed out with error %w", err)
		}
		cfg.logger.Debug("retrying request", "url", target, "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
}

func readReply(resp *http.Response, out any) error {
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return readError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func readError(resp *http.Response) error {
	var body errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		body.Error = http.StatusText(resp.StatusCode) + " (status " + strconv.Itoa(resp.StatusCode) + ")"
	}
	return decodeError(resp.StatusCode, body)
}
