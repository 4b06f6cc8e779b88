package discovery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/coder/quartz"
)

const (
	// DefaultAddress is the multicast group and port of announcements.
	DefaultAddress = "239.0.0.1:53552"
	// DefaultInterval is the time between two announcements.
	DefaultInterval = 2 * time.Second

	magic     = "mentalpoker/1 "
	maxPacket = 1024
	entries   = 10
)

// Announcement is what a referee server tells the players.
type Announcement struct {
	URL  string `json:"url"`
	Name string `json:"name,omitempty"`
	// TLS servers use a self signed certificate the player must trust.
	TLS bool `json:"tls,omitempty"`
}

// Entry is an announcement as received from From.
type Entry struct {
	Announcement
	From net.Addr
	Time time.Time
}

func encode(a Announcement) ([]byte, error) {
	body, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	packet := append([]byte(magic), body...)
	if len(packet) > maxPacket {
		return nil, fmt.Errorf("announcement too large: %d bytes", len(packet))
	}
	return packet, nil
}

func decode(packet []byte) (Announcement, error) {
	body, ok := bytes.CutPrefix(packet, []byte(magic))
	if !ok {
		return Announcement{}, errors.New("not an announcement")
	}
	var a Announcement
	if err := json.Unmarshal(body, &a); err != nil {
		return Announcement{}, err
	}
	if a.URL == "" {
		return Announcement{}, errors.New("announcement without URL")
	}
	return a, nil
}

type options struct {
	clock    quartz.Clock
	interval time.Duration
	logger   *slog.Logger
}

type Option func(*options)

// WithClock sets the clock pacing announcements and stamping entries.
func WithClock(c quartz.Clock) Option {
	return func(o *options) { o.clock = c }
}

func WithInterval(d time.Duration) Option {
	return func(o *options) { o.interval = d }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

func newOptions(opts []Option) options {
	o := options{
		clock:    quartz.NewReal(),
		interval: DefaultInterval,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Announcer repeats an announcement to an address.
type Announcer struct {
	opts   options
	conn   *net.UDPConn
	packet []byte
}

// NewAnnouncer prepares the announcement of a to address.
func NewAnnouncer(address string, a Announcement, opts ...Option) (*Announcer, error) {
	packet, err := encode(a)
	if err != nil {
		return nil, err
	}
	addr, err := net.ResolveUDPAddr("udp", address)
	if err != nil {
		return nil, err
	}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, err
	}
	return &Announcer{opts: newOptions(opts), conn: conn, packet: packet}, nil
}

// Run announces immediately and then every interval until ctx is done. The
// connection is closed when Run returns.
func (a *Announcer) Run(ctx context.Context) error {
	defer a.conn.Close()
	ticker := a.opts.clock.NewTicker(a.opts.interval, "discovery", "announce")
	defer ticker.Stop()
	for {
		if _, err := a.conn.Write(a.packet); err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			// Networks without a multicast route fail every write; keep trying.
			a.opts.logger.Debug("announcement failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Listener receives announcements.
type Listener struct {
	opts    options
	conn    *net.UDPConn
	entries chan Entry
	done    chan struct{}
}

// Listen joins the multicast group of address, or binds it when it is a
// unicast address.
func Listen(address string, opts ...Option) (*Listener, error) {
	addr, err := net.ResolveUDPAddr("udp", address)
	if err != nil {
		return nil, err
	}
	var conn *net.UDPConn
	if addr.IP.IsMulticast() {
		conn, err = net.ListenMulticastUDP("udp", nil, addr)
	} else {
		conn, err = net.ListenUDP("udp", addr)
	}
	if err != nil {
		return nil, err
	}
	l := &Listener{
		opts:    newOptions(opts),
		conn:    conn,
		entries: make(chan Entry, entries),
		done:    make(chan struct{}),
	}
	go l.read()
	return l, nil
}

// Addr is the bound address.
func (l *Listener) Addr() net.Addr { return l.conn.LocalAddr() }

// Entries is closed after Close.
func (l *Listener) Entries() <-chan Entry { return l.entries }

func (l *Listener) Close() error {
	err := l.conn.Close()
	<-l.done
	return err
}

// Find returns the first announcement received.
func (l *Listener) Find(ctx context.Context) (Entry, error) {
	select {
	case e, ok := <-l.entries:
		if !ok {
			return Entry{}, net.ErrClosed
		}
		return e, nil
	case <-ctx.Done():
		return Entry{}, ctx.Err()
	}
}

func (l *Listener) read() {
	defer close(l.done)
	defer close(l.entries)
	buffer := make([]byte, maxPacket)
	for {
		n, from, err := l.conn.ReadFromUDP(buffer)
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				l.opts.logger.Warn("discovery stopped", "error", err)
			}
			return
		}
		a, err := decode(buffer[:n])
		if err != nil {
			l.opts.logger.Debug("dropping packet", "from", from, "error", err)
			continue
		}
		select {
		case l.entries <- Entry{Announcement: a, From: from, Time: l.opts.clock.Now()}:
		default:
			l.opts.logger.Debug("entries full, dropping announcement", "from", from)
		}
	}
}
