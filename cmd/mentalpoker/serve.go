package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"golang.org/x/sync/errgroup"

	"github.com/luca-patrignani/mental-poker-channel/discovery"
	"github.com/luca-patrignani/mental-poker-channel/network"
	"github.com/luca-patrignani/mental-poker-channel/referee"
)

type ServeCmd struct {
	Address  string `short:"a" help:"Address to listen on (overrides config)"`
	TLS      bool   `help:"Serve HTTPS with a self signed certificate (overrides config)"`
	CertOut  string `help:"Write the self signed certificate PEM here for the clients" type:"path"`
	Announce bool   `help:"Announce the referee on the local network"`
	Name     string `default:"mentalpoker" help:"Name announced to the players"`
}

func (c *ServeCmd) Run(a *app) error {
	addr := a.cfg.Referee.Address
	if c.Address != "" {
		addr = c.Address
	}
	host, port, err := splitHostPort(addr, defaultPort)
	if err != nil {
		return fmt.Errorf("invalid address %q: %w", addr, err)
	}
	opts, err := refereeOptions(a)
	if err != nil {
		return err
	}
	srv := network.NewServer(
		network.WithServerLogger(a.logger),
		network.WithRefereeOptions(opts...),
	)

	l, err := net.Listen("tcp", net.JoinHostPort(host, port))
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	if tl, ok := l.(*net.TCPListener); ok {
		if subnet, err := subnetOfListener(tl); err == nil {
			a.logger.Info("players on this network can connect", "subnet", subnet.String())
		}
	}

	scheme := "http"
	if c.TLS || a.cfg.Referee.TLS {
		cert, certPEM, err := network.GenerateSelfSignedCert(l.Addr().String())
		if err != nil {
			l.Close()
			return fmt.Errorf("generating certificate: %w", err)
		}
		if c.CertOut != "" {
			if err := os.WriteFile(c.CertOut, certPEM, 0o644); err != nil {
				l.Close()
				return err
			}
			a.logger.Info("certificate written", "path", c.CertOut)
		}
		l = tls.NewListener(l, &tls.Config{Certificates: []tls.Certificate{cert}})
		scheme = "https"
	}

	var announcer *discovery.Announcer
	if c.Announce {
		announcer, err = discovery.NewAnnouncer(discovery.DefaultAddress, discovery.Announcement{
			URL:  scheme + "://" + advertised(l.Addr()),
			Name: c.Name,
			TLS:  scheme == "https",
		}, discovery.WithLogger(a.logger))
		if err != nil {
			l.Close()
			return fmt.Errorf("announcing: %w", err)
		}
	}

	hs := &http.Server{Handler: srv, ReadHeaderTimeout: 10 * time.Second}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := hs.Serve(l); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return hs.Shutdown(shutdownCtx)
	})
	if announcer != nil {
		g.Go(func() error { return announcer.Run(ctx) })
	}
	pterm.Success.Printfln("Referee listening on %s://%s", scheme, l.Addr())
	return g.Wait()
}

// advertised is addr with an unspecified host replaced by the LAN address.
func advertised(addr net.Addr) string {
	tcp, ok := addr.(*net.TCPAddr)
	if !ok || !tcp.IP.IsUnspecified() {
		return addr.String()
	}
	ip := outboundIP()
	if ip == nil {
		ip = net.IPv4(127, 0, 0, 1)
	}
	return net.JoinHostPort(ip.String(), strconv.Itoa(tcp.Port))
}

// refereeOptions are the referee settings of the configuration.
func refereeOptions(a *app) ([]referee.Option, error) {
	timeout, err := a.cfg.Timeout()
	if err != nil {
		return nil, err
	}
	arbiter, err := referee.ParseArbiter(a.cfg.Referee.Arbiter)
	if err != nil {
		return nil, err
	}
	return []referee.Option{
		referee.WithTimeout(timeout),
		referee.WithArbiter(arbiter),
		referee.WithLogger(a.logger),
	}, nil
}
