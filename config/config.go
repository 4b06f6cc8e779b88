// Package config loads the CLI configuration from an HCL file, a .env file
// and MENTALPOKER_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/joho/godotenv"

	"github.com/luca-patrignani/mental-poker-channel/domain/deck"
	"github.com/luca-patrignani/mental-poker-channel/referee"
)

const envPrefix = "MENTALPOKER_"

// Config is the complete configuration file.
type Config struct {
	LogLevel string         `hcl:"log_level,optional"`
	Engine   *EngineConfig  `hcl:"engine,block"`
	Referee  *RefereeConfig `hcl:"referee,block"`
}

// EngineConfig holds the hand parameters both players must agree on.
type EngineConfig struct {
	Scheme   string `hcl:"scheme,optional"`
	BigBlind int    `hcl:"big_blind,optional"`
	Funds    []int  `hcl:"funds,optional"`
}

// RefereeConfig configures the served referee.
type RefereeConfig struct {
	Address string `hcl:"address,optional"`
	Timeout string `hcl:"timeout,optional"`
	Arbiter string `hcl:"arbiter,optional"`
	TLS     bool   `hcl:"tls,optional"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Engine == nil {
		c.Engine = &EngineConfig{}
	}
	if c.Engine.Scheme == "" {
		c.Engine.Scheme = string(deck.SchemeKyber)
	}
	if c.Engine.BigBlind == 0 {
		c.Engine.BigBlind = 10
	}
	if len(c.Engine.Funds) == 0 {
		c.Engine.Funds = []int{100, 100}
	}
	if c.Referee == nil {
		c.Referee = &RefereeConfig{}
	}
	if c.Referee.Address == "" {
		c.Referee.Address = "localhost:8080"
	}
	if c.Referee.Timeout == "" {
		c.Referee.Timeout = referee.DefaultTimeout.String()
	}
	if c.Referee.Arbiter == "" {
		c.Referee.Arbiter = "refund"
	}
}

// Load reads filename, falling back to the defaults when it does not exist,
// then applies .env and the environment.
func Load(filename string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}
	c, err := parseFile(filename)
	if err != nil {
		return nil, err
	}
	if err := c.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	c.applyDefaults()
	return c, nil
}

func parseFile(filename string) (*Config, error) {
	if _, err := os.Stat(filename); errors.Is(err, fs.ErrNotExist) {
		return &Config{}, nil
	}
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}
	var c Config
	if diags := gohcl.DecodeBody(file.Body, nil, &c); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}
	return &c, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if c.Engine == nil {
		c.Engine = &EngineConfig{}
	}
	if c.Referee == nil {
		c.Referee = &RefereeConfig{}
	}
	str := map[string]*string{
		"LOG_LEVEL": &c.LogLevel,
		"SCHEME":    &c.Engine.Scheme,
		"ADDRESS":   &c.Referee.Address,
		"TIMEOUT":   &c.Referee.Timeout,
		"ARBITER":   &c.Referee.Arbiter,
	}
	for key, dst := range str {
		if v, ok := lookup(envPrefix + key); ok {
			*dst = v
		}
	}
	if v, ok := lookup(envPrefix + "BIG_BLIND"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sBIG_BLIND: %w", envPrefix, err)
		}
		c.Engine.BigBlind = n
	}
	if v, ok := lookup(envPrefix + "FUNDS"); ok {
		var funds []int
		for _, part := range strings.Split(v, ",") {
			n, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil {
				return fmt.Errorf("%sFUNDS: %w", envPrefix, err)
			}
			funds = append(funds, n)
		}
		c.Engine.Funds = funds
	}
	if v, ok := lookup(envPrefix + "TLS"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sTLS: %w", envPrefix, err)
		}
		c.Referee.TLS = b
	}
	return nil
}

// Validate checks a loaded configuration.
func (c *Config) Validate() error {
	var errs []error
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	if _, err := deck.New(c.Scheme(), []byte("probe")); err != nil {
		errs = append(errs, err)
	}
	if len(c.Engine.Funds) != 2 {
		errs = append(errs, fmt.Errorf("funds must list 2 players, got %d", len(c.Engine.Funds)))
	}
	if c.Engine.BigBlind <= 0 {
		errs = append(errs, fmt.Errorf("big blind must be positive"))
	}
	for i, f := range c.Engine.Funds {
		if f < c.Engine.BigBlind {
			errs = append(errs, fmt.Errorf("player %d: funds %d below the big blind", i, f))
		}
	}
	if _, err := c.Timeout(); err != nil {
		errs = append(errs, err)
	}
	if _, err := referee.ParseArbiter(c.Referee.Arbiter); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	return l, nil
}

func (c *Config) Scheme() deck.Scheme { return deck.Scheme(c.Engine.Scheme) }

// Funds returns the players' funds. Call after Validate.
func (c *Config) Funds() [2]uint {
	return [2]uint{uint(c.Engine.Funds[0]), uint(c.Engine.Funds[1])}
}

func (c *Config) BigBlind() uint { return uint(c.Engine.BigBlind) }

// Timeout parses the referee stall timeout.
func (c *Config) Timeout() (time.Duration, error) {
	d, err := time.ParseDuration(c.Referee.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid referee timeout: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("referee timeout must be positive")
	}
	return d, nil
}
