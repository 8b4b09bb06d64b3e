package turn

import (
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

const (
	DefaultWinScore      = 2000
	DefaultTurnLostDelay = 1500 * time.Millisecond
	updateBuffer         = 16
)

// Config holds the knobs shared by the local and the networked controllers.
type Config struct {
	Clock    clockwork.Clock
	Delay    time.Duration
	WinScore int
	Logger   *zap.Logger
}

type Option func(*Config)

// WithClock replaces the clock that times the turn-lost delay.
func WithClock(c clockwork.Clock) Option { return func(cfg *Config) { cfg.Clock = c } }

// WithDelay sets how long a lost turn stays on screen before the switch.
func WithDelay(d time.Duration) Option { return func(cfg *Config) { cfg.Delay = d } }

func WithWinScore(score int) Option { return func(cfg *Config) { cfg.WinScore = score } }

func WithLogger(l *zap.Logger) Option { return func(cfg *Config) { cfg.Logger = l } }

func NewConfig(opts ...Option) Config {
	cfg := Config{
		Clock:    clockwork.NewRealClock(),
		Delay:    DefaultTurnLostDelay,
		WinScore: DefaultWinScore,
		Logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	return cfg
}
