// Package dispatch runs one conversation turn end to end: extract an
// invocation from the message, validate it against the registry, then either
// execute the action or ask a clarifying question. Every path ends in a
// user-visible reply; model and store failures are logged and absorbed into
// an apologetic message, never surfaced to the chat platform as an error.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	contractx "github.com/Khinkawu/crms6it-sub002/agent/contract"
	registryx "github.com/Khinkawu/crms6it-sub002/agent/registry"
)

type Config struct {
	ExtractTimeout time.Duration `envconfig:"EXTRACT_TIMEOUT" split_words:"true" default:"20s"`
	HandleTimeout  time.Duration `envconfig:"HANDLE_TIMEOUT" split_words:"true" default:"10s"`
	PhraseTimeout  time.Duration `envconfig:"PHRASE_TIMEOUT" split_words:"true" default:"8s"`
}

func (c *Config) applyDefaults() {
	if c.ExtractTimeout <= 0 {
		c.ExtractTimeout = 20 * time.Second
	}
	if c.HandleTimeout <= 0 {
		c.HandleTimeout = 10 * time.Second
	}
	if c.PhraseTimeout <= 0 {
		c.PhraseTimeout = 8 * time.Second
	}
}

type Dispatcher struct {
	extractor contractx.Extractor
	phraser   contractx.Phraser
	registry  *registryx.Registry

	graphRunner compose.Runnable[turnInput, contractx.OutboundReply]

	cfg Config
	log zerolog.Logger
}

type Option func(*Dispatcher)

// WithPhraser wires the model-backed clarification phraser. Without it the
// dispatcher falls back to templated clarifying questions.
func WithPhraser(p contractx.Phraser) Option {
	return func(d *Dispatcher) { d.phraser = p }
}

func WithLogger(l zerolog.Logger) Option {
	return func(d *Dispatcher) { d.log = l }
}

func New(extractor contractx.Extractor, reg *registryx.Registry, cfg Config, opts ...Option) (*Dispatcher, error) {
	if extractor == nil {
		return nil, errors.New("extractor is required")
	}
	if reg == nil {
		return nil, errors.New("action registry is required")
	}
	cfg.applyDefaults()

	d := &Dispatcher{
		extractor: extractor,
		registry:  reg,
		cfg:       cfg,
		log:       log.Logger,
	}
	for _, opt := range opts {
		opt(d)
	}

	graphRunner, err := d.compileTurnGraph(context.Background())
	if err != nil {
		return nil, err
	}
	d.graphRunner = graphRunner

	return d, nil
}

// HandleTurn runs one inbound message through the turn graph. The returned
// error means the graph itself misbehaved; user-facing failures come back as
// a normal reply.
func (d *Dispatcher) HandleTurn(ctx context.Context, turn contractx.ConversationTurn, caller contractx.IdentityBinding) (contractx.OutboundReply, error) {
	reply, err := d.graphRunner.Invoke(ctx, turnInput{Turn: turn, Caller: caller})
	if err != nil {
		return contractx.OutboundReply{}, fmt.Errorf("handle turn: %w", err)
	}
	return reply, nil
}
