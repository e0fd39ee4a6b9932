package ceremony

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// State is a step of a registration or authentication ceremony.
type State int

const (
	StateIdle State = iota
	StateOptionsRequested
	StateOptionsReceived
	StateCredentialRequested
	StateCredentialObtained
	StateResultSubmitted
	StateCompleted
	StateFailed
)

var stateNames = map[State]string{
	StateIdle:                "idle",
	StateOptionsRequested:    "options_requested",
	StateOptionsReceived:     "options_received",
	StateCredentialRequested: "credential_requested",
	StateCredentialObtained:  "credential_obtained",
	StateResultSubmitted:     "result_submitted",
	StateCompleted:           "completed",
	StateFailed:              "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Terminal reports whether no further transitions happen without a Reset.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Kind distinguishes the two ceremonies.
type Kind string

const (
	KindRegistration   Kind = "registration"
	KindAuthentication Kind = "authentication"
)

// Config supplies the collaborators of a ceremony.
type Config struct {
	Client   *Client
	Manager  CredentialManager
	Username string
	Logger   *zap.Logger
}

// Ceremony drives one registration or authentication attempt from Idle to
// Completed or Failed. Nothing is retried; after a failure the caller resets
// and runs again. A Ceremony is not safe for concurrent use.
type Ceremony struct {
	kind     Kind
	client   *Client
	manager  CredentialManager
	username string
	logger   *zap.Logger
	state    State
	err      error
}

// NewRegistration prepares a registration ceremony.
func NewRegistration(cfg Config) (*Ceremony, error) {
	return newCeremony(KindRegistration, cfg)
}

// NewAuthentication prepares an authentication ceremony.
func NewAuthentication(cfg Config) (*Ceremony, error) {
	return newCeremony(KindAuthentication, cfg)
}

func newCeremony(kind Kind, cfg Config) (*Ceremony, error) {
	if cfg.Client == nil {
		return nil, errMissingClient
	}
	if cfg.Manager == nil {
		return nil, errMissingManager
	}
	username := strings.TrimSpace(cfg.Username)
	if username == "" {
		return nil, ErrMissingUsername
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ceremony{
		kind:     kind,
		client:   cfg.Client,
		manager:  cfg.Manager,
		username: username,
		logger:   logger,
		state:    StateIdle,
	}, nil
}

// Kind returns which ceremony this is.
func (c *Ceremony) Kind() Kind {
	return c.kind
}

// State returns the current step.
func (c *Ceremony) State() State {
	return c.state
}

// Err returns the failure that moved the ceremony to Failed, if any.
func (c *Ceremony) Err() error {
	return c.err
}

// Reset returns a finished ceremony to Idle.
func (c *Ceremony) Reset() error {
	if !c.state.Terminal() {
		return ErrNotFinished
	}
	c.transition(StateIdle)
	c.err = nil
	return nil
}

// Run executes every step of the ceremony. It must start from Idle.
func (c *Ceremony) Run(ctx context.Context) error {
	if c.state != StateIdle {
		return ErrNotIdle
	}
	var err error
	switch c.kind {
	case KindRegistration:
		err = c.runRegistration(ctx)
	default:
		err = c.runAuthentication(ctx)
	}
	if err != nil {
		return c.fail(err)
	}
	c.transition(StateCompleted)
	c.logger.Info("ceremony completed", zap.String("ceremony", string(c.kind)), zap.String("username", c.username))
	return nil
}

func (c *Ceremony) runRegistration(ctx context.Context) error {
	c.transition(StateOptionsRequested)
	options, err := c.client.BeginRegistration(ctx, c.username)
	if err != nil {
		return err
	}
	c.transition(StateOptionsReceived)

	c.transition(StateCredentialRequested)
	credential, err := CreateCredential(ctx, c.manager, options)
	if err != nil {
		return err
	}
	c.transition(StateCredentialObtained)

	if err := c.client.FinishRegistration(ctx, c.username, credential); err != nil {
		return err
	}
	c.transition(StateResultSubmitted)
	return nil
}

func (c *Ceremony) runAuthentication(ctx context.Context) error {
	c.transition(StateOptionsRequested)
	options, err := c.client.BeginAuthentication(ctx, c.username)
	if err != nil {
		return err
	}
	c.transition(StateOptionsReceived)

	c.transition(StateCredentialRequested)
	assertion, err := GetAssertion(ctx, c.manager, options)
	if err != nil {
		return err
	}
	c.transition(StateCredentialObtained)

	if err := c.client.FinishAuthentication(ctx, c.username, assertion); err != nil {
		return err
	}
	c.transition(StateResultSubmitted)
	return nil
}

func (c *Ceremony) transition(next State) {
	c.logger.Debug("ceremony transition",
		zap.String("ceremony", string(c.kind)),
		zap.String("username", c.username),
		zap.Stringer("from", c.state),
		zap.Stringer("to", next))
	c.state = next
}

func (c *Ceremony) fail(err error) error {
	c.logger.Warn("ceremony failed",
		zap.String("ceremony", string(c.kind)),
		zap.String("username", c.username),
		zap.Stringer("state", c.state),
		zap.Error(err))
	c.transition(StateFailed)
	c.err = err
	return err
}

// Register runs a fresh registration ceremony for username.
func Register(ctx context.Context, client *Client, manager CredentialManager, username string, logger *zap.Logger) error {
	ceremony, err := NewRegistration(Config{Client: client, Manager: manager, Username: username, Logger: logger})
	if err != nil {
		return err
	}
	return ceremony.Run(ctx)
}

// Login runs a fresh authentication ceremony for username.
func Login(ctx context.Context, client *Client, manager CredentialManager, username string, logger *zap.Logger) error {
	ceremony, err := NewAuthentication(Config{Client: client, Manager: manager, Username: username, Logger: logger})
	if err != nil {
		return err
	}
	return ceremony.Run(ctx)
}
