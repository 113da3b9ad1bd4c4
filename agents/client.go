package agents

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrAgentNotConfigured means the requested agent has no active AgentConfig
// row. A configuration problem: fatal to the calling request, never retried.
var ErrAgentNotConfigured = errors.New("agent not configured or inactive")

// APIError is the uniform adapter failure: network errors, non-2xx responses,
// malformed payloads, and explicit error codes inside a 200 body all surface
// as one of these. Callers retry them with backoff.
type APIError struct {
	Brand  string
	Op     string
	Detail string
	Err    error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %s: %v", e.Brand, e.Op, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s %s: %s", e.Brand, e.Op, e.Detail)
}

func (e *APIError) Unwrap() error { return e.Err }

func apiErr(brand, op, detail string, err error) *APIError {
	return &APIError{Brand: brand, Op: op, Detail: detail, Err: err}
}

// Credentials is the sub-account created (or found) on the external agent.
type Credentials struct {
	Username string
	Password string
}

type GameProvider struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type Game struct {
	Code         string `json:"code"`
	Name         string `json:"name"`
	ProviderCode string `json:"provider_code"`
}

// BetRecord is one externally settled bet from an agent's log. ID is the
// stable external identifier the sync cursor advances over; batches arrive
// ordered non-decreasing by it.
type BetRecord struct {
	ID        int64
	Username  string
	GameCode  string
	BetAmount decimal.Decimal
	WinAmount decimal.Decimal
}

// Client is the capability contract every agent brand adapter fulfils.
// Register is idempotent: an "already exists" reply is success.
type Client interface {
	Brand() string
	Register(ctx context.Context, userID uint, phone string) (*Credentials, error)
	GetBalance(ctx context.Context, externalUsername string) (decimal.Decimal, error)
	GetAgentBalance(ctx context.Context) (decimal.Decimal, error)
	LaunchGame(ctx context.Context, externalUsername, providerCode, gameCode, lang string) (string, error)
	ListProviders(ctx context.Context) ([]GameProvider, error)
	ListGames(ctx context.Context, providerCode string) ([]Game, error)
	CheckStatus(ctx context.Context) error
	GetBetLog(ctx context.Context, cursor int64) ([]BetRecord, error)
}
