package biz

import (
	"context"
	"fmt"
	"strconv"

	"github.com/yola1107/kratos/v2/errors"
)

const (
	ReasonRoundInFlight     = "ROUND_IN_FLIGHT"
	ReasonInsufficientFunds = "INSUFFICIENT_FUNDS"
	ReasonNetwork           = "NETWORK"
	ReasonServer            = "SERVER"
	ReasonReplayParams      = "REPLAY_PARAMS"
	ReasonNoSession         = "NO_SESSION"
	ReasonReplayOnly        = "REPLAY_ONLY"
)

var (
	ErrRoundInFlight     = errors.Conflict(ReasonRoundInFlight, "round already in flight")
	ErrInsufficientFunds = errors.BadRequest(ReasonInsufficientFunds, "insufficient funds")
	ErrNetwork           = errors.ServiceUnavailable(ReasonNetwork, "network error")
	ErrServer            = errors.InternalServer(ReasonServer, "server error")
	ErrReplayParams      = errors.BadRequest(ReasonReplayParams, "invalid replay parameters")
	ErrNoSession         = errors.Unauthorized(ReasonNoSession, "no session id")
	ErrReplayOnly        = errors.Forbidden(ReasonReplayOnly, "not available in replay mode")
)

// ServerError is a non-success or malformed RGS response. It matches
// ErrServer; the http status and the rgs error code ride in the metadata.
func ServerError(status int, code, msg string) *errors.Error {
	return ErrServer.WithMetadata(map[string]string{
		"status": strconv.Itoa(status),
		"code":   code,
	}).WithCause(fmt.Errorf("rgs status %d %s: %s", status, code, msg))
}

// RGSCode returns the rgs error code carried by a ServerError.
func RGSCode(err error) string {
	if se := errors.FromError(err); se != nil {
		return se.Metadata["code"]
	}
	return ""
}

// RoundMode is the kind of round requested.
type RoundMode string

const (
	RoundBase     RoundMode = "BASE"
	RoundBonusBuy RoundMode = "BONUS"
)

// BonusBuyFactor is the bonus buy cost in stakes.
const BonusBuyFactor = 100

// RoundRequest is immutable once sent.
type RoundRequest struct {
	SessionID string    `json:"sessionID"`
	Amount    int64     `json:"amount"` // stake in minor units
	Mode      RoundMode `json:"mode"`

	Available int64 `json:"-"` // balance at send time
	Turbo     bool  `json:"-"`
}

// Cost is what the round debits.
func (r *RoundRequest) Cost() int64 {
	if r.Mode == RoundBonusBuy {
		return r.Amount * BonusBuyFactor
	}
	return r.Amount
}

// RoundResult is handed to the classifier and never mutated.
type RoundResult struct {
	Balance          Money
	Payout           int64
	PayoutMultiplier float64
	Active           bool
	Events           []Event
	Replay           bool
}

// BetConfig is the stake configuration returned when a session opens.
type BetConfig struct {
	BetLevels       []int64 `json:"betLevels"`
	DefaultBetLevel int64   `json:"defaultBetLevel"`
	MinBet          int64   `json:"minBet"`
}

// DefaultStake applies defaultBetLevel, then minBet, then the first level.
func (c BetConfig) DefaultStake() int64 {
	switch {
	case c.DefaultBetLevel > 0:
		return c.DefaultBetLevel
	case c.MinBet > 0:
		return c.MinBet
	case len(c.BetLevels) > 0:
		return c.BetLevels[0]
	default:
		return MicroUnit
	}
}

// Allows reports whether a stake is one of the offered levels.
func (c BetConfig) Allows(stake int64) bool {
	if len(c.BetLevels) == 0 {
		return stake > 0
	}
	for _, l := range c.BetLevels {
		if l == stake {
			return true
		}
	}
	return false
}

// Session is the opened player session.
type Session struct {
	Balance Money
	Config  BetConfig
	Round   *RoundResult // a round left active by a previous session
}

// RoundRepo is the round client seen by the sequencer.
type RoundRepo interface {
	Authenticate(ctx context.Context) (*Session, error)
	Play(ctx context.Context, req *RoundRequest) (*RoundResult, error)
	EndRound(ctx context.Context) (Money, error)
	Replay(ctx context.Context, turbo bool) (*RoundResult, error)
	IsReplay() bool
}
