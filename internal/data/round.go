package data

import (
	"context"
	"fmt"
	"sync"

	"reelsync/internal/biz"
	"reelsync/internal/conf"

	"github.com/shopspring/decimal"
	"github.com/yola1107/kratos/v2/log"
)

// roundClient normalizes live and replay rounds into one result shape.
type roundClient struct {
	rgs    *RGSClient
	cache  *ReplayCache
	clock  biz.Clock
	timing *conf.Timing
	launch biz.LaunchParams
	log    *log.Helper

	mu     sync.Mutex
	replay []byte // payload of the recorded round, fetched once
}

// NewRoundClient .
func NewRoundClient(rgs *RGSClient, cache *ReplayCache, clock biz.Clock, c *conf.Game, launch biz.LaunchParams, logger log.Logger) biz.RoundRepo {
	return &roundClient{
		rgs:    rgs,
		cache:  cache,
		clock:  clock,
		timing: c.Timing,
		launch: launch,
		log:    log.NewHelper(log.With(logger, "module", "data/round-client")),
	}
}

func (c *roundClient) IsReplay() bool { return c.launch.Replay }

func (c *roundClient) Authenticate(ctx context.Context) (*biz.Session, error) {
	if c.launch.Replay {
		r, err := c.recorded(ctx)
		if err != nil {
			return nil, err
		}
		stake := c.launch.Amount
		return &biz.Session{
			Balance: c.replayBalance(r),
			Config:  biz.BetConfig{BetLevels: []int64{stake}, DefaultBetLevel: stake},
		}, nil
	}
	reply, err := c.rgs.Authenticate(ctx, c.launch.SessionID)
	if err != nil {
		return nil, err
	}
	s := &biz.Session{Balance: reply.Balance, Config: reply.Config}
	if reply.Round != nil && reply.Round.Active {
		s.Round = toResult(reply.Balance, reply.Round)
	}
	c.log.WithContext(ctx).Infow("msg", "session opened",
		"balance", reply.Balance.Amount,
		"currency", reply.Balance.Currency,
		"levels", len(reply.Config.BetLevels),
		"active_round", s.Round != nil)
	return s, nil
}

// Play checks funds, sends the round and pads the wait to the minimum round duration.
func (c *roundClient) Play(ctx context.Context, req *biz.RoundRequest) (*biz.RoundResult, error) {
	if req.Available < req.Cost() {
		return nil, biz.ErrInsufficientFunds
	}
	if c.launch.Replay {
		return c.Replay(ctx, req.Turbo)
	}
	req.SessionID = c.launch.SessionID

	start := c.clock.Now()
	reply, err := c.rgs.Play(ctx, req)
	if err != nil {
		return nil, err
	}
	if pad := c.timing.MinRound.Pick(req.Turbo) - c.clock.Now().Sub(start); pad > 0 {
		if err := c.clock.Sleep(ctx, pad); err != nil {
			return nil, err
		}
	}
	return toResult(reply.Balance, reply.Round), nil
}

func (c *roundClient) EndRound(ctx context.Context) (biz.Money, error) {
	if c.launch.Replay {
		return biz.Money{}, biz.ErrReplayOnly
	}
	reply, err := c.rgs.EndRound(ctx, c.launch.SessionID)
	if err != nil {
		return biz.Money{}, err
	}
	return reply.Balance, nil
}

// Replay reshapes the recorded round. It makes no network call once the payload is held.
func (c *roundClient) Replay(ctx context.Context, turbo bool) (*biz.RoundResult, error) {
	if !c.launch.Replay {
		return nil, biz.ErrReplayParams.WithCause(fmt.Errorf("replay requested without replay launch parameters"))
	}
	r, err := c.recorded(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.clock.Sleep(ctx, c.timing.ReplayLead.Pick(turbo)); err != nil {
		return nil, err
	}
	stake := decimal.NewFromInt(c.launch.Amount)
	return &biz.RoundResult{
		Balance:          c.replayBalance(r),
		Payout:           r.PayoutMultiplier.Mul(stake).IntPart(),
		PayoutMultiplier: r.PayoutMultiplier.InexactFloat64(),
		Active:           false,
		Events:           r.State,
		Replay:           true,
	}, nil
}

func (c *roundClient) replayBalance(r *replayReply) biz.Money {
	cost := r.CostMultiplier
	if cost.IsZero() {
		cost = decimal.NewFromInt(1)
	}
	return biz.Money{
		Amount:   cost.Mul(decimal.NewFromInt(c.launch.Amount)).IntPart(),
		Currency: c.launch.Currency,
	}
}

// recorded decodes the replay payload from memory, then redis, then the rgs.
func (c *roundClient) recorded(ctx context.Context) (*replayReply, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.replay == nil {
		key := c.launch.ReplayKey()
		payload, ok := c.cache.Load(ctx, c.launch.RGSURL, key)
		if !ok {
			var err error
			if payload, err = c.rgs.FetchReplay(ctx, c.launch); err != nil {
				return nil, err
			}
			if err := c.cache.Save(ctx, c.launch.RGSURL, key, payload); err != nil {
				c.log.WithContext(ctx).Warnf("cache replay %s: %v", key, err)
			}
		}
		c.log.WithContext(ctx).Infow("msg", "replay loaded", "key", key, "cached", ok, "bytes", len(payload))
		c.replay = payload
	}
	return decodeReplay(c.replay)
}

func toResult(balance biz.Money, r *roundReply) *biz.RoundResult {
	return &biz.RoundResult{
		Balance:          balance,
		Payout:           r.Payout,
		PayoutMultiplier: r.PayoutMultiplier,
		Active:           r.Active,
		Events:           r.State,
	}
}
