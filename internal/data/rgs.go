package data

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"reelsync/encoding"
	"reelsync/internal/biz"

	"github.com/shopspring/decimal"
	"github.com/yola1107/kratos/v2/log"
)

const (
	maxBody       = 4 << 20
	codeMalformed = "MALFORMED"
)

// RGSClient speaks the wallet and replay endpoints of the remote game server.
type RGSClient struct {
	base string
	hc   *http.Client
	log  *log.Helper
}

type roundReply struct {
	Active           bool       `json:"active"`
	Payout           int64      `json:"payout"`
	PayoutMultiplier float64    `json:"payoutMultiplier"`
	State            biz.Events `json:"state"`
}

type playReply struct {
	Balance biz.Money   `json:"balance"`
	Round   *roundReply `json:"round"`
}

type authenticateReply struct {
	Balance biz.Money     `json:"balance"`
	Config  biz.BetConfig `json:"config"`
	Round   *roundReply   `json:"round"`
}

type endRoundReply struct {
	Balance biz.Money `json:"balance"`
}

type replayReply struct {
	PayoutMultiplier decimal.Decimal `json:"payoutMultiplier"`
	CostMultiplier   decimal.Decimal `json:"costMultiplier"`
	State            biz.Events      `json:"state"`
}

type sessionRequest struct {
	SessionID string `json:"sessionID"`
}

// NewRGSClient .
func NewRGSClient(d *Data, launch biz.LaunchParams, logger log.Logger) *RGSClient {
	return &RGSClient{
		base: strings.TrimRight(launch.RGSURL, "/"),
		hc:   d.hc,
		log:  log.NewHelper(log.With(logger, "module", "data/rgs")),
	}
}

func (c *RGSClient) Authenticate(ctx context.Context, sessionID string) (*authenticateReply, error) {
	out := new(authenticateReply)
	if err := c.do(ctx, http.MethodPost, "/wallet/authenticate", sessionRequest{SessionID: sessionID}, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *RGSClient) Play(ctx context.Context, req *biz.RoundRequest) (*playReply, error) {
	out := new(playReply)
	if err := c.do(ctx, http.MethodPost, "/wallet/play", req, out); err != nil {
		return nil, err
	}
	if out.Round == nil {
		return nil, biz.ServerError(http.StatusBadGateway, codeMalformed, "play reply has no round")
	}
	return out, nil
}

func (c *RGSClient) EndRound(ctx context.Context, sessionID string) (*endRoundReply, error) {
	out := new(endRoundReply)
	if err := c.do(ctx, http.MethodPost, "/wallet/end-round", sessionRequest{SessionID: sessionID}, out); err != nil {
		return nil, err
	}
	return out, nil
}

// FetchReplay returns the raw replay payload so it can be cached as received.
func (c *RGSClient) FetchReplay(ctx context.Context, p biz.LaunchParams) ([]byte, error) {
	path := fmt.Sprintf("/bet/replay/%s/%s/%s/%s",
		url.PathEscape(p.Game), url.PathEscape(p.Version), url.PathEscape(p.Mode), url.PathEscape(p.Event))
	body, err := c.send(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	if _, err := decodeReplay(body); err != nil {
		return nil, err
	}
	return body, nil
}

func decodeReplay(body []byte) (*replayReply, error) {
	out := new(replayReply)
	if err := encoding.Unmarshal(body, out); err != nil {
		return nil, biz.ServerError(http.StatusBadGateway, codeMalformed, err.Error())
	}
	return out, nil
}

func (c *RGSClient) do(ctx context.Context, method, path string, in, out any) error {
	body, err := c.send(ctx, method, path, in)
	if err != nil {
		return err
	}
	if err := encoding.Unmarshal(body, out); err != nil {
		c.log.WithContext(ctx).Errorf("malformed reply %s: %v", path, err)
		return biz.ServerError(http.StatusBadGateway, codeMalformed, err.Error())
	}
	return nil
}

func (c *RGSClient) send(ctx context.Context, method, path string, in any) ([]byte, error) {
	var reader io.Reader
	if in != nil {
		b, err := encoding.Marshal(in)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return nil, err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, biz.ErrNetwork.WithCause(fmt.Errorf("%s %s: %w", method, path, err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, biz.ErrNetwork.WithCause(fmt.Errorf("read %s: %w", path, err))
	}
	if resp.StatusCode/100 != 2 {
		var e struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		_ = encoding.Unmarshal(body, &e)
		if e.Message == "" {
			e.Message = strings.TrimSpace(string(body))
		}
		c.log.WithContext(ctx).Warnw("msg", "rgs rejected request", "path", path, "status", resp.StatusCode, "code", e.Error)
		return nil, biz.ServerError(resp.StatusCode, e.Error, e.Message)
	}
	return body, nil
}
