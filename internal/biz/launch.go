package biz

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// LaunchParams are the query parameters a game is opened with.
type LaunchParams struct {
	Replay    bool
	SessionID string
	RGSURL    string
	Lang      string
	Device    string
	Social    bool

	// replay only
	Game     string
	Version  string
	Mode     string
	Event    string
	Currency string
	Amount   int64
}

// ReplayKey identifies a recorded round.
func (p LaunchParams) ReplayKey() string {
	return fmt.Sprintf("%s:%s:%s:%s", p.Game, p.Version, p.Mode, p.Event)
}

// ParseLaunch reads a launch query string. Missing required fields fail fast.
func ParseLaunch(query, defaultRGS string) (LaunchParams, error) {
	q, err := url.ParseQuery(strings.TrimPrefix(query, "?"))
	if err != nil {
		return LaunchParams{}, fmt.Errorf("parse launch query: %w", err)
	}
	p := LaunchParams{
		Replay: q.Get("replay") == "true",
		Lang:   valueOr(q.Get("lang"), "en"),
		Device: valueOr(q.Get("device"), "desktop"),
		Social: q.Get("social") == "true",
	}
	if !p.Replay {
		p.SessionID = q.Get("sessionID")
		if p.SessionID == "" {
			return LaunchParams{}, ErrNoSession
		}
		p.RGSURL = normalizeURL(valueOr(q.Get("rgs_url"), defaultRGS))
		return p, nil
	}

	p.Game, p.Version, p.Mode, p.Event = q.Get("game"), q.Get("version"), q.Get("mode"), q.Get("event")
	var missing []string
	for _, f := range []struct{ name, v string }{
		{"game", p.Game}, {"version", p.Version}, {"mode", p.Mode}, {"event", p.Event},
	} {
		if f.v == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return LaunchParams{}, ErrReplayParams.WithCause(fmt.Errorf("missing %s", strings.Join(missing, ", ")))
	}
	p.RGSURL = normalizeURL(valueOr(q.Get("rgs_url"), defaultRGS))
	p.Currency = strings.ToUpper(valueOr(q.Get("currency"), "USD"))
	p.Amount = MicroUnit
	if s := q.Get("amount"); s != "" {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil || n <= 0 {
			return LaunchParams{}, ErrReplayParams.WithCause(fmt.Errorf("bad amount %q", s))
		}
		p.Amount = n
	}
	return p, nil
}

func normalizeURL(u string) string {
	u = strings.TrimRight(u, "/")
	if u == "" || strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") {
		return u
	}
	return "https://" + u
}

func valueOr(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
