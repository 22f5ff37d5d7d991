package biz

import (
	"errors"
	"testing"
)

func TestParseLaunchNormal(t *testing.T) {
	p, err := ParseLaunch("?sessionID=abc&rgs_url=rgs.example.com/&lang=de", "https://default.example")
	if err != nil {
		t.Fatal(err)
	}
	if p.Replay || p.SessionID != "abc" || p.RGSURL != "https://rgs.example.com" || p.Lang != "de" {
		t.Errorf("params = %+v", p)
	}

	p, err = ParseLaunch("sessionID=abc", "https://default.example")
	if err != nil || p.RGSURL != "https://default.example" {
		t.Errorf("default rgs: %+v %v", p, err)
	}

	if _, err := ParseLaunch("lang=en", "x"); !errors.Is(err, ErrNoSession) {
		t.Errorf("missing session err = %v", err)
	}
}

func TestParseLaunchReplay(t *testing.T) {
	p, err := ParseLaunch("replay=true&game=g1&version=2&mode=base&event=77&rgs_url=http://localhost:9000&currency=eur", "")
	if err != nil {
		t.Fatal(err)
	}
	if !p.Replay || p.ReplayKey() != "g1:2:base:77" {
		t.Errorf("params = %+v", p)
	}
	if p.Currency != "EUR" || p.Amount != MicroUnit || p.RGSURL != "http://localhost:9000" {
		t.Errorf("defaults = %+v", p)
	}

	_, err = ParseLaunch("replay=true&game=g1&mode=base", "")
	if !errors.Is(err, ErrReplayParams) {
		t.Fatalf("err = %v", err)
	}
	if cause := errors.Unwrap(err); cause == nil || cause.Error() != "missing version, event" {
		t.Errorf("cause = %v", cause)
	}

	if _, err := ParseLaunch("replay=true&game=a&version=b&mode=c&event=d&amount=-5", ""); !errors.Is(err, ErrReplayParams) {
		t.Errorf("bad amount err = %v", err)
	}
}
