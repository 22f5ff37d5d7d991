package main

import (
	"context"
	"errors"

	"reelsync/encoding"
	"reelsync/internal/biz"
	"reelsync/internal/conf"
	"reelsync/internal/server"
	"reelsync/internal/service"

	"github.com/yola1107/kratos/v2"
	"github.com/yola1107/kratos/v2/log"
	"github.com/yola1107/kratos/v2/transport/http"
)

// session runs the game inside the kratos app lifecycle.
type session struct {
	game   *service.Game
	hub    *server.Hub
	conf   *conf.Game
	rounds int
	log    *log.Helper

	app *kratos.App
	err error // headless run result, returned by Run
}

func newApp(logger log.Logger, game *service.Game, hub *server.Hub, hs *http.Server, c *conf.Game) *kratos.App {
	s := &session{
		game:   game,
		hub:    hub,
		conf:   c,
		rounds: flagrounds,
		log:    log.NewHelper(log.With(logger, "module", "app")),
	}
	opts := []kratos.Option{
		kratos.ID(id),
		kratos.Name(Name),
		kratos.Version(Version),
		kratos.Metadata(map[string]string{}),
		kratos.Logger(logger),
		kratos.AfterStart(s.start),
		kratos.BeforeStop(s.stop),
		kratos.AfterStop(func(context.Context) error { return s.err }),
	}
	if s.websocket() {
		opts = append(opts, kratos.Server(hs))
	}
	s.app = kratos.New(opts...)
	return s.app
}

func (s *session) websocket() bool {
	return s.conf.Renderer == "websocket" || s.conf.Renderer == "ws"
}

// start opens the session. With the websocket renderer viewers drive the game
// until the app stops; otherwise the rounds play headless and the app stops.
func (s *session) start(ctx context.Context) error {
	if s.websocket() {
		s.hub.Attach(ctx, s.game)
		s.game.Reels().SetObserver(s.hub)
		if err := s.game.Open(ctx); err != nil {
			s.log.Errorf("open session: %v", err)
		}
		return nil
	}
	go func() {
		s.err = s.headless(ctx)
		if err := s.app.Stop(); err != nil {
			s.log.Errorf("stop app: %v", err)
		}
	}()
	return nil
}

func (s *session) headless(ctx context.Context) error {
	if err := s.game.Open(ctx); err != nil {
		return err
	}
	for i := 0; i < s.rounds; i++ {
		if err := s.game.Spin(ctx, biz.RoundBase); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		s.log.Infow("msg", "round done", "round", i+1, "journal", encoding.ToJson(s.game.Journal()))
	}
	return nil
}

func (s *session) stop(context.Context) error {
	s.game.StopAutoplay()
	return nil
}
