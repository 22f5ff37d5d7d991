package server

import (
	nethttp "net/http"

	"reelsync/internal/biz"
	"reelsync/internal/conf"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/wire"
	"github.com/yola1107/kratos/v2/log"
	"github.com/yola1107/kratos/v2/transport/http"
)

// ProviderSet is server providers.
var ProviderSet = wire.NewSet(NewHub, NewLogRenderer, NewPresenter, NewRenderer, NewAudio, NewHTTPServer)

// Presenter is a renderer with sound.
type Presenter interface {
	biz.Renderer
	biz.Audio
}

// NewPresenter picks the renderer named in the config.
func NewPresenter(c *conf.Game, hub *Hub, lr *LogRenderer, logger log.Logger) Presenter {
	switch c.Renderer {
	case "websocket", "ws":
		return hub
	case "log", "":
		return lr
	default:
		log.NewHelper(logger).Warnf("unknown renderer %q, using log", c.Renderer)
		return lr
	}
}

func NewRenderer(p Presenter) biz.Renderer { return p }
func NewAudio(p Presenter) biz.Audio       { return p }

// NewHTTPServer new an HTTP server serving the websocket renderer on /ws.
func NewHTTPServer(c *conf.Server, hub *Hub, logger log.Logger) *http.Server {
	var opts = []http.ServerOption{
		http.Filter(middleware.Recoverer, middleware.RequestID),
		http.Logger(logger),
	}
	if c.Network != "" {
		opts = append(opts, http.Network(c.Network))
	}
	if c.Addr != "" {
		opts = append(opts, http.Address(c.Addr))
	}
	if c.Timeout > 0 {
		opts = append(opts, http.Timeout(c.Timeout.Std()))
	}
	srv := http.NewServer(opts...)
	srv.HandleFunc("/ws", hub.ServeHTTP)
	srv.HandleFunc("/healthz", func(w nethttp.ResponseWriter, _ *nethttp.Request) {
		writeJSON(w, nethttp.StatusOK, map[string]any{"ok": true, "viewers": hub.Viewers()})
	})
	return srv
}
