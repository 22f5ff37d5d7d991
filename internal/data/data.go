package data

import (
	"context"
	"net/http"

	"reelsync/internal/conf"

	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
	kredis "github.com/yola1107/kratos/v2/library/db/redis"
	"github.com/yola1107/kratos/v2/log"
)

// ProviderSet is data providers.
var ProviderSet = wire.NewSet(NewData, NewRedis, NewRGSClient, NewReplayCache, NewRoundClient)

// Data holds the shared transports.
type Data struct {
	hc  *http.Client
	rdb redis.UniversalClient // nil when no redis is configured
}

// NewData .
func NewData(c *conf.Data, logger log.Logger, rdb redis.UniversalClient) (*Data, func(), error) {
	d := &Data{hc: &http.Client{Timeout: c.RGS.Timeout.Std()}, rdb: rdb}
	cleanup := func() {
		log.NewHelper(logger).Info("closing the data resources")
		d.hc.CloseIdleConnections()
	}
	return d, cleanup, nil
}

// NewRedis returns nil when redis is not configured or unreachable; replay
// then still works from the rgs, just without the shared cache.
func NewRedis(c *conf.Data, logger log.Logger) (redis.UniversalClient, func(), error) {
	if c.Redis == nil || c.Redis.Addr == "" {
		return nil, func() {}, nil
	}
	rdb := kredis.NewClient(
		kredis.WithAddress(c.Redis.Addr),
		kredis.WithPassword(c.Redis.Password),
		kredis.WithDB(c.Redis.DB),
	)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.NewHelper(logger).Warnw("msg", "redis unavailable, replay cache disabled", "addr", c.Redis.Addr, "err", err)
		_ = rdb.Close()
		return nil, func() {}, nil
	}
	return rdb, func() { _ = rdb.Close() }, nil
}
