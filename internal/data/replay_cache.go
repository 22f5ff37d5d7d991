package data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"reelsync/encoding"
	"reelsync/internal/conf"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
	"github.com/yola1107/kratos/v2/log"
)

const replayKeyPrefix = "replay"

// cachedReplay is what the cache stores per recorded round.
type cachedReplay struct {
	RGS       string              `json:"rgs"`
	FetchedAt time.Time           `json:"fetched_at"`
	Payload   encoding.RawMessage `json:"payload"`
}

// ReplayCache keeps fetched replay payloads in redis so repeated opens of the
// same replay link never hit the rgs again.
type ReplayCache struct {
	rdb redis.UniversalClient
	ttl time.Duration
	log *log.Helper
}

// NewReplayCache builds the cache over the data redis client. A zero ttl
// keeps entries until redis evicts them.
func NewReplayCache(d *Data, c *conf.Data, logger log.Logger) *ReplayCache {
	var ttl time.Duration
	if c.Redis != nil {
		ttl = c.Redis.TTL.Std()
	}
	return &ReplayCache{rdb: d.rdb, ttl: ttl, log: log.NewHelper(log.With(logger, "module", "data/replay-cache"))}
}

func (c *ReplayCache) key(rgs, replayKey string) string {
	return fmt.Sprintf("%s:%s:%s", replayKeyPrefix, rgs, replayKey)
}

// Load returns the cached payload, false on a miss or when the cache is disabled.
func (c *ReplayCache) Load(ctx context.Context, rgs, replayKey string) ([]byte, bool) {
	if c.rdb == nil {
		return nil, false
	}
	v, err := c.rdb.Get(ctx, c.key(rgs, replayKey)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.WithContext(ctx).Errorf("load %s: %v", replayKey, err)
		}
		return nil, false
	}
	entry := new(cachedReplay)
	if err := jsoniter.UnmarshalFromString(v, entry); err != nil {
		c.log.WithContext(ctx).Errorf("decode %s: %v", replayKey, err)
		return nil, false
	}
	return entry.Payload, true
}

// Save stores a payload.
func (c *ReplayCache) Save(ctx context.Context, rgs, replayKey string, payload []byte) error {
	if c.rdb == nil {
		return nil
	}
	s, err := jsoniter.MarshalToString(cachedReplay{RGS: rgs, FetchedAt: time.Now().UTC(), Payload: payload})
	if err != nil {
		return err
	}
	if err := c.rdb.Set(ctx, c.key(rgs, replayKey), s, c.ttl).Err(); err != nil {
		return fmt.Errorf("save %s: %w", replayKey, err)
	}
	return nil
}
