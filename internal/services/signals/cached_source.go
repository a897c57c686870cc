package signals

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/YoByron/trading-sub013/internal/domain/models"
	domrepo "github.com/YoByron/trading-sub013/internal/domain/repository"
	icache "github.com/YoByron/trading-sub013/internal/service/cache"
	applogger "github.com/YoByron/trading-sub013/pkg/logger"
)

// CachedSource wraps a SignalSource with a short-lived byte cache. The key
// includes the as-of second, so two gates sharing a source within one tick
// hit the cache while the next tick always refetches.
type CachedSource struct {
	inner domrepo.SignalSource
	cache icache.BytesCache
	ttl   time.Duration
	l     *applogger.Logger
}

func NewCachedSource(inner domrepo.SignalSource, c icache.BytesCache, ttl time.Duration) *CachedSource {
	return &CachedSource{inner: inner, cache: c, ttl: ttl}
}

// SetLogger injects a structured logger.
func (c *CachedSource) SetLogger(l *applogger.Logger) { c.l = l }

func (c *CachedSource) Name() string { return c.inner.Name() }

func (c *CachedSource) GetSignal(ctx context.Context, ticker string, asOf time.Time) (models.Signal, error) {
	key := "signal:" + c.inner.Name() + ":" + ticker + ":" + strconv.FormatInt(asOf.Unix(), 10)
	if c.cache != nil {
		if b, ok, err := c.cache.GetBytes(key); err != nil {
			if c.l != nil {
				c.l.Warn("signal cache_get_error", applogger.String("key", key), applogger.Error(err))
			}
		} else if ok {
			var sig models.Signal
			if err := json.Unmarshal(b, &sig); err == nil {
				if c.l != nil {
					c.l.Debug("signal cache_hit", applogger.String("key", key))
				}
				return sig, nil
			}
		}
	}

	sig, err := c.inner.GetSignal(ctx, ticker, asOf)
	if err != nil {
		return models.Signal{}, err
	}
	if c.cache != nil {
		if b, err := json.Marshal(sig); err == nil {
			if err := c.cache.SetBytes(key, b, c.ttl); err != nil && c.l != nil {
				c.l.Warn("signal cache_set_error", applogger.String("key", key), applogger.Error(err))
			}
		}
	}
	return sig, nil
}

var _ domrepo.SignalSource = (*CachedSource)(nil)
