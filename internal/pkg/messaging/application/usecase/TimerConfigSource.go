package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	cacheport "github.com/profullstack/qryptchat-web-sub003/internal/infrastructure/cache/port"
	messaging "github.com/profullstack/qryptchat-web-sub003/internal/pkg/messaging/domain"
	repository "github.com/profullstack/qryptchat-web-sub003/internal/pkg/messaging/persistence/repository/port"
)

const timerConfigTTL = 5 * time.Minute

// TimerConfigSource reads per-participant timer configs through the cache.
// Configs sit on the hot path of every send and mark-read, so misses fall back
// to the repository and populate the cache; writes invalidate.
//
// A nil cache degrades to repository reads only.
type TimerConfigSource struct {
	Repo  repository.DeliveryRepository
	Cache cacheport.Cache
}

func NewTimerConfigSource(repo repository.DeliveryRepository, cache cacheport.Cache) *TimerConfigSource {
	return &TimerConfigSource{Repo: repo, Cache: cache}
}

func timerConfigKey(conversationID, userID string) string {
	return fmt.Sprintf("timer:%s:%s", conversationID, userID)
}

// Get returns the participant's timer config, nil when none is stored
// (timer disabled).
func (s *TimerConfigSource) Get(ctx context.Context, conversationID, userID string) (*messaging.TimerConfig, error) {
	key := timerConfigKey(conversationID, userID)

	if s.Cache != nil {
		if raw, err := s.Cache.Get(ctx, key); err == nil {
			var cfg *messaging.TimerConfig
			if json.Unmarshal([]byte(raw), &cfg) == nil {
				return cfg, nil
			}
		}
		// Misses and transport errors both fall through to the repository;
		// the cache is an optimization, not a dependency.
	}

	cfg, err := s.Repo.GetTimerConfig(ctx, conversationID, userID)
	if err != nil {
		return nil, err
	}

	if s.Cache != nil {
		if raw, err := json.Marshal(cfg); err == nil {
			_ = s.Cache.Set(ctx, key, string(raw), timerConfigTTL)
		}
	}
	return cfg, nil
}

// Invalidate drops the cached entry after a config write.
func (s *TimerConfigSource) Invalidate(ctx context.Context, conversationID, userID string) {
	if s.Cache != nil {
		_, _ = s.Cache.Del(ctx, timerConfigKey(conversationID, userID))
	}
}
