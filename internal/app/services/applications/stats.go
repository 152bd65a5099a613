package applications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/hirewire/pipeline/internal/app/domain/application"
	"github.com/hirewire/pipeline/internal/app/storage"
)

const (
	statsMonths   = 12
	statsCacheTTL = 30 * time.Second
)

// MonthlyCount is one month of submissions, most recent first in the slice.
type MonthlyCount struct {
	Month string `json:"month"` // YYYY-MM
	Count int64  `json:"count"`
}

// Statistics is the aggregate view over a scope of applications. Every known
// status appears in ByStatus even when its count is zero.
type Statistics struct {
	Total    int64                        `json:"total"`
	Active   int64                        `json:"active"`
	ByStatus map[application.Status]int64 `json:"by_status"`
	Monthly  []MonthlyCount               `json:"monthly"`
}

// AttachCache wires an optional Redis client for short-lived statistics
// caching. Without it every call hits the store.
func (s *Service) AttachCache(client *redis.Client) {
	s.cache = client
}

// Statistics aggregates counts for the given scope. The scope must belong to
// the actor under the same rules as List.
func (s *Service) Statistics(ctx context.Context, actorID string, filter storage.ApplicationFilter) (Statistics, error) {
	if err := s.authorizeFilter(ctx, actorID, filter); err != nil {
		return Statistics{}, err
	}

	key := statsCacheKey(filter)
	if cached, ok := s.cachedStats(ctx, key); ok {
		return cached, nil
	}

	counts, err := s.store.CountByStatus(ctx, filter)
	if err != nil {
		return Statistics{}, fmt.Errorf("count by status: %w", err)
	}

	stats := Statistics{ByStatus: make(map[application.Status]int64, len(application.All))}
	for _, status := range application.All {
		n := counts[status]
		stats.ByStatus[status] = n
		stats.Total += n
		if !status.Terminal() {
			stats.Active += n
		}
	}

	buckets, err := s.store.MonthlySubmissions(ctx, filter, statsMonths)
	if err != nil {
		return Statistics{}, fmt.Errorf("monthly submissions: %w", err)
	}
	stats.Monthly = make([]MonthlyCount, 0, len(buckets))
	for _, b := range buckets {
		stats.Monthly = append(stats.Monthly, MonthlyCount{
			Month: b.Month.UTC().Format("2006-01"),
			Count: b.Count,
		})
	}

	s.storeStats(ctx, key, stats)
	return stats, nil
}

func statsCacheKey(filter storage.ApplicationFilter) string {
	return fmt.Sprintf("pipeline:stats:a=%s:j=%s:c=%s", filter.ApplicantID, filter.JobID, filter.CompanyID)
}

func (s *Service) cachedStats(ctx context.Context, key string) (Statistics, bool) {
	if s.cache == nil {
		return Statistics{}, false
	}
	raw, err := s.cache.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			s.log.WithError(err).Warn("statistics cache read failed")
		}
		return Statistics{}, false
	}
	var stats Statistics
	if err := json.Unmarshal(raw, &stats); err != nil {
		s.log.WithError(err).Warn("statistics cache entry corrupt")
		return Statistics{}, false
	}
	return stats, true
}

func (s *Service) storeStats(ctx context.Context, key string, stats Statistics) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(stats)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, raw, statsCacheTTL).Err(); err != nil {
		s.log.WithError(err).Warn("statistics cache write failed")
	}
}
