package services

import (
	"context"
	"crewboard/internal/github"
	"crewboard/internal/models"
	"crewboard/internal/providers"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"
)

const statsCachePrefix = "gh:"

var ErrProfileNotFound = errors.New("github profile not found")

type StatisticServiceInterface interface {
	// Fetch returns the snapshot for one username, or nil when it cannot be
	// computed. Failures never propagate.
	Fetch(ctx context.Context, username string) *models.StatisticsSnapshot
	// Batch returns one entry per username, in input order.
	Batch(ctx context.Context, usernames []string) []*models.StatisticsSnapshot
}

type StatisticService struct {
	logger  providers.Logger
	cache   providers.CacheProviderInterface
	client  github.ClientInterface
	metrics providers.MetricsProviderInterface
	now     func() time.Time
}

func (ss *StatisticService) Batch(ctx context.Context, usernames []string) []*models.StatisticsSnapshot {
	results := make([]*models.StatisticsSnapshot, len(usernames))
	var g errgroup.Group
	for i, username := range usernames {
		g.Go(func() error {
			results[i] = ss.Fetch(ctx, username)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (ss *StatisticService) Fetch(ctx context.Context, username string) (snapshot *models.StatisticsSnapshot) {
	if cached, ok := ss.fromCache(username); ok {
		return cached
	}

	defer func() {
		if r := recover(); r != nil {
			ss.logger.Errorf(providers.TypeStats, "Panic while fetching statistics for %s: %v", username, r)
			ss.metrics.IncUpstreamFailures("github")
			snapshot = nil
		}
	}()

	// wall clock; ss.now only dates snapshots
	start := time.Now()
	snapshot, err := ss.compute(ctx, username)
	ss.metrics.ObserveUpstreamDuration("github", time.Since(start))
	if err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			ss.logger.Warnf(providers.TypeStats, "No statistics for %s: %s", username, err)
		} else {
			ss.logger.Errorf(providers.TypeStats, "Statistics fetch failed for %s: %s", username, err)
			ss.metrics.IncUpstreamFailures("github")
		}
		return nil
	}

	ss.toCache(username, snapshot)
	return snapshot
}

func (ss *StatisticService) compute(ctx context.Context, username string) (*models.StatisticsSnapshot, error) {
	var (
		profile *models.GithubProfile
		events  []models.GithubEvent
		repos   []models.GithubRepo
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		profile, err = ss.client.GetUser(gctx, username)
		return err
	})
	g.Go(func() (err error) {
		events, err = ss.client.GetEvents(gctx, username)
		return err
	})
	g.Go(func() (err error) {
		repos, err = ss.client.GetRepos(gctx, username)
		return err
	})
	err := g.Wait()
	// An unknown user also fails the list calls; report the profile message.
	if profile != nil && profile.Message != "" {
		return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, profile.Message)
	}
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, fmt.Errorf("%w: empty profile", ErrProfileNotFound)
	}

	return models.NewStatisticsSnapshot(profile, events, repos, ss.now()), nil
}

func (ss *StatisticService) fromCache(username string) (*models.StatisticsSnapshot, bool) {
	data, ok := ss.cache.Get(statsCachePrefix + username)
	if !ok {
		return nil, false
	}
	var snapshot models.StatisticsSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		ss.logger.Warnf(providers.TypeStats, "Dropping unreadable cache entry for %s: %s", username, err)
		return nil, false
	}
	return &snapshot, true
}

func (ss *StatisticService) toCache(username string, snapshot *models.StatisticsSnapshot) {
	data, err := json.Marshal(snapshot)
	if err != nil {
		ss.logger.Errorf(providers.TypeStats, "Unable to cache statistics for %s: %s", username, err)
		return
	}
	ss.cache.Set(statsCachePrefix+username, data)
}

func NewStatisticService(logger providers.Logger, cache providers.CacheProviderInterface, client github.ClientInterface, metrics providers.MetricsProviderInterface) StatisticServiceInterface {
	return &StatisticService{
		logger:  logger,
		cache:   cache,
		client:  client,
		metrics: metrics,
		now:     time.Now,
	}
}
