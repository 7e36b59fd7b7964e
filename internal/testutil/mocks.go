package testutil

import (
	"context"
	"crewboard/internal/models"
	"crewboard/internal/providers"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// MockLogger implements providers.Logger and records calls.
type MockLogger struct {
	mu   sync.Mutex
	Logs []LogEntry
}

type LogEntry struct {
	Level  string
	Type   providers.TypeEnum
	Format string
	Args   []interface{}
}

func (m *MockLogger) record(level string, t providers.TypeEnum, format string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Logs = append(m.Logs, LogEntry{Level: level, Type: t, Format: format, Args: args})
}

func (m *MockLogger) Errorf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("error", t, format, args...)
}
func (m *MockLogger) Warnf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("warn", t, format, args...)
}
func (m *MockLogger) Debugf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("debug", t, format, args...)
}
func (m *MockLogger) Infof(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("info", t, format, args...)
}
func (m *MockLogger) Fatalf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("fatal", t, format, args...)
}
func (m *MockLogger) Close() {}

// Contains reports whether any entry of the given level has a rendered
// message containing substr.
func (m *MockLogger) Contains(level, substr string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.Logs {
		if e.Level == level && strings.Contains(fmt.Sprintf(e.Format, e.Args...), substr) {
			return true
		}
	}
	return false
}

// MockCache implements providers.CacheProviderInterface without expiry.
type MockCache struct {
	mu   sync.Mutex
	Data map[string][]byte
}

func NewMockCache() *MockCache {
	return &MockCache{Data: make(map[string][]byte)}
}

func (m *MockCache) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.Data[key]
	return val, ok
}

func (m *MockCache) Set(key string, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Data[key] = value
}

func (m *MockCache) TTL() time.Duration { return time.Hour }

// MockMetrics implements providers.MetricsProviderInterface with counters.
type MockMetrics struct {
	CacheHits        atomic.Int64
	CacheMisses      atomic.Int64
	UpstreamFailures atomic.Int64
	Reconnects       atomic.Int64
	PresenceEvents   atomic.Int64
}

func (m *MockMetrics) IncRequestsTotal(_ string, _ int)                  {}
func (m *MockMetrics) ObserveRequestDuration(_ string, _ time.Duration)  {}
func (m *MockMetrics) IncCacheHits()                                     { m.CacheHits.Add(1) }
func (m *MockMetrics) IncCacheMisses()                                   { m.CacheMisses.Add(1) }
func (m *MockMetrics) IncUpstreamFailures(_ string)                      { m.UpstreamFailures.Add(1) }
func (m *MockMetrics) ObserveUpstreamDuration(_ string, _ time.Duration) {}
func (m *MockMetrics) IncPresenceReconnects()                            { m.Reconnects.Add(1) }
func (m *MockMetrics) IncPresenceEvents(_ string)                        { m.PresenceEvents.Add(1) }

// GithubUser is the canned upstream data for one username.
type GithubUser struct {
	Profile   *models.GithubProfile
	Events    []models.GithubEvent
	Repos     []models.GithubRepo
	UserErr   error
	EventsErr error
	ReposErr  error
}

// MockGithubClient implements github.ClientInterface and counts calls.
type MockGithubClient struct {
	mu    sync.Mutex
	Users map[string]*GithubUser
	Calls map[string]int
}

func NewMockGithubClient(users map[string]*GithubUser) *MockGithubClient {
	return &MockGithubClient{Users: users, Calls: make(map[string]int)}
}

func (m *MockGithubClient) lookup(kind, username string) *GithubUser {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls[kind+":"+username]++
	return m.Users[username]
}

func (m *MockGithubClient) TotalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, n := range m.Calls {
		total += n
	}
	return total
}

func (m *MockGithubClient) GetUser(_ context.Context, username string) (*models.GithubProfile, error) {
	u := m.lookup("user", username)
	if u == nil {
		return &models.GithubProfile{Message: "Not Found"}, nil
	}
	return u.Profile, u.UserErr
}

func (m *MockGithubClient) GetEvents(_ context.Context, username string) ([]models.GithubEvent, error) {
	u := m.lookup("events", username)
	if u == nil {
		return nil, nil
	}
	return u.Events, u.EventsErr
}

func (m *MockGithubClient) GetRepos(_ context.Context, username string) ([]models.GithubRepo, error) {
	u := m.lookup("repos", username)
	if u == nil {
		return nil, nil
	}
	return u.Repos, u.ReposErr
}
