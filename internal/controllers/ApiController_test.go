package controllers

import (
	"context"
	"crewboard/internal/models"
	"crewboard/internal/presence"
	"crewboard/internal/providers"
	"crewboard/internal/services"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- local mocks (scoped to controller tests) ---

type mockLogger struct{}

func (m *mockLogger) Errorf(_ providers.TypeEnum, _ string, _ ...interface{}) {}
func (m *mockLogger) Warnf(_ providers.TypeEnum, _ string, _ ...interface{})  {}
func (m *mockLogger) Debugf(_ providers.TypeEnum, _ string, _ ...interface{}) {}
func (m *mockLogger) Infof(_ providers.TypeEnum, _ string, _ ...interface{})  {}
func (m *mockLogger) Fatalf(_ providers.TypeEnum, _ string, _ ...interface{}) {}
func (m *mockLogger) Close()                                                  {}

type mockStats struct {
	results   map[string]*models.StatisticsSnapshot
	requested []string
	panics    bool
}

func (m *mockStats) Fetch(_ context.Context, username string) *models.StatisticsSnapshot {
	return m.results[username]
}

func (m *mockStats) Batch(ctx context.Context, usernames []string) []*models.StatisticsSnapshot {
	if m.panics {
		panic("boom")
	}
	m.requested = usernames
	out := make([]*models.StatisticsSnapshot, len(usernames))
	for i, u := range usernames {
		out[i] = m.Fetch(ctx, u)
	}
	return out
}

type mockViews struct {
	views    []models.MemberView
	selected models.SelectedView
	updates  chan models.MemberView
}

func (m *mockViews) Mount(context.Context)                          {}
func (m *mockViews) Teardown()                                      {}
func (m *mockViews) RefreshStatistics(context.Context)              {}
func (m *mockViews) Views() []models.MemberView                     { return m.views }
func (m *mockViews) Selected() (models.SelectedView, bool)          { return m.selected, true }
func (m *mockViews) View(string) (models.MemberView, bool)          { return models.MemberView{}, false }
func (m *mockViews) Watch(context.Context) <-chan models.MemberView { return m.updates }

func (m *mockViews) Select(name string) (models.SelectedView, error) {
	for _, v := range m.views {
		if v.Name == name {
			m.selected = models.SelectedView{View: v, AvatarURL: v.AvatarURL(), Progress: 0.25}
			return m.selected, nil
		}
	}
	return models.SelectedView{}, services.ErrUnknownMember
}

type mockPresence struct {
	state presence.State
	subs  int
}

func (m *mockPresence) Start(context.Context)               {}
func (m *mockPresence) Stop()                               {}
func (m *mockPresence) Subscribe(string, presence.Callback) {}
func (m *mockPresence) Unsubscribe(string)                  {}
func (m *mockPresence) State() presence.State               { return m.state }
func (m *mockPresence) Subscriptions() int                  { return m.subs }

// --- helpers ---

var testMembers = []models.Member{
	{Name: "alice", Link: "https://alice.dev", Github: "alice", DiscordID: "100"},
	{Name: "bob", Link: "https://bob.dev"},
	{Name: "carol", Link: "https://carol.dev", Github: "carol"},
}

func testRoster(t *testing.T) providers.RosterProviderInterface {
	t.Helper()
	roster, err := providers.NewStaticRoster(testMembers)
	require.NoError(t, err)
	return roster
}

func testViews() *mockViews {
	views := make([]models.MemberView, len(testMembers))
	for i, m := range testMembers {
		views[i] = models.MemberView{Member: m}
	}
	return &mockViews{views: views, updates: make(chan models.MemberView, 4)}
}

func newTestController(t *testing.T, stats *mockStats, views *mockViews) *ApiController {
	return NewApiController(&mockLogger{}, testRoster(t), stats, views)
}

// --- Batch tests ---

func TestBatch_ReturnsRosterOrder(t *testing.T) {
	stats := &mockStats{results: map[string]*models.StatisticsSnapshot{
		"carol": {Repos: 3, Followers: 7},
	}}
	ac := newTestController(t, stats, testViews())

	req := httptest.NewRequest(http.MethodPost, "/g", nil)
	rr := httptest.NewRecorder()
	ac.Batch(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.Equal(t, "public, s-maxage=120, stale-while-revalidate", rr.Header().Get("Cache-Control"))
	assert.Equal(t, []string{"alice", "carol"}, stats.requested)

	var resp []*models.StatisticsSnapshot
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp, 2)
	assert.Nil(t, resp[0])
	require.NotNil(t, resp[1])
	assert.Equal(t, 7, resp[1].Followers)
}

func TestBatch_PanicBecomesErrorObject(t *testing.T) {
	ac := newTestController(t, &mockStats{panics: true}, testViews())

	req := httptest.NewRequest(http.MethodPost, "/g", nil)
	rr := httptest.NewRecorder()
	ac.Batch(rr, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Empty(t, rr.Header().Get("Cache-Control"))
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, float64(500), resp["status"])
	assert.NotEmpty(t, resp["error"])
}

func TestBatch_CancelledRequest(t *testing.T) {
	ac := newTestController(t, &mockStats{}, testViews())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/g", nil).WithContext(ctx)
	rr := httptest.NewRecorder()
	ac.Batch(rr, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, rr.Body.String(), `"status":500`)
}

// --- Members / Member tests ---

func TestMembers_ListsViews(t *testing.T) {
	ac := newTestController(t, &mockStats{}, testViews())

	req := httptest.NewRequest(http.MethodGet, "/members", nil)
	rr := httptest.NewRecorder()
	ac.Members(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	var resp []map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp, 3)
	assert.Equal(t, "alice", resp[0]["name"])
	assert.NotContains(t, resp[1], "stats")
	assert.NotContains(t, resp[1], "discord_data")
}

func TestMember_Selects(t *testing.T) {
	ac := newTestController(t, &mockStats{}, testViews())

	req := httptest.NewRequest(http.MethodGet, "/member?name=alice", nil)
	rr := httptest.NewRecorder()
	ac.Member(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, 0.25, resp["progress"])
	assert.Equal(t, "https://github.com/alice.png", resp["avatar_url"])
}

func TestMember_Unknown(t *testing.T) {
	ac := newTestController(t, &mockStats{}, testViews())

	req := httptest.NewRequest(http.MethodGet, "/member?name=mallory", nil)
	rr := httptest.NewRecorder()
	ac.Member(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), "mallory")
}

func TestMember_MissingName(t *testing.T) {
	ac := newTestController(t, &mockStats{}, testViews())

	req := httptest.NewRequest(http.MethodGet, "/member", nil)
	rr := httptest.NewRecorder()
	ac.Member(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

// --- Events tests ---

func TestEvents_StreamsInitialViewsThenUpdates(t *testing.T) {
	views := testViews()
	ac := newTestController(t, &mockStats{}, views)

	update := models.MemberView{Member: testMembers[0], Presence: &models.PresenceSnapshot{DiscordStatus: models.StatusIdle}}
	views.updates <- update
	close(views.updates)

	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	rr := httptest.NewRecorder()
	ac.Events(rr, req)

	assert.Equal(t, "text/event-stream", rr.Header().Get("Content-Type"))
	body := rr.Body.String()
	assert.Equal(t, 4, strings.Count(body, "event: member\n"))
	assert.Contains(t, body, `"discord_status":"idle"`)
	assert.True(t, rr.Flushed)
}

func TestEvents_StopsWhenClientLeaves(t *testing.T) {
	views := testViews()
	ac := newTestController(t, &mockStats{}, views)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	rr := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		ac.Events(rr, req)
		close(done)
	}()
	cancel()
	<-done
}
