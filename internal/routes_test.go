package internal

import (
	"context"
	"crewboard/internal/controllers"
	"crewboard/internal/models"
	"crewboard/internal/presence"
	"crewboard/internal/providers"
	"crewboard/internal/structures"
	"crewboard/internal/testutil"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- minimal mocks for routes test ---

type routeTestStats struct{}

func (m *routeTestStats) Fetch(_ context.Context, _ string) *models.StatisticsSnapshot { return nil }
func (m *routeTestStats) Batch(_ context.Context, usernames []string) []*models.StatisticsSnapshot {
	return make([]*models.StatisticsSnapshot, len(usernames))
}

type routeTestViews struct {
	members []models.Member
}

func (m *routeTestViews) Mount(_ context.Context)                 {}
func (m *routeTestViews) Teardown()                               {}
func (m *routeTestViews) RefreshStatistics(_ context.Context)     {}
func (m *routeTestViews) View(_ string) (models.MemberView, bool) { return models.MemberView{}, false }
func (m *routeTestViews) Selected() (models.SelectedView, bool)   { return models.SelectedView{}, false }

func (m *routeTestViews) Select(_ string) (models.SelectedView, error) {
	return models.SelectedView{}, nil
}

func (m *routeTestViews) Watch(_ context.Context) <-chan models.MemberView {
	ch := make(chan models.MemberView)
	close(ch)
	return ch
}

func (m *routeTestViews) Views() []models.MemberView {
	out := make([]models.MemberView, len(m.members))
	for i, member := range m.members {
		out[i] = models.MemberView{Member: member}
	}
	return out
}

type routeTestPresence struct{}

func (m *routeTestPresence) Start(_ context.Context)                 {}
func (m *routeTestPresence) Stop()                                   {}
func (m *routeTestPresence) Subscribe(_ string, _ presence.Callback) {}
func (m *routeTestPresence) Unsubscribe(_ string)                    {}
func (m *routeTestPresence) State() presence.State                   { return presence.StateOpen }
func (m *routeTestPresence) Subscriptions() int                      { return 0 }

// --- helpers ---

var routeTestMembers = []models.Member{
	{Name: "alice", Link: "https://alice.dev", Github: "alice"},
	{Name: "bob", Link: "https://bob.dev"},
}

func routeTestHandler(t *testing.T, conf *structures.Config) (http.Handler, providers.RouterProviderInterface) {
	return routeTestHandlerWith(t, conf, routeTestMembers)
}

func routeTestHandlerWith(t *testing.T, conf *structures.Config, members []models.Member) (http.Handler, providers.RouterProviderInterface) {
	t.Helper()
	roster, err := providers.NewStaticRoster(members)
	require.NoError(t, err)

	logger := &testutil.MockLogger{}
	ac := controllers.NewApiController(logger, roster, &routeTestStats{}, &routeTestViews{members: members})
	hc := controllers.NewHealthController(&routeTestPresence{}, roster)
	router := InitRoutes(ac)
	return NewHandler(hc, conf, router, &testutil.MockMetrics{}), router
}

func TestInitRoutes_RegistersFourRoutes(t *testing.T) {
	_, router := routeTestHandler(t, &structures.Config{})
	routes := router.GetRoutes()

	require.Len(t, routes, 4)

	urls := make([]string, len(routes))
	streaming := map[string]bool{}
	for i, r := range routes {
		urls[i] = r.Url
		streaming[r.Url] = r.Streaming
	}

	assert.ElementsMatch(t, []string{"/g", "/members", "/member", "/events"}, urls)
	assert.True(t, streaming["/events"])
	assert.False(t, streaming["/members"])
}

func TestInitRoutes_MethodEnforcement(t *testing.T) {
	handler, _ := routeTestHandler(t, &structures.Config{})

	// GET /g should fail
	req := httptest.NewRequest(http.MethodGet, "/g", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	assert.Equal(t, http.MethodPost, rr.Header().Get("Allow"))

	// POST /members should fail
	req = httptest.NewRequest(http.MethodPost, "/members", nil)
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestHandler_CompressesApiRoutes(t *testing.T) {
	// Bodies below the gzip minimum size are sent as is.
	members := make([]models.Member, 64)
	for i := range members {
		members[i] = models.Member{Name: fmt.Sprintf("member-%02d", i), Link: fmt.Sprintf("https://member-%02d.example.dev", i)}
	}
	conf := &structures.Config{WebServer: structures.Server{Compression: true}}
	handler, _ := routeTestHandlerWith(t, conf, members)

	req := httptest.NewRequest(http.MethodGet, "/members", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "gzip", rr.Header().Get("Content-Encoding"))
}

func TestHandler_EventStreamIsNotCompressed(t *testing.T) {
	conf := &structures.Config{WebServer: structures.Server{Compression: true}}
	handler, _ := routeTestHandler(t, conf)

	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, "text/event-stream", rr.Header().Get("Content-Type"))
	assert.Empty(t, rr.Header().Get("Content-Encoding"))
	assert.Contains(t, rr.Body.String(), `"name":"alice"`)
}

func TestHandler_HealthAndMetrics(t *testing.T) {
	handler, _ := routeTestHandler(t, &structures.Config{})

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
