package services

import (
	"context"
	"crewboard/internal/artwork"
	"crewboard/internal/models"
	"crewboard/internal/presence"
	"crewboard/internal/providers"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	progressInterval = time.Second
	watcherBuffer    = 32
)

var ErrUnknownMember = errors.New("unknown member")

type ViewModelServiceInterface interface {
	// Mount builds one view per roster member, subscribes to live presence
	// and loads the initial presence and statistics. It returns once the
	// initial loads have finished.
	Mount(ctx context.Context)
	Teardown()
	Views() []models.MemberView
	View(name string) (models.MemberView, bool)
	Select(name string) (models.SelectedView, error)
	Selected() (models.SelectedView, bool)
	// Watch streams every view that changes until ctx is done or the
	// service is torn down.
	Watch(ctx context.Context) <-chan models.MemberView
	RefreshStatistics(ctx context.Context)
}

type ViewModelService struct {
	logger   providers.Logger
	roster   providers.RosterProviderInterface
	stats    StatisticServiceInterface
	presence presence.ClientInterface
	lookup   presence.LookupInterface
	artwork  artwork.ExtractorInterface
	now      func() time.Time
	interval time.Duration

	mu       sync.RWMutex
	mounted  bool
	ctx      context.Context
	cancel   context.CancelFunc
	views    map[string]models.MemberView
	live     map[string]bool
	watchers map[chan models.MemberView]struct{}

	selected   string
	progress   float64
	color      *models.RGB
	colorFor   string
	tickerStop chan struct{}
	tickers    int
}

func (vs *ViewModelService) Mount(ctx context.Context) {
	members := vs.roster.Members()

	vs.mu.Lock()
	if vs.mounted {
		vs.mu.Unlock()
		return
	}
	vs.mounted = true
	vs.ctx, vs.cancel = context.WithCancel(ctx)
	ctx = vs.ctx
	vs.live = make(map[string]bool)
	for _, m := range members {
		vs.views[m.Name] = models.MemberView{Member: m}
	}
	vs.mu.Unlock()

	for _, m := range members {
		if !m.HasPresence() {
			continue
		}
		name := m.Name
		vs.presence.Subscribe(m.DiscordID, func(snapshot *models.PresenceSnapshot) {
			vs.applyPresence(name, snapshot, true)
		})
	}

	var g errgroup.Group
	for _, m := range members {
		if !m.HasPresence() {
			continue
		}
		g.Go(func() error {
			snapshot, err := vs.lookup.Lookup(ctx, m.DiscordID)
			if err != nil {
				vs.logger.Warnf(providers.TypePresence, "Initial presence lookup for %s failed: %s", m.Name, err)
				return nil
			}
			if snapshot != nil {
				vs.applyPresence(m.Name, snapshot, false)
			}
			return nil
		})
	}
	g.Go(func() error {
		vs.RefreshStatistics(ctx)
		return nil
	})
	_ = g.Wait()

	vs.logger.Infof(providers.TypeApp, "View models mounted for %d members", len(members))
}

// Teardown unsubscribes every presence identity of the roster, stops the
// progress ticker and closes all watchers.
func (vs *ViewModelService) Teardown() {
	vs.mu.Lock()
	if !vs.mounted {
		vs.mu.Unlock()
		return
	}
	vs.mounted = false
	vs.cancel()
	vs.stopTickerLocked()
	for ch := range vs.watchers {
		close(ch)
		delete(vs.watchers, ch)
	}
	vs.mu.Unlock()

	for _, m := range vs.roster.Members() {
		if m.HasPresence() {
			vs.presence.Unsubscribe(m.DiscordID)
		}
	}
}

func (vs *ViewModelService) RefreshStatistics(ctx context.Context) {
	handles := vs.roster.StatisticsHandles()
	if len(handles) == 0 {
		return
	}
	results := vs.stats.Batch(ctx, handles)

	i := 0
	for _, m := range vs.roster.Members() {
		if !m.HasStatistics() {
			continue
		}
		if i < len(results) {
			vs.applyStatistics(m.Name, results[i])
		}
		i++
	}
}

// applyPresence replaces only the presence of name. A one-shot result is
// dropped once the live channel has delivered for that member.
func (vs *ViewModelService) applyPresence(name string, snapshot *models.PresenceSnapshot, live bool) {
	vs.mu.Lock()
	view, ok := vs.views[name]
	if !ok || !vs.mounted || (!live && vs.live[name]) {
		vs.mu.Unlock()
		return
	}
	if live {
		vs.live[name] = true
	}
	view.Presence = snapshot
	vs.views[name] = view
	if vs.selected == name {
		vs.refreshSelectionLocked()
	}
	vs.publishLocked(view)
	vs.mu.Unlock()
}

// applyStatistics replaces only the statistics of name. A nil snapshot keeps
// whatever was there before.
func (vs *ViewModelService) applyStatistics(name string, snapshot *models.StatisticsSnapshot) {
	if snapshot == nil {
		return
	}
	vs.mu.Lock()
	defer vs.mu.Unlock()
	view, ok := vs.views[name]
	if !ok || !vs.mounted {
		return
	}
	view.Stats = snapshot
	vs.views[name] = view
	vs.publishLocked(view)
}

func (vs *ViewModelService) Views() []models.MemberView {
	members := vs.roster.Members()
	vs.mu.RLock()
	defer vs.mu.RUnlock()
	out := make([]models.MemberView, 0, len(members))
	for _, m := range members {
		if view, ok := vs.views[m.Name]; ok {
			out = append(out, view)
		} else {
			out = append(out, models.MemberView{Member: m})
		}
	}
	return out
}

func (vs *ViewModelService) View(name string) (models.MemberView, bool) {
	vs.mu.RLock()
	view, ok := vs.views[name]
	vs.mu.RUnlock()
	if ok {
		return view, true
	}
	if m, found := vs.roster.Find(name); found {
		return models.MemberView{Member: m}, true
	}
	return models.MemberView{}, false
}

func (vs *ViewModelService) Select(name string) (models.SelectedView, error) {
	if _, ok := vs.roster.Find(name); !ok {
		return models.SelectedView{}, ErrUnknownMember
	}

	vs.mu.Lock()
	if _, ok := vs.views[name]; !ok {
		m, _ := vs.roster.Find(name)
		vs.views[name] = models.MemberView{Member: m}
	}
	if vs.selected != name {
		vs.selected = name
		vs.color = nil
		vs.colorFor = ""
	}
	vs.refreshSelectionLocked()
	selected := vs.selectedLocked()
	vs.mu.Unlock()
	return selected, nil
}

func (vs *ViewModelService) Selected() (models.SelectedView, bool) {
	vs.mu.RLock()
	defer vs.mu.RUnlock()
	if vs.selected == "" {
		return models.SelectedView{}, false
	}
	return vs.selectedLocked(), true
}

func (vs *ViewModelService) selectedLocked() models.SelectedView {
	view := vs.views[vs.selected]
	return models.SelectedView{
		View:          view,
		AvatarURL:     view.AvatarURL(),
		Progress:      vs.progress,
		DominantColor: vs.color,
		ColorHex:      artwork.Hex(vs.color),
	}
}

// refreshSelectionLocked recomputes the derived fields of the selected member:
// playback progress with its ticker, and the artwork color.
func (vs *ViewModelService) refreshSelectionLocked() {
	spotify := vs.views[vs.selected].Presence.ActiveSpotify()
	if spotify == nil {
		vs.stopTickerLocked()
		vs.progress = 0
		vs.color = nil
		vs.colorFor = ""
		return
	}

	vs.progress = spotify.Progress(vs.now().UnixMilli())
	if vs.mounted {
		vs.startTickerLocked()
	}

	url := spotify.ArtworkURL()
	if url == vs.colorFor {
		return
	}
	vs.colorFor = url
	vs.color = nil
	if url != "" {
		go vs.extractColor(vs.lifecycleLocked(), url)
	}
}

func (vs *ViewModelService) extractColor(ctx context.Context, url string) {
	c, err := vs.artwork.DominantColor(ctx, url)
	if err != nil {
		vs.logger.Debugf(providers.TypeApp, "No artwork color for %s: %s", url, err)
		return
	}

	vs.mu.Lock()
	defer vs.mu.Unlock()
	if vs.colorFor != url {
		return
	}
	vs.color = c
	vs.publishLocked(vs.views[vs.selected])
}

func (vs *ViewModelService) lifecycleLocked() context.Context {
	if vs.ctx != nil {
		return vs.ctx
	}
	return context.Background()
}

// startTickerLocked replaces any running progress ticker with a fresh one.
func (vs *ViewModelService) startTickerLocked() {
	vs.stopTickerLocked()
	stop := make(chan struct{})
	vs.tickerStop = stop
	vs.tickers++

	go func() {
		ticker := time.NewTicker(vs.interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				vs.tickProgress(stop)
			}
		}
	}()
}

func (vs *ViewModelService) stopTickerLocked() {
	if vs.tickerStop == nil {
		return
	}
	close(vs.tickerStop)
	vs.tickerStop = nil
	vs.tickers--
}

func (vs *ViewModelService) tickProgress(stop chan struct{}) {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	if vs.tickerStop != stop {
		return
	}
	spotify := vs.views[vs.selected].Presence.ActiveSpotify()
	if spotify == nil {
		vs.stopTickerLocked()
		vs.progress = 0
		return
	}
	vs.progress = spotify.Progress(vs.now().UnixMilli())
}

// ActiveTickers is the number of progress tickers currently running.
func (vs *ViewModelService) ActiveTickers() int {
	vs.mu.RLock()
	defer vs.mu.RUnlock()
	return vs.tickers
}

func (vs *ViewModelService) Watch(ctx context.Context) <-chan models.MemberView {
	ch := make(chan models.MemberView, watcherBuffer)

	vs.mu.Lock()
	if !vs.mounted {
		vs.mu.Unlock()
		close(ch)
		return ch
	}
	vs.watchers[ch] = struct{}{}
	done := vs.ctx.Done()
	vs.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
		vs.mu.Lock()
		defer vs.mu.Unlock()
		if _, ok := vs.watchers[ch]; ok {
			delete(vs.watchers, ch)
			close(ch)
		}
	}()
	return ch
}

func (vs *ViewModelService) publishLocked(view models.MemberView) {
	for ch := range vs.watchers {
		select {
		case ch <- view:
		default:
			vs.logger.Debugf(providers.TypeApp, "Watcher is behind, dropping update for %s", view.Name)
		}
	}
}

func NewViewModelService(
	logger providers.Logger,
	roster providers.RosterProviderInterface,
	stats StatisticServiceInterface,
	client presence.ClientInterface,
	lookup presence.LookupInterface,
	extractor artwork.ExtractorInterface,
) ViewModelServiceInterface {
	return newViewModelService(logger, roster, stats, client, lookup, extractor)
}

func newViewModelService(
	logger providers.Logger,
	roster providers.RosterProviderInterface,
	stats StatisticServiceInterface,
	client presence.ClientInterface,
	lookup presence.LookupInterface,
	extractor artwork.ExtractorInterface,
) *ViewModelService {
	return &ViewModelService{
		logger:   logger,
		roster:   roster,
		stats:    stats,
		presence: client,
		lookup:   lookup,
		artwork:  extractor,
		now:      time.Now,
		interval: progressInterval,
		views:    make(map[string]models.MemberView),
		live:     make(map[string]bool),
		watchers: make(map[chan models.MemberView]struct{}),
	}
}
