package statistic

import (
	"context"
	"crewboard/internal/providers"
	"crewboard/internal/services"
	"crewboard/internal/statistic/interfaces"
	"crewboard/internal/structures"
	"sync"

	"github.com/roylee0704/gron"
)

type Scheduler struct {
	config  *structures.Config
	logger  providers.Logger
	service services.ViewModelServiceInterface
	cron    *gron.Cron
	opsMu   sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
}

func (s *Scheduler) Init() {
	interval := s.config.Stats.RefreshInterval
	if interval <= 0 {
		s.logger.Infof(providers.TypeStats, "Statistics refresh disabled")
		return
	}

	s.cron = gron.New()
	s.cron.AddFunc(gron.Every(interval), s.Refresh)
	s.cron.Start()
}

func (s *Scheduler) Stop() {
	s.cancel()
	if s.cron != nil {
		s.cron.Stop()
	}
}

// Refresh runs at most one statistics reload at a time.
func (s *Scheduler) Refresh() {
	s.opsMu.Lock()
	defer s.opsMu.Unlock()

	if s.ctx.Err() != nil {
		return
	}
	s.logger.Infof(providers.TypeStats, "Refreshing statistics...")
	s.service.RefreshStatistics(s.ctx)
	s.logger.Infof(providers.TypeStats, "Statistics refreshed")
}

func NewScheduler(config *structures.Config, logger providers.Logger, service services.ViewModelServiceInterface) interfaces.SchedulerInterface {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		config:  config,
		logger:  logger,
		service: service,
		ctx:     ctx,
		cancel:  cancel,
	}
}
