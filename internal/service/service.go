// Package service joins the daemon's components behind model.JournalService.
package service

import (
	"context"

	"github.com/tinytelemetry/hunters-journal/internal/clients"
	"github.com/tinytelemetry/hunters-journal/internal/model"
	"github.com/tinytelemetry/hunters-journal/internal/notify"
)

// Service is the daemon's request surface.
type Service struct {
	catalog   model.EnemyReader
	scheduler *notify.Scheduler
	registry  *clients.Registry
	log       model.DeliveryLog
}

func New(catalog model.EnemyReader, scheduler *notify.Scheduler, registry *clients.Registry, log model.DeliveryLog) *Service {
	return &Service{catalog: catalog, scheduler: scheduler, registry: registry, log: log}
}

var _ model.JournalService = (*Service)(nil)

func (s *Service) ListEnemies(ctx context.Context) ([]model.Enemy, error) {
	return s.catalog.ListEnemies(ctx)
}

func (s *Service) GetEnemy(ctx context.Context, slug string) (model.Enemy, error) {
	return s.catalog.GetEnemy(ctx, slug)
}

func (s *Service) SendNotification(ctx context.Context) (model.Enemy, bool) {
	return s.scheduler.SendRandom(ctx)
}

func (s *Service) StartPeriodicNotifications() bool {
	return s.scheduler.Start()
}

func (s *Service) Activate(ctx context.Context, permission model.Permission) (model.TriggerMode, error) {
	return s.scheduler.Activate(ctx, permission)
}

func (s *Service) PeriodicSync(ctx context.Context, tag string) bool {
	return s.scheduler.HandlePeriodicSync(ctx, tag)
}

func (s *Service) Status() model.SchedulerStatus {
	st := s.scheduler.Status()
	st.AttachedViews = s.registry.Len()
	return st
}

func (s *Service) AttachView(origin string) string {
	return s.registry.Attach(origin)
}

func (s *Service) PollView(id string) (model.ViewCommand, bool) {
	return s.registry.Poll(id)
}

func (s *Service) DetachView(id string) {
	s.registry.Detach(id)
}

func (s *Service) OpenLink(url string) error {
	return s.registry.Open(url)
}

func (s *Service) RecentDeliveries(limit int) ([]model.DeliveryRecord, error) {
	if s.log == nil {
		return nil, nil
	}
	return s.log.RecentDeliveries(limit)
}
