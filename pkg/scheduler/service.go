package scheduler

import (
	"context"
	"fmt"
	"log"

	"github.com/robfig/cron/v3"

	"github.com/valuerec/valuerec-go/pkg/generator"
)

// TemplateLister enumerates the templates eligible for regeneration.
type TemplateLister interface {
	ListTemplateIDs(ctx context.Context) ([]string, error)
}

// Service periodically regenerates association rules so recommendations
// track newly submitted instances without manual triggering.
type Service struct {
	generator *generator.Service
	templates TemplateLister
	cron      *cron.Cron
	entry     cron.EntryID
}

// NewService creates a regeneration scheduler.
func NewService(gen *generator.Service, templates TemplateLister) *Service {
	return &Service{
		generator: gen,
		templates: templates,
		cron:      cron.New(),
	}
}

// Start schedules regeneration on the given cron expression and starts the
// scheduler.
func (s *Service) Start(schedule string) error {
	entry, err := s.cron.AddFunc(schedule, s.regenerateAll)
	if err != nil {
		return fmt.Errorf("invalid regeneration schedule %q: %w", schedule, err)
	}
	s.entry = entry
	s.cron.Start()
	log.Printf("Rule regeneration scheduled (%s)", schedule)
	return nil
}

// Stop stops the scheduler. In-flight generation runs are not interrupted.
func (s *Service) Stop() {
	s.cron.Stop()
	log.Println("Rule regeneration scheduler stopped")
}

func (s *Service) regenerateAll() {
	ids, err := s.templates.ListTemplateIDs(context.Background())
	if err != nil {
		log.Printf("Scheduled regeneration: listing templates failed: %v", err)
		return
	}
	if len(ids) == 0 {
		return
	}
	log.Printf("Scheduled regeneration dispatching %d templates", len(ids))
	s.generator.GenerateRules(ids)
}
