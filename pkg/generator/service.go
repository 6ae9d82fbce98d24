package generator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/valuerec/valuerec-go/pkg/encoder"
	"github.com/valuerec/valuerec-go/pkg/mappings"
	"github.com/valuerec/valuerec-go/pkg/miner"
	"github.com/valuerec/valuerec-go/pkg/models"
	"github.com/valuerec/valuerec-go/pkg/recommender"
	"github.com/valuerec/valuerec-go/pkg/rulestore"
	"github.com/valuerec/valuerec-go/pkg/schema"
	"github.com/valuerec/valuerec-go/pkg/status"
)

// SchemaProvider supplies the field schema tree of a template.
type SchemaProvider interface {
	GetSchema(ctx context.Context, templateID string) (*schema.Node, error)
}

// InstanceProvider supplies the raw records filled in against a template.
type InstanceProvider interface {
	ListInstanceIDs(ctx context.Context, templateID string) ([]string, error)
	GetInstance(ctx context.Context, instanceID string) (map[string]any, error)
}

// Service orchestrates rule generation and exposes the recommendation
// boundary: mine rules from a template's instances, index them in the rule
// store, and answer recommend/status queries.
type Service struct {
	schemas      SchemaProvider
	instances    InstanceProvider
	store        rulestore.RuleStore
	tracker      *status.Tracker
	mapper       *mappings.Service
	recommender  *recommender.Service
	minerOpts    miner.Options
	fetchWorkers int

	runMu sync.Mutex
	runs  map[string]*sync.Mutex // per-template generation serialization
	wg    sync.WaitGroup
}

// Options configures the generation service.
type Options struct {
	Miner        miner.Options
	FetchWorkers int // concurrent instance fetches per run
}

// NewService creates a generation service.
func NewService(schemas SchemaProvider, instances InstanceProvider, store rulestore.RuleStore, tracker *status.Tracker, mapper *mappings.Service, opts Options) *Service {
	if opts.FetchWorkers <= 0 {
		opts.FetchWorkers = 8
	}
	return &Service{
		schemas:      schemas,
		instances:    instances,
		store:        store,
		tracker:      tracker,
		mapper:       mapper,
		recommender:  recommender.NewService(store, mapper),
		minerOpts:    opts.Miner,
		fetchWorkers: opts.FetchWorkers,
	}
}

// GenerateRules dispatches one asynchronous mining run per template and
// returns immediately. Progress is observable through the status tracker.
func (s *Service) GenerateRules(templateIDs []string) {
	for _, templateID := range templateIDs {
		id := templateID
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.runGeneration(id)
		}()
	}
}

// Wait blocks until every dispatched generation run has finished. Used on
// shutdown and by tests.
func (s *Service) Wait() {
	s.wg.Wait()
}

// templateLock returns the mutex serializing generation runs for one
// template.
func (s *Service) templateLock(templateID string) *sync.Mutex {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	if s.runs == nil {
		s.runs = make(map[string]*sync.Mutex)
	}
	mu, ok := s.runs[templateID]
	if !ok {
		mu = &sync.Mutex{}
		s.runs[templateID] = mu
	}
	return mu
}

func (s *Service) runGeneration(templateID string) {
	mu := s.templateLock(templateID)
	mu.Lock()
	defer mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	instanceIDs, err := s.instances.ListInstanceIDs(ctx, templateID)
	if err != nil {
		s.tracker.Start(templateID, 0, cancel)
		s.failRun(templateID, fmt.Errorf("listing instances: %w", err))
		return
	}

	st := s.tracker.Start(templateID, len(instanceIDs), cancel)
	log.Printf("Generating rules for template %s (run %s, %d instances)", templateID, st.RunID, len(instanceIDs))

	rulesIndexed, err := s.mineAndIndex(ctx, templateID, instanceIDs)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			// Cancel() or a superseding run already settled the entry.
			log.Printf("Generation for template %s cancelled", templateID)
			return
		}
		s.failRun(templateID, err)
		return
	}

	if err := s.tracker.Complete(templateID, rulesIndexed); err != nil {
		log.Printf("Could not complete status for template %s: %v", templateID, err)
		return
	}
	log.Printf("Indexed %d rules for template %s", rulesIndexed, templateID)
}

func (s *Service) failRun(templateID string, cause error) {
	log.Printf("Rule generation failed for template %s: %v", templateID, cause)
	if err := s.tracker.Fail(templateID, cause); err != nil {
		log.Printf("Could not record failure for template %s: %v", templateID, err)
	}
}

// mineAndIndex runs one generation: schema walk, concurrent instance
// fetch, encoding, mining, ontology decoration, and the atomic store
// replacement.
func (s *Service) mineAndIndex(ctx context.Context, templateID string, instanceIDs []string) (int, error) {
	root, err := s.schemas.GetSchema(ctx, templateID)
	if err != nil {
		return 0, fmt.Errorf("loading schema: %w", err)
	}
	paths := schema.ExtractFieldPaths(root)
	if len(paths) == 0 {
		return s.store.ReplaceTemplateRules(ctx, templateID, nil)
	}
	fieldTypes := schema.FieldTypes(root)

	records := make([]map[string]any, len(instanceIDs))
	eg, fetchCtx := errgroup.WithContext(ctx)
	eg.SetLimit(s.fetchWorkers)
	for i, instanceID := range instanceIDs {
		i, instanceID := i, instanceID
		eg.Go(func() error {
			record, err := s.instances.GetInstance(fetchCtx, instanceID)
			if err != nil {
				return fmt.Errorf("fetching instance %s: %w", instanceID, err)
			}
			records[i] = record
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return 0, err
	}

	encOpts := encoder.Options{MissingMarker: s.minerOpts.MissingMarker}
	rows, catalog := encoder.EncodeDataset(records, paths, encOpts)

	rules, summary, err := miner.Mine(rows, paths, templateID, s.minerOpts)
	if err != nil {
		return 0, fmt.Errorf("mining rules: %w", err)
	}
	log.Printf("Mined %d rules for template %s (%d items, %d frequent itemsets, median confidence %.2f)",
		summary.Rules, templateID, summary.Items, summary.FrequentItemsets, summary.MedianConfidence)

	s.decorateRules(rules, catalog, fieldTypes)

	if err := ctx.Err(); err != nil {
		return 0, err
	}
	count, err := s.store.ReplaceTemplateRules(ctx, templateID, rules)
	if err != nil {
		return 0, fmt.Errorf("replacing rules: %w", err)
	}
	return count, nil
}

// decorateRules restores value labels from the encoding catalog and
// attaches ontology concept types and equivalence mappings to rule items.
func (s *Service) decorateRules(rules []models.AssociationRule, catalog *encoder.ValueCatalog, fieldTypes map[string]string) {
	decorate := func(items []models.RuleItem) {
		for i := range items {
			item := &items[i]
			if typeURI, ok := fieldTypes[item.FieldNormalizedPath]; ok {
				item.FieldType = typeURI
				item.FieldTypeMappings = s.mapper.GetMappings(typeURI, false)
			}
			if info, ok := catalog.Lookup(item.FieldNormalizedPath, item.FieldValueLabel); ok {
				if info.Label != "" {
					item.FieldValueLabel = info.Label
				}
				if info.TypeURI != "" {
					item.FieldValueType = info.TypeURI
				}
			}
			if models.IsTermURI(item.FieldNormalizedValue) {
				item.FieldValueMappings = s.mapper.GetMappings(item.FieldNormalizedValue, false)
			}
		}
	}
	for i := range rules {
		decorate(rules[i].Premise)
		decorate(rules[i].Consequence)
	}
}

// Recommend answers a recommendation request against the indexed rules.
func (s *Service) Recommend(ctx context.Context, req *models.RecommendationRequest) (*models.Recommendation, error) {
	return s.recommender.Recommend(ctx, req)
}

// CanGenerateRecommendations reports whether any rules are indexed for the
// template, or anywhere in the store when templateID is empty.
func (s *Service) CanGenerateRecommendations(ctx context.Context, templateID string) (bool, error) {
	count, err := s.store.Count(ctx, templateID)
	if err != nil {
		return false, fmt.Errorf("%w: counting rules: %v", models.ErrProcessing, err)
	}
	return count > 0, nil
}

// GenerationStatus returns the status entry for one template.
func (s *Service) GenerationStatus(templateID string) (models.GenerationStatus, error) {
	return s.tracker.Get(templateID)
}

// GenerationStatuses returns all status entries.
func (s *Service) GenerationStatuses() []models.GenerationStatus {
	return s.tracker.GetAll()
}

// CancelGeneration cancels the in-flight run for a template best-effort.
func (s *Service) CancelGeneration(templateID string) error {
	return s.tracker.Cancel(templateID)
}
