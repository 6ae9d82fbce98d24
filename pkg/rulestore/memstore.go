package rulestore

import (
	"context"
	"sort"
	"sync"

	"github.com/valuerec/valuerec-go/pkg/models"
)

// MemoryStore is an in-memory RuleStore. Each template's rules live in an
// immutable slice that is swapped in whole on replacement, so readers never
// observe a half-replaced collection.
type MemoryStore struct {
	mu         sync.RWMutex
	byTemplate map[string][]models.AssociationRule
}

// NewMemoryStore creates an empty in-memory rule store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byTemplate: make(map[string][]models.AssociationRule)}
}

// ReplaceTemplateRules swaps in the new rule set for the template.
func (s *MemoryStore) ReplaceTemplateRules(ctx context.Context, templateID string, rules []models.AssociationRule) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	staged := make([]models.AssociationRule, len(rules))
	copy(staged, rules)

	s.mu.Lock()
	if len(staged) == 0 {
		delete(s.byTemplate, templateID)
	} else {
		s.byTemplate[templateID] = staged
	}
	s.mu.Unlock()
	return len(staged), nil
}

// ListTemplateIDs returns the templates with stored rules, sorted.
func (s *MemoryStore) ListTemplateIDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	ids := make([]string, 0, len(s.byTemplate))
	for id := range s.byTemplate {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	sort.Strings(ids)
	return ids, nil
}

// Query scans the matching template collections and applies the criteria.
func (s *MemoryStore) Query(ctx context.Context, criteria models.QueryCriteria) ([]models.AssociationRule, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	var collections [][]models.AssociationRule
	if criteria.TemplateID != "" {
		collections = append(collections, s.byTemplate[criteria.TemplateID])
	} else {
		ids := make([]string, 0, len(s.byTemplate))
		for id := range s.byTemplate {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			collections = append(collections, s.byTemplate[id])
		}
	}
	s.mu.RUnlock()

	var matched []models.AssociationRule
	for _, rules := range collections {
		for _, rule := range rules {
			if MatchesCriteria(rule, criteria) {
				matched = append(matched, rule)
			}
		}
	}
	return matched, nil
}

// Count returns the number of stored rules.
func (s *MemoryStore) Count(ctx context.Context, templateID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if templateID != "" {
		return int64(len(s.byTemplate[templateID])), nil
	}
	var total int64
	for _, rules := range s.byTemplate {
		total += int64(len(rules))
	}
	return total, nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}
