package rulestore

import (
	"context"
	"sync"
	"testing"

	"github.com/valuerec/valuerec-go/pkg/models"
)

// makeRule builds a single-consequence rule from path=value pairs.
func makeRule(templateID string, premise [][2]string, consequencePath, consequenceValue string, support, confidence float64) models.AssociationRule {
	items := make([]models.RuleItem, len(premise))
	for i, pv := range premise {
		items[i] = models.RuleItem{
			FieldPath:            pv[0],
			FieldNormalizedPath:  models.NormalizeTerm(pv[0]),
			FieldValueLabel:      pv[1],
			FieldNormalizedValue: models.NormalizeValue(pv[1]),
		}
	}
	return models.AssociationRule{
		TemplateID: templateID,
		Premise:    items,
		Consequence: []models.RuleItem{{
			FieldPath:            consequencePath,
			FieldNormalizedPath:  models.NormalizeTerm(consequencePath),
			FieldValueLabel:      consequenceValue,
			FieldNormalizedValue: models.NormalizeValue(consequenceValue),
		}},
		Support:         support,
		Confidence:      confidence,
		Lift:            1,
		PremiseSize:     len(premise),
		ConsequenceSize: 1,
	}
}

// runStoreContractTests exercises the RuleStore semantics shared by every
// backend.
func runStoreContractTests(t *testing.T, newStore func(t *testing.T) RuleStore) {
	ctx := context.Background()

	t.Run("ReplaceIsIdempotent", func(t *testing.T) {
		store := newStore(t)
		defer store.Close()

		old := []models.AssociationRule{
			makeRule("tpl", [][2]string{{"tissue", "liver"}}, "disease", "cancer", 0.2, 0.9),
		}
		if _, err := store.ReplaceTemplateRules(ctx, "tpl", old); err != nil {
			t.Fatalf("Replace failed: %v", err)
		}

		replacement := []models.AssociationRule{
			makeRule("tpl", [][2]string{{"tissue", "blood"}}, "disease", "leukemia", 0.3, 0.8),
			makeRule("tpl", [][2]string{{"tissue", "lung"}}, "disease", "asthma", 0.1, 0.7),
		}
		count, err := store.ReplaceTemplateRules(ctx, "tpl", replacement)
		if err != nil {
			t.Fatalf("Replace failed: %v", err)
		}
		if count != 2 {
			t.Errorf("Expected 2 rules indexed, got %d", count)
		}

		rules, err := store.Query(ctx, models.QueryCriteria{
			TemplateID:      "tpl",
			MatchMode:       models.MatchModeFlexible,
			ConsequencePath: "DISEASE",
		})
		if err != nil {
			t.Fatalf("Query failed: %v", err)
		}
		if len(rules) != 2 {
			t.Fatalf("Expected exactly the replacement rules, got %d", len(rules))
		}
		for _, r := range rules {
			if r.Consequence[0].FieldValueLabel == "cancer" {
				t.Error("Old rule still reachable after replacement")
			}
		}
	})

	t.Run("StrictRequiresPremiseCountAndAllClauses", func(t *testing.T) {
		store := newStore(t)
		defer store.Close()

		rules := []models.AssociationRule{
			makeRule("tpl", [][2]string{{"tissue", "liver"}}, "disease", "cancer", 0.2, 0.9),
			makeRule("tpl", [][2]string{{"tissue", "liver"}, {"sex", "male"}}, "disease", "cancer", 0.1, 0.8),
		}
		if _, err := store.ReplaceTemplateRules(ctx, "tpl", rules); err != nil {
			t.Fatalf("Replace failed: %v", err)
		}

		strict := models.QueryCriteria{
			TemplateID:   "tpl",
			PremiseCount: 1,
			MatchMode:    models.MatchModeStrict,
			PremiseClauses: []models.PremiseClause{
				{NormalizedPath: "TISSUE", NormalizedValue: "LIVER"},
			},
			ConsequencePath: "DISEASE",
		}
		matched, err := store.Query(ctx, strict)
		if err != nil {
			t.Fatalf("Query failed: %v", err)
		}
		if len(matched) != 1 || matched[0].PremiseSize != 1 {
			t.Fatalf("Strict mode must match only the one-premise rule, got %d", len(matched))
		}

		// Empty context in strict mode: a rule with premises never matches.
		empty := models.QueryCriteria{
			TemplateID:      "tpl",
			PremiseCount:    0,
			MatchMode:       models.MatchModeStrict,
			ConsequencePath: "DISEASE",
		}
		matched, err = store.Query(ctx, empty)
		if err != nil {
			t.Fatalf("Query failed: %v", err)
		}
		if len(matched) != 0 {
			t.Errorf("Strict empty-context query must match nothing, got %d", len(matched))
		}

		// Flexible mode still returns both rules as candidates.
		flexible := empty
		flexible.MatchMode = models.MatchModeFlexible
		matched, err = store.Query(ctx, flexible)
		if err != nil {
			t.Fatalf("Query failed: %v", err)
		}
		if len(matched) != 2 {
			t.Errorf("Flexible mode must keep both rules as candidates, got %d", len(matched))
		}
	})

	t.Run("MappedValuesMatch", func(t *testing.T) {
		store := newStore(t)
		defer store.Close()

		uriA := "http://purl.obolibrary.org/obo/UBERON_0002107"
		rule := makeRule("tpl", [][2]string{{"tissue", uriA}}, "disease", "cancer", 0.2, 0.9)
		if _, err := store.ReplaceTemplateRules(ctx, "tpl", []models.AssociationRule{rule}); err != nil {
			t.Fatalf("Replace failed: %v", err)
		}

		criteria := models.QueryCriteria{
			TemplateID:   "tpl",
			PremiseCount: 1,
			MatchMode:    models.MatchModeStrict,
			PremiseClauses: []models.PremiseClause{{
				NormalizedPath:  "TISSUE",
				NormalizedValue: "http://www.ebi.ac.uk/efo/EFO_0000887",
				MappedValues:    []string{uriA},
			}},
			ConsequencePath: "DISEASE",
		}
		matched, err := store.Query(ctx, criteria)
		if err != nil {
			t.Fatalf("Query failed: %v", err)
		}
		if len(matched) != 1 {
			t.Fatalf("Mapped equivalent value must satisfy the clause, got %d matches", len(matched))
		}

		criteria.PremiseClauses[0].MappedValues = nil
		matched, err = store.Query(ctx, criteria)
		if err != nil {
			t.Fatalf("Query failed: %v", err)
		}
		if len(matched) != 0 {
			t.Errorf("Without mappings the clause must not match, got %d", len(matched))
		}
	})

	t.Run("ThresholdGating", func(t *testing.T) {
		store := newStore(t)
		defer store.Close()

		rules := []models.AssociationRule{
			makeRule("tpl", [][2]string{{"tissue", "liver"}}, "disease", "cancer", 0.05, 0.9),
			makeRule("tpl", [][2]string{{"tissue", "blood"}}, "disease", "leukemia", 0.4, 0.3),
		}
		if _, err := store.ReplaceTemplateRules(ctx, "tpl", rules); err != nil {
			t.Fatalf("Replace failed: %v", err)
		}

		criteria := models.QueryCriteria{
			TemplateID:         "tpl",
			FilterByConfidence: true,
			MinConfidence:      0.5,
			FilterBySupport:    true,
			MinSupport:         0.01,
			MatchMode:          models.MatchModeFlexible,
			ConsequencePath:    "DISEASE",
		}
		matched, err := store.Query(ctx, criteria)
		if err != nil {
			t.Fatalf("Query failed: %v", err)
		}
		if len(matched) != 1 || matched[0].Confidence != 0.9 {
			t.Fatalf("Threshold gating failed, got %d matches", len(matched))
		}
	})

	t.Run("ConsequencePathIsRequired", func(t *testing.T) {
		store := newStore(t)
		defer store.Close()

		rule := makeRule("tpl", [][2]string{{"tissue", "liver"}}, "disease", "cancer", 0.2, 0.9)
		if _, err := store.ReplaceTemplateRules(ctx, "tpl", []models.AssociationRule{rule}); err != nil {
			t.Fatalf("Replace failed: %v", err)
		}

		matched, err := store.Query(ctx, models.QueryCriteria{
			TemplateID:      "tpl",
			MatchMode:       models.MatchModeFlexible,
			ConsequencePath: "TISSUE",
		})
		if err != nil {
			t.Fatalf("Query failed: %v", err)
		}
		if len(matched) != 0 {
			t.Errorf("Rules with a different consequence path must not match, got %d", len(matched))
		}
	})

	t.Run("CountAndListTemplates", func(t *testing.T) {
		store := newStore(t)
		defer store.Close()

		if _, err := store.ReplaceTemplateRules(ctx, "tpl-a", []models.AssociationRule{
			makeRule("tpl-a", [][2]string{{"tissue", "liver"}}, "disease", "cancer", 0.2, 0.9),
		}); err != nil {
			t.Fatalf("Replace failed: %v", err)
		}
		if _, err := store.ReplaceTemplateRules(ctx, "tpl-b", []models.AssociationRule{
			makeRule("tpl-b", [][2]string{{"tissue", "blood"}}, "disease", "leukemia", 0.3, 0.8),
			makeRule("tpl-b", [][2]string{{"sex", "male"}}, "disease", "gout", 0.1, 0.5),
		}); err != nil {
			t.Fatalf("Replace failed: %v", err)
		}

		total, err := store.Count(ctx, "")
		if err != nil {
			t.Fatalf("Count failed: %v", err)
		}
		if total != 3 {
			t.Errorf("Expected 3 rules overall, got %d", total)
		}

		perTemplate, err := store.Count(ctx, "tpl-b")
		if err != nil {
			t.Fatalf("Count failed: %v", err)
		}
		if perTemplate != 2 {
			t.Errorf("Expected 2 rules for tpl-b, got %d", perTemplate)
		}

		ids, err := store.ListTemplateIDs(ctx)
		if err != nil {
			t.Fatalf("ListTemplateIDs failed: %v", err)
		}
		if len(ids) != 2 || ids[0] != "tpl-a" || ids[1] != "tpl-b" {
			t.Errorf("Unexpected template ids: %v", ids)
		}
	})
}

func TestMemoryStoreContract(t *testing.T) {
	runStoreContractTests(t, func(t *testing.T) RuleStore {
		return NewMemoryStore()
	})
}

func TestSQLiteStoreContract(t *testing.T) {
	runStoreContractTests(t, func(t *testing.T) RuleStore {
		store, err := NewSQLiteStore(":memory:")
		if err != nil {
			t.Fatalf("Failed to create store: %v", err)
		}
		return store
	})
}

// TestMemoryStoreConcurrentReplaceAndQuery checks that a query racing a
// replacement observes either the old or the new rule set, never a mix.
func TestMemoryStoreConcurrentReplaceAndQuery(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	oldSet := []models.AssociationRule{
		makeRule("tpl", [][2]string{{"tissue", "liver"}}, "disease", "old-a", 0.2, 0.9),
		makeRule("tpl", [][2]string{{"tissue", "liver"}}, "disease", "old-b", 0.2, 0.9),
	}
	newSet := []models.AssociationRule{
		makeRule("tpl", [][2]string{{"tissue", "liver"}}, "disease", "new-a", 0.3, 0.8),
		makeRule("tpl", [][2]string{{"tissue", "liver"}}, "disease", "new-b", 0.3, 0.8),
		makeRule("tpl", [][2]string{{"tissue", "liver"}}, "disease", "new-c", 0.3, 0.8),
	}
	if _, err := store.ReplaceTemplateRules(ctx, "tpl", oldSet); err != nil {
		t.Fatalf("Replace failed: %v", err)
	}

	criteria := models.QueryCriteria{
		TemplateID:      "tpl",
		MatchMode:       models.MatchModeFlexible,
		ConsequencePath: "DISEASE",
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			set := oldSet
			if i%2 == 1 {
				set = newSet
			}
			if _, err := store.ReplaceTemplateRules(ctx, "tpl", set); err != nil {
				t.Errorf("Replace failed: %v", err)
				return
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			rules, err := store.Query(ctx, criteria)
			if err != nil {
				t.Errorf("Query failed: %v", err)
				return
			}
			if len(rules) != 2 && len(rules) != 3 {
				t.Errorf("Observed partial rule set of size %d", len(rules))
				return
			}
		}
	}()
	wg.Wait()
}
