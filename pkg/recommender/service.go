package recommender

import (
	"context"
	"fmt"
	"sort"

	"github.com/valuerec/valuerec-go/pkg/mappings"
	"github.com/valuerec/valuerec-go/pkg/models"
	"github.com/valuerec/valuerec-go/pkg/rulestore"
)

// Service answers value recommendations by querying the rule store and
// ranking the matching rules' consequences.
type Service struct {
	store  rulestore.RuleStore
	mapper *mappings.Service
}

// NewService creates a recommendation matcher over a rule store and a
// mapping service.
func NewService(store rulestore.RuleStore, mapper *mappings.Service) *Service {
	return &Service{store: store, mapper: mapper}
}

// Recommend ranks likely values for the target field given the populated
// context. Store failures propagate as processing errors, never as an
// empty recommendation.
func (s *Service) Recommend(ctx context.Context, req *models.RecommendationRequest) (*models.Recommendation, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	criteria := s.buildCriteria(req)
	rules, err := s.store.Query(ctx, criteria)
	if err != nil {
		return nil, fmt.Errorf("%w: querying rule store: %v", models.ErrProcessing, err)
	}

	values := rankCandidates(rules, criteria.PremiseClauses, req.StrictMatch)
	return &models.Recommendation{
		TargetFieldPath:   req.TargetField,
		RecommendedValues: values,
	}, nil
}

// buildCriteria normalizes the request into a rule store query. Populated
// values that are ontology term identifiers stay verbatim; literals are
// case-folded. Mapped equivalents are attached only when the request asks
// for mapping expansion.
func (s *Service) buildCriteria(req *models.RecommendationRequest) models.QueryCriteria {
	clauses := make([]models.PremiseClause, 0, len(req.PopulatedFields))
	for _, field := range req.PopulatedFields {
		clause := models.PremiseClause{
			NormalizedPath:  models.NormalizeTerm(field.FieldPath),
			NormalizedValue: models.NormalizeValue(field.Value),
		}
		if req.UseMappings {
			clause.MappedValues = s.mapper.GetMappings(field.Value, false)
		}
		clauses = append(clauses, clause)
	}

	mode := models.MatchModeFlexible
	if req.StrictMatch {
		mode = models.MatchModeStrict
	}
	return models.QueryCriteria{
		TemplateID:      req.TemplateID,
		PremiseCount:    len(clauses),
		MatchMode:       mode,
		PremiseClauses:  clauses,
		ConsequencePath: models.NormalizeTerm(req.TargetField),
	}
}

// candidate accumulates one consequence value group during ranking.
type candidate struct {
	label      string
	valueID    string
	score      float64
	confidence float64
	support    float64
}

// rankCandidates groups rules by consequence value and ranks the groups.
// The score of a group is the maximum of matchWeight * confidence * support
// over its rules, not their sum.
func rankCandidates(rules []models.AssociationRule, clauses []models.PremiseClause, strict bool) []models.RecommendedValue {
	groups := make(map[string]*candidate)
	var order []string

	for _, rule := range rules {
		item := rule.Consequence[0]
		key := item.FieldValueLabel
		if id := item.ValueID(); id != "" {
			key = id
		}

		weight := matchWeight(rule, clauses, strict)
		score := weight * rule.Confidence * rule.Support

		group, ok := groups[key]
		if !ok {
			group = &candidate{label: item.FieldValueLabel, valueID: item.ValueID()}
			groups[key] = group
			order = append(order, key)
		}
		if score > group.score {
			group.score = score
		}
		if rule.Confidence > group.confidence {
			group.confidence = rule.Confidence
		}
		if rule.Support > group.support {
			group.support = rule.Support
		}
	}

	recType := models.RecommendationContextIndependent
	if len(clauses) > 0 {
		recType = models.RecommendationContextDependent
	}

	values := make([]models.RecommendedValue, 0, len(order))
	for _, key := range order {
		g := groups[key]
		values = append(values, models.RecommendedValue{
			ValueLabel: g.label,
			ValueID:    g.valueID,
			Score:      g.score,
			Confidence: g.confidence,
			Support:    g.support,
			Type:       recType,
		})
	}

	sort.Slice(values, func(i, j int) bool {
		a, b := values[i], values[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if a.Support != b.Support {
			return a.Support > b.Support
		}
		return a.ValueLabel < b.ValueLabel
	})
	return values
}

// matchWeight is 1 in strict mode, where every supplied clause is already
// mandatory for a rule to qualify. In flexible mode it is the satisfied
// fraction of the supplied clauses.
func matchWeight(rule models.AssociationRule, clauses []models.PremiseClause, strict bool) float64 {
	if strict || len(clauses) == 0 {
		return 1
	}
	return float64(rulestore.ClausesSatisfied(rule, clauses)) / float64(len(clauses))
}
