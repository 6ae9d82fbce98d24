package rulestore

import (
	"context"
	"strings"

	"github.com/valuerec/valuerec-go/pkg/models"
)

// RuleStore persists and queries mined association rules, one collection
// per template. Replacement is atomic with respect to concurrent queries:
// a query observes either the old or the new rule set in full.
type RuleStore interface {
	// ReplaceTemplateRules atomically removes all rules for the template and
	// inserts the new set, returning the number of rules indexed.
	ReplaceTemplateRules(ctx context.Context, templateID string, rules []models.AssociationRule) (int, error)

	// ListTemplateIDs returns the templates with at least one stored rule.
	ListTemplateIDs(ctx context.Context) ([]string, error)

	// Query returns the rules matching the criteria.
	Query(ctx context.Context, criteria models.QueryCriteria) ([]models.AssociationRule, error)

	// Count returns the number of stored rules for a template, or for the
	// whole store when templateID is empty.
	Count(ctx context.Context, templateID string) (int64, error)

	Close() error
}

// ClauseSatisfied reports whether some premise item of the rule satisfies
// the clause: the field path matches and the value matches either the
// normalized value or any of the mapped equivalents.
func ClauseSatisfied(rule models.AssociationRule, clause models.PremiseClause) bool {
	for _, item := range rule.Premise {
		if item.FieldNormalizedPath != clause.NormalizedPath {
			continue
		}
		if item.FieldNormalizedValue == clause.NormalizedValue {
			return true
		}
		for _, mapped := range clause.MappedValues {
			if strings.EqualFold(item.FieldNormalizedValue, mapped) {
				return true
			}
		}
	}
	return false
}

// ClausesSatisfied counts how many of the supplied clauses the rule
// satisfies.
func ClausesSatisfied(rule models.AssociationRule, clauses []models.PremiseClause) int {
	satisfied := 0
	for _, clause := range clauses {
		if ClauseSatisfied(rule, clause) {
			satisfied++
		}
	}
	return satisfied
}

// MatchesCriteria applies the full matching semantics of a structured rule
// query to one rule.
func MatchesCriteria(rule models.AssociationRule, c models.QueryCriteria) bool {
	if rule.ConsequenceSize != 1 || len(rule.Consequence) != 1 {
		return false
	}
	if rule.Consequence[0].FieldNormalizedPath != c.ConsequencePath {
		return false
	}
	if c.TemplateID != "" && rule.TemplateID != c.TemplateID {
		return false
	}
	if c.FilterByConfidence && rule.Confidence < c.MinConfidence {
		return false
	}
	if c.FilterBySupport && rule.Support < c.MinSupport {
		return false
	}
	switch c.MatchMode {
	case models.MatchModeStrict:
		if rule.PremiseSize != c.PremiseCount {
			return false
		}
		return ClausesSatisfied(rule, c.PremiseClauses) == len(c.PremiseClauses)
	default:
		// Flexible: premise size is a soft preference and any subset of the
		// clauses (including none) keeps the rule as a candidate; overlap is
		// rewarded by the match weight at ranking time.
		return true
	}
}
