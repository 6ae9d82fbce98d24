package miner

import (
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/valuerec/valuerec-go/pkg/models"
)

// Default thresholds applied when an Options field is zero.
const (
	DefaultMinSupport    = 0.05
	DefaultMinConfidence = 0.25
	DefaultMaxRules      = 500
	DefaultMissingMarker = "NA"
)

// Options holds the mining thresholds and cap.
type Options struct {
	MinSupport    float64
	MinConfidence float64
	MaxRules      int
	MissingMarker string
}

func (o Options) withDefaults() Options {
	if o.MinSupport <= 0 {
		o.MinSupport = DefaultMinSupport
	}
	if o.MinConfidence <= 0 {
		o.MinConfidence = DefaultMinConfidence
	}
	if o.MaxRules <= 0 {
		o.MaxRules = DefaultMaxRules
	}
	if o.MissingMarker == "" {
		o.MissingMarker = DefaultMissingMarker
	}
	return o
}

// Summary reports what a mining run saw and produced. The quantile digests
// feed the post-run log line.
type Summary struct {
	Transactions     int     `json:"transactions"`
	Items            int     `json:"items"`
	FrequentItemsets int     `json:"frequentItemsets"`
	CandidateRules   int     `json:"candidateRules"`
	Rules            int     `json:"rules"`
	MedianSupport    float64 `json:"medianSupport"`
	MedianConfidence float64 `json:"medianConfidence"`
	P90Confidence    float64 `json:"p90Confidence"`
}

// Mine runs the full pipeline over one template's encoded dataset: nominal
// coercion, Apriori frequent-itemset search, rule generation over every
// non-empty premise/consequence split, metric computation, the
// single-consequence filter, and truncation to the rule cap. It is a pure
// function of its inputs and its output order is deterministic.
func Mine(dataset [][]string, fields []models.FieldPath, templateID string, opts Options) ([]models.AssociationRule, Summary, error) {
	opts = opts.withDefaults()

	summary := Summary{Transactions: len(dataset)}
	if len(dataset) == 0 || len(fields) == 0 {
		return nil, summary, nil
	}

	transactions, table, itemCounts := internDataset(dataset, opts.MissingMarker)
	summary.Items = len(table)

	total := len(transactions)
	minCount := int(math.Ceil(opts.MinSupport * float64(total)))
	if minCount < 1 {
		minCount = 1
	}

	frequent := frequentItemsets(transactions, itemCounts, minCount)
	summary.FrequentItemsets = len(frequent)

	counts := make(map[string]int, len(frequent))
	for _, set := range frequent {
		counts[itemsetKey(set.items)] = set.count
	}

	rules := generateRules(frequent, counts, table, fields, templateID, total, opts, &summary)
	sortRules(rules)
	if len(rules) > opts.MaxRules {
		rules = rules[:opts.MaxRules]
	}
	summary.Rules = len(rules)
	summarizeMetrics(rules, &summary)
	return rules, summary, nil
}

// generateRules emits every premise => consequence split of each frequent
// itemset that clears the confidence threshold, then discards rules whose
// consequence holds more than one item.
func generateRules(frequent []itemset, counts map[string]int, table []item, fields []models.FieldPath, templateID string, total int, opts Options, summary *Summary) []models.AssociationRule {
	var rules []models.AssociationRule
	premise := make([]int, 0, 16)
	consequence := make([]int, 0, 16)

	for _, set := range frequent {
		n := len(set.items)
		if n < 2 || n > 30 {
			continue
		}
		fullSupport := float64(set.count) / float64(total)

		for mask := 1; mask < (1<<n)-1; mask++ {
			premise = premise[:0]
			consequence = consequence[:0]
			for k := 0; k < n; k++ {
				if mask&(1<<k) != 0 {
					premise = append(premise, set.items[k])
				} else {
					consequence = append(consequence, set.items[k])
				}
			}
			premiseCount, ok := counts[itemsetKey(premise)]
			if !ok || premiseCount == 0 {
				continue
			}
			confidence := float64(set.count) / float64(premiseCount)
			if confidence < opts.MinConfidence {
				continue
			}
			summary.CandidateRules++
			if len(consequence) != 1 {
				continue
			}

			consequenceCount := counts[itemsetKey(consequence)]
			consequenceSupport := float64(consequenceCount) / float64(total)
			premiseSupport := float64(premiseCount) / float64(total)

			rule := models.AssociationRule{
				TemplateID:      templateID,
				Premise:         buildItems(premise, table, fields),
				Consequence:     buildItems(consequence, table, fields),
				Support:         fullSupport,
				Confidence:      confidence,
				Lift:            0,
				Leverage:        fullSupport - premiseSupport*consequenceSupport,
				Conviction:      conviction(consequenceSupport, confidence),
				PremiseSize:     len(premise),
				ConsequenceSize: 1,
			}
			if consequenceSupport > 0 {
				rule.Lift = confidence / consequenceSupport
			}
			rules = append(rules, rule)
		}
	}
	return rules
}

// conviction computes (1 - support(consequence)) / (1 - confidence), with
// the undefined sentinel when confidence is exactly 1.
func conviction(consequenceSupport, confidence float64) float64 {
	if confidence >= 1 {
		return models.ConvictionUndefined
	}
	return (1 - consequenceSupport) / (1 - confidence)
}

func buildItems(ids []int, table []item, fields []models.FieldPath) []models.RuleItem {
	items := make([]models.RuleItem, len(ids))
	for i, id := range ids {
		it := table[id]
		path := fields[it.col]
		items[i] = models.RuleItem{
			FieldPath:            path.DotPath,
			FieldNormalizedPath:  path.NormalizedPath,
			FieldValueLabel:      it.token,
			FieldNormalizedValue: models.NormalizeValue(it.token),
		}
	}
	return items
}

// sortRules orders by confidence then support descending (the overflow
// preference) with a stable textual tiebreak so output is deterministic.
func sortRules(rules []models.AssociationRule) {
	sort.Slice(rules, func(i, j int) bool {
		a, b := rules[i], rules[j]
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if a.Support != b.Support {
			return a.Support > b.Support
		}
		if a.PremiseSize != b.PremiseSize {
			return a.PremiseSize < b.PremiseSize
		}
		return ruleKey(a) < ruleKey(b)
	})
}

func ruleKey(r models.AssociationRule) string {
	var b strings.Builder
	for _, it := range r.Premise {
		b.WriteString(it.FieldNormalizedPath)
		b.WriteByte('=')
		b.WriteString(it.FieldNormalizedValue)
		b.WriteByte('|')
	}
	b.WriteByte('>')
	for _, it := range r.Consequence {
		b.WriteString(it.FieldNormalizedPath)
		b.WriteByte('=')
		b.WriteString(it.FieldNormalizedValue)
	}
	return b.String()
}

func summarizeMetrics(rules []models.AssociationRule, summary *Summary) {
	if len(rules) == 0 {
		return
	}
	supports := make([]float64, len(rules))
	confidences := make([]float64, len(rules))
	for i, r := range rules {
		supports[i] = r.Support
		confidences[i] = r.Confidence
	}
	sort.Float64s(supports)
	sort.Float64s(confidences)
	summary.MedianSupport = stat.Quantile(0.5, stat.Empirical, supports, nil)
	summary.MedianConfidence = stat.Quantile(0.5, stat.Empirical, confidences, nil)
	summary.P90Confidence = stat.Quantile(0.9, stat.Empirical, confidences, nil)
}
