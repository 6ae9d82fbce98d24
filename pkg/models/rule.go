package models

// ConvictionUndefined is stored when a rule's confidence is exactly 1 and
// conviction has no finite value. Consumers treat it as maximal.
const ConvictionUndefined = -1

// RuleItem is one premise or consequence element of an association rule.
type RuleItem struct {
	FieldPath            string   `json:"fieldPath"`
	FieldNormalizedPath  string   `json:"fieldNormalizedPath"`
	FieldType            string   `json:"fieldType,omitempty"`
	FieldTypeMappings    []string `json:"fieldTypeMappings,omitempty"`
	FieldValueLabel      string   `json:"fieldValueLabel"`
	FieldValueType       string   `json:"fieldValueType,omitempty"`
	FieldNormalizedValue string   `json:"fieldNormalizedValue"`
	FieldValueMappings   []string `json:"fieldValueMappings,omitempty"`
}

// ValueID returns the ontology term identifier of the item's value, or ""
// when the value is a plain literal.
func (i RuleItem) ValueID() string {
	if IsTermURI(i.FieldNormalizedValue) {
		return i.FieldNormalizedValue
	}
	return ""
}

// AssociationRule is one mined rule. Rules are immutable after mining and
// replaced wholesale when their template is regenerated. Every stored rule
// has exactly one consequence item.
type AssociationRule struct {
	TemplateID      string     `json:"templateId"`
	Premise         []RuleItem `json:"premise"`
	Consequence     []RuleItem `json:"consequence"`
	Support         float64    `json:"support"`
	Confidence      float64    `json:"confidence"`
	Lift            float64    `json:"lift"`
	Leverage        float64    `json:"leverage"`
	Conviction      float64    `json:"conviction"`
	PremiseSize     int        `json:"premiseSize"`
	ConsequenceSize int        `json:"consequenceSize"`
}

// MatchMode selects how premise clauses constrain a rule query.
type MatchMode string

const (
	// MatchModeStrict requires the rule's premise size to equal the
	// requested count and every supplied clause to be satisfied.
	MatchModeStrict MatchMode = "strict"
	// MatchModeFlexible admits rules satisfying any subset of the supplied
	// clauses; overlap is rewarded at scoring time instead of filtered.
	MatchModeFlexible MatchMode = "flexible"
)

// PremiseClause is one populated-field condition of a rule query.
type PremiseClause struct {
	NormalizedPath  string   `json:"normalizedPath"`
	NormalizedValue string   `json:"normalizedValue"`
	MappedValues    []string `json:"mappedValues,omitempty"`
}

// QueryCriteria describes a structured rule store query. ConsequencePath is
// always required; the remaining filters are optional.
type QueryCriteria struct {
	TemplateID         string          `json:"templateId,omitempty"`
	FilterByConfidence bool            `json:"filterByConfidence"`
	MinConfidence      float64         `json:"minConfidence"`
	FilterBySupport    bool            `json:"filterBySupport"`
	MinSupport         float64         `json:"minSupport"`
	PremiseCount       int             `json:"premiseCount"`
	MatchMode          MatchMode       `json:"matchMode"`
	PremiseClauses     []PremiseClause `json:"premiseClauses,omitempty"`
	ConsequencePath    string          `json:"consequencePath"`
}
