package models

import "fmt"

// RecommendationType tags whether a recommended value was derived from the
// populated context or from context-free rule frequency alone.
type RecommendationType string

const (
	RecommendationContextIndependent RecommendationType = "context_independent"
	RecommendationContextDependent   RecommendationType = "context_dependent"
)

// RecommendedValue is one ranked candidate for the target field.
type RecommendedValue struct {
	ValueLabel string             `json:"valueLabel"`
	ValueID    string             `json:"valueId,omitempty"`
	Score      float64            `json:"score"`
	Confidence float64            `json:"confidence"`
	Support    float64            `json:"support"`
	Type       RecommendationType `json:"type"`
}

// Recommendation is the ranked answer for a target field, highest first.
type Recommendation struct {
	TargetFieldPath   string             `json:"targetFieldPath"`
	RecommendedValues []RecommendedValue `json:"recommendedValues"`
}

// PopulatedField is one already-filled field of the partial record. Value
// holds either a literal or an ontology term identifier; ValueType carries
// the concept URI of annotated values when known.
type PopulatedField struct {
	FieldPath string `json:"fieldPath"`
	Value     string `json:"value"`
	ValueType string `json:"valueType,omitempty"`
}

// RecommendationRequest is the input of the recommend operation.
type RecommendationRequest struct {
	TemplateID      string           `json:"templateId,omitempty"`
	PopulatedFields []PopulatedField `json:"populatedFields"`
	TargetField     string           `json:"targetField"`
	StrictMatch     bool             `json:"strictMatch"`
	UseMappings     bool             `json:"useMappings"`
}

// Validate checks the request shape.
func (r *RecommendationRequest) Validate() error {
	if r.TargetField == "" {
		return fmt.Errorf("%w: target field is required", ErrInvalidInput)
	}
	for i, f := range r.PopulatedFields {
		if f.FieldPath == "" {
			return fmt.Errorf("%w: populated field %d has no field path", ErrInvalidInput, i)
		}
	}
	return nil
}
