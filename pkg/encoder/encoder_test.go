package encoder

import (
	"testing"

	"github.com/valuerec/valuerec-go/pkg/models"
)

func paths(dotPaths ...[]string) []models.FieldPath {
	out := make([]models.FieldPath, len(dotPaths))
	for i, keys := range dotPaths {
		out[i] = models.NewFieldPath(keys...)
	}
	return out
}

func TestEncodeInstanceScalars(t *testing.T) {
	record := map[string]any{
		"tissue":  "liver",
		"count":   float64(3),
		"treated": true,
	}
	fieldPaths := paths([]string{"tissue"}, []string{"count"}, []string{"treated"}, []string{"absent"})

	row := EncodeInstance(record, fieldPaths, Options{}, nil)

	expected := []string{"liver", "3", "true", "NA"}
	for i, want := range expected {
		if row[i] != want {
			t.Errorf("Column %d: expected %q, got %q", i, want, row[i])
		}
	}
}

func TestEncodeInstanceNestedAndAnnotated(t *testing.T) {
	record := map[string]any{
		"donor": map[string]any{
			"disease": map[string]any{
				"@id":   "http://purl.obolibrary.org/obo/DOID_162",
				"label": "cancer",
				"@type": "http://purl.obolibrary.org/obo/DOID_4",
			},
		},
	}
	fieldPaths := paths([]string{"donor", "disease"})

	catalog := NewValueCatalog()
	row := EncodeInstance(record, fieldPaths, Options{}, catalog)

	if row[0] != "http://purl.obolibrary.org/obo/DOID_162" {
		t.Fatalf("Annotated value should yield its identifier, got %q", row[0])
	}

	info, ok := catalog.Lookup(fieldPaths[0].NormalizedPath, row[0])
	if !ok {
		t.Fatal("Catalog should record the annotated value")
	}
	if info.Label != "cancer" {
		t.Errorf("Expected label cancer, got %q", info.Label)
	}
	if info.TypeURI != "http://purl.obolibrary.org/obo/DOID_4" {
		t.Errorf("Expected value type URI, got %q", info.TypeURI)
	}
}

func TestEncodeInstanceArrayTakesFirstElement(t *testing.T) {
	record := map[string]any{
		"samples": []any{
			map[string]any{"organism": "human"},
			map[string]any{"organism": "mouse"},
		},
	}
	fieldPaths := paths([]string{"samples", "organism"})

	row := EncodeInstance(record, fieldPaths, Options{}, nil)
	if row[0] != "human" {
		t.Errorf("Expected first array element, got %q", row[0])
	}
}

func TestEncodeInstanceValueWrapper(t *testing.T) {
	record := map[string]any{"age": map[string]any{"@value": "42"}}
	row := EncodeInstance(record, paths([]string{"age"}), Options{}, nil)
	if row[0] != "42" {
		t.Errorf("Expected 42, got %q", row[0])
	}
}

func TestEncodeInstanceCustomMissingMarker(t *testing.T) {
	row := EncodeInstance(map[string]any{}, paths([]string{"x"}), Options{MissingMarker: "?"}, nil)
	if row[0] != "?" {
		t.Errorf("Expected custom missing marker, got %q", row[0])
	}
}

func TestEscapeToken(t *testing.T) {
	if got := EscapeToken("O'Brien"); got != `O\'Brien` {
		t.Errorf("Expected escaped quote, got %q", got)
	}
}

func TestEncodeDataset(t *testing.T) {
	records := []map[string]any{
		{"tissue": "liver"},
		{"tissue": "blood"},
		{},
	}
	fieldPaths := paths([]string{"tissue"})

	rows, catalog := EncodeDataset(records, fieldPaths, Options{})
	if len(rows) != 3 {
		t.Fatalf("Expected 3 rows, got %d", len(rows))
	}
	if rows[2][0] != DefaultMissingMarker {
		t.Errorf("Expected missing marker in empty record, got %q", rows[2][0])
	}
	if _, ok := catalog.Lookup("TISSUE", "liver"); !ok {
		t.Error("Catalog should record observed tokens")
	}
}
