package encoder

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/valuerec/valuerec-go/pkg/models"
)

// DefaultMissingMarker stands in for unresolved paths in encoded rows.
const DefaultMissingMarker = "NA"

// Options configures instance encoding.
type Options struct {
	MissingMarker string
}

func (o Options) missing() string {
	if o.MissingMarker == "" {
		return DefaultMissingMarker
	}
	return o.MissingMarker
}

// ValueInfo describes one observed value token: the display label and, for
// annotated values, the concept URI of the value.
type ValueInfo struct {
	Label   string
	TypeURI string
}

// ValueCatalog records the label and type of every token observed while
// encoding, keyed by normalized field path. The miner works on bare tokens;
// the catalog restores their display form afterwards.
type ValueCatalog struct {
	byPath map[string]map[string]ValueInfo
}

// NewValueCatalog creates an empty catalog.
func NewValueCatalog() *ValueCatalog {
	return &ValueCatalog{byPath: make(map[string]map[string]ValueInfo)}
}

// Lookup returns the recorded info for a token at a normalized path.
func (c *ValueCatalog) Lookup(normalizedPath, token string) (ValueInfo, bool) {
	if c == nil {
		return ValueInfo{}, false
	}
	info, ok := c.byPath[normalizedPath][token]
	return info, ok
}

func (c *ValueCatalog) record(normalizedPath, token string, info ValueInfo) {
	col, ok := c.byPath[normalizedPath]
	if !ok {
		col = make(map[string]ValueInfo)
		c.byPath[normalizedPath] = col
	}
	if _, seen := col[token]; !seen {
		col[token] = info
	}
}

// EncodeInstance flattens one raw record into a categorical row aligned
// with the field path list. Annotated values yield their term identifier,
// plain scalars their string form, unresolved paths the missing marker.
func EncodeInstance(record map[string]any, paths []models.FieldPath, opts Options, catalog *ValueCatalog) []string {
	row := make([]string, len(paths))
	for i, path := range paths {
		token, info, ok := resolvePath(record, path.Keys)
		if !ok {
			row[i] = opts.missing()
			continue
		}
		token = EscapeToken(token)
		row[i] = token
		if catalog != nil {
			catalog.record(path.NormalizedPath, token, info)
		}
	}
	return row
}

// EncodeDataset encodes many records into rows plus the shared value
// catalog for the batch.
func EncodeDataset(records []map[string]any, paths []models.FieldPath, opts Options) ([][]string, *ValueCatalog) {
	catalog := NewValueCatalog()
	rows := make([][]string, len(records))
	for i, record := range records {
		rows[i] = EncodeInstance(record, paths, opts, catalog)
	}
	return rows, catalog
}

// EscapeToken escapes the field delimiter quote character so values are
// safe as mining tokens.
func EscapeToken(s string) string {
	return strings.ReplaceAll(s, "'", `\'`)
}

// resolvePath follows keys through the nested record. Arrays are resolved
// to their first element. The boolean reports whether a usable value was
// found.
func resolvePath(node any, keys []string) (string, ValueInfo, bool) {
	current := node
	for _, key := range keys {
		current = firstElement(current)
		obj, ok := current.(map[string]any)
		if !ok {
			return "", ValueInfo{}, false
		}
		current, ok = obj[key]
		if !ok {
			return "", ValueInfo{}, false
		}
	}
	return literalValue(firstElement(current))
}

func firstElement(v any) any {
	if arr, ok := v.([]any); ok {
		if len(arr) == 0 {
			return nil
		}
		return arr[0]
	}
	return v
}

// literalValue extracts the mining token from a resolved node. Annotated
// ontology-term values ({"@id": ..., "label": ...}) yield the identifier;
// plain value wrappers ({"@value": ...}) and scalars yield their string
// form.
func literalValue(v any) (string, ValueInfo, bool) {
	switch node := v.(type) {
	case nil:
		return "", ValueInfo{}, false
	case map[string]any:
		if id, ok := node["@id"].(string); ok && id != "" {
			info := ValueInfo{Label: id}
			if label, ok := node["label"].(string); ok && label != "" {
				info.Label = label
			}
			if typeURI, ok := node["@type"].(string); ok {
				info.TypeURI = typeURI
			}
			return id, info, true
		}
		if value, ok := node["@value"]; ok {
			return literalValue(value)
		}
		return "", ValueInfo{}, false
	case string:
		if node == "" {
			return "", ValueInfo{}, false
		}
		return node, ValueInfo{Label: node}, true
	case bool:
		s := strconv.FormatBool(node)
		return s, ValueInfo{Label: s}, true
	case float64:
		s := strconv.FormatFloat(node, 'f', -1, 64)
		return s, ValueInfo{Label: s}, true
	case int:
		s := strconv.Itoa(node)
		return s, ValueInfo{Label: s}, true
	default:
		s := fmt.Sprintf("%v", node)
		return s, ValueInfo{Label: s}, true
	}
}
