package templatestore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/valuerec/valuerec-go/pkg/models"
	"github.com/valuerec/valuerec-go/pkg/schema"
)

// FileStore serves template schemas and instances from a directory tree:
//
//	<base>/templates/<templateID>.json        schema documents
//	<base>/instances/<templateID>/<id>.json   instance records
//
// It implements the generator's SchemaProvider and InstanceProvider.
type FileStore struct {
	basePath string
}

// NewFileStore opens a template/instance directory, creating the expected
// layout when absent.
func NewFileStore(basePath string) (*FileStore, error) {
	for _, dir := range []string{"templates", "instances"} {
		if err := os.MkdirAll(filepath.Join(basePath, dir), 0755); err != nil {
			return nil, fmt.Errorf("failed to create %s directory: %w", dir, err)
		}
	}
	return &FileStore{basePath: basePath}, nil
}

// GetSchema loads and parses a template's schema document.
func (fs *FileStore) GetSchema(ctx context.Context, templateID string) (*schema.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := filepath.Join(fs.basePath, "templates", templateID+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: template %s", models.ErrNotFound, templateID)
		}
		return nil, fmt.Errorf("failed to read template %s: %w", templateID, err)
	}
	return schema.ParseTemplate(data)
}

// ListTemplateIDs returns every template with a schema document, sorted.
func (fs *FileStore) ListTemplateIDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(filepath.Join(fs.basePath, "templates"))
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	var ids []string
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		ids = append(ids, strings.TrimSuffix(entry.Name(), ".json"))
	}
	sort.Strings(ids)
	return ids, nil
}

// ListInstanceIDs returns the instance identifiers recorded for a
// template, sorted. Identifiers are qualified with the template id so
// GetInstance can locate them without extra state.
func (fs *FileStore) ListInstanceIDs(ctx context.Context, templateID string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir := filepath.Join(fs.basePath, "instances", templateID)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list instances for template %s: %w", templateID, err)
	}
	var ids []string
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		ids = append(ids, templateID+"/"+strings.TrimSuffix(entry.Name(), ".json"))
	}
	sort.Strings(ids)
	return ids, nil
}

// GetInstance loads one raw instance record by its qualified identifier.
func (fs *FileStore) GetInstance(ctx context.Context, instanceID string) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	templateID, name, ok := strings.Cut(instanceID, "/")
	if !ok {
		return nil, fmt.Errorf("%w: malformed instance id %q", models.ErrInvalidInput, instanceID)
	}
	path := filepath.Join(fs.basePath, "instances", templateID, name+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: instance %s", models.ErrNotFound, instanceID)
		}
		return nil, fmt.Errorf("failed to read instance %s: %w", instanceID, err)
	}
	var record map[string]any
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("%w: decoding instance %s: %v", models.ErrInvalidInput, instanceID, err)
	}
	return record, nil
}

// SaveTemplate writes a template schema document. Used by tests and
// seeding tools.
func (fs *FileStore) SaveTemplate(templateID string, root *schema.Node) error {
	data, err := json.MarshalIndent(root, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode template %s: %w", templateID, err)
	}
	path := filepath.Join(fs.basePath, "templates", templateID+".json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write template %s: %w", templateID, err)
	}
	return nil
}

// SaveInstance writes one instance record for a template.
func (fs *FileStore) SaveInstance(templateID, name string, record map[string]any) error {
	dir := filepath.Join(fs.basePath, "instances", templateID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create instance directory: %w", err)
	}
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode instance %s: %w", name, err)
	}
	if err := os.WriteFile(filepath.Join(dir, name+".json"), data, 0644); err != nil {
		return fmt.Errorf("failed to write instance %s: %w", name, err)
	}
	return nil
}
