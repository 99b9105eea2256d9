package metadata

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"

	"miladyos/internal/api"
	"miladyos/pkg/logging"
)

const (
	templateSuffix     = ".Jenkinsfile"
	descriptionMarker  = "// Description:"
	defaultDescription = "No description provided"
)

// TemplatePath returns the on-disk path for a template name.
func (s *Store) TemplatePath(name string) string {
	return filepath.Join(s.templatesDir, name+templateSuffix)
}

// RegisterTemplate records a template whose Jenkinsfile already exists
// on disk. When description is empty it is extracted from the file's
// "// Description:" line. Re-registering an existing template bumps the
// version and preserves created_at.
func (s *Store) RegisterTemplate(ctx context.Context, name, description string) (*api.TemplateRecord, error) {
	path := s.TemplatePath(name)
	if _, err := os.Stat(path); err != nil {
		return nil, api.NewJenkinsfileNotFoundError(name)
	}

	if description == "" {
		description = extractDescription(path)
	}

	key := templateKey(name)
	existing, err := s.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, api.NewStoreError("register template", err)
	}

	now := nowISO()
	record := &api.TemplateRecord{
		Name:         name,
		Description:  description,
		TemplatePath: path,
		CreatedAt:    now,
		UpdatedAt:    now,
		Version:      1,
	}
	if len(existing) > 0 {
		if createdAt := existing["created_at"]; createdAt != "" {
			record.CreatedAt = createdAt
		}
		if version, err := strconv.Atoi(existing["version"]); err == nil {
			record.Version = version + 1
		}
	}

	if err := s.rdb.HSet(ctx, key, templateToHash(record)).Err(); err != nil {
		return nil, api.NewStoreError("register template", err)
	}
	if err := s.rdb.ZAdd(ctx, templatesKey, redis.Z{Score: nowScore(), Member: name}).Err(); err != nil {
		logging.Warn("Metadata", "Could not index template %s in catalog: %v", name, err)
	}

	logging.Info("Metadata", "Registered template %s (version %d)", name, record.Version)
	return record, nil
}

// GetTemplate returns the stored record for a template.
func (s *Store) GetTemplate(ctx context.Context, name string) (*api.TemplateRecord, error) {
	fields, err := s.rdb.HGetAll(ctx, templateKey(name)).Result()
	if err != nil {
		return nil, api.NewStoreError("get template", err)
	}
	if len(fields) == 0 {
		return nil, api.NewTemplateNotFoundError(name)
	}
	return templateFromHash(name, fields), nil
}

// ListTemplates reconciles the catalog against the templates directory
// and returns the surviving entries. The filesystem is authoritative:
// files without a record are registered, records without a file are
// removed.
func (s *Store) ListTemplates(ctx context.Context) ([]api.TemplateSummary, error) {
	onDisk, err := s.scanTemplateFiles()
	if err != nil {
		return nil, err
	}

	registered, err := s.rdb.ZRange(ctx, templatesKey, 0, -1).Result()
	if err != nil {
		return nil, api.NewStoreError("list templates", err)
	}
	known := make(map[string]struct{}, len(registered))
	for _, name := range registered {
		known[name] = struct{}{}
	}

	for name := range onDisk {
		if _, ok := known[name]; ok {
			continue
		}
		if _, err := s.RegisterTemplate(ctx, name, ""); err != nil {
			logging.Warn("Metadata", "Could not register discovered template %s: %v", name, err)
		}
	}

	for _, name := range registered {
		if _, ok := onDisk[name]; ok {
			continue
		}
		if err := s.rdb.Del(ctx, templateKey(name)).Err(); err != nil {
			logging.Warn("Metadata", "Could not delete record for removed template %s: %v", name, err)
		}
		if err := s.rdb.ZRem(ctx, templatesKey, name).Err(); err != nil {
			logging.Warn("Metadata", "Could not deindex removed template %s: %v", name, err)
		}
		logging.Info("Metadata", "Removed template %s, Jenkinsfile is gone", name)
	}

	names, err := s.rdb.ZRange(ctx, templatesKey, 0, -1).Result()
	if err != nil {
		return nil, api.NewStoreError("list templates", err)
	}

	summaries := make([]api.TemplateSummary, 0, len(names))
	for _, name := range names {
		fields, err := s.rdb.HGetAll(ctx, templateKey(name)).Result()
		if err != nil {
			logging.Warn("Metadata", "Could not read template %s: %v", name, err)
			continue
		}
		if len(fields) == 0 {
			continue
		}
		record := templateFromHash(name, fields)
		summaries = append(summaries, api.TemplateSummary{
			Name:        record.Name,
			Description: record.Description,
			Version:     record.Version,
			UpdatedAt:   record.UpdatedAt,
		})
	}
	return summaries, nil
}

// UpdateTemplate replaces the description, bumps the version and
// rewrites the description line inside the Jenkinsfile. File rewrite
// failures are logged but do not fail the store update.
func (s *Store) UpdateTemplate(ctx context.Context, name, description string) (*api.TemplateRecord, error) {
	record, err := s.GetTemplate(ctx, name)
	if err != nil {
		return nil, err
	}

	record.Description = description
	record.UpdatedAt = nowISO()
	record.Version++

	if err := s.rdb.HSet(ctx, templateKey(name), map[string]interface{}{
		"description": record.Description,
		"updated_at":  record.UpdatedAt,
		"version":     strconv.Itoa(record.Version),
	}).Err(); err != nil {
		return nil, api.NewStoreError("update template", err)
	}
	if err := s.rdb.ZAdd(ctx, templatesKey, redis.Z{Score: nowScore(), Member: name}).Err(); err != nil {
		logging.Warn("Metadata", "Could not refresh catalog score for %s: %v", name, err)
	}

	if err := rewriteDescriptionLine(record.TemplatePath, description); err != nil {
		logging.Warn("Metadata", "Could not rewrite description in %s: %v", record.TemplatePath, err)
	}

	logging.Info("Metadata", "Updated template %s to version %d", name, record.Version)
	return record, nil
}

// IncrementTemplateVersion bumps the version without touching the
// description.
func (s *Store) IncrementTemplateVersion(ctx context.Context, name string) (*api.TemplateRecord, error) {
	record, err := s.GetTemplate(ctx, name)
	if err != nil {
		return nil, err
	}

	record.UpdatedAt = nowISO()
	record.Version++

	if err := s.rdb.HSet(ctx, templateKey(name), map[string]interface{}{
		"updated_at": record.UpdatedAt,
		"version":    strconv.Itoa(record.Version),
	}).Err(); err != nil {
		return nil, api.NewStoreError("increment template version", err)
	}
	if err := s.rdb.ZAdd(ctx, templatesKey, redis.Z{Score: nowScore(), Member: name}).Err(); err != nil {
		logging.Warn("Metadata", "Could not refresh catalog score for %s: %v", name, err)
	}

	logging.Info("Metadata", "Template %s is now version %d", name, record.Version)
	return record, nil
}

func (s *Store) scanTemplateFiles() (map[string]struct{}, error) {
	entries, err := os.ReadDir(s.templatesDir)
	if err != nil {
		if os.IsNotExist(err) {
			logging.Warn("Metadata", "Templates directory %s does not exist", s.templatesDir)
			return map[string]struct{}{}, nil
		}
		return nil, fmt.Errorf("scanning templates directory %s: %w", s.templatesDir, err)
	}

	names := make(map[string]struct{})
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), templateSuffix) {
			continue
		}
		names[strings.TrimSuffix(entry.Name(), templateSuffix)] = struct{}{}
	}
	return names, nil
}

// extractDescription pulls the text after the "// Description:" marker
// from the first line that carries one.
func extractDescription(path string) string {
	content, err := os.ReadFile(path)
	if err != nil {
		logging.Warn("Metadata", "Could not read %s for description: %v", path, err)
		return defaultDescription
	}
	for _, line := range strings.Split(string(content), "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, descriptionMarker) {
			if desc := strings.TrimSpace(trimmed[len(descriptionMarker):]); desc != "" {
				return desc
			}
		}
	}
	return defaultDescription
}

// rewriteDescriptionLine replaces the existing description line, or
// inserts one after the leading comment line when none exists.
func rewriteDescriptionLine(path, description string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	lines := strings.Split(string(content), "\n")
	descLine := descriptionMarker + " " + description

	replaced := false
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), descriptionMarker) {
			lines[i] = descLine
			replaced = true
			break
		}
	}
	if !replaced {
		if len(lines) > 0 && strings.HasPrefix(strings.TrimSpace(lines[0]), "//") {
			lines = append(lines[:1], append([]string{descLine}, lines[1:]...)...)
		} else {
			lines = append([]string{descLine}, lines...)
		}
	}

	return os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0644)
}
