package template

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pmezard/go-difflib/difflib"

	"miladyos/internal/api"
	"miladyos/pkg/logging"
)

const templateSuffix = ".Jenkinsfile"

// Manager implements the template registry over the templates
// directory and the metadata store.
type Manager struct {
	templatesDir string
	store        api.MetadataStoreHandler
}

// NewManager creates a template manager rooted at templatesDir.
func NewManager(templatesDir string, store api.MetadataStoreHandler) *Manager {
	return &Manager{
		templatesDir: templatesDir,
		store:        store,
	}
}

// Path returns the on-disk location for a template name.
func (m *Manager) Path(name string) string {
	return filepath.Join(m.templatesDir, name+templateSuffix)
}

// ReadJenkinsfile returns the Jenkinsfile text for a template.
func (m *Manager) ReadJenkinsfile(name string) (string, error) {
	content, err := os.ReadFile(m.Path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return "", api.NewJenkinsfileNotFoundError(name)
		}
		return "", fmt.Errorf("reading jenkinsfile for %s: %w", name, err)
	}
	logging.Debug("TemplateRegistry", "Read Jenkinsfile for template %s (%d bytes)", name, len(content))
	return string(content), nil
}

// WriteJenkinsfile writes the Jenkinsfile atomically: the content goes
// to a temp file in the same directory which is then renamed over the
// target, so a concurrent reader never sees a half-written template.
func (m *Manager) WriteJenkinsfile(name, content string) error {
	if err := os.MkdirAll(m.templatesDir, 0755); err != nil {
		return fmt.Errorf("creating templates directory %s: %w", m.templatesDir, err)
	}

	tmp, err := os.CreateTemp(m.templatesDir, "."+name+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file for %s: %w", name, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.WriteString(content); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing temp file for %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file for %s: %w", name, err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return fmt.Errorf("setting permissions for %s: %w", name, err)
	}
	if err := os.Rename(tmpName, m.Path(name)); err != nil {
		return fmt.Errorf("replacing jenkinsfile for %s: %w", name, err)
	}
	return nil
}

// CreateTemplate scaffolds a Jenkinsfile from the request's description
// and registers it in the catalog.
func (m *Manager) CreateTemplate(ctx context.Context, req api.CreateTemplateRequest) (*api.TemplateRecord, error) {
	if req.Name == "" {
		return nil, api.NewMissingArgError("template_name")
	}
	if req.Description == "" {
		return nil, api.NewMissingArgError("description")
	}

	content := GenerateJenkinsfile(req.Name, req.Description, req.Agent, req.Environment)
	if err := m.WriteJenkinsfile(req.Name, content); err != nil {
		return nil, err
	}

	record, err := m.store.RegisterTemplate(ctx, req.Name, req.Description)
	if err != nil {
		// The file landed; the next reconciliation picks it up.
		logging.Error("TemplateRegistry", err, "Could not register template %s in the catalog", req.Name)
		return &api.TemplateRecord{
			Name:         req.Name,
			Description:  req.Description,
			TemplatePath: m.Path(req.Name),
			Version:      1,
		}, nil
	}

	logging.Info("TemplateRegistry", "Created template %s (version %d)", req.Name, record.Version)
	return record, nil
}

// EditTemplate replaces a template's content. With DiffPreview set it
// returns the unified diff without writing anything; otherwise it
// writes the new text and bumps the version, routing through the
// description update when one was supplied.
func (m *Manager) EditTemplate(ctx context.Context, req api.EditTemplateRequest) (*api.EditResult, error) {
	if req.Name == "" {
		return nil, api.NewMissingArgError("template_name")
	}
	if req.Content == "" {
		return nil, api.NewMissingArgError("content")
	}

	existing, err := m.ReadJenkinsfile(req.Name)
	if err != nil {
		return nil, err
	}

	diff, err := unifiedDiff(req.Name, existing, req.Content)
	if err != nil {
		logging.Warn("TemplateRegistry", "Could not build diff for %s: %v", req.Name, err)
	}

	if req.DiffPreview {
		return &api.EditResult{
			Status:  "preview",
			Name:    req.Name,
			Diff:    diff,
			Message: "Diff preview generated",
		}, nil
	}

	if err := m.WriteJenkinsfile(req.Name, req.Content); err != nil {
		return nil, err
	}

	var record *api.TemplateRecord
	if req.Description != "" {
		record, err = m.store.UpdateTemplate(ctx, req.Name, req.Description)
	} else {
		record, err = m.store.IncrementTemplateVersion(ctx, req.Name)
	}
	if err != nil {
		logging.Error("TemplateRegistry", err, "Template %s was written but the catalog update failed", req.Name)
		return &api.EditResult{
			Status:  "updated",
			Name:    req.Name,
			Diff:    diff,
			Message: fmt.Sprintf("Template %s updated, but the catalog could not be refreshed", req.Name),
		}, nil
	}

	return &api.EditResult{
		Status:  "updated",
		Name:    req.Name,
		Diff:    diff,
		Version: record.Version,
		Message: fmt.Sprintf("Template %s updated successfully", req.Name),
	}, nil
}

// ListTemplates reconciles the catalog against the directory and
// returns the surviving entries.
func (m *Manager) ListTemplates(ctx context.Context) ([]api.TemplateSummary, error) {
	return m.store.ListTemplates(ctx)
}

// unifiedDiff renders the change between the stored and the proposed
// Jenkinsfile text.
func unifiedDiff(name, before, after string) (string, error) {
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(before),
		B:        difflib.SplitLines(after),
		FromFile: name + templateSuffix + " (original)",
		ToFile:   name + templateSuffix + " (edited)",
		Context:  3,
	})
}
