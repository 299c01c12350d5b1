// Package render produces the node configuration artifacts attached to
// each deployed train job. Every experiment kind has its own template; a
// task whose kind has no template cannot be rendered.
package render

import (
	"path/filepath"
	"strings"
	"text/template"

	"github.com/pkg/errors"

	"github.com/fltkube/fltkube/internal/orchestrator/task"
)

const (
	federatedTemplate   = "node.yaml.tmpl"
	distributedTemplate = "dist_node.yaml.tmpl"
)

type Renderer interface {
	Render(t *task.TrainTask, role string, replication int, experimentPath string) (string, error)
}

type templateData struct {
	Task           *task.TrainTask
	Role           string
	Replication    int
	ExperimentPath string
}

// TemplateRenderer renders node configurations from the templates directory.
type TemplateRenderer struct {
	templates *template.Template
}

func NewTemplateRenderer(templatesPath string) (*TemplateRenderer, error) {
	templates, err := template.ParseGlob(filepath.Join(templatesPath, "*.tmpl"))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load node templates from %s", templatesPath)
	}
	return &TemplateRenderer{templates: templates}, nil
}

func (r *TemplateRenderer) Render(t *task.TrainTask, role string, replication int, experimentPath string) (string, error) {
	name, err := templateName(t.Kind)
	if err != nil {
		return "", err
	}
	tmpl := r.templates.Lookup(name)
	if tmpl == nil {
		return "", errors.Errorf("no template %s for task kind %q", name, t.Kind)
	}

	var builder strings.Builder
	data := templateData{Task: t, Role: role, Replication: replication, ExperimentPath: experimentPath}
	if err := tmpl.Execute(&builder, data); err != nil {
		return "", errors.Wrapf(err, "failed to render %s for task %s", name, t.ID)
	}
	return builder.String(), nil
}

func templateName(kind task.Kind) (string, error) {
	switch kind {
	case task.KindFederated:
		return federatedTemplate, nil
	case task.KindDistributed:
		return distributedTemplate, nil
	default:
		return "", errors.Wrapf(task.ErrUnknownExperimentKind, "cannot render task of kind %q", kind)
	}
}
