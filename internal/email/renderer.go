package email

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"

	"github.com/straye-as/enquiry-api/internal/storage"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	layoutFile      = "templates/base.html"
	fallbackContent = "generic"
)

// TemplateData is passed to every email template
type TemplateData struct {
	Title         string
	Message       string
	RecipientName string
	ActionURL     string
	ActionLabel   string
	Data          map[string]any
	Source        any
}

// Renderer renders notification emails. A template stored under
// storage.TemplateKey(name) takes precedence over the embedded one.
type Renderer struct {
	layout    *template.Template
	overrides storage.Storage
	logger    *zap.Logger
}

func NewRenderer(overrides storage.Storage, logger *zap.Logger) (*Renderer, error) {
	layout, err := template.New("base.html").ParseFS(templateFS, layoutFile)
	if err != nil {
		return nil, fmt.Errorf("parse email layout: %w", err)
	}
	return &Renderer{
		layout:    layout,
		overrides: overrides,
		logger:    logger,
	}, nil
}

// Render executes the named template inside the shared layout
func (r *Renderer) Render(ctx context.Context, name string, data *TemplateData) (string, error) {
	content, err := r.content(ctx, name)
	if err != nil {
		return "", err
	}

	tmpl, err := r.parse(content)
	if err != nil {
		return "", fmt.Errorf("parse email template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "email", data); err != nil {
		return "", fmt.Errorf("execute email template %s: %w", name, err)
	}
	return buf.String(), nil
}

// Validate reports whether body parses as a content template
func (r *Renderer) Validate(body []byte) error {
	_, err := r.parse(body)
	return err
}

func (r *Renderer) parse(content []byte) (*template.Template, error) {
	tmpl, err := r.layout.Clone()
	if err != nil {
		return nil, err
	}
	tmpl, err = tmpl.Parse(string(content))
	if err != nil {
		return nil, err
	}
	if tmpl.Lookup("content") == nil {
		return nil, errors.New(`template must define "content"`)
	}
	return tmpl, nil
}

func (r *Renderer) content(ctx context.Context, name string) ([]byte, error) {
	if r.overrides != nil && name != "" {
		body, err := r.override(ctx, name)
		if err == nil {
			return body, nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			r.logger.Warn("failed to read template override, using built-in template",
				zap.String("template", name),
				zap.Error(err))
		}
	}

	body, err := fs.ReadFile(templateFS, "templates/"+name+".html")
	if err == nil && name != "" {
		return body, nil
	}
	return fs.ReadFile(templateFS, "templates/"+fallbackContent+".html")
}

func (r *Renderer) override(ctx context.Context, name string) ([]byte, error) {
	rc, err := r.overrides.Get(ctx, storage.TemplateKey(name))
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
