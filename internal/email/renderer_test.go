package email

import (
	"bytes"
	"context"
	"testing"

	"github.com/straye-as/enquiry-api/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRenderer_EmbeddedTemplate(t *testing.T) {
	r, err := NewRenderer(nil, zap.NewNop())
	require.NoError(t, err)

	html, err := r.Render(context.Background(), "daily_digest", &TemplateData{
		Title:         "Daily CRM Summary",
		RecipientName: "Kari",
		Message:       "Here is your summary.",
		Data:          map[string]any{"new_enquiries": 3, "follow_ups_today": 1, "overdue_follow_ups": 0},
	})

	require.NoError(t, err)
	assert.Contains(t, html, "Daily CRM Summary")
	assert.Contains(t, html, "Hello Kari")
	assert.Contains(t, html, "New enquiries today")
}

func TestRenderer_UnknownTemplateFallsBackToGeneric(t *testing.T) {
	r, err := NewRenderer(nil, zap.NewNop())
	require.NoError(t, err)

	html, err := r.Render(context.Background(), "does_not_exist", &TemplateData{Title: "T", Message: "plain <b>text</b>"})

	require.NoError(t, err)
	assert.Contains(t, html, "plain &lt;b&gt;text&lt;/b&gt;")
}

func TestRenderer_StorageOverride(t *testing.T) {
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	body := []byte(`{{define "content"}}<p>Custom: {{.Message}}</p>{{end}}`)
	_, err = store.Put(ctx, storage.TemplateKey("new_lead"), "text/html", bytes.NewReader(body))
	require.NoError(t, err)

	r, err := NewRenderer(store, zap.NewNop())
	require.NoError(t, err)

	html, err := r.Render(ctx, "new_lead", &TemplateData{Title: "New Enquiry: Jane", Message: "hello"})
	require.NoError(t, err)
	assert.Contains(t, html, "Custom: hello")

	// Templates without an override still render the built-in body
	html, err = r.Render(ctx, "user_welcome", &TemplateData{Title: "Welcome", Message: "hi"})
	require.NoError(t, err)
	assert.Contains(t, html, "notification preferences")
}

func TestRenderer_Validate(t *testing.T) {
	r, err := NewRenderer(nil, zap.NewNop())
	require.NoError(t, err)

	assert.NoError(t, r.Validate([]byte(`{{define "content"}}ok{{end}}`)))
	assert.Error(t, r.Validate([]byte(`{{define "content"}}{{.Broken`)))
	assert.Error(t, r.Validate([]byte(`<p>no content block</p>`)))
}
