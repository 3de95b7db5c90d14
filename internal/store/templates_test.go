package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/prospect-cli/internal/model"
)

func TestDefaultTemplates(t *testing.T) {
	templates, err := DefaultTemplates()
	require.NoError(t, err)
	require.NotEmpty(t, templates)

	seen := make(map[string]bool)
	defaults := 0
	for _, tmpl := range templates {
		assert.Equal(t, model.DefaultTenantID, tmpl.TenantID)
		assert.NotEmpty(t, tmpl.ID)
		assert.False(t, seen[tmpl.ID], "duplicate id %s", tmpl.ID)
		seen[tmpl.ID] = true
		if tmpl.IsDefault {
			defaults++
			assert.Equal(t, model.MessageInitial, tmpl.MessageType)
		}
	}
	assert.Equal(t, 1, defaults)

	// Every non-ok classification has a full sequence.
	for _, c := range []model.Classification{model.ClassificationNoSite, model.ClassificationWeakSite, model.ClassificationSiteWithoutSEO} {
		for _, mt := range []model.MessageType{model.MessageInitial, model.MessageFollowUp1, model.MessageFollowUp2} {
			found := false
			for _, tmpl := range templates {
				if tmpl.Classification == c && tmpl.MessageType == mt {
					found = true
				}
			}
			assert.True(t, found, "missing template %s/%s", c, mt)
		}
	}
}

func TestDefaultTemplates_StableIDs(t *testing.T) {
	a, err := DefaultTemplates()
	require.NoError(t, err)
	b, err := DefaultTemplates()
	require.NoError(t, err)
	assert.Equal(t, a[0].ID, b[0].ID)
}

func TestLoadTemplates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "templates.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
templates:
  - name: custom
    classification: no_site
    message_type: initial
    subject: "Oi {{company_name}}"
    body: "corpo"
`), 0644))

	templates, err := LoadTemplates(path, testTenant)
	require.NoError(t, err)
	require.Len(t, templates, 1)
	assert.Equal(t, testTenant, templates[0].TenantID)
	assert.Equal(t, model.ClassificationNoSite, templates[0].Classification)
	assert.NotEmpty(t, templates[0].ID)
}

func TestLoadTemplates_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "templates.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
templates:
  - name: broken
    classification: nope
    message_type: initial
    subject: s
    body: b
`), 0644))

	_, err := LoadTemplates(path, testTenant)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid classification")
}

func TestLoadTemplates_MissingFile(t *testing.T) {
	_, err := LoadTemplates(filepath.Join(t.TempDir(), "nope.yaml"), testTenant)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read templates")
}
