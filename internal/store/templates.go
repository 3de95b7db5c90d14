package store

import (
	_ "embed"
	"os"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/prospect-cli/internal/model"
)

//go:embed templates.yaml
var defaultTemplatesYAML []byte

// templateNamespace derives stable template IDs so reseeding updates rows in place.
var templateNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/sells-group/prospect-cli/templates"))

// DefaultTemplates returns the embedded templates owned by the default tenant.
func DefaultTemplates() ([]model.EmailTemplate, error) {
	return parseTemplates(defaultTemplatesYAML, model.DefaultTenantID)
}

// LoadTemplates reads tenant templates from a YAML file with the same layout
// as the embedded defaults.
func LoadTemplates(path, tenantID string) ([]model.EmailTemplate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "store: read templates %s", path)
	}
	return parseTemplates(data, tenantID)
}

func parseTemplates(data []byte, tenantID string) ([]model.EmailTemplate, error) {
	var wrapper struct {
		Templates []model.EmailTemplate `yaml:"templates"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "store: parse templates")
	}

	out := wrapper.Templates
	for i := range out {
		t := &out[i]
		if !t.Classification.Valid() || !t.MessageType.Valid() {
			return nil, eris.Errorf("store: template %q: invalid classification %q or message type %q",
				t.Name, t.Classification, t.MessageType)
		}
		if t.Subject == "" || t.Body == "" {
			return nil, eris.Errorf("store: template %q: subject and body are required", t.Name)
		}
		t.TenantID = tenantID
		if t.ID == "" {
			key := tenantID + "/" + string(t.Classification) + "/" + string(t.MessageType) + "/" + t.Name
			t.ID = uuid.NewSHA1(templateNamespace, []byte(key)).String()
		}
	}
	return out, nil
}
