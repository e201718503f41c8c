package catalog

import (
	_ "embed"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/liliang-cn/aicanvas/internal/domain"
)

//go:embed data/templates.yaml
var templatesYAML []byte

type templatesFile struct {
	Templates []*domain.Template `yaml:"templates"`
}

// BuiltinTemplates returns fresh copies of the embedded templates, stamped with now.
func BuiltinTemplates(now time.Time) ([]*domain.Template, error) {
	return ParseTemplates(templatesYAML, now)
}

// ParseTemplates decodes a templates YAML document.
func ParseTemplates(doc []byte, now time.Time) ([]*domain.Template, error) {
	var tf templatesFile
	if err := yaml.Unmarshal(doc, &tf); err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	for _, t := range tf.Templates {
		if t.ID == "" {
			return nil, fmt.Errorf("template %q: missing id", t.Name)
		}
		t.CreatedAt = now
		t.UpdatedAt = now
	}
	return tf.Templates, nil
}
