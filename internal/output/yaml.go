package output

import (
	"gopkg.in/yaml.v3"

	"github.com/limitlens/limitlens/internal/limits"
)

// YAMLFormatter renders snapshots as YAML.
type YAMLFormatter struct{}

// FormatSnapshot renders a snapshot as YAML.
func (f *YAMLFormatter) FormatSnapshot(snap limits.Snapshot) (string, error) {
	data, err := yaml.Marshal(snap)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
