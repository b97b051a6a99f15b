package output

import (
	"encoding/json"

	"github.com/limitlens/limitlens/internal/limits"
)

// JSONFormatter renders snapshots with the same field names as /api/limits.
type JSONFormatter struct {
	Indent bool
}

// FormatSnapshot renders a snapshot as JSON.
func (f *JSONFormatter) FormatSnapshot(snap limits.Snapshot) (string, error) {
	var (
		data []byte
		err  error
	)

	if f.Indent {
		data, err = json.MarshalIndent(snap, "", "  ")
	} else {
		data, err = json.Marshal(snap)
	}
	if err != nil {
		return "", err
	}

	return string(data), nil
}
