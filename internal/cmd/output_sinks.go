package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/limitlens/limitlens/internal/output"
)

// reportTarget is where a rendered report goes: stdout, a named file, or a
// generated file name inside a directory.
type reportTarget struct {
	format output.Format
	path   string
	dir    string
}

var nonFilename = regexp.MustCompile(`[^a-z0-9._-]+`)

// reportTargetFlags reads --output-format, --out and --out-dir.
func reportTargetFlags(cmd *cobra.Command) (reportTarget, error) {
	var target reportTarget

	formatValue, err := cmd.Flags().GetString("output-format")
	if err != nil {
		return target, err
	}
	if target.format, err = output.ParseFormat(formatValue); err != nil {
		return target, err
	}

	path, _ := cmd.Flags().GetString("out")
	dir, _ := cmd.Flags().GetString("out-dir")
	target.path, target.dir = strings.TrimSpace(path), strings.TrimSpace(dir)
	if target.path != "" && target.dir != "" {
		return target, errors.New("--out and --out-dir are mutually exclusive")
	}
	return target, nil
}

// write stores content, naming the file after name when writing into a
// directory. It returns the file path, or "-" for stdout.
func (t reportTarget) write(stdout io.Writer, name, content string) (string, error) {
	if !strings.HasSuffix(content, "\n") {
		content += "\n"
	}

	path := t.path
	if t.dir != "" {
		path = outDirPath(t.dir, name, t.format)
	}
	if path == "" || path == "-" {
		_, err := io.WriteString(stdout, content)
		return "-", err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", err
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return path, nil
}

// outDirPath names a file for format inside dir.
func outDirPath(dir, name string, format output.Format) string {
	clean := strings.ToLower(strings.TrimSpace(name))
	clean = strings.Trim(nonFilename.ReplaceAllString(clean, "-"), "-.")
	if clean == "" {
		clean = "output"
	}
	return filepath.Join(dir, clean+"."+output.Extension(format))
}
