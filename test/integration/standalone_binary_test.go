package integration

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildBinary compiles cmd/limitlens and copies it into an empty directory
// so nothing from the repository (.fulmen, config/) is visible to it.
func buildBinary(t *testing.T) (binary, workDir string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("standalone binary test is unix-focused")
	}

	goMod, err := exec.Command("go", "env", "GOMOD").Output()
	require.NoError(t, err, "go env GOMOD")
	repoRoot := filepath.Dir(strings.TrimSpace(string(goMod)))
	require.NotEqual(t, ".", repoRoot, "go env GOMOD returned empty")

	built := filepath.Join(t.TempDir(), "limitlens")
	build := exec.Command("go", "build", "-o", built, "./cmd/limitlens")
	build.Dir = repoRoot
	out, err := build.CombinedOutput()
	require.NoError(t, err, "go build:\n%s", out)

	workDir = t.TempDir()
	binary = filepath.Join(workDir, "limitlens")
	data, err := os.ReadFile(built)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(binary, data, 0o755))
	return binary, workDir
}

// isolatedEnv drops LIMITLENS_* and points the config dirs at dir.
func isolatedEnv(dir string) []string {
	var env []string
	for _, kv := range os.Environ() {
		if !strings.HasPrefix(kv, "LIMITLENS_") && !strings.HasPrefix(kv, "XDG_CONFIG_HOME=") && !strings.HasPrefix(kv, "HOME=") {
			env = append(env, kv)
		}
	}
	return append(env, "HOME="+dir, "XDG_CONFIG_HOME="+filepath.Join(dir, ".config"))
}

func TestStandaloneBinaryOutsideRepo(t *testing.T) {
	binary, dir := buildBinary(t)
	run := func(args ...string) (string, error) {
		c := exec.Command(binary, args...)
		c.Dir = dir
		c.Env = isolatedEnv(dir)
		out, err := c.CombinedOutput()
		return string(out), err
	}

	out, err := run("version")
	require.NoError(t, err, out)
	assert.Contains(t, out, "limitlens")

	out, err = run("--help")
	require.NoError(t, err, out)
	for _, sub := range []string{"serve", "limits", "watch", "doctor"} {
		assert.Contains(t, out, sub)
	}

	out, err = run("limits")
	var exitErr *exec.ExitError
	require.True(t, errors.As(err, &exitErr), "limits without a credential must fail: %s", out)
	assert.Equal(t, int(foundry.ExitConfigInvalid), exitErr.ExitCode())
	assert.Contains(t, out, "Missing apiKey secret")
}
