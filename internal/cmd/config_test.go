package cmd_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jmault/buscope/internal/cmd"
)

func TestConfigInitWritesListTemplate(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "list.json")
	init := &cmd.ConfigInit{Command: "list", Format: "json", Output: dest}
	if !assert.NoError(t, init.Run()) {
		return
	}

	data, err := os.ReadFile(dest)
	if !assert.NoError(t, err) {
		return
	}
	var root map[string]any
	if !assert.NoError(t, json.Unmarshal(data, &root)) {
		return
	}

	// Template keys must match the flag names the config loaders resolve.
	assert.Equal(t, "no-sort", root["sort"])
	assert.Equal(t, "utf8", root["encoding"])
	assert.Equal(t, "none", root["mask-serial"])
	assert.Equal(t, false, root["strict"])
	assert.Contains(t, root, "from-json")
	assert.Contains(t, root, "hide-hubs")
	assert.NotContains(t, root, "fromJSON")
}

func TestConfigInitWatchTemplateHasInterval(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "watch.json")
	init := &cmd.ConfigInit{Command: "watch", Format: "json", Output: dest}
	if !assert.NoError(t, init.Run()) {
		return
	}

	data, err := os.ReadFile(dest)
	if !assert.NoError(t, err) {
		return
	}
	var root map[string]any
	if !assert.NoError(t, json.Unmarshal(data, &root)) {
		return
	}
	assert.Equal(t, "2s", root["interval"])
	assert.Equal(t, false, root["poll"])
}

func TestConfigInitRefusesToOverwrite(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "list.json")
	if !assert.NoError(t, os.WriteFile(dest, []byte("{}"), 0o644)) {
		return
	}

	init := &cmd.ConfigInit{Command: "list", Format: "json", Output: dest}
	assert.Error(t, init.Run())

	init.Force = true
	assert.NoError(t, init.Run())
}

func TestConfigInitRejectsUnknownFormat(t *testing.T) {
	init := &cmd.ConfigInit{Command: "list", Format: "ini"}
	assert.Error(t, init.Run())
}
