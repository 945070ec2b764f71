package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ccp-p/emotion-clipper/pkg/models"
)

func TestRootCommands(t *testing.T) {
	root := newRootCmd()

	names := []string{}
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"detect", "watch", "advise", "transcribe", "serve"}, names)

	for _, flag := range []string{"config", "log-level", "log-file", "output"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(flag), flag)
	}

	detect, _, err := root.Find([]string{"detect"})
	require.NoError(t, err)
	for _, flag := range []string{"review", "from", "to"} {
		assert.NotNil(t, detect.Flags().Lookup(flag), flag)
	}
}

func TestDetectRejectsBadRange(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"detect", "--from", "2:00", "--to", "1:00"})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "无效的时间范围")
}

func TestAdviseWithoutIntrospection(t *testing.T) {
	dir := t.TempDir()
	config := filepath.Join(dir, "config.yaml")
	yaml := "resource_introspection: false\n" +
		"media_folder: " + filepath.Join(dir, "media") + "\n" +
		"output_folder: " + filepath.Join(dir, "out") + "\n"
	require.NoError(t, os.WriteFile(config, []byte(yaml), 0644))

	root := newRootCmd()
	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetArgs([]string{"advise", "--config", config, "--log-level", "error"})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "资源探测已关闭")
	assert.Contains(t, out.String(), "transcription")
	assert.Contains(t, out.String(), "emotion")
	assert.Equal(t, 2, strings.Count(out.String(), "批大小=10  工作协程=2"))
}

func TestAdviseShowConfig(t *testing.T) {
	dir := t.TempDir()
	config := filepath.Join(dir, "config.yaml")
	yaml := "resource_introspection: false\n" +
		"llm_api_key: top-secret\n" +
		"media_folder: " + filepath.Join(dir, "media") + "\n" +
		"output_folder: " + filepath.Join(dir, "out") + "\n"
	require.NoError(t, os.WriteFile(config, []byte(yaml), 0644))

	root := newRootCmd()
	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetArgs([]string{"advise", "--config", config, "--log-level", "error", "--show-config"})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "当前配置:")
	assert.Contains(t, out.String(), `"pickup_timeout": 1`)
	assert.NotContains(t, out.String(), "top-secret")
}

func TestAdviseSaveConfig(t *testing.T) {
	dir := t.TempDir()
	config := filepath.Join(dir, "config.yaml")
	yaml := "resource_introspection: false\n" +
		"pickup_timeout: 2.5\n" +
		"media_folder: " + filepath.Join(dir, "media") + "\n" +
		"output_folder: " + filepath.Join(dir, "out") + "\n"
	require.NoError(t, os.WriteFile(config, []byte(yaml), 0644))
	saved := filepath.Join(dir, "saved", "effective.json")

	root := newRootCmd()
	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetArgs([]string{"advise", "--config", config, "--log-level", "error", "--save-config", saved})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "配置已保存到")

	loaded := models.NewDefaultConfig()
	require.NoError(t, loaded.LoadFromFile(saved))
	assert.Equal(t, 2.5, loaded.PickupTimeout)
	assert.False(t, loaded.ResourceIntrospection)
}

func TestTranscribeFromSidecar(t *testing.T) {
	dir := t.TempDir()
	media := filepath.Join(dir, "talk.mp3")
	require.NoError(t, os.WriteFile(media, []byte("audio"), 0644))
	sidecar := `{"segments":[{"start":1.5,"end":3,"text":"hello"},{"start":4,"end":5,"text":"world"}]}`
	require.NoError(t, os.WriteFile(media+".json", []byte(sidecar), 0644))

	root := newRootCmd()
	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetArgs([]string{"transcribe", media, "--service", "file", "--log-level", "error"})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "识别结果 (2 段)")
	assert.Contains(t, out.String(), "hello")
	assert.Contains(t, out.String(), "file: 调用次数=")
}
