package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ccp-p/emotion-clipper/pkg/dispatch"
	"github.com/ccp-p/emotion-clipper/pkg/emotion"
	"github.com/ccp-p/emotion-clipper/pkg/models"
)

func TestNewClassifier(t *testing.T) {
	config := models.NewDefaultConfig()

	c, err := NewClassifier(config, nil)
	require.NoError(t, err)
	assert.IsType(t, &emotion.LexiconClassifier{}, c)

	config.Classifier = "http"
	c, err = NewClassifier(config, nil)
	require.NoError(t, err)
	assert.IsType(t, &emotion.HTTPClassifier{}, c)

	config.Classifier = "unknown"
	_, err = NewClassifier(config, nil)
	assert.Error(t, err)
}

func TestNewClassifierLLMKey(t *testing.T) {
	t.Setenv("ARK_API_KEY", "")
	config := models.NewDefaultConfig()
	config.Classifier = "llm"

	_, err := NewClassifier(config, nil)
	assert.Error(t, err)

	t.Setenv("ARK_API_KEY", "test-key")
	c, err := NewClassifier(config, nil)
	require.NoError(t, err)
	assert.IsType(t, &emotion.LLMClassifier{}, c)
}

func TestNewTranscriberRegistersServices(t *testing.T) {
	config := models.NewDefaultConfig()
	config.TempDir = t.TempDir()
	config.ASRService = ServiceFile

	selector := NewTranscriber(config)
	assert.Equal(t, []string{ServiceHTTP, ServiceKuaiShou, ServiceFile}, selector.Services())
	assert.Equal(t, ServiceFile, selector.Service)
}

func TestDetectCapabilitiesDisabled(t *testing.T) {
	config := models.NewDefaultConfig()
	config.SilenceDetection = false
	config.ResourceIntrospection = false

	caps := DetectCapabilities(config)
	assert.False(t, caps.HasSilenceDetection)
	assert.False(t, caps.HasResourceIntrospection)
}

func TestBuild(t *testing.T) {
	config := models.NewDefaultConfig()
	config.TempDir = t.TempDir()
	config.SilenceDetection = false

	d, err := Build(config, nil, nil)
	require.NoError(t, err)
	assert.False(t, d.Capabilities().HasSilenceDetection)
	assert.NotNil(t, d.Advisor())

	assert.Equal(t, time.Second, d.dispatch.PickupTimeout)
	assert.Equal(t, dispatch.DefaultOptions().ReclaimEvery, d.dispatch.ReclaimEvery)

	config.PickupTimeout = 2.5
	d, err = Build(config, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 2500*time.Millisecond, d.dispatch.PickupTimeout)

	config.Classifier = "bogus"
	_, err = Build(config, nil, nil)
	assert.Error(t, err)
}
