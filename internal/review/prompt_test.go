package review

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunRejectAndQuit(t *testing.T) {
	out := &bytes.Buffer{}
	input := "n\nr\nbogus\nq\nn\n"

	kept := Run(strings.NewReader(input), out, sampleHighlights())

	// n 移到 b，r 剔除 b
	require.Len(t, kept, 2)
	assert.Equal(t, "a", kept[0].Text)
	assert.Equal(t, "c", kept[1].Text)
	assert.Contains(t, out.String(), "已剔除 100.0s-130.0s")
	assert.Contains(t, out.String(), helpText)
	assert.Contains(t, out.String(), "检测到 2 个高光")
}

func TestRunSelectByNumber(t *testing.T) {
	out := &bytes.Buffer{}
	kept := Run(strings.NewReader("3\nr\n9\n"), out, sampleHighlights())

	require.Len(t, kept, 2)
	assert.Equal(t, "b", kept[1].Text)
	assert.Contains(t, out.String(), "没有这个高光")
}

func TestRunRejectAll(t *testing.T) {
	out := &bytes.Buffer{}
	kept := Run(strings.NewReader("r\nr\nr\nn\n"), out, sampleHighlights())

	assert.Empty(t, kept)
	assert.Contains(t, out.String(), "所有高光均已审阅")
}

func TestRunEmpty(t *testing.T) {
	out := &bytes.Buffer{}
	kept := Run(strings.NewReader("n\n"), out, nil)

	assert.Empty(t, kept)
	assert.Contains(t, out.String(), "所有高光均已审阅")
}

func TestRunDoesNotModifyInput(t *testing.T) {
	highlights := sampleHighlights()
	Run(strings.NewReader("r\nr\n"), &bytes.Buffer{}, highlights)
	assert.Len(t, highlights, 3)
	assert.Equal(t, "a", highlights[0].Text)
}
