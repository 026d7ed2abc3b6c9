package ingestion

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLayoutPaths(t *testing.T) {
	l := NewLayout("/data", "kb-1")

	assert.Equal(t, filepath.Join("/data", "kb-1"), l.Root())
	assert.Equal(t, filepath.Join("/data", "kb-1", "documents"), l.DocumentsDir())
	assert.Equal(t, filepath.Join("/data", "kb-1", "index"), l.IndexDir())
}

func TestSanitizePageName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "hello", "hello"},
		{"spaces become underscore", "hello world", "hello_world"},
		{"slashes become underscore", "a/b/c", "a_b_c"},
		{"already safe chars kept", "a.b-c_1", "a.b-c_1"},
		{"empty becomes untitled", "", "untitled"},
		{"whitespace-only becomes untitled", "   ", "untitled"},
		{"truncated past 80 chars", strings.Repeat("a", 100), strings.Repeat("a", 80)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitizePageName(tt.in))
		})
	}
}

func TestLayoutIndexReadyLifecycle(t *testing.T) {
	dir := t.TempDir()
	l := NewLayout(dir, "kb-1")

	assert.False(t, l.IndexReady())

	require.NoError(t, l.MarkIndexReady())
	assert.True(t, l.IndexReady())

	require.NoError(t, l.DeleteIndex())
	assert.False(t, l.IndexReady())
}

func TestLayoutSaveDocument(t *testing.T) {
	dir := t.TempDir()
	l := NewLayout(dir, "kb-1")

	require.NoError(t, l.SaveDocument(3, "My Page!", "https://example.com/x", "body text"))

	path := filepath.Join(l.DocumentsDir(), "0003_My_Page_.md")
	contents, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.Contains(t, string(contents), "# Doc ID: 3")
	assert.Contains(t, string(contents), "# URL: https://example.com/x")
	assert.Contains(t, string(contents), "body text")
}
