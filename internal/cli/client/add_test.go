package client

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestManifestYAML_Parses(t *testing.T) {
	raw := []byte(`
- title: Deploy checklist
  content: Run migrations before rolling pods.
  content_type: runbook
  metadata:
    team: platform
- title: API notes
  file: notes/api.md
`)

	var entries []manifestEntry
	require.NoError(t, yaml.Unmarshal(raw, &entries))
	require.Len(t, entries, 2)

	assert.Equal(t, "Deploy checklist", entries[0].Title)
	assert.Equal(t, "Run migrations before rolling pods.", entries[0].Content)
	assert.Equal(t, "runbook", entries[0].ContentType)
	assert.Equal(t, "platform", entries[0].Metadata["team"])

	assert.Equal(t, "API notes", entries[1].Title)
	assert.Equal(t, "notes/api.md", entries[1].File)
	assert.Empty(t, entries[1].Content)
}

func TestBuildManifestRequest_InlineContent(t *testing.T) {
	entry := manifestEntry{
		Title:       "Deploy checklist",
		Content:     "Run migrations first.",
		ContentType: "runbook",
		Metadata:    map[string]interface{}{"team": "platform"},
	}

	req, err := buildManifestRequest(entry, t.TempDir(), "tenant-1", "user-1", true)
	require.NoError(t, err)

	assert.Equal(t, "tenant-1", req.TenantID)
	assert.Equal(t, "user-1", req.UserID)
	assert.Equal(t, "Deploy checklist", req.Title)
	assert.Equal(t, "Run migrations first.", req.Content)
	assert.True(t, req.AutoEmbed)
	assert.Equal(t, "runbook", req.Metadata["content_type"])
	assert.Equal(t, "platform", req.Metadata["team"])
}

func TestBuildManifestRequest_FileRelativeToManifest(t *testing.T) {
	baseDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(baseDir, "notes"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(baseDir, "notes", "api.md"), []byte("# API\nUse bearer tokens."), 0644))

	entry := manifestEntry{Title: "API notes", File: "notes/api.md"}

	req, err := buildManifestRequest(entry, baseDir, "", "", false)
	require.NoError(t, err)
	assert.Equal(t, "# API\nUse bearer tokens.", req.Content)
	assert.False(t, req.AutoEmbed)
	assert.Nil(t, req.Metadata)
}

func TestBuildManifestRequest_ContentTypeWithoutMetadata(t *testing.T) {
	entry := manifestEntry{Title: "Runbook", Content: "body", ContentType: "runbook"}

	req, err := buildManifestRequest(entry, t.TempDir(), "", "", true)
	require.NoError(t, err)
	require.NotNil(t, req.Metadata)
	assert.Equal(t, "runbook", req.Metadata["content_type"])
}

func TestBuildManifestRequest_TitleRequired(t *testing.T) {
	entry := manifestEntry{Content: "body"}

	_, err := buildManifestRequest(entry, t.TempDir(), "", "", true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "title is required")
}

func TestBuildManifestRequest_FileAndContentExclusive(t *testing.T) {
	entry := manifestEntry{Title: "Both", File: "a.md", Content: "body"}

	_, err := buildManifestRequest(entry, t.TempDir(), "", "", true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mutually exclusive")
}

func TestBuildManifestRequest_MissingContent(t *testing.T) {
	entry := manifestEntry{Title: "Empty"}

	_, err := buildManifestRequest(entry, t.TempDir(), "", "", true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file or content is required")
}

func TestBuildManifestRequest_MissingFile(t *testing.T) {
	entry := manifestEntry{Title: "Missing", File: "does-not-exist.md"}

	_, err := buildManifestRequest(entry, t.TempDir(), "", "", true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does-not-exist.md")
}
