package pipeline

import (
	"archive/zip"
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresclaroavocado/project-launcher-backend/internal/tools"
)

func TestWriteArchive(t *testing.T) {
	outcome := &Outcome{
		ProjectName: "task-tracker-app",
		Success:     true,
		Steps: []StepResult{
			{Step: StepStructure, Result: tools.Result{
				Status:  tools.StatusSuccess,
				Payload: map[string]interface{}{"structure": `{"structure":[],"files":[]}`},
			}},
			{Step: StepCode, Result: tools.Result{
				Status:  tools.StatusSuccess,
				Payload: map[string]interface{}{"file_type": "React Component", "code": "export default function App() {}"},
			}},
			{Step: StepDocumentation, Result: tools.Result{
				Status:  tools.StatusSuccess,
				Payload: map[string]interface{}{"documentation": "# task-tracker-app"},
			}},
			{Step: StepGitInit, Result: tools.Result{
				Status:  tools.StatusSuccess,
				Payload: map[string]interface{}{"command": "git init"},
			}},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteArchive(&buf, "session-1", outcome))

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)

	entries := map[string]string{}
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		content, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()
		entries[f.Name] = string(content)
	}

	assert.Len(t, entries, 4)
	assert.Contains(t, entries["project-metadata.json"], `"task-tracker-app"`)
	assert.Contains(t, entries["project-metadata.json"], `"session-1"`)
	assert.Equal(t, `{"structure":[],"files":[]}`, entries["project-structure.json"])
	assert.Equal(t, "export default function App() {}", entries["src/01-react-component.txt"])
	assert.Equal(t, "# task-tracker-app", entries["README.md"])
}

func TestWriteArchiveSkipsFailedSteps(t *testing.T) {
	outcome := &Outcome{
		ProjectName: "broken",
		Steps: []StepResult{
			{Step: StepStructure, Result: tools.Result{
				Status:  tools.StatusSuccess,
				Payload: map[string]interface{}{"structure": "{}"},
			}},
			{Step: StepDocumentation, Result: tools.Result{
				Status: tools.StatusError,
				Error:  "all providers failed",
			}},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteArchive(&buf, "session-2", outcome))

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)

	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.ElementsMatch(t, []string{"project-metadata.json", "project-structure.json"}, names)
}

func TestOutcomeStore(t *testing.T) {
	store := NewOutcomeStore()

	_, ok := store.Get("missing")
	assert.False(t, ok)

	outcome := &Outcome{ProjectName: "demo", Success: true}
	store.Put("s1", outcome)

	got, ok := store.Get("s1")
	require.True(t, ok)
	assert.Same(t, outcome, got)

	// Session-independent runs have no id to key on.
	store.Put("", outcome)
	_, ok = store.Get("")
	assert.False(t, ok)

	store.Delete("s1")
	_, ok = store.Get("s1")
	assert.False(t, ok)
}
