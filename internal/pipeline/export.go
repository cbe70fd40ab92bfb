package pipeline

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/andresclaroavocado/project-launcher-backend/internal/tools"
)

// WriteArchive renders the generated artifacts of a pipeline run as a ZIP
// archive: project metadata, the structure, every generated code file, and
// the documentation as README.md. Failed steps carry no artifact and are
// skipped.
func WriteArchive(w io.Writer, sessionID string, outcome *Outcome) error {
	zw := zip.NewWriter(w)

	metadata, err := json.MarshalIndent(map[string]interface{}{
		"project_name": outcome.ProjectName,
		"session_id":   sessionID,
		"generated_at": time.Now().UTC().Format(time.RFC3339),
		"success":      outcome.Success,
	}, "", "  ")
	if err != nil {
		return err
	}
	if err := writeEntry(zw, "project-metadata.json", string(metadata)); err != nil {
		return err
	}

	codeFiles := 0
	for _, sr := range outcome.Steps {
		if sr.Result.Status != tools.StatusSuccess {
			continue
		}
		switch sr.Step {
		case StepStructure:
			if structure, ok := sr.Result.Payload["structure"].(string); ok {
				if err := writeEntry(zw, "project-structure.json", structure); err != nil {
					return err
				}
			}
		case StepCode:
			code, ok := sr.Result.Payload["code"].(string)
			if !ok {
				continue
			}
			fileType, _ := sr.Result.Payload["file_type"].(string)
			codeFiles++
			name := fmt.Sprintf("src/%02d-%s.txt", codeFiles, entryName(fileType))
			if err := writeEntry(zw, name, code); err != nil {
				return err
			}
		case StepDocumentation:
			if doc, ok := sr.Result.Payload["documentation"].(string); ok {
				if err := writeEntry(zw, "README.md", doc); err != nil {
					return err
				}
			}
		}
	}

	return zw.Close()
}

func writeEntry(zw *zip.Writer, name, content string) error {
	f, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = io.WriteString(f, content)
	return err
}

// entryName sanitizes a file type for use inside an archive path.
func entryName(fileType string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(fileType)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	if name := strings.Trim(b.String(), "-"); name != "" {
		return name
	}
	return "file"
}
