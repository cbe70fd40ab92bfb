package conversation

import "strings"

// Keyword tables map stack mentions in free-form answers onto canonical spec
// values. Matching is token-based, so "go ahead" does not read as a backend
// choice.
var frameworkKeywords = map[string]string{
	"react":   "react",
	"vue":     "vue",
	"angular": "angular",
	"svelte":  "svelte",
	"next.js": "next.js",
	"nextjs":  "next.js",
}

var backendKeywords = map[string]string{
	"nodejs":  "nodejs",
	"node.js": "nodejs",
	"node":    "nodejs",
	"express": "nodejs",
	"python":  "python",
	"fastapi": "python",
	"django":  "python",
	"java":    "java",
	"spring":  "java",
	"golang":  "go",
}

var databaseKeywords = map[string]string{
	"postgresql": "postgresql",
	"postgres":   "postgresql",
	"mysql":      "mysql",
	"mongodb":    "mongodb",
	"mongo":      "mongodb",
	"sqlite":     "sqlite",
}

// applyExtraction updates spec in place from one answer. Three passes:
// explicit "field: value" assignments, stack keyword mentions, and finally
// the whole answer as the value of the field currently being asked about.
func applyExtraction(spec *ProjectSpec, answer, pendingField string) {
	matched := false

	for _, line := range strings.Split(answer, "\n") {
		field, value, ok := splitAssignment(line)
		if !ok {
			continue
		}
		switch field {
		case "name":
			spec.Name = slugify(value)
			matched = true
		case "purpose":
			spec.Purpose = value
			matched = true
		case "framework":
			spec.Framework = strings.ToLower(value)
			matched = true
		case "backend":
			spec.Backend = strings.ToLower(value)
			matched = true
		case "database":
			spec.Database = strings.ToLower(value)
			matched = true
		case "features":
			for _, feature := range strings.Split(value, ",") {
				addFeature(spec, strings.TrimSpace(feature))
			}
			matched = true
		}
	}

	for _, token := range tokenize(answer) {
		if canonical, ok := frameworkKeywords[token]; ok && spec.Framework == "" {
			spec.Framework = canonical
			matched = true
		}
		if canonical, ok := backendKeywords[token]; ok && spec.Backend == "" {
			spec.Backend = canonical
			matched = true
		}
		if canonical, ok := databaseKeywords[token]; ok && spec.Database == "" {
			spec.Database = canonical
			matched = true
		}
	}

	if matched || pendingField == "" {
		return
	}

	value := strings.TrimSpace(answer)
	if value == "" {
		return
	}
	switch pendingField {
	case "purpose":
		spec.Purpose = value
	case "framework":
		spec.Framework = strings.ToLower(value)
	case "backend":
		spec.Backend = strings.ToLower(value)
	case "database":
		spec.Database = strings.ToLower(value)
	}
}

// nextMissingField returns the field the next follow-up question should
// target, or "" when nothing is left to ask.
func nextMissingField(spec ProjectSpec) string {
	switch {
	case spec.Purpose == "":
		return "purpose"
	case spec.Framework == "":
		return "framework"
	case spec.Backend == "":
		return "backend"
	case spec.Database == "":
		return "database"
	default:
		return ""
	}
}

func splitAssignment(line string) (field, value string, ok bool) {
	sep := strings.IndexAny(line, ":=")
	if sep <= 0 {
		return "", "", false
	}
	field = strings.ToLower(strings.TrimSpace(line[:sep]))
	value = strings.TrimSpace(line[sep+1:])
	if field == "" || value == "" {
		return "", "", false
	}
	switch field {
	case "name", "purpose", "framework", "backend", "database", "features":
		return field, value, true
	}
	return "", "", false
}

func addFeature(spec *ProjectSpec, feature string) {
	if feature == "" {
		return
	}
	feature = strings.ToLower(feature)
	for _, existing := range spec.Features {
		if existing == feature {
			return
		}
	}
	spec.Features = append(spec.Features, feature)
}

func tokenize(answer string) []string {
	fields := strings.FieldsFunc(strings.ToLower(answer), func(r rune) bool {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.':
			return false
		default:
			return true
		}
	})
	// Keep the dot inside "next.js" but drop sentence punctuation.
	out := fields[:0]
	for _, f := range fields {
		if f = strings.Trim(f, "."); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// slugify turns a free-form project idea into a file-system friendly name.
func slugify(s string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteRune('-')
				lastDash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
