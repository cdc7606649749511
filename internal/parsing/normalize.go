package parsing

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// skillNormalizations maps lower-cased skill variants found in CVs to canonical names
var skillNormalizations = map[string]string{
	"golang":     "Go",
	"go lang":    "Go",
	"javascript": "JavaScript",
	"js":         "JavaScript",
	"typescript": "TypeScript",
	"ts":         "TypeScript",
	"k8s":        "Kubernetes",
	"kubernetes": "Kubernetes",
	"react.js":   "React",
	"reactjs":    "React",
	"vue.js":     "Vue",
	"vuejs":      "Vue",
	"node.js":    "Node.js",
	"nodejs":     "Node.js",
	"postgres":   "PostgreSQL",
	"postgresql": "PostgreSQL",
	"psql":       "PostgreSQL",
	"sql":        "SQL",
	"aws":        "AWS",
	"gcp":        "GCP",
}

// maxAcronymLength is the longest all-caps word kept as an acronym
const maxAcronymLength = 4

// NormalizeSkillName maps known variants to their canonical name. Unknown single words written
// in one case are capitalized; short all-caps words and multi-word or mixed-case names are kept.
func NormalizeSkillName(skillName string) string {
	normalized := strings.TrimSpace(skillName)
	if normalized == "" {
		return ""
	}

	lower := strings.ToLower(normalized)
	if canonical, ok := skillNormalizations[lower]; ok {
		return canonical
	}
	if strings.Contains(normalized, " ") {
		return normalized
	}

	upper := strings.ToUpper(normalized)
	switch {
	case normalized == upper && normalized == lower:
		// no letters, e.g. "C++" or "3D"
		return normalized
	case normalized == upper && len(normalized) <= maxAcronymLength:
		return normalized
	case normalized == upper || normalized == lower:
		r, size := utf8.DecodeRuneInString(lower)
		return string(unicode.ToUpper(r)) + lower[size:]
	default:
		return normalized
	}
}

// NormalizeSkillList normalizes a comma, semicolon or newline separated skills string,
// dropping empty entries and case-insensitive duplicates while keeping first-seen order
func NormalizeSkillList(skills string) string {
	parts := strings.FieldsFunc(skills, func(r rune) bool {
		return r == ',' || r == ';' || r == '\n' || r == '|'
	})

	normalized := make([]string, 0, len(parts))
	seen := make(map[string]bool, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(part), "-*•"))
		name := NormalizeSkillName(part)
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if seen[key] {
			continue
		}
		seen[key] = true
		normalized = append(normalized, name)
	}

	return strings.Join(normalized, ", ")
}

// NormalizeList trims entries and removes empty and case-insensitive duplicate values
func NormalizeList(items []string) []string {
	if len(items) == 0 {
		return nil
	}

	out := make([]string, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		key := strings.ToLower(item)
		if item == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, item)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
