// Package prompts loads the model prompt templates embedded in the binary.
// Each JSON file maps a prompt key to a template with {{.Name}} placeholders.
package prompts

import (
	"embed"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
)

//go:embed *.json
var promptFiles embed.FS

var placeholderPattern = regexp.MustCompile(`\{\{\.([A-Za-z][A-Za-z0-9_]*)\}\}`)

var (
	mu     sync.Mutex
	loaded = make(map[string]map[string]string)
)

// Get returns the template stored under key in the given file (e.g. "narrative.json")
func Get(filename, key string) (string, error) {
	templates, err := load(filename)
	if err != nil {
		return "", err
	}

	template, ok := templates[key]
	if !ok {
		return "", fmt.Errorf("prompt key %q not found in %s", key, filename)
	}
	return template, nil
}

// MustGet is Get for templates that ship with the binary; a missing one is a programming error
func MustGet(filename, key string) string {
	template, err := Get(filename, key)
	if err != nil {
		panic(fmt.Sprintf("failed to load prompt: %v", err))
	}
	return template
}

// Format fills {{.Name}} placeholders from values. Placeholders without a value are left in place.
func Format(template string, values map[string]string) string {
	if len(values) == 0 {
		return template
	}

	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	pairs := make([]string, 0, 2*len(names))
	for _, name := range names {
		pairs = append(pairs, "{{."+name+"}}", values[name])
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

// Placeholders returns the distinct placeholder names of a template in order of first use
func Placeholders(template string) []string {
	seen := map[string]bool{}
	var names []string
	for _, m := range placeholderPattern.FindAllStringSubmatch(template, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}

func load(filename string) (map[string]string, error) {
	mu.Lock()
	defer mu.Unlock()

	if templates, ok := loaded[filename]; ok {
		return templates, nil
	}

	data, err := promptFiles.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt file %s: %w", filename, err)
	}

	var templates map[string]string
	if err := json.Unmarshal(data, &templates); err != nil {
		return nil, fmt.Errorf("failed to parse prompt file %s: %w", filename, err)
	}

	loaded[filename] = templates
	return templates, nil
}
