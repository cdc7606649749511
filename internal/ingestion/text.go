// Package ingestion normalizes raw CV input into clean plain text before parsing.
package ingestion

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	spaceRun      = regexp.MustCompile(`[ \t]+`)
	blankLineRun  = regexp.MustCompile(`\n{3,}`)
	invisibleRune = strings.NewReplacer("\u00a0", " ", "\u200b", "", "\ufeff", "", "\u2009", " ")
)

// bulletMarkers are list markers CV exports use in place of "- "
var bulletMarkers = []string{"• ", "· ", "▪ ", "◦ ", "‣ ", "– "}

// CleanText normalizes line endings and whitespace, rewrites list markers to "- " and caps blank
// runs at one empty line. Headings and indentation are kept so section structure survives.
func CleanText(content string) string {
	if content == "" {
		return ""
	}

	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")
	content = invisibleRune.Replace(content)

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = cleanLine(line)
	}

	result := blankLineRun.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(result)
}

// cleanLine trims a single line, keeping its indentation and collapsing inner whitespace
func cleanLine(line string) string {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return ""
	}
	if strings.HasPrefix(trimmed, "#") {
		return spaceRun.ReplaceAllString(trimmed, " ")
	}

	indent := strings.Repeat(" ", len(line)-len(strings.TrimLeft(line, " \t")))
	for _, marker := range bulletMarkers {
		if strings.HasPrefix(trimmed, marker) {
			trimmed = "- " + strings.TrimSpace(strings.TrimPrefix(trimmed, marker))
			break
		}
	}
	return indent + spaceRun.ReplaceAllString(trimmed, " ")
}

// IngestFromFile reads a CV file, strips HTML markup if present, and returns cleaned text with metadata
func IngestFromFile(path string) (string, *Metadata, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil, fmt.Errorf("file not found: %w", err)
		}
		return "", nil, fmt.Errorf("failed to read file: %w", err)
	}

	cleanedText, format, err := Normalize(string(content))
	if err != nil {
		return "", nil, err
	}

	metadata := NewMetadata(cleanedText, filepath.Base(path), format)
	return cleanedText, metadata, nil
}

// Normalize converts raw CV input (plain text or HTML) into cleaned plain text
func Normalize(raw string) (string, Format, error) {
	if !LooksLikeHTML(raw) {
		return CleanText(raw), FormatText, nil
	}

	text, err := HTMLToText(raw)
	if err != nil {
		return "", FormatHTML, err
	}
	return CleanText(text), FormatHTML, nil
}
