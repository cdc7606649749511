package ingestion

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
	"unicode/utf8"
)

// Metadata contains metadata about an ingested CV
type Metadata struct {
	Source    string `json:"source,omitempty"` // File name or client label
	Timestamp string `json:"timestamp"`        // RFC3339 format
	Hash      string `json:"hash"`             // SHA256 hex digest of the cleaned text
	Format    Format `json:"format"`
	Chars     int    `json:"chars"`
}

// NewMetadata creates a new Metadata instance with current timestamp
func NewMetadata(content string, source string, format Format) *Metadata {
	return &Metadata{
		Source:    source,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Hash:      ComputeHash(content),
		Format:    format,
		Chars:     utf8.RuneCountInString(content),
	}
}

// ComputeHash computes the SHA256 hash of content and returns a hex string
func ComputeHash(content string) string {
	hash := sha256.Sum256([]byte(content))
	return hex.EncodeToString(hash[:])
}
