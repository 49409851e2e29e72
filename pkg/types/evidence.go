// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// EvidenceLevel is an ordinal strength-of-evidence label.
type EvidenceLevel string

const (
	LevelI   EvidenceLevel = "Level I"
	LevelII  EvidenceLevel = "Level II"
	LevelIII EvidenceLevel = "Level III"
	LevelIV  EvidenceLevel = "Level IV"
	LevelV   EvidenceLevel = "Level V"
)

// Ordinal returns the ranking weight of the level: Level I scores 10 and
// each step down loses 2. Unknown labels score 0.
func (l EvidenceLevel) Ordinal() int {
	switch l {
	case LevelI:
		return 10
	case LevelII:
		return 8
	case LevelIII:
		return 6
	case LevelIV:
		return 4
	case LevelV:
		return 2
	default:
		return 0
	}
}

// SearchRecord is a raw result returned by a literature-search backend
// before classification and ranking.
type SearchRecord struct {
	ID       string    `json:"id" yaml:"id"`
	Title    string    `json:"title" yaml:"title"`
	Abstract string    `json:"abstract" yaml:"abstract"`
	Authors  []string  `json:"authors" yaml:"authors"`
	Date     time.Time `json:"date" yaml:"date"`
	Source   string    `json:"source" yaml:"source"`

	// PublicationTypes carries backend type tags (e.g. "Randomized Controlled Trial")
	// used alongside the title when classifying the evidence level.
	PublicationTypes []string `json:"publication_types,omitempty" yaml:"publication_types,omitempty"`

	// URL is the canonical landing page, when the backend supplies one.
	URL string `json:"url,omitempty" yaml:"url,omitempty"`
}

// EvidenceItem is a classified, citable literature reference. Two items
// with the same ID are the same item.
type EvidenceItem struct {
	ID       string        `json:"id" yaml:"id"`
	Title    string        `json:"title" yaml:"title"`
	Abstract string        `json:"abstract" yaml:"abstract"`
	Authors  []string      `json:"authors" yaml:"authors"`
	Date     time.Time     `json:"date" yaml:"date"`
	Source   string        `json:"source" yaml:"source"`
	Level    EvidenceLevel `json:"level" yaml:"level"`
	URL      string        `json:"url" yaml:"url"`
	Citation string        `json:"citation" yaml:"citation"`

	// Synthetic marks placeholder items produced when no literature could be retrieved.
	Synthetic bool `json:"synthetic" yaml:"synthetic"`

	// Score is the composite ranking score assigned during retrieval.
	Score int `json:"score" yaml:"score"`
}
