// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Bucket is a coarse condition category used to select curated guideline
// and code content.
type Bucket string

const (
	BucketLowBackPain Bucket = "low_back_pain"
	BucketNeckPain    Bucket = "neck_pain"
	BucketHipOA       Bucket = "hip_oa"
	BucketKneeOA      Bucket = "knee_oa"
	BucketStroke      Bucket = "stroke"
	BucketParkinson   Bucket = "parkinson"
	BucketShoulder    Bucket = "shoulder"
	BucketACL         Bucket = "acl"
	BucketGeneral     Bucket = "general"
)

// ClassificationCode is a functioning/disability classification code
// (ICF) with its human-readable title.
type ClassificationCode struct {
	Code  string `json:"code" yaml:"code"`
	Title string `json:"title" yaml:"title"`
}

// Guideline summarizes a clinical practice guideline.
type Guideline struct {
	Name        string   `json:"name" yaml:"name"`
	Source      string   `json:"source" yaml:"source"`
	Year        int      `json:"year,omitempty" yaml:"year,omitempty"`
	Recommended []string `json:"recommended" yaml:"recommended"`
	Avoid       []string `json:"avoid" yaml:"avoid"`
}

// KnowledgeContext is the read-only snapshot of curated knowledge selected
// for one pipeline run.
type KnowledgeContext struct {
	Bucket           Bucket               `json:"bucket" yaml:"bucket"`
	GuidelineSummary string               `json:"guideline_summary" yaml:"guideline_summary"`
	Guidelines       []Guideline          `json:"guidelines" yaml:"guidelines"`
	Checklist        []string             `json:"checklist" yaml:"checklist"`
	Traps            []string             `json:"traps" yaml:"traps"`
	Clinimetrics     []string             `json:"clinimetrics" yaml:"clinimetrics"`
	StarterCodes     []ClassificationCode `json:"starter_codes" yaml:"starter_codes"`
	CoachingHint     string               `json:"coaching_hint" yaml:"coaching_hint"`
}
