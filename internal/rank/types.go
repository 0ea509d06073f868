// Package rank is the top-level clip-ranking engine: it segments each input
// video into scenes, embeds every candidate segment, scores the segments
// against the query embedding(s), and returns one globally ordered list.
package rank

import (
	"errors"
	"time"
)

// Defaults for tunable request parameters
const (
	DefaultMaxSegment = 5 * time.Second
	DefaultMinSegment = 1 * time.Second
	DefaultTextWeight = 0.5
	DefaultNumFrames  = 4
)

var (
	// ErrInvalidTextWeight is returned when the fusion weight is outside [0,1]
	ErrInvalidTextWeight = errors.New("rank: text weight must be in [0,1]")

	// ErrInvalidSegment is returned for a non-positive segment duration
	ErrInvalidSegment = errors.New("rank: segment end must be after start")
)

// Request describes one ranking run
type Request struct {
	Videos         []string
	Query          string
	ReferenceImage string // optional path; enables fused scoring
	TextWeight     float64
	MinSegment     time.Duration
	MaxSegment     time.Duration
	NumFrames      int
}

// ScoredSegment is the externally visible result unit. Times are float
// seconds, matching what the assembly collaborator consumes. Duration is the
// segment's own length and may be shorter than the configured maximum.
type ScoredSegment struct {
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Similarity float64 `json:"similarity"`
	Duration   float64 `json:"duration"`
	Source     string  `json:"source"`
}
