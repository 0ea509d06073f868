// Package scene turns videos into bounded-duration ranking candidates:
// a detector finds content-boundary cuts, and a pure derivation step slices
// the resulting scenes into segments within configured duration bounds.
package scene

import "time"

// Scene is a shot-boundary-delimited interval within one video.
// Invariant: 0 <= Start < End <= video duration.
type Scene struct {
	Start time.Duration
	End   time.Duration
}

// Duration returns the scene length
func (s Scene) Duration() time.Duration {
	return s.End - s.Start
}

// Segment is a bounded-duration sub-interval of a scene, the unit of scoring
type Segment struct {
	Start time.Duration
	End   time.Duration
}

// Duration returns the segment length
func (s Segment) Duration() time.Duration {
	return s.End - s.Start
}

// SplitScenes derives scoring segments from a scene list. Scenes longer than
// maxDur are split into consecutive maxDur chunks; a shorter final remainder
// is kept only if it still reaches minDur. Scenes already within bounds
// become a single segment; scenes under minDur are dropped. Ascending start
// order is preserved.
func SplitScenes(scenes []Scene, minDur, maxDur time.Duration) []Segment {
	var segments []Segment

	for _, sc := range scenes {
		switch {
		case sc.Duration() > maxDur:
			for start := sc.Start; start < sc.End; start += maxDur {
				end := start + maxDur
				if end > sc.End {
					end = sc.End
				}
				if end-start >= minDur {
					segments = append(segments, Segment{Start: start, End: end})
				}
			}
		case sc.Duration() >= minDur:
			segments = append(segments, Segment{Start: sc.Start, End: sc.End})
		}
	}

	return segments
}

// ScenesFromCuts converts cut timestamps into contiguous scenes covering
// [0, total]. Zero cuts yield one scene spanning the whole video.
func ScenesFromCuts(cuts []time.Duration, total time.Duration) []Scene {
	var scenes []Scene

	last := time.Duration(0)
	for _, cut := range cuts {
		if cut <= last || cut > total {
			continue
		}
		scenes = append(scenes, Scene{Start: last, End: cut})
		last = cut
	}

	if total > last {
		scenes = append(scenes, Scene{Start: last, End: total})
	}

	return scenes
}
