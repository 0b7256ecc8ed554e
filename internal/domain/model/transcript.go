package model

import (
	"fmt"
	"strings"
)

// Segment is one portion of transcribed audio with its time bounds in seconds.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Transcript is the ordered sequence of segments produced by the engine.
type Transcript struct {
	Segments []Segment `json:"segments"`
}

// Merge collapses consecutive segments that carry identical text into a single
// segment spanning their combined time range. Engines occasionally emit the
// same line for adjacent windows of silence-padded audio.
func (t Transcript) Merge() Transcript {
	if len(t.Segments) == 0 {
		return Transcript{}
	}

	merged := make([]Segment, 0, len(t.Segments))
	current := t.Segments[0]
	for _, seg := range t.Segments[1:] {
		if seg.Text == current.Text {
			current.End = seg.End
			continue
		}
		merged = append(merged, current)
		current = seg
	}
	merged = append(merged, current)

	return Transcript{Segments: merged}
}

// Render produces the deterministic serialized form stored in object storage:
// one "start-end: text" line per merged segment, newline-joined.
func (t Transcript) Render() string {
	merged := t.Merge()
	lines := make([]string, 0, len(merged.Segments))
	for _, seg := range merged.Segments {
		lines = append(lines, fmt.Sprintf("%.2f-%.2f: %s", seg.Start, seg.End, seg.Text))
	}
	return strings.Join(lines, "\n")
}
