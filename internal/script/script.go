package script

import (
	"encoding/json"
	"fmt"
)

// Frame represents one still image captured from the source material.
// Frames are produced upstream and are immutable once created; segments
// reference them by index but never own them.
type Frame struct {
	Index     int     `json:"index"`
	Image     []byte  `json:"image"`     // Encoded still image (PNG or JPEG)
	Timestamp float64 `json:"timestamp"` // Position in the source, seconds
}

// Segment represents one unit of narration: spoken text, a referenced
// frame, and optionally a block of synthesized speech audio.
type Segment struct {
	Text       string `json:"text"`
	FrameIndex int    `json:"frame_index"`
	AudioData  string `json:"audio_data,omitempty"` // base64 raw PCM, may be empty
}

// HasAudio reports whether the segment carries an audio payload.
func (s *Segment) HasAudio() bool {
	return s.AudioData != ""
}

// Script is an ordered narration sequence plus the frame list it references.
// Segment order is the narration order and is significant.
type Script struct {
	Segments []Segment `json:"segments"`
	Frames   []Frame   `json:"frames"`
}

// Parse parses and validates a JSON-encoded script.
func Parse(data []byte) (*Script, error) {
	var s Script
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse script: %w", err)
	}

	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("script validation failed: %w", err)
	}

	return &s, nil
}

// Validate checks the script against the input contract. Frame indices are
// deliberately NOT range-checked: the upstream script generator may emit
// indices beyond what was captured, and those are clamped at render time.
func (s *Script) Validate() error {
	if len(s.Segments) == 0 {
		return fmt.Errorf("script must contain at least one segment")
	}

	if len(s.Frames) == 0 {
		return fmt.Errorf("script must contain at least one frame")
	}

	for i, seg := range s.Segments {
		if seg.Text == "" {
			return fmt.Errorf("segment %d has empty text", i)
		}
	}

	return nil
}

// ResolveFrameIndex clamps a segment's frame index to the valid range
// [0, frameCount-1]. It never fails for any integer input; out-of-range
// indices from upstream resolve to the nearest valid frame.
func ResolveFrameIndex(index, frameCount int) int {
	if index < 0 {
		return 0
	}
	if index >= frameCount {
		return frameCount - 1
	}
	return index
}

// ResolveFrame returns the frame a segment refers to, clamped to the
// script's frame list.
func (s *Script) ResolveFrame(seg *Segment) Frame {
	return s.Frames[ResolveFrameIndex(seg.FrameIndex, len(s.Frames))]
}
