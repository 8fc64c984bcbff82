package capture

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Container describes one candidate output container format and the codecs
// used inside it.
type Container struct {
	Name       string `yaml:"name"`        // muxer name, e.g. "webm"
	Extension  string `yaml:"extension"`   // filename suffix, e.g. "webm"
	VideoCodec string `yaml:"video_codec"` // e.g. "libvpx-vp9"
	AudioCodec string `yaml:"audio_codec"` // e.g. "libopus"
}

// DefaultCandidates returns the preference-ordered container list: a
// widely-playable format first, a broader fallback second.
func DefaultCandidates() []Container {
	return []Container{
		{Name: "webm", Extension: "webm", VideoCodec: "libvpx-vp9", AudioCodec: "libopus"},
		{Name: "mp4", Extension: "mp4", VideoCodec: "libx264", AudioCodec: "aac"},
	}
}

// Prober checks whether the runtime can produce a given container. This is
// an environment capability check, evaluated once at export start, not a
// negotiation protocol.
type Prober interface {
	Supports(ctx context.Context, c Container) bool
}

// SelectContainer walks the ordered candidate list and returns the first
// container the runtime supports.
func SelectContainer(ctx context.Context, prober Prober, candidates []Container) (Container, error) {
	if len(candidates) == 0 {
		return Container{}, fmt.Errorf("no candidate containers configured")
	}

	for _, c := range candidates {
		if prober.Supports(ctx, c) {
			return c, nil
		}
	}

	names := make([]string, 0, len(candidates))
	for _, c := range candidates {
		names = append(names, c.Name)
	}
	return Container{}, fmt.Errorf("no supported container among [%s]", strings.Join(names, ", "))
}

// FFmpegProber asks the ffmpeg binary whether it knows a muxer.
type FFmpegProber struct {
	Path string // ffmpeg binary, e.g. "ffmpeg"
}

// Supports implements Prober.
func (p *FFmpegProber) Supports(ctx context.Context, c Container) bool {
	cmd := exec.CommandContext(ctx, p.Path, "-hide_banner", "-h", "muxer="+c.Name)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return false
	}
	return !strings.Contains(string(out), "Unknown format")
}
