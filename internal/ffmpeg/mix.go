package ffmpeg

import (
	"context"
	"fmt"
	"strings"
)

// AudioClip is one narration or effect clip scheduled into the mix.
type AudioClip struct {
	Path    string
	StartMs int64
	Volume  float64 // 0 means full volume
}

// MixAudio lays the clips over the video at their scheduled offsets and
// writes the muxed result to out. The video stream is stream-copied, never
// re-encoded; only audio is encoded. With no clips the video is returned
// unchanged and no subprocess runs.
func (r *Runner) MixAudio(ctx context.Context, video string, clips []AudioClip, out string) (string, error) {
	if len(clips) == 0 {
		return video, nil
	}

	videoDur, err := r.ProbeDuration(ctx, video)
	if err != nil {
		return "", fmt.Errorf("mix: probe video: %w", err)
	}

	if err := r.run(ctx, mixArgs(video, videoDur, clips, out)...); err != nil {
		return "", fmt.Errorf("mix: %w", err)
	}
	return out, nil
}

// mixArgs builds the full mixing invocation: each clip is delayed to its
// start offset (same delay on both channels), scaled to its volume and
// padded to the video duration so amix never truncates; amix runs without
// normalization so one quiet effect does not duck the narration.
func mixArgs(video string, videoDur float64, clips []AudioClip, out string) []string {
	args := []string{"-hide_banner", "-loglevel", "error", "-i", video}
	for _, c := range clips {
		args = append(args, "-i", c.Path)
	}

	var graph strings.Builder
	labels := make([]string, len(clips))
	for i, c := range clips {
		vol := c.Volume
		if vol <= 0 {
			vol = 1
		}
		labels[i] = fmt.Sprintf("[a%d]", i)
		fmt.Fprintf(&graph, "[%d:a]adelay=%d|%d,volume=%.2f,apad=whole_dur=%.3f%s;",
			i+1, c.StartMs, c.StartMs, vol, videoDur, labels[i])
	}
	fmt.Fprintf(&graph, "%samix=inputs=%d:duration=first:normalize=0[aout]",
		strings.Join(labels, ""), len(clips))

	args = append(args,
		"-filter_complex", graph.String(),
		"-map", "0:v", "-map", "[aout]",
		"-c:v", "copy",
		"-c:a", "aac", "-b:a", "192k",
		"-y", out,
	)
	return args
}
