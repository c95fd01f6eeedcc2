package ffmpeg

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
)

// StreamInfo is what probe mode reads back from a capture file.
type StreamInfo struct {
	Duration   float64 // seconds, from the container
	FrameCount int     // decoded frames; 0 when unprobeable
	Width      int
	Height     int
}

// probeOutput mirrors ffprobe's JSON writer. nb_read_frames arrives as a
// string.
type probeOutput struct {
	Streams []struct {
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		NbReadFrames string `json:"nb_read_frames"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Probe decodes the whole file to count frames. Slow but exact; used to
// correct capture timestamps.
func (r *Runner) Probe(ctx context.Context, path string) (*StreamInfo, error) {
	return r.probe(ctx, path, true)
}

// ProbeDuration reads only the container header.
func (r *Runner) ProbeDuration(ctx context.Context, path string) (float64, error) {
	info, err := r.probe(ctx, path, false)
	if err != nil {
		return 0, err
	}
	return info.Duration, nil
}

func (r *Runner) probe(ctx context.Context, path string, countFrames bool) (*StreamInfo, error) {
	args := []string{"-v", "error", "-select_streams", "v:0"}
	if countFrames {
		args = append(args, "-count_frames")
	}
	args = append(args,
		"-show_entries", "stream=width,height,nb_read_frames",
		"-show_entries", "format=duration",
		"-of", "json",
		path,
	)

	cmd := exec.CommandContext(ctx, r.FFprobe, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, &ExecError{Bin: r.FFprobe, Args: args, Stderr: stderrTail(stderr.String()), Err: err}
	}

	info, err := parseProbeOutput(stdout.Bytes())
	if err != nil {
		return nil, fmt.Errorf("probe %s: %w", path, err)
	}
	return info, nil
}

func parseProbeOutput(data []byte) (*StreamInfo, error) {
	var out probeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse probe output: %w", err)
	}

	info := &StreamInfo{}
	if out.Format.Duration != "" {
		d, err := strconv.ParseFloat(out.Format.Duration, 64)
		if err != nil {
			return nil, fmt.Errorf("parse duration %q: %w", out.Format.Duration, err)
		}
		info.Duration = d
	}
	if len(out.Streams) > 0 {
		s := out.Streams[0]
		info.Width = s.Width
		info.Height = s.Height
		if s.NbReadFrames != "" {
			n, err := strconv.Atoi(s.NbReadFrames)
			if err != nil {
				return nil, fmt.Errorf("parse frame count %q: %w", s.NbReadFrames, err)
			}
			info.FrameCount = n
		}
	}
	return info, nil
}
