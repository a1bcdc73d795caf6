package assemble

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Runner executes an external media tool and returns its combined output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands on the host.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		return out, fmt.Errorf("%s: %w: %s", name, err, tail(string(out), 400))
	}
	return out, nil
}

// Canvas is the output frame every segment is composed onto.
type Canvas struct {
	Width  int
	Height int
	FPS    int
}

// FFmpeg wraps the ffmpeg/ffprobe invocations used to build the final cut.
type FFmpeg struct {
	runner Runner
	canvas Canvas
}

func NewFFmpeg(runner Runner, canvas Canvas) *FFmpeg {
	return &FFmpeg{runner: runner, canvas: canvas}
}

// Duration returns the length of a media file in seconds.
func (f *FFmpeg) Duration(ctx context.Context, path string) (float64, error) {
	out, err := f.runner.Run(ctx, "ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	if err != nil {
		return 0, err
	}
	dur, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration of %s: %w", path, err)
	}
	if dur <= 0 {
		return 0, fmt.Errorf("%s has zero duration", path)
	}
	return dur, nil
}

// Segment renders one scene: the clip fitted to the canvas and held or trimmed
// to the narration length, with the narration as its only audio.
func (f *FFmpeg) Segment(ctx context.Context, videoPath, audioPath string, duration float64, outFile string) error {
	_, err := f.runner.Run(ctx, "ffmpeg", f.segmentArgs(videoPath, audioPath, duration, outFile)...)
	if err != nil {
		return fmt.Errorf("ffmpeg segment: %w", err)
	}
	return nil
}

func (f *FFmpeg) segmentArgs(videoPath, audioPath string, duration float64, outFile string) []string {
	dur := fmt.Sprintf("%.3f", duration)
	return []string{"-y",
		"-i", videoPath,
		"-i", audioPath,
		"-vf", f.fitFilter() + ",tpad=stop_mode=clone:stop_duration=" + dur,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-t", dur,
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "22",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-ar", "44100",
		"-ac", "2",
		outFile,
	}
}

// fitFilter letterboxes to the canvas without cropping.
func (f *FFmpeg) fitFilter() string {
	w, h := f.canvas.Width, f.canvas.Height
	return fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2,setsar=1,fps=%d",
		w, h, w, h, f.canvas.FPS)
}

// Concat joins segments in order with the concat demuxer. listFile is written by the caller.
func (f *FFmpeg) Concat(ctx context.Context, listFile, outFile string) error {
	_, err := f.runner.Run(ctx, "ffmpeg", "-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listFile,
		"-c", "copy",
		outFile,
	)
	if err != nil {
		return fmt.Errorf("ffmpeg concat: %w", err)
	}
	return nil
}

// Export writes the final file. When musicPath is set the track is looped,
// scaled by volume and mixed under the narration for the video's length only.
func (f *FFmpeg) Export(ctx context.Context, videoPath, musicPath string, volume float64, outFile string) error {
	_, err := f.runner.Run(ctx, "ffmpeg", f.exportArgs(videoPath, musicPath, volume, outFile)...)
	if err != nil {
		return fmt.Errorf("ffmpeg export: %w", err)
	}
	return nil
}

func (f *FFmpeg) exportArgs(videoPath, musicPath string, volume float64, outFile string) []string {
	args := []string{"-y", "-i", videoPath}
	if musicPath != "" {
		args = append(args,
			"-stream_loop", "-1",
			"-i", musicPath,
			"-filter_complex", fmt.Sprintf("[1:a]volume=%.2f[bg];[0:a][bg]amix=inputs=2:duration=first:normalize=0[aout]", volume),
			"-map", "0:v",
			"-map", "[aout]",
		)
	} else {
		args = append(args, "-map", "0:v", "-map", "0:a")
	}
	return append(args,
		"-r", strconv.Itoa(f.canvas.FPS),
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "22",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-b:a", "192k",
		"-movflags", "+faststart",
		outFile,
	)
}

// concatList renders a concat demuxer list.
func concatList(paths []string) string {
	var b strings.Builder
	for _, p := range paths {
		fmt.Fprintf(&b, "file '%s'\n", strings.ReplaceAll(p, "'", `'\''`))
	}
	return b.String()
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
