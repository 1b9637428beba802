package media

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
	"github.com/pion/webrtc/v4/pkg/media/h264reader"
)

const outputFramerate = 30

// Pipeline decodes one local video input with ffmpeg and feeds the resulting
// H.264 stream into a WebRTC local track. Stop is safe to call multiple
// times and must be called to release the subprocess.
type Pipeline struct {
	track  *webrtc.TrackLocalStaticSample
	cmd    *exec.Cmd
	cancel context.CancelFunc
	done   chan struct{}
	logger *slog.Logger

	stopOnce sync.Once
}

// NewFilePipeline streams a video file. With loop set, the file repeats
// indefinitely.
func NewFilePipeline(path string, loop bool, logger *slog.Logger) (*Pipeline, error) {
	if path == "" {
		return nil, fmt.Errorf("file path cannot be empty")
	}
	return start(fileArgs(path, loop), logger)
}

// NewCameraPipeline captures from a camera device. An empty device selects
// the platform default.
func NewCameraPipeline(device string, logger *slog.Logger) (*Pipeline, error) {
	args, err := cameraArgs(device, runtime.GOOS)
	if err != nil {
		return nil, err
	}
	return start(args, logger)
}

// Track returns the local track fed by this pipeline. Samples are dropped
// until the track is bound to a peer connection.
func (p *Pipeline) Track() *webrtc.TrackLocalStaticSample {
	return p.track
}

// Stop kills the ffmpeg subprocess and waits for the feed goroutine to
// finish.
func (p *Pipeline) Stop() {
	p.stopOnce.Do(func() {
		p.cancel()
		<-p.done
	})
}

func start(args []string, logger *slog.Logger) (*Pipeline, error) {
	track, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeH264},
		"video", "overshoot",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create local track: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to get stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to get stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	p := &Pipeline{
		track:  track,
		cmd:    cmd,
		cancel: cancel,
		done:   make(chan struct{}),
		logger: logger,
	}

	go func() {
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			logger.Debug("ffmpeg", slog.String("line", scanner.Text()))
		}
	}()

	go p.feed(ctx, stdout)

	return p, nil
}

// feed reads NAL units from the ffmpeg output and writes them to the track
// until the stream ends or the pipeline is stopped.
func (p *Pipeline) feed(ctx context.Context, stdout io.Reader) {
	defer close(p.done)
	defer p.cmd.Wait()

	reader, err := h264reader.NewReader(stdout)
	if err != nil {
		p.logger.Error("failed to create H264 reader", slog.String("error", err.Error()))
		return
	}

	sampleDuration := time.Second / outputFramerate

	for {
		nal, err := reader.NextNAL()
		if err != nil {
			if ctx.Err() == nil && !errors.Is(err, io.EOF) {
				p.logger.Warn("H264 read error", slog.String("error", err.Error()))
			}
			return
		}

		if err := p.track.WriteSample(media.Sample{
			Data:     nal.Data,
			Duration: sampleDuration,
		}); err != nil {
			if ctx.Err() == nil {
				p.logger.Warn("failed to write sample", slog.String("error", err.Error()))
			}
			return
		}
	}
}

// encodeArgs are the common ffmpeg output flags producing Annex-B H.264 on
// stdout, tuned for real-time delivery.
func encodeArgs() []string {
	return []string{
		"-an",
		"-c:v", "libx264",
		"-preset", "ultrafast",
		"-tune", "zerolatency",
		"-pix_fmt", "yuv420p",
		"-bsf:v", "h264_mp4toannexb",
		"-f", "h264",
		"-",
	}
}

// fileArgs builds the ffmpeg invocation for a file input. -re paces reading
// at native framerate so the server receives real-time video.
func fileArgs(path string, loop bool) []string {
	args := []string{"-re"}
	if loop {
		args = append(args, "-stream_loop", "-1")
	}
	args = append(args, "-i", path)
	return append(args, encodeArgs()...)
}

// cameraArgs builds the ffmpeg invocation for a camera input, choosing the
// capture backend for the platform.
func cameraArgs(device, goos string) ([]string, error) {
	var args []string

	switch goos {
	case "linux":
		if device == "" {
			device = "/dev/video0"
		}
		args = []string{"-f", "v4l2", "-i", device}
	case "darwin":
		if device == "" {
			device = "default"
		}
		args = []string{"-f", "avfoundation", "-framerate", "30", "-i", device}
	case "windows":
		if device == "" {
			device = "0"
		}
		if !strings.HasPrefix(device, "video=") {
			device = "video=" + device
		}
		args = []string{"-f", "dshow", "-i", device}
	default:
		return nil, fmt.Errorf("camera capture is not supported on %s", goos)
	}

	return append(args, encodeArgs()...), nil
}
