package camera

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// FFmpegOptions configures an ffmpeg-backed capture device.
type FFmpegOptions struct {
	// Device is a V4L2 path such as /dev/video0 or a stream URL.
	Device string
	FPS    int
	Width  int
	// FrameTimeout bounds the wait for one frame. Zero waits forever.
	FrameTimeout time.Duration
	Logger       *slog.Logger
}

// FFmpegSource reads MJPEG frames from an ffmpeg child process. Only the
// most recent frame is kept; slow consumers skip frames.
type FFmpegSource struct {
	opts   FFmpegOptions
	cancel context.CancelFunc
	cmd    *exec.Cmd
	frames chan image.Image
	done   chan struct{}

	mu  sync.Mutex
	err error

	closeOnce sync.Once
}

// OpenFFmpeg starts ffmpeg against opts.Device.
func OpenFFmpeg(ctx context.Context, opts FFmpegOptions) (*FFmpegSource, error) {
	if opts.Device == "" {
		return nil, fmt.Errorf("%w: no device configured", ErrFrame)
	}
	if opts.FPS <= 0 {
		opts.FPS = 10
	}
	if opts.Width <= 0 {
		opts.Width = 640
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(ctx, "ffmpeg", ffmpegArgs(opts)...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("ffmpeg stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("ffmpeg stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("%w: start ffmpeg: %v", ErrFrame, err)
	}

	s := &FFmpegSource{
		opts:   opts,
		cancel: cancel,
		cmd:    cmd,
		frames: make(chan image.Image, 1),
		done:   make(chan struct{}),
	}

	go func() {
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			opts.Logger.Warn("ffmpeg stderr", "output", scanner.Text())
		}
	}()

	go s.run(ctx, stdout)
	return s, nil
}

func ffmpegArgs(opts FFmpegOptions) []string {
	args := []string{"-hide_banner", "-loglevel", "warning"}
	switch {
	case strings.HasPrefix(opts.Device, "/dev/video"):
		args = append(args, "-f", "v4l2")
	case strings.HasPrefix(opts.Device, "rtsp://"), strings.HasPrefix(opts.Device, "rtsps://"):
		args = append(args, "-rtsp_transport", "tcp", "-timeout", "5000000")
	case strings.HasPrefix(opts.Device, "http://"), strings.HasPrefix(opts.Device, "https://"):
		args = append(args, "-reconnect", "1", "-reconnect_streamed", "1", "-reconnect_delay_max", "5")
	}
	return append(args,
		"-i", opts.Device,
		"-vf", fmt.Sprintf("fps=%d,scale=%d:-1", opts.FPS, opts.Width),
		"-f", "image2pipe",
		"-vcodec", "mjpeg",
		"-q:v", "5",
		"pipe:1",
	)
}

func (s *FFmpegSource) run(ctx context.Context, stdout io.Reader) {
	defer close(s.done)

	err := readJPEGFrames(ctx, stdout, func(data []byte) error {
		img, err := jpeg.Decode(bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("decode frame: %w", err)
		}
		// Replace any frame the consumer has not taken yet.
		select {
		case <-s.frames:
		default:
		}
		s.frames <- img
		return nil
	}, s.opts.Logger)
	if err == nil {
		err = io.EOF
	}
	if waitErr := s.cmd.Wait(); waitErr != nil && ctx.Err() == nil && err == io.EOF {
		err = fmt.Errorf("%w: ffmpeg exited: %v", ErrFrame, waitErr)
	}

	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

// Next returns the latest frame. A frame that does not arrive within
// FrameTimeout yields ErrFrame.
func (s *FFmpegSource) Next(ctx context.Context) (image.Image, error) {
	var timeout <-chan time.Time
	if s.opts.FrameTimeout > 0 {
		timer := time.NewTimer(s.opts.FrameTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case img := <-s.frames:
		return img, nil
	case <-s.done:
		select {
		case img := <-s.frames:
			return img, nil
		default:
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		return nil, s.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timeout:
		return nil, fmt.Errorf("%w: no frame from %s within %s", ErrFrame, s.opts.Device, s.opts.FrameTimeout)
	}
}

// Close stops ffmpeg and waits for the reader to finish.
func (s *FFmpegSource) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		<-s.done
	})
	return nil
}

// readJPEGFrames splits a stream of concatenated JPEG images. Initial EOF
// is tolerated for up to five seconds while the device opens.
func readJPEGFrames(ctx context.Context, r io.Reader, callback func([]byte) error, logger *slog.Logger) error {
	reader := bufio.NewReaderSize(r, 512*1024)
	framesRead := 0
	const maxStartupRetries = 50
	startupRetries := 0

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		err := findJPEGStart(reader)
		if err != nil {
			if err == io.EOF {
				if framesRead == 0 && startupRetries < maxStartupRetries {
					startupRetries++
					time.Sleep(100 * time.Millisecond)
					continue
				}
				if framesRead > 0 {
					return nil
				}
				return fmt.Errorf("%w: no frames received from ffmpeg", ErrFrame)
			}
			return err
		}

		frameData, err := readUntilJPEGEnd(reader)
		if err != nil {
			if err == io.EOF && framesRead > 0 {
				return nil
			}
			return err
		}

		framesRead++
		if err := callback(frameData); err != nil {
			logger.Warn("frame callback error", "error", err)
		}
	}
}

func findJPEGStart(r *bufio.Reader) error {
	for {
		b, err := r.ReadByte()
		if err != nil {
			return err
		}
		if b != 0xFF {
			continue
		}
		b, err = r.ReadByte()
		if err != nil {
			return err
		}
		if b == 0xD8 {
			return nil
		}
	}
}

func readUntilJPEGEnd(r *bufio.Reader) ([]byte, error) {
	data := []byte{0xFF, 0xD8}
	for {
		b, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		data = append(data, b)

		if b == 0xFF {
			next, err := r.ReadByte()
			if err != nil {
				return nil, err
			}
			data = append(data, next)
			if next == 0xD9 {
				return data, nil
			}
		}

		if len(data) > 10*1024*1024 {
			return nil, fmt.Errorf("jpeg frame too large: %d bytes", len(data))
		}
	}
}
