package snd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// ExecSource captures the microphone through an external recorder that
// writes raw PCM to stdout (arecord, sox or ffmpeg).
type ExecSource struct {
	Command string
	Device  string
	// InputFormat is the ffmpeg demuxer used for the device, "alsa" by default.
	InputFormat string
	// StartTimeout bounds the wait for the first block. A recorder that
	// cannot read the device usually exits before producing one.
	StartTimeout time.Duration
	Logger       *log.Logger
}

func NewExecSource(command, device string, logger *log.Logger) *ExecSource {
	if logger == nil {
		logger = log.Default()
	}
	return &ExecSource{
		Command:      command,
		Device:       device,
		InputFormat:  "alsa",
		StartTimeout: 3 * time.Second,
		Logger:       logger,
	}
}

func (s *ExecSource) commandLine(format Format) (string, []string, error) {
	rate := strconv.Itoa(format.SampleRate)
	switch s.Command {
	case "", "arecord":
		args := []string{"-q", "-t", "raw", "-f", "S16_LE", "-c", "1", "-r", rate}
		if s.Device != "" {
			args = append(args, "-D", s.Device)
		}
		return "arecord", append(args, "-"), nil
	case "sox":
		args := []string{"-q"}
		if s.Device != "" {
			args = append(args, "-t", "alsa", s.Device)
		} else {
			args = append(args, "-d")
		}
		args = append(args,
			"-t", "raw", "-b", "16", "-e", "signed-integer",
			"-c", "1", "-r", rate, "-",
		)
		return "sox", args, nil
	case "ffmpeg":
		device := s.Device
		if device == "" {
			device = "default"
		}
		inputFormat := s.InputFormat
		if inputFormat == "" {
			inputFormat = "alsa"
		}
		return "ffmpeg", []string{
			"-hide_banner", "-loglevel", "error", "-nostdin",
			"-f", inputFormat, "-i", device,
			"-ac", "1", "-ar", rate, "-f", "s16le", "-",
		}, nil
	default:
		return "", nil, fmt.Errorf("unknown capture command %q", s.Command)
	}
}

func (s *ExecSource) Open(
	ctx context.Context,
	format Format,
	deliver DeliverFunc,
) (Stream, error) {
	name, args, err := s.commandLine(format)
	if err != nil {
		return nil, err
	}

	path, err := exec.LookPath(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}

	cmd := exec.Command(path, args...)
	stderr := &tailBuffer{limit: 4096}
	cmd.Stderr = stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: start %s: %v", ErrDeviceUnavailable, name, err)
	}

	s.Logger.Info("open", "cmd", name, "device", s.Device, "rate", format.SampleRate)

	first, err := s.readFirst(ctx, stdout, format)
	if err != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return nil, fmt.Errorf("%w: %s: %v: %s", ErrDeviceUnavailable, name, err, msg)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrDeviceUnavailable, name, err)
	}

	stream := newPumpStream(func() error {
		_ = cmd.Process.Kill()
		return nil
	})
	go func() {
		stream.run(stdout, format, first, nil, deliver)
		err := cmd.Wait()
		s.Logger.Debug("closed", "cmd", name, "exit", err)
	}()

	return stream, nil
}

func (s *ExecSource) readFirst(
	ctx context.Context,
	r io.Reader,
	format Format,
) ([]byte, error) {
	type result struct {
		buf []byte
		err error
	}

	ch := make(chan result, 1)
	go func() {
		buf := make([]byte, format.BlockBytes())
		_, err := io.ReadFull(r, buf)
		ch <- result{buf, err}
	}()

	timeout := s.StartTimeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		return res.buf, res.err
	case <-timer.C:
		return nil, fmt.Errorf("no audio within %s", timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	mu    sync.Mutex
	buf   bytes.Buffer
	limit int
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf.Write(p)
	if over := t.buf.Len() - t.limit; over > 0 {
		t.buf.Next(over)
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.buf.String()
}
