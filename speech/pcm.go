package speech

import (
	"context"
	"errors"
	"io"
	"time"
)

// PCMStreamConfig shapes how raw audio is framed and paced.
type PCMStreamConfig struct {
	// SampleRate of the source in Hz. Zero means 16000.
	SampleRate int
	// FrameDuration is the audio length per frame. Zero means 20ms.
	FrameDuration time.Duration
}

func (c PCMStreamConfig) frameBytes() int {
	rate := c.SampleRate
	if rate <= 0 {
		rate = 16000
	}
	dur := c.FrameDuration
	if dur <= 0 {
		dur = 20 * time.Millisecond
	}
	// 16-bit mono: two bytes per sample.
	return int(int64(rate) * 2 * int64(dur) / int64(time.Second))
}

func (c PCMStreamConfig) frameDuration() time.Duration {
	if c.FrameDuration <= 0 {
		return 20 * time.Millisecond
	}
	return c.FrameDuration
}

// StreamPCM reads raw 16-bit mono PCM from r and feeds it to send one frame
// per FrameDuration, so a pre-recorded file plays at conversational pace.
// Returns nil when the source is exhausted.
func StreamPCM(ctx context.Context, r io.Reader, cfg PCMStreamConfig, send func(frame []byte) error) error {
	buf := make([]byte, cfg.frameBytes())
	ticker := time.NewTicker(cfg.frameDuration())
	defer ticker.Stop()

	for {
		n, err := io.ReadFull(r, buf)
		if n > 0 {
			frame := make([]byte, n)
			copy(frame, buf[:n])
			if serr := send(frame); serr != nil {
				return serr
			}
		}
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil
		}
		if err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
