//go:build (linux && cgo) || windows || darwin

package player

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/desertthunder/nook/internal/shared"
)

// AudioAvailable reports whether this build can decode and play preview
// clips on the local device.
const AudioAvailable = true

var speakerOnce sync.Once

// LocalPlayer plays 30-second preview clips through the host's speakers.
// It implements [PreviewPlayer]. A new clip replaces whatever is playing.
type LocalPlayer struct {
	mu     sync.Mutex
	ctrl   *beep.Ctrl
	volume float64
	client *http.Client
}

// NewLocalPlayer returns a player at the given volume, 0..1.
func NewLocalPlayer(volume float64) *LocalPlayer {
	if volume <= 0 || volume > 1 {
		volume = 0.8
	}
	return &LocalPlayer{
		volume: volume,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

// Play fetches the clip at previewURL and starts playback, invoking onDone
// once when the clip reaches its natural end. Stop and replacement cancel
// the pending onDone.
func (p *LocalPlayer) Play(ctx context.Context, previewURL string, onDone func()) error {
	body, err := p.fetch(ctx, previewURL)
	if err != nil {
		return err
	}

	streamer, format, err := mp3.Decode(io.NopCloser(bytes.NewReader(body)))
	if err != nil {
		return fmt.Errorf("%w: decode preview: %v", shared.ErrLocalPlayback, err)
	}

	var initErr error
	speakerOnce.Do(func() {
		initErr = speaker.Init(format.SampleRate, format.SampleRate.N(time.Second/10))
	})
	if initErr != nil {
		return fmt.Errorf("%w: %v", shared.ErrLocalPlayback, initErr)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()

	ctrl := &beep.Ctrl{Streamer: streamer}
	p.ctrl = ctrl
	vol := &effects.Volume{Streamer: ctrl, Base: 2, Volume: volumeGain(p.volume)}
	speaker.Play(beep.Seq(vol, beep.Callback(func() {
		p.mu.Lock()
		current := p.ctrl == ctrl
		p.mu.Unlock()
		if current && onDone != nil {
			go onDone()
		}
	})))
	return nil
}

// Pause halts playback keeping position.
func (p *LocalPlayer) Pause() {
	p.setPaused(true)
}

// Resume continues a paused clip.
func (p *LocalPlayer) Resume() {
	p.setPaused(false)
}

// Stop discards the current clip. Its onDone will not fire.
func (p *LocalPlayer) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

func (p *LocalPlayer) stopLocked() {
	if p.ctrl == nil {
		return
	}
	p.ctrl = nil
	speaker.Clear()
}

func (p *LocalPlayer) setPaused(paused bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ctrl == nil {
		return
	}
	speaker.Lock()
	p.ctrl.Paused = paused
	speaker.Unlock()
}

func (p *LocalPlayer) fetch(ctx context.Context, previewURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, previewURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrLocalPlayback, err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch preview: %v", shared.ErrLocalPlayback, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: preview returned %d", shared.ErrLocalPlayback, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read preview: %v", shared.ErrLocalPlayback, err)
	}
	return body, nil
}

// volumeGain maps a 0..1 volume to a base-2 gain where 1.0 is unity.
func volumeGain(v float64) float64 {
	return (v - 1) * 4
}
