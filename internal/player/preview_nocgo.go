//go:build !((linux && cgo) || windows || darwin)

package player

import (
	"context"
	"fmt"

	"github.com/desertthunder/nook/internal/shared"
)

// AudioAvailable reports whether this build can decode and play preview
// clips on the local device.
const AudioAvailable = false

// LocalPlayer is a no-op stand-in on platforms without audio output. Play
// always fails, which routes the engine to its local-playback error path.
type LocalPlayer struct{}

func NewLocalPlayer(volume float64) *LocalPlayer {
	return &LocalPlayer{}
}

func (p *LocalPlayer) Play(ctx context.Context, previewURL string, onDone func()) error {
	return fmt.Errorf("%w: audio output not available in this build", shared.ErrLocalPlayback)
}

func (p *LocalPlayer) Pause()  {}
func (p *LocalPlayer) Resume() {}
func (p *LocalPlayer) Stop()   {}
