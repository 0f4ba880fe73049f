package sound

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/hammamikhairi/mise/internal/domain"
	"github.com/hammamikhairi/mise/internal/logger"
)

// Compile-time interface checks.
var (
	_ domain.ExpiryHandler = (*Player)(nil)
	_ Beeper               = (*Player)(nil)
	_ Beeper               = (*NoOp)(nil)
)

// Beeper is an expiry handler that owns an audio device.
type Beeper interface {
	domain.ExpiryHandler
	Close() error
}

// Player beeps through the system audio device via oto. Beeps play in the
// background so a timer tick never waits on audio.
type Player struct {
	ctx  *oto.Context
	log  *logger.Logger
	pcm  []byte
	wg   sync.WaitGroup
	mu   sync.Mutex
	busy bool
	done bool
}

// NewPlayer initializes the audio context. Only one oto context may exist
// per process. Returns an error if the audio device is unavailable.
func NewPlayer(log *logger.Logger, tone Tone) (*Player, error) {
	op := &oto.NewContextOptions{
		SampleRate:   SampleRate,
		ChannelCount: ChannelCount,
		Format:       oto.FormatSignedInt16LE,
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return nil, err
	}
	<-readyChan

	log.Debug("beep player initialized (rate=%d, channels=%d)", SampleRate, ChannelCount)
	return &Player{ctx: ctx, log: log, pcm: tone.PCM()}, nil
}

// TimerExpired starts a beep. Overlapping expiries share one beep.
func (p *Player) TimerExpired(_ context.Context, stepID string) {
	p.mu.Lock()
	if p.done || p.busy {
		p.mu.Unlock()
		return
	}
	p.busy = true
	p.wg.Add(1)
	p.mu.Unlock()

	p.log.Debug("beep for %s", stepID)
	go func() {
		defer p.wg.Done()
		defer func() {
			p.mu.Lock()
			p.busy = false
			p.mu.Unlock()
		}()
		p.play()
	}()
}

func (p *Player) play() {
	player := p.ctx.NewPlayer(bytes.NewReader(p.pcm))
	player.Play()
	for player.IsPlaying() {
		time.Sleep(10 * time.Millisecond)
	}
	if err := player.Close(); err != nil {
		p.log.Warn("closing beep: %v", err)
	}
}

// Close waits for a beep in progress and refuses new ones.
func (p *Player) Close() error {
	p.mu.Lock()
	p.done = true
	p.mu.Unlock()
	p.wg.Wait()
	return nil
}

// Open returns an oto player, or a NoOp when sound is disabled or the
// device cannot be opened.
func Open(enabled bool, log *logger.Logger) Beeper {
	if !enabled {
		log.Info("sound disabled")
		return NewNoOp(log)
	}
	p, err := NewPlayer(log, DefaultTone)
	if err != nil {
		log.Error("audio player init failed, sound disabled: %v", err)
		return NewNoOp(log)
	}
	return p
}
