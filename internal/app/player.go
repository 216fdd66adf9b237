// ABOUTME: Main player application orchestration
// ABOUTME: Opens the device bridge, feeds the engine its sources and waits for playback to end
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/Resonate-Protocol/soundbridge/pkg/bridge"
	"github.com/Resonate-Protocol/soundbridge/pkg/engine"
	"github.com/Resonate-Protocol/soundbridge/pkg/source"
)

// ErrNothingToPlay is returned by Start when neither a tone nor files are configured
var ErrNothingToPlay = errors.New("nothing to play: set a tone or at least one file")

// pollInterval is how often Wait checks whether every source has finished
const pollInterval = 50 * time.Millisecond

// Player plays configured sources through one device bridge
type Player struct {
	config Config
	sub    bridge.Subsystem
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	engine  *engine.Engine
	bridge  *bridge.Bridge
	sources []engine.SourceID
}

// New creates a new player on the given audio subsystem
func New(config Config, sub bridge.Subsystem) *Player {
	ctx, cancel := context.WithCancel(context.Background())

	return &Player{
		config: config,
		sub:    sub,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start opens the device, queues every source and starts output
func (p *Player) Start() error {
	if p.config.Tone <= 0 && len(p.config.Files) == 0 {
		return ErrNothingToPlay
	}

	cfg, err := p.config.BridgeConfig()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	eng, b, err := bridge.OpenConfig(p.sub, cfg)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.engine = eng
	p.bridge = b
	p.mu.Unlock()

	p.SetVolume(p.config.Volume)

	if err := p.queueSources(eng); err != nil {
		p.closeBridge()
		return err
	}

	if err := b.Resume(); err != nil {
		p.closeBridge()
		return fmt.Errorf("failed to start playback: %w", err)
	}

	log.Printf("Playing %d source(s) at %s", len(p.sources), b.Spec())
	return nil
}

func (p *Player) queueSources(eng *engine.Engine) error {
	if p.config.Tone > 0 {
		tone, err := source.Tone(eng.SampleRate(), p.config.Tone, p.config.Duration)
		if err != nil {
			return err
		}
		p.sources = append(p.sources, eng.AddSource(tone))
	}

	for _, path := range p.config.Files {
		clip, err := source.Load(path)
		if err != nil {
			return err
		}
		log.Printf("Loaded %s: %v at %dHz", path, clip.Duration().Round(time.Millisecond), clip.Format().SampleRate)
		p.sources = append(p.sources, eng.AddSourceFormat(clip.Streamer(), clip.Format()))
	}
	return nil
}

// Wait blocks until every source has finished, the configured duration has
// elapsed or Stop is called
func (p *Player) Wait() error {
	p.mu.Lock()
	eng := p.engine
	p.mu.Unlock()
	if eng == nil {
		return fmt.Errorf("player not started")
	}

	var deadline <-chan time.Time
	if p.config.Duration > 0 {
		timer := time.NewTimer(p.config.Duration)
		defer timer.Stop()
		deadline = timer.C
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if eng.Len() == 0 {
				log.Printf("All sources finished")
				return nil
			}
		case <-deadline:
			log.Printf("Duration %v elapsed", p.config.Duration)
			return nil
		case <-p.ctx.Done():
			return nil
		}
	}
}

// Run starts playback, waits for it to end and stops
func (p *Player) Run() error {
	if err := p.Start(); err != nil {
		return err
	}
	waitErr := p.Wait()
	return errors.Join(waitErr, p.Stop())
}

// Pause suspends output without dropping sources
func (p *Player) Pause() error {
	if b := p.currentBridge(); b != nil {
		return b.Pause()
	}
	return nil
}

// Resume restarts output after Pause
func (p *Player) Resume() error {
	if b := p.currentBridge(); b != nil {
		return b.Resume()
	}
	return nil
}

// SetVolume sets the master volume (0-100)
func (p *Player) SetVolume(volume int) {
	if volume < 0 {
		volume = 0
	}
	if volume > 100 {
		volume = 100
	}

	p.mu.Lock()
	p.config.Volume = volume
	eng := p.engine
	p.mu.Unlock()

	if eng != nil {
		eng.SetMasterGain(float64(volume) / 100)
	}
}

// Volume returns the master volume
func (p *Player) Volume() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.config.Volume
}

// Stats returns the bridge callback counters
func (p *Player) Stats() bridge.Stats {
	if b := p.currentBridge(); b != nil {
		return b.Stats()
	}
	return bridge.Stats{}
}

// Stop ends playback and closes the device. Safe to call more than once.
func (p *Player) Stop() error {
	p.cancel()
	return p.closeBridge()
}

func (p *Player) closeBridge() error {
	b := p.currentBridge()
	if b == nil {
		return nil
	}
	err := b.Close()
	s := b.Stats()
	log.Printf("Playback stopped: %d callbacks, %d frames, %d fallbacks", s.Callbacks, s.Frames, s.Fallbacks)
	return err
}

func (p *Player) currentBridge() *bridge.Bridge {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.bridge
}
