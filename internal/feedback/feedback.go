// Package feedback plays short audio cues for game events.
package feedback

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"

	"github.com/ayusman/posebeat/internal/game"
)

// Config holds audio settings.
type Config struct {
	Enabled    bool
	Volume     float64
	SampleRate int
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		Enabled:    true,
		Volume:     0.3,
		SampleRate: 44100,
	}
}

// Player outputs a finished streamer.
type Player interface {
	Play(s beep.Streamer)
}

// SpeakerPlayer mixes cues into the system audio device.
type SpeakerPlayer struct {
	mu          sync.Mutex
	mixer       *beep.Mixer
	initialized bool
}

// NewSpeakerPlayer initializes the speaker at rate.
func NewSpeakerPlayer(rate beep.SampleRate) (*SpeakerPlayer, error) {
	p := &SpeakerPlayer{mixer: &beep.Mixer{}}
	if err := speaker.Init(rate, rate.N(50*time.Millisecond)); err != nil {
		return nil, fmt.Errorf("init speaker: %w", err)
	}
	speaker.Play(p.mixer)
	p.initialized = true
	return p, nil
}

// Play adds s to the mix. Overlapping cues play together.
func (p *SpeakerPlayer) Play(s beep.Streamer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.initialized {
		return
	}
	speaker.Lock()
	p.mixer.Add(s)
	speaker.Unlock()
}

// Close silences playback.
func (p *SpeakerPlayer) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.initialized {
		return
	}
	speaker.Lock()
	p.mixer.Clear()
	speaker.Unlock()
	p.initialized = false
}

// SoundManager turns game notifications into cues. It implements game.Listener.
type SoundManager struct {
	config Config
	player Player
	rate   beep.SampleRate

	mu         sync.Mutex
	multiplier int
}

// NewSoundManager creates a SoundManager that sends cues to player.
func NewSoundManager(config Config, player Player) *SoundManager {
	if config.SampleRate <= 0 {
		config.SampleRate = DefaultConfig().SampleRate
	}
	return &SoundManager{
		config:     config,
		player:     player,
		rate:       beep.SampleRate(config.SampleRate),
		multiplier: 1,
	}
}

// New opens the speaker and returns a SoundManager playing through it.
// When audio is disabled or the device is unavailable it returns a
// manager that stays silent.
func New(config Config) (*SoundManager, *SpeakerPlayer) {
	if !config.Enabled {
		return NewSoundManager(config, nil), nil
	}

	p, err := NewSpeakerPlayer(beep.SampleRate(config.SampleRate))
	if err != nil {
		log.Printf("Audio unavailable (%v), feedback disabled", err)
		return NewSoundManager(config, nil), nil
	}
	return NewSoundManager(config, p), p
}

// Play emits one cue.
func (m *SoundManager) Play(s Sound) {
	if m.player == nil || !m.config.Enabled {
		return
	}
	if st := Tone(s, m.config.Volume, m.rate); st != nil {
		m.player.Play(st)
	}
}

// OnHit implements game.Listener.
func (m *SoundManager) OnHit(r game.HitResult) {
	if r.Rating == game.RatingPerfect {
		m.Play(SoundPerfect)
		return
	}
	m.Play(SoundGood)
}

// OnMiss implements game.Listener.
func (m *SoundManager) OnMiss(game.Arrow) {
	m.Play(SoundMiss)
}

// OnComboChange implements game.Listener. A chime marks each new multiplier tier.
func (m *SoundManager) OnComboChange(_, multiplier int) {
	m.mu.Lock()
	up := multiplier > m.multiplier
	m.multiplier = multiplier
	m.mu.Unlock()

	if up {
		m.Play(SoundMultiplier)
	}
}

// OnGameEnd implements game.Listener.
func (m *SoundManager) OnGameEnd(game.Stats) {
	m.mu.Lock()
	m.multiplier = 1
	m.mu.Unlock()
	m.Play(SoundGameEnd)
}
