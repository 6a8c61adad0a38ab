package feedback

import (
	"math"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
)

// Wave is an oscillator shape.
type Wave int

const (
	WaveSine Wave = iota
	WaveSquare
	WaveSaw
)

// oscillator generates a fixed-length periodic wave.
type oscillator struct {
	freq     float64
	phase    float64
	duration int
	position int
	wave     Wave
	rate     beep.SampleRate
}

// NewOscillator creates a streamer of duration at freq Hz.
func NewOscillator(freq float64, duration time.Duration, wave Wave, rate beep.SampleRate) beep.Streamer {
	return &oscillator{
		freq:     freq,
		duration: rate.N(duration),
		wave:     wave,
		rate:     rate,
	}
}

func (o *oscillator) Stream(samples [][2]float64) (n int, ok bool) {
	for i := range samples {
		if o.position >= o.duration {
			return i, i > 0
		}

		var val float64
		switch o.wave {
		case WaveSine:
			val = math.Sin(2 * math.Pi * o.phase)
		case WaveSquare:
			if o.phase < 0.5 {
				val = 1.0
			} else {
				val = -1.0
			}
		case WaveSaw:
			val = 2.0 * (o.phase - 0.5)
		}

		samples[i][0] = val
		samples[i][1] = val

		o.phase += o.freq / float64(o.rate)
		o.phase -= math.Floor(o.phase)
		o.position++
	}
	return len(samples), true
}

func (o *oscillator) Err() error { return nil }

// envelope applies a linear attack and release to a stream.
type envelope struct {
	streamer beep.Streamer
	position int
	attack   int
	release  int
	total    int
}

// NewEnvelope shapes s, which should last duration, with the given attack and release.
func NewEnvelope(s beep.Streamer, duration, attack, release time.Duration, rate beep.SampleRate) beep.Streamer {
	return &envelope{
		streamer: s,
		attack:   rate.N(attack),
		release:  rate.N(release),
		total:    rate.N(duration),
	}
}

func (e *envelope) Stream(samples [][2]float64) (n int, ok bool) {
	n, ok = e.streamer.Stream(samples)

	releaseStart := e.total - e.release
	for i := 0; i < n; i++ {
		vol := 1.0
		if e.attack > 0 && e.position < e.attack {
			vol = float64(e.position) / float64(e.attack)
		}
		if e.release > 0 && e.position >= releaseStart {
			vol = math.Max(0, float64(e.total-e.position)/float64(e.release))
		}

		samples[i][0] *= vol
		samples[i][1] *= vol
		e.position++
	}
	return n, ok
}

func (e *envelope) Err() error { return e.streamer.Err() }

// withVolume scales s linearly. Zero or less is silence.
func withVolume(s beep.Streamer, vol float64) beep.Streamer {
	if vol <= 0 {
		return &effects.Volume{Streamer: s, Base: 2, Silent: true}
	}
	return &effects.Volume{Streamer: s, Base: 2, Volume: math.Log2(vol)}
}

// note is one shaped oscillator.
func note(freq float64, d time.Duration, wave Wave, rate beep.SampleRate) beep.Streamer {
	attack := 5 * time.Millisecond
	release := d / 2
	return NewEnvelope(NewOscillator(freq, d, wave, rate), d, attack, release, rate)
}

// Sound names a feedback cue.
type Sound int

const (
	SoundPerfect Sound = iota
	SoundGood
	SoundMiss
	SoundMultiplier
	SoundGameEnd
)

func (s Sound) String() string {
	switch s {
	case SoundPerfect:
		return "perfect"
	case SoundGood:
		return "good"
	case SoundMiss:
		return "miss"
	case SoundMultiplier:
		return "multiplier"
	case SoundGameEnd:
		return "game-end"
	default:
		return "unknown"
	}
}

// Tone builds the streamer for a cue at the given volume.
func Tone(s Sound, volume float64, rate beep.SampleRate) beep.Streamer {
	var st beep.Streamer
	switch s {
	case SoundPerfect:
		// A5 then its octave, bright and short
		st = beep.Seq(
			note(880, 60*time.Millisecond, WaveSine, rate),
			note(1760, 90*time.Millisecond, WaveSine, rate),
		)
	case SoundGood:
		st = note(660, 100*time.Millisecond, WaveSine, rate)
	case SoundMiss:
		st = withVolume(note(110, 150*time.Millisecond, WaveSaw, rate), 0.6)
	case SoundMultiplier:
		st = beep.Seq(
			note(987.77, 80*time.Millisecond, WaveSquare, rate),
			note(1318.51, 160*time.Millisecond, WaveSquare, rate),
		)
	case SoundGameEnd:
		st = beep.Seq(
			note(523.25, 150*time.Millisecond, WaveSine, rate),
			note(659.25, 150*time.Millisecond, WaveSine, rate),
			note(783.99, 300*time.Millisecond, WaveSine, rate),
		)
	default:
		return nil
	}
	return withVolume(st, volume)
}
