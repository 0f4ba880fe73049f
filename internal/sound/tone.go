// Package sound plays a short beep when a step timer expires.
package sound

import (
	"encoding/binary"
	"math"
	"time"
)

// Audio format shared by the tone generator and the oto context.
const (
	SampleRate   = 24000
	ChannelCount = 1
)

// Tone describes a beep pattern: Count pulses of Freq hertz, each Pulse
// long, separated by Gap.
type Tone struct {
	Freq   float64
	Pulse  time.Duration
	Gap    time.Duration
	Count  int
	Volume float64 // 0..1
}

// DefaultTone is three short kitchen-timer pips.
var DefaultTone = Tone{
	Freq:   880,
	Pulse:  180 * time.Millisecond,
	Gap:    120 * time.Millisecond,
	Count:  3,
	Volume: 0.4,
}

// PCM renders the tone as signed 16-bit little-endian mono samples.
// Each pulse fades in and out over a few milliseconds so it doesn't click.
func (t Tone) PCM() []byte {
	pulse := samples(t.Pulse)
	gap := samples(t.Gap)
	if t.Count <= 0 || pulse == 0 {
		return nil
	}

	total := t.Count*pulse + (t.Count-1)*gap
	buf := make([]byte, total*2)
	fade := min(samples(5*time.Millisecond), pulse/2)
	amp := math.Max(0, math.Min(t.Volume, 1)) * math.MaxInt16

	pos := 0
	for p := 0; p < t.Count; p++ {
		for i := 0; i < pulse; i++ {
			env := 1.0
			if fade > 0 {
				if i < fade {
					env = float64(i) / float64(fade)
				} else if pulse-1-i < fade {
					env = float64(pulse-1-i) / float64(fade)
				}
			}
			v := amp * env * math.Sin(2*math.Pi*t.Freq*float64(i)/SampleRate)
			binary.LittleEndian.PutUint16(buf[pos*2:], uint16(int16(v)))
			pos++
		}
		if p < t.Count-1 {
			pos += gap // silence is already zero
		}
	}
	return buf
}

func samples(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(int64(d) * SampleRate / int64(time.Second))
}
