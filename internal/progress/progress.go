// Package progress provides fire-and-forget progress sinks for organizer operations.
package progress

import (
	"github.com/fgeck/stl-organizer/internal/models"
	"github.com/rs/zerolog"
)

// Sink receives progress updates. Implementations must return promptly.
type Sink func(models.Progress)

// Discard ignores every update.
func Discard(models.Progress) {}

// Report sends an update to sink, tolerating a nil sink.
func Report(sink Sink, percent int, message string) {
	if sink == nil {
		return
	}
	sink(models.Progress{Percent: clamp(percent), Message: message})
}

// Percent returns done/total as an integer percentage in [0,100].
func Percent(done, total int) int {
	if total <= 0 {
		return 100
	}
	return clamp(int(float64(done) / float64(total) * 100))
}

// ToChannel returns a sink that forwards updates to ch without blocking.
// Updates are dropped while the channel buffer is full.
func ToChannel(ch chan<- models.Progress) Sink {
	return func(p models.Progress) {
		select {
		case ch <- p:
		default:
		}
	}
}

// ToLogger returns a sink that writes each update as a debug event.
func ToLogger(logger zerolog.Logger) Sink {
	return func(p models.Progress) {
		logger.Debug().Int("percent", p.Percent).Msg(p.Message)
	}
}

// Tee fans an update out to every non-nil sink in order.
func Tee(sinks ...Sink) Sink {
	return func(p models.Progress) {
		for _, s := range sinks {
			if s != nil {
				s(p)
			}
		}
	}
}

func clamp(p int) int {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	default:
		return p
	}
}
