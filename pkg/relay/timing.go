package relay

import "time"

// Timing holds the device-compatibility tuning constants for one broadcast.
// The Relay has no flow control, so the sender has to feed its jitter buffer
// at the rate the firmware drains it. Values below were found empirically.
type Timing struct {
	PrimeCount int           // null packets before audio
	PrimePause time.Duration // pause between priming and audio
	FrameDelay time.Duration // pause after a regular audio frame
	DrainEvery int           // every Nth frame gets DrainDelay instead, 0 = never
	DrainDelay time.Duration // longer pause that lets the receiver buffer drain
	TrailCount int           // null packets after audio, keeps the end tone off the tail
	EndCount   int           // END marker repeats
	EndDelay   time.Duration // pause between END markers
}

// DefaultTiming works with current Relay firmware.
func DefaultTiming() Timing {
	return Timing{
		PrimeCount: 15,
		PrimePause: 20 * time.Millisecond,
		FrameDelay: 10 * time.Millisecond,
		DrainEvery: 100,
		DrainDelay: 20 * time.Millisecond,
		TrailCount: 10,
		EndCount:   3,
		EndDelay:   10 * time.Millisecond,
	}
}

// LegacyTiming matches the first firmware generation: fewer priming
// packets, no pause before audio and uniform 12 ms frame spacing.
func LegacyTiming() Timing {
	return Timing{
		PrimeCount: 10,
		FrameDelay: 12 * time.Millisecond,
		TrailCount: 10,
		EndCount:   3,
		EndDelay:   10 * time.Millisecond,
	}
}
