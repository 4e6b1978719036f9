package timex

import "time"

// PeriodFromHz returns the period of a requested frequency.
// freqHz==0 is coerced to 1 to avoid division by zero.
func PeriodFromHz(freqHz uint32) time.Duration {
	if freqHz == 0 {
		freqHz = 1
	}
	return time.Duration(1_000_000_000 / uint64(freqHz))
}

// CharTime is the wire time of one 8N1 character (10 bit times) at baud.
func CharTime(baud uint32) time.Duration {
	return 10 * PeriodFromHz(baud)
}

// RecvTimeout converts a receiver timeout setting, counted in units of four
// character times, into a duration. A zero setting means disabled.
func RecvTimeout(baud uint32, units uint8) time.Duration {
	return time.Duration(units) * 4 * CharTime(baud)
}

// DrainTick is the poll interval used while waiting for the transmitter to
// drain: about two character times, never below 20µs.
func DrainTick(baud uint32) time.Duration {
	d := 2 * CharTime(baud)
	if d < 20*time.Microsecond {
		d = 20 * time.Microsecond
	}
	return d
}
