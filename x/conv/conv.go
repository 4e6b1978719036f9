// Package conv formats and parses the ASCII decimal values carried on the
// attribute text protocol. Formatting writes into caller buffers and never
// allocates; output longer than the destination is truncated.
package conv

// Utoa writes base-10 representation of n into buf and returns the used slice.
// buf should be length >= 20 for uint64.
func Utoa(buf []byte, n uint64) []byte {
	if len(buf) == 0 {
		return buf[:0]
	}
	i := len(buf)
	if n == 0 {
		i--
		buf[i] = '0'
	} else {
		for n > 0 && i > 0 {
			i--
			buf[i] = byte('0' + (n % 10))
			n /= 10
		}
	}
	return buf[i:]
}

// Itoa is Utoa with a leading '-' for negative n.
func Itoa(buf []byte, n int64) []byte {
	if n >= 0 {
		return Utoa(buf, uint64(n))
	}
	if len(buf) == 0 {
		return buf[:0]
	}
	// -n overflows for MinInt64; uint64 negation does not.
	s := Utoa(buf[1:], -uint64(n))
	i := len(buf) - len(s) - 1
	buf[i] = '-'
	return buf[i:]
}

// PutUint copies the decimal form of n into dst and returns the count written.
func PutUint(dst []byte, n uint64) int {
	var tmp [20]byte
	return copy(dst, Utoa(tmp[:], n))
}

// PutInt copies the decimal form of n into dst and returns the count written.
func PutInt(dst []byte, n int64) int {
	var tmp [21]byte
	return copy(dst, Itoa(tmp[:], n))
}

// MicroDigits is the number of fractional digits in a micro fixed-point value.
const MicroDigits = 6

// PutMicro formats the fixed-point pair (val, val2) as "val.|val2|" with val2
// zero-padded to six digits. When val2 is negative and val is not, the integer
// part alone would read as positive, so a leading '-' is emitted.
func PutMicro(dst []byte, val, val2 int32) int {
	var tmp [40]byte
	out := tmp[:0]
	if val2 < 0 && val >= 0 {
		out = append(out, '-')
	}
	var ibuf [21]byte
	out = append(out, Itoa(ibuf[:], int64(val))...)
	out = append(out, '.')

	frac := int64(val2)
	if frac < 0 {
		frac = -frac
	}
	var fbuf [20]byte
	digits := Utoa(fbuf[:], uint64(frac))
	for pad := MicroDigits - len(digits); pad > 0; pad-- {
		out = append(out, '0')
	}
	out = append(out, digits...)
	return copy(dst, out)
}
