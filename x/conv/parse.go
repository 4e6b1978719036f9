package conv

import "tinyiiod-go/errcode"

const (
	maxInt32 = 1<<31 - 1
	microOne = 1_000_000
)

// trim drops ASCII whitespace and NUL padding around s.
func trim(s []byte) []byte {
	isPad := func(c byte) bool {
		return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == 0
	}
	for len(s) > 0 && isPad(s[0]) {
		s = s[1:]
	}
	for len(s) > 0 && isPad(s[len(s)-1]) {
		s = s[:len(s)-1]
	}
	return s
}

func sign(s []byte) (neg bool, rest []byte) {
	if len(s) > 0 && (s[0] == '+' || s[0] == '-') {
		return s[0] == '-', s[1:]
	}
	return false, s
}

// ParseInt32 parses a signed base-10 integer.
func ParseInt32(s []byte) (int32, error) {
	s = trim(s)
	neg, s := sign(s)
	if len(s) == 0 {
		return 0, errcode.New(errcode.InvalidParams, "parse", "empty integer")
	}
	var v int64
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, errcode.New(errcode.InvalidParams, "parse", "not an integer: "+string(s))
		}
		v = v*10 + int64(c-'0')
		if v > maxInt32+1 {
			return 0, errcode.New(errcode.InvalidParams, "parse", "integer out of range")
		}
	}
	if neg {
		v = -v
	} else if v > maxInt32 {
		return 0, errcode.New(errcode.InvalidParams, "parse", "integer out of range")
	}
	return int32(v), nil
}

// ParseMicro parses a decimal number into the fixed-point pair used by the
// calibration registers. val is the integer part truncated toward zero; val2
// is the fraction in millionths, rounded half away from zero on the seventh
// digit. Both carry the sign of the value, so "-0.5" yields (0, -500000).
// The text is decoded exactly; no floating point is involved.
func ParseMicro(s []byte) (val, val2 int32, err error) {
	s = trim(s)
	neg, s := sign(s)

	var intPart int64
	var frac int64
	nInt, nFrac := 0, 0
	roundUp := false
	i := 0
	for ; i < len(s) && s[i] >= '0' && s[i] <= '9'; i++ {
		intPart = intPart*10 + int64(s[i]-'0')
		if intPart > maxInt32+1 {
			return 0, 0, errcode.New(errcode.InvalidParams, "parse", "value out of range")
		}
		nInt++
	}
	if i < len(s) && s[i] == '.' {
		i++
		for ; i < len(s) && s[i] >= '0' && s[i] <= '9'; i++ {
			switch {
			case nFrac < MicroDigits:
				frac = frac*10 + int64(s[i]-'0')
			case nFrac == MicroDigits:
				roundUp = s[i] >= '5'
			}
			nFrac++
		}
	}
	if i != len(s) || nInt+nFrac == 0 {
		return 0, 0, errcode.New(errcode.InvalidParams, "parse", "not a decimal: "+string(s))
	}
	for d := nFrac; d < MicroDigits; d++ {
		frac *= 10
	}
	if roundUp {
		frac++
		if frac == microOne {
			frac = 0
			intPart++
		}
	}
	if neg {
		intPart, frac = -intPart, -frac
	}
	if intPart > maxInt32 || intPart < -maxInt32-1 {
		return 0, 0, errcode.New(errcode.InvalidParams, "parse", "value out of range")
	}
	return int32(intPart), int32(frac), nil
}
