package errcode

import "strconv"

// Code is a stable, caller-facing error identifier.
// It is a string newtype, comparable, allocation-free, and implements error.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes (short, stable).
const (
	OK                Code = "ok"
	NotFound          Code = "not_found"   // attribute/channel/device miss; expected
	Unsupported       Code = "unsupported" // exists, operation disallowed
	HardwareFailure   Code = "hardware_failure"
	AllocationFailure Code = "allocation_failure"
	InitFailure       Code = "init_failure"
	InvalidParams     Code = "invalid_params"
	Timeout           Code = "timeout"
	Closed            Code = "closed"
	Busy              Code = "busy"
	Failure           Code = "failure"

	Error Code = "error" // generic fallback
)

// Status is a raw status reported by a hardware capability. Negative values
// are failures and are passed upward unchanged.
type Status int32

func (s Status) Error() string { return "hw status " + strconv.Itoa(int(s)) }

// Code classifies every hardware status as HardwareFailure.
func (s Status) Code() Code { return HardwareFailure }

// Optional wrapper when we want to keep context and a cause.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
}

func (e *E) Error() string {
	s := string(e.C)
	if e.Op != "" {
		s = e.Op + ": " + s
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Err != nil && e.Err != e.C {
		s += ": " + e.Err.Error()
	}
	return s
}
func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// Is lets errors.Is(err, errcode.NotFound) match a wrapped E.
func (e *E) Is(target error) bool {
	c, ok := target.(Code)
	return ok && c == e.C
}

// Wrap attaches an operation and a cause to a code.
func Wrap(c Code, op string, err error) error {
	return &E{C: c, Op: op, Err: err}
}

// New builds an E with a message and no cause.
func New(c Code, op, msg string) error {
	return &E{C: c, Op: op, Msg: msg}
}

// Of extracts a Code from an error, defaulting to Error.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	if c, ok := err.(Code); ok {
		return c
	}
	type coder interface{ Code() Code }
	if x, ok := err.(coder); ok {
		return x.Code()
	}
	type unwrapper interface{ Unwrap() error }
	if u, ok := err.(unwrapper); ok {
		if inner := u.Unwrap(); inner != nil {
			return Of(inner)
		}
	}
	return Error
}

// Negative errno values used on the attribute text protocol.
const (
	errnoNOENT    = -2
	errnoIO       = -5
	errnoNXIO     = -6
	errnoBADF     = -9
	errnoNOMEM    = -12
	errnoBUSY     = -16
	errnoNODEV    = -19
	errnoINVAL    = -22
	errnoTIMEDOUT = -110
)

// Errno returns the negative status reported upward for err, or 0 for nil.
// A hardware Status anywhere in the chain is returned verbatim.
func Errno(err error) int32 {
	if err == nil {
		return 0
	}
	for e := err; e != nil; {
		if s, ok := e.(Status); ok {
			return int32(s)
		}
		u, ok := e.(interface{ Unwrap() error })
		if !ok {
			break
		}
		e = u.Unwrap()
	}
	switch Of(err) {
	case NotFound:
		return errnoNOENT
	case Unsupported:
		return errnoNODEV
	case HardwareFailure:
		return errnoIO
	case AllocationFailure:
		return errnoNOMEM
	case InitFailure:
		return errnoNXIO
	case InvalidParams:
		return errnoINVAL
	case Timeout:
		return errnoTIMEDOUT
	case Closed:
		return errnoBADF
	case Busy:
		return errnoBUSY
	default:
		return -1
	}
}
