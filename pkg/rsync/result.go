// Package rsync implements the pull-driven streaming job engine: the scoop
// (readahead buffer), the tube (pending-output buffer), the generic state
// machine that drives both, and the four pipelines built on top of it
// (Sign, LoadSig, Delta, Patch).
package rsync

import "fmt"

// Kind classifies the outcome of a single Iter call.
type Kind int

const (
	// Done means the job has finished successfully; all output has been
	// produced and flushed.
	Done Kind = iota
	// Blocked means the job cannot make further progress with the buffers
	// it was given: either the output buffer is full or the input buffer
	// is exhausted without end-of-input flagged.
	Blocked
	// Running is returned by a state function that made progress and should
	// be called again immediately. Iter consumes it and never returns it.
	Running
	// Error means the job has failed terminally; see Result.Code.
	Error
)

func (k Kind) String() string {
	switch k {
	case Done:
		return "Done"
	case Blocked:
		return "Blocked"
	case Running:
		return "Running"
	case Error:
		return "Error"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Code identifies the specific failure when a Result's Kind is Error.
type Code int

const (
	// BadMagic means a header word did not match any known magic number.
	BadMagic Code = iota + 1
	// InputEnded means end-of-input was flagged with a partial item
	// pending that can never be completed.
	InputEnded
	// Corrupt means the input violated the wire format: a reserved
	// opcode, a negative length or offset, or an implausible parameter.
	Corrupt
	// MemError means an allocation failed in the scoop, signature array,
	// or hash index.
	MemError
	// ParamError means a caller supplied an invalid length, magic, or
	// nil buffer at job construction or to Iter.
	ParamError
	// InternalError means an engine invariant was violated, including the
	// progress watchdog firing.
	InternalError
	// Unimplemented means a reserved-but-future command byte was seen.
	// Today this has the same effect as Corrupt.
	Unimplemented
	// IoError reports a failure reading from an external resource the core
	// does not itself own: a Patch job's basis reader (see ReaderAtBasis).
	// cmd/rdiff exits with IoError's status for its own file open, read and
	// write failures too.
	IoError
)

func (c Code) String() string {
	switch c {
	case BadMagic:
		return "BadMagic"
	case InputEnded:
		return "InputEnded"
	case Corrupt:
		return "Corrupt"
	case MemError:
		return "MemError"
	case ParamError:
		return "ParamError"
	case InternalError:
		return "InternalError"
	case Unimplemented:
		return "Unimplemented"
	case IoError:
		return "IoError"
	default:
		return fmt.Sprintf("Code(%d)", int(c))
	}
}

// Result is the outcome of a single Iter call.
type Result struct {
	Kind Kind
	// Code and Err are populated only when Kind is Error.
	Code Code
	Err  error
}

func done() Result    { return Result{Kind: Done} }
func blocked() Result { return Result{Kind: Blocked} }
func running() Result { return Result{Kind: Running} }

func fail(code Code, err error) Result {
	return Result{Kind: Error, Code: code, Err: err}
}

// IsTerminal reports whether the job is finished (successfully or not) and
// Iter should not be called again, aside from possibly draining a final
// flush.
func (r Result) IsTerminal() bool {
	return r.Kind == Done || r.Kind == Error
}

func (r Result) String() string {
	if r.Kind == Error {
		return fmt.Sprintf("Error(%s): %v", r.Code, r.Err)
	}
	return r.Kind.String()
}
