package rsync

import "github.com/pkg/errors"

// Stats accumulates counters over the lifetime of a Job, mirroring the
// statistics the original engine attaches to every job. The core only
// accumulates these; formatting and reporting them is the CLI's concern.
type Stats struct {
	InBytes      uint64
	OutBytes     uint64
	LiteralBytes uint64
	MatchedBytes uint64
	FalseMatches uint64
	Blocks       uint64
}

// stateFunc is one step of a job's pipeline. It may read and consume from
// the buffers and the scoop, queue output through the tube, and returns
// Running to be called again immediately, Blocked to suspend, or a terminal
// Done/Error result.
type stateFunc func(b *Buffers) Result

// Job is a long-lived, single-use value driving one Sign, LoadSig, Delta, or
// Patch operation to completion. Create one with the matching New*Job
// constructor and advance it by calling Iter until it returns a terminal
// result.
type Job struct {
	scoop scoop
	tube  tube
	stats Stats

	state         stateFunc
	stateComplete bool
	workCounter   uint64

	complete bool
	result   Result
}

// progress marks that a state function did some unit of real work during
// this call. The job engine's watchdog uses this, rather than comparing the
// caller's buffer pointers directly, because a single state invocation can
// legitimately make real progress - rolling the weak sum forward, growing a
// pending literal run - without touching the caller's input or output
// buffers at all, whenever the scoop already holds enough readahead to
// satisfy it. A state function that returns Running without calling
// progress is, by construction, not doing anything, which is exactly the
// bug the watchdog exists to catch.
func (j *Job) progress() {
	j.workCounter++
}

// Stats returns the job's accumulated counters.
func (j *Job) Stats() Stats {
	return j.stats
}

// Iter advances the job using the given buffers, returning Done once the
// operation has fully completed and all output has been flushed, Blocked if
// it cannot make further progress with the buffers given, Running is never
// returned to the caller (it is consumed internally), or Error if the
// operation has failed terminally.
func (j *Job) Iter(b *Buffers) Result {
	if j.complete {
		return j.drainAfterComplete(b)
	}

	for {
		if r := j.tube.catchup(b, &j.scoop); r.Kind == Blocked {
			return r
		} else if r.Kind == Error {
			j.finish(r)
			return r
		}

		if j.stateComplete {
			j.finish(j.result)
			return j.result
		}

		before := j.workCounter
		r := j.state(b)

		switch r.Kind {
		case Running:
			if j.workCounter == before {
				watchdog := fail(InternalError, errors.New("rsync: progress watchdog fired, state function made no progress"))
				j.finish(watchdog)
				return watchdog
			}
			continue
		case Blocked:
			return r
		case Done:
			j.stateComplete = true
			j.result = r
			continue
		case Error:
			j.finish(r)
			return r
		default:
			panic("rsync: state function returned an unknown result kind")
		}
	}
}

func (j *Job) finish(r Result) {
	j.complete = true
	j.result = r
}

func (j *Job) drainAfterComplete(b *Buffers) Result {
	if j.result.Kind != Done {
		return j.result
	}
	if r := j.tube.catchup(b, &j.scoop); r.Kind != Done {
		return r
	}
	return j.result
}
