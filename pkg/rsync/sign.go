package rsync

import (
	"github.com/mutagen-io/librsync/pkg/netint"
	"github.com/mutagen-io/librsync/pkg/rsmagic"
	"github.com/mutagen-io/librsync/pkg/strongsum"
	"github.com/mutagen-io/librsync/pkg/weaksum"
)

// signJob holds the state private to a Sign pipeline: the magic/block/strong
// parameters it was constructed with, plus whatever the header state needs
// to hand to the generate state.
type signJob struct {
	job *Job

	magic     rsmagic.Magic
	blockLen  uint32
	strongLen int
}

// NewSignJob creates a Job that reads a basis from Iter's input buffer and
// writes its signature to the output buffer: a header (magic, block
// length, strong sum length) followed by one (weak sum, truncated strong
// sum) record per block.
func NewSignJob(magic rsmagic.Magic, blockLen uint32, strongLen int) (*Job, error) {
	if !rsmagic.Valid(magic) {
		return nil, errorf(ParamError, "unrecognized signature magic: %#x", uint32(magic))
	}
	if blockLen == 0 {
		return nil, errorf(ParamError, "block length must be non-zero")
	}
	if strongLen <= 0 || strongLen > strongsum.FullLength(magic) {
		return nil, errorf(ParamError, "strong sum length %d out of range for this algorithm", strongLen)
	}

	j := &Job{}
	sj := &signJob{job: j, magic: magic, blockLen: blockLen, strongLen: strongLen}
	j.state = sj.header
	return j, nil
}

func (sj *signJob) header(b *Buffers) Result {
	payload := netint.Put(nil, uint64(sj.magic), 4)
	payload = netint.Put(payload, uint64(sj.blockLen), 4)
	payload = netint.Put(payload, uint64(sj.strongLen), 4)
	if err := sj.job.tube.write(payload); err != nil {
		return fail(InternalError, err)
	}
	sj.job.stats.OutBytes += uint64(len(payload))
	sj.job.state = sj.generate
	sj.job.progress()
	return running()
}

func (sj *signJob) generate(b *Buffers) Result {
	data, r := sj.job.scoop.readahead(b, int(sj.blockLen))
	switch r.Kind {
	case Blocked:
		return r
	case Done:
		block := data[:sj.blockLen]
		sj.job.scoop.advance(b, int(sj.blockLen))
		if err := sj.emit(block); err != nil {
			return fail(InternalError, err)
		}
		sj.job.progress()
		return running()
	case Error:
		if r.Code != InputEnded {
			return r
		}
		rest := sj.job.scoop.readRest(b)
		if len(rest) == 0 {
			return done()
		}
		if err := sj.emit(rest); err != nil {
			return fail(InternalError, err)
		}
		return done()
	default:
		return fail(InternalError, nil)
	}
}

func (sj *signJob) emit(block []byte) error {
	weak := weaksum.New(sj.magic)
	weak.Init()
	weak.Update(block)

	sum := strongsum.Sum(sj.magic, block, sj.strongLen)

	payload := netint.Put(nil, uint64(weak.Digest()), 4)
	payload = append(payload, sum...)

	if err := sj.job.tube.write(payload); err != nil {
		return err
	}

	sj.job.stats.Blocks++
	sj.job.stats.InBytes += uint64(len(block))
	sj.job.stats.OutBytes += uint64(len(payload))
	return nil
}
