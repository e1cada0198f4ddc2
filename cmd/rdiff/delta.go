package main

import (
	"github.com/spf13/cobra"

	"github.com/mutagen-io/librsync/cmd"
	"github.com/mutagen-io/librsync/pkg/config"
	"github.com/mutagen-io/librsync/pkg/logging"
	"github.com/mutagen-io/librsync/pkg/must"
	"github.com/mutagen-io/librsync/pkg/rsync"
)

func deltaMain(command *cobra.Command, arguments []string) error {
	if len(arguments) < 1 {
		return errorfUsage(command, "signature file is required")
	}
	if len(arguments) > 3 {
		return errorfUsage(command, "too many arguments")
	}

	sigFile, err := openInput(arguments[0])
	if err != nil {
		return err
	}
	defer must.Close(sigFile, logging.RootLogger)

	loadJob, receiver := rsync.NewLoadSigJob()
	if _, err := rsync.Stream(loadJob, sigFile, discard{}); err != nil {
		return err
	}
	sig := receiver.Signature
	sig.Build()
	logging.RootLogger.Debugf("delta: loaded signature with %d blocks", len(sig.Blocks))

	target, output, err := openPair(arguments[1:], 0, 1)
	if err != nil {
		return err
	}
	defer must.Close(target, logging.RootLogger)
	defer must.Close(output, logging.RootLogger)

	cfg, err := config.Load(rootConfiguration.config, ".")
	if err != nil {
		return err
	}
	paranoid := cfg.Paranoia
	if command.Flags().Changed("paranoia") {
		paranoid = rootConfiguration.paranoid
	}

	job, err := rsync.NewDeltaJob(sig, paranoid)
	if err != nil {
		return err
	}
	stats, err := rsync.Stream(job, target, output)
	if err != nil {
		return err
	}
	logging.RootLogger.Debugf("delta: %d literal bytes, %d matched bytes, %d false matches",
		stats.LiteralBytes, stats.MatchedBytes, stats.FalseMatches)
	return nil
}

var deltaCommand = &cobra.Command{
	Use:   "delta SIGNATURE [NEW [DELTA]]",
	Short: "Compute the delta from a signature to a new file",
	Run:   cmd.Mainify(deltaMain),
}

// discard is a minimal io.Writer that throws away everything written to it,
// used when streaming LoadSig (which never produces output of its own).
type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }
