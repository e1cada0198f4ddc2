package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/mutagen-io/librsync/cmd"
	"github.com/mutagen-io/librsync/pkg/logging"
	"github.com/mutagen-io/librsync/pkg/must"
	"github.com/mutagen-io/librsync/pkg/rsync"
)

func patchMain(command *cobra.Command, arguments []string) error {
	if len(arguments) < 1 {
		return errorfUsage(command, "basis file is required")
	}
	if len(arguments) > 3 {
		return errorfUsage(command, "too many arguments")
	}
	if arguments[0] == "-" {
		return errorfUsage(command, "basis must be a seekable file, not standard input")
	}

	basisFile, err := os.Open(arguments[0])
	if err != nil {
		return err
	}
	defer must.Close(basisFile, logging.RootLogger)

	delta, output, err := openPair(arguments[1:], 0, 1)
	if err != nil {
		return err
	}
	defer must.Close(delta, logging.RootLogger)
	defer must.Close(output, logging.RootLogger)

	job, err := rsync.NewPatchJob(rsync.ReaderAtBasis(basisFile))
	if err != nil {
		return err
	}
	stats, err := rsync.Stream(job, delta, output)
	if err != nil {
		return err
	}
	logging.RootLogger.Debugf("patch: %d literal bytes, %d matched bytes written",
		stats.LiteralBytes, stats.MatchedBytes)
	return nil
}

var patchCommand = &cobra.Command{
	Use:   "patch BASIS [DELTA [NEW]]",
	Short: "Apply a delta to a basis file",
	Run:   cmd.Mainify(patchMain),
}
