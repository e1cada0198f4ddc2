package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/mutagen-io/librsync/cmd"
	"github.com/mutagen-io/librsync/cmd/profile"
	"github.com/mutagen-io/librsync/pkg/logging"
	"github.com/mutagen-io/librsync/pkg/mutagen"
	"github.com/mutagen-io/librsync/pkg/rsync"
)

// usageError marks a CLI argument/flag problem detected by our own entry
// points (as opposed to one the rsync engine itself reported), so it maps to
// the dedicated CLI-syntax-error exit code rather than a job failure code.
type usageError struct{ err error }

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func errorfUsage(command *cobra.Command, format string, args ...interface{}) error {
	return &usageError{err: errors.Errorf(format, args...)}
}

func rootMain(command *cobra.Command, arguments []string) {
	if rootConfiguration.version {
		fmt.Println(mutagen.Version)
		return
	}
	command.Help()
}

var rootCommand = &cobra.Command{
	Use:          "rdiff",
	Short:        "rdiff computes and applies librsync-compatible signatures and deltas",
	Run:          rootMain,
	SilenceUsage: true,
	PersistentPreRunE: func(command *cobra.Command, arguments []string) error {
		level := logging.LevelWarn
		if rootConfiguration.verbose {
			level = logging.LevelDebug
		}
		logging.SetLevel(level)

		if rootConfiguration.profile != "" {
			p, err := profile.New(rootConfiguration.profile)
			if err != nil {
				return errors.Wrap(err, "unable to start profiling")
			}
			activeProfile = p
		}
		return nil
	},
}

var rootConfiguration struct {
	// help indicates that help information should be shown.
	help bool
	// version indicates that version information should be shown.
	version bool
	// config is the path to a YAML configuration file.
	config string
	// verbose indicates that -v was passed.
	verbose bool
	// paranoid indicates that --paranoia was passed.
	paranoid bool
	// force indicates that -f was passed, allowing output files to be
	// overwritten.
	force bool
	// profile is the name to use for CPU/heap profile output files, or empty
	// if profiling is disabled.
	profile string
}

func init() {
	flags := rootCommand.PersistentFlags()
	flags.BoolVarP(&rootConfiguration.help, "help", "h", false, "Show help information")
	flags.StringVar(&rootConfiguration.config, "config", "", "Path to a YAML configuration file")
	flags.BoolVarP(&rootConfiguration.verbose, "verbose", "v", false, "Show debug output")
	flags.BoolVar(&rootConfiguration.paranoid, "paranoia", false, "Recompute and verify the rolling checksum at every step while computing a delta")
	flags.BoolVarP(&rootConfiguration.force, "force", "f", false, "Overwrite an existing output file")
	flags.StringVar(&rootConfiguration.profile, "profile", "", "Capture CPU and heap profiles under the given name")

	flags = rootCommand.Flags()
	flags.BoolVarP(&rootConfiguration.version, "version", "V", false, "Show version information")

	cobra.EnableCommandSorting = false

	cmd.ExitCodeForError = exitForResult

	rootCommand.AddCommand(
		signatureCommand,
		deltaCommand,
		patchCommand,
	)
}

// exitForResult maps a terminal rsync error into the CLI's process exit
// code, following the original rdiff utility's exit code convention.
func exitForResult(err error) int {
	var usage *usageError
	if errors.As(err, &usage) {
		return 101
	}

	code, ok := rsync.ErrorCode(err)
	if !ok {
		// A file open, read or write failure exits like a job's IoError.
		var pathErr *os.PathError
		if errors.As(err, &pathErr) {
			return 100
		}
		// Anything else we can't attribute to a specific job failure - including
		// cobra's own flag-parsing errors, which never reach an entry point
		// at all - is treated as a usage problem.
		return 101
	}
	switch code {
	case rsync.IoError:
		return 100
	case rsync.BadMagic:
		return 104
	case rsync.Unimplemented:
		return 105
	case rsync.Corrupt:
		return 106
	case rsync.InternalError:
		return 107
	case rsync.ParamError:
		return 108
	case rsync.MemError:
		return 102
	case rsync.InputEnded:
		return 103
	default:
		return 1
	}
}

func main() {
	rootCommand.SilenceErrors = true

	// Profiling is requested via a persistent flag, so it isn't available
	// until after flags are parsed. We parse flags as part of Execute, so we
	// start profiling from within PersistentPreRunE instead of here, and
	// finalize it here once Execute returns. A subcommand whose entry point
	// fails exits through cmd.Fatal inside Execute, so its profile is not
	// finalized.
	if err := rootCommand.Execute(); err != nil {
		finalizeProfile()
		cmd.Fatal(err, exitForResult(err))
	}
	finalizeProfile()
}

// activeProfile holds the in-flight profile started by PersistentPreRunE, if
// profiling was requested via --profile.
var activeProfile *profile.Profile

func finalizeProfile() {
	if activeProfile == nil {
		return
	}
	if err := activeProfile.Finalize(); err != nil {
		logging.RootLogger.Warnf("Unable to finalize profile: %s", err.Error())
	}
}
