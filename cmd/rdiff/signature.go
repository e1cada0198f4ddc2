package main

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/mutagen-io/librsync/cmd"
	"github.com/mutagen-io/librsync/pkg/config"
	"github.com/mutagen-io/librsync/pkg/logging"
	"github.com/mutagen-io/librsync/pkg/must"
	"github.com/mutagen-io/librsync/pkg/rsync"
	"github.com/mutagen-io/librsync/pkg/strongsum"
)

var signatureConfiguration struct {
	// hash selects the strong hash algorithm.
	hash string
	// weak selects the weak checksum algorithm.
	weak string
	// blockLen is the signature block length.
	blockLen uint32
	// strongLen is the truncated strong checksum length. Zero means full
	// length for the chosen hash.
	strongLen uint32
}

func signatureMain(command *cobra.Command, arguments []string) error {
	if len(arguments) > 2 {
		return errorfUsage(command, "too many arguments")
	}

	cfg, err := config.Load(rootConfiguration.config, ".")
	if err != nil {
		return err
	}
	if command.Flags().Changed("hash") {
		cfg.Hash = signatureConfiguration.hash
	}
	if command.Flags().Changed("weak") {
		cfg.Weak = signatureConfiguration.weak
	}
	if command.Flags().Changed("block-size") {
		cfg.BlockLen = signatureConfiguration.blockLen
	}
	if command.Flags().Changed("strong-length") {
		cfg.StrongLen = signatureConfiguration.strongLen
	}

	magic, err := cfg.Magic()
	if err != nil {
		return err
	}
	strongLen := int(cfg.StrongLen)
	if strongLen == 0 {
		strongLen = strongsum.FullLength(magic)
	}

	basis, output, err := openPair(arguments, 0, 1)
	if err != nil {
		return err
	}
	defer must.Close(basis, logging.RootLogger)
	defer must.Close(output, logging.RootLogger)

	job, err := rsync.NewSignJob(magic, cfg.BlockLen, strongLen)
	if err != nil {
		return err
	}
	stats, err := rsync.Stream(job, basis, output)
	if err != nil {
		return err
	}
	logging.RootLogger.Debugf("signature: %d blocks from %d basis bytes, %d signature bytes written",
		stats.Blocks, stats.InBytes, stats.OutBytes)
	return nil
}

var signatureCommand = &cobra.Command{
	Use:   "signature [BASIS [SIGNATURE]]",
	Short: "Compute the signature of a basis file",
	Run:   cmd.Mainify(signatureMain),
}

func init() {
	flags := signatureCommand.Flags()
	flags.StringVarP(&signatureConfiguration.hash, "hash", "H", "blake2", "Strong hash algorithm: blake2 or md4")
	flags.StringVar(&signatureConfiguration.weak, "weak", "rollsum", "Weak checksum algorithm: rollsum or rabinkarp")
	flags.Uint32VarP(&signatureConfiguration.blockLen, "block-size", "b", 2048, "Signature block length, in bytes")
	flags.Uint32VarP(&signatureConfiguration.strongLen, "strong-length", "S", 0, "Truncated strong checksum length, in bytes (0 for full length)")
}

// openPair opens the file named by arguments[inIndex] (or stdin if absent or
// "-") for reading and arguments[outIndex] (or stdout if absent or "-") for
// writing.
func openPair(arguments []string, inIndex, outIndex int) (io.ReadCloser, io.WriteCloser, error) {
	in, err := openInput(argOrDash(arguments, inIndex))
	if err != nil {
		return nil, nil, err
	}
	out, err := openOutput(argOrDash(arguments, outIndex))
	if err != nil {
		must.Close(in, logging.RootLogger)
		return nil, nil, err
	}
	return in, out, nil
}

func argOrDash(arguments []string, index int) string {
	if index < len(arguments) {
		return arguments[index]
	}
	return "-"
}

func openInput(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(path)
}

func openOutput(path string) (io.WriteCloser, error) {
	if path == "-" {
		return nopWriteCloser{os.Stdout}, nil
	}
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !rootConfiguration.force {
		flags |= os.O_EXCL
	}
	file, err := os.OpenFile(path, flags, 0644)
	if err != nil && os.IsExist(err) {
		return nil, errors.Errorf("output file %q already exists (use -f to overwrite)", path)
	}
	return file, err
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }
