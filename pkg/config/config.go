// Package config implements rdiff's layered configuration: compiled-in
// defaults, overridden by an optional YAML file, overridden by environment
// variables (including a .env file alongside it), overridden last by
// whatever CLI flags the caller explicitly set.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/mutagen-io/librsync/pkg/rsmagic"
)

// Config holds the tunable parameters governing signature generation and
// delta computation.
type Config struct {
	// BlockLen is the signature block length, in bytes.
	BlockLen uint32 `yaml:"blockLen"`
	// StrongLen is the truncated strong signature length, in bytes. Zero
	// means the full-length digest for the chosen hash.
	StrongLen uint32 `yaml:"strongLen"`
	// Hash selects the strong hash algorithm: "blake2" or "md4".
	Hash string `yaml:"hash"`
	// Weak selects the weak (rolling) checksum algorithm: "rollsum" or
	// "rabinkarp".
	Weak string `yaml:"weak"`
	// Paranoia enables the extra digest-recomputation check during delta
	// generation.
	Paranoia bool `yaml:"paranoia"`
}

// Default returns the compiled-in configuration, matching librsync's own
// historical defaults.
func Default() Config {
	return Config{
		BlockLen:  2048,
		StrongLen: 0,
		Hash:      "blake2",
		Weak:      "rollsum",
		Paranoia:  false,
	}
}

// Magic resolves the configured hash and weak-checksum names to a wire
// magic number.
func (c Config) Magic() (rsmagic.Magic, error) {
	var weak rsmagic.WeakAlgorithm
	switch c.Weak {
	case "rollsum", "":
		weak = rsmagic.WeakRollsum
	case "rabinkarp":
		weak = rsmagic.WeakRabinKarp
	default:
		return 0, errors.Errorf("unknown weak checksum algorithm %q", c.Weak)
	}

	var strong rsmagic.StrongAlgorithm
	switch c.Hash {
	case "blake2", "":
		strong = rsmagic.StrongBLAKE2
	case "md4":
		strong = rsmagic.StrongMD4
	default:
		return 0, errors.Errorf("unknown strong hash algorithm %q", c.Hash)
	}

	magic, ok := rsmagic.ForAlgorithms(weak, strong)
	if !ok {
		return 0, errors.Errorf("no signature format for weak %q / hash %q", c.Weak, c.Hash)
	}
	return magic, nil
}

// Load builds the effective configuration by layering, in increasing order
// of precedence: the compiled-in defaults, a YAML file at yamlPath (skipped
// if yamlPath is empty or the file doesn't exist), then environment
// variables (including any .env file found alongside envDir).
func Load(yamlPath, envDir string) (Config, error) {
	cfg := Default()

	if yamlPath != "" {
		data, err := os.ReadFile(yamlPath)
		if err != nil {
			if !os.IsNotExist(err) {
				return Config{}, errors.Wrapf(err, "unable to read configuration file %q", yamlPath)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, errors.Wrapf(err, "unable to parse configuration file %q", yamlPath)
		}
	}

	environment, err := loadEnvironment(envDir)
	if err != nil {
		return Config{}, err
	}
	applyEnvironment(&cfg, environment)

	return cfg, nil
}

// loadEnvironment computes the effective set of environment variables: a
// .env file in dir (if present) layered under the process's own
// environment, which always wins on key collision.
func loadEnvironment(dir string) (map[string]string, error) {
	environment := make(map[string]string)

	envFilePath := filepath.Join(dir, ".env")
	fileEnvironment, err := godotenv.Read(envFilePath)
	if err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "unable to load environment file %q", envFilePath)
	}
	for key, value := range fileEnvironment {
		environment[key] = value
	}

	for _, specification := range os.Environ() {
		key, value, ok := splitEnv(specification)
		if !ok {
			return nil, errors.Errorf("invalid OS environment variable specification: %s", specification)
		}
		environment[key] = value
	}

	return environment, nil
}

func splitEnv(specification string) (key, value string, ok bool) {
	for i := 0; i < len(specification); i++ {
		if specification[i] == '=' {
			return specification[:i], specification[i+1:], true
		}
	}
	return "", "", false
}

// applyEnvironment overlays recognized RDIFF_* environment variables onto
// cfg. Unrecognized or malformed values are ignored; only CLI flags are
// expected to fail loudly on a bad value, since they're validated at parse
// time by pflag/cobra.
func applyEnvironment(cfg *Config, environment map[string]string) {
	if v, ok := environment["RDIFF_BLOCK_LEN"]; ok {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil {
			cfg.BlockLen = uint32(n)
		}
	}
	if v, ok := environment["RDIFF_STRONG_LEN"]; ok {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil {
			cfg.StrongLen = uint32(n)
		}
	}
	if v, ok := environment["RDIFF_HASH"]; ok {
		cfg.Hash = v
	}
	if v, ok := environment["RDIFF_WEAK"]; ok {
		cfg.Weak = v
	}
	if v, ok := environment["RDIFF_PARANOIA"]; ok {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Paranoia = b
		}
	}
}

// String formats the configuration for debug logging.
func (c Config) String() string {
	return fmt.Sprintf(
		"block-len=%d strong-len=%d hash=%s weak=%s paranoia=%t",
		c.BlockLen, c.StrongLen, c.Hash, c.Weak, c.Paranoia,
	)
}
