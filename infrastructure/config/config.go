package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"
	"github.com/stakecore/stakecore/domain/consensus/model/externalapi"
	"github.com/stakecore/stakecore/infrastructure/logger"
)

const (
	defaultConfigFilename         = "stakecore.conf"
	defaultDataDirname            = "data"
	defaultLogLevel               = "info"
	defaultLogDirname             = "logs"
	defaultLogFilename            = "stakecore.log"
	defaultErrLogFilename         = "stakecore_err.log"
	defaultDatabaseCacheSizeMiB   = 256
	defaultMaxCoinCacheItems      = 100_000
	defaultMaxDirtyCoinCacheItems = 10_000
	defaultCoinCacheFlushInterval = 10 * time.Minute
)

var (
	// DefaultHomeDir is the default home directory.
	DefaultHomeDir = defaultHomeDir()

	defaultConfigFile = filepath.Join(DefaultHomeDir, defaultConfigFilename)
	defaultDataDir    = filepath.Join(DefaultHomeDir, defaultDataDirname)
	defaultLogDir     = filepath.Join(DefaultHomeDir, defaultLogDirname)
)

func defaultHomeDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".stakecore"
	}
	return filepath.Join(homeDir, ".stakecore")
}

// Flags defines the configuration options.
//
// See LoadConfig for details on the configuration load process.
type Flags struct {
	ConfigFile             string        `short:"C" long:"configfile" description:"Path to configuration file"`
	DataDir                string        `short:"b" long:"datadir" description:"Directory to store data"`
	LogDir                 string        `long:"logdir" description:"Directory to log output."`
	LogLevel               string        `short:"d" long:"loglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical} -- You may also specify <subsystem>=<level>,<subsystem2>=<level>,... to set the log level for individual subsystems"`
	DatabaseCacheSizeMiB   int           `long:"dbcache" description:"Size of the database block cache in MiB"`
	MaxCoinCacheItems      int           `long:"coincache" description:"Maximum number of UTXO records kept in memory"`
	MaxDirtyCoinCacheItems int           `long:"coincachedirty" description:"Number of modified UTXO records that triggers a flush to the database"`
	CoinCacheFlushInterval time.Duration `long:"coincacheflushinterval" description:"Longest time modified UTXO records stay in memory. Valid time units are {s, m, h}"`
	AssumeValid            string        `long:"assumevalid" description:"Hash of a block assumed valid together with its ancestors. Use 0 to disable"`
	NetworkFlags
}

// Config defines the configuration options after they were parsed and
// validated.
type Config struct {
	*Flags

	// AssumeValidHash is the parsed AssumeValid, or nil when disabled.
	AssumeValidHash *externalapi.DomainHash

	LogFile    string
	ErrLogFile string
}

// DefaultFlags returns the flags with their default values.
func DefaultFlags() *Flags {
	return &Flags{
		ConfigFile:             defaultConfigFile,
		DataDir:                defaultDataDir,
		LogDir:                 defaultLogDir,
		LogLevel:               defaultLogLevel,
		DatabaseCacheSizeMiB:   defaultDatabaseCacheSizeMiB,
		MaxCoinCacheItems:      defaultMaxCoinCacheItems,
		MaxDirtyCoinCacheItems: defaultMaxDirtyCoinCacheItems,
		CoinCacheFlushInterval: defaultCoinCacheFlushInterval,
	}
}

// cleanAndExpandPath expands environment variables and leading ~ in the
// passed path, cleans the result, and returns it.
func cleanAndExpandPath(path string) string {
	if strings.HasPrefix(path, "~") {
		homeDir := filepath.Dir(DefaultHomeDir)
		path = strings.Replace(path, "~", homeDir, 1)
	}
	return filepath.Clean(os.ExpandEnv(path))
}

// LoadConfig initializes and parses the config using a config file and the
// given command line arguments.
//
// The configuration proceeds as follows:
// 	1) Start with a default config with sane settings
// 	2) Pre-parse the command line to check for an alternative config file
// 	3) Load configuration file overwriting defaults with any specified options
// 	4) Parse CLI options and overwrite/add any specified options
//
// Command line options always take precedence.
func LoadConfig(args []string) (*Config, []string, error) {
	cfgFlags := DefaultFlags()

	preCfg := *cfgFlags
	preParser := flags.NewParser(&preCfg, flags.HelpFlag)
	_, err := preParser.ParseArgs(args)
	if err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return nil, nil, err
		}
	}

	parser := flags.NewParser(cfgFlags, flags.Default)
	if _, err := os.Stat(preCfg.ConfigFile); err == nil {
		err := flags.NewIniParser(parser).ParseFile(preCfg.ConfigFile)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "error parsing config file %s", preCfg.ConfigFile)
		}
	}

	remainingArgs, err := parser.ParseArgs(args)
	if err != nil {
		return nil, nil, err
	}

	cfg, err := newConfig(cfgFlags, parser)
	if err != nil {
		return nil, nil, err
	}
	return cfg, remainingArgs, nil
}

func newConfig(cfgFlags *Flags, parser *flags.Parser) (*Config, error) {
	err := cfgFlags.ResolveNetwork(parser)
	if err != nil {
		return nil, err
	}

	cfg := &Config{Flags: cfgFlags}
	if cfg.AssumeValid != "" && cfg.AssumeValid != "0" {
		cfg.AssumeValidHash, err = externalapi.NewDomainHashFromString(cfg.AssumeValid)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid assumevalid %s", cfg.AssumeValid)
		}
	}
	if cfg.AssumeValid == "0" {
		cfg.NetParams().AssumeValid = nil
	} else if cfg.AssumeValidHash != nil {
		cfg.NetParams().AssumeValid = cfg.AssumeValidHash
	}

	if cfg.DatabaseCacheSizeMiB <= 0 {
		return nil, errors.Errorf("dbcache must be positive, got %d", cfg.DatabaseCacheSizeMiB)
	}
	if cfg.MaxDirtyCoinCacheItems <= 0 || cfg.MaxCoinCacheItems < cfg.MaxDirtyCoinCacheItems {
		return nil, errors.Errorf("coincachedirty (%d) must be positive and no larger than coincache (%d)",
			cfg.MaxDirtyCoinCacheItems, cfg.MaxCoinCacheItems)
	}
	if cfg.CoinCacheFlushInterval < time.Second {
		return nil, errors.Errorf("coincacheflushinterval must be at least one second, got %s",
			cfg.CoinCacheFlushInterval)
	}

	// Data and logs are namespaced per network.
	cfg.DataDir = filepath.Join(cleanAndExpandPath(cfg.DataDir), cfg.NetParams().Name)
	cfg.LogDir = filepath.Join(cleanAndExpandPath(cfg.LogDir), cfg.NetParams().Name)
	cfg.LogFile = filepath.Join(cfg.LogDir, defaultLogFilename)
	cfg.ErrLogFile = filepath.Join(cfg.LogDir, defaultErrLogFilename)

	err = logger.ParseAndSetLogLevels(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// String returns a one-line summary of the settings that shape consensus
// state handling.
func (cfg *Config) String() string {
	return fmt.Sprintf("network=%s datadir=%s coincache=%d coincachedirty=%d flushinterval=%s",
		cfg.NetParams().Name, cfg.DataDir, cfg.MaxCoinCacheItems, cfg.MaxDirtyCoinCacheItems,
		cfg.CoinCacheFlushInterval)
}
