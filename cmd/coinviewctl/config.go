package main

import (
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"
	"github.com/stakecore/stakecore/infrastructure/config"
	"github.com/stakecore/stakecore/version"
)

const noHeight = -1

type commandFlags struct {
	ShowVersion bool   `short:"V" long:"version" description:"Display version information and exit"`
	ShowTip     bool   `long:"show-tip" description:"Print the hash and the height of the coin database tip"`
	RewindData  int64  `long:"rewind-data" description:"Print the rewind data recorded at the given height"`
	Commitment  bool   `long:"commitment" description:"Print the MuHash commitment and the size of the UTXO set"`
	Rewind      uint64 `long:"rewind" description:"Disconnect the given number of blocks from the coin database tip"`
}

type configFlags struct {
	*commandFlags
	*config.Config
}

func parseConfig(args []string) (*configFlags, error) {
	commands := &commandFlags{RewindData: noHeight}
	parser := flags.NewParser(commands, flags.HelpFlag|flags.IgnoreUnknown)
	parser.Usage = "coinviewctl [OPTIONS]\n\nAny option of the node configuration may be supplied as well, " +
		"for example --datadir or --regtest"
	remainingArgs, err := parser.ParseArgs(args)
	if err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			parser.WriteHelp(os.Stdout)
			os.Exit(0)
		}
		return nil, err
	}
	if commands.ShowVersion {
		fmt.Println("coinviewctl version", version.Version())
		os.Exit(0)
	}

	cfg, remainingArgs, err := config.LoadConfig(remainingArgs)
	if err != nil {
		return nil, err
	}
	if len(remainingArgs) > 0 {
		return nil, errors.Errorf("unexpected arguments %v", remainingArgs)
	}

	if !commands.ShowTip && commands.RewindData == noHeight && !commands.Commitment && commands.Rewind == 0 {
		return nil, errors.New("at least one of --show-tip, --rewind-data, --commitment or --rewind must be specified")
	}
	if commands.RewindData < noHeight {
		return nil, errors.Errorf("--rewind-data must not be negative, got %d", commands.RewindData)
	}
	return &configFlags{commandFlags: commands, Config: cfg}, nil
}
