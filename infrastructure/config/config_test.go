package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stakecore/stakecore/domain/chaincfg"
)

func configFileArgs(t *testing.T, args ...string) []string {
	// Points at a missing file so that no local config file is read.
	missing := filepath.Join(t.TempDir(), "missing.conf")
	return append([]string{"--configfile=" + missing}, args...)
}

func TestResolveNetwork(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		expected    string
		expectError bool
	}{
		{name: "default", expected: chaincfg.MainnetParams.Name},
		{name: "testnet", args: []string{"--testnet"}, expected: chaincfg.TestnetParams.Name},
		{name: "regtest", args: []string{"--regtest"}, expected: chaincfg.RegressionNetParams.Name},
		{name: "both", args: []string{"--testnet", "--regtest"}, expectError: true},
	}
	for _, test := range tests {
		cfg, _, err := LoadConfig(configFileArgs(t, test.args...))
		if test.expectError {
			if err == nil {
				t.Fatalf("%s: expected an error", test.name)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%s: LoadConfig: %s", test.name, err)
		}
		if cfg.NetParams().Name != test.expected {
			t.Fatalf("%s: expected network %s, got %s", test.name, test.expected, cfg.NetParams().Name)
		}
		if filepath.Base(cfg.DataDir) != test.expected {
			t.Fatalf("%s: data dir %s is not namespaced by network", test.name, cfg.DataDir)
		}
	}
}

func TestAssumeValidOverride(t *testing.T) {
	hash := "0101010101010101010101010101010101010101010101010101010101010101"
	cfg, _, err := LoadConfig(configFileArgs(t, "--regtest", "--assumevalid="+hash))
	if err != nil {
		t.Fatalf("LoadConfig: %s", err)
	}
	if cfg.NetParams().AssumeValid == nil || cfg.NetParams().AssumeValid.String() != hash {
		t.Fatalf("expected assume-valid %s, got %v", hash, cfg.NetParams().AssumeValid)
	}
	if chaincfg.RegressionNetParams.AssumeValid != nil {
		t.Fatalf("the override leaked into the network's default parameters")
	}

	_, _, err = LoadConfig(configFileArgs(t, "--assumevalid=nothex"))
	if err == nil {
		t.Fatalf("expected an error for a malformed assume-valid hash")
	}
}

func TestCacheSettingsValidation(t *testing.T) {
	_, _, err := LoadConfig(configFileArgs(t, "--coincache=10", "--coincachedirty=20"))
	if err == nil {
		t.Fatalf("expected an error when the dirty threshold exceeds the cache size")
	}
	_, _, err = LoadConfig(configFileArgs(t, "--coincacheflushinterval=10ms"))
	if err == nil {
		t.Fatalf("expected an error for a flush interval below one second")
	}
}

func TestConfigFileIsRead(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "stakecore.conf")
	err := os.WriteFile(configFile, []byte("[Application Options]\ncoincache=1234\nregtest=true\n"), 0600)
	if err != nil {
		t.Fatalf("WriteFile: %s", err)
	}
	cfg, _, err := LoadConfig([]string{"--configfile=" + configFile, "--coincachedirty=34"})
	if err != nil {
		t.Fatalf("LoadConfig: %s", err)
	}
	if cfg.MaxCoinCacheItems != 1234 || cfg.MaxDirtyCoinCacheItems != 34 {
		t.Fatalf("unexpected cache settings %d/%d", cfg.MaxCoinCacheItems, cfg.MaxDirtyCoinCacheItems)
	}
	if cfg.NetParams().Name != chaincfg.RegressionNetParams.Name {
		t.Fatalf("expected the network from the config file, got %s", cfg.NetParams().Name)
	}
}
