package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	hostbridge "github.com/wagiedev/host-bridge-go"
	"github.com/wagiedev/host-bridge-go/internal/config"
)

func parse(t *testing.T, args ...string) (*flags, *pflag.FlagSet) {
	t.Helper()

	f := &flags{}
	flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flagSet.StringVar(&f.configPath, "config", "", "")
	flagSet.StringVar(&f.transport, "transport", "", "")
	flagSet.StringVar(&f.local, "local", "", "")
	flagSet.StringVar(&f.remote, "remote", "", "")
	flagSet.StringVar(&f.dir, "dir", "", "")
	flagSet.StringVar(&f.codec, "codec", "", "")
	flagSet.DurationVar(&f.timeout, "timeout", 0, "")
	flagSet.DurationVar(&f.pollInterval, "poll-interval", 0, "")
	flagSet.StringArrayVar(&f.scripts, "script", nil, "")
	require.NoError(t, flagSet.Parse(args))

	return f, flagSet
}

func apply(opts []hostbridge.Option) *hostbridge.Options {
	o := &hostbridge.Options{}
	for _, opt := range opts {
		opt(o)
	}

	return o
}

func TestFlagOptions(t *testing.T) {
	f, flagSet := parse(t, "--transport", "file", "--dir", "/tmp/b", "--timeout", "2s", "--codec", "cbor")

	opts, err := f.options(flagSet)
	require.NoError(t, err)

	o := apply(opts)
	require.Equal(t, hostbridge.TransportFile, o.TransportKind)
	require.Equal(t, "/tmp/b", o.BridgeDir)
	require.Equal(t, 2*time.Second, o.Timeout)
	require.Equal(t, "cbor", o.Codec)
	require.Empty(t, o.RemoteAddr, "unset flags add nothing")
}

func TestFlagOptionsEmbeddedScripts(t *testing.T) {
	f, flagSet := parse(t, "--transport", "embedded", "--script", "a.star", "--script", "b.star")

	opts, err := f.options(flagSet)
	require.NoError(t, err)

	o := apply(opts)
	require.Equal(t, hostbridge.TransportEmbedded, o.TransportKind)
	require.Equal(t, []string{"a.star", "b.star"}, o.Scripts)
}

func TestFlagOptionsUnknownTransport(t *testing.T) {
	f, flagSet := parse(t, "--transport", "smoke-signal")

	_, err := f.options(flagSet)
	require.ErrorContains(t, err, "unknown transport")
}

func TestRunArgumentErrors(t *testing.T) {
	t.Setenv(config.ConfigEnv, "")

	require.ErrorContains(t, run([]string{"stray"}), "unexpected argument")
	require.Error(t, run([]string{"--no-such-flag"}))

	path := filepath.Join(t.TempDir(), "bridge.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: chatty\n"), 0o600))
	require.ErrorContains(t, run([]string{"--config", path}), "unknown log level")
}
