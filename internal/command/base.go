// Package command implements the mopinion CLI.
package command

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"
	"github.com/spf13/afero"

	"github.com/mopinion/mopinion-go/api"
)

// Command holds what every subcommand shares.
type Command struct {
	UI  cli.Ui
	Log hclog.Logger

	// Fs receives export files.
	Fs afero.Fs

	flagConfig string
}

// FlagSet wraps flag.FlagSet to render option help the way the CLI prints it.
type FlagSet struct {
	*flag.FlagSet
}

// NewFlagSet returns a FlagSet that reports parse errors to the caller.
func NewFlagSet(f *flag.FlagSet) *FlagSet {
	f.SetOutput(io.Discard)
	return &FlagSet{FlagSet: f}
}

// Help returns the flag usage, one option per line.
func (f *FlagSet) Help() string {
	var b strings.Builder
	b.WriteString("\n\nOptions:\n")

	f.VisitAll(func(fl *flag.Flag) {
		fmt.Fprintf(&b, "\n  -%s", fl.Name)
		if fl.DefValue != "" {
			fmt.Fprintf(&b, "=%s", fl.DefValue)
		}
		fmt.Fprintf(&b, "\n      %s\n", fl.Usage)
	})

	return b.String()
}

// configFlags registers the options shared by all commands that call the API.
func (c *Command) configFlags(f *FlagSet) {
	f.StringVar(
		&c.flagConfig, "config", "",
		"[MOPINION_CONFIG] Path to an HCL configuration file",
	)
}

// signalContext returns a context canceled on SIGINT or SIGTERM.
func (c *Command) signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// client loads the configuration and authenticates a new API client.
func (c *Command) client(ctx context.Context) (*api.Client, error) {
	path := c.flagConfig
	if val, ok := os.LookupEnv("MOPINION_CONFIG"); ok && path == "" {
		path = val
	}

	cfg, err := api.LoadConfig(ctx, path)
	if err != nil {
		return nil, err
	}
	cfg.Logger = c.Log.Named("api")

	return api.NewClient(ctx, cfg)
}

// fail reports err and returns the exit code for a failed command.
func (c *Command) fail(format string, err error) int {
	c.UI.Error(fmt.Sprintf(format, err))
	return 1
}

// printJSON writes v as indented JSON.
func (c *Command) printJSON(v any) int {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return c.fail("error encoding output: %v", err)
	}

	c.UI.Output(string(out))
	return 0
}
