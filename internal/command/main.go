package command

import (
	"bufio"
	"os"

	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"
	"github.com/spf13/afero"

	"github.com/mopinion/mopinion-go/internal/version"
)

// Commands is the mapping of all available commands.
var Commands map[string]cli.CommandFactory

func initCommands(log hclog.Logger, ui cli.Ui) {
	b := &Command{
		UI:  ui,
		Log: log,
		Fs:  afero.NewOsFs(),
	}

	Commands = map[string]cli.CommandFactory{
		"account": func() (cli.Command, error) {
			return &AccountCommand{Command: b}, nil
		},
		"export": func() (cli.Command, error) {
			return &ExportCommand{Command: b}, nil
		},
		"ping": func() (cli.Command, error) {
			return &PingCommand{Command: b}, nil
		},
		"request": func() (cli.Command, error) {
			return &RequestCommand{Command: b}, nil
		},
	}
}

// Main runs the CLI with the given arguments and returns the exit code.
func Main(args []string) int {
	log := hclog.New(&hclog.LoggerOptions{
		Name:   "mopinion",
		Level:  hclog.LevelFromString(os.Getenv("MOPINION_LOG_LEVEL")),
		Output: os.Stderr,
	})

	ui := &cli.BasicUi{
		Reader:      bufio.NewReader(os.Stdin),
		Writer:      os.Stdout,
		ErrorWriter: os.Stderr,
	}

	initCommands(log, ui)

	c := &cli.CLI{
		Name:     "mopinion",
		Args:     args[1:],
		Version:  version.Version,
		Commands: Commands,
	}

	exitCode, err := c.Run()
	if err != nil {
		ui.Error(err.Error())
		return 1
	}

	return exitCode
}
