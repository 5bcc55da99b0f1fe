package command

import (
	"flag"
	"fmt"
)

type PingCommand struct {
	*Command
}

func (c *PingCommand) Synopsis() string {
	return "Check that the API is reachable and the credentials work"
}

func (c *PingCommand) Help() string {
	return `Usage: mopinion ping [options]

  Authenticates against the API and calls the availability endpoint.` + c.Flags().Help()
}

func (c *PingCommand) Flags() *FlagSet {
	f := NewFlagSet(flag.NewFlagSet("ping", flag.ContinueOnError))
	c.configFlags(f)
	return f
}

func (c *PingCommand) Run(args []string) int {
	f := c.Flags()
	if err := f.Parse(args); err != nil {
		return c.fail("error parsing flags: %v", err)
	}

	ctx, cancel := c.signalContext()
	defer cancel()

	client, err := c.client(ctx)
	if err != nil {
		return c.fail("error creating client: %v", err)
	}
	defer client.Close()

	ping, err := client.Ping(ctx)
	if err != nil {
		return c.fail("ping failed: %v", err)
	}

	c.UI.Output(fmt.Sprintf("%s (API version %s)", ping.Response, ping.Version))
	return 0
}
