package command

import (
	"flag"

	"github.com/mopinion/mopinion-go/catalog"
)

type AccountCommand struct {
	*Command
}

func (c *AccountCommand) Synopsis() string {
	return "Show the account the credentials belong to"
}

func (c *AccountCommand) Help() string {
	return `Usage: mopinion account [options]

  Prints the account, including its reports, as JSON.` + c.Flags().Help()
}

func (c *AccountCommand) Flags() *FlagSet {
	f := NewFlagSet(flag.NewFlagSet("account", flag.ContinueOnError))
	c.configFlags(f)
	return f
}

func (c *AccountCommand) Run(args []string) int {
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

	account, err := catalog.New(client).Account(ctx)
	if err != nil {
		return c.fail("error fetching account: %v", err)
	}

	return c.printJSON(account)
}
