package command

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/url"
	"strings"

	"github.com/mopinion/mopinion-go/api"
)

type RequestCommand struct {
	*Command

	flagMethod    string
	flagVersion   string
	flagVerbosity string
	flagFormat    string
	flagBody      string
	flagQuery     queryFlag
}

// queryFlag collects repeated key=value options.
type queryFlag struct {
	values url.Values
}

func (q *queryFlag) String() string {
	return q.values.Encode()
}

func (q *queryFlag) Set(s string) error {
	key, value, ok := strings.Cut(s, "=")
	if !ok || key == "" {
		return fmt.Errorf("query parameter %q must be key=value", s)
	}

	if q.values == nil {
		q.values = url.Values{}
	}
	q.values.Add(key, value)

	return nil
}

func (c *RequestCommand) Synopsis() string {
	return "Send a signed request to an API endpoint"
}

func (c *RequestCommand) Help() string {
	return `Usage: mopinion request [options] <endpoint>

  Sends one signed request and prints the response body. The endpoint must
  be one the API supports, for example /account or /datasets/12/feedback.` + c.Flags().Help()
}

func (c *RequestCommand) Flags() *FlagSet {
	f := NewFlagSet(flag.NewFlagSet("request", flag.ContinueOnError))
	c.configFlags(f)

	f.StringVar(
		&c.flagMethod, "method", "",
		"HTTP method (get, post, put, delete, options)",
	)
	f.StringVar(
		&c.flagVersion, "version", "",
		"API version (1.18.14, 2.0.0)",
	)
	f.StringVar(
		&c.flagVerbosity, "verbosity", "",
		"Response verbosity (quiet, normal, full)",
	)
	f.StringVar(
		&c.flagFormat, "format", "",
		"Response format (application/json, application/x-yaml)",
	)
	f.StringVar(
		&c.flagBody, "body", "",
		"JSON request body",
	)
	f.Var(
		&c.flagQuery, "query",
		"Query parameter as key=value, may be repeated",
	)

	return f
}

func (c *RequestCommand) Run(args []string) int {
	f := c.Flags()
	if err := f.Parse(args); err != nil {
		return c.fail("error parsing flags: %v", err)
	}

	if f.NArg() != 1 {
		c.UI.Error("exactly one endpoint is required")
		return 1
	}

	opts := api.RequestOptions{
		Method:             c.flagMethod,
		Version:            c.flagVersion,
		Verbosity:          c.flagVerbosity,
		ContentNegotiation: c.flagFormat,
		Query:              c.flagQuery.values,
	}

	if c.flagBody != "" {
		var body any
		if err := json.Unmarshal([]byte(c.flagBody), &body); err != nil {
			return c.fail("invalid -body: %v", err)
		}
		opts.Body = body
	}

	ctx, cancel := c.signalContext()
	defer cancel()

	client, err := c.client(ctx)
	if err != nil {
		return c.fail("error creating client: %v", err)
	}
	defer client.Close()

	resp, err := client.Request(ctx, f.Arg(0), opts)
	if err != nil {
		return c.fail("request failed: %v", err)
	}

	c.UI.Output(strings.TrimRight(string(resp.Body), "\n"))
	return 0
}
