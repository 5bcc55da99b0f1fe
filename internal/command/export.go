package command

import (
	"context"
	"flag"
	"fmt"
	"net/url"

	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/mopinion/mopinion-go/api"
	"github.com/mopinion/mopinion-go/catalog"
	"github.com/mopinion/mopinion-go/export"
	"github.com/mopinion/mopinion-go/types"
)

type ExportCommand struct {
	*Command

	flagResource   string
	flagID         int
	flagVerbosity  string
	flagQuery      queryFlag
	flagName       string
	flagRunID      string
	flagMaxPages   int
	flagOut        string
	flagS3Bucket   string
	flagS3Prefix   string
	flagNoCompress bool
	flagKMSKeyID   string
	flagSQSQueue   string
	flagAWSRegion  string
}

func (c *ExportCommand) Synopsis() string {
	return "Export the feedback of a dataset or report as NDJSON"
}

func (c *ExportCommand) Help() string {
	return `Usage: mopinion export [options]

  Pages through the feedback of a dataset or report and writes every entry as
  one line of JSON to a local directory, an S3 bucket, or both. S3 objects are
  gzip compressed and, with -kms-key-id, envelope encrypted. With
  -sqs-queue-url a summary of the run is sent to the queue when all writes
  succeed.` + c.Flags().Help()
}

func (c *ExportCommand) Flags() *FlagSet {
	f := NewFlagSet(flag.NewFlagSet("export", flag.ContinueOnError))
	c.configFlags(f)

	f.StringVar(
		&c.flagResource, "resource", "datasets",
		"Resource owning the feedback (datasets, reports)",
	)
	f.IntVar(
		&c.flagID, "id", 0,
		"Dataset or report ID",
	)
	f.StringVar(
		&c.flagVerbosity, "verbosity", "",
		"Response verbosity (normal, full)",
	)
	f.Var(
		&c.flagQuery, "query",
		"Query parameter as key=value, may be repeated",
	)
	f.StringVar(
		&c.flagName, "name", "",
		"Object name prefix (default: the feedback endpoint path)",
	)
	f.StringVar(
		&c.flagRunID, "run-id", "",
		"Run identifier used in object names (default: a random UUID)",
	)
	f.IntVar(
		&c.flagMaxPages, "max-pages", 0,
		"Stop after this many pages, 0 for all",
	)
	f.StringVar(
		&c.flagOut, "out", "",
		"Local directory to write the export to",
	)
	f.StringVar(
		&c.flagS3Bucket, "s3-bucket", "",
		"S3 bucket to upload the export to",
	)
	f.StringVar(
		&c.flagS3Prefix, "s3-prefix", "",
		"Key prefix for S3 objects",
	)
	f.BoolVar(
		&c.flagNoCompress, "no-compress", false,
		"Upload S3 objects uncompressed",
	)
	f.StringVar(
		&c.flagKMSKeyID, "kms-key-id", "",
		"KMS key for envelope encryption of S3 objects",
	)
	f.StringVar(
		&c.flagSQSQueue, "sqs-queue-url", "",
		"SQS queue notified when the export completes",
	)
	f.StringVar(
		&c.flagAWSRegion, "aws-region", "",
		"[AWS_REGION] AWS region for S3, KMS, SQS and STS",
	)

	return f
}

func (c *ExportCommand) Run(args []string) int {
	f := c.Flags()
	if err := f.Parse(args); err != nil {
		return c.fail("error parsing flags: %v", err)
	}

	kind, err := types.ParseResourceName(c.flagResource)
	if err != nil {
		return c.fail("invalid -resource: %v", err)
	}
	if c.flagID <= 0 {
		c.UI.Error("-id is required")
		return 1
	}
	if c.flagOut == "" && c.flagS3Bucket == "" {
		c.UI.Error("at least one of -out or -s3-bucket is required")
		return 1
	}
	if c.flagKMSKeyID != "" && c.flagS3Bucket == "" {
		c.UI.Error("-kms-key-id requires -s3-bucket")
		return 1
	}

	ctx, cancel := c.signalContext()
	defer cancel()

	opts := export.Options{
		Name:     c.flagName,
		RunID:    c.flagRunID,
		MaxPages: c.flagMaxPages,
		Logger:   c.Log.Named("export"),
	}

	if c.flagOut != "" {
		opts.Sinks = append(opts.Sinks, export.NewFileSink(c.Fs, c.flagOut))
	}

	if c.flagS3Bucket != "" || c.flagSQSQueue != "" {
		if err := c.awsOutputs(ctx, &opts); err != nil {
			return c.fail("error configuring AWS: %v", err)
		}
	}

	client, err := c.client(ctx)
	if err != nil {
		return c.fail("error creating client: %v", err)
	}
	defer client.Close()

	feedback, err := catalog.New(client).Feedback(kind, c.flagID, api.RequestOptions{
		Verbosity: c.flagVerbosity,
		Query:     c.flagQuery.values,
	})
	if err != nil {
		return c.fail("error starting export: %v", err)
	}

	summary, err := export.Run(ctx, feedback.Pages(), opts)
	if err != nil {
		c.UI.Error(fmt.Sprintf("export failed: %v", err))
		if summary != nil {
			c.printJSON(summary)
		}
		return 1
	}

	return c.printJSON(summary)
}

// awsOutputs adds the S3 sink and SQS notifier selected by the flags.
func (c *ExportCommand) awsOutputs(ctx context.Context, opts *export.Options) error {
	awsCfg, err := export.LoadAWSConfig(ctx, export.AWSConfig{Region: c.flagAWSRegion})
	if err != nil {
		return err
	}

	arn, err := export.VerifyAWSIdentity(ctx, sts.NewFromConfig(awsCfg))
	if err != nil {
		return err
	}
	c.Log.Debug("using AWS identity", "arn", arn)

	if c.flagS3Bucket != "" {
		cfg := export.NewS3SinkConfig(c.flagS3Bucket)
		cfg.Prefix = c.flagS3Prefix
		cfg.Compress = !c.flagNoCompress
		cfg.Tags = map[string]string{"Component": "mopinion-export"}

		if c.flagKMSKeyID != "" {
			cfg.Envelope = export.NewEnvelope(kms.NewFromConfig(awsCfg), c.flagKMSKeyID)
		}

		sink, err := export.NewS3Sink(s3.NewFromConfig(awsCfg), cfg)
		if err != nil {
			return err
		}
		opts.Sinks = append(opts.Sinks, sink)
	}

	if c.flagSQSQueue != "" {
		if _, err := url.ParseRequestURI(c.flagSQSQueue); err != nil {
			return fmt.Errorf("invalid -sqs-queue-url: %w", err)
		}
		opts.Notifier = export.NewSQSNotifier(sqs.NewFromConfig(awsCfg), c.flagSQSQueue)
	}

	return nil
}
