package export

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/mopinion/mopinion-go/api"
)

// EventExportCompleted is the event_type attribute of export notifications.
const EventExportCompleted = "export.completed"

// AWSConfig selects the AWS account and region used for S3, KMS and SQS.
type AWSConfig struct {
	// Region defaults to AWS_REGION, then api.DefaultRegion.
	Region string

	// AccessKeyID and SecretAccessKey select static credentials. When empty
	// the default credential chain is used.
	AccessKeyID     string
	SecretAccessKey string
}

// LoadAWSConfig resolves cfg into an aws.Config.
func LoadAWSConfig(ctx context.Context, cfg AWSConfig) (aws.Config, error) {
	if cfg.AccessKeyID == "" {
		return api.NewAWSConfig(ctx, cfg.Region)
	}

	region := cfg.Region
	if region == "" {
		region = api.DefaultRegion
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return awsCfg, nil
}

// STSGetCallerIdentityAPI is the subset of the STS client used to check
// credentials.
type STSGetCallerIdentityAPI interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// VerifyAWSIdentity checks that the AWS credentials are valid before any
// export work starts and returns the caller's ARN.
func VerifyAWSIdentity(ctx context.Context, client STSGetCallerIdentityAPI) (string, error) {
	out, err := client.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", fmt.Errorf("invalid AWS credentials: %w", err)
	}

	return aws.ToString(out.Arn), nil
}

// SQSSendMessageAPI is the subset of the SQS client used by SQSNotifier.
type SQSSendMessageAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSNotifier posts each run summary as a JSON message to an SQS queue.
type SQSNotifier struct {
	client   SQSSendMessageAPI
	queueURL string
}

var _ Notifier = (*SQSNotifier)(nil)

// NewSQSNotifier returns a notifier sending to queueURL.
func NewSQSNotifier(client SQSSendMessageAPI, queueURL string) *SQSNotifier {
	return &SQSNotifier{client: client, queueURL: queueURL}
}

// Notify sends summary with an event_type and run_id message attribute.
func (n *SQSNotifier) Notify(ctx context.Context, summary *Summary) error {
	body, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}

	_, err = n.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(n.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]sqstypes.MessageAttributeValue{
			"event_type": {DataType: aws.String("String"), StringValue: aws.String(EventExportCompleted)},
			"run_id":     {DataType: aws.String("String"), StringValue: aws.String(summary.RunID)},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to send SQS message: %w", err)
	}

	return nil
}
