package export

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/url"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeKMS wraps data keys by prefixing them with the key ID.
type fakeKMS struct {
	encrypts, decrypts int
}

func (f *fakeKMS) Encrypt(ctx context.Context, params *kms.EncryptInput, optFns ...func(*kms.Options)) (*kms.EncryptOutput, error) {
	f.encrypts++
	blob := append([]byte(aws.ToString(params.KeyId)+":"), params.Plaintext...)
	return &kms.EncryptOutput{CiphertextBlob: blob, KeyId: params.KeyId}, nil
}

func (f *fakeKMS) Decrypt(ctx context.Context, params *kms.DecryptInput, optFns ...func(*kms.Options)) (*kms.DecryptOutput, error) {
	f.decrypts++
	_, key, ok := bytes.Cut(params.CiphertextBlob, []byte(":"))
	if !ok {
		return nil, errors.New("invalid ciphertext")
	}
	return &kms.DecryptOutput{Plaintext: key}, nil
}

type storedObject struct {
	data     []byte
	metadata map[string]string
	tagging  string
}

type fakeS3 struct {
	objects map[string]storedObject
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string]storedObject)}
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}

	f.objects[aws.ToString(params.Bucket)+"/"+aws.ToString(params.Key)] = storedObject{
		data:     data,
		metadata: params.Metadata,
		tagging:  aws.ToString(params.Tagging),
	}

	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	obj, ok := f.objects[aws.ToString(params.Bucket)+"/"+aws.ToString(params.Key)]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}

	return &s3.GetObjectOutput{
		Body:     io.NopCloser(bytes.NewReader(obj.data)),
		Metadata: obj.metadata,
	}, nil
}

const ndjson = "{\"id\":1}\n{\"id\":2}\n"

func TestEnvelopeRoundTrip(t *testing.T) {
	client := &fakeKMS{}
	envelope := NewEnvelope(client, "alias/exports")

	sealed, err := envelope.Seal(t.Context(), []byte(ndjson))
	require.NoError(t, err)
	assert.NotContains(t, string(sealed), `"id"`)

	opened, err := envelope.Open(t.Context(), sealed)
	require.NoError(t, err)
	assert.Equal(t, ndjson, string(opened))
	assert.Equal(t, 1, client.encrypts)
	assert.Equal(t, 1, client.decrypts)

	sealed[len(sealed)-1] ^= 0xff
	_, err = envelope.Open(t.Context(), sealed)
	assert.ErrorContains(t, err, "AES-GCM decrypt failed")
}

func TestEnvelopeRejectsMalformedInput(t *testing.T) {
	envelope := NewEnvelope(&fakeKMS{}, "alias/exports")

	_, err := envelope.Open(t.Context(), []byte{0, 0})
	assert.ErrorContains(t, err, "failed to read key length")

	_, err = envelope.Open(t.Context(), []byte{0, 0, 1, 0, 'x'})
	assert.ErrorContains(t, err, "exceeds object size")

	_, err = envelope.Open(t.Context(), []byte{0, 0, 0, 1, 'x', 1, 2})
	assert.ErrorContains(t, err, "truncated envelope")

	_, err = NewEnvelope(&fakeKMS{}, "").Seal(t.Context(), []byte("x"))
	assert.ErrorContains(t, err, "KMS key not configured")
}

func TestS3SinkCompressedAndEncrypted(t *testing.T) {
	store := newFakeS3()
	envelope := NewEnvelope(&fakeKMS{}, "alias/exports")

	cfg := NewS3SinkConfig("exports-bucket")
	cfg.Prefix = "mopinion"
	cfg.Envelope = envelope
	cfg.Tags = map[string]string{"Component": "export", "RunID": "run-1"}

	sink, err := NewS3Sink(store, cfg)
	require.NoError(t, err)

	location, err := sink.Put(t.Context(), "datasets/1/feedback/run-1.ndjson", []byte(ndjson))
	require.NoError(t, err)
	assert.Equal(t, "s3://exports-bucket/mopinion/datasets/1/feedback/run-1.ndjson.gz", location)
	assert.Equal(t, "s3://exports-bucket", sink.String())

	obj := store.objects["exports-bucket/mopinion/datasets/1/feedback/run-1.ndjson.gz"]
	assert.Equal(t, map[string]string{"compression": "gzip", "encryption": "kms-envelope"}, obj.metadata)

	tags, err := url.ParseQuery(obj.tagging)
	require.NoError(t, err)
	assert.Equal(t, "export", tags.Get("Component"))

	data, err := ReadObject(t.Context(), store, envelope, "exports-bucket", "mopinion/datasets/1/feedback/run-1.ndjson.gz")
	require.NoError(t, err)
	assert.Equal(t, ndjson, string(data))

	_, err = ReadObject(t.Context(), store, nil, "exports-bucket", "mopinion/datasets/1/feedback/run-1.ndjson.gz")
	assert.ErrorContains(t, err, "no envelope")
}

func TestS3SinkPlain(t *testing.T) {
	store := newFakeS3()

	sink, err := NewS3Sink(store, S3SinkConfig{Bucket: "plain"})
	require.NoError(t, err)

	location, err := sink.Put(t.Context(), "reports/run.ndjson", []byte(ndjson))
	require.NoError(t, err)
	assert.Equal(t, "s3://plain/reports/run.ndjson", location)
	assert.Equal(t, ndjson, string(store.objects["plain/reports/run.ndjson"].data))

	data, err := ReadObject(t.Context(), store, nil, "plain", "reports/run.ndjson")
	require.NoError(t, err)
	assert.Equal(t, ndjson, string(data))

	_, err = ReadObject(t.Context(), store, nil, "plain", "missing")
	assert.ErrorContains(t, err, "failed to download")

	_, err = NewS3Sink(store, S3SinkConfig{})
	assert.Error(t, err)
}

type fakeSQS struct {
	inputs []*sqs.SendMessageInput
}

func (f *fakeSQS) SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.inputs = append(f.inputs, params)
	return &sqs.SendMessageOutput{MessageId: aws.String("msg-1")}, nil
}

func TestSQSNotifier(t *testing.T) {
	client := &fakeSQS{}
	notifier := NewSQSNotifier(client, "https://sqs.eu-west-1.amazonaws.com/123/exports")

	err := notifier.Notify(t.Context(), &Summary{RunID: "run-1", Pages: 2, Records: 3})
	require.NoError(t, err)

	require.Len(t, client.inputs, 1)
	in := client.inputs[0]
	assert.Equal(t, "https://sqs.eu-west-1.amazonaws.com/123/exports", aws.ToString(in.QueueUrl))
	assert.True(t, strings.Contains(aws.ToString(in.MessageBody), `"run_id":"run-1"`))
	assert.Equal(t, EventExportCompleted, aws.ToString(in.MessageAttributes["event_type"].StringValue))
	assert.Equal(t, "run-1", aws.ToString(in.MessageAttributes["run_id"].StringValue))
}

type fakeSTS struct {
	err error
}

func (f fakeSTS) GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &sts.GetCallerIdentityOutput{Arn: aws.String("arn:aws:iam::123:user/exporter")}, nil
}

func TestVerifyAWSIdentity(t *testing.T) {
	arn, err := VerifyAWSIdentity(t.Context(), fakeSTS{})
	require.NoError(t, err)
	assert.Equal(t, "arn:aws:iam::123:user/exporter", arn)

	_, err = VerifyAWSIdentity(t.Context(), fakeSTS{err: errors.New("expired token")})
	assert.ErrorContains(t, err, "invalid AWS credentials")
}
