package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Object metadata written by S3Sink and honoured by ReadObject.
const (
	metaCompression = "compression"
	metaEncryption  = "encryption"

	compressionGzip    = "gzip"
	encryptionEnvelope = "kms-envelope"
)

// S3PutObjectAPI is the subset of the S3 client used by S3Sink.
type S3PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3GetObjectAPI is the subset of the S3 client used by ReadObject.
type S3GetObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3SinkConfig configures an S3Sink.
type S3SinkConfig struct {
	Bucket string

	// Prefix is prepended to every object key.
	Prefix string

	// Compress gzips objects and appends ".gz" to their key.
	// Default: true via NewS3SinkConfig
	Compress bool

	// CompressionLevel for gzip, 1-9.
	// Default: 6
	CompressionLevel int

	// Envelope, when set, encrypts objects after compression.
	Envelope *Envelope

	// Tags are attached to every object as S3 object tags.
	Tags map[string]string
}

// NewS3SinkConfig returns a configuration with compression enabled.
func NewS3SinkConfig(bucket string) S3SinkConfig {
	return S3SinkConfig{
		Bucket:           bucket,
		Compress:         true,
		CompressionLevel: 6,
	}
}

// S3Sink uploads objects to an S3 bucket.
type S3Sink struct {
	client S3PutObjectAPI
	cfg    S3SinkConfig
}

var _ Sink = (*S3Sink)(nil)

// NewS3Sink returns a sink uploading through client.
func NewS3Sink(client S3PutObjectAPI, cfg S3SinkConfig) (*S3Sink, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 sink: bucket is required")
	}
	if cfg.CompressionLevel == 0 {
		cfg.CompressionLevel = 6
	}

	return &S3Sink{client: client, cfg: cfg}, nil
}

// Put compresses, optionally encrypts and uploads data. It returns the
// object's s3:// URL.
func (s *S3Sink) Put(ctx context.Context, key string, data []byte) (string, error) {
	key = path.Join(s.cfg.Prefix, key)
	metadata := map[string]string{}

	if s.cfg.Compress {
		compressed, err := compress(data, s.cfg.CompressionLevel)
		if err != nil {
			return "", fmt.Errorf("compression failed: %w", err)
		}
		data = compressed
		key += ".gz"
		metadata[metaCompression] = compressionGzip
	}

	if s.cfg.Envelope != nil {
		sealed, err := s.cfg.Envelope.Seal(ctx, data)
		if err != nil {
			return "", fmt.Errorf("encryption failed: %w", err)
		}
		data = sealed
		metadata[metaEncryption] = encryptionEnvelope
	}

	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/x-ndjson"),
		Metadata:    metadata,
	}

	if len(s.cfg.Tags) > 0 {
		tags := url.Values{}
		for k, v := range s.cfg.Tags {
			tags.Set(k, v)
		}
		input.Tagging = aws.String(tags.Encode())
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}

	return fmt.Sprintf("s3://%s/%s", s.cfg.Bucket, key), nil
}

func (s *S3Sink) String() string {
	return "s3://" + s.cfg.Bucket
}

// ReadObject downloads an object written by S3Sink and reverses its
// encryption and compression, as recorded in the object metadata. envelope
// may be nil for objects that were not encrypted.
func ReadObject(ctx context.Context, client S3GetObjectAPI, envelope *Envelope, bucket, key string) ([]byte, error) {
	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to download s3://%s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object: %w", err)
	}

	if out.Metadata[metaEncryption] == encryptionEnvelope {
		if envelope == nil {
			return nil, errors.New("object is encrypted but no envelope was given")
		}

		if data, err = envelope.Open(ctx, data); err != nil {
			return nil, fmt.Errorf("decryption failed: %w", err)
		}
	}

	if out.Metadata[metaCompression] == compressionGzip {
		if data, err = decompress(data); err != nil {
			return nil, fmt.Errorf("decompression failed: %w", err)
		}
	}

	return data, nil
}
