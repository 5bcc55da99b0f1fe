package export

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kms"
)

const (
	dataKeySize = 32 // AES-256
	nonceSize   = 16
	tagSize     = 16
)

// KMSAPI is the subset of the KMS client used for envelope encryption.
type KMSAPI interface {
	Encrypt(ctx context.Context, params *kms.EncryptInput, optFns ...func(*kms.Options)) (*kms.EncryptOutput, error)
	Decrypt(ctx context.Context, params *kms.DecryptInput, optFns ...func(*kms.Options)) (*kms.DecryptOutput, error)
}

// Envelope encrypts objects with a random AES-256-GCM data key that is itself
// encrypted under a KMS key. Sealed objects are laid out as
//
//	[4 bytes: key length][encrypted key][16 bytes: nonce][16 bytes: tag][ciphertext]
type Envelope struct {
	client KMSAPI
	keyID  string
}

// NewEnvelope returns an Envelope using the KMS key keyID.
func NewEnvelope(client KMSAPI, keyID string) *Envelope {
	return &Envelope{client: client, keyID: keyID}
}

// Seal encrypts data.
func (e *Envelope) Seal(ctx context.Context, data []byte) ([]byte, error) {
	if e.keyID == "" {
		return nil, errors.New("KMS key not configured, cannot encrypt data")
	}

	dataKey := make([]byte, dataKeySize)
	if _, err := rand.Read(dataKey); err != nil {
		return nil, fmt.Errorf("failed to generate data key: %w", err)
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	gcm, err := newGCM(dataKey)
	if err != nil {
		return nil, err
	}

	sealed := gcm.Seal(nil, nonce, data, nil)
	ciphertext, tag := sealed[:len(sealed)-tagSize], sealed[len(sealed)-tagSize:]

	out, err := e.client.Encrypt(ctx, &kms.EncryptInput{
		KeyId:     aws.String(e.keyID),
		Plaintext: dataKey,
	})
	if err != nil {
		return nil, fmt.Errorf("KMS encryption failed: %w", err)
	}

	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.BigEndian, uint32(len(out.CiphertextBlob))); err != nil {
		return nil, fmt.Errorf("failed to write key length: %w", err)
	}
	buf.Write(out.CiphertextBlob)
	buf.Write(nonce)
	buf.Write(tag)
	buf.Write(ciphertext)

	return buf.Bytes(), nil
}

// Open decrypts data produced by Seal.
func (e *Envelope) Open(ctx context.Context, data []byte) ([]byte, error) {
	r := bytes.NewReader(data)

	var keyLen uint32
	if err := binary.Read(r, binary.BigEndian, &keyLen); err != nil {
		return nil, fmt.Errorf("failed to read key length: %w", err)
	}

	if int64(keyLen) > int64(r.Len()) {
		return nil, fmt.Errorf("encrypted key length %d exceeds object size", keyLen)
	}

	encryptedKey := make([]byte, keyLen)
	nonce := make([]byte, nonceSize)
	tag := make([]byte, tagSize)

	for _, part := range [][]byte{encryptedKey, nonce, tag} {
		if _, err := io.ReadFull(r, part); err != nil {
			return nil, fmt.Errorf("truncated envelope: %w", err)
		}
	}

	ciphertext, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	out, err := e.client.Decrypt(ctx, &kms.DecryptInput{CiphertextBlob: encryptedKey})
	if err != nil {
		return nil, fmt.Errorf("KMS decrypt failed: %w", err)
	}

	gcm, err := newGCM(out.Plaintext)
	if err != nil {
		return nil, err
	}

	plaintext, err := gcm.Open(nil, nonce, append(ciphertext, tag...), nil)
	if err != nil {
		return nil, fmt.Errorf("AES-GCM decrypt failed: %w", err)
	}

	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCMWithNonceSize(block, nonceSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return gcm, nil
}

func compress(data []byte, level int) ([]byte, error) {
	var buf bytes.Buffer
	gz, err := gzip.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip writer: %w", err)
	}

	if _, err := gz.Write(data); err != nil {
		return nil, fmt.Errorf("failed to write to gzip: %w", err)
	}

	if err := gz.Close(); err != nil {
		return nil, fmt.Errorf("failed to close gzip writer: %w", err)
	}

	return buf.Bytes(), nil
}

func decompress(data []byte) ([]byte, error) {
	gz, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer gz.Close()

	return io.ReadAll(gz)
}
