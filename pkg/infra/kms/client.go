package kms

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kms"
)

// API is the subset of the KMS client used here
type API interface {
	Encrypt(ctx context.Context, params *kms.EncryptInput, optFns ...func(*kms.Options)) (*kms.EncryptOutput, error)
}

// Client implements Encryptor with AWS KMS
type Client struct {
	api API
}

// New creates a KMS backed encryptor
func New(cfg aws.Config) *Client {
	return &Client{api: kms.NewFromConfig(cfg)}
}

// NewWithAPI creates an encryptor on top of an existing API client
func NewWithAPI(api API) *Client {
	return &Client{api: api}
}

// Encrypt encrypts plaintext with the given key ID, ARN or alias. A non-empty
// region overrides the configured one for this call.
func (c *Client) Encrypt(ctx context.Context, keyID, region string, plaintext []byte) ([]byte, error) {
	var optFns []func(*kms.Options)
	if region != "" {
		optFns = append(optFns, func(o *kms.Options) {
			o.Region = region
		})
	}

	out, err := c.api.Encrypt(ctx, &kms.EncryptInput{
		KeyId:     aws.String(keyID),
		Plaintext: plaintext,
	}, optFns...)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt with %s: %w", keyID, err)
	}
	return out.CiphertextBlob, nil
}
