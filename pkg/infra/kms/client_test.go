package kms_test

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/m-mizutani/gt"

	infra "github.com/m-mizutani/gitbridge/pkg/infra/kms"
)

type mockAPI struct {
	input   *kms.EncryptInput
	options kms.Options
}

func (m *mockAPI) Encrypt(ctx context.Context, params *kms.EncryptInput, optFns ...func(*kms.Options)) (*kms.EncryptOutput, error) {
	m.input = params
	m.options = kms.Options{Region: "us-east-1"}
	for _, fn := range optFns {
		fn(&m.options)
	}
	return &kms.EncryptOutput{CiphertextBlob: []byte("cipher")}, nil
}

func TestClient_Encrypt(t *testing.T) {
	api := &mockAPI{}
	out, err := infra.NewWithAPI(api).Encrypt(context.Background(), "alias/deploy", "", []byte("plain"))
	gt.NoError(t, err)
	gt.Equal(t, string(out), "cipher")
	gt.Equal(t, aws.ToString(api.input.KeyId), "alias/deploy")
	gt.Equal(t, string(api.input.Plaintext), "plain")
	gt.Equal(t, api.options.Region, "us-east-1")
}

func TestClient_EncryptRegionOverride(t *testing.T) {
	api := &mockAPI{}
	_, err := infra.NewWithAPI(api).Encrypt(context.Background(), "alias/deploy", "ap-northeast-1", []byte("plain"))
	gt.NoError(t, err)
	gt.Equal(t, api.options.Region, "ap-northeast-1")
}
