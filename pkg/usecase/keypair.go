package usecase

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"strings"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/gitbridge/pkg/domain/interfaces"
	"github.com/m-mizutani/gitbridge/pkg/domain/model"
	"github.com/m-mizutani/gitbridge/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/crypto/ssh"
)

const deployKeyBits = 2048

type keyPairUseCase struct {
	encryptor interfaces.Encryptor
	storage   interfaces.ObjectStorage
	bits      int
}

// NewKeyPair creates a new instance of KeyPairUseCase
func NewKeyPair(encryptor interfaces.Encryptor, storage interfaces.ObjectStorage) *keyPairUseCase {
	return &keyPairUseCase{
		encryptor: encryptor,
		storage:   storage,
		bits:      deployKeyBits,
	}
}

// Provision creates the deploy key on a create request and returns its OpenSSH
// public key. Other requests return the previous public key unchanged.
func (uc *keyPairUseCase) Provision(ctx context.Context, req *model.KeyRequest) (string, error) {
	logger := ctxlog.From(ctx)

	if req.Type != model.KeyRequestCreate {
		logger.Info("Keeping existing deploy key", "request_type", req.Type)
		return req.PreviousPublicKey, nil
	}

	if req.KeyID == "" || req.KeyBucket == "" {
		return "", goerr.Wrap(types.ErrInvalidConfig, "KMS key ID and key bucket are required",
			goerr.V("kms_key_id", req.KeyID),
			goerr.V("key_bucket", req.KeyBucket),
		)
	}

	privateKey, err := rsa.GenerateKey(rand.Reader, uc.bits)
	if err != nil {
		return "", goerr.Wrap(err, "failed to generate RSA key")
	}

	der, err := x509.MarshalPKCS8PrivateKey(privateKey)
	if err != nil {
		return "", goerr.Wrap(err, "failed to marshal private key")
	}
	privatePEM := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})

	sshPub, err := ssh.NewPublicKey(&privateKey.PublicKey)
	if err != nil {
		return "", goerr.Wrap(err, "failed to encode public key")
	}
	publicKey := strings.TrimSpace(string(ssh.MarshalAuthorizedKey(sshPub)))

	ciphertext, err := uc.encryptor.Encrypt(ctx, req.KeyID, req.Region, privatePEM)
	if err != nil {
		return "", goerr.Wrap(err, "failed to encrypt private key", goerr.V("kms_key_id", req.KeyID))
	}

	if err := uc.storage.Put(ctx, req.KeyBucket, model.KeyObject, ciphertext, "application/octet-stream"); err != nil {
		return "", goerr.Wrap(err, "failed to store encrypted private key",
			goerr.V("bucket", req.KeyBucket),
			goerr.V("key", model.KeyObject),
		)
	}

	logger.Info("Deploy key provisioned",
		"bucket", req.KeyBucket,
		"key", model.KeyObject,
		"fingerprint", ssh.FingerprintSHA256(sshPub),
	)
	return publicKey, nil
}
