package usecase_test

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	"github.com/m-mizutani/gitbridge/pkg/domain/model"
	"github.com/m-mizutani/gitbridge/pkg/domain/types"
)

// MockBuildExecutor is a mock implementation of BuildExecutor
type MockBuildExecutor struct {
	startBuildFunc func(ctx context.Context, project string, params []model.BuildParameter) (model.BuildHandle, error)
	states         []*model.BuildState
	getBuildErr    error

	startCalls  int
	getCalls    int
	lastProject string
	lastParams  []model.BuildParameter
}

func (m *MockBuildExecutor) StartBuild(ctx context.Context, project string, params []model.BuildParameter) (model.BuildHandle, error) {
	m.startCalls++
	m.lastProject = project
	m.lastParams = params
	if m.startBuildFunc != nil {
		return m.startBuildFunc(ctx, project, params)
	}
	return "build-1", nil
}

// GetBuild returns states in order and repeats the last one
func (m *MockBuildExecutor) GetBuild(ctx context.Context, handle model.BuildHandle) (*model.BuildState, error) {
	m.getCalls++
	if m.getBuildErr != nil {
		return nil, m.getBuildErr
	}
	if len(m.states) == 0 {
		return nil, errors.New("mock not configured")
	}
	idx := m.getCalls - 1
	if idx >= len(m.states) {
		idx = len(m.states) - 1
	}
	return m.states[idx], nil
}

// MockStorage records uploaded objects
type MockStorage struct {
	objects map[string][]byte
	putErr  error
}

func (m *MockStorage) Put(ctx context.Context, bucket, key string, data []byte, contentType string) error {
	if m.putErr != nil {
		return m.putErr
	}
	if m.objects == nil {
		m.objects = map[string][]byte{}
	}
	m.objects[bucket+"/"+key] = append([]byte(nil), data...)
	return nil
}

// MockFetcher returns fixed archive data
type MockFetcher struct {
	data  []byte
	err   error
	specs []*model.ArchiveSpec
}

func (m *MockFetcher) Fetch(ctx context.Context, spec *model.ArchiveSpec) ([]byte, error) {
	m.specs = append(m.specs, spec)
	if m.err != nil {
		return nil, m.err
	}
	return m.data, nil
}

// MockTokenIssuer returns a fixed bearer token
type MockTokenIssuer struct {
	token        string
	err          error
	clientID     string
	clientSecret types.Secret
}

func (m *MockTokenIssuer) IssueToken(ctx context.Context, clientID string, clientSecret types.Secret) (string, error) {
	m.clientID = clientID
	m.clientSecret = clientSecret
	return m.token, m.err
}

// MockEncryptor prefixes plaintext so the stored blob can be checked
type MockEncryptor struct {
	keyID     string
	region    string
	plaintext []byte
	err       error
}

func (m *MockEncryptor) Encrypt(ctx context.Context, keyID, region string, plaintext []byte) ([]byte, error) {
	m.keyID = keyID
	m.region = region
	m.plaintext = plaintext
	if m.err != nil {
		return nil, m.err
	}
	return append([]byte("enc:"), plaintext...), nil
}

func noSleep(time.Duration) {}

func signSHA256(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func newEvent(body string, header map[string]string, evCtx model.EventContext) *model.InboundEvent {
	h := http.Header{}
	for k, v := range header {
		h.Set(k, v)
	}
	return &model.InboundEvent{
		ID:       "test-event",
		Header:   h,
		RawBody:  []byte(body),
		Body:     []byte(body),
		SourceIP: "203.0.113.10",
		Context:  evCtx,
	}
}

func createZip(t *testing.T, files map[string]string) []byte {
	var buf bytes.Buffer
	zipWriter := zip.NewWriter(&buf)

	for filename, content := range files {
		writer, err := zipWriter.Create(filename)
		gt.NoError(t, err)

		_, err = writer.Write([]byte(content))
		gt.NoError(t, err)
	}

	err := zipWriter.Close()
	gt.NoError(t, err)

	return buf.Bytes()
}

func signSHA1(secret, payload string) string {
	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}
