package lambda_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-lambda-go/cfn"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/m-mizutani/gt"

	"github.com/m-mizutani/gitbridge/pkg/controller/lambda"
	"github.com/m-mizutani/gitbridge/pkg/domain/model"
	"github.com/m-mizutani/gitbridge/pkg/domain/types"
)

const gatewayEvent = `{
	"body-json": {"ref": "refs/heads/main", "repository": {"full_name": "org/repo"}},
	"params": {"header": {"X-Git-Token": "s2", "User-Agent": "GitHub-Hookshot/1"}},
	"context": {
		"key-bucket": "keys",
		"output-bucket": "out",
		"public-key": "ssh-rsa AAAA",
		"allowed-ips": "10.0.0.0/8, 192.168.0.0/16",
		"api-secrets": "s1,s2",
		"source-ip": "203.0.113.5",
		"raw-body": "{\"ref\": \"refs/heads/main\"}",
		"use-sha256": "",
		"git-token": "gt",
		"oauth-key": "ok",
		"oauth-secret": "os"
	}
}`

type mockGitPull struct {
	event       *model.InboundEvent
	triggerErr  error
	completeErr error
	revision    *model.RevisionResult
}

func (m *mockGitPull) Trigger(ctx context.Context, event *model.InboundEvent) (*model.Dispatch, error) {
	m.event = event
	if m.triggerErr != nil {
		return nil, m.triggerErr
	}
	return &model.Dispatch{Handle: "build-1", Triple: model.ProvenanceTriple{RepositoryName: "org/repo", Ref: "main", CloneURL: "git@x:org/repo.git"}}, nil
}

func (m *mockGitPull) Complete(ctx context.Context, dispatch *model.Dispatch) (*model.RevisionResult, error) {
	return m.revision, m.completeErr
}

type mockArchive struct {
	event *model.InboundEvent
	err   error
}

func (m *mockArchive) Normalize(ctx context.Context, event *model.InboundEvent) (string, error) {
	m.event = event
	return "org/repo/main/repo.zip", m.err
}

type mockKeyPair struct {
	req *model.KeyRequest
}

func (m *mockKeyPair) Provision(ctx context.Context, req *model.KeyRequest) (string, error) {
	m.req = req
	if req.Type != model.KeyRequestCreate {
		return req.PreviousPublicKey, nil
	}
	return "ssh-rsa NEW", nil
}

func decodeRequest(t *testing.T) *lambda.Request {
	var req lambda.Request
	gt.NoError(t, json.Unmarshal([]byte(gatewayEvent), &req))
	return &req
}

func TestHandler_GitPull(t *testing.T) {
	gitPull := &mockGitPull{revision: &model.RevisionResult{Revision: "Git Commit Id:abc"}}
	h := lambda.NewHandler(model.EventContext{}, gitPull, nil, nil)

	ctx := lambdacontext.NewContext(context.Background(), &lambdacontext.LambdaContext{AwsRequestID: "req-1"})
	out, err := h.GitPull(ctx, decodeRequest(t))
	gt.NoError(t, err)
	gt.Equal(t, out.BuildID, model.BuildHandle("build-1"))
	gt.Equal(t, out.Revision.Revision, "Git Commit Id:abc")

	event := gitPull.event
	gt.Equal(t, event.ID, "req-1")
	gt.Equal(t, event.SourceIP, "203.0.113.5")
	gt.Equal(t, string(event.RawBody), `{"ref": "refs/heads/main"}`)
	gt.Equal(t, event.Header.Get("X-Git-Token"), "s2")
	gt.Equal(t, event.Context.KeyBucket, "keys")
	gt.Equal(t, event.Context.AllowedIPs, []string{"10.0.0.0/8", "192.168.0.0/16"})
	gt.Equal(t, event.Context.APISecrets, []types.Secret{"s1", "s2"})
	gt.True(t, event.Context.UseSHA256)
	gt.Equal(t, event.Context.GitToken, types.Secret("gt"))
	gt.Equal(t, event.Payload().Get("repository.full_name").String(), "org/repo")
}

func TestHandler_GitPullErrors(t *testing.T) {
	t.Run("Trigger failure is returned", func(t *testing.T) {
		gitPull := &mockGitPull{triggerErr: types.ErrAuthentication}
		h := lambda.NewHandler(model.EventContext{}, gitPull, nil, nil)

		_, err := h.GitPull(context.Background(), decodeRequest(t))
		gt.True(t, errors.Is(err, types.ErrAuthentication))
	})

	t.Run("Polling failure completes without revision", func(t *testing.T) {
		gitPull := &mockGitPull{completeErr: errors.New("throttled")}
		h := lambda.NewHandler(model.EventContext{}, gitPull, nil, nil)

		out, err := h.GitPull(context.Background(), decodeRequest(t))
		gt.NoError(t, err)
		gt.V(t, out.Revision).Nil()
	})
}

func TestHandler_DefaultsAndSHA1(t *testing.T) {
	gitPull := &mockGitPull{}
	defaults := model.EventContext{
		KeyBucket:  "default-keys",
		APISecrets: []types.Secret{"configured"},
	}
	h := lambda.NewHandler(defaults, gitPull, nil, nil)

	req := &lambda.Request{BodyJSON: json.RawMessage(`{"a":1}`)}
	_, err := h.GitPull(context.Background(), req)
	gt.NoError(t, err)

	gt.Equal(t, gitPull.event.Context.KeyBucket, "default-keys")
	gt.Equal(t, gitPull.event.Context.APISecrets, []types.Secret{"configured"})
	gt.Equal(t, gitPull.event.Context.UseSHA256, false)
	gt.Equal(t, string(gitPull.event.RawBody), `{"a":1}`)
	gt.True(t, gitPull.event.ID != "")
}

func TestHandler_Archive(t *testing.T) {
	archive := &mockArchive{}
	h := lambda.NewHandler(model.EventContext{}, nil, archive, nil)

	out, err := h.Archive(context.Background(), decodeRequest(t))
	gt.NoError(t, err)
	gt.Equal(t, out.Key, "org/repo/main/repo.zip")
	gt.Equal(t, archive.event.Context.OAuthSecret, types.Secret("os"))

	archive.err = types.ErrArchive
	_, err = h.Archive(context.Background(), decodeRequest(t))
	gt.True(t, errors.Is(err, types.ErrArchive))
}

func TestHandler_Keygen(t *testing.T) {
	keyPair := &mockKeyPair{}
	h := lambda.NewHandler(model.EventContext{KeyBucket: "default-keys"}, nil, nil, keyPair)

	id, data, err := h.Keygen(context.Background(), cfn.Event{
		RequestType:        cfn.RequestCreate,
		RequestID:          "req",
		ResourceProperties: map[string]interface{}{"KMSKey": "alias/k", "KeyBucket": "keys", "Region": "eu-west-1"},
	})
	gt.NoError(t, err)
	gt.Equal(t, id, "ssh-rsa NEW")
	gt.Equal(t, data["PublicKey"], interface{}("ssh-rsa NEW"))
	gt.Equal(t, keyPair.req.KeyID, "alias/k")
	gt.Equal(t, keyPair.req.KeyBucket, "keys")
	gt.Equal(t, keyPair.req.Region, "eu-west-1")

	id, _, err = h.Keygen(context.Background(), cfn.Event{
		RequestType:        cfn.RequestDelete,
		PhysicalResourceID: "ssh-rsa OLD",
		ResourceProperties: map[string]interface{}{"KMSKey": "alias/k"},
	})
	gt.NoError(t, err)
	gt.Equal(t, id, "ssh-rsa OLD")
	gt.Equal(t, keyPair.req.KeyBucket, "default-keys")
}

func TestStart_UnknownFunction(t *testing.T) {
	err := lambda.Start("unknown", lambda.NewHandler(model.EventContext{}, nil, nil, nil))
	gt.Error(t, err)
}
