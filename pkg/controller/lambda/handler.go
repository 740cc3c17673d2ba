package lambda

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-lambda-go/cfn"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/getsentry/sentry-go"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/gitbridge/pkg/domain/interfaces"
	"github.com/m-mizutani/gitbridge/pkg/domain/model"
	"github.com/m-mizutani/gitbridge/pkg/utils/errutil"
	"github.com/m-mizutani/goerr/v2"
)

// Function names accepted by Start
const (
	FunctionGitPull = "gitpull"
	FunctionArchive = "archive"
	FunctionKeygen  = "keygen"
)

const flushTimeout = 2 * time.Second

// GitPullOutput is returned by the git pull function
type GitPullOutput struct {
	BuildID    model.BuildHandle      `json:"build_id"`
	Provenance model.ProvenanceTriple `json:"provenance"`
	Revision   *model.RevisionResult  `json:"revision,omitempty"`
}

// ArchiveOutput is returned by the archive function
type ArchiveOutput struct {
	Key string `json:"key"`
}

// Handler serves Lambda invocations
type Handler struct {
	defaults  model.EventContext
	gitPullUC interfaces.GitPullUseCase
	archiveUC interfaces.ArchiveUseCase
	keyPairUC interfaces.KeyPairUseCase
}

// NewHandler creates a Lambda handler. Use cases not needed by the selected function may be nil.
func NewHandler(defaults model.EventContext, gitPullUC interfaces.GitPullUseCase, archiveUC interfaces.ArchiveUseCase, keyPairUC interfaces.KeyPairUseCase) *Handler {
	return &Handler{
		defaults:  defaults,
		gitPullUC: gitPullUC,
		archiveUC: archiveUC,
		keyPairUC: keyPairUC,
	}
}

// Start runs the Lambda runtime loop for the given function. It does not return on success.
func Start(function string, h *Handler) error {
	switch function {
	case FunctionGitPull:
		lambda.Start(h.GitPull)
	case FunctionArchive:
		lambda.Start(h.Archive)
	case FunctionKeygen:
		lambda.Start(cfn.LambdaWrap(h.Keygen))
	default:
		return goerr.New("unknown lambda function", goerr.V("function", function))
	}
	return nil
}

func (h *Handler) invocationContext(ctx context.Context, event *model.InboundEvent) context.Context {
	ctx = ctxlog.With(ctx, ctxlog.From(ctx).With("invocation_id", event.ID))
	hub := sentry.CurrentHub().Clone()
	hub.Scope().SetTag("invocation_id", event.ID)
	return sentry.SetHubOnContext(ctx, hub)
}

// GitPull starts a build and waits for its completion. Authentication,
// derivation and dispatch failures are returned; build outcomes are not.
func (h *Handler) GitPull(ctx context.Context, req *Request) (*GitPullOutput, error) {
	event := req.toEvent(ctx, h.defaults)
	ctx = h.invocationContext(ctx, event)
	defer sentry.Flush(flushTimeout)

	dispatch, err := h.gitPullUC.Trigger(ctx, event)
	if err != nil {
		errutil.Handle(ctx, "Failed to trigger build", err)
		return nil, err
	}

	output := &GitPullOutput{
		BuildID:    dispatch.Handle,
		Provenance: dispatch.Triple,
	}

	revision, err := h.gitPullUC.Complete(ctx, dispatch)
	if err != nil {
		errutil.Handle(ctx, "Failed to wait for build", err)
		return output, nil
	}
	output.Revision = revision
	return output, nil
}

// Archive normalizes and republishes the pushed code archive
func (h *Handler) Archive(ctx context.Context, req *Request) (*ArchiveOutput, error) {
	event := req.toEvent(ctx, h.defaults)
	ctx = h.invocationContext(ctx, event)
	defer sentry.Flush(flushTimeout)

	key, err := h.archiveUC.Normalize(ctx, event)
	if err != nil {
		errutil.Handle(ctx, "Failed to normalize archive", err)
		return nil, err
	}
	return &ArchiveOutput{Key: key}, nil
}

// Keygen provisions the deploy key as a CloudFormation custom resource. The
// public key is used as the physical resource ID.
func (h *Handler) Keygen(ctx context.Context, event cfn.Event) (string, map[string]interface{}, error) {
	req := &model.KeyRequest{
		Type:              model.KeyRequestType(event.RequestType),
		KeyID:             stringProperty(event.ResourceProperties, "KMSKey"),
		KeyBucket:         stringProperty(event.ResourceProperties, "KeyBucket"),
		Region:            stringProperty(event.ResourceProperties, "Region"),
		PreviousPublicKey: event.PhysicalResourceID,
	}
	if req.KeyBucket == "" {
		req.KeyBucket = h.defaults.KeyBucket
	}

	publicKey, err := h.keyPairUC.Provision(ctx, req)
	if err != nil {
		errutil.Handle(ctx, "Failed to provision deploy key", err)
		return "", nil, err
	}
	return publicKey, map[string]interface{}{"PublicKey": publicKey}, nil
}

func stringProperty(props map[string]interface{}, key string) string {
	v, ok := props[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
