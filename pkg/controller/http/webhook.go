package http

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/google/go-github/v75/github"
	"github.com/google/uuid"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/gitbridge/pkg/domain/interfaces"
	"github.com/m-mizutani/gitbridge/pkg/domain/model"
	"github.com/m-mizutani/gitbridge/pkg/domain/types"
	"github.com/m-mizutani/gitbridge/pkg/utils/async"
	"github.com/m-mizutani/gitbridge/pkg/utils/errutil"
	"github.com/m-mizutani/goerr/v2"
)

const maxBodySize = 25 << 20

// GitPullResponse is returned by the git pull endpoint
type GitPullResponse struct {
	Status     string                 `json:"status"`
	BuildID    model.BuildHandle      `json:"build_id"`
	Provenance model.ProvenanceTriple `json:"provenance"`
	Revision   *model.RevisionResult  `json:"revision,omitempty"`
}

// ArchiveResponse is returned by the archive endpoint
type ArchiveResponse struct {
	Status string `json:"status"`
	Key    string `json:"key"`
}

// WebhookHandler handles git hosting webhooks
type WebhookHandler struct {
	eventContext    model.EventContext
	gitPullUC       interfaces.GitPullUseCase
	archiveUC       interfaces.ArchiveUseCase
	asyncCompletion bool
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(evCtx model.EventContext, gitPullUC interfaces.GitPullUseCase, archiveUC interfaces.ArchiveUseCase, asyncCompletion bool) *WebhookHandler {
	return &WebhookHandler{
		eventContext:    evCtx,
		gitPullUC:       gitPullUC,
		archiveUC:       archiveUC,
		asyncCompletion: asyncCompletion,
	}
}

// HandleGitPull starts a build for the pushed revision
func (h *WebhookHandler) HandleGitPull(w http.ResponseWriter, r *http.Request) {
	ctx, event, err := h.readEvent(w, r)
	if err != nil {
		writeError(ctx, w, err, readErrorStatus(err))
		return
	}

	dispatch, err := h.gitPullUC.Trigger(ctx, event)
	if err != nil {
		h.fail(ctx, w, err)
		return
	}

	if h.asyncCompletion {
		async.Dispatch(ctx, func(ctx context.Context) error {
			_, err := h.gitPullUC.Complete(ctx, dispatch)
			return err
		})
		writeJSON(ctx, w, http.StatusAccepted, &GitPullResponse{
			Status:     "accepted",
			BuildID:    dispatch.Handle,
			Provenance: dispatch.Triple,
		})
		return
	}

	// The build is already running; a polling failure answers without a revision
	revision, err := h.gitPullUC.Complete(ctx, dispatch)
	if err != nil {
		errutil.Handle(ctx, "Failed to wait for build", err)
	}

	writeJSON(ctx, w, http.StatusOK, &GitPullResponse{
		Status:     "success",
		BuildID:    dispatch.Handle,
		Provenance: dispatch.Triple,
		Revision:   revision,
	})
}

// HandleArchive republishes the pushed code archive
func (h *WebhookHandler) HandleArchive(w http.ResponseWriter, r *http.Request) {
	ctx, event, err := h.readEvent(w, r)
	if err != nil {
		writeError(ctx, w, err, readErrorStatus(err))
		return
	}

	key, err := h.archiveUC.Normalize(ctx, event)
	if err != nil {
		h.fail(ctx, w, err)
		return
	}

	writeJSON(ctx, w, http.StatusOK, &ArchiveResponse{
		Status: "success",
		Key:    key,
	})
}

// readEvent builds an InboundEvent and a request scoped context carrying the invocation ID
func (h *WebhookHandler) readEvent(w http.ResponseWriter, r *http.Request) (context.Context, *model.InboundEvent, error) {
	ctx := r.Context()

	id := github.DeliveryID(r)
	if id == "" {
		id = uuid.NewString()
	}

	logger := ctxlog.From(ctx).With(
		"invocation_id", id,
		"event_type", github.WebHookType(r),
	)
	ctx = ctxlog.With(ctx, logger)

	hub := sentry.CurrentHub().Clone()
	hub.Scope().SetTag("invocation_id", id)
	ctx = sentry.SetHubOnContext(ctx, hub)

	defer r.Body.Close()
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		logger.Error("Failed to read request body", "error", err)
		return ctx, nil, goerr.Wrap(err, "failed to read request body", goerr.V("limit", maxBodySize))
	}

	sourceIP := r.RemoteAddr
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		sourceIP = host
	}

	event := &model.InboundEvent{
		ID:       id,
		Header:   r.Header.Clone(),
		RawBody:  body,
		Body:     body,
		SourceIP: sourceIP,
		Context:  h.eventContext,
	}
	return ctx, event, nil
}

func (h *WebhookHandler) fail(ctx context.Context, w http.ResponseWriter, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		errutil.Handle(ctx, "Failed to process webhook", err)
	} else {
		ctxlog.From(ctx).Warn("Webhook rejected", "error", err, "status", status)
	}
	writeError(ctx, w, err, status)
}

func readErrorStatus(err error) int {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, types.ErrAuthentication):
		return http.StatusUnauthorized
	case errors.Is(err, types.ErrDerivation), errors.Is(err, types.ErrUnsupportedFlavor):
		return http.StatusUnprocessableEntity
	case errors.Is(err, types.ErrDispatch):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
