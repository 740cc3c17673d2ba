package usecase

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/go-github/v75/github"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/gitbridge/pkg/domain/interfaces"
	"github.com/m-mizutani/gitbridge/pkg/domain/model"
	"github.com/m-mizutani/gitbridge/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
	"github.com/tidwall/gjson"
)

const (
	defaultGitLabBaseURL = "https://gitlab.com"
	defaultScratchDir    = "gitbridge-archive"
)

type flavorHandler func(ctx context.Context, event *model.InboundEvent) (*model.ArchiveSpec, error)

type archiveUseCase struct {
	auth       *Authenticator
	fetcher    interfaces.ArchiveFetcher
	storage    interfaces.ObjectStorage
	tokens     interfaces.TokenIssuer
	scratchDir string
	cleanup    bool
	handlers   map[model.HostFlavor]flavorHandler

	mu     sync.Mutex
	active int
}

// ArchiveOption configures the archive use case
type ArchiveOption func(*archiveUseCase)

// WithScratchDir sets the local working directory. Each run works in its own
// subdirectory; leftovers are purged when no run is active.
func WithScratchDir(dir string) ArchiveOption {
	return func(uc *archiveUseCase) {
		uc.scratchDir = dir
	}
}

// WithCleanup removes the scratch directory after the last active run
func WithCleanup(cleanup bool) ArchiveOption {
	return func(uc *archiveUseCase) {
		uc.cleanup = cleanup
	}
}

// WithTokenIssuer sets the OAuth2 token issuer used for Bitbucket
func WithTokenIssuer(issuer interfaces.TokenIssuer) ArchiveOption {
	return func(uc *archiveUseCase) {
		uc.tokens = issuer
	}
}

// NewArchive creates a new instance of ArchiveUseCase
func NewArchive(fetcher interfaces.ArchiveFetcher, storage interfaces.ObjectStorage, opts ...ArchiveOption) *archiveUseCase {
	uc := &archiveUseCase{
		auth:       NewAuthenticator(),
		fetcher:    fetcher,
		storage:    storage,
		scratchDir: filepath.Join(os.TempDir(), defaultScratchDir),
	}
	uc.handlers = map[model.HostFlavor]flavorHandler{
		model.HostFlavorGitHub:           uc.githubSpec,
		model.HostFlavorGitHubEnterprise: uc.githubSpec,
		model.HostFlavorGitLab:           uc.gitlabSpec,
		model.HostFlavorBitbucket:        uc.bitbucketSpec,
		model.HostFlavorTFS:              uc.tfsSpec,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// ClassifyFlavor decides which hosting product sent the event
func ClassifyFlavor(event *model.InboundEvent) model.HostFlavor {
	if _, ok := event.HeaderValue(model.HeaderHubSignature); ok {
		return model.HostFlavorGitHubEnterprise
	}
	if _, ok := event.HeaderValue(model.HeaderGitlabEvent); ok {
		return model.HostFlavorGitLab
	}
	if ua, ok := event.HeaderValue(model.HeaderUserAgent); ok {
		switch {
		case strings.HasPrefix(ua, "Bitbucket-Webhooks"):
			return model.HostFlavorBitbucket
		case strings.HasPrefix(ua, "GitHub-Hookshot"):
			return model.HostFlavorGitHub
		}
	}
	if event.Payload().Get("publisherId").String() == "tfs" {
		return model.HostFlavorTFS
	}
	return model.HostFlavorGeneric
}

// BuildSpec classifies the event and builds the archive download description
func (uc *archiveUseCase) BuildSpec(ctx context.Context, event *model.InboundEvent) (*model.ArchiveSpec, error) {
	flavor := ClassifyFlavor(event)
	handler, ok := uc.handlers[flavor]
	if !ok {
		return nil, goerr.Wrap(types.ErrUnsupportedFlavor, "cannot build archive URL",
			goerr.V("flavor", flavor),
		)
	}

	spec, err := handler(ctx, event)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to build archive spec", goerr.V("flavor", flavor))
	}
	if spec.Owner == "" || spec.Name == "" {
		return nil, goerr.Wrap(types.ErrDerivation, "repository owner or name is missing",
			goerr.V("flavor", flavor),
			goerr.V("owner", spec.Owner),
			goerr.V("name", spec.Name),
		)
	}
	spec.Flavor = flavor
	return spec, nil
}

// Normalize fetches the archive, strips its top-level directory and uploads it.
// It returns the object key in the output bucket.
func (uc *archiveUseCase) Normalize(ctx context.Context, event *model.InboundEvent) (string, error) {
	if err := uc.auth.Authenticate(ctx, event); err != nil {
		return "", err
	}

	spec, err := uc.BuildSpec(ctx, event)
	if err != nil {
		return "", err
	}

	logger := ctxlog.From(ctx).With(
		"flavor", spec.Flavor,
		"archive_url", spec.RedactedURL(),
	)
	fail := func(err error, msg string) error {
		logger.Error("Archive normalization failed", "error", err, "step", msg)
		return goerr.Wrap(types.ErrArchive, msg+": "+err.Error(),
			goerr.V("flavor", spec.Flavor),
			goerr.V("archive_url", spec.RedactedURL()),
		)
	}

	logger.Info("Downloading archive")
	data, err := uc.fetcher.Fetch(ctx, spec)
	if err != nil {
		return "", fail(err, "failed to download archive")
	}
	logger.Info("Downloaded archive", "size_bytes", len(data))

	normalized, err := uc.rezip(ctx, data)
	if err != nil {
		return "", fail(err, "failed to re-root archive")
	}

	key := spec.ObjectKey()
	logger.Info("Uploading archive", "bucket", event.Context.OutputBucket, "key", key)
	if err := uc.storage.Put(ctx, event.Context.OutputBucket, key, normalized, "application/zip"); err != nil {
		return "", fail(err, "failed to upload archive")
	}
	logger.Info("Upload complete", "bucket", event.Context.OutputBucket, "key", key)

	return key, nil
}

func (uc *archiveUseCase) githubSpec(_ context.Context, event *model.InboundEvent) (*model.ArchiveSpec, error) {
	var push github.PushEvent
	if err := json.Unmarshal(event.Body, &push); err != nil {
		return nil, goerr.Wrap(types.ErrDerivation, "invalid push payload: "+err.Error())
	}

	repo := push.GetRepo()
	archiveURL := repo.GetArchiveURL()
	if archiveURL == "" || repo.GetName() == "" {
		return nil, goerr.Wrap(types.ErrDerivation, "repository.archive_url or repository.name is missing")
	}

	// github.com pushes carry owner.login; Enterprise payloads may only have owner.name
	owner := repo.GetOwner().GetLogin()
	if owner == "" {
		owner = repo.GetOwner().GetName()
	}

	branch := strings.TrimPrefix(push.GetRef(), "refs/heads/")
	if branch == "" {
		branch = DefaultRef
	}

	archiveURL = strings.NewReplacer(
		"{archive_format}", "zipball",
		"{/ref}", "/"+branch,
	).Replace(archiveURL)

	query := url.Values{}
	if event.Context.GitToken != "" {
		query.Set("access_token", string(event.Context.GitToken))
	}

	return &model.ArchiveSpec{
		ArchiveURL: archiveURL,
		Query:      query,
		Header:     http.Header{},
		Owner:      owner,
		Name:       repo.GetName(),
		Branch:     branch,
	}, nil
}

func (uc *archiveUseCase) gitlabSpec(_ context.Context, event *model.InboundEvent) (*model.ArchiveSpec, error) {
	payload := event.Payload()

	projectID := payload.Get("project_id")
	if !projectID.Exists() {
		projectID = payload.Get("project.id")
	}
	if !projectID.Exists() || projectID.String() == "" {
		return nil, goerr.Wrap(types.ErrDerivation, "project_id is missing")
	}

	baseURL := defaultGitLabBaseURL
	if webURL := payload.Get("project.web_url").String(); webURL != "" {
		if u, err := url.Parse(webURL); err == nil && u.Host != "" {
			baseURL = u.Scheme + "://" + u.Host
		}
	}

	branch := strings.TrimPrefix(payload.Get("ref").String(), "refs/heads/")
	if branch == "" {
		branch = DefaultRef
	}

	query := url.Values{}
	query.Set("sha", branch)
	if event.Context.GitToken != "" {
		query.Set("private_token", string(event.Context.GitToken))
	}

	return &model.ArchiveSpec{
		ArchiveURL: baseURL + "/api/v4/projects/" + url.PathEscape(projectID.String()) + "/repository/archive.zip",
		Query:      query,
		Header:     http.Header{},
		Owner:      payload.Get("project.namespace").String(),
		Name:       payload.Get("project.name").String(),
		Branch:     branch,
	}, nil
}

func (uc *archiveUseCase) bitbucketSpec(ctx context.Context, event *model.InboundEvent) (*model.ArchiveSpec, error) {
	payload := event.Payload()

	branch := payload.Get("push.changes.0.new.name").String()
	href := payload.Get("repository.links.html.href").String()
	if branch == "" || href == "" {
		return nil, goerr.Wrap(types.ErrDerivation, "push.changes[0].new.name or repository.links.html.href is missing")
	}

	if uc.tokens == nil {
		return nil, goerr.New("no token issuer configured for bitbucket")
	}
	token, err := uc.tokens.IssueToken(ctx, event.Context.OAuthKey, event.Context.OAuthSecret)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get OAuth token")
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	return &model.ArchiveSpec{
		ArchiveURL: strings.TrimSuffix(href, "/") + "/get/" + branch + ".zip",
		Query:      url.Values{},
		Header:     header,
		Owner:      payload.Get("repository.owner.username").String(),
		Name:       payload.Get("repository.name").String(),
		Branch:     branch,
	}, nil
}

func (uc *archiveUseCase) tfsSpec(_ context.Context, event *model.InboundEvent) (*model.ArchiveSpec, error) {
	payload := event.Payload()

	fields := map[string]gjson.Result{
		"resourceContainers.account.baseUrl": payload.Get("resourceContainers.account.baseUrl"),
		"resourceContainers.project.id":      payload.Get("resourceContainers.project.id"),
		"resource.repository.id":             payload.Get("resource.repository.id"),
	}
	for path, v := range fields {
		if v.String() == "" {
			return nil, goerr.Wrap(types.ErrDerivation, "field is missing", goerr.V("path", path))
		}
	}

	baseURL := fields["resourceContainers.account.baseUrl"].String()
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	archiveURL := baseURL + "DefaultCollection/" +
		fields["resourceContainers.project.id"].String() +
		"/_apis/git/repositories/" +
		fields["resource.repository.id"].String() + "/items"

	header := http.Header{}
	header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(":"+string(event.Context.GitToken))))
	header.Set("Accept", "application/zip")

	return &model.ArchiveSpec{
		ArchiveURL: archiveURL,
		Query:      url.Values{},
		Header:     header,
		Owner:      payload.Get("resource.pushedBy.displayName").String(),
		Name:       payload.Get("resource.repository.name").String(),
		Branch:     DefaultRef,
	}, nil
}
