package usecase

import (
	"context"
	"strings"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/gitbridge/pkg/domain/model"
	"github.com/m-mizutani/gitbridge/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
	"github.com/tidwall/gjson"
)

// DefaultRef is used when a payload carries no ref at all
const DefaultRef = "master"

// Attempt extracts one value from a payload. It returns ok=false when the
// field is absent; an error means the field exists but is unusable.
type Attempt struct {
	Name    string
	Extract func(payload gjson.Result) (value string, ok bool, err error)
}

// RepositoryNameAttempts is the fallback order for the repository name
var RepositoryNameAttempts = []Attempt{
	fieldAttempt("repository.full_name"),
	fieldAttempt("repository.fullName"),
	fieldAttempt("repository.path_with_namespace"),
	fieldAttempt("project.path_with_namespace"),
	fieldAttempt("repository.name"),
	fieldAttempt("pullRequest.fromRef.repository.name"),
}

// RefAttempts is the fallback order for the ref of a non-release event
var RefAttempts = []Attempt{
	{Name: "ref", Extract: extractPushRef},
	fieldAttempt("push.changes.0.new.name"),
	{Name: "default", Extract: func(gjson.Result) (string, bool, error) { return DefaultRef, true, nil }},
}

// CloneURLAttempts is the fallback order for the SSH clone URL
var CloneURLAttempts = []Attempt{
	fieldAttempt("project.git_ssh_url"),
	{Name: "repository.links.html.href", Extract: extractHTMLLinkCloneURL},
	fieldAttempt("repository.ssh_url"),
	fieldAttempt(`repository.links.clone.#(name=="ssh").href`),
	fieldAttempt(`pullRequest.fromRef.repository.links.clone.#(name=="ssh").href`),
}

// DeriveTriple resolves repository name, ref and clone URL independently from a payload
func DeriveTriple(ctx context.Context, payload gjson.Result) (*model.ProvenanceTriple, error) {
	name, err := resolve(ctx, payload, "repository_name", RepositoryNameAttempts)
	if err != nil {
		return nil, err
	}

	var ref string
	if payload.Get("action").String() == "published" {
		tag, ok, err := stringField(payload, "release.tag_name")
		if err != nil {
			return nil, goerr.Wrap(err, "failed to read release tag")
		}
		if !ok {
			return nil, derivationFailure(ctx, payload, "ref")
		}
		ref = "tags/" + tag
		name += "/release"
	} else {
		ref, err = resolve(ctx, payload, "ref", RefAttempts)
		if err != nil {
			return nil, err
		}
	}

	cloneURL, err := resolve(ctx, payload, "clone_url", CloneURLAttempts)
	if err != nil {
		return nil, err
	}

	triple := &model.ProvenanceTriple{
		RepositoryName: name,
		Ref:            ref,
		CloneURL:       cloneURL,
	}
	if err := triple.Validate(); err != nil {
		return nil, goerr.Wrap(types.ErrDerivation, err.Error())
	}

	ctxlog.From(ctx).Info("Derived provenance",
		"repository", triple.RepositoryName,
		"ref", triple.Ref,
		"clone_url", triple.CloneURL,
	)
	return triple, nil
}

func resolve(ctx context.Context, payload gjson.Result, dimension string, attempts []Attempt) (string, error) {
	for _, attempt := range attempts {
		value, ok, err := attempt.Extract(payload)
		if err != nil {
			return "", goerr.Wrap(err, "extraction failed",
				goerr.V("dimension", dimension),
				goerr.V("attempt", attempt.Name),
			)
		}
		if ok {
			ctxlog.From(ctx).Debug("Resolved provenance field",
				"dimension", dimension,
				"attempt", attempt.Name,
			)
			return value, nil
		}
	}
	return "", derivationFailure(ctx, payload, dimension)
}

func derivationFailure(ctx context.Context, payload gjson.Result, dimension string) error {
	keys := payloadKeys(payload)
	ctxlog.From(ctx).Warn("Could not derive provenance",
		"dimension", dimension,
		"payload_keys", keys,
	)
	return goerr.Wrap(types.ErrDerivation, "no known payload shape matched",
		goerr.V("dimension", dimension),
		goerr.V("payload_keys", keys),
	)
}

func payloadKeys(payload gjson.Result) []string {
	var keys []string
	if !payload.IsObject() {
		return keys
	}
	payload.ForEach(func(key, _ gjson.Result) bool {
		keys = append(keys, key.String())
		return true
	})
	return keys
}

func fieldAttempt(path string) Attempt {
	return Attempt{
		Name: path,
		Extract: func(payload gjson.Result) (string, bool, error) {
			return stringField(payload, path)
		},
	}
}

// stringField treats missing, null and empty values as absent
func stringField(payload gjson.Result, path string) (string, bool, error) {
	v := payload.Get(path)
	switch v.Type {
	case gjson.Null:
		return "", false, nil
	case gjson.String:
		if v.Str == "" {
			return "", false, nil
		}
		return v.Str, true, nil
	default:
		return "", false, goerr.New("field is not a string",
			goerr.V("path", path),
			goerr.V("type", v.Type.String()),
		)
	}
}

func extractPushRef(payload gjson.Result) (string, bool, error) {
	ref, ok, err := stringField(payload, "ref")
	if err != nil || !ok {
		return "", ok, err
	}

	switch {
	case strings.HasPrefix(ref, "refs/heads/"):
		ref = strings.TrimPrefix(ref, "refs/heads/")
	case strings.HasPrefix(ref, "refs/tags/"):
		ref = "tags/" + strings.TrimPrefix(ref, "refs/tags/")
	}
	if ref == "" {
		return "", false, nil
	}
	return ref, true, nil
}

// extractHTMLLinkCloneURL turns https://host/owner/repo into git@host:owner/repo.git
func extractHTMLLinkCloneURL(payload gjson.Result) (string, bool, error) {
	href, ok, err := stringField(payload, "repository.links.html.href")
	if err != nil || !ok {
		return "", ok, err
	}

	if i := strings.Index(href, "://"); i >= 0 {
		href = href[i+3:]
	}
	href = strings.TrimSuffix(href, "/")
	return "git@" + strings.Replace(href, "/", ":", 1) + ".git", true, nil
}
