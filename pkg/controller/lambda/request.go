package lambda

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/google/uuid"
	"github.com/m-mizutani/gitbridge/pkg/domain/model"
	"github.com/m-mizutani/gitbridge/pkg/domain/types"
)

// Request is the API Gateway mapping template event delivered to the webhook functions
type Request struct {
	BodyJSON json.RawMessage `json:"body-json"`
	Params   struct {
		Header map[string]string `json:"header"`
	} `json:"params"`
	Context RequestContext `json:"context"`
}

// RequestContext is the side context added by the mapping template
type RequestContext struct {
	KeyBucket    string          `json:"key-bucket"`
	OutputBucket string          `json:"output-bucket"`
	PublicKey    string          `json:"public-key"`
	AllowedIPs   string          `json:"allowed-ips"`
	APISecrets   string          `json:"api-secrets" masq:"secret"`
	SourceIP     string          `json:"source-ip"`
	RawBody      string          `json:"raw-body"`
	UseSHA256    json.RawMessage `json:"use-sha256,omitempty"` // enabled when the key is present
	GitToken     string          `json:"git-token" masq:"secret"`
	OAuthKey     string          `json:"oauth-key"`
	OAuthSecret  string          `json:"oauth-secret" masq:"secret"`
}

// toEvent converts the request into an InboundEvent. Empty request context
// fields fall back to the configured defaults.
func (r *Request) toEvent(ctx context.Context, defaults model.EventContext) *model.InboundEvent {
	header := http.Header{}
	for k, v := range r.Params.Header {
		header.Set(k, v)
	}

	evCtx := defaults
	if r.Context.KeyBucket != "" {
		evCtx.KeyBucket = r.Context.KeyBucket
	}
	if r.Context.OutputBucket != "" {
		evCtx.OutputBucket = r.Context.OutputBucket
	}
	if r.Context.PublicKey != "" {
		evCtx.PublicKey = r.Context.PublicKey
	}
	if ips := splitList(r.Context.AllowedIPs); len(ips) > 0 {
		evCtx.AllowedIPs = ips
	}
	if secrets := splitList(r.Context.APISecrets); len(secrets) > 0 {
		evCtx.APISecrets = make([]types.Secret, 0, len(secrets))
		for _, s := range secrets {
			evCtx.APISecrets = append(evCtx.APISecrets, types.Secret(s))
		}
	}
	if len(r.Context.UseSHA256) > 0 {
		evCtx.UseSHA256 = true
	}
	if r.Context.GitToken != "" {
		evCtx.GitToken = types.Secret(r.Context.GitToken)
	}
	if r.Context.OAuthKey != "" {
		evCtx.OAuthKey = r.Context.OAuthKey
	}
	if r.Context.OAuthSecret != "" {
		evCtx.OAuthSecret = types.Secret(r.Context.OAuthSecret)
	}

	rawBody := []byte(r.Context.RawBody)
	if len(rawBody) == 0 {
		rawBody = r.BodyJSON
	}

	id := uuid.NewString()
	if lc, ok := lambdacontext.FromContext(ctx); ok && lc.AwsRequestID != "" {
		id = lc.AwsRequestID
	}

	return &model.InboundEvent{
		ID:       id,
		Header:   header,
		RawBody:  rawBody,
		Body:     r.BodyJSON,
		SourceIP: r.Context.SourceIP,
		Context:  evCtx,
	}
}

func splitList(s string) []string {
	var out []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
