package model

import (
	"net/http"

	"github.com/m-mizutani/gitbridge/pkg/domain/types"
	"github.com/tidwall/gjson"
)

// Webhook headers inspected by authentication and host flavor classification
const (
	HeaderGitToken      = "X-Git-Token"
	HeaderGitlabToken   = "X-Gitlab-Token"
	HeaderHubSignature  = "X-Hub-Signature"
	HeaderGitlabEvent   = "X-Gitlab-Event"
	HeaderUserAgent     = "User-Agent"
	HeaderGitHubEvent   = "X-GitHub-Event"
	HeaderGitHubDeliver = "X-GitHub-Delivery"
)

// InboundEvent is a webhook delivery together with the side context supplied
// by the surrounding platform. It is not modified after construction.
type InboundEvent struct {
	ID       string      // Delivery or invocation ID
	Header   http.Header // Canonicalized request headers
	RawBody  []byte      // Exact bytes the sender signed
	Body     []byte      // JSON document used for extraction
	SourceIP string
	Context  EventContext
}

// EventContext carries operational settings for one invocation
type EventContext struct {
	KeyBucket    string
	OutputBucket string
	PublicKey    string
	AllowedIPs   []string // CIDR ranges; bare addresses are single-host ranges
	APISecrets   []types.Secret
	UseSHA256    bool
	GitToken     types.Secret
	OAuthKey     string
	OAuthSecret  types.Secret
}

// Payload returns the parsed JSON body
func (e *InboundEvent) Payload() gjson.Result {
	return gjson.ParseBytes(e.Body)
}

// HeaderValue returns the header value and whether the header was sent at all
func (e *InboundEvent) HeaderValue(key string) (string, bool) {
	values, ok := e.Header[http.CanonicalHeaderKey(key)]
	if !ok || len(values) == 0 {
		return "", false
	}
	return values[0], true
}
