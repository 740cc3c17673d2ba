package usecase

import (
	"context"
	"crypto/hmac"
	"crypto/sha1" // #nosec G505 legacy X-Hub-Signature scheme
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"net/netip"
	"strings"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/gitbridge/pkg/domain/model"
	"github.com/m-mizutani/gitbridge/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
)

// Authenticator validates inbound webhooks by source network, shared token or HMAC signature
type Authenticator struct{}

// NewAuthenticator creates an Authenticator
func NewAuthenticator() *Authenticator {
	return &Authenticator{}
}

// Authenticate returns nil if at least one check passes. All checks are evaluated and logged.
func (a *Authenticator) Authenticate(ctx context.Context, event *model.InboundEvent) error {
	logger := ctxlog.From(ctx)

	ipOK, err := matchAllowedIP(event.SourceIP, event.Context.AllowedIPs)
	if err != nil {
		return err
	}
	tokenOK := matchToken(event, event.Context.APISecrets)
	signatureOK := matchSignature(event, event.Context.APISecrets, event.Context.UseSHA256)

	logger.Debug("Authentication checks evaluated",
		"source_ip", event.SourceIP,
		"allowed_ip", ipOK,
		"token", tokenOK,
		"signature", signatureOK,
	)

	if ipOK || tokenOK || signatureOK {
		return nil
	}

	logger.Warn("Webhook rejected", "source_ip", event.SourceIP)
	return goerr.Wrap(types.ErrAuthentication, "no authentication check passed",
		goerr.V("source_ip", event.SourceIP),
	)
}

// ParseAllowedIPs parses CIDR ranges; a bare address is treated as a single-host range
func ParseAllowedIPs(ranges []string) ([]netip.Prefix, error) {
	var prefixes []netip.Prefix
	for _, r := range ranges {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}

		if !strings.Contains(r, "/") {
			addr, err := netip.ParseAddr(r)
			if err != nil {
				return nil, goerr.Wrap(types.ErrInvalidConfig, "invalid allowed IP", goerr.V("value", r))
			}
			prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
			continue
		}

		prefix, err := netip.ParsePrefix(r)
		if err != nil {
			return nil, goerr.Wrap(types.ErrInvalidConfig, "invalid allowed CIDR", goerr.V("value", r))
		}
		prefixes = append(prefixes, prefix.Masked())
	}
	return prefixes, nil
}

func matchAllowedIP(sourceIP string, ranges []string) (bool, error) {
	prefixes, err := ParseAllowedIPs(ranges)
	if err != nil {
		return false, err
	}
	if len(prefixes) == 0 || sourceIP == "" {
		return false, nil
	}

	addr, err := netip.ParseAddr(sourceIP)
	if err != nil {
		return false, nil
	}
	addr = addr.Unmap()

	for _, p := range prefixes {
		if p.Contains(addr) {
			return true, nil
		}
	}
	return false, nil
}

func matchToken(event *model.InboundEvent, secrets []types.Secret) bool {
	for _, header := range []string{model.HeaderGitToken, model.HeaderGitlabToken} {
		value, ok := event.HeaderValue(header)
		if !ok || value == "" {
			continue
		}
		for _, secret := range secrets {
			if secret != "" && hmac.Equal([]byte(value), []byte(secret)) {
				return true
			}
		}
	}
	return false
}

func matchSignature(event *model.InboundEvent, secrets []types.Secret, useSHA256 bool) bool {
	signature, ok := event.HeaderValue(model.HeaderHubSignature)
	if !ok || signature == "" {
		return false
	}

	newHash := sha1.New
	if useSHA256 {
		newHash = sha256.New
	}

	// Remove "sha1=" or "sha256=" prefix if present
	if i := strings.Index(signature, "="); i >= 0 {
		signature = signature[i+1:]
	}

	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		if hmac.Equal([]byte(signature), []byte(computeHMAC(newHash, secret, event.RawBody))) {
			return true
		}
	}
	return false
}

func computeHMAC(newHash func() hash.Hash, secret types.Secret, payload []byte) string {
	mac := hmac.New(newHash, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
