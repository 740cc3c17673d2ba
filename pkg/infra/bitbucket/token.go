package bitbucket

import (
	"context"
	"fmt"
	"net/http"

	"github.com/m-mizutani/gitbridge/pkg/domain/types"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// DefaultTokenURL is the Bitbucket Cloud OAuth2 token endpoint
const DefaultTokenURL = "https://bitbucket.org/site/oauth2/access_token"

// TokenIssuer exchanges an OAuth consumer key and secret for an access token
type TokenIssuer struct {
	tokenURL   string
	httpClient *http.Client
}

// Option configures TokenIssuer
type Option func(*TokenIssuer)

// WithTokenURL overrides the token endpoint
func WithTokenURL(u string) Option {
	return func(i *TokenIssuer) {
		if u != "" {
			i.tokenURL = u
		}
	}
}

// WithHTTPClient sets the HTTP client used for the token request
func WithHTTPClient(c *http.Client) Option {
	return func(i *TokenIssuer) {
		i.httpClient = c
	}
}

// NewTokenIssuer creates a client credentials token issuer
func NewTokenIssuer(opts ...Option) *TokenIssuer {
	i := &TokenIssuer{tokenURL: DefaultTokenURL}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// IssueToken runs the client credentials grant and returns the access token
func (i *TokenIssuer) IssueToken(ctx context.Context, clientID string, clientSecret types.Secret) (string, error) {
	if clientID == "" || clientSecret == "" {
		return "", fmt.Errorf("oauth key and secret are required")
	}

	cfg := clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: string(clientSecret),
		TokenURL:     i.tokenURL,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}

	if i.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, i.httpClient)
	}

	token, err := cfg.Token(ctx)
	if err != nil {
		return "", fmt.Errorf("could not get OAuth token: %w", err)
	}
	return token.AccessToken, nil
}
