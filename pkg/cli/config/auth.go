package config

import (
	"github.com/m-mizutani/gitbridge/pkg/domain/types"
	"github.com/urfave/cli/v3"
)

// Auth holds webhook authentication configuration
type Auth struct {
	APISecrets []string
	AllowedIPs []string
	UseSHA256  bool
}

// Flags returns CLI flags for authentication configuration
func (c *Auth) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{
			Name:        "api-secrets",
			Usage:       "Shared secrets accepted as token or HMAC key (comma separated)",
			Destination: &c.APISecrets,
			Sources:     cli.EnvVars("GITBRIDGE_API_SECRETS"),
		},
		&cli.StringSliceFlag{
			Name:        "allowed-ips",
			Usage:       "Trusted source networks in CIDR notation (comma separated)",
			Destination: &c.AllowedIPs,
			Sources:     cli.EnvVars("GITBRIDGE_ALLOWED_IPS"),
		},
		&cli.BoolFlag{
			Name:        "use-sha256",
			Usage:       "Verify X-Hub-Signature with HMAC-SHA256 instead of HMAC-SHA1",
			Destination: &c.UseSHA256,
			Sources:     cli.EnvVars("GITBRIDGE_USE_SHA256"),
		},
	}
}

// Secrets returns the configured secrets as redactable values
func (c *Auth) Secrets() []types.Secret {
	secrets := make([]types.Secret, 0, len(c.APISecrets))
	for _, s := range c.APISecrets {
		if s != "" {
			secrets = append(secrets, types.Secret(s))
		}
	}
	return secrets
}
