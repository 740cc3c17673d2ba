package config

import "github.com/urfave/cli/v3"

// Server holds server configuration
type Server struct {
	Addr              string
	TrustProxyHeaders bool
	AsyncCompletion   bool
}

// Flags returns CLI flags for server configuration
func (c *Server) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "Server address",
			Value:       "localhost:8080",
			Destination: &c.Addr,
			Sources:     cli.EnvVars("GITBRIDGE_ADDR"),
		},
		&cli.BoolFlag{
			Name:        "trust-proxy-headers",
			Usage:       "Take the source IP from X-Forwarded-For / X-Real-IP",
			Destination: &c.TrustProxyHeaders,
			Sources:     cli.EnvVars("GITBRIDGE_TRUST_PROXY_HEADERS"),
		},
		&cli.BoolFlag{
			Name:        "async-completion",
			Usage:       "Respond 202 after dispatch and poll the build in background",
			Destination: &c.AsyncCompletion,
			Sources:     cli.EnvVars("GITBRIDGE_ASYNC_COMPLETION"),
		},
	}
}
