package config

import (
	"github.com/m-mizutani/gitbridge/pkg/domain/model"
	"github.com/m-mizutani/gitbridge/pkg/domain/types"
)

// EventContext assembles the side context attached to every inbound event
func EventContext(auth *Auth, build *Build, archive *Archive) model.EventContext {
	return model.EventContext{
		KeyBucket:    build.KeyBucket,
		OutputBucket: build.OutputBucket,
		PublicKey:    build.PublicKey,
		AllowedIPs:   auth.AllowedIPs,
		APISecrets:   auth.Secrets(),
		UseSHA256:    auth.UseSHA256,
		GitToken:     types.Secret(archive.GitToken),
		OAuthKey:     archive.OAuthKey,
		OAuthSecret:  types.Secret(archive.OAuthSecret),
	}
}
