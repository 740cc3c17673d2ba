package model

import (
	"fmt"
	"net/http"
	"net/url"
)

// HostFlavor is the git hosting product that sent a webhook
type HostFlavor string

const (
	HostFlavorGeneric          HostFlavor = "generic"
	HostFlavorGitHub           HostFlavor = "github"
	HostFlavorGitHubEnterprise HostFlavor = "github_enterprise"
	HostFlavorGitLab           HostFlavor = "gitlab"
	HostFlavorBitbucket        HostFlavor = "bitbucket"
	HostFlavorTFS              HostFlavor = "tfs"
)

// ArchiveSpec describes where to download a code archive and where to publish it
type ArchiveSpec struct {
	Flavor     HostFlavor
	ArchiveURL string
	Query      url.Values  // may carry credentials
	Header     http.Header // may carry credentials
	Owner      string
	Name       string
	Branch     string
}

// ObjectKey returns the object key of the normalized archive
func (s *ArchiveSpec) ObjectKey() string {
	return fmt.Sprintf("%s/%s/%s/%s.zip", s.Owner, s.Name, s.Branch, s.Name)
}

// RedactedURL returns the archive URL without query string and user info
func (s *ArchiveSpec) RedactedURL() string {
	u, err := url.Parse(s.ArchiveURL)
	if err != nil {
		return "(unparsable url)"
	}
	u.RawQuery = ""
	u.User = nil
	return u.String()
}
