package model

import "github.com/m-mizutani/goerr/v2"

// ProvenanceTriple identifies what to build: repository, ref and clone URL
type ProvenanceTriple struct {
	RepositoryName string `json:"repository_name"`
	Ref            string `json:"ref"` // branch name, "tags/<name>" or "<repo>/release" pseudo branch
	CloneURL       string `json:"clone_url"`
}

// Validate checks that every dimension of the triple is present
func (t *ProvenanceTriple) Validate() error {
	switch {
	case t.RepositoryName == "":
		return goerr.New("repository name is empty")
	case t.Ref == "":
		return goerr.New("ref is empty", goerr.V("repository", t.RepositoryName))
	case t.CloneURL == "":
		return goerr.New("clone URL is empty", goerr.V("repository", t.RepositoryName))
	}
	return nil
}
