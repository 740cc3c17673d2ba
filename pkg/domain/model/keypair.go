package model

// KeyRequestType is the lifecycle event of the deploy key resource
type KeyRequestType string

const (
	KeyRequestCreate KeyRequestType = "Create"
	KeyRequestUpdate KeyRequestType = "Update"
	KeyRequestDelete KeyRequestType = "Delete"
)

// KeyRequest asks to provision (or keep) the deploy key
type KeyRequest struct {
	Type              KeyRequestType
	KeyID             string
	KeyBucket         string
	Region            string // region of the KMS key; empty uses the client default
	PreviousPublicKey string // returned unchanged for non-create requests
}
