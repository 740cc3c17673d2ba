package model

// KeyObject is the object name of the encrypted deploy key in the key bucket
const KeyObject = "enc_key"

// BuildContext holds operational parameters passed through to the build
type BuildContext struct {
	KeyBucket    string
	OutputBucket string
	KeyObject    string
	ExcludeGit   bool
}

// BuildParameter is a named string parameter submitted to the build executor
type BuildParameter struct {
	Name  string
	Value string
}

// BuildHandle identifies a started build at the executor
type BuildHandle string

// BuildStatus is the raw status reported by the build executor
type BuildStatus string

const (
	BuildStatusSucceeded  BuildStatus = "SUCCEEDED"
	BuildStatusFailed     BuildStatus = "FAILED"
	BuildStatusFault      BuildStatus = "FAULT"
	BuildStatusStopped    BuildStatus = "STOPPED"
	BuildStatusTimedOut   BuildStatus = "TIMED_OUT"
	BuildStatusInProgress BuildStatus = "IN_PROGRESS"
)

// BuildPhase is the reduced state of a build as seen by the poller
type BuildPhase string

const (
	BuildPhasePending   BuildPhase = "PENDING"
	BuildPhaseSucceeded BuildPhase = "SUCCEEDED"
	BuildPhaseFailed    BuildPhase = "FAILED"
)

// Phase maps an executor status to a poller phase. Unknown statuses are pending.
func (s BuildStatus) Phase() BuildPhase {
	switch s {
	case BuildStatusSucceeded:
		return BuildPhaseSucceeded
	case BuildStatusFailed, BuildStatusFault, BuildStatusStopped, BuildStatusTimedOut:
		return BuildPhaseFailed
	default:
		return BuildPhasePending
	}
}

// ExportedVariable is a key/value output published by a finished build
type ExportedVariable struct {
	Name  string
	Value string
}

// BuildState is a snapshot of a build returned by the executor
type BuildState struct {
	Status            BuildStatus
	ExportedVariables []ExportedVariable
}

// LookupVariable returns the value of the first exported variable with the given name
func (s *BuildState) LookupVariable(name string) (string, bool) {
	for _, v := range s.ExportedVariables {
		if v.Name == name {
			return v.Value, true
		}
	}
	return "", false
}

// RevisionResult is the commit provenance of a successful build
type RevisionResult struct {
	Revision         string            `json:"revision"`
	ChangeIdentifier string            `json:"changeIdentifier"`
	RevisionSummary  string            `json:"revisionSummary"`
	OutputVariables  map[string]string `json:"outputVariables"`
}

// CompletionOutcome is how waiting for a build ended
type CompletionOutcome string

const (
	OutcomeSucceeded        CompletionOutcome = "succeeded"
	OutcomeBuildFailed      CompletionOutcome = "build_failed"
	OutcomeTimedOut         CompletionOutcome = "timed_out"
	OutcomeExtractionFailed CompletionOutcome = "extraction_failed"
)

// Completion is the result of polling a build. Revision is set only for OutcomeSucceeded.
type Completion struct {
	Outcome  CompletionOutcome
	Status   BuildStatus
	Attempts int
	Revision *RevisionResult
}

// Dispatch records a started build and the provenance it was started for
type Dispatch struct {
	Handle BuildHandle      `json:"build_id"`
	Triple ProvenanceTriple `json:"provenance"`
}
