// Package core defines the wire-level vocabulary shared by every other
// package in this module: result codes, target and project states, and
// the Target/Database entities the store, validators and handlers all
// operate on.
package core

import "time"

// ResultCode is a wire-level identifier returned in every JSON response
// body, distinct from the HTTP status code used to transport it.
type ResultCode string

// The exact result-code strings the mocked service emits.
const (
	ResultSuccess                ResultCode = "Success"
	ResultTargetCreated          ResultCode = "TargetCreated"
	ResultAuthenticationFailure  ResultCode = "AuthenticationFailure"
	ResultRequestTimeTooSkewed   ResultCode = "RequestTimeTooSkewed"
	ResultTargetNameExist        ResultCode = "TargetNameExist"
	ResultUnknownTarget          ResultCode = "UnknownTarget"
	ResultBadImage               ResultCode = "BadImage"
	ResultImageTooLarge          ResultCode = "ImageTooLarge"
	ResultMetadataTooLarge       ResultCode = "MetadataTooLarge"
	ResultDateRangeError         ResultCode = "DateRangeError"
	ResultFail                   ResultCode = "Fail"
	ResultTargetStatusProcessing ResultCode = "TargetStatusProcessing"
	ResultTargetStatusNotSuccess ResultCode = "TargetStatusNotSuccess"
	ResultProjectInactive        ResultCode = "ProjectInactive"
	ResultInactiveProject        ResultCode = "InactiveProject"
	ResultMalformedRequest       ResultCode = "MalformedRequest"
)

// TargetStatus is the derived lifecycle state of a Target.
type TargetStatus string

const (
	StatusProcessing TargetStatus = "processing"
	StatusSuccess    TargetStatus = "success"
	StatusFailed     TargetStatus = "failed"
)

// ProjectState controls whether a Database accepts traffic.
type ProjectState string

const (
	ProjectStateWorking  ProjectState = "working"
	ProjectStateInactive ProjectState = "inactive"
)

// Target is a registered image plus metadata, intended to be recognized
// later by the query engine. The identifier is stable across all
// updates; status is never stored directly, it is derived on read by
// Status.
type Target struct {
	ID                    string
	Name                  string
	Width                 float64
	Image                 []byte
	ActiveFlag            bool
	ApplicationMetadata   []byte // decoded bytes, nil if absent
	CreatedAt             time.Time
	LastModified          time.Time
	DeletedAt             *time.Time
	ProcessingTimeSeconds float64
	RecoRating            int

	imageDecodable bool
	resolved       bool
}

// SetDecodeResult records whether the target's current image decoded
// successfully, and marks the target as resolved for this processing
// cycle. Called once per processing cycle by the store.
func (t *Target) SetDecodeResult(decodable bool) {
	t.imageDecodable = decodable
	t.resolved = true
}

// ImageDecodable reports whether the target's stored image decoded as a
// valid PNG or JPEG the last time it was processed.
func (t *Target) ImageDecodable() bool {
	return t.imageDecodable
}

// Resolved reports whether SetDecodeResult has already run for the
// target's current image. The store uses this to invoke the rater at
// most once per image per processing cycle.
func (t *Target) Resolved() bool {
	return t.resolved
}

// ResetResolution clears the resolved/decodable/rating state, called by
// the store when a target's image is replaced and it re-enters
// processing.
func (t *Target) ResetResolution() {
	t.resolved = false
	t.imageDecodable = false
	t.RecoRating = -1
}

// Status derives the target's lifecycle state at instant now. It
// assumes the store has already resolved the target's
// decode/rating outcome for the current processing cycle (via
// SetDecodeResult) if the processing window has elapsed; callers that
// build a Target by hand must call SetDecodeResult themselves before
// relying on Status once the window has passed.
func (t *Target) Status(now time.Time) TargetStatus {
	if t.processing(now) {
		return StatusProcessing
	}
	if t.imageDecodable && t.RecoRating >= 0 {
		return StatusSuccess
	}
	return StatusFailed
}

// processing reports whether the target is still within its simulated
// processing window at instant now.
func (t *Target) processing(now time.Time) bool {
	elapsed := now.Sub(t.LastModified)
	return elapsed < time.Duration(t.ProcessingTimeSeconds*float64(time.Second))
}

// ManagementDeleted reports whether the target-management API should
// already report this target as UnknownTarget: true from the instant
// DeletedAt is set, with no grace window.
func (t *Target) ManagementDeleted() bool {
	return t.DeletedAt != nil
}

// DeletionPhase classifies a deleted target's query-time visibility.
type DeletionPhase int

const (
	// NotDeleted means DeletedAt is nil.
	NotDeleted DeletionPhase = iota
	// RecognitionWindow means the deletion has not yet been "noticed" by
	// the query engine: the target still matches as if it were live.
	RecognitionWindow
	// ProcessingWindow means the deletion is being "noticed": queries
	// that would otherwise match this target instead report a 500.
	ProcessingWindow
	// Expired means both windows have elapsed; the target is invisible
	// to queries.
	Expired
)

// Phase classifies the target's deletion state relative to the query
// engine's two time windows.
func (t *Target) Phase(now time.Time, recognitionWindow, processingWindow time.Duration) DeletionPhase {
	if t.DeletedAt == nil {
		return NotDeleted
	}
	since := now.Sub(*t.DeletedAt)
	switch {
	case since < recognitionWindow:
		return RecognitionWindow
	case since < recognitionWindow+processingWindow:
		return ProcessingWindow
	default:
		return Expired
	}
}

// Database is a named tenant holding targets and the four VWS/VWQ
// credentials. The four keys are unique across all databases in a
// Store.
type Database struct {
	Name            string
	ServerAccessKey string
	ServerSecretKey string
	ClientAccessKey string
	ClientSecretKey string
	State           ProjectState
	Targets         []*Target

	// ProcessingTimeSeconds is the simulated processing duration every
	// target created through the live VWS create/update endpoints
	// inherits. Targets installed directly through the admin fixture
	// seam may override it per-target.
	ProcessingTimeSeconds float64
}

// DefaultProcessingTimeSeconds is used when a Database is constructed
// without an explicit ProcessingTimeSeconds.
const DefaultProcessingTimeSeconds = 0.5

// FindByName returns the target with the given name, if any.
func (d *Database) FindByName(name string) *Target {
	for _, t := range d.Targets {
		if t.Name == name {
			return t
		}
	}
	return nil
}

// FindByID returns the target with the given identifier, if any.
func (d *Database) FindByID(id string) *Target {
	for _, t := range d.Targets {
		if t.ID == id {
			return t
		}
	}
	return nil
}
