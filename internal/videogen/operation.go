package videogen

import "context"

// OperationHandle identifies a long-running job on the remote service. The
// value is opaque to the client: every poll must send back exactly the handle
// most recently returned by the service, which may rotate it between polls.
type OperationHandle struct {
	Name string
}

// ArtifactRef points at one produced video. The URI requires the API key to
// be appended before it can be fetched.
type ArtifactRef struct {
	URI   string
	Index int
	MIME  string
}

// OperationStatus is a point-in-time snapshot of a job. Artifacts are only
// populated once Done is true and the job succeeded; their order matches the
// index assigned by the service.
type OperationStatus struct {
	Done      bool
	Handle    OperationHandle
	Artifacts []ArtifactRef
}

// Submitter starts a remote video job.
type Submitter interface {
	SubmitVideo(ctx context.Context, req GenerationRequest) (OperationHandle, error)
}

// StatusPoller reports the current state of a job. Implementations return the
// handle to use for the next poll inside the status.
type StatusPoller interface {
	PollOperation(ctx context.Context, handle OperationHandle) (OperationStatus, error)
}

// Downloader retrieves the bytes behind an artifact URI, returning the
// payload and its MIME type.
type Downloader interface {
	Download(ctx context.Context, uri string) ([]byte, string, error)
}
