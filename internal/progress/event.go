package progress

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Stage denotes the milestone represented by an Event.
type Stage string

// Supported progress stages.
const (
	StageRunStart     Stage = "RUN_START"
	StageListingDone  Stage = "LISTING_DONE"
	StageProviderDone Stage = "PROVIDER_DONE"
	StageProviderFail Stage = "PROVIDER_FAILED"
	StageRunDone      Stage = "RUN_DONE"
	StageRunError     Stage = "RUN_ERROR"
)

// Event captures a single step of a sync run.
type Event struct {
	// RunID identifies the run using the 16-byte UUID form.
	RunID [16]byte
	// TS is the UTC timestamp recorded by the emitter.
	TS    time.Time
	Stage Stage
	// ProviderID is set on provider stages.
	ProviderID string
	URL        string
	// Done and Total describe how far the detail fan-out has progressed.
	Done  int
	Total int
	// Bytes is the size of the fetched page, when there was one.
	Bytes int64
	// Dur is the fetch time for provider stages and run time for run stages.
	Dur  time.Duration
	Note string
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.RunID == [16]byte{} {
		return errors.New("run id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Stage {
	case StageRunStart, StageListingDone, StageRunDone, StageRunError:
	case StageProviderDone, StageProviderFail:
		if e.ProviderID == "" {
			return fmt.Errorf("%s requires provider id", e.Stage)
		}
		if e.Total <= 0 || e.Done <= 0 || e.Done > e.Total {
			return fmt.Errorf("%s requires 0 < done <= total, got %d/%d", e.Stage, e.Done, e.Total)
		}
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	if e.Dur < 0 {
		return errors.New("duration must be >= 0")
	}
	return nil
}

// RunUUID converts the binary run ID to uuid.UUID.
func (e Event) RunUUID() uuid.UUID {
	return uuid.UUID(e.RunID)
}

// UUIDToBytes encodes a uuid.UUID into the Event form.
func UUIDToBytes(id uuid.UUID) [16]byte {
	var dest [16]byte
	copy(dest[:], id[:])
	return dest
}
