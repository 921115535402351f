// Package checkpoint implements the Checkpoint Simulator (§4.I): the
// Smart Checkpointing protocol that simulates a spot interruption,
// migration to a neighbor AZ, and job resumption with zero progress
// loss.
package checkpoint

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/nerve-engine/nerve/internal/cache"
	"github.com/nerve-engine/nerve/internal/catalog"
	"github.com/nerve-engine/nerve/internal/domain"
	"github.com/nerve-engine/nerve/internal/stats"
)

// s3UploadGBps is the assumed average intra-region S3 upload throughput
// used to size the checkpoint-upload step of the timeline.
const s3UploadGBps = 1.2

// Simulator runs the interruption/migration protocol and records the
// resulting checkpoint and eviction counts in the stats store, and
// publishes the two protocol events to the cache's event bus.
type Simulator struct {
	store      *cache.Store
	statsStore *stats.Store
}

// New constructs a Simulator bound to store and statsStore.
func New(store *cache.Store, statsStore *stats.Store) *Simulator {
	return &Simulator{store: store, statsStore: statsStore}
}

// Simulate runs the full §4.I protocol for req and returns the resulting
// CheckpointEvent, including the exact seven-step fixed timeline.
func (s *Simulator) Simulate(req domain.CheckpointSimulateRequest) domain.CheckpointEvent {
	targetAZ := catalog.NeighborAZ(req.CurrentAZ)

	checkpointSizeGB := req.ModelSizeGB * 0.8
	uploadDurationSec := checkpointSizeGB / s3UploadGBps

	timeline := []domain.TimelineEntry{
		{OffsetSec: 0.0, Event: "Spot Interruption Notice received (cloud metadata endpoint)"},
		{OffsetSec: 1.5, Event: "NERVE signals the training process: checkpoint save triggered"},
		{OffsetSec: round2(1.5 + uploadDurationSec), Event: formatUploadEvent(checkpointSizeGB)},
		{OffsetSec: round2(2.0 + uploadDurationSec), Event: "node cordoned — " + req.CurrentAZ + " condemned"},
		{OffsetSec: round2(25.0 + uploadDurationSec), Event: "new spot GPU provisioned in " + targetAZ},
		{OffsetSec: round2(35.0 + uploadDurationSec), Event: "checkpoint downloaded from object storage, state restored"},
		{OffsetSec: round2(40.0 + uploadDurationSec), Event: formatResumeEvent(req.EpochProgressPct)},
	}

	s.statsStore.RecordCheckpoint()
	s.statsStore.RecordEviction()

	event := domain.CheckpointEvent{
		JobID:             req.JobID,
		Status:            "migrated",
		CheckpointSaved:   true,
		CheckpointSizeGB:  round2(checkpointSizeGB),
		SaveDurationSec:   round2(uploadDurationSec),
		FromAZ:            req.CurrentAZ,
		ToAZ:              targetAZ,
		DowntimeMs:        0,
		EpochProgressPct:  req.EpochProgressPct,
		Resumed:           true,
		Timeline:          timeline,
	}

	now := time.Now().UTC()
	s.store.Publish(domain.Event{
		Type:      domain.EventCheckpoint,
		Timestamp: now,
		Fields: map[string]interface{}{
			"job_id": req.JobID,
			"status": "saved",
			"az":     req.CurrentAZ,
		},
	})
	s.store.Publish(domain.Event{
		Type:      domain.EventMigrationComplete,
		Timestamp: now,
		Fields: map[string]interface{}{
			"job_id":      req.JobID,
			"from_az":     req.CurrentAZ,
			"to_az":       targetAZ,
			"downtime_ms": 0,
		},
	})

	return event
}

func formatUploadEvent(sizeGB float64) string {
	return fmt.Sprintf("checkpoint uploaded to object storage (%s GB)", trimmed(sizeGB))
}

func formatResumeEvent(epochPct float64) string {
	return fmt.Sprintf("training resumed at %s%% — zero progress lost", trimmed(epochPct))
}

// trimmed formats v to one decimal place, dropping a trailing ".0".
func trimmed(v float64) string {
	return strconv.FormatFloat(math.Round(v*10)/10, 'f', -1, 64)
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
