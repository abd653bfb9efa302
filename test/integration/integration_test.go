//go:build integration

package integration

import (
	"context"
	"fmt"
	"testing"
	"time"

	beamformer "github.com/ehrlich-b/beamformer-shm"
	"github.com/ehrlich-b/beamformer-shm/internal/lock"
	"github.com/ehrlich-b/beamformer-shm/internal/wire"
)

func testRegionName(t *testing.T) string {
	return fmt.Sprintf("/beamformer_integration_test_%d", time.Now().UnixNano())
}

// TestFullDispatchRoundTrip exercises the real shmregion + server +
// client stack end-to-end: attach, set parameters, dispatch, and wait
// for the server to hand the item to the compute backend. Only the
// compute backend is a mock (MockCompute).
func TestFullDispatchRoundTrip(t *testing.T) {
	compute := beamformer.NewMockCompute()
	compute.SetExportData(wire.ExportKindBeamformedData, make([]byte, 4096))

	regionName := testRegionName(t)
	params := beamformer.InstanceParams{Compute: compute, RegionName: regionName, PollInterval: time.Millisecond}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	instance, err := beamformer.CreateAndServe(ctx, params, nil)
	if err != nil {
		t.Fatalf("CreateAndServe failed: %v", err)
	}
	defer beamformer.StopAndDelete(context.Background(), instance)

	client, err := beamformer.NewClient(regionName, time.Second)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	defer client.Detach()

	if err := client.SetParameters(0, wire.Parameters{SpeedOfSoundMPerS: 1540}); err != nil {
		t.Fatalf("SetParameters failed: %v", err)
	}

	if err := client.DispatchIndirect(0, 0); err != nil {
		t.Fatalf("DispatchIndirect failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if compute.CallCounts()["dispatch"] > 0 {
			break
		}
		time.Sleep(time.Millisecond)
	}
	if compute.CallCounts()["dispatch"] == 0 {
		t.Fatal("server never dispatched the queued work item")
	}
}

// TestReserveParameterBlocksMovesScratchStart exercises growing
// reserved_parameter_blocks and confirms the scratch arena start moves
// (the arena shrinks) and a block beyond the original reservation
// becomes addressable afterward.
func TestReserveParameterBlocksMovesScratchStart(t *testing.T) {
	compute := beamformer.NewMockCompute()
	regionName := testRegionName(t)
	params := beamformer.InstanceParams{Compute: compute, RegionName: regionName, PollInterval: time.Millisecond}

	instance, err := beamformer.CreateAndServe(context.Background(), params, nil)
	if err != nil {
		t.Fatalf("CreateAndServe failed: %v", err)
	}
	defer beamformer.StopAndDelete(context.Background(), instance)

	client, err := beamformer.NewClient(regionName, time.Second)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	defer client.Detach()

	if err := client.SetParameters(1, wire.Parameters{}); err == nil {
		t.Fatal("expected SetParameters on unreserved block 1 to fail before reservation")
	}

	scratchBefore := len(instance.Region().Scratch())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.ReserveParameterBlocks(ctx, 2); err != nil {
		t.Fatalf("ReserveParameterBlocks failed: %v", err)
	}

	if scratchAfter := len(instance.Region().Scratch()); scratchAfter >= scratchBefore {
		t.Fatalf("expected scratch arena to shrink after reserving block 1: %d -> %d", scratchBefore, scratchAfter)
	}

	if err := client.SetParameters(1, wire.Parameters{SpeedOfSoundMPerS: 1500}); err != nil {
		t.Fatalf("SetParameters on newly reserved block 1 failed: %v", err)
	}
}

// TestUploadRFLockHeldUntilServerProcesses confirms the UploadRF lock
// stays held after the client's call returns (the server, not the
// client, performs the release once the queued item is processed).
func TestUploadRFLockHeldUntilServerProcesses(t *testing.T) {
	compute := beamformer.NewMockCompute()
	regionName := testRegionName(t)
	// A long poll interval keeps the server from draining the queue
	// before the assertion below observes the lock still held.
	params := beamformer.InstanceParams{Compute: compute, RegionName: regionName, PollInterval: time.Second}

	instance, err := beamformer.CreateAndServe(context.Background(), params, nil)
	if err != nil {
		t.Fatalf("CreateAndServe failed: %v", err)
	}
	defer beamformer.StopAndDelete(context.Background(), instance)

	client, err := beamformer.NewClient(regionName, time.Second)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	defer client.Detach()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.UploadRF(ctx, []byte{1, 2, 3, 4}); err != nil {
		t.Fatalf("UploadRF failed: %v", err)
	}

	word := lock.FromPointer(&instance.Region().Header().Locks[wire.LockUploadRF])
	if !word.Peek() {
		t.Fatal("expected UploadRF lock to still be held immediately after UploadRF returns")
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) && word.Peek() {
		time.Sleep(10 * time.Millisecond)
	}
	if word.Peek() {
		t.Fatal("server never released the UploadRF lock after processing the work item")
	}
}

// TestVersionMismatchRejected attaches with a stale header version and
// expects NewClient to refuse the region.
func TestVersionMismatchRejected(t *testing.T) {
	compute := beamformer.NewMockCompute()
	regionName := testRegionName(t)
	params := beamformer.InstanceParams{Compute: compute, RegionName: regionName, PollInterval: time.Millisecond}

	instance, err := beamformer.CreateAndServe(context.Background(), params, nil)
	if err != nil {
		t.Fatalf("CreateAndServe failed: %v", err)
	}
	defer beamformer.StopAndDelete(context.Background(), instance)

	instance.Region().Header().Version = beamformer.SharedMemoryVersion + 1

	if _, err := beamformer.NewClient(regionName, time.Second); err == nil {
		t.Fatal("expected version mismatch error")
	} else if !beamformer.IsCode(err, beamformer.ErrCodeVersionMismatch) {
		t.Errorf("expected ErrCodeVersionMismatch, got %v", err)
	}
}
