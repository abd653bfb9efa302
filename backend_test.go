package beamformer

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func testRegionName(t *testing.T) string {
	return fmt.Sprintf("/beamformer_backend_test_%d", time.Now().UnixNano())
}

func TestDefaultParams(t *testing.T) {
	compute := NewMockCompute()
	params := DefaultParams(compute)

	if params.Compute != compute {
		t.Error("Compute not set correctly")
	}
	if params.RegionName != DefaultRegionName {
		t.Errorf("RegionName = %s, want %s", params.RegionName, DefaultRegionName)
	}
}

func TestCreateAndServeLifecycle(t *testing.T) {
	compute := NewMockCompute()
	params := InstanceParams{Compute: compute, RegionName: testRegionName(t), PollInterval: time.Millisecond}

	instance, err := CreateAndServe(context.Background(), params, nil)
	if err != nil {
		t.Fatalf("CreateAndServe failed: %v", err)
	}

	if !instance.IsRunning() {
		t.Error("instance should be running immediately after CreateAndServe")
	}
	if instance.State() != InstanceStateRunning {
		t.Errorf("State() = %s, want %s", instance.State(), InstanceStateRunning)
	}

	if err := StopAndDelete(context.Background(), instance); err != nil {
		t.Fatalf("StopAndDelete failed: %v", err)
	}

	if instance.IsRunning() {
		t.Error("instance should not be running after StopAndDelete")
	}
	if !compute.IsClosed() {
		t.Error("compute backend should be closed after StopAndDelete")
	}
}

func TestCreateAndServeRequiresCompute(t *testing.T) {
	params := InstanceParams{RegionName: testRegionName(t)}
	if _, err := CreateAndServe(context.Background(), params, nil); err == nil {
		t.Error("expected error when Compute is nil")
	}
}

func TestStopAndDeleteNilInstance(t *testing.T) {
	if err := StopAndDelete(context.Background(), nil); err == nil {
		t.Error("expected error for nil instance")
	}
}

func TestInstanceStateNilReceiver(t *testing.T) {
	var instance *Instance
	if instance.State() != InstanceStateStopped {
		t.Error("nil instance should be in stopped state")
	}
	if instance.IsRunning() {
		t.Error("nil instance should not be running")
	}
	if instance.Metrics() != nil {
		t.Error("nil instance should have nil metrics")
	}
}

func TestInstanceMetricsSnapshot(t *testing.T) {
	compute := NewMockCompute()
	params := InstanceParams{Compute: compute, RegionName: testRegionName(t), PollInterval: time.Millisecond}

	instance, err := CreateAndServe(context.Background(), params, nil)
	if err != nil {
		t.Fatalf("CreateAndServe failed: %v", err)
	}
	defer StopAndDelete(context.Background(), instance)

	snap := instance.MetricsSnapshot()
	if snap.TotalOps != 0 {
		t.Errorf("expected 0 initial ops, got %d", snap.TotalOps)
	}
}
