package observer

import (
	"os"
	"testing"
)

func TestNewTracker(t *testing.T) {
	tracker := NewTracker()
	if tracker.SelfPID() != os.Getpid() {
		t.Errorf("SelfPID() = %d, want %d", tracker.SelfPID(), os.Getpid())
	}
}

func TestTrackerIsOwnPID(t *testing.T) {
	tracker := NewTracker()
	if !tracker.IsOwnPID(tracker.SelfPID()) {
		t.Error("self PID should be own")
	}
	if tracker.IsOwnPID(99999) {
		t.Error("unknown PID should not be own")
	}
}
