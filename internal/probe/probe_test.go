package probe

import (
	"context"
	"errors"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/shirou/gopsutil/v4/process"
)

func TestClassifyTransientErrors(t *testing.T) {
	cases := []error{
		process.ErrorProcessNotRunning,
		syscall.ESRCH,
		syscall.EACCES,
		syscall.EPERM,
	}
	for _, err := range cases {
		if !IsTransient(err) {
			t.Errorf("expected %v to classify as transient", err)
		}
	}
}

func TestClassifyUnknownError(t *testing.T) {
	if IsTransient(errors.New("boom")) {
		t.Error("arbitrary error should not classify as transient")
	}
}

func TestNewEnforcesMinimumSettle(t *testing.T) {
	p := New(10*time.Millisecond, nil)
	if p.Settle != 100*time.Millisecond {
		t.Errorf("Settle = %v, want the 100ms floor", p.Settle)
	}
}

func TestNewKeepsLongerSettle(t *testing.T) {
	p := New(500*time.Millisecond, nil)
	if p.Settle != 500*time.Millisecond {
		t.Errorf("Settle = %v, want 500ms", p.Settle)
	}
}

type fakeExcluder map[int]struct{}

func (f fakeExcluder) IsOwnPID(pid int) bool {
	_, ok := f[pid]
	return ok
}

func TestProberExcludesOwnPIDs(t *testing.T) {
	// Takes a snapshot of the live system with the test binary's own PID
	// excluded and checks that no record for that PID comes back.
	self := os.Getpid()
	p := New(100*time.Millisecond, fakeExcluder{self: {}})
	snap, err := p.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.RetrievedAt.IsZero() {
		t.Error("expected a non-zero RetrievedAt")
	}
	for _, rec := range snap.Records {
		if int(rec.PID) == self {
			t.Errorf("snapshot contains excluded PID %d (%s)", self, rec.Name)
		}
	}
}
