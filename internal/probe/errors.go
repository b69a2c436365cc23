package probe

import (
	"errors"
	"syscall"

	"github.com/shirou/gopsutil/v4/process"
)

// ErrorClass buckets a probe error: transient per-process churn is
// expected and only worth an info-level log, while anything else should
// be surfaced more loudly.
type ErrorClass int

const (
	// ClassTransient covers AccessDenied, NoSuchProcess, and Zombie —
	// a process that came and went, or one WADES isn't privileged to
	// inspect. The affected record is skipped, not the whole snapshot.
	ClassTransient ErrorClass = iota
	// ClassUnknown covers anything Classify doesn't recognize.
	ClassUnknown
)

// Classify buckets err. gopsutil reports a vanished process as
// process.ErrorProcessNotRunning (wrapping the platform's "no such
// process" condition) or, on Linux, a raw syscall.ESRCH/EACCES bubbling up
// from a /proc read.
func Classify(err error) ErrorClass {
	if err == nil {
		return ClassUnknown
	}
	if errors.Is(err, process.ErrorProcessNotRunning) {
		return ClassTransient
	}
	if errors.Is(err, syscall.ESRCH) || errors.Is(err, syscall.EACCES) || errors.Is(err, syscall.EPERM) {
		return ClassTransient
	}
	return ClassUnknown
}

// IsTransient is a convenience wrapper around Classify.
func IsTransient(err error) bool {
	return Classify(err) == ClassTransient
}
