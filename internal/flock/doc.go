// Package flock provides cross-platform advisory file locking.
//
// The graph document store uses these locks to serialize whole-document
// writes across processes. Locks are exclusive and non-blocking; callers
// are expected to retry with their own timeout policy.
//
// Usage:
//
//	file, _ := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0600)
//	if err := flock.Exclusive(file.Fd()); err != nil {
//	    // Lock not acquired - document is in use
//	}
//	defer flock.Unlock(file.Fd())
package flock
