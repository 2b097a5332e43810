//go:build unix

package flock

import "syscall"

// Exclusive takes an exclusive advisory lock on the open graph document
// without blocking. A second process holding the lock surfaces as an
// immediate error, never as a wait.
func Exclusive(fd uintptr) error {
	return syscall.Flock(int(fd), syscall.LOCK_EX|syscall.LOCK_NB)
}

// Unlock releases a lock taken by Exclusive.
func Unlock(fd uintptr) error {
	return syscall.Flock(int(fd), syscall.LOCK_UN)
}
