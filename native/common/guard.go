package common

import "errors"

var (
	ErrModulePaused  = errors.New("module paused")
	ErrReentrantCall = errors.New("reentrant call")
)

// PauseView reports whether a named module is administratively paused.
type PauseView interface {
	IsPaused(module string) bool
}

// Guard aborts the caller with ErrModulePaused when the module is paused.
func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return ErrModulePaused
	}
	return nil
}

// CallLock is a call-in-progress flag guarding value-moving entry points
// against re-entrant invocation. Callers set the flag at entry and clear it at
// exit; a nested entry observes the flag and aborts.
type CallLock struct {
	inProgress bool
}

// Enter marks the lock as held. It fails with ErrReentrantCall if the lock is
// already held by an in-flight call.
func (l *CallLock) Enter() error {
	if l == nil {
		return nil
	}
	if l.inProgress {
		return ErrReentrantCall
	}
	l.inProgress = true
	return nil
}

// Exit clears the call-in-progress flag.
func (l *CallLock) Exit() {
	if l == nil {
		return
	}
	l.inProgress = false
}
