// Package connection tracks what a page knows about the wallet host and the
// two snaps it drives, and performs the page's connect and invoke actions.
package connection

import "git.home.luguber.info/inful/snapbridge/internal/snap"

// State is the page-scoped view of the host. The zero value is the initial state.
type State struct {
	FlaskDetected    bool
	InstalledState   *snap.Descriptor
	InstalledEncrypt *snap.Descriptor
	Err              error
}

// Action is a state transition. The set is closed; see the Set* types.
type Action interface {
	action()
}

// SetFlaskDetected overwrites FlaskDetected.
type SetFlaskDetected struct{ Detected bool }

// SetInstalledState overwrites InstalledState. A nil Snap means not installed.
type SetInstalledState struct{ Snap *snap.Descriptor }

// SetInstalledEncrypt overwrites InstalledEncrypt. A nil Snap means not installed.
type SetInstalledEncrypt struct{ Snap *snap.Descriptor }

// SetError overwrites Err. A nil Err clears it.
type SetError struct{ Err error }

func (SetFlaskDetected) action()    {}
func (SetInstalledState) action()   {}
func (SetInstalledEncrypt) action() {}
func (SetError) action()            {}

// Reduce applies a to s and returns the new state. Unknown actions return s unchanged.
func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case SetFlaskDetected:
		s.FlaskDetected = a.Detected
	case SetInstalledState:
		s.InstalledState = a.Snap
	case SetInstalledEncrypt:
		s.InstalledEncrypt = a.Snap
	case SetError:
		s.Err = a.Err
	}
	return s
}
