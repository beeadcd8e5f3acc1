package session

import "github.com/jrsteele09/go-match-client/users"

// State is a snapshot of the process-wide session. Only Manager changes it.
type State struct {
	// IsLoading is true from process start until Initialize has finished.
	IsLoading bool

	// IsSignedIn is true only once credentials are stored and the profile has loaded.
	IsSignedIn bool

	// User is the cached profile of the signed-in user, nil when signed out.
	User *users.User
}

// Listener is called with every new State. It runs outside the manager's lock and may read the
// manager, but must not block.
type Listener func(State)
