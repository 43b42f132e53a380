package session

import (
	"github.com/x7dl8p/novel-reader/internal/backend"
)

// Msg is the result of a Cmd, fed back to Controller.Handle on the event loop.
type Msg any

// Cmd is a unit of work that may block. Frontends run it off the event loop
// and pass the returned Msg to Controller.Handle. A nil Cmd does nothing; a
// Cmd may return a nil Msg, which Handle ignores.
type Cmd func() Msg

// LoadedMsg reports the end of a load started by OpenFile.
type LoadedMsg struct {
	Generation uint64
	Backend    backend.Backend
	Name       string
	Result     backend.LoadResult
	Err        error
}

// NavigatedMsg reports the end of a queued navigation.
type NavigatedMsg struct {
	Generation uint64
	Err        error
}

// MovedMsg reports that the backend moved its cursor on its own.
type MovedMsg struct {
	Generation uint64
}

// FontMsg reports the end of a LoadFont.
type FontMsg struct {
	Generation uint64
	Family     string
	URL        string
	Err        error
}
