// Package state keeps the client's view of the server as an explicit
// state-transition function paired with a dispatcher that holds the single
// current state behind a narrow read/update interface.
package state

import (
	"sync"

	"musicbox/client/internal/protocol"
)

// Action is one state transition input.
type Action interface {
	isAction()
}

// StateReplaced swaps in a freshly fetched AppState.
type StateReplaced struct {
	State protocol.AppState
}

// EventApplied folds a pushed event into the current state.
type EventApplied struct {
	Event protocol.Event
}

// VolumeSet records a local volume reading.
type VolumeSet struct {
	Volume float64
}

func (StateReplaced) isAction() {}
func (EventApplied) isAction()  {}
func (VolumeSet) isAction()     {}

// Reduce returns the state after applying a. The input is never mutated;
// any play-state change happens on a copy.
func Reduce(s protocol.AppState, a Action) protocol.AppState {
	switch a := a.(type) {
	case StateReplaced:
		return a.State

	case VolumeSet:
		s.Volume = a.Volume
		return s

	case EventApplied:
		return applyEvent(s, a.Event)

	default:
		return s
	}
}

func applyEvent(s protocol.AppState, ev protocol.Event) protocol.AppState {
	switch ev.Type {
	case protocol.EvPlaybackStarted:
		ps := playStateCopy(s.PlayState)
		ps.Paused = false
		s.PlayState = &ps

	case protocol.EvPlaybackPaused:
		if s.PlayState != nil {
			ps := *s.PlayState
			ps.Paused = true
			s.PlayState = &ps
		}

	case protocol.EvPlaybackUnpaused:
		if s.PlayState != nil {
			ps := *s.PlayState
			ps.Paused = false
			s.PlayState = &ps
		}

	case protocol.EvPlaybackPosition:
		ps := playStateCopy(s.PlayState)
		ps.Duration = ev.Duration
		s.PlayState = &ps

	case protocol.EvPlaybackEnded, protocol.EvShutdown:
		s.PlayState = nil

	case protocol.EvPlaylistUpdated:
		// Only a hint that the playlist changed server-side; the caller
		// refetches state to see the new contents.
	}
	return s
}

func playStateCopy(ps *protocol.PlayState) protocol.PlayState {
	if ps == nil {
		return protocol.PlayState{}
	}
	return *ps
}

// Store holds the single current state.
type Store struct {
	mu    sync.RWMutex
	state protocol.AppState
}

func NewStore(initial protocol.AppState) *Store {
	return &Store{state: initial}
}

// Dispatch applies a and returns the resulting state.
func (st *Store) Dispatch(a Action) protocol.AppState {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.state = Reduce(st.state, a)
	return st.state
}

// Snapshot returns the current state.
func (st *Store) Snapshot() protocol.AppState {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.state
}
