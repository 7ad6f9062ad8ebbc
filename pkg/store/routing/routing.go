// Package routing implements the routing-config store (component F): a
// persistent per-user routing configuration, each entry tagged dirty or
// clean so the rebuild controller knows which users need their move
// requests recomputed.
package routing

import (
	"encoding/json"

	"github.com/menmos/menmosd/pkg/kv"
	"github.com/menmos/menmosd/pkg/types"
)

// Store is the routing-config store.
type Store struct {
	configs kv.Tree // username -> serialized RoutingConfigState
}

// New wraps configs as a routing-config store.
func New(configs kv.Tree) *Store {
	return &Store{configs: configs}
}

// Get returns username's routing configuration, if any.
func (s *Store) Get(username string) (*types.RoutingConfigState, error) {
	raw, err := s.configs.Get([]byte(username))
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	var state types.RoutingConfigState
	if err := json.Unmarshal(raw, &state); err != nil {
		panic("routing: corrupt routing config for user " + username + ": " + err.Error())
	}
	return &state, nil
}

// Set stores cfg for username, always marking it Dirty: any write to a
// user's routing configuration requires the rebuild controller to
// recompute that user's move requests.
func (s *Store) Set(username string, cfg types.RoutingConfig) error {
	state := types.RoutingConfigState{Config: cfg, State: types.RoutingDirty}
	raw, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return s.configs.Put([]byte(username), raw)
}

// MarkClean flips username's state to Clean after its move requests have
// been recomputed. No-op if the user has no configuration.
func (s *Store) MarkClean(username string) error {
	state, err := s.Get(username)
	if err != nil {
		return err
	}
	if state == nil {
		return nil
	}
	state.State = types.RoutingClean
	raw, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return s.configs.Put([]byte(username), raw)
}

// Delete removes username's routing configuration.
func (s *Store) Delete(username string) error {
	return s.configs.Delete([]byte(username))
}

// Iter calls fn for every (username, state) pair.
func (s *Store) Iter(fn func(username string, state types.RoutingConfigState) error) error {
	return s.configs.ForEach(func(k, v []byte) error {
		var state types.RoutingConfigState
		if err := json.Unmarshal(v, &state); err != nil {
			panic("routing: corrupt routing config for user " + string(k) + ": " + err.Error())
		}
		return fn(string(k), state)
	})
}

// Flush is a no-op; bbolt commits every Set/MarkClean durably as it
// happens.
func (s *Store) Flush() error {
	return nil
}

// Clear removes every routing configuration.
func (s *Store) Clear() error {
	return s.configs.Clear()
}
