package agent

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// State is the agent's persisted login identity. It survives restarts so
// an employee signs in once and the agent keeps syncing under that
// identity until it is replaced.
type State struct {
	Token      string `json:"token"`
	EmployeeID string `json:"employee_id"`
	CompanyID  string `json:"company_id"`
	Email      string `json:"email"`
}

func statePath(dir string) string {
	return filepath.Join(dir, "state.json")
}

// LoadState reads the persisted identity; a missing file returns an empty
// state, not an error.
func LoadState(dir string) (*State, error) {
	data, err := os.ReadFile(statePath(dir))
	if os.IsNotExist(err) {
		return &State{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read agent state: %w", err)
	}
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse agent state: %w", err)
	}
	return &s, nil
}

// SaveState writes the identity with owner-only permissions; the token is
// a bearer credential.
func SaveState(dir string, s *State) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(statePath(dir), data, 0o600); err != nil {
		return fmt.Errorf("write agent state: %w", err)
	}
	return nil
}

// Authenticated reports whether a login has been persisted.
func (s *State) Authenticated() bool {
	return s.Token != "" && s.EmployeeID != ""
}
