// Package artifact manages the session-scoped folder of intermediate JSON
// files. Its paths are the filesystem half of the cleanup contract.
package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Store writes and removes files under a single root directory. Every file
// name starts with the owning session id, so a session's files are findable
// even without its registry entry.
type Store struct {
	root string
}

// NewStore creates the root directory if needed.
func NewStore(root string) (*Store, error) {
	if root == "" {
		root = "news_data"
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact root: %w", err)
	}
	return &Store{root: root}, nil
}

// Root returns the artifact directory.
func (s *Store) Root() string { return s.root }

// WriteJSON marshals v into <sessionID>_<name>.json and returns the path.
func (s *Store) WriteJSON(sessionID, name string, v interface{}) (string, error) {
	path := filepath.Join(s.root, fmt.Sprintf("%s_%s.json", sessionID, name))
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal %s artifact: %w", name, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s artifact: %w", name, err)
	}
	return path, nil
}

// WriteManifest writes the session manifest as session_<id>.json, the file
// the sessions listing can recover from disk after a restart.
func (s *Store) WriteManifest(sessionID string, v interface{}) (string, error) {
	path := filepath.Join(s.root, fmt.Sprintf("session_%s.json", sessionID))
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write manifest: %w", err)
	}
	return path, nil
}

// ReadManifests decodes every session_*.json under the root into out slices.
func (s *Store) ReadManifests(decode func(data []byte) error) error {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read artifact root: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), "session_") || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.root, e.Name()))
		if err != nil {
			continue // unreadable manifest is skipped, not fatal
		}
		if err := decode(data); err != nil {
			continue
		}
	}
	return nil
}

// DeleteOutcome reports a best-effort batch removal. Missing files count as
// deleted; other failures are collected without stopping the batch.
type DeleteOutcome struct {
	DeletedCount int
	DeletedPaths []string
	Errors       []string
}

// DeletePaths removes exactly the given files.
func (s *Store) DeletePaths(paths []string) DeleteOutcome {
	var out DeleteOutcome
	for _, p := range paths {
		s.deleteOne(p, &out)
	}
	return out
}

// DeleteSessionFiles removes every file under the root whose name carries the
// session id prefix. Used when a session is unknown to the registry but its
// files survived.
func (s *Store) DeleteSessionFiles(sessionID string) DeleteOutcome {
	var out DeleteOutcome
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if !os.IsNotExist(err) {
			out.Errors = append(out.Errors, fmt.Sprintf("read artifact root: %v", err))
		}
		return out
	}
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, sessionID+"_") || name == fmt.Sprintf("session_%s.json", sessionID) {
			s.deleteOne(filepath.Join(s.root, name), &out)
		}
	}
	return out
}

// DeleteAll removes every file under the root.
func (s *Store) DeleteAll() DeleteOutcome {
	var out DeleteOutcome
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if !os.IsNotExist(err) {
			out.Errors = append(out.Errors, fmt.Sprintf("read artifact root: %v", err))
		}
		return out
	}
	for _, e := range entries {
		s.deleteOne(filepath.Join(s.root, e.Name()), &out)
	}
	return out
}

// DeleteAllExcept removes every file under the root not owned by one of the
// given sessions. Used by the whole-store cleanup so an active run keeps its
// files.
func (s *Store) DeleteAllExcept(sessionIDs []string) DeleteOutcome {
	var out DeleteOutcome
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if !os.IsNotExist(err) {
			out.Errors = append(out.Errors, fmt.Sprintf("read artifact root: %v", err))
		}
		return out
	}
	for _, e := range entries {
		if ownedByAny(e.Name(), sessionIDs) {
			continue
		}
		s.deleteOne(filepath.Join(s.root, e.Name()), &out)
	}
	return out
}

func ownedByAny(name string, sessionIDs []string) bool {
	for _, id := range sessionIDs {
		if strings.HasPrefix(name, id+"_") || name == fmt.Sprintf("session_%s.json", id) {
			return true
		}
	}
	return false
}

// FileCount returns the number of files currently under the root.
func (s *Store) FileCount() int {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return 0
	}
	n := 0
	for _, e := range entries {
		if !e.IsDir() {
			n++
		}
	}
	return n
}

func (s *Store) deleteOne(path string, out *DeleteOutcome) {
	if _, err := os.Lstat(path); os.IsNotExist(err) {
		return // already deleted is success, and never counted twice
	}
	if err := os.RemoveAll(path); err != nil {
		out.Errors = append(out.Errors, fmt.Sprintf("delete %s: %v", path, err))
		return
	}
	out.DeletedPaths = append(out.DeletedPaths, path)
	out.DeletedCount++
}
