package artifact

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteJSONAndDeletePaths(t *testing.T) {
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	p1, err := s.WriteJSON("sess1", "articles", []string{"a", "b"})
	if err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	p2, err := s.WriteJSON("sess1", "chunks", []string{"c"})
	if err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	out := s.DeletePaths([]string{p1, p2})
	if out.DeletedCount != 2 || len(out.Errors) != 0 {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	// second pass: already-deleted is success with zero count
	out = s.DeletePaths([]string{p1, p2})
	if out.DeletedCount != 0 || len(out.Errors) != 0 {
		t.Fatalf("second delete not idempotent: %+v", out)
	}
}

func TestDeleteSessionFilesByPrefix(t *testing.T) {
	s, _ := NewStore(t.TempDir())
	_, _ = s.WriteJSON("sessA", "articles", 1)
	_, _ = s.WriteManifest("sessA", map[string]string{"q": "x"})
	_, _ = s.WriteJSON("sessB", "articles", 2)

	out := s.DeleteSessionFiles("sessA")
	if out.DeletedCount != 2 {
		t.Fatalf("expected 2 deletions, got %+v", out)
	}
	if s.FileCount() != 1 {
		t.Fatalf("expected sessB file to survive, count=%d", s.FileCount())
	}
}

func TestDeleteAllExceptSparesOwnedFiles(t *testing.T) {
	s, _ := NewStore(t.TempDir())
	_, _ = s.WriteJSON("sessA", "articles", 1)
	_, _ = s.WriteManifest("sessA", map[string]string{"q": "x"})
	_, _ = s.WriteJSON("sessB", "articles", 2)
	_, _ = s.WriteManifest("sessB", map[string]string{"q": "y"})

	out := s.DeleteAllExcept([]string{"sessA"})
	if out.DeletedCount != 2 {
		t.Fatalf("expected only sessB's 2 files deleted, got %+v", out)
	}
	if s.FileCount() != 2 {
		t.Fatalf("sessA's files must survive, count=%d", s.FileCount())
	}
}

func TestDeleteAllCollectsErrorsWithoutAborting(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission-based delete failure is not enforceable as root")
	}
	root := t.TempDir()
	s, _ := NewStore(root)
	_, _ = s.WriteJSON("s1", "articles", 1)
	// a non-empty unwritable directory forces one failure
	locked := filepath.Join(root, "locked")
	if err := os.MkdirAll(filepath.Join(locked, "inner"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.Chmod(locked, 0o555); err != nil {
		t.Fatalf("chmod: %v", err)
	}
	defer os.Chmod(locked, 0o755)

	out := s.DeleteAll()
	if len(out.Errors) != 1 {
		t.Fatalf("expected exactly one error, got %v", out.Errors)
	}
	if out.DeletedCount != 1 {
		t.Fatalf("expected the regular file deleted despite error, got %+v", out)
	}
}

func TestReadManifests(t *testing.T) {
	s, _ := NewStore(t.TempDir())
	_, _ = s.WriteManifest("s1", map[string]string{"session_id": "s1"})
	_, _ = s.WriteManifest("s2", map[string]string{"session_id": "s2"})
	_, _ = s.WriteJSON("s1", "articles", 1) // not a manifest

	var ids []string
	err := s.ReadManifests(func(data []byte) error {
		var m map[string]string
		if err := json.Unmarshal(data, &m); err != nil {
			return err
		}
		ids = append(ids, m["session_id"])
		return nil
	})
	if err != nil {
		t.Fatalf("ReadManifests: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 manifests, got %v", ids)
	}
}
