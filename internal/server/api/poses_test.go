package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/ayusman/asana/internal/store"
)

// newTestStore creates a new Store with a temporary database for testing.
func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})

	return s
}

type fakeReloader struct {
	calls int
	err   error
}

func (f *fakeReloader) ReloadPoses() error {
	f.calls++
	return f.err
}

func serve(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestPoseHandler_List(t *testing.T) {
	s := newTestStore(t)
	handler := NewPoseHandler(s, nil)

	for _, p := range []*store.Pose{
		{ID: "warrior", Name: "Warrior Pose II", Points: 150, DifficultyMultiplier: 1.2, Position: 1},
		{ID: "tree", Name: "Tree Pose", Points: 100, DifficultyMultiplier: 1.0, Position: 0},
	} {
		if err := s.Poses().Create(p); err != nil {
			t.Fatalf("failed to create pose: %v", err)
		}
	}
	if err := s.Poses().SetLandmarks("tree", []store.Landmark{{Index: 0, X: 0.5, Y: 0.1}}); err != nil {
		t.Fatalf("SetLandmarks() error = %v", err)
	}

	rec := serve(handler, http.MethodGet, "/api/poses", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", ct)
	}

	var response listPosesResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if len(response.Poses) != 2 {
		t.Fatalf("expected 2 poses, got %d", len(response.Poses))
	}
	if response.Poses[0].ID != "tree" || response.Poses[1].ID != "warrior" {
		t.Errorf("poses not in sequence order: %s, %s", response.Poses[0].ID, response.Poses[1].ID)
	}
	if !response.Poses[0].HasReference || response.Poses[1].HasReference {
		t.Error("has_reference does not follow stored landmarks")
	}
}

func TestPoseHandler_ListEmpty(t *testing.T) {
	rec := serve(NewPoseHandler(newTestStore(t), nil), http.MethodGet, "/api/poses", "")

	var response listPosesResponse
	json.NewDecoder(rec.Body).Decode(&response)
	if response.Poses == nil || len(response.Poses) != 0 {
		t.Errorf("expected empty list, got %v", response.Poses)
	}
}

func TestPoseHandler_Create(t *testing.T) {
	s := newTestStore(t)
	reloader := &fakeReloader{}
	handler := NewPoseHandler(s, reloader)

	tests := []struct {
		name     string
		body     string
		wantCode int
	}{
		{"defaults", `{"name":"Chair Pose"}`, http.StatusCreated},
		{"explicit values", `{"name":"Crow Pose","points":300,"difficulty_multiplier":2.0,"image_path":"/crow.jpg"}`, http.StatusCreated},
		{"missing name", `{"points":100}`, http.StatusBadRequest},
		{"blank name", `{"name":"   "}`, http.StatusBadRequest},
		{"negative points", `{"name":"Bad","points":-5}`, http.StatusBadRequest},
		{"negative multiplier", `{"name":"Bad","difficulty_multiplier":-1}`, http.StatusBadRequest},
		{"duplicate", `{"name":"Chair Pose"}`, http.StatusConflict},
		{"invalid json", `{"name":`, http.StatusBadRequest},
		{"unknown field", `{"name":"Boat","tolerance":0.2}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(handler, http.MethodPost, "/api/poses", tt.body)
			if rec.Code != tt.wantCode {
				t.Errorf("expected status %d, got %d (%s)", tt.wantCode, rec.Code, rec.Body.String())
			}
		})
	}

	if reloader.calls != 2 {
		t.Errorf("reloads = %d, want 2", reloader.calls)
	}

	chair, err := s.Poses().GetByName("Chair Pose")
	if err != nil {
		t.Fatalf("GetByName() error = %v", err)
	}
	if chair.Points != DefaultPoints || chair.DifficultyMultiplier != DefaultDifficultyMultiplier || chair.Position != 0 {
		t.Errorf("unexpected defaults: %+v", chair)
	}
	crow, _ := s.Poses().GetByName("Crow Pose")
	if crow.Position != 1 {
		t.Errorf("second pose position = %d, want 1", crow.Position)
	}
}

func TestPoseHandler_Get(t *testing.T) {
	s := newTestStore(t)
	handler := NewPoseHandler(s, nil)
	s.Poses().Create(&store.Pose{ID: "tree", Name: "Tree Pose", ImagePath: "/tree-pose.jpg", Points: 100, DifficultyMultiplier: 1})

	t.Run("existing", func(t *testing.T) {
		rec := serve(handler, http.MethodGet, "/api/poses/tree", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
		}
		var resp poseResponse
		json.NewDecoder(rec.Body).Decode(&resp)
		if resp.Name != "Tree Pose" || resp.ImagePath != "/tree-pose.jpg" {
			t.Errorf("unexpected pose: %+v", resp)
		}
	})

	t.Run("missing", func(t *testing.T) {
		rec := serve(handler, http.MethodGet, "/api/poses/nope", "")
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
		}
		var resp errorResponse
		json.NewDecoder(rec.Body).Decode(&resp)
		if resp.Error != "Pose not found" {
			t.Errorf("unexpected error %q", resp.Error)
		}
	})
}

func TestPoseHandler_Update(t *testing.T) {
	s := newTestStore(t)
	reloader := &fakeReloader{err: errors.New("engine stopped")}
	handler := NewPoseHandler(s, reloader)
	s.Poses().Create(&store.Pose{ID: "tree", Name: "Tree Pose", Points: 100, DifficultyMultiplier: 1})
	s.Poses().Create(&store.Pose{ID: "dog", Name: "Downward Dog", Points: 200, DifficultyMultiplier: 1.5, Position: 1})

	rec := serve(handler, http.MethodPut, "/api/poses/tree", `{"points":120,"position":5,"image_path":""}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	got, _ := s.Poses().GetByID("tree")
	if got.Points != 120 || got.Position != 5 || got.Name != "Tree Pose" || got.DifficultyMultiplier != 1 {
		t.Errorf("unexpected update result: %+v", got)
	}
	if reloader.calls != 1 {
		t.Errorf("a failing reload should not fail the request, reloads = %d", reloader.calls)
	}

	if rec := serve(handler, http.MethodPut, "/api/poses/tree", `{"name":"Downward Dog"}`); rec.Code != http.StatusConflict {
		t.Errorf("rename to existing name: status %d", rec.Code)
	}
	if rec := serve(handler, http.MethodPut, "/api/poses/nope", `{"points":1}`); rec.Code != http.StatusNotFound {
		t.Errorf("update missing pose: status %d", rec.Code)
	}
}

func TestPoseHandler_Delete(t *testing.T) {
	s := newTestStore(t)
	handler := NewPoseHandler(s, nil)
	s.Poses().Create(&store.Pose{ID: "tree", Name: "Tree Pose", Points: 100, DifficultyMultiplier: 1})

	if rec := serve(handler, http.MethodDelete, "/api/poses/tree", ""); rec.Code != http.StatusNoContent {
		t.Errorf("expected status %d, got %d", http.StatusNoContent, rec.Code)
	}
	if rec := serve(handler, http.MethodDelete, "/api/poses/tree", ""); rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestPoseHandler_MethodNotAllowed(t *testing.T) {
	handler := NewPoseHandler(newTestStore(t), nil)

	for _, tc := range []struct{ method, path string }{
		{http.MethodPut, "/api/poses"},
		{http.MethodDelete, "/api/poses"},
		{http.MethodPost, "/api/poses/tree"},
		{http.MethodPatch, "/api/poses/tree"},
	} {
		if rec := serve(handler, tc.method, tc.path, ""); rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s %s: expected status %d, got %d", tc.method, tc.path, http.StatusMethodNotAllowed, rec.Code)
		}
	}
}
