package audio

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestMain(m *testing.M) {
	logrus.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func TestPutOpenRelease(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	h, err := store.Put([]byte("ID3fake"), FormatMP3)
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if store.Live() != 1 {
		t.Fatalf("expected 1 live handle, got %d", store.Live())
	}
	if h.Size != 7 || h.Format != FormatMP3 {
		t.Fatalf("unexpected handle metadata: %s", h)
	}

	rc, err := h.Open()
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	data, _ := io.ReadAll(rc)
	rc.Close()
	if string(data) != "ID3fake" {
		t.Fatalf("unexpected payload: %q", data)
	}

	if err := h.Release(); err != nil {
		t.Fatalf("release: %v", err)
	}
	if err := h.Release(); err != nil {
		t.Fatalf("second release should be a no-op: %v", err)
	}
	if !h.Released() {
		t.Fatal("expected handle released")
	}
	if store.Live() != 0 {
		t.Fatalf("expected no live handles, got %d", store.Live())
	}
	if _, err := os.Stat(h.Path); !os.IsNotExist(err) {
		t.Fatalf("expected backing file removed, stat err = %v", err)
	}
	if _, err := h.Open(); err == nil {
		t.Fatal("expected open on released handle to fail")
	}
}

func TestPutRejectsEmptyPayload(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if _, err := store.Put(nil, FormatMP3); err == nil {
		t.Fatal("expected error for empty payload")
	}
}

func TestReleaseAll(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := store.Put([]byte{1, 2, 3}, FormatWAV); err != nil {
			t.Fatalf("put: %v", err)
		}
	}
	if err := store.ReleaseAll(); err != nil {
		t.Fatalf("release all: %v", err)
	}
	if store.Live() != 0 {
		t.Fatalf("expected no live handles, got %d", store.Live())
	}
}

func TestSaveAsCopiesAudio(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	h, err := store.Put([]byte("ID3narration"), FormatMP3)
	if err != nil {
		t.Fatalf("put: %v", err)
	}

	out := filepath.Join(t.TempDir(), "story.mp3")
	n, err := h.SaveAs(out)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if n != h.Size {
		t.Fatalf("expected %d bytes written, got %d", h.Size, n)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read saved file: %v", err)
	}
	if string(data) != "ID3narration" {
		t.Fatalf("unexpected saved payload: %q", data)
	}
	if h.Released() || store.Live() != 1 {
		t.Fatal("saving must not release the handle")
	}

	h.Release()
	if _, err := h.SaveAs(out); err == nil {
		t.Fatal("expected error saving a released handle")
	}
	if _, err := os.Stat(out); err != nil {
		t.Fatalf("saved copy must outlive the handle: %v", err)
	}
}
