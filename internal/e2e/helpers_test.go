package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"image/color"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"

	"spacelens/internal/assets"
	"spacelens/internal/gallery"
	"spacelens/internal/httpapi"
	"spacelens/internal/sam3d"
	"spacelens/internal/session"
	"spacelens/pkg/types"
)

// createTempPhotosDir writes solid-color PNG photos of the given size and
// returns the directory.
func createTempPhotosDir(t *testing.T, w, h int, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	base := time.Now().Add(-time.Hour)
	for i, n := range names {
		p := writePhoto(t, dir, n, w, h)
		mt := base.Add(time.Duration(i) * time.Minute)
		if err := os.Chtimes(p, mt, mt); err != nil {
			t.Fatalf("chtimes %s: %v", p, err)
		}
	}
	return dir
}

func writePhoto(t *testing.T, dir, name string, w, h int) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := imaging.Save(imaging.New(w, h, color.NRGBA{G: 120, A: 255}), p); err != nil {
		t.Fatalf("write temp photo %s: %v", p, err)
	}
	return p
}

// backend is a fake remote segmentation and 3D service. Generation blocks
// until release is closed so tests can observe the in-flight state.
type backend struct {
	mu       sync.Mutex
	segments [][]map[string]int
	anchors  []string
	models   []string
	release  chan struct{}
	failSeg  bool
}

func newBackend() *backend { return &backend{release: make(chan struct{})} }

func (b *backend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/segment/", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		var pts []map[string]int
		_ = json.Unmarshal([]byte(r.FormValue("points_json")), &pts)
		b.mu.Lock()
		b.segments = append(b.segments, pts)
		fail := b.failSeg
		b.mu.Unlock()
		if fail {
			http.Error(w, "gpu on fire", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"segUrl":"/files/seg.png","maskUrl":"/files/mask.png"}`))
	})
	mux.HandleFunc("/generate3d/", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		b.mu.Lock()
		b.anchors = append(b.anchors, r.FormValue("x")+","+r.FormValue("y"))
		b.mu.Unlock()
		select {
		case <-b.release:
		case <-r.Context().Done():
			return
		}
		b.mu.Lock()
		b.models = append(b.models, "chair.glb")
		b.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"glb_url":"/files/chair.glb","usdz_url":"/files/chair.usdz"}`))
	})
	mux.HandleFunc("/list3d/", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		names := append([]string(nil), b.models...)
		b.mu.Unlock()
		items := make([]map[string]string, 0, len(names))
		for _, n := range names {
			items = append(items, map[string]string{"key": n, "url": "/files/" + n, "last_modified": "2026-10-01T12:00:00Z"})
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"items": items})
	})
	return mux
}

func (b *backend) segmentCalls() [][]map[string]int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([][]map[string]int(nil), b.segments...)
}

type stack struct {
	srv     *httptest.Server
	backend *backend
	remote  *httptest.Server
	session *session.Session
	gallery *gallery.Gallery
	library *assets.Library
}

// newStack wires library, remote client, gallery, session and HTTP mux the
// way the serve command does.
func newStack(t *testing.T, photosDir string) *stack {
	t.Helper()
	b := newBackend()
	remote := httptest.NewServer(b.handler())
	t.Cleanup(remote.Close)

	log := zerolog.Nop()
	lib, err := assets.LoadDir(photosDir, log)
	if err != nil {
		t.Fatalf("load photos: %v", err)
	}
	client, err := sam3d.New(sam3d.Config{BaseURL: remote.URL, Token: "secret", Timeout: 10 * time.Second, Logger: log})
	if err != nil {
		t.Fatalf("sam3d client: %v", err)
	}
	gal := gallery.New(gallery.Config{Lister: client, Logger: log})
	sess, err := session.New(session.Config{
		Segmenter: client,
		Generator: client,
		Images:    lib,
		Notifier:  gal,
		MaxPoints: 5,
		Logger:    log,
	})
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	srv := httptest.NewServer(httpapi.NewMux(httpapi.Deps{Sessions: sess, Library: lib, Gallery: gal}))
	t.Cleanup(func() {
		select {
		case <-b.release:
		default:
			close(b.release)
		}
		srv.Close()
		sess.Close()
		gal.Wait()
	})
	return &stack{srv: srv, backend: b, remote: remote, session: sess, gallery: gal, library: lib}
}

func httpDo(t *testing.T, method, url string, payload []byte) (*http.Response, []byte) {
	t.Helper()
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(context.Background(), method, url, body)
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	out, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, out
}

func httpGet(t *testing.T, url string) (*http.Response, []byte) {
	return httpDo(t, http.MethodGet, url, nil)
}

func httpPostJSON(t *testing.T, url string, payload []byte) (*http.Response, []byte) {
	return httpDo(t, http.MethodPost, url, payload)
}

func decode[T any](t *testing.T, body []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(body, &v); err != nil {
		t.Fatalf("decode %s: %v", body, err)
	}
	return v
}

// waitSession polls GET /assets/{id}/session until cond holds.
func waitSession(t *testing.T, base, id string, cond func(types.SessionResponse) bool) types.SessionResponse {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	var last types.SessionResponse
	for time.Now().Before(deadline) {
		resp, body := httpGet(t, base+"/assets/"+id+"/session")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("session status %d: %s", resp.StatusCode, body)
		}
		last = decode[types.SessionResponse](t, body)
		if cond(last) {
			return last
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("session %s never reached expected state; last %+v", id, last)
	return last
}

func inState(state string) func(types.SessionResponse) bool {
	return func(s types.SessionResponse) bool { return s.State == state && !s.Busy }
}
