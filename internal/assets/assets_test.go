package assets

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func cdn(t *testing.T, status int) (*httptest.Server, *[]string) {
	t.Helper()
	var (
		mu  sync.Mutex
		got []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		got = append(got, r.URL.Path)
		mu.Unlock()
		w.WriteHeader(status)
		_, _ = io.WriteString(w, "/* "+r.URL.Path+" */")
	}))
	t.Cleanup(srv.Close)
	return srv, &got
}

func TestEnsure_InstallsMissingFiles(t *testing.T) {
	srv, got := cdn(t, http.StatusOK)
	dir := filepath.Join(t.TempDir(), "leaflet")
	inst := New(dir, srv.URL+"/dist/", srv.Client(), nil)

	if err := inst.Ensure(context.Background()); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if len(*got) != 2 || (*got)[0] != "/dist/leaflet.js" || (*got)[1] != "/dist/leaflet.css" {
		t.Fatalf("requests=%v", *got)
	}
	b, err := inst.Read(JS)
	if err != nil || string(b) != "/* /dist/leaflet.js */" {
		t.Fatalf("Read=%q err=%v", b, err)
	}

	// second run finds everything in place
	if err := inst.Ensure(context.Background()); err != nil {
		t.Fatalf("Ensure again: %v", err)
	}
	if len(*got) != 2 {
		t.Fatalf("present files were downloaded again: %v", *got)
	}
}

func TestEnsure_OnlyMissingFile(t *testing.T) {
	srv, got := cdn(t, http.StatusOK)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, JS), []byte("local"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := New(dir, srv.URL, srv.Client(), nil).Ensure(context.Background()); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if len(*got) != 1 || (*got)[0] != "/leaflet.css" {
		t.Fatalf("requests=%v", *got)
	}
}

func TestEnsure_FailedDownloadIsFatal(t *testing.T) {
	srv, _ := cdn(t, http.StatusNotFound)
	dir := t.TempDir()
	err := New(dir, srv.URL, srv.Client(), nil).Ensure(context.Background())
	if !errors.Is(err, ErrInstall) {
		t.Fatalf("err=%v want ErrInstall", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Fatalf("partial files left behind: %v", entries)
	}
}
