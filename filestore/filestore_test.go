package filestore

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"taskhub/backend/models"
)

func TestClient_UploadAndDelete(t *testing.T) {
	stored := map[string][]byte{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPut:
			data, _ := io.ReadAll(r.Body)
			stored[r.URL.Path] = data
			w.WriteHeader(http.StatusCreated)
		case http.MethodDelete:
			if _, ok := stored[r.URL.Path]; !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			delete(stored, r.URL.Path)
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, server.Client())

	url, err := client.Upload(context.Background(), "avatar.PNG", "image/png", []byte("png-bytes"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if !strings.HasPrefix(url, server.URL+"/files/") {
		t.Fatalf("unexpected url %q", url)
	}
	if !strings.HasSuffix(url, ".png") {
		t.Fatalf("extension not preserved in %q", url)
	}
	if len(stored) != 1 {
		t.Fatalf("expected one stored object, got %d", len(stored))
	}

	if err := client.Delete(context.Background(), url); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(stored) != 0 {
		t.Fatal("object not deleted")
	}

	// Deleting an object that is already gone is not an error.
	if err := client.Delete(context.Background(), url); err != nil {
		t.Fatalf("second Delete: %v", err)
	}
}

func TestClient_DeleteForeignURL(t *testing.T) {
	client := NewClient("http://filestore.local", &http.Client{})
	err := client.Delete(context.Background(), "http://elsewhere.example/files/x.png")
	if !models.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestClient_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, server.Client())

	for i := 0; i < 4; i++ {
		if _, err := client.Upload(context.Background(), "a.png", "image/png", nil); err == nil {
			t.Fatalf("upload %d: expected error", i)
		}
	}
	hitsBeforeOpen := hits

	// The breaker trips after more than 3 consecutive failures; the next
	// call must fail fast without reaching the server.
	_, err := client.Upload(context.Background(), "a.png", "image/png", nil)
	if err == nil {
		t.Fatal("expected error while breaker is open")
	}
	if !models.IsStoreError(err) {
		t.Fatalf("expected store error, got %v", err)
	}
	if hits != hitsBeforeOpen {
		t.Fatalf("breaker did not trip: server hit %d times, want %d", hits, hitsBeforeOpen)
	}
}
