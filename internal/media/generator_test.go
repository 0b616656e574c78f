package media

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mirrorlake/dreamforge/internal/errs"
)

func TestFalGenerate(t *testing.T) {
	var gotAuth string
	var gotReq falRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"images": []map[string]string{{"url": "https://provider/out.jpg"}},
		})
	}))
	defer server.Close()

	g := NewFalGenerator(server.URL, "api-key")
	url, err := g.Generate(context.Background(), "a red fox", "landscape_4_3")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if url != "https://provider/out.jpg" {
		t.Errorf("unexpected url %s", url)
	}
	if gotAuth != "Key api-key" {
		t.Errorf("unexpected auth header %q", gotAuth)
	}
	if gotReq.Prompt != "a red fox" || gotReq.ImageSize != "landscape_4_3" {
		t.Errorf("unexpected request %+v", gotReq)
	}
	if gotReq.NumImages != 1 || !gotReq.EnableSafetyChecker {
		t.Errorf("unexpected request defaults %+v", gotReq)
	}
}

func TestFalGenerateErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	g := NewFalGenerator(server.URL, "k")
	_, err := g.Generate(context.Background(), "p", "s")
	if err == nil {
		t.Fatal("expected error")
	}
	if errs.KindOf(err) != errs.KindTransient {
		t.Errorf("expected transient kind, got %v", errs.KindOf(err))
	}
}

func TestFalGenerateEmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"images":[]}`))
	}))
	defer server.Close()

	g := NewFalGenerator(server.URL, "k")
	_, err := g.Generate(context.Background(), "p", "s")
	if err == nil {
		t.Fatal("expected error for empty image list")
	}
	if errs.KindOf(err) != errs.KindTerminal {
		t.Errorf("expected terminal kind, got %v", errs.KindOf(err))
	}
}
