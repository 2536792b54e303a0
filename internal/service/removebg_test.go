package service

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestBackgroundRemover_RelaysUpstream(t *testing.T) {
	var gotName, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f, hdr, err := r.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		gotName, gotBody = hdr.Filename, string(data)

		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("transparent"))
	}))
	defer srv.Close()

	rm := NewBackgroundRemover(srv.URL, srv.Client(), testLogger())
	out, err := rm.Remove(context.Background(), "logo.png", strings.NewReader("pixels"))
	if err != nil {
		t.Fatalf("Remove() error = %v", err)
	}

	if gotName != "logo.png" || gotBody != "pixels" {
		t.Errorf("upstream got %q %q, want logo.png pixels", gotName, gotBody)
	}
	if out.ContentType != "image/png" || string(out.Data) != "transparent" {
		t.Errorf("result = %s %q, want relayed body", out.ContentType, out.Data)
	}
}

func TestBackgroundRemover_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	rm := NewBackgroundRemover(srv.URL, srv.Client(), testLogger())
	if _, err := rm.Remove(context.Background(), "logo.png", strings.NewReader("x")); err == nil {
		t.Fatal("Remove() error = nil, want upstream error")
	}
}

func TestBackgroundRemover_Disabled(t *testing.T) {
	rm := NewBackgroundRemover("", nil, testLogger())
	if rm.Enabled() {
		t.Error("Enabled() = true, want false without endpoint")
	}
	if _, err := rm.Remove(context.Background(), "logo.png", strings.NewReader("x")); err == nil {
		t.Fatal("Remove() error = nil, want error")
	}
}
