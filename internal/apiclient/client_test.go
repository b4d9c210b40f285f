package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFetchProfile_NotFoundReturnsNilNoError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL})
	profile, err := c.FetchProfile(context.Background(), "abc123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if profile != nil {
		t.Fatalf("expected nil profile for 404, got %+v", profile)
	}
}

func TestFetchProfile_UnauthorizedIsFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL})
	_, err := c.FetchProfile(context.Background(), "abc123")
	if err == nil {
		t.Fatal("expected unauthorized error")
	}
	var unauthorized *UnauthorizedError
	if !asUnauthorized(err, &unauthorized) {
		t.Fatalf("expected *UnauthorizedError, got %T: %v", err, err)
	}
}

func TestFetchProfile_RetriesTransientThenSucceeds(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(profileResponse{AccountID: "abc123", Username: "alice"})
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL})
	profile, err := c.FetchProfile(context.Background(), "abc123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if profile == nil || profile.Username != "alice" {
		t.Fatalf("unexpected profile: %+v", profile)
	}
	if attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", attempts)
	}
}

func TestFetchProfile_MalformedBodyIsFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL})
	_, err := c.FetchProfile(context.Background(), "abc123")
	if err == nil {
		t.Fatal("expected malformed response error")
	}
	var malformed *MalformedResponseError
	if !asMalformed(err, &malformed) {
		t.Fatalf("expected *MalformedResponseError, got %T: %v", err, err)
	}
}

func TestFetchProfilesBatch_Chunks(t *testing.T) {
	var sawBatchSizes []int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			IDs []string `json:"ids"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		sawBatchSizes = append(sawBatchSizes, len(body.IDs))
		out := make([]profileResponse, len(body.IDs))
		for i, id := range body.IDs {
			out[i] = profileResponse{AccountID: id, Username: id}
		}
		json.NewEncoder(w).Encode(out)
	}))
	defer srv.Close()

	ids := make([]string, 5)
	for i := range ids {
		ids[i] = "id" + string(rune('a'+i))
	}

	c := New(Config{BaseURL: srv.URL})
	result, err := c.FetchProfilesBatch(context.Background(), ids, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(result) != 5 {
		t.Fatalf("expected 5 profiles, got %d", len(result))
	}
	if len(sawBatchSizes) != 3 {
		t.Fatalf("expected 3 chunks of <=2, got %v", sawBatchSizes)
	}
}

func asUnauthorized(err error, target **UnauthorizedError) bool {
	if u, ok := err.(*UnauthorizedError); ok {
		*target = u
		return true
	}
	return false
}

func asMalformed(err error, target **MalformedResponseError) bool {
	if m, ok := err.(*MalformedResponseError); ok {
		*target = m
		return true
	}
	return false
}
