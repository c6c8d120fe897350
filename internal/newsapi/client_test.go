package newsapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/time/rate"
)

func TestSearch(t *testing.T) {
	var gotQuery, gotMax, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		gotMax = r.URL.Query().Get("max")
		gotKey = r.URL.Query().Get("apikey")
		w.Write([]byte(`{"totalArticles":2,"articles":[
			{"title":"Acme raises $10M","description":"Seed round","image":"https://img.example/a.jpg","url":"https://news.example/a"},
			{"title":"","description":"broken item","url":"https://news.example/b"},
			{"title":"Beta launches","description":"","url":"https://news.example/c"}
		]}`))
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, APIKey: "secret"}, rate.NewLimiter(rate.Inf, 1))
	items, err := client.Search(context.Background(), "startup funding", 3)
	if err != nil {
		t.Fatal(err)
	}

	if gotQuery != "startup funding" || gotMax != "3" || gotKey != "secret" {
		t.Fatalf("unexpected query params: q=%q max=%q apikey=%q", gotQuery, gotMax, gotKey)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items (untitled dropped), got %d", len(items))
	}
	if items[0].Title != "Acme raises $10M" {
		t.Fatalf("order not preserved: %q", items[0].Title)
	}
	if items[1].Description != "" {
		t.Fatalf("empty description must stay empty, got %q", items[1].Description)
	}
}

func TestSearch_EmptyQuery(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://unused"}, nil)
	if _, err := client.Search(context.Background(), "  ", 5); err == nil {
		t.Fatal("expected error for empty query")
	}
}

func TestSearch_ClampsMax(t *testing.T) {
	var gotMax string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMax = r.URL.Query().Get("max")
		w.Write([]byte(`{"articles":[]}`))
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL}, nil)
	if _, err := client.Search(context.Background(), "q", 50); err != nil {
		t.Fatal(err)
	}
	if gotMax != "10" {
		t.Fatalf("expected max clamped to 10, got %s", gotMax)
	}

	if _, err := client.Search(context.Background(), "q", 0); err != nil {
		t.Fatal(err)
	}
	if gotMax != "5" {
		t.Fatalf("expected default max 5, got %s", gotMax)
	}
}

func TestSearch_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"errors":["bad api key"]}`))
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL}, nil)
	_, err := client.Search(context.Background(), "q", 5)

	var sfe *SourceFetchError
	if !errors.As(err, &sfe) {
		t.Fatalf("expected SourceFetchError, got %v", err)
	}
	if sfe.Status != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", sfe.Status)
	}
	if sfe.Body == "" {
		t.Fatal("expected response body captured")
	}
}
