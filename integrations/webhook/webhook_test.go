package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"levelranks/core"
)

func TestSink_OnEventPostsToEndpoints(t *testing.T) {
	var hits int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		var e core.Event
		if err := json.NewDecoder(r.Body).Decode(&e); err != nil || e.PlayerID != "u1" {
			w.WriteHeader(http.StatusBadRequest)
		}
	})
	a := httptest.NewServer(handler)
	defer a.Close()
	b := httptest.NewServer(handler)
	defer b.Close()

	sink := New([]string{a.URL, b.URL})
	if err := sink.Post(context.Background(), core.NewPointsChanged("u1", core.ReasonKill, 8, 8, "")); err != nil {
		t.Fatalf("post: %v", err)
	}

	if atomic.LoadInt32(&hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", hits)
	}
}

func TestSink_FiltersEventTypes(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer srv.Close()

	sink := New([]string{srv.URL}, WithEventTypes(core.EventRankChanged))
	sink.OnEvent(context.Background(), core.NewPointsChanged("u1", core.ReasonKill, 8, 8, ""))
	sink.OnEvent(context.Background(), core.NewRankChanged("u1", core.Rank{Name: "Silver I"}, core.Rank{Name: "Silver II"}, true, 100))

	if atomic.LoadInt32(&hits) != 1 {
		t.Fatalf("expected 1 hit, got %d", hits)
	}
}

func TestSink_ReportsFailedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	sink := New([]string{srv.URL})
	if err := sink.Post(context.Background(), core.NewPointsChanged("u1", core.ReasonKill, 8, 8, "")); err == nil {
		t.Fatalf("expected an error for a 500 response")
	}
}
