package geo

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestCurrentPositionUnavailableWhenUnconfigured(t *testing.T) {
	var nilLocator *IPLocator
	if _, err := nilLocator.CurrentPosition(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Errorf("nil locator err = %v, want ErrUnavailable", err)
	}

	if locator := NewIPLocator(nil); locator != nil {
		t.Error("NewIPLocator(nil) should return nil")
	}

	empty := &IPLocator{}
	if _, err := empty.CurrentPosition(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Errorf("unconfigured locator err = %v, want ErrUnavailable", err)
	}
}

func TestCurrentPositionSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"success","lat":18.5204,"lon":73.8567}`))
	}))
	defer server.Close()

	locator := NewIPLocator(server.Client())
	locator.Endpoint = server.URL

	pos, err := locator.CurrentPosition(context.Background())
	if err != nil {
		t.Fatalf("CurrentPosition: %v", err)
	}
	if pos.Latitude != 18.5204 || pos.Longitude != 73.8567 {
		t.Errorf("position = %+v", pos)
	}
}

func TestCurrentPositionLookupFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"fail","message":"private range"}`))
	}))
	defer server.Close()

	locator := NewIPLocator(server.Client())
	locator.Endpoint = server.URL

	if _, err := locator.CurrentPosition(context.Background()); err == nil {
		t.Fatal("expected error for failed lookup")
	}
}

func TestCurrentPositionHonorsTimeout(t *testing.T) {
	block := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(block)

	locator := NewIPLocator(server.Client())
	locator.Endpoint = server.URL

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := locator.CurrentPosition(ctx); err == nil {
		t.Fatal("expected context deadline error")
	}
}
