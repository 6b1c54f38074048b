package infra

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestCacheSetGet(t *testing.T) {
	c := NewCache(time.Minute)
	c.Set("k", 42)
	v, ok := c.Get("k")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if v.(int) != 42 {
		t.Errorf("got %v, want 42", v)
	}
	if _, ok := c.Get("missing"); ok {
		t.Error("expected miss for unknown key")
	}
}

func TestCacheExpiry(t *testing.T) {
	c := NewCache(time.Minute)
	c.SetWithTTL("k", "v", -time.Second) // already expired
	if _, ok := c.Get("k"); ok {
		t.Error("expected expired entry to miss")
	}
}

func TestCacheFlush(t *testing.T) {
	c := NewCache(time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Flush()
	if _, ok := c.Get("a"); ok {
		t.Error("expected empty cache after Flush")
	}
}

func TestRateLimiterAllowsBurst(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := rl.Wait(ctx); err != nil {
			t.Fatalf("Wait %d: %v", i, err)
		}
	}
}

func TestRateLimiterBlocksOnCancel(t *testing.T) {
	rl := NewRateLimiter(1, time.Hour)
	ctx := context.Background()
	if err := rl.Wait(ctx); err != nil {
		t.Fatalf("first Wait: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := rl.Wait(ctx); err == nil {
		t.Error("expected context error once tokens are exhausted")
	}
}

func TestDoGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept") != "application/json" {
			t.Errorf("missing Accept header")
		}
		if r.Header.Get("User-Agent") == "" {
			t.Errorf("missing User-Agent header")
		}
		w.Write([]byte(`ok`))
	}))
	defer srv.Close()

	body, status, err := DoGet(context.Background(), srv.URL, map[string]string{"Accept": "application/json"})
	if err != nil {
		t.Fatalf("DoGet: %v", err)
	}
	defer body.Close()
	if status != http.StatusOK {
		t.Errorf("status = %d", status)
	}
}

func TestDoGetNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	_, status, err := DoGet(context.Background(), srv.URL, nil)
	if err == nil {
		t.Fatal("expected error for 404")
	}
	if status != http.StatusNotFound {
		t.Errorf("status = %d, want 404", status)
	}
}
