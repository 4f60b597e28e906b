package cache

import (
	"os"
	"testing"
	"time"
)

func TestCache(t *testing.T) {
	t.Parallel()
	c, err := Open(t.TempDir(), time.Minute)
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}

	key := "https://registry.npmjs.org/lodash"
	if _, ok := c.Get(key); ok {
		t.Fatal("Get on empty cache hit")
	}
	if err := c.Set(key, []byte(`{"name":"lodash"}`)); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	data, ok := c.Get(key)
	if !ok || string(data) != `{"name":"lodash"}` {
		t.Errorf("Get = (%q, %v); want cached document", data, ok)
	}

	c.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	if _, ok := c.Get(key); ok {
		t.Error("Get returned a stale entry")
	}

	if err := c.Clear(); err != nil {
		t.Fatalf("Clear error: %v", err)
	}
	if _, err := os.Stat(c.Path(key)); !os.IsNotExist(err) {
		t.Errorf("cache file still present after Clear: %v", err)
	}
}

func TestOpen_defaultTTL(t *testing.T) {
	t.Parallel()
	c, err := Open(t.TempDir(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if c.TTL != DefaultTTL {
		t.Errorf("TTL = %v; want %v", c.TTL, DefaultTTL)
	}
}
