package unitcache

import (
	"context"
	"testing"
	"time"

	"github.com/nikandfor/errors"

	"github.com/therealbnut/rune/internal/compiler"
	"github.com/therealbnut/rune/internal/hash"
	"github.com/therealbnut/rune/internal/item"
	"github.com/therealbnut/rune/internal/runtime"
)

func openMemory(t *testing.T) *Cache {
	t.Helper()

	c, err := Open(context.Background(), DriverSQLite, "file::memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	return c
}

func TestPutGet(t *testing.T) {
	ctx := context.Background()
	c := openMemory(t)

	rt, err := runtime.DefaultContext()
	if err != nil {
		t.Fatalf("DefaultContext: %v", err)
	}

	src := `fn main() { 1 + 2 }`
	u, _, err := compiler.CompileSource(rt, src, compiler.DefaultOptions())
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	key := Key([]byte(src), []byte(rt.Fingerprint().String()))

	if _, ok, err := c.Get(ctx, key); ok || err != nil {
		t.Fatalf("expected a miss, got %v %v", ok, err)
	}

	if err := c.Put(ctx, key, u); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		t.Fatalf("Get: %v %v", ok, err)
	}
	if got.BuildID != u.BuildID {
		t.Errorf("build id: %v != %v", got.BuildID, u.BuildID)
	}
	if _, ok := got.Functions[hash.TypeHash(item.Of("main"))]; !ok {
		t.Errorf("main is missing from the cached unit")
	}

	// replacing an entry resets its hits
	if err := c.Put(ctx, key, u); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, _, err := c.Get(ctx, key); err != nil {
		t.Fatalf("Get: %v", err)
	}

	s, err := c.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if s.Entries != 1 || s.Hits != 1 || s.Bytes == 0 || s.Oldest.IsZero() {
		t.Errorf("unexpected stats: %+v", s)
	}

	n, err := c.Prune(ctx, time.Now().Add(time.Hour))
	if err != nil || n != 1 {
		t.Fatalf("Prune: %v %v", n, err)
	}

	s, err = c.Stats(ctx)
	if err != nil || s.Entries != 0 || !s.Oldest.IsZero() {
		t.Fatalf("stats after prune: %+v %v", s, err)
	}
}

func TestKey(t *testing.T) {
	a := Key([]byte("ab"), []byte("c"))
	b := Key([]byte("a"), []byte("bc"))

	if a == b {
		t.Fatalf("keys of differently split parts collide")
	}
	if a != Key([]byte("ab"), []byte("c")) {
		t.Fatalf("key is not deterministic")
	}
	if len(a) != 64 {
		t.Fatalf("unexpected key length %d", len(a))
	}
}

func TestUnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), "mysql", "")
	if !errors.Is(err, ErrUnsupportedDriver) {
		t.Fatalf("expected ErrUnsupportedDriver, got %v", err)
	}
}

func TestRebind(t *testing.T) {
	c := &Cache{driver: DriverPostgres}
	if got := c.rebind(`a = ? AND b = ?`); got != `a = $1 AND b = $2` {
		t.Fatalf("rebind: %q", got)
	}

	c.driver = DriverSQLite
	if got := c.rebind(`a = ?`); got != `a = ?` {
		t.Fatalf("rebind: %q", got)
	}
}
