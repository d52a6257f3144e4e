package blob

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

func testStoreContract(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	info, err := store.Put(ctx, "runs/r1/plot_summary.csv", strings.NewReader("a,b\n1,2\n"),
		PutOptions{ContentType: "text/csv", Metadata: map[string]string{"site": "SJER"}})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Size != 8 || info.ContentType != "text/csv" {
		t.Fatalf("bad info: %+v", info)
	}

	if _, err := store.Put(ctx, "runs/r1/plot_summary.csv", strings.NewReader("x"), PutOptions{}); err == nil {
		t.Fatalf("put must be create-only")
	}

	got, rc, err := store.Get(ctx, "runs/r1/plot_summary.csv")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, err := io.ReadAll(rc)
	rc.Close()
	if err != nil || string(body) != "a,b\n1,2\n" {
		t.Fatalf("body = %q, %v", body, err)
	}
	if got.Metadata["site"] != "SJER" {
		t.Fatalf("metadata lost: %+v", got)
	}

	if _, err := store.Head(ctx, "runs/r1/plot_summary.csv"); err != nil {
		t.Fatalf("head: %v", err)
	}
	if _, err := store.Head(ctx, "runs/r1/nothing.csv"); err == nil {
		t.Fatalf("head on absent key must fail")
	}

	if _, err := store.Put(ctx, "runs/r2/series.json", strings.NewReader("{}"), PutOptions{}); err != nil {
		t.Fatalf("put second: %v", err)
	}
	infos, err := store.List(ctx, "runs/r1/")
	if err != nil || len(infos) != 1 {
		t.Fatalf("list prefix: %v, %d entries", err, len(infos))
	}
	infos, err = store.List(ctx, "runs/")
	if err != nil || len(infos) != 2 {
		t.Fatalf("list all: %v, %d entries", err, len(infos))
	}
	if infos[0].Key != "runs/r1/plot_summary.csv" {
		t.Fatalf("list must order by key: %+v", infos)
	}

	ok, err := store.Delete(ctx, "runs/r2/series.json")
	if err != nil || !ok {
		t.Fatalf("delete: %v, %v", ok, err)
	}
	ok, err = store.Delete(ctx, "runs/r2/series.json")
	if err != nil || ok {
		t.Fatalf("second delete must report absence: %v, %v", ok, err)
	}
}

func TestMemoryStore(t *testing.T) {
	testStoreContract(t, NewMemory())
}

func TestFilesystemStore(t *testing.T) {
	store, err := NewFilesystem(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	testStoreContract(t, store)
}

func TestFilesystemRejectsTraversal(t *testing.T) {
	store, err := NewFilesystem(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := store.Put(context.Background(), "../escape", strings.NewReader("x"), PutOptions{}); err == nil {
		t.Fatalf("traversal key must be rejected")
	}
	if _, err := store.Put(context.Background(), "/abs", strings.NewReader("x"), PutOptions{}); err == nil {
		t.Fatalf("absolute key must be rejected")
	}
}

func TestMemoryGetMissingIsErrNotFound(t *testing.T) {
	_, _, err := NewMemory().Get(context.Background(), "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestOpenSelectsMemoryDriver(t *testing.T) {
	t.Setenv("VEGCENSUS_BLOB_DRIVER", "memory")
	store, err := Open(context.Background())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if store.Driver() != DriverMemory {
		t.Fatalf("driver = %v", store.Driver())
	}
}
