package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"testing"

	"assaycore/internal/blob/core"
)

func newMockStore(t *testing.T) (*Store, *MockTransport) {
	t.Helper()
	rt := NewMockTransport()
	store, err := New(context.Background(), Config{
		Bucket:          "results",
		Endpoint:        "https://mock.s3.local",
		AccessKeyID:     "AKIA",
		SecretAccessKey: "SECRET",
		PathStyle:       true,
		HTTPClient:      &http.Client{Transport: rt},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return store, rt
}

func TestNewRequiresBucket(t *testing.T) {
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatalf("expected bucket error")
	}
}

func TestStoreLifecycle(t *testing.T) { //nolint:cyclop
	ctx := context.Background()
	store, rt := newMockStore(t)
	if store.Driver() != core.DriverS3 || store.Bucket() != "results" {
		t.Fatalf("unexpected store identity")
	}

	payload := []byte("activity_chembl_id,Filtered.new\na1,S1\n")
	info, err := store.Put(ctx, "run1/activity.csv", bytes.NewReader(payload), core.PutOptions{
		ContentType: "text/csv",
		Metadata:    map[string]string{"run_id": "r1"},
	})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Size != int64(len(payload)) || info.ContentType != "text/csv" || info.ETag == "" {
		t.Fatalf("unexpected info %+v", info)
	}
	if info.Metadata["run_id"] != "r1" {
		t.Fatalf("metadata not round-tripped: %+v", info.Metadata)
	}
	if body, ok := rt.Object("run1/activity.csv"); !ok || !bytes.Equal(body, payload) {
		t.Fatalf("stored body=%q", body)
	}

	if _, err := store.Put(ctx, "run1/activity.csv", bytes.NewReader([]byte("x")), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
	if _, err := store.Put(ctx, "run1/activity.csv", bytes.NewReader([]byte("x")), core.PutOptions{Overwrite: true}); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	_, rc, err := store.Get(ctx, "run1/activity.csv")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	got, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(got) != "x" {
		t.Fatalf("get body=%q", got)
	}

	if _, err := store.Put(ctx, "run2/assay.csv", bytes.NewReader([]byte("y")), core.PutOptions{}); err != nil {
		t.Fatalf("put run2: %v", err)
	}
	list, err := store.List(ctx, "run1/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].Key != "run1/activity.csv" || list[0].Size != 1 {
		t.Fatalf("unexpected list %+v", list)
	}

	ok, err := store.Delete(ctx, "run1/activity.csv")
	if err != nil || !ok {
		t.Fatalf("delete: %v %v", ok, err)
	}
	ok, err = store.Delete(ctx, "run1/activity.csv")
	if err != nil || ok {
		t.Fatalf("second delete: %v %v", ok, err)
	}
	if _, err := store.Head(ctx, "run1/activity.csv"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound from head, got %v", err)
	}
	if _, _, err := store.Get(ctx, "run1/activity.csv"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound from get, got %v", err)
	}
}

func TestNewMockForTests(t *testing.T) {
	store := NewMockForTests()
	ctx := context.Background()
	if _, err := store.Put(ctx, "k", bytes.NewReader([]byte("v")), core.PutOptions{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if h, err := store.Head(ctx, "k"); err != nil || h.Size != 1 {
		t.Fatalf("head: %+v %v", h, err)
	}
}

func TestDecodeChunked(t *testing.T) {
	body := []byte("5;chunk-signature=abc\r\nhello\r\n3\r\n, w\r\n0\r\nx-amz-checksum-crc32:AAAA\r\n\r\n")
	got, ok := decodeChunked(body)
	if !ok || string(got) != "hello, w" {
		t.Fatalf("decodeChunked=%q,%v", got, ok)
	}
	if _, ok := decodeChunked([]byte("plain body")); ok {
		t.Fatalf("plain body must not decode")
	}
}
