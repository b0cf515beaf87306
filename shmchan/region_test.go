//go:build linux

package shmchan

import (
	"fmt"
	"os"
	"testing"
	"time"
)

func uniqueRegionName(t *testing.T) string {
	t.Helper()
	name := fmt.Sprintf("corert-shmchan-test-%d-%d", os.Getpid(), time.Now().UnixNano())
	t.Cleanup(func() { _ = os.Remove(shmPath(name)) })
	return name
}

func TestOpenRegionCreatesAndZeroes(t *testing.T) {
	name := uniqueRegionName(t)

	r, err := OpenRegion(name, 64)
	if err != nil {
		t.Fatalf("OpenRegion: %v", err)
	}
	defer func() { _ = r.Close() }()

	if !r.Created() {
		t.Fatal("expected the first OpenRegion call to report Created")
	}
	for i, b := range r.Bytes() {
		if b != 0 {
			t.Fatalf("byte %d = %d, want 0 (zero-initialized)", i, b)
		}
	}
}

func TestOpenRegionReopenSharesMemory(t *testing.T) {
	name := uniqueRegionName(t)

	r1, err := OpenRegion(name, 64)
	if err != nil {
		t.Fatalf("OpenRegion (first): %v", err)
	}
	defer func() { _ = r1.Close() }()

	copy(r1.Bytes()[headerSize:], []byte("shared"))

	r2, err := OpenRegion(name, 64)
	if err != nil {
		t.Fatalf("OpenRegion (second): %v", err)
	}
	defer func() { _ = r2.Close() }()

	if r2.Created() {
		t.Fatal("second OpenRegion call should not report Created")
	}
	got := string(r2.Bytes()[headerSize : headerSize+6])
	if got != "shared" {
		t.Fatalf("second mapping sees %q, want %q", got, "shared")
	}
}

func TestOpenRegionSizeMismatchFails(t *testing.T) {
	name := uniqueRegionName(t)

	r1, err := OpenRegion(name, 64)
	if err != nil {
		t.Fatalf("OpenRegion: %v", err)
	}
	defer func() { _ = r1.Close() }()

	if _, err := OpenRegion(name, 128); err == nil {
		t.Fatal("expected a capacity mismatch against an existing region to fail")
	}
}

func TestRegionUnlinkRemovesName(t *testing.T) {
	name := uniqueRegionName(t)

	r, err := OpenRegion(name, 16)
	if err != nil {
		t.Fatalf("OpenRegion: %v", err)
	}
	if err := r.Unlink(); err != nil {
		t.Fatalf("Unlink: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if _, err := os.Stat(shmPath(name)); !os.IsNotExist(err) {
		t.Fatalf("expected %q to be gone after Unlink, stat err = %v", shmPath(name), err)
	}
}
