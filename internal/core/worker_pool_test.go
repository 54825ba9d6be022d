package core

import (
	"context"
	"fmt"
	"testing"
)

func TestWorkerPoolPreservesOrder(t *testing.T) {
	files := make([]string, 50)
	for i := range files {
		files[i] = fmt.Sprintf("file-%02d", i)
	}

	pool := NewWorkerPool(8)
	results := pool.Run(context.Background(), files, func(path string) []Finding {
		return []Finding{{File: path, Line: 1, Kind: KindFileHandle}}
	})

	if len(results) != len(files) {
		t.Fatalf("got %d result slots, want %d", len(results), len(files))
	}
	for i, fs := range results {
		if len(fs) != 1 || fs[0].File != files[i] {
			t.Errorf("results[%d] = %v, want finding for %s", i, fs, files[i])
		}
	}
}

func TestWorkerPoolMinimumOneWorker(t *testing.T) {
	pool := NewWorkerPool(0)
	results := pool.Run(context.Background(), []string{"a", "b"}, func(path string) []Finding {
		return nil
	})
	if len(results) != 2 {
		t.Errorf("got %d result slots, want 2", len(results))
	}
}

func TestWorkerPoolEmptyInput(t *testing.T) {
	pool := NewWorkerPool(4)
	results := pool.Run(context.Background(), nil, func(path string) []Finding {
		t.Error("analyze called for empty input")
		return nil
	})
	if len(results) != 0 {
		t.Errorf("got %d result slots, want 0", len(results))
	}
}
