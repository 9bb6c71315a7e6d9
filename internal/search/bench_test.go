package search

import (
	"context"
	"errors"
	"testing"

	"github.com/heptonion/conlog/internal/testgraph"
	"github.com/heptonion/conlog/pkg/conlog"
)

var BenchmarkInput = testgraph.Random(9, 24)

func BenchmarkSearch(b *testing.B) {
	for i := 0; i < b.N; i++ {
		s, err := New(BenchmarkInput, WithLimit(20000))
		if err != nil {
			b.Fatalf("failed to initialize search: %s", err)
		}
		for {
			_, err := s.Next(context.Background())
			if errors.Is(err, conlog.ErrExhausted) || errors.Is(err, conlog.ErrLimitReached) {
				break
			}
			if err != nil {
				b.Fatalf("unexpected error: %s", err)
			}
		}
	}
}
