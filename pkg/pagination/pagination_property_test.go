package pagination

import (
	"testing"

	"pgregory.net/rapid"
)

// TestProperty_PagesPartitionSequence verifies that walking every page of
// a board visits each sequence number exactly once, newest first, with no
// overlap between pages and no page exceeding the requested size.
func TestProperty_PagesPartitionSequence(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		total := rapid.Int64Range(0, 500).Draw(t, "total")
		size := rapid.Int64Range(1, 50).Draw(t, "size")
		counter := total + 1

		seen := make(map[int64]bool)
		var prev int64 = -1 // StartAt of the previous page

		for page := int64(1); ; page++ {
			w := ComputeWindow(counter, page, size)

			if w.TotalElements != total {
				t.Fatalf("page %d: TotalElements = %d, want %d", page, w.TotalElements, total)
			}
			if w.Count > size {
				t.Fatalf("page %d: Count %d exceeds size %d", page, w.Count, size)
			}
			if w.Count == 0 {
				break
			}
			if prev >= 0 && w.StartAt >= prev {
				t.Fatalf("page %d starts at %d, not below previous page start %d", page, w.StartAt, prev)
			}
			prev = w.StartAt

			// The page covers sequence numbers (StartAt-Count, StartAt]
			for seq := w.StartAt; seq > w.StartAt-w.Count; seq-- {
				if seq < 1 || seq > total {
					t.Fatalf("page %d yields sequence %d outside [1,%d]", page, seq, total)
				}
				if seen[seq] {
					t.Fatalf("sequence %d served twice", seq)
				}
				seen[seq] = true
			}
		}

		if int64(len(seen)) != total {
			t.Fatalf("walked %d sequences, want %d", len(seen), total)
		}
	})
}

// TestProperty_TotalPagesMatchesWalk cross-checks the ceil arithmetic
// against the number of non-empty pages actually served.
func TestProperty_TotalPagesMatchesWalk(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		total := rapid.Int64Range(0, 300).Draw(t, "total")
		size := rapid.Int64Range(1, 30).Draw(t, "size")
		counter := total + 1

		var walked int64
		for page := int64(1); ; page++ {
			w := ComputeWindow(counter, page, size)
			if w.Count == 0 {
				break
			}
			walked++
		}

		want := ComputeWindow(counter, 1, size).TotalPages
		if walked != want {
			t.Fatalf("served %d pages, TotalPages says %d", walked, want)
		}
	})
}
