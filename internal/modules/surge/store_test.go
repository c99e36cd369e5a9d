package surge

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"glide/internal/types"
)

// A reader that pins the current snapshot must never observe cells from two
// generations within one lookup batch, no matter how many swaps race it.
func TestStoreSwapIsGenerationConsistent(t *testing.T) {
	width := 15 * time.Minute
	base := time.Date(2026, 8, 20, 14, 0, 0, 0, time.UTC)
	locations := []types.ID{"bay_1", "bay_2", "bay_3", "bay_4"}

	buildGen := func(gen int64, factor float64) *Snapshot {
		b := NewBuilder(gen, base, width)
		for _, loc := range locations {
			for i := 0; i < 8; i++ {
				b.Put(loc, base.Add(time.Duration(i)*width), factor)
			}
		}
		return b.Build()
	}

	store := NewStore()
	store.Swap(buildGen(1, 1.1))

	done := make(chan struct{})
	var swapper sync.WaitGroup
	swapper.Add(1)
	go func() {
		defer swapper.Done()
		for gen := int64(2); ; gen++ {
			select {
			case <-done:
				return
			default:
				store.Swap(buildGen(gen, 1.0+float64(gen%9)/10))
			}
		}
	}()

	var readers sync.WaitGroup
	var mu sync.Mutex
	var readerErr error
	for r := 0; r < 4; r++ {
		readers.Add(1)
		go func() {
			defer readers.Done()
			for i := 0; i < 2000; i++ {
				snap := store.Current()
				var first float64
				for j, loc := range locations {
					got, ok := snap.Lookup(loc, base.Add(3*width))
					if !ok {
						mu.Lock()
						readerErr = fmt.Errorf("missing cell for %s", loc)
						mu.Unlock()
						return
					}
					if j == 0 {
						first = got
						continue
					}
					if got != first {
						mu.Lock()
						readerErr = fmt.Errorf("mixed generations in one batch: %v vs %v", first, got)
						mu.Unlock()
						return
					}
				}
			}
		}()
	}

	readers.Wait()
	close(done)
	swapper.Wait()

	if readerErr != nil {
		t.Fatal(readerErr)
	}
}
