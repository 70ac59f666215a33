package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/sguter90/airmaestro/pkg/metrics"
	"github.com/sguter90/airmaestro/pkg/models"
)

func TestIngestor_FirstRunIsEmpty(t *testing.T) {
	ing := NewIngestor(NewMemoryStore(), nil, nil)

	readings, err := ing.Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if readings == nil || len(readings) != 0 {
		t.Errorf("Expected empty slice, got %v", readings)
	}
}

func TestIngestor_MergeAndPersist(t *testing.T) {
	store := NewMemoryStore(reading("1", 0, 400))
	m := metrics.NewMetrics()
	ing := NewIngestor(store, nil, m)
	ctx := context.Background()

	existing, err := ing.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	merged, err := ing.MergeAndPersist(ctx, existing, []models.Reading{
		reading("1", 0, 405),
		reading("2", 0, 500),
	})
	if err != nil {
		t.Fatalf("MergeAndPersist failed: %v", err)
	}
	if len(merged) != 2 {
		t.Fatalf("Expected 2 readings, got %d", len(merged))
	}

	stored, _ := store.Load(ctx)
	if len(stored) != 2 {
		t.Fatalf("Expected 2 stored readings, got %d", len(stored))
	}
	if stored[0].CO2 != 405 {
		t.Errorf("Expected stored co2=405, got %v", stored[0].CO2)
	}

	expected := `
# HELP airmaestro_stored_readings Readings held by the ingestion store after the last merge.
# TYPE airmaestro_stored_readings gauge
airmaestro_stored_readings 2
`
	if err := testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "airmaestro_stored_readings"); err != nil {
		t.Errorf("Unexpected stored readings metric: %v", err)
	}
}

func TestIngestor_ReplaceFailureCommitsNothing(t *testing.T) {
	store := NewMemoryStore(reading("1", 0, 400))
	store.FailReplace = errors.New("disk full")
	ing := NewIngestor(store, nil, nil)
	ctx := context.Background()

	existing, _ := ing.Load(ctx)
	_, err := ing.MergeAndPersist(ctx, existing, []models.Reading{reading("1", 0, 405)})
	if err == nil {
		t.Fatal("Expected error")
	}

	var se *StorageError
	if !errors.As(err, &se) {
		t.Fatalf("Expected StorageError, got %T", err)
	}
	if se.Op != "replace" {
		t.Errorf("Expected op=replace, got %s", se.Op)
	}

	stored, _ := store.Load(ctx)
	if len(stored) != 1 || stored[0].CO2 != 400 {
		t.Errorf("Expected previous state to remain, got %+v", stored)
	}

	// retry with the same existing set once storage recovers
	store.FailReplace = nil
	merged, err := ing.MergeAndPersist(ctx, existing, []models.Reading{reading("1", 0, 405)})
	if err != nil {
		t.Fatalf("Retry failed: %v", err)
	}
	if merged[0].CO2 != 405 {
		t.Errorf("Expected co2=405 after retry, got %v", merged[0].CO2)
	}
}

func TestIngestor_RejectsInvalidIncoming(t *testing.T) {
	store := NewMemoryStore()
	ing := NewIngestor(store, nil, nil)

	_, err := ing.MergeAndPersist(context.Background(), nil, []models.Reading{{Time: time.Now()}})
	if err == nil {
		t.Fatal("Expected validation error")
	}

	var se *StorageError
	if errors.As(err, &se) {
		t.Error("Validation failure should not be reported as StorageError")
	}
}

func TestIngestor_Refresh(t *testing.T) {
	store := NewMemoryStore(reading("1", 0, 400))
	ing := NewIngestor(store, nil, nil)

	merged, err := ing.Refresh(context.Background(), []models.Reading{reading("1", time.Minute, 401)})
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if len(merged) != 2 {
		t.Errorf("Expected 2 readings, got %d", len(merged))
	}
}

func TestIngestor_LoadError(t *testing.T) {
	store := NewMemoryStore()
	store.FailLoad = errors.New("corrupt")
	ing := NewIngestor(store, nil, nil)

	_, err := ing.Load(context.Background())

	var se *StorageError
	if !errors.As(err, &se) || se.Op != "load" {
		t.Fatalf("Expected load StorageError, got %v", err)
	}
}

// slowStore widens the window between Load and Replace and records how
// many load-replace cycles overlapped.
type slowStore struct {
	*MemoryStore
	active  atomic.Int32
	overlap atomic.Int32
}

func (s *slowStore) Load(ctx context.Context) ([]models.Reading, error) {
	if n := s.active.Add(1); n > 1 {
		s.overlap.Add(1)
	}
	readings, err := s.MemoryStore.Load(ctx)
	time.Sleep(5 * time.Millisecond)
	return readings, err
}

func (s *slowStore) Replace(ctx context.Context, readings []models.Reading) error {
	defer s.active.Add(-1)
	return s.MemoryStore.Replace(ctx, readings)
}

func TestIngestor_ConcurrentRefresh(t *testing.T) {
	store := &slowStore{MemoryStore: NewMemoryStore()}
	ing := NewIngestor(store, nil, nil)

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			incoming := []models.Reading{reading(fmt.Sprintf("%d", id+1), 0, 400)}
			if _, err := ing.Refresh(context.Background(), incoming); err != nil {
				errs <- err
			}
		}(w)
	}

	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("Refresh failed: %v", err)
	}

	if n := store.overlap.Load(); n != 0 {
		t.Errorf("Expected serialized load-replace cycles, %d overlapped", n)
	}

	stored, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(stored) != workers {
		t.Errorf("Expected %d readings after concurrent refreshes, got %d", workers, len(stored))
	}
}
