package ingest

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/calebrow/fleetsift/internal/testutil"
	"github.com/calebrow/fleetsift/pkg/models"
)

// fiveFileBatch trips the count threshold so Parse takes the worker path.
func fiveFileBatch() []Source {
	sources := make([]Source, 5)
	for i := range sources {
		sources[i] = Source{
			Name: fmt.Sprintf("file-%d.json", i),
			Data: []byte(fmt.Sprintf(`{"ComputerName":"PC-%03d","Model":"OptiPlex 7070"}`, i)),
		}
	}
	return sources
}

func TestWorkerPathObservationallyIdentical(t *testing.T) {
	p := NewParser(testutil.Logger())
	sources := fiveFileBatch()
	if !p.shouldOffload(sources) {
		t.Fatal("batch should trip the offload threshold")
	}

	var events []models.ParseProgress
	records, err := p.Parse(context.Background(), sources, Options{
		OnProgress: func(current, total int, fileName string) {
			events = append(events, models.ParseProgress{Current: current, Total: total, FileName: fileName})
		},
	})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if len(records) != 5 {
		t.Fatalf("got %d records, want 5", len(records))
	}
	for i, rec := range records {
		want := fmt.Sprintf("PC-%03d", i)
		if rec.ComputerName != want {
			t.Errorf("records[%d].ComputerName = %q, want %q (order must match source order)", i, rec.ComputerName, want)
		}
		if rec.Category != models.CategoryDesktop {
			t.Errorf("records[%d].Category = %q, want Desktop", i, rec.Category)
		}
	}

	if len(events) != 5 {
		t.Fatalf("got %d progress events, want 5", len(events))
	}
	for i, e := range events {
		if e.Current != i+1 || e.Total != 5 {
			t.Errorf("event %d = %+v, want current=%d total=5", i, e, i+1)
		}
	}
}

func TestWorkerPathMalformedSource(t *testing.T) {
	p := NewParser(testutil.Logger())
	sources := fiveFileBatch()
	sources[2].Data = []byte(`{{{`)

	records, err := p.Parse(context.Background(), sources, Options{})
	if records != nil {
		t.Errorf("records = %v, want nil", records)
	}

	var malformed *MalformedInputError
	if !errors.As(err, &malformed) {
		t.Fatalf("error type = %T, want *MalformedInputError", err)
	}
	if malformed.Source != "file-2.json" {
		t.Errorf("error names %q, want %q", malformed.Source, "file-2.json")
	}
}

func TestWorkerPathCancelledBeforeStart(t *testing.T) {
	p := NewParser(testutil.Logger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	progressCalls := 0
	records, err := p.Parse(ctx, fiveFileBatch(), Options{
		OnProgress: func(current, total int, fileName string) { progressCalls++ },
	})

	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("Parse() error = %v, want ErrCancelled", err)
	}
	if records != nil {
		t.Errorf("records = %v, want nil", records)
	}
	if progressCalls != 0 {
		t.Errorf("progress called %d times, want 0", progressCalls)
	}
}

func TestWorkerPathCancelledMidBatch(t *testing.T) {
	p := NewParser(testutil.Logger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	progressCalls := 0
	records, err := p.Parse(ctx, fiveFileBatch(), Options{
		OnProgress: func(current, total int, fileName string) {
			progressCalls++
			if current == 2 {
				cancel()
			}
		},
	})

	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("Parse() error = %v, want ErrCancelled", err)
	}
	if records != nil {
		t.Errorf("records = %v, want nil even if the worker had finished", records)
	}
	// Cancellation beats any message the worker buffered afterwards, so no
	// further progress is delivered.
	if progressCalls != 2 {
		t.Errorf("progress called %d times, want 2", progressCalls)
	}
}

func TestWorkerPathForcedByThresholdOverride(t *testing.T) {
	// Force the worker path for a tiny batch and confirm the external
	// contract is unchanged.
	p := NewParser(testutil.Logger(), WithOffloadThresholds(1, 0))

	records, err := p.Parse(context.Background(), []Source{
		{Name: "tiny.json", Data: []byte(`{"ComputerName":"T"}`)},
	}, Options{})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(records) != 1 || records[0].ComputerName != "T" {
		t.Fatalf("records = %+v, want one record named T", records)
	}
}
