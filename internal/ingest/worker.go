package ingest

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/calebrow/fleetsift/pkg/models"
)

// The worker harness wraps the same pipeline in an isolated goroutine and a
// small typed message protocol: one request in, zero or more progress
// messages out, then exactly one terminal parsed or error message. Progress
// is forwarded verbatim to the caller's callback, so the worker path is
// observationally identical to the inline path.

// workerMessage is the discriminated union carried from worker to harness.
type workerMessage interface{ workerMessage() }

type progressMessage struct {
	Current  int
	Total    int
	FileName string
}

type parsedMessage struct {
	Devices []models.DeviceRecord
}

type errorMessage struct {
	Err error
}

func (progressMessage) workerMessage() {}
func (parsedMessage) workerMessage()   {}
func (errorMessage) workerMessage()    {}

// parseRequest is the single outbound message. The source buffers are handed
// over, not copied; the caller must not touch them until Parse returns.
type parseRequest struct {
	files   []Source
	mapping *models.LocationMapping
}

// parseViaWorker spawns the worker, forwards its progress, and resolves on
// the terminal message. If the context is cancelled first, the harness
// abandons the worker and returns ErrCancelled regardless of how much
// progress had been reported.
func (p *Parser) parseViaWorker(ctx context.Context, sources []Source, opts Options) ([]models.DeviceRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCancelled, err)
	}

	// Buffered so an abandoned worker can drain its remaining messages and
	// exit without a receiver.
	msgs := make(chan workerMessage, len(sources)+1)

	workerCtx, stopWorker := context.WithCancel(ctx)
	defer stopWorker()

	go p.runWorker(workerCtx, parseRequest{files: sources, mapping: opts.Mapping}, msgs)

	for {
		// Checked before the select so a cancellation raised inside the
		// progress callback wins over any already-buffered message,
		// including a terminal one.
		if err := ctx.Err(); err != nil {
			stopWorker()
			return nil, fmt.Errorf("%w: %v", ErrCancelled, err)
		}

		select {
		case <-ctx.Done():
			stopWorker()
			return nil, fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())
		case msg := <-msgs:
			switch m := msg.(type) {
			case progressMessage:
				if opts.OnProgress != nil {
					opts.OnProgress(m.Current, m.Total, m.FileName)
				}
			case parsedMessage:
				return m.Devices, nil
			case errorMessage:
				return nil, m.Err
			}
		}
	}
}

// runWorker executes the pipeline inside the isolated goroutine. Any panic
// is recovered and relayed as a structured error message instead of
// crashing the host.
func (p *Parser) runWorker(ctx context.Context, req parseRequest, msgs chan<- workerMessage) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("ingest worker panic", zap.Any("panic", r))
			msgs <- errorMessage{Err: fmt.Errorf("ingest worker: %v", r)}
		}
	}()

	records, err := p.parseInline(ctx, req.files, Options{
		Mapping: req.mapping,
		OnProgress: func(current, total int, fileName string) {
			msgs <- progressMessage{Current: current, Total: total, FileName: fileName}
		},
	})
	if err != nil {
		msgs <- errorMessage{Err: err}
		return
	}
	msgs <- parsedMessage{Devices: records}
}
