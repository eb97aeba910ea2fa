// Package ingest orchestrates the decode, normalize, validate pipeline over
// a batch of named byte sources. Small batches run inline on the calling
// goroutine; batches over the offload thresholds are handed to an isolated
// worker so the caller's event loop is never blocked.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/calebrow/fleetsift/internal/decode"
	"github.com/calebrow/fleetsift/internal/normalize"
	"github.com/calebrow/fleetsift/pkg/models"
)

// Offload thresholds: combined payload above DefaultOffloadBytes or more
// than DefaultOffloadFiles sources delegates to the worker path.
const (
	DefaultOffloadBytes = 1 << 20
	DefaultOffloadFiles = 3
)

// Source is one named byte buffer to ingest. The origin (local file picker,
// sync download) is the caller's concern. Buffers handed to Parse are owned
// by the pipeline until it returns; callers must not reuse them.
type Source struct {
	Name string
	Data []byte
}

// ProgressFunc receives one event per completed source, in source order.
type ProgressFunc func(current, total int, fileName string)

// Options carries per-call inputs to Parse.
type Options struct {
	Mapping    *models.LocationMapping
	OnProgress ProgressFunc
}

// Parser runs the ingestion pipeline. Safe for concurrent use: each Parse
// call owns its own buffers and result slice.
type Parser struct {
	norm         *normalize.Normalizer
	logger       *zap.Logger
	metrics      *Metrics
	offloadBytes int
	offloadFiles int
}

// ParserOption customizes a Parser.
type ParserOption func(*Parser)

// WithNormalizer substitutes the record normalizer (tests inject alternate
// lookup tables this way).
func WithNormalizer(n *normalize.Normalizer) ParserOption {
	return func(p *Parser) { p.norm = n }
}

// WithOffloadThresholds overrides the worker-offload decision thresholds.
func WithOffloadThresholds(maxBytes, maxFiles int) ParserOption {
	return func(p *Parser) {
		p.offloadBytes = maxBytes
		p.offloadFiles = maxFiles
	}
}

// WithMetrics attaches ingestion counters.
func WithMetrics(m *Metrics) ParserOption {
	return func(p *Parser) { p.metrics = m }
}

// NewParser creates a Parser with default tables and thresholds.
func NewParser(logger *zap.Logger, opts ...ParserOption) *Parser {
	p := &Parser{
		norm:         normalize.New(),
		logger:       logger,
		offloadBytes: DefaultOffloadBytes,
		offloadFiles: DefaultOffloadFiles,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse ingests the sources in order and returns every canonical record
// they produce. The first source with malformed outer JSON fails the whole
// batch with an error naming it. Cancellation is cooperative, checked at
// file boundaries, and returns ErrCancelled with no partial results.
func (p *Parser) Parse(ctx context.Context, sources []Source, opts Options) ([]models.DeviceRecord, error) {
	if p.shouldOffload(sources) {
		if p.metrics != nil {
			p.metrics.WorkerOffloads.Inc()
		}
		p.logger.Debug("delegating ingest batch to worker",
			zap.Int("sources", len(sources)),
		)
		return p.parseViaWorker(ctx, sources, opts)
	}
	return p.parseInline(ctx, sources, opts)
}

// shouldOffload applies the size/count heuristic.
func (p *Parser) shouldOffload(sources []Source) bool {
	if len(sources) > p.offloadFiles {
		return true
	}
	total := 0
	for _, s := range sources {
		total += len(s.Data)
	}
	return total > p.offloadBytes
}

// parseInline processes sources on the calling goroutine.
func (p *Parser) parseInline(ctx context.Context, sources []Source, opts Options) ([]models.DeviceRecord, error) {
	records := []models.DeviceRecord{}
	total := len(sources)

	for i, src := range sources {
		select {
		case <-ctx.Done():
			p.logger.Info("ingest cancelled", zap.Int("completed", i), zap.Int("total", total))
			return nil, fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())
		default:
		}

		recs, err := p.parseOne(src, opts.Mapping)
		if err != nil {
			if p.metrics != nil {
				p.metrics.ParseFailures.Inc()
			}
			return nil, err
		}
		records = append(records, recs...)

		if p.metrics != nil {
			p.metrics.SourcesProcessed.Inc()
			p.metrics.RecordsNormalized.Add(float64(len(recs)))
		}
		if opts.OnProgress != nil {
			opts.OnProgress(i+1, total, src.Name)
		}
	}

	return records, nil
}

// parseOne runs decode -> JSON parse -> normalize -> validate for a single
// source. The source may hold one object or an array of objects.
func (p *Parser) parseOne(src Source, mapping *models.LocationMapping) ([]models.DeviceRecord, error) {
	text := decode.Bytes(src.Data)

	var payload any
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return nil, &MalformedInputError{Source: src.Name, Err: fmt.Errorf("invalid JSON: %w", err)}
	}

	switch t := payload.(type) {
	case map[string]any:
		return []models.DeviceRecord{p.normalizeOne(t, mapping)}, nil
	case []any:
		records := make([]models.DeviceRecord, 0, len(t))
		for _, el := range t {
			obj, ok := el.(map[string]any)
			if !ok {
				// Non-object array elements degrade to nothing rather than
				// failing the batch.
				p.logger.Warn("skipping non-object element", zap.String("source", src.Name))
				continue
			}
			records = append(records, p.normalizeOne(obj, mapping))
		}
		return records, nil
	default:
		return nil, &MalformedInputError{Source: src.Name, Err: fmt.Errorf("expected object or array, got %T", payload)}
	}
}

func (p *Parser) normalizeOne(raw map[string]any, mapping *models.LocationMapping) models.DeviceRecord {
	return normalize.ValidateRecord(p.norm.Normalize(raw, mapping))
}
