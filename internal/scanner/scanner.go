// Package scanner runs one capture-recognize-dedupe pass over an area.
package scanner

import (
	"context"
	"image"
	"sync"

	"github.com/corona10/goimagehash"

	"github.com/screenvoice/platform/internal/area"
	"github.com/screenvoice/platform/internal/capture"
	"github.com/screenvoice/platform/internal/diag"
	"github.com/screenvoice/platform/internal/errdefs"
	"github.com/screenvoice/platform/internal/history"
	"github.com/screenvoice/platform/internal/ocr"
	"github.com/screenvoice/platform/internal/resilience"
	"github.com/screenvoice/platform/internal/settings"
	"github.com/screenvoice/platform/internal/trace"
)

// Outcome classifies a completed scan pass.
type Outcome string

const (
	OutcomeNovel         Outcome = "novel"          // new text committed to history
	OutcomeDuplicate     Outcome = "duplicate"      // same text as the area's latest record
	OutcomeEmpty         Outcome = "empty"          // no text found, or pipeline frozen
	OutcomeCaptureFailed Outcome = "capture_failed" // attempt abandoned
	OutcomeOcrFailed     Outcome = "ocr_failed"     // attempt abandoned
)

// Result is what one scan pass produced. Record is set only for
// OutcomeNovel; Err only for the failure outcomes.
type Result struct {
	Outcome Outcome
	Record  history.Record
	Text    string
	Err     error
}

// Scanner turns screen areas into history records. It is safe for
// concurrent use across areas; the scheduler guarantees at most one
// in-flight scan per area.
type Scanner struct {
	provider capture.Provider
	engine   ocr.Engine
	breaker  *resilience.Breaker
	hist     *history.Log
	store    *settings.Store
	sink     *diag.Sink

	mu       sync.Mutex
	lastHash map[string]*goimagehash.ImageHash
}

// New creates a scanner.
func New(provider capture.Provider, engine ocr.Engine, breaker *resilience.Breaker, hist *history.Log, store *settings.Store, sink *diag.Sink) *Scanner {
	return &Scanner{
		provider: provider,
		engine:   engine,
		breaker:  breaker,
		hist:     hist,
		store:    store,
		sink:     sink,
		lastHash: make(map[string]*goimagehash.ImageHash),
	}
}

// Scan runs one pass over the area. A frozen pipeline returns
// OutcomeEmpty without touching the capture provider. The returned error
// is non-nil only when ctx was cancelled; nothing is committed in that
// case.
func (s *Scanner) Scan(ctx context.Context, a area.Area) (Result, error) {
	ctx, span := trace.StartSpan(ctx, "scan")
	defer span.End()
	span.SetAttr("area_id", a.ID)

	log := trace.Logger(ctx)
	snap := s.store.Get()
	if snap.Frozen {
		return Result{Outcome: OutcomeEmpty}, nil
	}

	img, err := s.provider.Capture(ctx, a.Rect)
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		log.Warn("capture failed", "area_id", a.ID, "error", err)
		s.sink.Emit(diag.Event{Kind: diag.KindError, AreaID: a.ID, Message: err.Error()})
		return Result{Outcome: OutcomeCaptureFailed, Err: err}, nil
	}

	if snap.SkipUnchangedFrame && s.frameUnchanged(a.ID, img, snap.HashMaxDistance) {
		return Result{Outcome: OutcomeDuplicate}, nil
	}

	text, err := resilience.Call(s.breaker, func() (string, error) {
		return s.engine.Recognize(ctx, img, s.resolveParams(a, snap))
	})
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		log.Warn("ocr failed", "area_id", a.ID, "error", err)
		s.sink.Emit(diag.Event{Kind: diag.KindError, AreaID: a.ID, Message: err.Error()})
		return Result{Outcome: OutcomeOcrFailed, Err: errdefs.Wrap(err, errdefs.CodeOcrFailed, "recognize")}, nil
	}

	norm := history.Normalize(text)
	if norm == "" {
		return Result{Outcome: OutcomeEmpty}, nil
	}
	if !s.hist.IsNovel(a.ID, norm) {
		return Result{Outcome: OutcomeDuplicate, Text: norm}, nil
	}

	// A scan whose area was removed or rescheduled mid-flight must not
	// reach history.
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	rec := s.hist.Append(a.ID, text)
	log.Info("novel text", "area_id", a.ID, "seq", rec.Seq, "chars", len(norm))
	s.sink.Emit(diag.Event{
		Kind:    diag.KindScan,
		AreaID:  a.ID,
		Message: norm,
		Fields:  map[string]any{"seq": rec.Seq},
	})
	return Result{Outcome: OutcomeNovel, Record: rec, Text: norm}, nil
}

// Forget drops the cached frame hash for an area, forcing the next scan
// through OCR.
func (s *Scanner) Forget(areaID string) {
	s.mu.Lock()
	delete(s.lastHash, areaID)
	s.mu.Unlock()
}

// frameUnchanged compares the frame's perceptual hash against the
// previous one for the same area and remembers the new hash.
func (s *Scanner) frameUnchanged(areaID string, img image.Image, maxDistance int) bool {
	hash, err := goimagehash.PerceptionHash(img)
	if err != nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.lastHash[areaID]
	s.lastHash[areaID] = hash
	if prev == nil {
		return false
	}
	dist, err := prev.Distance(hash)
	if err != nil {
		return false
	}
	return dist <= maxDistance
}

// resolveParams layers the area's overrides over the global settings.
func (s *Scanner) resolveParams(a area.Area, snap settings.Settings) ocr.Params {
	p := snap.OCR
	if a.PageSegMode > 0 {
		p.PageSegMode = a.PageSegMode
	}
	if a.Preprocess != nil {
		p.Preprocess = *a.Preprocess
	}
	return p
}
