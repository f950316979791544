// Package scheduler drives scans: poll timers for auto-read areas,
// hotkey triggers for manual ones, at most one in-flight scan per area.
package scheduler

import (
	"container/heap"
	"context"
	"time"

	"github.com/screenvoice/platform/internal/area"
	"github.com/screenvoice/platform/internal/diag"
	"github.com/screenvoice/platform/internal/scanner"
	"github.com/screenvoice/platform/internal/settings"
	"github.com/screenvoice/platform/internal/speech"
	"github.com/screenvoice/platform/internal/trace"
	"github.com/screenvoice/platform/internal/trigger"
)

// Scans runs one pass over an area.
type Scans interface {
	Scan(ctx context.Context, a area.Area) (scanner.Result, error)
	Forget(areaID string)
}

// Speaker queues utterances.
type Speaker interface {
	Enqueue(speech.Request)
	CancelAll()
}

// areaState tracks one area inside the loop. gen is bumped whenever the
// area is replaced, removed, or frozen mid-scan, so completions and
// timers from the old incarnation are ignored. runID is nonzero while a
// scan goroutine is running; it stays set across retire so the area's
// slot remains occupied until that goroutine actually reports back,
// even when its result will be discarded.
type areaState struct {
	area     area.Area
	gen      uint64
	runID    uint64
	pending  bool // a trigger or timer arrived mid-scan
	pendPrio speech.Priority
	cancel   context.CancelFunc
}

type scanDone struct {
	areaID string
	gen    uint64
	runID  uint64
	prio   speech.Priority
	res    scanner.Result
	err    error
}

// Scheduler owns the scan loop. All state lives inside Run's goroutine;
// external callers talk to it through command closures, which execute
// with the loop's own context so their scans outlive the caller.
type Scheduler struct {
	reg   *area.Registry
	scans Scans
	disp  Speaker
	store *settings.Store
	src   trigger.Source
	sink  *diag.Sink

	states  map[string]*areaState
	timers  fireHeap
	nextRun uint64
	doneCh  chan scanDone
	cmds    chan func(context.Context)
}

// New creates a scheduler. src may be nil when hotkeys are disabled.
func New(reg *area.Registry, scans Scans, disp Speaker, store *settings.Store, src trigger.Source, sink *diag.Sink) *Scheduler {
	return &Scheduler{
		reg:    reg,
		scans:  scans,
		disp:   disp,
		store:  store,
		src:    src,
		sink:   sink,
		states: make(map[string]*areaState),
		doneCh: make(chan scanDone, 64),
		cmds:   make(chan func(context.Context), 16),
	}
}

// Run processes timers, triggers, registry changes, and scan completions
// until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	for _, a := range s.reg.All() {
		s.adopt(a)
	}

	var triggerCh <-chan string
	if s.src != nil {
		triggerCh = s.src.Events()
	}

	for {
		var timerC <-chan time.Time
		var timer *time.Timer
		if next, ok := s.timers.peek(); ok {
			timer = time.NewTimer(time.Until(next.at))
			timerC = timer.C
		}

		select {
		case <-ctx.Done():
			s.stopTimer(timer)
			s.cancelInFlight()
			return
		case change := <-s.reg.Events():
			s.stopTimer(timer)
			s.handleChange(ctx, change)
		case key := <-triggerCh:
			s.stopTimer(timer)
			s.handleTrigger(ctx, key)
		case <-timerC:
			s.fireDue(ctx)
		case d := <-s.doneCh:
			s.stopTimer(timer)
			s.handleDone(ctx, d)
		case cmd := <-s.cmds:
			s.stopTimer(timer)
			cmd(ctx)
		}
	}
}

func (s *Scheduler) stopTimer(t *time.Timer) {
	if t != nil {
		t.Stop()
	}
}

// TriggerScan forces a manual-priority scan of the area, regardless of
// its mode. Used by the API's scan endpoint; the scan runs under the
// scheduler's context, not the HTTP request's, so it survives the
// response being sent.
func (s *Scheduler) TriggerScan(id string) {
	s.post(func(ctx context.Context) {
		if st, ok := s.states[id]; ok && !s.store.Get().Frozen {
			s.startScan(ctx, st, speech.PriorityManual)
		}
	})
}

// SetFrozen toggles the global freeze. Freezing cancels in-flight scans
// and queued speech; unfreezing re-arms auto areas from now, without
// replaying polls missed while frozen. Speech is cancelled before this
// returns; scan teardown happens on the loop.
func (s *Scheduler) SetFrozen(frozen bool) {
	s.store.SetFrozen(frozen)
	if frozen {
		s.disp.CancelAll()
	}
	s.sink.Emit(diag.Event{Kind: diag.KindState, Message: "freeze", Fields: map[string]any{"frozen": frozen}})
	s.post(func(context.Context) {
		if frozen {
			s.timers = s.timers[:0]
			for _, st := range s.states {
				s.retire(st)
			}
			return
		}
		for _, st := range s.states {
			s.armNow(st)
		}
	})
}

func (s *Scheduler) post(cmd func(context.Context)) {
	s.cmds <- cmd
}

// adopt registers a fresh state for the area and arms its first poll.
func (s *Scheduler) adopt(a area.Area) {
	st := &areaState{area: a, gen: 1}
	s.states[a.ID] = st
	if !s.store.Get().Frozen {
		s.armNow(st)
	}
}

// armNow schedules an immediate poll for enabled auto-read areas.
func (s *Scheduler) armNow(st *areaState) {
	if st.area.Mode == area.AutoRead && st.area.Enabled {
		heap.Push(&s.timers, fire{at: time.Now(), areaID: st.area.ID, gen: st.gen})
	}
}

// armNext schedules the next poll one interval out.
func (s *Scheduler) armNext(st *areaState) {
	if st.area.Mode != area.AutoRead || !st.area.Enabled {
		return
	}
	interval := time.Duration(st.area.PollIntervalMs) * time.Millisecond
	heap.Push(&s.timers, fire{at: time.Now().Add(interval), areaID: st.area.ID, gen: st.gen})
}

func (s *Scheduler) handleChange(ctx context.Context, c area.Change) {
	switch c.Kind {
	case area.ChangeAdded:
		// Areas registered before Run started are already adopted.
		if _, ok := s.states[c.Area.ID]; !ok {
			s.adopt(c.Area)
		}
	case area.ChangeUpdated:
		if st, ok := s.states[c.Area.ID]; ok {
			s.retire(st)
			st.area = c.Area
			if !s.store.Get().Frozen {
				s.armNow(st)
			}
		} else {
			s.adopt(c.Area)
		}
	case area.ChangeRemoved:
		if st, ok := s.states[c.Area.ID]; ok {
			s.retire(st)
			delete(s.states, c.Area.ID)
			s.scans.Forget(c.Area.ID)
		}
	case area.ChangeReloaded:
		s.disp.CancelAll()
		for id, st := range s.states {
			s.retire(st)
			delete(s.states, id)
			s.scans.Forget(id)
		}
		s.timers = s.timers[:0]
		for _, a := range s.reg.All() {
			s.adopt(a)
		}
	}
}

// retire invalidates the state's in-flight work and pending timers. It
// deliberately leaves runID alone: a scan goroutine that ignores its
// cancelled context is still running, and the area stays busy until it
// reports in.
func (s *Scheduler) retire(st *areaState) {
	st.gen++
	st.pending = false
	st.pendPrio = 0
	if st.cancel != nil {
		st.cancel()
		st.cancel = nil
	}
}

func (s *Scheduler) handleTrigger(ctx context.Context, key string) {
	if s.store.Get().Frozen {
		return
	}
	for _, st := range s.states {
		if st.area.Mode == area.Manual && st.area.Enabled && st.area.TriggerBinding == key {
			s.startScan(ctx, st, speech.PriorityManual)
		}
	}
}

// fireDue pops every timer entry that is due and starts the scans whose
// generation is still current.
func (s *Scheduler) fireDue(ctx context.Context) {
	now := time.Now()
	for {
		f, ok := s.timers.peek()
		if !ok || f.at.After(now) {
			return
		}
		heap.Pop(&s.timers)
		st, ok := s.states[f.areaID]
		if !ok || st.gen != f.gen {
			continue
		}
		s.startScan(ctx, st, speech.PriorityAuto)
	}
}

// startScan launches a scan goroutine unless one is already in flight,
// in which case the request coalesces into a single follow-up.
func (s *Scheduler) startScan(ctx context.Context, st *areaState, prio speech.Priority) {
	if st.runID != 0 {
		st.pending = true
		if prio > st.pendPrio {
			st.pendPrio = prio
		}
		return
	}
	scanCtx, cancel := context.WithCancel(ctx)
	s.nextRun++
	runID := s.nextRun
	st.runID = runID
	st.cancel = cancel

	a := st.area
	gen := st.gen
	go func() {
		defer cancel()
		res, err := s.scans.Scan(scanCtx, a)
		s.doneCh <- scanDone{areaID: a.ID, gen: gen, runID: runID, prio: prio, res: res, err: err}
	}()
}

func (s *Scheduler) handleDone(ctx context.Context, d scanDone) {
	st, ok := s.states[d.areaID]
	if !ok || st.runID != d.runID {
		return // the area was removed mid-scan
	}
	st.runID = 0
	st.cancel = nil

	snap := s.store.Get()
	stale := st.gen != d.gen

	if d.err == nil && d.res.Outcome == scanner.OutcomeNovel && !stale && !snap.Frozen {
		s.disp.Enqueue(speech.Request{
			Text:     d.res.Record.Normalized,
			AreaID:   d.areaID,
			Priority: d.prio,
			Voice:    resolveVoice(st.area, snap),
		})
	} else if d.err != nil {
		trace.Logger(ctx).Debug("scan discarded", "area_id", d.areaID, "error", d.err)
	}

	if snap.Frozen {
		st.pending = false
		return
	}
	if st.pending {
		st.pending = false
		prio := st.pendPrio
		st.pendPrio = 0
		s.startScan(ctx, st, prio)
		return
	}
	if !stale {
		s.armNext(st)
	}
}

func (s *Scheduler) cancelInFlight() {
	for _, st := range s.states {
		s.retire(st)
	}
}

// resolveVoice layers the area's voice overrides over the global voice.
func resolveVoice(a area.Area, snap settings.Settings) settings.Voice {
	v := snap.Voice
	if a.Voice != "" {
		v.Name = a.Voice
	}
	if a.Rate > 0 {
		v.Rate = a.Rate
	}
	return v
}
