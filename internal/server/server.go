// Package server exposes the control API and the websocket event feed.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/screenvoice/platform/internal/area"
	"github.com/screenvoice/platform/internal/diag"
	"github.com/screenvoice/platform/internal/errdefs"
	"github.com/screenvoice/platform/internal/history"
	"github.com/screenvoice/platform/internal/scheduler"
	"github.com/screenvoice/platform/internal/settings"
	"github.com/screenvoice/platform/internal/speech"
	"github.com/screenvoice/platform/internal/trace"
)

// Layouts is the persistence surface the handlers need.
type Layouts interface {
	SaveLayout(l area.Layout) error
	LoadLayout(name string) (area.Layout, error)
	DeleteLayout(name string) error
	ListLayouts() ([]string, error)
	SetLastLayout(name string) error
	SaveSettings(v settings.Settings) error
}

// Server handles HTTP and websocket connections.
type Server struct {
	reg     *area.Registry
	hist    *history.Log
	sched   *scheduler.Scheduler
	disp    scheduler.Speaker
	store   *settings.Store
	layouts Layouts
	sink    *diag.Sink
}

// New creates a server.
func New(reg *area.Registry, hist *history.Log, sched *scheduler.Scheduler, disp scheduler.Speaker, store *settings.Store, layouts Layouts, sink *diag.Sink) *Server {
	return &Server{
		reg:     reg,
		hist:    hist,
		sched:   sched,
		disp:    disp,
		store:   store,
		layouts: layouts,
		sink:    sink,
	}
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/ws", s.handleWebSocket)

	mux.HandleFunc("GET /api/areas", s.handleAreaList)
	mux.HandleFunc("POST /api/areas", s.handleAreaAdd)
	mux.HandleFunc("PUT /api/areas/{id}", s.handleAreaUpdate)
	mux.HandleFunc("DELETE /api/areas/{id}", s.handleAreaRemove)

	mux.HandleFunc("POST /api/scan/{id}", s.handleScan)

	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.HandleFunc("POST /api/history/{seq}/replay", s.handleReplay)

	mux.HandleFunc("GET /api/layouts", s.handleLayoutList)
	mux.HandleFunc("POST /api/layouts/{name}/save", s.handleLayoutSave)
	mux.HandleFunc("POST /api/layouts/{name}/load", s.handleLayoutLoad)
	mux.HandleFunc("DELETE /api/layouts/{name}", s.handleLayoutDelete)

	mux.HandleFunc("POST /api/freeze", s.handleFreeze)
	mux.HandleFunc("GET /api/settings", s.handleSettingsGet)
	mux.HandleFunc("PUT /api/settings", s.handleSettingsPut)

	return corsMiddleware(trace.Middleware(mux))
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps error codes onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch errdefs.CodeOf(err) {
	case errdefs.CodeNotFound:
		status = http.StatusNotFound
	case errdefs.CodeInvalidAreaConfig:
		status = http.StatusBadRequest
	case errdefs.CodeCorruptLayout:
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, map[string]string{
		"error": err.Error(),
		"code":  string(errdefs.CodeOf(err)),
	})
}

func (s *Server) handleAreaList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"areas":  s.reg.All(),
		"layout": s.reg.ActiveLayout(),
	})
}

func (s *Server) handleAreaAdd(w http.ResponseWriter, r *http.Request) {
	var a area.Area
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
		writeError(w, errdefs.Wrap(err, errdefs.CodeInvalidAreaConfig, "decode area"))
		return
	}
	added, err := s.reg.Add(a)
	if err != nil {
		writeError(w, err)
		return
	}
	trace.Logger(r.Context()).Info("area added", "area_id", added.ID, "name", added.Name)
	writeJSON(w, http.StatusCreated, added)
}

func (s *Server) handleAreaUpdate(w http.ResponseWriter, r *http.Request) {
	var a area.Area
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
		writeError(w, errdefs.Wrap(err, errdefs.CodeInvalidAreaConfig, "decode area"))
		return
	}
	updated, err := s.reg.Update(r.PathValue("id"), a)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleAreaRemove(w http.ResponseWriter, r *http.Request) {
	if err := s.reg.Remove(r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := s.reg.Get(id); !ok {
		writeError(w, errdefs.Newf(errdefs.CodeNotFound, "area %s", id))
		return
	}
	s.sched.TriggerScan(id)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "scan_requested"})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, errdefs.Newf(errdefs.CodeInvalidAreaConfig, "bad limit %q", raw))
			return
		}
		limit = n
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": s.hist.Tail(limit)})
}

// handleReplay re-speaks a past record at manual priority, with the
// owning area's voice if it still exists.
func (s *Server) handleReplay(w http.ResponseWriter, r *http.Request) {
	seq, err := strconv.ParseUint(r.PathValue("seq"), 10, 64)
	if err != nil {
		writeError(w, errdefs.Newf(errdefs.CodeNotFound, "bad seq %q", r.PathValue("seq")))
		return
	}
	rec, ok := s.hist.Replay(seq)
	if !ok {
		writeError(w, errdefs.Newf(errdefs.CodeNotFound, "record %d", seq))
		return
	}

	snap := s.store.Get()
	voice := snap.Voice
	if a, ok := s.reg.Get(rec.AreaID); ok {
		if a.Voice != "" {
			voice.Name = a.Voice
		}
		if a.Rate > 0 {
			voice.Rate = a.Rate
		}
	}
	s.disp.Enqueue(speech.Request{
		Text:     rec.Normalized,
		AreaID:   rec.AreaID,
		Priority: speech.PriorityManual,
		Voice:    voice,
	})
	writeJSON(w, http.StatusAccepted, map[string]any{"status": "replaying", "seq": seq})
}

func (s *Server) handleLayoutList(w http.ResponseWriter, r *http.Request) {
	names, err := s.layouts.ListLayouts()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"layouts": names,
		"active":  s.reg.ActiveLayout(),
	})
}

func (s *Server) handleLayoutSave(w http.ResponseWriter, r *http.Request) {
	l := s.reg.SaveLayout(r.PathValue("name"))
	if err := s.layouts.SaveLayout(l); err != nil {
		writeError(w, err)
		return
	}
	trace.Logger(r.Context()).Info("layout saved", "name", l.Name, "areas", len(l.Areas))
	writeJSON(w, http.StatusOK, l)
}

func (s *Server) handleLayoutLoad(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	l, err := s.layouts.LoadLayout(name)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.reg.LoadLayout(l); err != nil {
		writeError(w, err)
		return
	}
	if err := s.layouts.SetLastLayout(name); err != nil {
		trace.Logger(r.Context()).Warn("failed to record last layout", "error", err)
	}
	trace.Logger(r.Context()).Info("layout loaded", "name", name, "areas", len(l.Areas))
	writeJSON(w, http.StatusOK, l)
}

func (s *Server) handleLayoutDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.layouts.DeleteLayout(r.PathValue("name")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleFreeze(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Frozen bool `json:"frozen"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errdefs.Wrap(err, errdefs.CodeInvalidAreaConfig, "decode freeze request"))
		return
	}
	s.sched.SetFrozen(req.Frozen)
	writeJSON(w, http.StatusOK, map[string]bool{"frozen": req.Frozen})
}

func (s *Server) handleSettingsGet(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Get())
}

// handleSettingsPut replaces the settings snapshot and persists it. The
// freeze flag is owned by the freeze endpoint and survives unchanged.
func (s *Server) handleSettingsPut(w http.ResponseWriter, r *http.Request) {
	var in settings.Settings
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, errdefs.Wrap(err, errdefs.CodeInvalidAreaConfig, "decode settings"))
		return
	}
	updated := s.store.Update(func(cur settings.Settings) settings.Settings {
		in.Frozen = cur.Frozen
		return in
	})
	if err := s.layouts.SaveSettings(updated); err != nil {
		trace.Logger(r.Context()).Warn("failed to persist settings", "error", err)
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		trace.Logger(r.Context()).Error("websocket accept error", "error", err)
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()

	ctx := r.Context()
	log := trace.Logger(ctx)
	log.Info("websocket connected", "remote", r.RemoteAddr)

	events, cancel := s.sink.Subscribe()
	defer cancel()

	// Reads are only needed to notice the peer going away.
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-readDone:
			log.Info("websocket disconnected", "remote", r.RemoteAddr)
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			if err := wsjson.Write(ctx, conn, e); err != nil {
				if !errors.Is(err, context.Canceled) {
					log.Debug("websocket write error", "error", err)
				}
				return
			}
		}
	}
}
