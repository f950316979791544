package layout

import (
	"testing"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/screenvoice/platform/internal/area"
	"github.com/screenvoice/platform/internal/errdefs"
	"github.com/screenvoice/platform/internal/ocr"
	"github.com/screenvoice/platform/internal/settings"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		t.Fatalf("open badger: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewStore(db)
}

func sampleLayout(name string) area.Layout {
	return area.Layout{Name: name, Areas: []area.Area{
		{ID: "a1", Name: "dialogue", Rect: area.Rect{X: 0, Y: 600, Width: 800, Height: 120}, Mode: area.AutoRead, PollIntervalMs: 1000, Enabled: true},
		{ID: "a2", Name: "menu", Rect: area.Rect{Width: 300, Height: 400}, Mode: area.Manual, TriggerBinding: "f5", Enabled: true},
	}}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := testStore(t)
	want := sampleLayout("rpg")

	if err := s.SaveLayout(want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := s.LoadLayout("rpg")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Name != "rpg" || len(got.Areas) != 2 {
		t.Fatalf("unexpected layout: %+v", got)
	}
	if got.Areas[1].TriggerBinding != "f5" {
		t.Errorf("area fields lost: %+v", got.Areas[1])
	}
}

func TestLoadMissingLayout(t *testing.T) {
	s := testStore(t)
	if _, err := s.LoadLayout("nope"); !errdefs.IsCode(err, errdefs.CodeNotFound) {
		t.Errorf("expected not_found, got %v", err)
	}
}

func TestSaveRejectsInvalidLayout(t *testing.T) {
	s := testStore(t)
	bad := area.Layout{Name: "bad", Areas: []area.Area{{ID: "a1", Rect: area.Rect{Width: 0, Height: 10}, Mode: area.AutoRead, PollIntervalMs: 100}}}

	if err := s.SaveLayout(bad); !errdefs.IsCode(err, errdefs.CodeCorruptLayout) {
		t.Errorf("expected corrupt_layout, got %v", err)
	}
	if names, _ := s.ListLayouts(); len(names) != 0 {
		t.Errorf("invalid layout must not be stored, got %v", names)
	}
}

func TestListLayouts(t *testing.T) {
	s := testStore(t)
	_ = s.SaveLayout(sampleLayout("one"))
	_ = s.SaveLayout(sampleLayout("two"))

	names, err := s.ListLayouts()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(names) != 2 {
		t.Fatalf("expected 2 layouts, got %v", names)
	}
}

func TestDeleteLayout(t *testing.T) {
	s := testStore(t)
	_ = s.SaveLayout(sampleLayout("gone"))

	if err := s.DeleteLayout("gone"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.LoadLayout("gone"); !errdefs.IsCode(err, errdefs.CodeNotFound) {
		t.Errorf("expected not_found after delete, got %v", err)
	}
}

func TestLastLayoutTracksSaves(t *testing.T) {
	s := testStore(t)

	if _, ok, err := s.LastLayout(); err != nil || ok {
		t.Fatalf("expected no last layout, got ok=%v err=%v", ok, err)
	}

	_ = s.SaveLayout(sampleLayout("session"))
	name, ok, err := s.LastLayout()
	if err != nil || !ok || name != "session" {
		t.Errorf("expected session, got %q ok=%v err=%v", name, ok, err)
	}

	if err := s.SetLastLayout("other"); err != nil {
		t.Fatalf("set last: %v", err)
	}
	if name, _, _ := s.LastLayout(); name != "other" {
		t.Errorf("expected other, got %q", name)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	s := testStore(t)

	if _, ok, err := s.LoadSettings(); err != nil || ok {
		t.Fatalf("expected no stored settings, got ok=%v err=%v", ok, err)
	}

	want := settings.Settings{
		OCR:           ocr.Params{Language: "eng", PageSegMode: 6},
		Voice:         settings.Voice{Name: "karen", Rate: 200},
		DedupWindow:   1,
		DefaultPollMs: 750,
	}
	if err := s.SaveSettings(want); err != nil {
		t.Fatalf("save settings: %v", err)
	}

	got, ok, err := s.LoadSettings()
	if err != nil || !ok {
		t.Fatalf("load settings: ok=%v err=%v", ok, err)
	}
	if got.OCR.PageSegMode != 6 || got.Voice.Name != "karen" || got.DefaultPollMs != 750 {
		t.Errorf("unexpected settings: %+v", got)
	}
}
