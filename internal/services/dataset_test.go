package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	types "github.com/nlp-tlp/quickgraph-sub000/internal/domain"
	"github.com/nlp-tlp/quickgraph-sub000/internal/platform/dbctx"
)

func defaultFilters() DatasetFilters {
	return DatasetFilters{Limit: 10}
}

func seedSearchCorpus(w *world) []uuid.UUID {
	docs := []uuid.UUID{
		w.addItem("John replaced the pump", "John", "replaced", "the", "pump"),
		w.addItem("the seal was checked by john yesterday", "the", "seal", "was", "checked", "by", "john", "yesterday"),
		w.addItem("report filed by john l smith", "report", "filed", "by", "john", "l", "smith"),
		w.addItem("pump seal replaced", "pump", "seal", "replaced"),
	}
	w.addAnnotator("ann1", types.RoleAnnotator, docs...)
	return docs
}

func TestFilterSearchTermMatching(t *testing.T) {
	w := newWorld(t)
	w.addProject([]string{"Item"}, nil)
	seedSearchCorpus(w)
	svc := w.datasetService(nil)

	cases := []struct {
		search    string
		wantItems int
		wantPages int
	}{
		{"john", 3, 1},
		{"John", 3, 1},
		{"john l smith", 1, 1},
		{"random phrase", 0, 0},
		{"john, pump", 1, 1}, // conjunction of comma-separated terms
		{"smit", 0, 0},       // whole-word only
	}
	for _, tc := range cases {
		t.Run(tc.search, func(t *testing.T) {
			f := defaultFilters()
			f.Search = tc.search
			out, err := svc.Filter(context.Background(), w.projectID, "ann1", f)
			if err != nil {
				t.Fatalf("Filter: %v", err)
			}
			if out.TotalItems != tc.wantItems {
				t.Fatalf("total items: want=%d got=%d", tc.wantItems, out.TotalItems)
			}
			if out.TotalPages != tc.wantPages {
				t.Fatalf("total pages: want=%d got=%d", tc.wantPages, out.TotalPages)
			}
			if len(out.Items) != tc.wantItems {
				t.Fatalf("page size: want=%d got=%d", tc.wantItems, len(out.Items))
			}
		})
	}
}

func TestFilterPagination(t *testing.T) {
	w := newWorld(t)
	w.addProject([]string{"Item"}, nil)
	var docs []uuid.UUID
	for i := 0; i < 7; i++ {
		docs = append(docs, w.addItem("pump inspection", "pump", "inspection"))
	}
	w.addAnnotator("ann1", types.RoleAnnotator, docs...)
	svc := w.datasetService(nil)

	f := DatasetFilters{Limit: 3}
	out, err := svc.Filter(context.Background(), w.projectID, "ann1", f)
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	if out.TotalItems != 7 || out.TotalPages != 3 {
		t.Fatalf("totals: want items=7 pages=3, got items=%d pages=%d", out.TotalItems, out.TotalPages)
	}
	if len(out.Items) != 3 {
		t.Fatalf("first page: want=3 got=%d", len(out.Items))
	}
	// Scope order is preserved across pages.
	if out.Items[0].ID != docs[0].String() {
		t.Fatalf("first page must start at scope position 0")
	}

	f.Skip = 2
	out, err = svc.Filter(context.Background(), w.projectID, "ann1", f)
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	if len(out.Items) != 1 {
		t.Fatalf("last page: want=1 got=%d", len(out.Items))
	}
	if out.Items[0].ID != docs[6].String() {
		t.Fatalf("last page must hold the final document")
	}

	f.Skip = 5
	out, err = svc.Filter(context.Background(), w.projectID, "ann1", f)
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	if len(out.Items) != 0 {
		t.Fatalf("page past the end: want=0 got=%d", len(out.Items))
	}
}

func TestFilterValidation(t *testing.T) {
	w := newWorld(t)
	w.addProject([]string{"Item"}, nil)
	doc := w.addItem("pump", "pump")
	w.addAnnotator("ann1", types.RoleAnnotator, doc)
	svc := w.datasetService(nil)

	cases := []struct {
		name string
		mut  func(*DatasetFilters)
	}{
		{"limit zero", func(f *DatasetFilters) { f.Limit = 0 }},
		{"limit too large", func(f *DatasetFilters) { f.Limit = 21 }},
		{"negative skip", func(f *DatasetFilters) { f.Skip = -1 }},
		{"bad save state", func(f *DatasetFilters) { f.SaveState = "sometimes" }},
		{"bad quality", func(f *DatasetFilters) { f.Quality = "great" }},
		{"bad relations", func(f *DatasetFilters) { f.Relations = "maybe" }},
		{"bad flags", func(f *DatasetFilters) { f.Flags = "bogus" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := defaultFilters()
			tc.mut(&f)
			if _, err := svc.Filter(context.Background(), w.projectID, "ann1", f); !errors.Is(err, types.ErrInvalidFilter) {
				t.Fatalf("want ErrInvalidFilter, got %v", err)
			}
		})
	}
}

func TestFilterPredicates(t *testing.T) {
	w := newWorld(t)
	w.addProject([]string{"Item"}, []string{"hasPart"})
	saved := w.addItem("pump one", "pump", "one")
	unsaved := w.addItem("pump two", "pump", "two")
	flagged := w.addItem("pump three", "pump", "three")
	clustered := w.addItem("pump four", "pump", "four")
	w.addAnnotator("ann1", types.RoleAnnotator, saved, unsaved, flagged, clustered)

	w.saveItem("ann1", saved)
	w.store.flags = append(w.store.flags, &types.ItemFlag{
		ID: uuid.New(), DatasetItemID: flagged, Username: "ann1", State: types.FlagIssue,
	})
	cluster := 7
	w.store.items[clustered].ClusterID = &cluster

	accepted := w.addEntity("ann1", saved, "1", 0, 0, false)
	w.addEntity("ann1", unsaved, "1", 0, 0, true)
	tgt := w.addEntity("ann1", saved, "1", 1, 1, false)
	w.addRelation("ann1", saved, "1", accepted, tgt, false)

	svc := w.datasetService(nil)
	run := func(t *testing.T, f DatasetFilters) []ItemView {
		t.Helper()
		out, err := svc.Filter(context.Background(), w.projectID, "ann1", f)
		if err != nil {
			t.Fatalf("Filter: %v", err)
		}
		return out.Items
	}

	t.Run("saved only", func(t *testing.T) {
		f := defaultFilters()
		f.SaveState = SaveStateSaved
		items := run(t, f)
		if len(items) != 1 || items[0].ID != saved.String() {
			t.Fatalf("want only the saved document, got %+v", items)
		}
		if !items[0].Saved {
			t.Fatalf("saved view flag not set")
		}
	})

	t.Run("unsaved only", func(t *testing.T) {
		f := defaultFilters()
		f.SaveState = SaveStateUnsaved
		if items := run(t, f); len(items) != 3 {
			t.Fatalf("want=3 got=%d", len(items))
		}
	})

	t.Run("quality suggested", func(t *testing.T) {
		f := defaultFilters()
		f.Quality = QualitySuggested
		items := run(t, f)
		if len(items) != 1 || items[0].ID != unsaved.String() {
			t.Fatalf("want only the document with suggested markup, got %+v", items)
		}
	})

	t.Run("has relations", func(t *testing.T) {
		f := defaultFilters()
		f.Relations = RelationsHas
		items := run(t, f)
		if len(items) != 1 || items[0].ID != saved.String() {
			t.Fatalf("want only the document with a relation, got %+v", items)
		}
		if len(items[0].Relations) != 1 {
			t.Fatalf("relation missing from view")
		}
	})

	t.Run("flag filter", func(t *testing.T) {
		f := defaultFilters()
		f.Flags = types.FlagIssue
		items := run(t, f)
		if len(items) != 1 || items[0].ID != flagged.String() {
			t.Fatalf("want only the flagged document, got %+v", items)
		}
	})

	t.Run("no flags", func(t *testing.T) {
		f := defaultFilters()
		f.Flags = FlagsNone
		if items := run(t, f); len(items) != 3 {
			t.Fatalf("want=3 got=%d", len(items))
		}
	})

	t.Run("cluster", func(t *testing.T) {
		f := defaultFilters()
		f.ClusterID = &cluster
		items := run(t, f)
		if len(items) != 1 || items[0].ID != clustered.String() {
			t.Fatalf("want only the clustered document, got %+v", items)
		}
	})

	t.Run("explicit subset", func(t *testing.T) {
		f := defaultFilters()
		f.ItemIDs = []uuid.UUID{saved, flagged}
		if items := run(t, f); len(items) != 2 {
			t.Fatalf("want=2 got=%d", len(items))
		}
	})

	t.Run("empty lists are explicit", func(t *testing.T) {
		f := defaultFilters()
		for _, item := range run(t, f) {
			if item.Entities == nil || item.Relations == nil || item.Comments == nil || item.Flags == nil {
				t.Fatalf("view lists must never be nil: %+v", item)
			}
		}
	})
}

func TestFilterCommentsHonorDisabledDiscussion(t *testing.T) {
	w := newWorld(t)
	w.addProject([]string{"Item"}, nil)
	doc := w.addItem("pump", "pump")
	w.addAnnotator("ann1", types.RoleAnnotator, doc)
	w.store.comments = append(w.store.comments,
		&types.SocialComment{ID: uuid.New(), DatasetItemID: doc, Username: "ann1", Text: "mine"},
		&types.SocialComment{ID: uuid.New(), DatasetItemID: doc, Username: "ann2", Text: "theirs"},
	)
	svc := w.datasetService(nil)

	out, err := svc.Filter(context.Background(), w.projectID, "ann1", defaultFilters())
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	if got := len(out.Items[0].Comments); got != 2 {
		t.Fatalf("open discussion: want=2 comments got=%d", got)
	}
	for _, c := range out.Items[0].Comments {
		if c.Username == "ann2" && !c.ReadOnly {
			t.Fatalf("foreign comment must be read-only")
		}
	}

	w.store.projects[w.projectID].DisableDiscussion = true
	out, err = svc.Filter(context.Background(), w.projectID, "ann1", defaultFilters())
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	comments := out.Items[0].Comments
	if len(comments) != 1 || comments[0].Username != "ann1" {
		t.Fatalf("disabled discussion: want own comment only, got %+v", comments)
	}
}

func TestFilterScopeIsolation(t *testing.T) {
	w := newWorld(t)
	w.addProject([]string{"Item"}, nil)
	mine := w.addItem("pump mine", "pump", "mine")
	theirs := w.addItem("pump theirs", "pump", "theirs")
	w.addAnnotator("ann1", types.RoleAnnotator, mine)
	w.addAnnotator("ann2", types.RoleAnnotator, theirs)
	w.addEntity("ann2", mine, "1", 0, 0, false)
	svc := w.datasetService(nil)

	out, err := svc.Filter(context.Background(), w.projectID, "ann1", defaultFilters())
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	if len(out.Items) != 1 || out.Items[0].ID != mine.String() {
		t.Fatalf("scope isolation broken: %+v", out.Items)
	}
	// Another annotator's markup on my document is invisible in my view.
	if len(out.Items[0].Entities) != 0 {
		t.Fatalf("foreign markup leaked into view: %+v", out.Items[0].Entities)
	}

	if _, err := svc.Filter(context.Background(), w.projectID, "stranger", defaultFilters()); !errors.Is(err, types.ErrDocumentNotFound) {
		t.Fatalf("off-roster user: want ErrDocumentNotFound, got %v", err)
	}
}

func TestSetSaveStateIdempotentAndQuorum(t *testing.T) {
	w := newWorld(t)
	w.addProject([]string{"Item"}, nil)
	doc := w.addItem("pump", "pump")
	w.addAnnotator("pm", types.RoleProjectManager, doc)
	w.addAnnotator("ann1", types.RoleAnnotator, doc)
	w.store.projects[w.projectID].AnnotatorsPerItem = 1
	svc := w.datasetService(w.agreementService())

	changed, err := svc.SetSaveState(context.Background(), w.projectID, "ann1", []uuid.UUID{doc}, true)
	if err != nil {
		t.Fatalf("SetSaveState: %v", err)
	}
	if changed != 1 {
		t.Fatalf("changed: want=1 got=%d", changed)
	}
	if w.notifier.count(EventItemSaved) != 1 {
		t.Fatalf("want one item-saved event")
	}
	quorum, err := (&fakeNotificationRepo{w.store}).ListByRecipient(dbctx.Context{}, "pm", false)
	if err != nil {
		t.Fatalf("ListByRecipient: %v", err)
	}
	if len(quorum) != 1 || quorum[0].Kind != types.NotificationKindQuorumReached {
		t.Fatalf("project manager quorum notification missing: %+v", quorum)
	}

	changed, err = svc.SetSaveState(context.Background(), w.projectID, "ann1", []uuid.UUID{doc}, true)
	if err != nil {
		t.Fatalf("second SetSaveState: %v", err)
	}
	if changed != 0 {
		t.Fatalf("repeat save: want=0 got=%d", changed)
	}

	if _, err := svc.SetSaveState(context.Background(), w.projectID, "ann1", []uuid.UUID{uuid.New()}, true); !errors.Is(err, types.ErrDocumentNotFound) {
		t.Fatalf("invisible document: want ErrDocumentNotFound, got %v", err)
	}
}

func TestSetFlagLifecycle(t *testing.T) {
	w := newWorld(t)
	w.addProject([]string{"Item"}, nil)
	doc := w.addItem("pump", "pump")
	w.addAnnotator("ann1", types.RoleAnnotator, doc)
	svc := w.datasetService(nil)

	if err := svc.SetFlag(context.Background(), w.projectID, "ann1", doc, types.FlagIssue, true); err != nil {
		t.Fatalf("SetFlag: %v", err)
	}
	if len(w.store.flags) != 1 {
		t.Fatalf("flag not written")
	}
	// Re-setting the same flag replaces rather than duplicates.
	if err := svc.SetFlag(context.Background(), w.projectID, "ann1", doc, types.FlagIssue, true); err != nil {
		t.Fatalf("SetFlag repeat: %v", err)
	}
	if len(w.store.flags) != 1 {
		t.Fatalf("flag duplicated: %d rows", len(w.store.flags))
	}

	if err := svc.SetFlag(context.Background(), w.projectID, "ann1", doc, types.FlagIssue, false); err != nil {
		t.Fatalf("clear flag: %v", err)
	}
	if len(w.store.flags) != 0 {
		t.Fatalf("flag not cleared")
	}

	if err := svc.SetFlag(context.Background(), w.projectID, "ann1", doc, "bogus", true); !errors.Is(err, types.ErrInvalidFilter) {
		t.Fatalf("bad flag state: want ErrInvalidFilter, got %v", err)
	}
}
