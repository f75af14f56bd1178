package services

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/google/uuid"

	types "github.com/nlp-tlp/quickgraph-sub000/internal/domain"
)

func TestMatchGazetteerLongestFirst(t *testing.T) {
	tokens := []string{"centrifugal", "pump", "seal", "replaced"}
	gazetteer := map[string][]string{
		"Item": {"pump", "centrifugal pump", "seal"},
	}

	got := MatchGazetteer(tokens, gazetteer)
	want := []SpanMatch{
		{Label: "Item", Start: 0, End: 1, Surface: "centrifugal pump"},
		{Label: "Item", Start: 2, End: 2, Surface: "seal"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("matches:\nwant=%+v\ngot=%+v", want, got)
	}
}

func TestMatchGazetteerMasksConsumedTokens(t *testing.T) {
	tokens := []string{"pump", "pump", "house"}
	gazetteer := map[string][]string{
		"Item":     {"pump house"},
		"Location": {"house"},
	}

	got := MatchGazetteer(tokens, gazetteer)
	// "pump house" consumes tokens 1-2; the single-token "house" phrase
	// finds nothing left.
	want := []SpanMatch{
		{Label: "Item", Start: 1, End: 2, Surface: "pump house"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("matches:\nwant=%+v\ngot=%+v", want, got)
	}
}

func TestMatchGazetteerCaseInsensitive(t *testing.T) {
	got := MatchGazetteer([]string{"Pump", "SEAL"}, map[string][]string{"Item": {"pump", "seal"}})
	if len(got) != 2 {
		t.Fatalf("want=2 matches got=%d", len(got))
	}
	if got[0].Surface != "Pump" {
		t.Fatalf("surface must keep original casing: %q", got[0].Surface)
	}
}

func TestMatchGazetteerDeterministic(t *testing.T) {
	tokens := []string{"valve", "stem", "packing"}
	gazetteer := map[string][]string{
		"A": {"valve stem"},
		"B": {"valve stem"},
	}
	first := MatchGazetteer(tokens, gazetteer)
	for i := 0; i < 20; i++ {
		if got := MatchGazetteer(tokens, gazetteer); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d differs: %+v vs %+v", i, got, first)
		}
	}
	// Equal-length phrases resolve by label order.
	if len(first) != 1 || first[0].Label != "A" {
		t.Fatalf("tie-break by label: %+v", first)
	}
}

func TestApplyGazetteerCreatesSuggestedEntities(t *testing.T) {
	w := newWorld(t)
	w.addProject([]string{"Item", "Activity"}, nil)
	d1 := w.addItem("replace pump seal", "replace", "pump", "seal")
	d2 := w.addItem("pump inspection", "pump", "inspection")
	saved := w.addItem("pump overhaul", "pump", "overhaul")
	w.addAnnotator("ann1", types.RoleAnnotator, d1, d2, saved)
	w.saveItem("ann1", saved)

	res := &types.Resource{
		ID:             uuid.New(),
		Name:           "equipment gazetteer",
		Classification: types.ResourceClassificationGazetteer,
		Content:        mustJSON(t, map[string][]string{"Item": {"pump", "seal"}}),
	}
	w.store.resources[res.ID] = res

	out, err := w.pretagService().ApplyGazetteer(context.Background(), w.projectID, "ann1", res.ID)
	if err != nil {
		t.Fatalf("ApplyGazetteer: %v", err)
	}
	if out.Count != 2 || out.Entities != 3 {
		t.Fatalf("result: want docs=2 entities=3, got docs=%d entities=%d", out.Count, out.Entities)
	}

	for _, m := range w.store.markups {
		if !m.Suggested {
			t.Fatalf("pre-tagged markup must be suggested: %+v", m)
		}
		if m.DatasetItemID == saved {
			t.Fatalf("saved document must not be pre-tagged")
		}
	}

	// Second run is a no-op: every match already exists.
	out, err = w.pretagService().ApplyGazetteer(context.Background(), w.projectID, "ann1", res.ID)
	if err != nil {
		t.Fatalf("second ApplyGazetteer: %v", err)
	}
	if out.Count != 0 || out.Entities != 0 {
		t.Fatalf("repeat run: want zeros, got %+v", out)
	}
}

func TestApplyGazetteerRejectsUnknownLabel(t *testing.T) {
	w := newWorld(t)
	w.addProject([]string{"Item"}, nil)
	doc := w.addItem("pump", "pump")
	w.addAnnotator("ann1", types.RoleAnnotator, doc)

	res := &types.Resource{
		ID:             uuid.New(),
		Classification: types.ResourceClassificationGazetteer,
		Content:        mustJSON(t, map[string][]string{"NotALabel": {"pump"}}),
	}
	w.store.resources[res.ID] = res

	if _, err := w.pretagService().ApplyGazetteer(context.Background(), w.projectID, "ann1", res.ID); !errors.Is(err, types.ErrMissingLabel) {
		t.Fatalf("want ErrMissingLabel, got %v", err)
	}
}

func TestApplyGazetteerRejectsWrongResource(t *testing.T) {
	w := newWorld(t)
	w.addProject([]string{"Item"}, nil)
	doc := w.addItem("pump", "pump")
	w.addAnnotator("ann1", types.RoleAnnotator, doc)

	ontologyRes := &types.Resource{
		ID:             uuid.New(),
		Classification: types.ResourceClassificationOntology,
		Content:        mustJSON(t, []any{}),
	}
	w.store.resources[ontologyRes.ID] = ontologyRes

	svc := w.pretagService()
	if _, err := svc.ApplyGazetteer(context.Background(), w.projectID, "ann1", ontologyRes.ID); !errors.Is(err, types.ErrResourceNotFound) {
		t.Fatalf("ontology resource: want ErrResourceNotFound, got %v", err)
	}
	if _, err := svc.ApplyGazetteer(context.Background(), w.projectID, "ann1", uuid.New()); !errors.Is(err, types.ErrResourceNotFound) {
		t.Fatalf("unknown id: want ErrResourceNotFound, got %v", err)
	}
}
