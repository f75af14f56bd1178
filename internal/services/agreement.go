package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/nlp-tlp/quickgraph-sub000/internal/data/repos"
	types "github.com/nlp-tlp/quickgraph-sub000/internal/domain"
	"github.com/nlp-tlp/quickgraph-sub000/internal/platform/dbctx"
	"github.com/nlp-tlp/quickgraph-sub000/internal/platform/logger"
)

type EntityRecord struct {
	DatasetItemID string
	Username      string
	LabelID       string
	StartIndex    int
	EndIndex      int
}

type RelationRecord struct {
	DatasetItemID string
	Username      string
	LabelID       string
	Source        types.EntityKey
	Target        types.EntityKey
}

type AgreementResult struct {
	Overall  float64 `json:"overall"`
	Entity   float64 `json:"entity"`
	Relation float64 `json:"relation"`

	EntityPairwise   map[string]float64 `json:"entity_pairwise"`
	RelationPairwise map[string]float64 `json:"relation_pairwise"`

	MajorityEntities  int `json:"majority_entities"`
	MajorityRelations int `json:"majority_relations"`
}

// PairwiseJaccard is |a ∩ b| / |a ∪ b| over two owners' annotation sets:
// 1.0 when both are empty, 0.0 when exactly one is.
func PairwiseJaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}
	intersection := 0
	for k := range a {
		if _, ok := b[k]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}

// ComputeAgreement runs the full calculation over markup restricted (by the
// caller) to annotators who saved the relevant documents. savedOwnersByItem
// maps document id to the usernames with a save-state record there.
func ComputeAgreement(entities []EntityRecord, relations []RelationRecord, savedOwnersByItem map[string][]string) *AgreementResult {
	entitySets := make(map[string]map[string]struct{})
	entityOwnersByTuple := make(map[string]map[string]bool)
	for _, e := range entities {
		tuple := entityTuple(e)
		addToSet(entitySets, e.Username, tuple)
		addOwner(entityOwnersByTuple, tuple, e.Username)
	}
	relationSets := make(map[string]map[string]struct{})
	relationOwnersByTuple := make(map[string]map[string]bool)
	for _, r := range relations {
		tuple := relationTuple(r)
		addToSet(relationSets, r.Username, tuple)
		addOwner(relationOwnersByTuple, tuple, r.Username)
	}

	entityAgreement, entityPairwise := overallAgreement(entitySets)
	relationAgreement, relationPairwise := overallAgreement(relationSets)

	entityCount := len(entities)
	relationCount := len(relations)
	overall := 0.0
	if entityCount+relationCount > 0 {
		overall = (entityAgreement*float64(entityCount) + relationAgreement*float64(relationCount)) / float64(entityCount+relationCount)
	}

	return &AgreementResult{
		Overall:           overall,
		Entity:            entityAgreement,
		Relation:          relationAgreement,
		EntityPairwise:    entityPairwise,
		RelationPairwise:  relationPairwise,
		MajorityEntities:  majorityCount(entityOwnersByTuple, savedOwnersByItem),
		MajorityRelations: majorityCount(relationOwnersByTuple, savedOwnersByItem),
	}
}

// overallAgreement is the mean pairwise Jaccard similarity across owner
// pairs that have any data; 0 when no such pair exists.
func overallAgreement(sets map[string]map[string]struct{}) (float64, map[string]float64) {
	owners := make([]string, 0, len(sets))
	for owner := range sets {
		owners = append(owners, owner)
	}
	sort.Strings(owners)

	pairwise := make(map[string]float64)
	sum := 0.0
	pairs := 0
	for i := 0; i < len(owners); i++ {
		for j := i + 1; j < len(owners); j++ {
			a := sets[owners[i]]
			b := sets[owners[j]]
			if len(a) == 0 && len(b) == 0 {
				continue
			}
			score := PairwiseJaccard(a, b)
			pairwise[owners[i]+"|"+owners[j]] = score
			sum += score
			pairs++
		}
	}
	if pairs == 0 {
		return 0.0, pairwise
	}
	return sum / float64(pairs), pairwise
}

// majorityCount counts the distinct annotation tuples produced by more than
// half of the owners who saved the tuple's document.
func majorityCount(ownersByTuple map[string]map[string]bool, savedOwnersByItem map[string][]string) int {
	count := 0
	for tuple, owners := range ownersByTuple {
		itemID := tupleItemID(tuple)
		saved := len(savedOwnersByItem[itemID])
		if saved == 0 {
			continue
		}
		if float64(len(owners))/float64(saved) > 0.5 {
			count++
		}
	}
	return count
}

func entityTuple(e EntityRecord) string {
	return fmt.Sprintf("%s\x00%s\x00%d\x00%d", e.DatasetItemID, e.LabelID, e.StartIndex, e.EndIndex)
}

func relationTuple(r RelationRecord) string {
	return fmt.Sprintf("%s\x00%s\x00%s:%d:%d\x00%s:%d:%d",
		r.DatasetItemID, r.LabelID,
		r.Source.LabelID, r.Source.StartIndex, r.Source.EndIndex,
		r.Target.LabelID, r.Target.StartIndex, r.Target.EndIndex)
}

func tupleItemID(tuple string) string {
	for i := 0; i < len(tuple); i++ {
		if tuple[i] == '\x00' {
			return tuple[:i]
		}
	}
	return tuple
}

func addToSet(sets map[string]map[string]struct{}, owner, tuple string) {
	if sets[owner] == nil {
		sets[owner] = make(map[string]struct{})
	}
	sets[owner][tuple] = struct{}{}
}

func addOwner(owners map[string]map[string]bool, tuple, owner string) {
	if owners[tuple] == nil {
		owners[tuple] = make(map[string]bool)
	}
	owners[tuple][owner] = true
}

// AgreementService loads the saved annotators' markup for a document and
// runs the calculator over it.
type AgreementService interface {
	ComputeForItem(ctx context.Context, projectID, itemID uuid.UUID) (*AgreementResult, error)
}

type agreementService struct {
	log      *logger.Logger
	items    repos.DatasetItemRepo
	markups  repos.MarkupRepo
	notifier Notifier
}

func NewAgreementService(baseLog *logger.Logger, items repos.DatasetItemRepo, markups repos.MarkupRepo, notifier Notifier) AgreementService {
	return &agreementService{
		log:      baseLog.With("service", "AgreementService"),
		items:    items,
		markups:  markups,
		notifier: notifier,
	}
}

func (s *agreementService) ComputeForItem(ctx context.Context, projectID, itemID uuid.UUID) (*AgreementResult, error) {
	dbc := dbctx.Context{Ctx: ctx}

	saveStates, err := s.items.SaveStatesByItems(dbc, []uuid.UUID{itemID})
	if err != nil {
		return nil, err
	}
	savedOwners := make([]string, 0, len(saveStates))
	savedOwnersByItem := make(map[string][]string)
	for _, st := range saveStates {
		savedOwners = append(savedOwners, st.Username)
		savedOwnersByItem[st.DatasetItemID.String()] = append(savedOwnersByItem[st.DatasetItemID.String()], st.Username)
	}

	rows, err := s.markups.FindByOwnersAndItems(dbc, projectID, savedOwners, []uuid.UUID{itemID})
	if err != nil {
		return nil, err
	}

	entities, relations := recordsFromMarkup(rows)
	result := ComputeAgreement(entities, relations, savedOwnersByItem)

	if s.notifier != nil {
		s.notifier.Publish(ctx, projectChannel(projectID), EventAgreementUpdated, result)
	}
	return result, nil
}

// recordsFromMarkup flattens markup rows into calculator records, resolving
// relation endpoints from the same row set.
func recordsFromMarkup(rows []*types.Markup) ([]EntityRecord, []RelationRecord) {
	byID := make(map[uuid.UUID]*types.Markup, len(rows))
	for _, m := range rows {
		byID[m.ID] = m
	}

	var entities []EntityRecord
	var relations []RelationRecord
	for _, m := range rows {
		if m.IsEntity() {
			entities = append(entities, EntityRecord{
				DatasetItemID: m.DatasetItemID.String(),
				Username:      m.Username,
				LabelID:       m.LabelID,
				StartIndex:    m.StartIndex,
				EndIndex:      m.EndIndex,
			})
			continue
		}
		if m.SourceID == nil || m.TargetID == nil {
			continue
		}
		src := byID[*m.SourceID]
		tgt := byID[*m.TargetID]
		if src == nil || tgt == nil {
			continue
		}
		relations = append(relations, RelationRecord{
			DatasetItemID: m.DatasetItemID.String(),
			Username:      m.Username,
			LabelID:       m.LabelID,
			Source:        src.EntityKey(),
			Target:        tgt.EntityKey(),
		})
	}
	return entities, relations
}
