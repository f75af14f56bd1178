package services

import (
	types "github.com/nlp-tlp/quickgraph-sub000/internal/domain"
)

// Output records carry stringified identities and denormalized ontology
// display fields; the HTTP layer serializes them as-is.

type OutEntity struct {
	ID            string `json:"id"`
	DatasetItemID string `json:"dataset_item_id"`
	LabelID       string `json:"label_id"`
	Name          string `json:"name"`
	FullName      string `json:"fullname"`
	Color         string `json:"color"`
	StartIndex    int    `json:"start_index"`
	EndIndex      int    `json:"end_index"`
	SurfaceText   string `json:"surface_text"`
	Suggested     bool   `json:"suggested"`
	Username      string `json:"username"`
}

type OutRelation struct {
	ID            string `json:"id"`
	DatasetItemID string `json:"dataset_item_id"`
	LabelID       string `json:"label_id"`
	Name          string `json:"name"`
	FullName      string `json:"fullname"`
	Color         string `json:"color"`
	SourceID      string `json:"source_id"`
	TargetID      string `json:"target_id"`
	Suggested     bool   `json:"suggested"`
	Username      string `json:"username"`
}

// OutMarkupApply summarizes one apply action across its scope. Count is the
// number of documents affected. A zero Count with empty lists is the
// idempotent no-op sentinel (duplicate apply), not a failure.
type OutMarkupApply struct {
	Count          int           `json:"count"`
	LabelName      string        `json:"label_name"`
	Entities       []OutEntity   `json:"entities"`
	Relations      []OutRelation `json:"relations"`
	AnnotationType string        `json:"annotation_type"`
	ApplyAll       bool          `json:"apply_all"`
}

// OutMarkupAccept lists the markup rows promoted to accepted. Count equals
// the number of rows changed.
type OutMarkupAccept struct {
	Count     int      `json:"count"`
	Entities  []string `json:"entities"`
	Relations []string `json:"relations"`
}

// OutMarkupDelete lists the markup rows removed, cascaded relations
// included. Count equals the number of rows removed.
type OutMarkupDelete struct {
	Count     int      `json:"count"`
	Entities  []string `json:"entities"`
	Relations []string `json:"relations"`
}

func outEntityFrom(m *types.Markup, meta types.OntologyMeta) OutEntity {
	return OutEntity{
		ID:            m.ID.String(),
		DatasetItemID: m.DatasetItemID.String(),
		LabelID:       m.LabelID,
		Name:          meta.Name,
		FullName:      meta.FullName,
		Color:         meta.Color,
		StartIndex:    m.StartIndex,
		EndIndex:      m.EndIndex,
		SurfaceText:   m.SurfaceText,
		Suggested:     m.Suggested,
		Username:      m.Username,
	}
}

func outRelationFrom(m *types.Markup, meta types.OntologyMeta) OutRelation {
	out := OutRelation{
		ID:            m.ID.String(),
		DatasetItemID: m.DatasetItemID.String(),
		LabelID:       m.LabelID,
		Name:          meta.Name,
		FullName:      meta.FullName,
		Color:         meta.Color,
		Suggested:     m.Suggested,
		Username:      m.Username,
	}
	if m.SourceID != nil {
		out.SourceID = m.SourceID.String()
	}
	if m.TargetID != nil {
		out.TargetID = m.TargetID.String()
	}
	return out
}
