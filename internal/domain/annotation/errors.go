package annotation

import "errors"

// Not-found errors cover both "absent" and "exists but not visible to the
// requester" so existence is never leaked.
var (
	ErrProjectNotFound  = errors.New("project not found")
	ErrDocumentNotFound = errors.New("document not found")
	ErrMarkupNotFound   = errors.New("markup not found")
	ErrDatasetNotFound  = errors.New("dataset not found")
	ErrResourceNotFound = errors.New("resource not found")

	ErrSelfRelation   = errors.New("relation source and target must differ")
	ErrInvalidSpan    = errors.New("span out of range for document")
	ErrEntityNotFound = errors.New("relation endpoint entity not found")
	ErrInvalidFilter  = errors.New("invalid dataset filter")
	ErrMissingLabel   = errors.New("label missing from ontology")
)
