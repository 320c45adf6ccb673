package directory

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrPatientNotFound    = errors.New("patient not found")
	ErrSpecialistNotFound = errors.New("specialist not found")
)

// ListFilter narrows ListSpecialists.
type ListFilter struct {
	Specialization *string
	AvailableOnly  bool
	Limit          int
	Offset         int
}

// Repository contains the DB interactions the directory endpoints and the
// scheduling services need.
type Repository interface {
	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetSpecialistByID(ctx context.Context, id uuid.UUID) (*Specialist, error)
	ListSpecialists(ctx context.Context, filter ListFilter) ([]Specialist, error)
	SetSpecialistAvailability(ctx context.Context, id uuid.UUID, available bool) (*Specialist, error)
}
