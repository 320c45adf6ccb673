// Package directory holds the user-facing records the scheduling core reads:
// patients and specialist profiles. Authentication lives elsewhere; the core
// trusts the identifiers it is handed.
package directory

import (
	"time"

	"github.com/google/uuid"
)

type Patient struct {
	ID        uuid.UUID
	Name      string
	Email     *string
	Phone     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Specialist struct {
	ID              uuid.UUID
	Name            string
	Bio             string
	HourlyRate      float64
	YearsExperience int
	IsAvailable     bool
	Specializations []string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
