package appointments

import (
	"time"

	"github.com/google/uuid"
)

// Appointment is the scheduling platform's appointment record. This service
// only reads it, for message rendering and existence checks.
type Appointment struct {
	ID             uuid.UUID `json:"id"`
	OrgID          string    `json:"org_id"`
	PatientName    string    `json:"patient_name"`
	PatientPhone   string    `json:"patient_phone"`
	SpecialistName string    `json:"specialist_name"`
	Specialty      string    `json:"specialty"`
	StartsAt       time.Time `json:"starts_at"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
