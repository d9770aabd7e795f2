package model

import "github.com/google/uuid"

// PatientContact is the subset of a patient row needed to reach them.
type PatientContact struct {
	ID    uuid.UUID `db:"id" json:"id"`
	Name  string    `db:"name" json:"name"`
	Phone string    `db:"phone" json:"phone"`
}
