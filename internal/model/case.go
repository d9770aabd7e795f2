package model

import (
	"time"

	"github.com/google/uuid"
)

// CaseRecord is one reported case. Rows are append-only.
type CaseRecord struct {
	ID          uuid.UUID `db:"id" json:"id"`
	Disease     string    `db:"disease" json:"disease"`
	Location    string    `db:"location" json:"location"`
	Date        time.Time `db:"date" json:"date"`
	AgeGroup    string    `db:"age_group" json:"age_group"`
	Gender      string    `db:"gender" json:"gender"`
	Symptoms    string    `db:"symptoms" json:"symptoms"`
	PatientCode *string   `db:"patient_code" json:"patient_code,omitempty"`
	DoctorName  string    `db:"doctor_name" json:"doctor_name"`
	ClinicName  string    `db:"clinic_name" json:"clinic_name"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

type ReportCaseRequest struct {
	Disease     string  `json:"disease" binding:"required,max=100"`
	Symptoms    string  `json:"symptoms" binding:"max=1000"`
	Location    string  `json:"location" binding:"required,max=100"`
	AgeGroup    string  `json:"age_group" binding:"required,max=20"`
	Gender      string  `json:"gender" binding:"required,oneof=male female other Male Female Other"`
	Date        string  `json:"date" binding:"required,datetime=2006-01-02,notfuture"`
	PatientCode *string `json:"patient_code"`
	DoctorName  string  `json:"doctor_name" binding:"max=100"`
	ClinicName  string  `json:"clinic_name" binding:"max=100"`
}
