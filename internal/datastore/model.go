// model.go defines the persisted data model for reports, predictions and reporters
package datastore

import (
	"time"

	"gorm.io/datatypes"
)

// SymptomReport is a citizen- or field-worker-submitted clinical report.
// The submitted document is kept verbatim in Raw so downstream extraction
// can scan keys the promoted columns do not cover.
type SymptomReport struct {
	ID          string `gorm:"primaryKey;type:varchar(64)"`
	PatientName string
	District    string `gorm:"index:idx_symptom_district"`
	Location    string
	Symptoms    datatypes.JSON // ordered list of symptom tags
	Raw         datatypes.JSON // full submitted document
	Processed   bool           `gorm:"index:idx_symptom_processed"`
	ProcessedAt *time.Time
	CreatedAt   time.Time `gorm:"index:idx_symptom_created"`
}

// WaterReport is a water-quality measurement report for one sampling point.
type WaterReport struct {
	ID          string `gorm:"primaryKey;type:varchar(64)"`
	District    string `gorm:"index:idx_water_district"`
	Location    string
	Ph          float64
	Turbidity   float64
	Tds         float64
	Chlorine    float64
	Fluoride    float64
	Nitrate     float64
	Coliform    float64
	Temperature float64
	Source      string         // primary water source label, e.g. "well", "piped"
	Raw         datatypes.JSON // full submitted document
	CreatedAt   time.Time      `gorm:"index:idx_water_created"`
}

// Prediction is one fused classification result. Created exactly once per
// successful fusion and immutable afterwards. District, Location, Disease and
// PredictedAt are denormalized from the feature payload so aggregation
// queries hit indexed columns instead of JSON.
type Prediction struct {
	ID            uint `gorm:"primaryKey"`
	PatientName   string
	Symptoms      datatypes.JSON
	InputWater    datatypes.JSON // water input sub-document used for the vector
	Disease       string         `gorm:"index:idx_prediction_disease;index:idx_prediction_disease_time"`
	PredictedAt   time.Time      `gorm:"index:idx_prediction_time;index:idx_prediction_disease_time"`
	FeatureVector datatypes.JSON // the 17-field vector the classifier consumed
	CenterLat     *float64
	CenterLng     *float64
	District      string `gorm:"index:idx_prediction_district"`
	Location      string
	SymptomID     string `gorm:"index:idx_prediction_symptom"`
	WaterID       string
}

// User is a registered reporter account. The identity resolver looks users up
// by id, email, phone and full name.
type User struct {
	ID           string `gorm:"primaryKey;type:varchar(64)"`
	FullName     string `gorm:"index:idx_user_name"`
	Email        string `gorm:"index:idx_user_email"`
	Phone        string `gorm:"index:idx_user_phone"`
	Location     string
	Organization string
	Role         string
	Status       string
	CreatedAt    time.Time
}

// ReporterActivity tracks per-reporter submission counters, one row per
// resolved identity. Counter columns are only ever modified with
// single-statement increments, never read-modify-write.
type ReporterActivity struct {
	ID                 uint   `gorm:"primaryKey"`
	UserID             string `gorm:"uniqueIndex:idx_activity_user;type:varchar(64)"`
	FullName           string
	Email              string
	Phone              string
	Location           string
	Organization       string
	Status             string
	SymptomReportCount int
	WaterReportCount   int
	SymptomReportIDs   datatypes.JSON
	WaterReportIDs     datatypes.JSON
	LastSubmissionAt   time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
