// activity.go implements reporter activity upserts with storage-side counters
package datastore

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/aquasentinel/aquasentinel/internal/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SubmissionKind selects which counter and id list a submission updates.
type SubmissionKind int

const (
	SymptomSubmission SubmissionKind = iota
	WaterSubmission
)

func (k SubmissionKind) String() string {
	if k == WaterSubmission {
		return "water"
	}
	return "symptom"
}

// columns returns the counter and id-list column names for the kind.
func (k SubmissionKind) columns() (countColumn, idsColumn string) {
	if k == WaterSubmission {
		return "water_report_count", "water_report_ids"
	}
	return "symptom_report_count", "symptom_report_ids"
}

// jsonAppendExpr builds a dialect-specific expression appending a value to a
// JSON array column. Concurrent fusions increment the same reporter row, so
// the append has to happen inside the UPDATE statement rather than in Go.
func (ds *DataStore) jsonAppendExpr(column, value string) (clause.Expr, error) {
	switch ds.DB.Dialector.Name() {
	case "sqlite":
		return gorm.Expr(
			fmt.Sprintf("json_insert(COALESCE(%s, json_array()), '$[#]', ?)", column),
			value), nil
	case "mysql":
		return gorm.Expr(
			fmt.Sprintf("JSON_ARRAY_APPEND(COALESCE(%s, JSON_ARRAY()), '$', ?)", column),
			value), nil
	default:
		return clause.Expr{}, errors.Newf("unsupported database dialect: %s", ds.DB.Dialector.Name()).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Build()
	}
}

// RecordSubmission upserts the reporter's activity row and increments the
// submission counter for the given kind. The increment and id-list append are
// single-statement storage-side updates, so N concurrent submissions for the
// same reporter land exactly N counts with no lost updates.
func (ds *DataStore) RecordSubmission(user *User, kind SubmissionKind, reportID string, at time.Time) error {
	countColumn, idsColumn := kind.columns()

	appendExpr, err := ds.jsonAppendExpr(idsColumn, reportID)
	if err != nil {
		return err
	}

	initialIDs, err := json.Marshal([]string{reportID})
	if err != nil {
		return dbError(err, "record_submission", errors.PriorityMedium, "user_id", user.ID)
	}

	activity := ReporterActivity{
		UserID:           user.ID,
		FullName:         user.FullName,
		Email:            user.Email,
		Phone:            user.Phone,
		Location:         user.Location,
		Organization:     user.Organization,
		Status:           user.Status,
		LastSubmissionAt: at,
		CreatedAt:        at,
		UpdatedAt:        at,
	}
	if kind == WaterSubmission {
		activity.WaterReportCount = 1
		activity.WaterReportIDs = initialIDs
	} else {
		activity.SymptomReportCount = 1
		activity.SymptomReportIDs = initialIDs
	}

	err = ds.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			countColumn:          gorm.Expr(countColumn + " + 1"),
			idsColumn:            appendExpr,
			"last_submission_at": at,
			"updated_at":         at,
		}),
	}).Create(&activity).Error
	if err != nil {
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryActivity).
			Priority(errors.PriorityMedium).
			Context("operation", "record_submission").
			Context("user_id", user.ID).
			Context("kind", kind.String()).
			Build()
	}
	return nil
}
