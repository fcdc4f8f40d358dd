// interfaces.go defines the interface for the database operations
package datastore

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aquasentinel/aquasentinel/internal/conf"
	"github.com/aquasentinel/aquasentinel/internal/errors"
)

// Interface abstracts the underlying database implementation and defines the
// operations the fusion pipeline, identity resolver and aggregation queries
// depend on.
type Interface interface {
	Open() error
	Close() error

	// reports
	SaveSymptomReport(report *SymptomReport) error
	SaveWaterReport(report *WaterReport) error
	GetSymptomReport(id string) (SymptomReport, error)
	GetWaterReport(id string) (WaterReport, error)
	MarkSymptomProcessed(id string, at time.Time) error
	UnprocessedSymptomReports(limit int) ([]SymptomReport, error)
	LatestWaterReportForDistrict(district string) (WaterReport, error)
	SymptomReportsSince(since time.Time) ([]SymptomReport, error)

	// predictions
	SavePrediction(prediction *Prediction) error
	GetPrediction(id uint) (Prediction, error)
	PredictionsSince(since time.Time, disease, district string) ([]Prediction, error)
	PredictionCountForPair(symptomID, waterID string) (int64, error)

	// users
	SaveUser(user *User) error
	GetUserByID(id string) (User, error)
	GetUserByEmail(email string) (User, error)
	GetUserByPhone(digits string) (User, error)
	GetUserByFullName(name string) (User, error)

	// reporter activity
	RecordSubmission(user *User, kind SubmissionKind, reportID string, at time.Time) error
	GetReporterActivity(userID string) (ReporterActivity, error)

	// analytics
	DistrictCaseCounts(since time.Time) ([]DistrictCaseCount, error)
	DiseaseBreakdown(district string, since time.Time) ([]DiseaseCount, error)
	DailyCaseTrend(district string, since time.Time) ([]DailyCaseCount, error)
	RecentWaterAverages(district string, sampleSize int) (WaterAverages, error)
}

// DataStore implements Interface using a GORM database.
type DataStore struct {
	DB *gorm.DB // GORM database instance
}

// New creates a store for whichever database output is enabled in settings.
func New(settings *conf.Settings) Interface {
	switch {
	case settings.Output.SQLite.Enabled:
		return &SQLiteStore{
			Settings: settings,
		}
	case settings.Output.MySQL.Enabled:
		return &MySQLStore{
			Settings: settings,
		}
	default:
		return nil
	}
}

// SaveSymptomReport inserts a new symptom report. Reports arriving without
// a source identifier are assigned one.
func (ds *DataStore) SaveSymptomReport(report *SymptomReport) error {
	if report.ID == "" {
		report.ID = uuid.NewString()
	}
	if err := ds.DB.Create(report).Error; err != nil {
		return dbError(err, "save_symptom_report", errors.PriorityHigh, "report_id", report.ID)
	}
	return nil
}

// SaveWaterReport inserts a new water-quality report. Reports arriving
// without a source identifier are assigned one.
func (ds *DataStore) SaveWaterReport(report *WaterReport) error {
	if report.ID == "" {
		report.ID = uuid.NewString()
	}
	if err := ds.DB.Create(report).Error; err != nil {
		return dbError(err, "save_water_report", errors.PriorityHigh, "report_id", report.ID)
	}
	return nil
}

// GetSymptomReport retrieves a symptom report by its ID.
func (ds *DataStore) GetSymptomReport(id string) (SymptomReport, error) {
	var report SymptomReport
	if err := ds.DB.First(&report, "id = ?", id).Error; err != nil {
		return SymptomReport{}, lookupError(err, "get_symptom_report", "report_id", id)
	}
	return report, nil
}

// GetWaterReport retrieves a water report by its ID.
func (ds *DataStore) GetWaterReport(id string) (WaterReport, error) {
	var report WaterReport
	if err := ds.DB.First(&report, "id = ?", id).Error; err != nil {
		return WaterReport{}, lookupError(err, "get_water_report", "report_id", id)
	}
	return report, nil
}

// MarkSymptomProcessed flags a symptom report as consumed by fusion.
func (ds *DataStore) MarkSymptomProcessed(id string, at time.Time) error {
	err := ds.DB.Model(&SymptomReport{}).
		Where("id = ?", id).
		Updates(map[string]any{"processed": true, "processed_at": at}).Error
	if err != nil {
		return dbError(err, "mark_symptom_processed", errors.PriorityMedium, "report_id", id)
	}
	return nil
}

// UnprocessedSymptomReports returns symptom reports not yet fused, oldest
// first, so batch fusion drains the backlog in submission order.
func (ds *DataStore) UnprocessedSymptomReports(limit int) ([]SymptomReport, error) {
	var reports []SymptomReport
	query := ds.DB.Where("processed = ?", false).Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&reports).Error; err != nil {
		return nil, dbError(err, "unprocessed_symptom_reports", errors.PriorityMedium)
	}
	return reports, nil
}

// LatestWaterReportForDistrict returns the most recent water report for a
// district, matched case-insensitively.
func (ds *DataStore) LatestWaterReportForDistrict(district string) (WaterReport, error) {
	var report WaterReport
	err := ds.DB.Where("LOWER(district) = LOWER(?)", district).
		Order("created_at DESC").
		First(&report).Error
	if err != nil {
		return WaterReport{}, lookupError(err, "latest_water_report", "district", district)
	}
	return report, nil
}

// SymptomReportsSince returns symptom reports created within the window.
// Used by the raw-symptom provenance source of outbreak aggregation.
func (ds *DataStore) SymptomReportsSince(since time.Time) ([]SymptomReport, error) {
	var reports []SymptomReport
	if err := ds.DB.Where("created_at >= ?", since).Find(&reports).Error; err != nil {
		return nil, dbError(err, "symptom_reports_since", errors.PriorityMedium)
	}
	return reports, nil
}

// SavePrediction persists one fused prediction record.
func (ds *DataStore) SavePrediction(prediction *Prediction) error {
	if err := ds.DB.Create(prediction).Error; err != nil {
		return dbError(err, "save_prediction", errors.PriorityHigh,
			"disease", prediction.Disease, "district", prediction.District)
	}
	return nil
}

// GetPrediction retrieves a prediction by its ID.
func (ds *DataStore) GetPrediction(id uint) (Prediction, error) {
	var prediction Prediction
	if err := ds.DB.First(&prediction, id).Error; err != nil {
		return Prediction{}, lookupError(err, "get_prediction", "prediction_id", id)
	}
	return prediction, nil
}

// PredictionsSince returns predictions whose classification timestamp falls
// within the window, optionally filtered by disease (case-insensitive exact)
// and district (case-insensitive substring).
func (ds *DataStore) PredictionsSince(since time.Time, disease, district string) ([]Prediction, error) {
	var predictions []Prediction
	query := ds.DB.Where("predicted_at >= ?", since)
	if disease != "" {
		query = query.Where("LOWER(disease) = LOWER(?)", disease)
	}
	if district != "" {
		query = query.Where("LOWER(district) LIKE LOWER(?)", "%"+district+"%")
	}
	if err := query.Order("predicted_at DESC").Find(&predictions).Error; err != nil {
		return nil, dbError(err, "predictions_since", errors.PriorityMedium,
			"disease", disease, "district", district)
	}
	return predictions, nil
}

// PredictionCountForPair counts predictions already written for a report pair.
func (ds *DataStore) PredictionCountForPair(symptomID, waterID string) (int64, error) {
	var count int64
	err := ds.DB.Model(&Prediction{}).
		Where("symptom_id = ? AND water_id = ?", symptomID, waterID).
		Count(&count).Error
	if err != nil {
		return 0, dbError(err, "prediction_count_for_pair", errors.PriorityLow,
			"symptom_id", symptomID, "water_id", waterID)
	}
	return count, nil
}

// SaveUser inserts a new user record.
func (ds *DataStore) SaveUser(user *User) error {
	if err := ds.DB.Create(user).Error; err != nil {
		return dbError(err, "save_user", errors.PriorityMedium, "user_id", user.ID)
	}
	return nil
}

// GetUserByID retrieves a user by their identity handle.
func (ds *DataStore) GetUserByID(id string) (User, error) {
	var user User
	if err := ds.DB.First(&user, "id = ?", id).Error; err != nil {
		return User{}, lookupError(err, "get_user_by_id", "user_id", id)
	}
	return user, nil
}

// GetUserByEmail does a case-insensitive exact email lookup.
func (ds *DataStore) GetUserByEmail(email string) (User, error) {
	var user User
	if err := ds.DB.Where("LOWER(email) = LOWER(?)", email).First(&user).Error; err != nil {
		return User{}, lookupError(err, "get_user_by_email", "email", email)
	}
	return user, nil
}

// GetUserByPhone matches a stored phone number containing the given digit
// string. The caller strips non-digit characters first.
func (ds *DataStore) GetUserByPhone(digits string) (User, error) {
	var user User
	if err := ds.DB.Where("phone LIKE ?", "%"+digits+"%").First(&user).Error; err != nil {
		return User{}, lookupError(err, "get_user_by_phone", "digits", digits)
	}
	return user, nil
}

// GetUserByFullName does a case-insensitive exact full-name lookup.
func (ds *DataStore) GetUserByFullName(name string) (User, error) {
	var user User
	if err := ds.DB.Where("LOWER(full_name) = LOWER(?)", name).First(&user).Error; err != nil {
		return User{}, lookupError(err, "get_user_by_full_name", "full_name", name)
	}
	return user, nil
}

// GetReporterActivity retrieves the activity record for one reporter.
func (ds *DataStore) GetReporterActivity(userID string) (ReporterActivity, error) {
	var activity ReporterActivity
	if err := ds.DB.Where("user_id = ?", userID).First(&activity).Error; err != nil {
		return ReporterActivity{}, lookupError(err, "get_reporter_activity", "user_id", userID)
	}
	return activity, nil
}
