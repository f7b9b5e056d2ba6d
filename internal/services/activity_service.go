package services

import (
	"errors"
	"time"

	"gorm.io/gorm"

	apperrors "dealflow/internal/errors"
	"dealflow/internal/models"
	"dealflow/internal/pagination"
)

// activityService handles deal activity logging.
type activityService struct {
	db *gorm.DB
}

// NewActivityService creates a new ActivityServicer.
func NewActivityService(db *gorm.DB) ActivityServicer {
	return &activityService{db: db}
}

// LogActivity records a touchpoint on a deal and bumps the deal's activity
// counter in the same transaction.
func (s *activityService) LogActivity(companyID, dealID, userID uint, activityType models.ActivityType, subject, notes string, dueDate *time.Time) (*models.Activity, error) {
	var count int64
	if err := s.db.Model(&models.Deal{}).
		Where("id = ? AND company_id = ?", dealID, companyID).
		Count(&count).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count == 0 {
		return nil, apperrors.ErrDealNotFound
	}

	activity := &models.Activity{
		CompanyID: companyID,
		DealID:    dealID,
		UserID:    userID,
		Type:      activityType,
		Subject:   subject,
		Notes:     notes,
		DueDate:   dueDate,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(activity).Error; err != nil {
			return err
		}
		return tx.Model(&models.Deal{}).
			Where("id = ? AND company_id = ?", dealID, companyID).
			UpdateColumn("activity_count", gorm.Expr("activity_count + 1")).Error
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return activity, nil
}

// GetDealActivities returns a paginated list of activities for a deal,
// newest first.
func (s *activityService) GetDealActivities(companyID, dealID uint, page pagination.PageRequest) (*pagination.PageResponse[models.Activity], error) {
	page.Defaults()

	base := s.db.Model(&models.Activity{}).
		Where("company_id = ? AND deal_id = ?", companyID, dealID)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var activities []models.Activity
	if err := base.Order("created_at DESC").Scopes(pagination.Paginate(page)).
		Find(&activities).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(activities, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// CompleteActivity stamps an activity's completion time. Completing an
// already-completed activity is a no-op.
func (s *activityService) CompleteActivity(companyID, activityID uint) (*models.Activity, error) {
	var activity models.Activity
	if err := s.db.Where("id = ? AND company_id = ?", activityID, companyID).
		First(&activity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrActivityNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if activity.CompletedAt != nil {
		return &activity, nil
	}

	now := time.Now()
	if err := s.db.Model(&activity).Update("completed_at", now).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &activity, nil
}
