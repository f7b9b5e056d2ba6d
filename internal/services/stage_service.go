package services

import (
	"errors"

	"gorm.io/gorm"

	apperrors "dealflow/internal/errors"
	"dealflow/internal/models"
)

// stageService manages the per-company pipeline stage catalog.
type stageService struct {
	db *gorm.DB
}

// NewStageService creates a new StageServicer.
func NewStageService(db *gorm.DB) StageServicer {
	return &stageService{db: db}
}

// defaultCatalog is seeded for every new company. Probabilities follow the
// standard funnel; terminal stages carry their category explicitly.
var defaultCatalog = []models.PipelineStage{
	{Name: "Qualification", DisplayOrder: 1, Probability: 10, Category: models.StageCategoryOpen, IsDefault: true},
	{Name: "Needs Analysis", DisplayOrder: 2, Probability: 20, Category: models.StageCategoryOpen, IsDefault: true},
	{Name: "Proposal", DisplayOrder: 3, Probability: 40, Category: models.StageCategoryOpen, IsDefault: true},
	{Name: "Negotiation", DisplayOrder: 4, Probability: 60, Category: models.StageCategoryOpen, IsDefault: true},
	{Name: "Closed Won", DisplayOrder: 5, Probability: 100, Category: models.StageCategoryWon, IsDefault: true},
	{Name: "Closed Lost", DisplayOrder: 6, Probability: 0, Category: models.StageCategoryLost, IsDefault: true},
}

// SeedDefaultCatalog creates the default stage set for a new company within
// the caller's transaction.
func (s *stageService) SeedDefaultCatalog(tx *gorm.DB, companyID uint) error {
	for _, stage := range defaultCatalog {
		stage.CompanyID = companyID
		stage.IsActive = true
		if err := tx.Create(&stage).Error; err != nil {
			return err
		}
	}
	return nil
}

// CreateStage adds a stage to the company's catalog. Name and display order
// must each be unique within the company.
func (s *stageService) CreateStage(companyID uint, name string, displayOrder, probability int, category models.StageCategory) (*models.PipelineStage, error) {
	var count int64
	s.db.Model(&models.PipelineStage{}).Where("company_id = ? AND name = ?", companyID, name).Count(&count)
	if count > 0 {
		return nil, apperrors.ErrDuplicateStageName
	}
	s.db.Model(&models.PipelineStage{}).Where("company_id = ? AND display_order = ?", companyID, displayOrder).Count(&count)
	if count > 0 {
		return nil, apperrors.ErrDuplicateStageOrder
	}

	stage := &models.PipelineStage{
		CompanyID:    companyID,
		Name:         name,
		DisplayOrder: displayOrder,
		Probability:  probability,
		Category:     category,
		IsActive:     true,
	}

	if err := s.db.Create(stage).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return stage, nil
}

// GetCompanyStages returns the company's catalog in display order.
func (s *stageService) GetCompanyStages(companyID uint, includeInactive bool) ([]models.PipelineStage, error) {
	query := s.db.Where("company_id = ?", companyID)
	if !includeInactive {
		query = query.Where("is_active = ?", true)
	}

	var stages []models.PipelineStage
	if err := query.Order("display_order ASC").Find(&stages).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return stages, nil
}

// GetStageByID returns a stage if it belongs to the company.
func (s *stageService) GetStageByID(companyID, stageID uint) (*models.PipelineStage, error) {
	var stage models.PipelineStage
	if err := s.db.Where("id = ? AND company_id = ?", stageID, companyID).First(&stage).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrStageNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &stage, nil
}

// UpdateStage renames a stage or adjusts its probability, category, or
// active flag.
func (s *stageService) UpdateStage(companyID, stageID uint, name string, probability *int, category *models.StageCategory, isActive *bool) (*models.PipelineStage, error) {
	stage, err := s.GetStageByID(companyID, stageID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if name != "" && name != stage.Name {
		var count int64
		s.db.Model(&models.PipelineStage{}).
			Where("company_id = ? AND name = ? AND id <> ?", companyID, name, stageID).
			Count(&count)
		if count > 0 {
			return nil, apperrors.ErrDuplicateStageName
		}
		updates["name"] = name
	}
	if probability != nil {
		updates["probability"] = *probability
	}
	if category != nil {
		updates["category"] = *category
	}
	if isActive != nil {
		updates["is_active"] = *isActive
	}

	if len(updates) > 0 {
		if err := s.db.Model(stage).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	return stage, nil
}

// ReorderStages rewrites the display order of the company's stages to match
// the given ID sequence. Every active stage must be present exactly once.
func (s *stageService) ReorderStages(companyID uint, orderedIDs []uint) ([]models.PipelineStage, error) {
	stages, err := s.GetCompanyStages(companyID, true)
	if err != nil {
		return nil, err
	}

	byID := make(map[uint]*models.PipelineStage, len(stages))
	for i := range stages {
		byID[stages[i].ID] = &stages[i]
	}
	if len(orderedIDs) != len(stages) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "reorder must include every stage exactly once")
	}
	seen := make(map[uint]bool, len(orderedIDs))
	for _, id := range orderedIDs {
		if byID[id] == nil || seen[id] {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "reorder must include every stage exactly once")
		}
		seen[id] = true
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		// Two passes to avoid tripping the unique (company_id, display_order)
		// index mid-update.
		for i, id := range orderedIDs {
			if err := tx.Model(&models.PipelineStage{}).Where("id = ?", id).
				Update("display_order", -(i + 1)).Error; err != nil {
				return err
			}
		}
		for i, id := range orderedIDs {
			if err := tx.Model(&models.PipelineStage{}).Where("id = ?", id).
				Update("display_order", i+1).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return s.GetCompanyStages(companyID, true)
}

// DeleteStage removes a stage from the catalog. A stage still referenced by
// deals is soft-disabled instead of deleted so historical deals keep a valid
// stage name.
func (s *stageService) DeleteStage(companyID, stageID uint) error {
	stage, err := s.GetStageByID(companyID, stageID)
	if err != nil {
		return err
	}

	var refs int64
	if err := s.db.Model(&models.Deal{}).
		Where("company_id = ? AND pipeline_stage = ?", companyID, stage.Name).
		Count(&refs).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if refs > 0 {
		if err := s.db.Model(stage).Update("is_active", false).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	}

	if err := s.db.Unscoped().Delete(stage).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}
