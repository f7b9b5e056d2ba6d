package models

// StageCategory classifies a pipeline stage as open or terminal.
type StageCategory string

const (
	StageCategoryOpen StageCategory = "open"
	StageCategoryWon  StageCategory = "won"
	StageCategoryLost StageCategory = "lost"
)

// PipelineStage is one named step in a company's sales pipeline. Stage name
// and display order are each unique within a company. A stage referenced by
// deals is never hard-deleted, only disabled.
type PipelineStage struct {
	Base
	CompanyID    uint          `gorm:"not null;uniqueIndex:idx_stage_name;uniqueIndex:idx_stage_order" json:"company_id"`
	Name         string        `gorm:"not null;uniqueIndex:idx_stage_name" json:"name"`
	DisplayOrder int           `gorm:"not null;uniqueIndex:idx_stage_order" json:"order"`
	Probability  int           `gorm:"not null;default:10" json:"probability"`
	Category     StageCategory `gorm:"not null;default:'open'" json:"category"`
	IsActive     bool          `gorm:"default:true" json:"is_active"`
	IsDefault    bool          `gorm:"default:false" json:"is_default"`
}

// IsTerminal reports whether the stage closes a deal.
func (s *PipelineStage) IsTerminal() bool {
	return s.Category == StageCategoryWon || s.Category == StageCategoryLost
}
