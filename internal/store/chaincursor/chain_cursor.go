package chaincursor

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dwarvesf/payments-backend/internal/model"
)

type store struct{}

func New() IStore {
	return &store{}
}

func (s *store) Get(db *gorm.DB, name string) (*model.ChainCursor, error) {
	var cursor model.ChainCursor
	err := db.Where("name = ?", name).First(&cursor).Error
	if err != nil {
		return nil, err
	}
	return &cursor, nil
}

func (s *store) Upsert(db *gorm.DB, name string, height uint64) error {
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"height", "updated_at"}),
	}).Create(&model.ChainCursor{
		Name:   name,
		Height: height,
	}).Error
}
