package chaincursor

import (
	"gorm.io/gorm"

	"github.com/dwarvesf/payments-backend/internal/model"
)

type IStore interface {
	Get(db *gorm.DB, name string) (*model.ChainCursor, error)
	Upsert(db *gorm.DB, name string, height uint64) error
}
