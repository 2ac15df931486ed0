package model

import "time"

// ChainCursor is the observer's durable progress marker. It is advanced in
// the same transaction that commits a block's deposits, so restarts resume
// without gaps and re-delivery is absorbed by the deposit natural key.
type ChainCursor struct {
	Name      string    `json:"name" gorm:"column:name;primaryKey"`
	Height    uint64    `json:"height" gorm:"column:height;not null"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ChainCursor) TableName() string {
	return "chain_cursors"
}
