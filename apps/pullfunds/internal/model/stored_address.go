package model

import (
	"time"
)

type StoredAddress struct {
	ID        int64     `db:"id"`
	Address   string    `db:"address"`
	Timestamp time.Time `db:"timestamp"`
}
