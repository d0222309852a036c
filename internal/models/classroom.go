package models

import "time"

// Classroom is a bookable teaching room.
type Classroom struct {
	ID        string    `db:"id" json:"id"`
	Code      string    `db:"code" json:"code"`
	Capacity  int       `db:"capacity" json:"capacity"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
