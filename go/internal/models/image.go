package models

import "time"

// ImageRecord represents one accepted image submission on the wall
type ImageRecord struct {
	ID        int64     `json:"id"`
	Reference string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
}
