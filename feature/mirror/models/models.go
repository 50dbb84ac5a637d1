package models

import "time"

// Item is the desired content of one overlay object.
// Items are compared by value; two equal items never cause a rewrite.
type Item struct {
	Payload     string `json:"payload" yaml:"payload"`
	ContentType string `json:"content_type,omitempty" yaml:"content_type"`
}

// ObjectRef describes an object rendered into the bucket.
type ObjectRef struct {
	Object string `json:"object"`
	ETag   string `json:"etag"`
	Size   int64  `json:"size"`
}

// ItemRow is the database representation of an item.
type ItemRow struct {
	ID          uint      `gorm:"primaryKey"`
	ItemKey     string    `gorm:"column:item_key;uniqueIndex;size:255;not null"`
	Payload     string    `gorm:"column:payload;type:text"`
	ContentType string    `gorm:"column:content_type;size:128"`
	Enabled     bool      `gorm:"column:enabled;default:true"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`
}

// Item converts the row into its desired item.
func (r ItemRow) Item() Item {
	return Item{Payload: r.Payload, ContentType: r.ContentType}
}

// ItemRequest is the body of a single item write.
type ItemRequest struct {
	Payload     string `json:"payload"`
	ContentType string `json:"content_type"`
}

// ReplaceRequest is the body of a full collection replacement.
type ReplaceRequest struct {
	Items map[string]ItemRequest `json:"items"`
}

// RefreshReport summarises one refresh from the configured source.
type RefreshReport struct {
	Source   string `json:"source"`
	Items    int    `json:"items"`
	Duration string `json:"duration"`
}
