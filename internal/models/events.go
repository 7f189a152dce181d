package models

// CreateEvent is the payload pushed when a document is created.
type CreateEvent[T any] struct {
	EventID string `json:"eventId"`
	Value   T      `json:"value" validate:"required"`
}

// UpdateEvent is the payload pushed when a document is updated. Before is nil
// when the previous snapshot did not exist.
type UpdateEvent[T any] struct {
	EventID string `json:"eventId"`
	Before  *T     `json:"before"`
	After   T      `json:"after" validate:"required"`
}
