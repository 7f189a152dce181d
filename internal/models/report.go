package models

// Report is a moderation report in reports/{reportId}. Only the reason is used here.
type Report struct {
	ID     string `json:"id,omitempty" firestore:"id"`
	Reason string `json:"reason" firestore:"reason"`
}

// StorageObject describes an object that finished uploading to the storage bucket.
type StorageObject struct {
	Bucket      string `json:"bucket"`
	Name        string `json:"name" validate:"required"`
	ContentType string `json:"contentType"`
}
