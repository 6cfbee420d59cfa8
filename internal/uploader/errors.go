package uploader

import "fmt"

// UploadError wraps a failed file upload RPC
type UploadError struct {
	Path string
	Err  error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("failed to upload %s: %v", e.Path, e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// AssociationError wraps a failed dataset association. The files it names
// are already uploaded.
type AssociationError struct {
	DatasetID string
	Count     int
	Err       error
}

func (e *AssociationError) Error() string {
	return fmt.Sprintf("failed to add %d images to dataset %s: %v", e.Count, e.DatasetID, e.Err)
}

func (e *AssociationError) Unwrap() error {
	return e.Err
}

// BatchError reports files that failed while the rest of the batch continued
type BatchError struct {
	Failed int
	Total  int
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("%d of %d images failed", e.Failed, e.Total)
}
