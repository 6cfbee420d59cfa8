package viam

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"go.viam.com/rdk/app"
	"go.viam.com/rdk/logging"
)

// BinaryID locates an uploaded file inside Viam data management
type BinaryID struct {
	FileID         string `json:"file_id" yaml:"file_id"`
	OrganizationID string `json:"organization_id" yaml:"organization_id"`
	LocationID     string `json:"location_id" yaml:"location_id"`
}

func (b BinaryID) String() string {
	return fmt.Sprintf("%s/%s/%s", b.OrganizationID, b.LocationID, b.FileID)
}

// Client is the subset of the Viam app API the uploader needs
type Client interface {
	FileUpload(ctx context.Context, partID, fileExtension string, data []byte) (string, error)
	AddBinaryDataToDatasetByIDs(ctx context.Context, ids []BinaryID, datasetID string) error
	Close() error
	String() string
}

// Session is an authenticated connection to the Viam app
type Session struct {
	apiKeyID string
	client   *app.ViamClient
	data     *app.DataClient

	closeOnce sync.Once
	closeErr  error
}

// Connect dials the Viam app with an API key pair. There is no retry.
func Connect(ctx context.Context, apiKey, apiKeyID string) (*Session, error) {
	slog.Info("Connecting to Viam", "api_key_id", apiKeyID)

	logger := logging.NewLogger("viam-dataset-uploader")
	client, err := app.CreateViamClientWithAPIKey(ctx, app.Options{}, apiKey, apiKeyID, logger)
	if err != nil {
		return nil, &ConnectError{APIKeyID: apiKeyID, Err: err}
	}

	return &Session{
		apiKeyID: apiKeyID,
		client:   client,
		data:     client.DataClient(),
	}, nil
}

// FileUpload uploads raw bytes against a part and returns the new file id
func (s *Session) FileUpload(ctx context.Context, partID, fileExtension string, data []byte) (string, error) {
	fileID, err := s.data.FileUploadFromBytes(ctx, partID, data, uploadOptions(fileExtension))
	if err != nil {
		return "", fmt.Errorf("file upload failed: %w", err)
	}
	return fileID, nil
}

// AddBinaryDataToDatasetByIDs associates previously uploaded files with a dataset
func (s *Session) AddBinaryDataToDatasetByIDs(ctx context.Context, ids []BinaryID, datasetID string) error {
	if err := s.data.AddBinaryDataToDatasetByIDs(ctx, toAppBinaryIDs(ids), datasetID); err != nil {
		return fmt.Errorf("add to dataset failed: %w", err)
	}
	return nil
}

// Close releases the connection. Safe to call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		slog.Debug("Closing Viam session", "api_key_id", s.apiKeyID)
		s.closeErr = s.client.Close()
	})
	return s.closeErr
}

func (s *Session) String() string {
	return fmt.Sprintf("viam.Session{api_key_id: %s}", s.apiKeyID)
}

func uploadOptions(fileExtension string) *app.FileUploadOptions {
	return &app.FileUploadOptions{FileExtension: &fileExtension}
}

func toAppBinaryIDs(ids []BinaryID) []app.BinaryID {
	binaryIDs := make([]app.BinaryID, 0, len(ids))
	for _, id := range ids {
		binaryIDs = append(binaryIDs, app.BinaryID{
			FileID:         id.FileID,
			OrganizationID: id.OrganizationID,
			LocationID:     id.LocationID,
		})
	}
	return binaryIDs
}
