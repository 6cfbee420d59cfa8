// Package viamtest provides an in-memory viam.Client for tests
package viamtest

import (
	"context"
	"fmt"
	"sync"

	"github.com/lehigh-university-libraries/viam-dataset-uploader/internal/viam"
)

// Upload is one FileUpload call seen by the fake
type Upload struct {
	PartID        string
	FileExtension string
	Data          []byte
}

// Association is one AddBinaryDataToDatasetByIDs call seen by the fake
type Association struct {
	IDs       []viam.BinaryID
	DatasetID string
}

// Client records every call. File ids are id1, id2, ... in the order uploads
// succeed.
type Client struct {
	// FailUpload, when set, is consulted before each upload with the
	// 1-based call number
	FailUpload   func(n int) error
	AssociateErr error
	CloseErr     error

	mu           sync.Mutex
	calls        int
	uploads      []Upload
	associations []Association
	closed       int
}

var _ viam.Client = (*Client)(nil)

func (c *Client) FileUpload(ctx context.Context, partID, fileExtension string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls++
	if c.FailUpload != nil {
		if err := c.FailUpload(c.calls); err != nil {
			return "", err
		}
	}

	c.uploads = append(c.uploads, Upload{PartID: partID, FileExtension: fileExtension, Data: data})
	return fmt.Sprintf("id%d", len(c.uploads)), nil
}

func (c *Client) AddBinaryDataToDatasetByIDs(ctx context.Context, ids []viam.BinaryID, datasetID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.associations = append(c.associations, Association{
		IDs:       append([]viam.BinaryID(nil), ids...),
		DatasetID: datasetID,
	})
	return c.AssociateErr
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed++
	return c.CloseErr
}

func (c *Client) String() string {
	return "viamtest.Client"
}

// Uploads returns the successful uploads in call order
func (c *Client) Uploads() []Upload {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Upload(nil), c.uploads...)
}

// Associations returns every association call
func (c *Client) Associations() []Association {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Association(nil), c.associations...)
}

// Closed reports how many times Close was called
func (c *Client) Closed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
