package api

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/vdavid/chatsync/internal/models"
	"github.com/vdavid/chatsync/internal/validation"
)

// maxDownloadSize caps attachment downloads held in memory.
const maxDownloadSize = 50 << 20

// Upload stores a file in Drive and returns its reference.
func (c *Client) Upload(ctx context.Context, name string, content io.Reader) (*models.FileRef, error) {
	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)

	go func() {
		part, err := form.CreateFormFile("file", name)
		if err == nil {
			_, err = io.Copy(part, content)
		}
		if err == nil {
			err = form.Close()
		}
		_ = pw.CloseWithError(err)
	}()

	req, err := c.newRequest(ctx, http.MethodPost, "/api/drive/files", pr)
	if err != nil {
		_ = pr.CloseWithError(err)
		return nil, err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := c.send(req)
	if err != nil {
		return nil, err
	}
	defer closeBody(resp)

	var ref models.FileRef
	if err := decodeValidated(resp.Body, &ref); err != nil {
		return nil, fmt.Errorf("upload %s: %w", name, err)
	}
	return &ref, nil
}

// Download fetches an attachment's bytes from Drive.
func (c *Client) Download(ctx context.Context, fileID string) ([]byte, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/drive/files/"+url.PathEscape(fileID)+"/content", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.send(req)
	if err != nil {
		return nil, err
	}
	defer closeBody(resp)

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", fileID, err)
	}
	if len(data) > maxDownloadSize {
		return nil, fmt.Errorf("file %s exceeds %d bytes", fileID, maxDownloadSize)
	}
	return data, nil
}

// MoveToTrash hands a resource to the Trash service.
func (c *Client) MoveToTrash(ctx context.Context, item models.TrashItem) error {
	if err := validation.Struct(&item); err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, "/api/trash/items", item, nil)
}

// Enforce asks Governance whether an action is allowed. A malformed answer is
// an error, so callers fail closed.
func (c *Client) Enforce(ctx context.Context, req models.GovernanceRequest) (*models.GovernanceResult, error) {
	if err := validation.Struct(&req); err != nil {
		return nil, err
	}

	var result models.GovernanceResult
	if err := c.do(ctx, http.MethodPost, "/api/governance/enforce", req, &result); err != nil {
		return nil, err
	}
	if err := validation.Struct(&result); err != nil {
		return nil, fmt.Errorf("governance response: %w", err)
	}
	return &result, nil
}

// Classification returns the retention sensitivity label of a resource.
func (c *Client) Classification(ctx context.Context, resourceType, resourceID string) (*models.Classification, error) {
	var classification models.Classification
	path := "/api/retention/classifications/" + url.PathEscape(resourceType) + "/" + url.PathEscape(resourceID)
	if err := c.do(ctx, http.MethodGet, path, nil, &classification); err != nil {
		return nil, err
	}
	if err := validation.Struct(&classification); err != nil {
		return nil, fmt.Errorf("classification response: %w", err)
	}
	return &classification, nil
}

func decodeValidated(body io.Reader, out any) error {
	if err := jsonDecode(body, out); err != nil {
		return err
	}
	return validation.Struct(out)
}
