// Package filestore is the client for the avatar file-store collaborator.
// The collaborator owns the bytes; the rest of the system only ever sees
// the URL this client returns.
package filestore

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"

	"taskhub/backend/logging"
	"taskhub/backend/models"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
}

// NewClient builds a file-store client for the service at baseURL. All
// outbound calls go through a circuit breaker so a dead file store fails
// fast instead of stalling profile updates.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "FileStoreCB",
		MaxRequests: 1,
		Timeout:     5 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Logger.Infof("Event ID: CIRCUIT_BREAKER_STATE_CHANGE, Description: Circuit Breaker '%s' changed from '%s' to '%s'", name, from.String(), to.String())
		},
	})

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		breaker:    breaker,
	}
}

// Upload stores the bytes under a fresh object name derived from the
// original filename's extension and returns the public URL.
func (c *Client) Upload(ctx context.Context, name, contentType string, data []byte) (string, error) {
	object := uuid.New().String() + strings.ToLower(path.Ext(name))
	url := c.baseURL + "/files/" + object

	_, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", contentType)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
			return nil, fmt.Errorf("file store returned status %d", resp.StatusCode)
		}
		return nil, nil
	})
	if err != nil {
		logging.Logger.Errorf("Event ID: FILESTORE_UPLOAD_FAILED, Description: Upload of %s failed: %v", object, err)
		return "", models.NewStoreError("filestore upload", err)
	}

	return url, nil
}

// Delete removes a previously uploaded object by its URL. Deleting an
// object that is already gone is not an error.
func (c *Client) Delete(ctx context.Context, url string) error {
	if !strings.HasPrefix(url, c.baseURL+"/") {
		return models.NewValidationError("url does not belong to this file store")
	}

	_, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
		if err != nil {
			return nil, err
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusNotFound {
			return nil, fmt.Errorf("file store returned status %d", resp.StatusCode)
		}
		return nil, nil
	})
	if err != nil {
		logging.Logger.Errorf("Event ID: FILESTORE_DELETE_FAILED, Description: Delete of %s failed: %v", url, err)
		return models.NewStoreError("filestore delete", err)
	}
	return nil
}
