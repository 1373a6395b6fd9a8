// Package client implements the REST client for the remote dataset catalog.
//
// Calls are synchronous, blocking and single-attempt: there is no automatic
// retry. Transport-level failures surface as a uniform *ConnectionError;
// HTTP-level failures surface as status-specific typed errors.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
)

// Client talks to one catalog server with one API key.
type Client struct {
	server string
	key    string
	httpc  *http.Client
	log    *logrus.Entry
}

// New returns a client for the given server URL authenticating with key.
// A nil httpc selects a default client that does not follow redirects, so
// that the replaced-dataset status is visible to the caller.
func New(server, key string, httpc *http.Client) *Client {
	if httpc == nil {
		httpc = &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		}
	}
	return &Client{
		server: strings.TrimRight(server, "/"),
		key:    key,
		httpc:  httpc,
		log:    logrus.WithField("server", server),
	}
}

// Upload posts an encoded container to the catalog.
//
// A 400 response returns an *InvalidContentError; when the server already
// holds a static copy of the dataset the error carries its uuid, letting
// the caller resolve the conflict by downloading the server's copy.
func (c *Client) Upload(ctx context.Context, data []byte) error {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("uploadfile", "dataset.zdc")
	if err != nil {
		return err
	}
	if _, err := fw.Write(data); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.server+"/api/datasets/", &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Token "+c.key)

	c.log.WithField("size", len(data)).Debug("uploading dataset")
	resp, err := c.httpc.Do(req)
	if err != nil {
		return &ConnectionError{Server: c.server, Err: err}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusBadRequest:
		return invalidContent(resp.Body)
	case http.StatusForbidden:
		return &HTTPError{StatusCode: resp.StatusCode, Message: "unauthorized access"}
	case http.StatusConflict:
		return &HTTPError{StatusCode: resp.StatusCode, Message: "uuid is already existing"}
	case http.StatusUnsupportedMediaType:
		return &HTTPError{StatusCode: resp.StatusCode, Message: "invalid container format"}
	}
	if resp.StatusCode >= 400 {
		return &HTTPError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}
	return nil
}

// Download fetches an encoded container by uuid. The replaced return value
// reports a replaced-dataset response, whose body already carries the
// replacement container.
func (c *Client) Download(ctx context.Context, id string) (data []byte, replaced bool, err error) {
	url := c.server + "/api/datasets/" + id + "/download/"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Authorization", "Token "+c.key)

	c.log.WithField("uuid", id).Debug("downloading dataset")
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, false, &ConnectionError{Server: c.server, Err: err}
	}
	defer resp.Body.Close()

	data, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, &ConnectionError{Server: c.server, Err: err}
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return data, false, nil
	case http.StatusMovedPermanently:
		return data, true, nil
	case http.StatusNoContent:
		return nil, false, &HTTPError{StatusCode: resp.StatusCode, Message: "deleted dataset"}
	case http.StatusForbidden:
		return nil, false, &HTTPError{StatusCode: resp.StatusCode, Message: "unauthorized access"}
	case http.StatusNotFound:
		return nil, false, &HTTPError{StatusCode: resp.StatusCode, Message: "unknown dataset"}
	}
	if resp.StatusCode >= 400 {
		return nil, false, &HTTPError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}
	return data, false, nil
}

func invalidContent(body io.Reader) error {
	e := &InvalidContentError{}
	var descriptor struct {
		ID     string `json:"id"`
		Static bool   `json:"static"`
	}
	if err := json.NewDecoder(body).Decode(&descriptor); err == nil {
		e.Replacement = descriptor.ID
		e.Static = descriptor.Static
	}
	return e
}

// ConnectionError wraps any transport-level failure (connection refused,
// timeout, DNS failure) into a uniform error.
type ConnectionError struct {
	Server string
	Err    error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection to server %s failed: %v", e.Server, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// HTTPError reports a fatal HTTP status returned by the catalog.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), e.Message)
}

// InvalidContentError reports a rejected upload. When the server already
// holds a static copy of the dataset, Replacement names its uuid.
type InvalidContentError struct {
	Replacement string
	Static      bool
}

func (e *InvalidContentError) Error() string {
	return "400 Bad Request: invalid container content"
}
