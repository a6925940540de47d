package ldp

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/teranos/fedlens/errors"
	"github.com/teranos/fedlens/internal/httpclient"
	"github.com/teranos/fedlens/logger"
	"github.com/teranos/fedlens/rdf"
)

// maxBodyBytes bounds how much of a response body is read.
const maxBodyBytes = 64 << 20

// preferLenient asks Fedora to ignore server-managed triples echoed back on PUT.
const preferLenient = `handling=lenient; received="minimal"`

// HTTPRepository is a Repository backed by an LDP server over HTTP,
// exchanging N-Triples.
type HTTPRepository struct {
	baseURL   string
	container string
	client    *httpclient.SaferClient
	logger    *zap.SugaredLogger
}

// NewHTTPRepository returns a repository rooted at baseURL (no trailing
// slash). New resources are POSTed to container.
func NewHTTPRepository(baseURL, container string, client *httpclient.SaferClient, log *zap.SugaredLogger) *HTTPRepository {
	if client == nil {
		client = httpclient.New(httpclient.Options{AllowPrivate: true})
	}
	return &HTTPRepository{
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		container: NormalizeID(container),
		client:    client,
		logger:    logger.OrNop(log),
	}
}

// BaseURL returns the repository root.
func (h *HTTPRepository) BaseURL() string { return h.baseURL }

func (h *HTTPRepository) url(id string) string {
	id = NormalizeID(id)
	if id == "/" {
		return h.baseURL + "/"
	}
	return h.baseURL + id
}

// Find GETs the resource stored under id.
func (h *HTTPRepository) Find(ctx context.Context, id string) (*Resource, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errors.NewInvalidRequestError("empty resource id")
	}
	target := h.url(id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to build request for %s", target)
	}
	req.Header.Set("Accept", rdf.MediaTypeNTriples)

	resp, err := h.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, h.statusError(resp)
	}

	g, err := rdf.DecodeNTriples(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", target)
	}

	r := LoadedResource(NormalizeID(id), rdf.IRI(target), g, resp.Header.Get("ETag"))
	h.logger.Infow("fetched resource",
		logger.FieldResource, r.ID(),
		logger.FieldCount, g.Len(),
		logger.FieldETag, r.ETag(),
	)
	return r, nil
}

// Create POSTs r to the container and adopts the Location the server
// assigns.
func (h *HTTPRepository) Create(ctx context.Context, r *Resource) error {
	if !r.IsNew() {
		return errors.NewInvalidRequestError("resource %s already exists", r.ID())
	}
	target := h.url(h.container)
	body, err := rdf.MarshalNTriples(r.Graph())
	if err != nil {
		return errors.Mark(errors.Wrapf(err, "failed to encode %s", r), errors.ErrInvalidRequest)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return errors.Wrapf(err, "failed to build request for %s", target)
	}
	req.Header.Set("Content-Type", rdf.MediaTypeNTriples)

	resp, err := h.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return h.statusError(resp)
	}

	location := resp.Header.Get("Location")
	if location == "" {
		// Fedora also returns the new IRI as the body
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		location = strings.TrimSpace(string(body))
	}
	id, ok := IDFromSubject(h.baseURL, location)
	if !ok {
		return errors.Newf("repository returned location %q outside %s", location, h.baseURL)
	}

	r.assign(id, rdf.IRI(location), resp.Header.Get("ETag"))
	h.logger.Infow("created resource", logger.FieldResource, id, logger.FieldSubject, location)
	return nil
}

// Save PUTs the full graph of r. The request is conditional on the ETag r
// was read with, so a concurrent change yields errors.ErrConflict.
func (h *HTTPRepository) Save(ctx context.Context, r *Resource) error {
	if r.IsNew() {
		return errors.NewInvalidRequestError("cannot save a resource that was never created")
	}
	target := h.url(r.ID())
	body, err := rdf.MarshalNTriples(r.Graph())
	if err != nil {
		return errors.Mark(errors.Wrapf(err, "failed to encode %s", r), errors.ErrInvalidRequest)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, target, bytes.NewReader(body))
	if err != nil {
		return errors.Wrapf(err, "failed to build request for %s", target)
	}
	req.Header.Set("Content-Type", rdf.MediaTypeNTriples)
	req.Header.Set("Prefer", preferLenient)
	if r.ETag() != "" {
		req.Header.Set("If-Match", r.ETag())
	}

	resp, err := h.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusNoContent:
	default:
		return h.statusError(resp)
	}

	// an absent ETag means the old one is stale
	r.etag = resp.Header.Get("ETag")
	h.logger.Infow("saved resource", logger.FieldResource, r.ID(), logger.FieldCount, r.Graph().Len())
	return nil
}

// Delete removes the resource from the repository.
func (h *HTTPRepository) Delete(ctx context.Context, r *Resource) error {
	if r.IsNew() {
		return errors.NewInvalidRequestError("cannot delete a resource that was never created")
	}
	target := h.url(r.ID())
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, target, nil)
	if err != nil {
		return errors.Wrapf(err, "failed to build request for %s", target)
	}

	resp, err := h.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent, http.StatusGone:
	default:
		return h.statusError(resp)
	}
	r.etag = ""
	h.logger.Infow("deleted resource", logger.FieldResource, r.ID())
	return nil
}

func (h *HTTPRepository) do(req *http.Request) (*http.Response, error) {
	h.logger.Debugw("repository request", logger.FieldMethod, req.Method, logger.FieldURL, req.URL.String())
	resp, err := h.client.Do(req)
	if err != nil {
		if errors.Is(err, httpclient.ErrBlocked) {
			return nil, errors.WithHint(
				errors.Wrapf(err, "%s %s", req.Method, req.URL),
				"set repository.allow_private = true to reach a repository on localhost")
		}
		return nil, errors.WithHint(
			errors.Mark(errors.Wrapf(err, "%s %s", req.Method, req.URL), errors.ErrServiceUnavailable),
			"check repository.base_url and that the repository is running")
	}
	return resp, nil
}

func (h *HTTPRepository) statusError(resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	where := resp.Request.Method + " " + resp.Request.URL.String()
	detail := strings.TrimSpace(string(snippet))

	var err error
	switch {
	case resp.StatusCode == http.StatusNotFound:
		err = errors.NewNotFoundError("%s", where)
	case resp.StatusCode == http.StatusPreconditionFailed, resp.StatusCode == http.StatusConflict:
		err = errors.Wrapf(errors.ErrConflict, "%s: status %d", where, resp.StatusCode)
	case resp.StatusCode >= 500:
		err = errors.WithHint(
			errors.Wrapf(errors.ErrServiceUnavailable, "%s: status %d", where, resp.StatusCode),
			"the repository reported an internal error; check its logs")
	case resp.StatusCode >= 400:
		err = errors.Wrapf(errors.ErrInvalidRequest, "%s: status %d", where, resp.StatusCode)
	default:
		err = errors.Newf("%s: unexpected status %d", where, resp.StatusCode)
	}
	if detail != "" {
		err = errors.WithDetail(err, detail)
	}
	h.logger.Warnw("repository request failed", logger.FieldURL, where, logger.FieldStatus, resp.StatusCode)
	return err
}
