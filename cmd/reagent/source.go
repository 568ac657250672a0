package main

import (
	"context"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/reagent/trace"
)

const defaultPageSize = 20

// traceSummary is taken from file or object metadata without reading the trace itself.
type traceSummary struct {
	TraceID   string    `json:"trace_id"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updated_at"`
}

type listRequest struct {
	pageSize  int
	pageToken string
}

type listResponse struct {
	traces        []traceSummary
	nextPageToken string
}

// traceSource reads traces stored by a trace.Repository.
type traceSource interface {
	List(ctx context.Context, req listRequest) (*listResponse, error)
	Get(ctx context.Context, traceID string) (*trace.Trace, error)
}

// newTraceSource opens a local directory, or a bucket when location is a gs:// URI.
func newTraceSource(ctx context.Context, location, storageEndpoint string) (traceSource, error) {
	if strings.HasPrefix(location, "gs://") {
		bucket, prefix, err := parseGSURI(location)
		if err != nil {
			return nil, err
		}
		return newCSStore(ctx, bucket, prefix, storageEndpoint)
	}
	return newLocalSource(location), nil
}

// parseGSURI splits gs://bucket/prefix. A non-empty prefix always ends with "/".
func parseGSURI(uri string) (string, string, error) {
	rest, ok := strings.CutPrefix(uri, "gs://")
	if !ok {
		return "", "", goerr.New("URI must start with gs://", goerr.V("uri", uri))
	}

	bucket, prefix, _ := strings.Cut(rest, "/")
	if bucket == "" {
		return "", "", goerr.New("bucket name is empty", goerr.V("uri", uri))
	}
	return bucket, normalizePrefix(prefix), nil
}

func normalizePrefix(prefix string) string {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return prefix
}
