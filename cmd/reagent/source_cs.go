package main

import (
	"context"
	"encoding/json"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/reagent/trace"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// csStore keeps traces in a Cloud Storage bucket as {prefix}{trace_id}.json. It is both the
// trace.Repository of the run command and the traceSource of the traces command.
type csStore struct {
	bucket string
	prefix string
	client *storage.Client
}

// newCSStore connects with application default credentials, or anonymously to endpoint (for a
// storage emulator) when it is set.
func newCSStore(ctx context.Context, bucket, prefix, endpoint string) (*csStore, error) {
	var options []option.ClientOption
	if endpoint != "" {
		options = append(options, option.WithEndpoint(endpoint), option.WithoutAuthentication())
	}

	client, err := storage.NewClient(ctx, options...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create Cloud Storage client")
	}
	return &csStore{
		bucket: bucket,
		prefix: normalizePrefix(prefix),
		client: client,
	}, nil
}

func (s *csStore) objectName(traceID string) string {
	return s.prefix + traceID + ".json"
}

// Save implements trace.Repository.
func (s *csStore) Save(ctx context.Context, t *trace.Trace) error {
	data, err := trace.Marshal(t)
	if err != nil {
		return err
	}

	objectName := s.objectName(t.TraceID)
	w := s.client.Bucket(s.bucket).Object(objectName).NewWriter(ctx)
	w.ContentType = "application/json"

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return goerr.Wrap(err, "failed to write trace object",
			goerr.V("bucket", s.bucket),
			goerr.V("object", objectName),
		)
	}
	if err := w.Close(); err != nil {
		return goerr.Wrap(err, "failed to upload trace object",
			goerr.V("bucket", s.bucket),
			goerr.V("object", objectName),
		)
	}
	return nil
}

func (s *csStore) List(ctx context.Context, req listRequest) (*listResponse, error) {
	pageSize := req.pageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	it := s.client.Bucket(s.bucket).Objects(ctx, &storage.Query{Prefix: s.prefix})
	pager := iterator.NewPager(it, pageSize, req.pageToken)

	var attrs []*storage.ObjectAttrs
	nextToken, err := pager.NextPage(&attrs)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list objects",
			goerr.V("bucket", s.bucket),
			goerr.V("prefix", s.prefix),
		)
	}

	resp := &listResponse{nextPageToken: nextToken}
	for _, attr := range attrs {
		name := strings.TrimPrefix(attr.Name, s.prefix)
		traceID, ok := strings.CutSuffix(name, ".json")
		if !ok || traceID == "" || strings.Contains(traceID, "/") {
			continue
		}

		resp.traces = append(resp.traces, traceSummary{
			TraceID:   traceID,
			Size:      attr.Size,
			UpdatedAt: attr.Updated,
		})
	}

	return resp, nil
}

func (s *csStore) Get(ctx context.Context, traceID string) (*trace.Trace, error) {
	objectName := s.objectName(traceID)
	reader, err := s.client.Bucket(s.bucket).Object(objectName).NewReader(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read trace object",
			goerr.V("bucket", s.bucket),
			goerr.V("object", objectName),
		)
	}
	defer func() { _ = reader.Close() }()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read trace data",
			goerr.V("bucket", s.bucket),
			goerr.V("object", objectName),
		)
	}

	var t trace.Trace
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, goerr.Wrap(err, "failed to parse trace data",
			goerr.V("bucket", s.bucket),
			goerr.V("object", objectName),
		)
	}

	return &t, nil
}

// Close releases the storage client.
func (s *csStore) Close() error {
	return s.client.Close()
}
