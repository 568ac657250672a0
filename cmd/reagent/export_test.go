package main

import (
	"context"

	"github.com/m-mizutani/reagent/trace"
)

var (
	NewApp         = newApp
	ParseGSURI     = parseGSURI
	ParseKeyValues = parseKeyValues
	WriteTrace     = writeTrace
)

type TraceSummary = traceSummary

// ListResult holds the exported result of a List call.
type ListResult struct {
	Traces        []TraceSummary
	NextPageToken string
}

// TestableSource wraps a traceSource for external test access.
type TestableSource struct {
	src traceSource
}

func NewLocalSource(dir string) *TestableSource {
	return &TestableSource{src: newLocalSource(dir)}
}

func NewCSSource(ctx context.Context, bucket, prefix string) (*TestableSource, error) {
	store, err := newCSStore(ctx, bucket, prefix, "")
	if err != nil {
		return nil, err
	}
	return &TestableSource{src: store}, nil
}

// Save works only for sources that are also a trace.Repository.
func (ts *TestableSource) Save(ctx context.Context, t *trace.Trace) error {
	return ts.src.(trace.Repository).Save(ctx, t)
}

func (ts *TestableSource) List(ctx context.Context, pageSize int, pageToken string) (*ListResult, error) {
	resp, err := ts.src.List(ctx, listRequest{
		pageSize:  pageSize,
		pageToken: pageToken,
	})
	if err != nil {
		return nil, err
	}
	return &ListResult{
		Traces:        resp.traces,
		NextPageToken: resp.nextPageToken,
	}, nil
}

func (ts *TestableSource) Get(ctx context.Context, traceID string) (*trace.Trace, error) {
	return ts.src.Get(ctx, traceID)
}
