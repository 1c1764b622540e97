package storage

import (
	"bytes"
	"context"
	"fmt"

	"BitcoinSentinel/internal/model"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Result describes the outcome of one transfer. Err wraps model.ErrStorageFailed.
type Result struct {
	Location Location
	Bytes    int
	Err      error
}

// OK reports whether the transfer succeeded.
func (r Result) OK() bool { return r.Err == nil }

// Adapter moves frames between memory and a BlobStore as CSV.
type Adapter struct {
	Store  BlobStore
	logger zerolog.Logger
}

// NewAdapter creates an adapter over store.
func NewAdapter(store BlobStore) *Adapter {
	return &Adapter{
		Store:  store,
		logger: log.With().Str("component", "storage").Str("store", store.Name()).Logger(),
	}
}

// Upload writes the frame to loc, replacing any previous object.
func (a *Adapter) Upload(ctx context.Context, f model.Frame, loc Location) Result {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, f); err != nil {
		return a.fail(loc, 0, "encode", err)
	}
	if err := a.Store.Put(ctx, loc, buf.Bytes()); err != nil {
		return a.fail(loc, 0, "put", err)
	}
	a.logger.Info().Str("location", loc.String()).Int("bytes", buf.Len()).Msg("Uploaded")
	return Result{Location: loc, Bytes: buf.Len()}
}

// Download reads and decodes the frame stored at loc.
func (a *Adapter) Download(ctx context.Context, loc Location) (model.Frame, Result) {
	body, err := a.Store.Get(ctx, loc)
	if err != nil {
		return model.Frame{}, a.fail(loc, 0, "get", err)
	}
	f, err := ReadCSV(bytes.NewReader(body))
	if err != nil {
		return model.Frame{}, a.fail(loc, len(body), "decode", err)
	}
	a.logger.Info().Str("location", loc.String()).Int("rows", f.Series.Len()).Msg("Downloaded")
	return f, Result{Location: loc, Bytes: len(body)}
}

func (a *Adapter) fail(loc Location, n int, op string, err error) Result {
	a.logger.Error().Err(err).Str("location", loc.String()).Str("op", op).Msg("Storage operation failed")
	return Result{
		Location: loc,
		Bytes:    n,
		Err:      fmt.Errorf("%w: %s %s: %w", model.ErrStorageFailed, op, loc, err),
	}
}
