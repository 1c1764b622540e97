package storage

import (
	"bytes"
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"BitcoinSentinel/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFrame(t *testing.T) model.Frame {
	t.Helper()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	prices := []float64{42000.5, 42100, 41950.25}
	points := make([]model.PricePoint, len(prices))
	for i, p := range prices {
		points[i] = model.PricePoint{Timestamp: start.AddDate(0, 0, i), Price: p}
	}
	s, err := model.NewPriceSeries(points)
	require.NoError(t, err)

	f := model.NewFrame(s)
	f, err = f.WithColumn(model.Column{Name: "Moving_Avg", Values: []float64{math.NaN(), 42050.25, 42025.125}})
	require.NoError(t, err)
	f, err = f.WithColumn(model.Column{Name: "Anomaly", Flags: []bool{false, true, false}})
	require.NoError(t, err)
	return f
}

func TestCSV_RoundTrip(t *testing.T) {
	f := testFrame(t)
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, f))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, "Timestamp,Price,Moving_Avg,Anomaly", lines[0])
	assert.Equal(t, "2024-01-01T00:00:00Z,42000.5,,false", lines[1])

	got, err := ReadCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, f.Series.Timestamps(), got.Series.Timestamps())
	assert.Equal(t, f.Series.Prices(), got.Series.Prices())
	assert.Equal(t, f.Header(), got.Header())

	ma, ok := got.Column("Moving_Avg")
	require.True(t, ok)
	assert.True(t, math.IsNaN(ma.Values[0]))
	assert.Equal(t, 42050.25, ma.Values[1])

	flag, ok := got.Column("Anomaly")
	require.True(t, ok)
	assert.Equal(t, []bool{false, true, false}, flag.Flags)
}

func TestReadCSV_LegacyFormats(t *testing.T) {
	in := "date,price\n2024-01-01,100\n2024-01-02 00:00:00,101.5\n"
	got, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []float64{100, 101.5}, got.Series.Prices())
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), got.Series.Points[1].Timestamp)
}

func TestReadCSV_Rejects(t *testing.T) {
	cases := map[string]string{
		"empty":          "",
		"no price":       "Timestamp,Close\n2024-01-01,1\n",
		"bad timestamp":  "Timestamp,Price\nyesterday,1\n",
		"bad price":      "Timestamp,Price\n2024-01-01,abc\n",
		"unsorted":       "Timestamp,Price\n2024-01-02,1\n2024-01-01,2\n",
		"negative price": "Timestamp,Price\n2024-01-01,-5\n",
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(in))
			assert.ErrorIs(t, err, model.ErrInvalidArgument)
		})
	}
}

func TestSaveLocal_Overwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "bitcoin_prices.csv")
	f := testFrame(t)
	require.NoError(t, SaveLocal(path, f))
	require.NoError(t, SaveLocal(path, model.NewFrame(f.Series)))

	got, err := LoadLocal(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Timestamp", "Price"}, got.Header())
	assert.Equal(t, 3, got.Series.Len())
}

func TestLoadLocal_Missing(t *testing.T) {
	_, err := LoadLocal(filepath.Join(t.TempDir(), "nope.csv"))
	assert.ErrorIs(t, err, model.ErrStorageFailed)
}

func TestSaveForecastLocal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "forecast.csv")
	ts := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, SaveForecastLocal(path, []model.ForecastPoint{{Timestamp: ts, Predicted: 95000.5}}))
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Timestamp,Forecast\n2025-01-01T00:00:00Z,95000.5\n", string(b))
}

func TestParseLocation(t *testing.T) {
	loc, err := ParseLocation("bitcoin-timeseries-data-kv/bitcoin_prices.csv")
	require.NoError(t, err)
	assert.Equal(t, Location{Bucket: "bitcoin-timeseries-data-kv", Key: "bitcoin_prices.csv"}, loc)

	loc, err = ParseLocation("s3://bucket/a/b.csv")
	require.NoError(t, err)
	assert.Equal(t, "bucket/a/b.csv", loc.String())

	for _, bad := range []string{"", "bucket", "bucket/", "/key.csv", "s3://bucket/dir/",
		"bucket/../outside.csv", "bucket/a/../../b.csv", "../key.csv", "bucket/./k.csv", `bucket/a\b.csv`} {
		_, err := ParseLocation(bad)
		assert.ErrorIs(t, err, model.ErrInvalidArgument, bad)
	}
}

func TestAdapter_UploadDownload(t *testing.T) {
	store := NewFileStore(t.TempDir())
	a := NewAdapter(store)
	loc := Location{Bucket: "bucket", Key: "data/bitcoin_prices.csv"}
	f := testFrame(t)

	res := a.Upload(context.Background(), f, loc)
	require.True(t, res.OK(), "%v", res.Err)
	assert.Positive(t, res.Bytes)
	assert.FileExists(t, filepath.Join(store.Root, "bucket", "data", "bitcoin_prices.csv"))

	got, res := a.Download(context.Background(), loc)
	require.True(t, res.OK(), "%v", res.Err)
	assert.Equal(t, f.Series.Prices(), got.Series.Prices())
}

func TestFileStore_RejectsEscapingKeys(t *testing.T) {
	root := t.TempDir()
	store := NewFileStore(filepath.Join(root, "objects"))
	loc := Location{Bucket: "bucket", Key: "../../escaped.csv"}

	err := store.Put(context.Background(), loc, []byte("x"))
	assert.ErrorIs(t, err, model.ErrInvalidArgument)
	assert.NoFileExists(t, filepath.Join(root, "escaped.csv"))

	_, err = store.Get(context.Background(), loc)
	assert.ErrorIs(t, err, model.ErrInvalidArgument)
}

type failingStore struct{ err error }

func (s failingStore) Name() string { return "failing" }
func (s failingStore) Put(context.Context, Location, []byte) error { return s.err }
func (s failingStore) Get(context.Context, Location) ([]byte, error) {
	return nil, s.err
}

func TestAdapter_FailuresAreExplicit(t *testing.T) {
	denied := errors.New("access denied")
	a := NewAdapter(failingStore{err: denied})
	loc := Location{Bucket: "b", Key: "k.csv"}

	res := a.Upload(context.Background(), testFrame(t), loc)
	assert.False(t, res.OK())
	assert.ErrorIs(t, res.Err, model.ErrStorageFailed)
	assert.ErrorIs(t, res.Err, denied)
	assert.Equal(t, loc, res.Location)

	_, res = a.Download(context.Background(), loc)
	assert.ErrorIs(t, res.Err, model.ErrStorageFailed)
}

func TestAdapter_DownloadMissingObject(t *testing.T) {
	a := NewAdapter(NewFileStore(t.TempDir()))
	_, res := a.Download(context.Background(), Location{Bucket: "b", Key: "missing.csv"})
	assert.ErrorIs(t, res.Err, model.ErrStorageFailed)
	assert.ErrorIs(t, res.Err, os.ErrNotExist)
}
