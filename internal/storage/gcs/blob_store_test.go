package gcs_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"cloud.google.com/go/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/JakeFAU/vacancy-crawler/internal/storage/gcs"
)

type roundTripperFunc func(req *http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(r *http.Request, status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{"Content-Type": {"application/json"}},
		Request:    r,
	}
}

func newTestStore(t *testing.T, handler http.Handler, prefix string) *gcs.BlobStore {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := storage.NewClient(context.Background(), option.WithEndpoint(server.URL), option.WithoutAuthentication())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	store, err := gcs.New(client, gcs.Config{Bucket: "reports-bucket", Prefix: prefix})
	require.NoError(t, err)
	return store
}

func TestPutObjectUploadsUnderPrefix(t *testing.T) {
	var gotName atomic.Value
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/b/reports-bucket/o")
		gotName.Store(r.URL.Query().Get("name"))
		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.Contains(t, string(body), "workbook-bytes")
		fmt.Fprintln(w, `{"name": "reports/run-1/job_offers.xlsx", "bucket": "reports-bucket"}`)
	})
	store := newTestStore(t, handler, "/reports/")

	uri, err := store.PutObject(context.Background(), "run-1/job_offers.xlsx",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", strings.NewReader("workbook-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "gs://reports-bucket/reports/run-1/job_offers.xlsx", uri)
	assert.Equal(t, "reports/run-1/job_offers.xlsx", gotName.Load())
}

func TestPutObjectServerError(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	store := newTestStore(t, handler, "")

	_, err := store.PutObject(context.Background(), "a.html", "text/html", strings.NewReader("x"))
	assert.Error(t, err)
}

func TestPutObjectRequiresPath(t *testing.T) {
	store := newTestStore(t, http.NotFoundHandler(), "")
	_, err := store.PutObject(context.Background(), "", "text/html", strings.NewReader("x"))
	assert.ErrorIs(t, err, gcs.ErrPathRequired)
}

func TestNewValidatesArguments(t *testing.T) {
	_, err := gcs.New(nil, gcs.Config{Bucket: "b"})
	assert.ErrorIs(t, err, gcs.ErrClientRequired)

	client, err := storage.NewClient(context.Background(), option.WithoutAuthentication())
	require.NoError(t, err)
	defer client.Close()
	_, err = gcs.New(client, gcs.Config{})
	assert.ErrorIs(t, err, gcs.ErrBucketRequired)
}

func TestNewClientChecksBucket(t *testing.T) {
	t.Run("BucketExists", func(t *testing.T) {
		client, err := gcs.NewClient(context.Background(), "reports-bucket",
			option.WithoutAuthentication(),
			option.WithHTTPClient(&http.Client{Transport: roundTripperFunc(func(r *http.Request) (*http.Response, error) {
				assert.Contains(t, r.URL.Path, "/storage/v1/b/reports-bucket")
				return jsonResponse(r, http.StatusOK, `{"name": "reports-bucket"}`), nil
			})}),
		)
		require.NoError(t, err)
		require.NoError(t, client.Close())
	})

	t.Run("BucketMissing", func(t *testing.T) {
		_, err := gcs.NewClient(context.Background(), "reports-bucket",
			option.WithoutAuthentication(),
			option.WithHTTPClient(&http.Client{Transport: roundTripperFunc(func(r *http.Request) (*http.Response, error) {
				return jsonResponse(r, http.StatusNotFound, `{"error": {"code": 404, "message": "Not Found"}}`), nil
			})}),
		)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "get GCS bucket")
	})

	t.Run("BucketRequired", func(t *testing.T) {
		_, err := gcs.NewClient(context.Background(), "")
		assert.ErrorIs(t, err, gcs.ErrBucketRequired)
	})
}
