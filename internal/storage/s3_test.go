package storage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/hakconsole/internal/config"
)

func TestDetectStorageType(t *testing.T) {
	assert.Equal(t, StorageTypeR2, detectStorageType("https://abc.r2.cloudflarestorage.com"))
	assert.Equal(t, StorageTypeS3, detectStorageType("s3.eu-west-1.amazonaws.com"))
	assert.Equal(t, StorageTypeS3, detectStorageType(""))
	assert.Equal(t, StorageTypeS3Compatible, detectStorageType("minio:9000"))
}

func TestNormalizeEndpoint(t *testing.T) {
	assert.Equal(t, "minio:9000", normalizeEndpoint("http://minio:9000/"))
	assert.Equal(t, "host", normalizeEndpoint("https://host/some/path"))
	assert.Equal(t, "", normalizeEndpoint(""))
}

func TestNewURLs(t *testing.T) {
	store, err := New(&config.StorageConfig{
		Endpoint:  "http://minio:9000",
		AccessKey: "key",
		SecretKey: "secret",
		Bucket:    "artifacts",
	})
	require.NoError(t, err)
	assert.Equal(t, "http://minio:9000/artifacts/jobs/a/result", store.URL("jobs/a/result"))

	store, err = New(&config.StorageConfig{
		AccessKey: "key",
		SecretKey: "secret",
		Bucket:    "artifacts",
		Region:    "eu-west-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://artifacts.s3.eu-west-1.amazonaws.com/k", store.URL("k"))

	store, err = New(&config.StorageConfig{
		AccessKey: "key",
		SecretKey: "secret",
		Bucket:    "artifacts",
		PublicURL: "https://cdn.example.com/",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/k", store.URL("k"))

	_, err = New(&config.StorageConfig{})
	assert.Error(t, err)
}

func TestStat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		switch r.URL.Path {
		case "/artifacts/jobs/j1/result":
			w.Header().Set("Content-Type", "application/xml")
			w.Header().Set("Content-Length", "10")
			w.Header().Set("Content-Disposition", `attachment; filename="j1-result.xml"`)
			w.Header().Set("Last-Modified", "Fri, 14 Jul 2017 02:40:00 GMT")
			w.Header().Set("X-Amz-Meta-Job-Uuid", "j1")
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	store, err := New(&config.StorageConfig{
		Endpoint:  srv.URL,
		AccessKey: "key",
		SecretKey: "secret",
		Bucket:    "artifacts",
	})
	require.NoError(t, err)

	info, err := store.Stat(context.Background(), "jobs/j1/result")
	require.NoError(t, err)
	assert.Equal(t, int64(10), info.Size)
	assert.Equal(t, "application/xml", info.ContentType)
	assert.Equal(t, "j1-result.xml", info.Filename)
	assert.Equal(t, 2017, info.LastModified.Year())

	_, err = store.Stat(context.Background(), "jobs/j2/result")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}
