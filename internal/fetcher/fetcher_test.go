package fetcher

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsRemote(t *testing.T) {
	assert.True(t, IsRemote("https://www.data.go.kr/uas.csv"))
	assert.True(t, IsRemote("HTTP://host/x"))
	assert.False(t, IsRemote("/tmp/uas.csv"))
	assert.False(t, IsRemote("uas.xlsx"))
}

func TestExt(t *testing.T) {
	assert.Equal(t, ".csv", Ext("/data/UAS.CSV"))
	assert.Equal(t, ".xlsx", Ext("https://host/file.xlsx?download=1"))
	assert.Equal(t, "", Ext("https://host/file"))
}

func TestOpen_Local(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.csv")
	require.NoError(t, writeTestFile(path, "a,b\n"))

	rc, err := Open(context.Background(), nil, path)
	require.NoError(t, err)
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	assert.Equal(t, "a,b\n", string(data))
}

func TestOpen_LocalMissing(t *testing.T) {
	_, err := Open(context.Background(), nil, filepath.Join(t.TempDir(), "missing.csv"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetcher: open")
}

func TestOpen_RemoteWithoutFetcher(t *testing.T) {
	_, err := Open(context.Background(), nil, "https://host/a.csv")
	require.Error(t, err)
}

func TestOpen_Remote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("remote"))
	}))
	defer srv.Close()

	rc, err := Open(context.Background(), newTestFetcher(), srv.URL+"/a.csv")
	require.NoError(t, err)
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	assert.Equal(t, "remote", string(data))
}

func TestLocalize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("xlsx-bytes"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	path, cleanup, err := Localize(context.Background(), newTestFetcher(), srv.URL+"/zones.xlsx", dir)
	require.NoError(t, err)
	assert.Equal(t, ".xlsx", filepath.Ext(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "xlsx-bytes", string(data))

	cleanup()
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestLocalize_LocalPassthrough(t *testing.T) {
	path, cleanup, err := Localize(context.Background(), nil, "/tmp/zones.xlsx", "")
	require.NoError(t, err)
	defer cleanup()
	assert.Equal(t, "/tmp/zones.xlsx", path)
}
