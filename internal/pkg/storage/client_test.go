package storage

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/imgproc_go_server/config"
)

func newTestClient(serverURL string) *Client {
	return NewClient(&config.StorageConfig{BaseURL: serverURL, Timeout: 2 * time.Second})
}

func uploadReq() *UploadRequest {
	return &UploadRequest{
		APIToken:    "tok-1",
		Filename:    "processed_abc.png",
		ContentType: "image/png",
		Data:        []byte("png-bytes"),
		Description: "尺寸调整处理结果",
		CategoryID:  "1",
		Tags:        "图片处理,resize",
	}
}

func TestUpload_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/files", r.URL.Path)
		assert.Equal(t, "tok-1", r.Header.Get("X-API-Token"))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "processed_abc.png", r.FormValue("filename"))
		assert.Equal(t, "尺寸调整处理结果", r.FormValue("description"))
		assert.Equal(t, "1", r.FormValue("category_id"))
		assert.Equal(t, "图片处理,resize", r.FormValue("tags"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "processed_abc.png", header.Filename)
		assert.Equal(t, "image/png", header.Header.Get("Content-Type"))
		data, err := io.ReadAll(file)
		require.NoError(t, err)
		assert.Equal(t, []byte("png-bytes"), data)

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"code": 200, "message": "ok",
			"data": map[string]interface{}{
				"file": map[string]interface{}{
					"id":          "file-1",
					"filename":    "processed_abc.png",
					"file_size":   9,
					"url":         "https://storage.example.com/files/file-1",
					"preview_url": "https://storage.example.com/preview/file-1",
				},
			},
		})
	}))
	defer server.Close()

	info, err := newTestClient(server.URL).Upload(context.Background(), uploadReq())
	require.NoError(t, err)
	assert.Equal(t, "file-1", info.ID)
	assert.Equal(t, "https://storage.example.com/files/file-1", info.URL)
}

func TestUpload_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Upload(context.Background(), uploadReq())
	assert.Error(t, err)
}

func TestUpload_MissingFileInResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"code": 200, "message": "ok", "data": map[string]interface{}{}})
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Upload(context.Background(), uploadReq())
	assert.Error(t, err)
}

func TestUpload_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	_, err := newTestClient(server.URL).Upload(context.Background(), uploadReq())
	assert.Error(t, err)
}
