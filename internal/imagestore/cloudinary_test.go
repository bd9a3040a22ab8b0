package imagestore_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/octane-tech/nfc-tracker/internal/imagestore"
	"github.com/octane-tech/nfc-tracker/internal/platform/httpx"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestPublicIDFromURL(t *testing.T) {
	cases := []struct {
		url    string
		wantID string
		wantOK bool
	}{
		{url: "https://res.cloudinary.com/demo/image/upload/v1718000000/octane/photo_abc.jpg", wantID: "octane/photo_abc", wantOK: true},
		{url: "https://res.cloudinary.com/demo/image/upload/photo.png", wantID: "photo", wantOK: true},
		{url: "https://res.cloudinary.com/other/image/upload/v1/photo.png"},
		{url: "https://example.com/demo/image/upload/v1/photo.png"},
		{url: "https://res.cloudinary.com/demo/image/upload/v1"},
		{url: "not a url at all"},
	}
	for _, tc := range cases {
		id, ok := imagestore.PublicIDFromURL(tc.url, "demo")
		assert.Equal(t, tc.wantOK, ok, tc.url)
		assert.Equal(t, tc.wantID, id, tc.url)
	}
}

func TestSignSortsAndSkipsEmpty(t *testing.T) {
	a := imagestore.Sign(map[string]string{"timestamp": "1", "public_id": "x", "eager": ""}, "secret")
	b := imagestore.Sign(map[string]string{"public_id": "x", "timestamp": "1"}, "secret")
	assert.Equal(t, a, b)
	assert.Len(t, a, 40)
	assert.NotEqual(t, a, imagestore.Sign(map[string]string{"public_id": "x", "timestamp": "1"}, "other"))
}

func TestStoreUploadsSignedMultipart(t *testing.T) {
	var mu sync.Mutex
	var gotPath, gotPublicID, gotSignature, gotTimestamp string
	var gotFile []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		gotPath = r.URL.Path
		assert.NoError(t, r.ParseMultipartForm(1<<20))
		gotPublicID = r.FormValue("public_id")
		gotSignature = r.FormValue("signature")
		gotTimestamp = r.FormValue("timestamp")
		if file, _, err := r.FormFile("file"); assert.NoError(t, err) {
			gotFile, _ = io.ReadAll(file)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"secure_url": "https://res.cloudinary.com/demo/image/upload/v1/" + gotPublicID + ".png",
			"public_id":  gotPublicID,
		})
	}))
	defer srv.Close()

	store := imagestore.NewCloudinary(imagestore.Config{
		CloudName: "demo", APIKey: "key", APISecret: "secret", Folder: "octane", APIBase: srv.URL,
	}, nil)

	url, err := store.Store(context.Background(), pngHeader, "Receipt Photo.png")
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "/demo/image/upload", gotPath)
	assert.True(t, strings.HasPrefix(gotPublicID, "octane/receipt-photo_"), gotPublicID)
	assert.Equal(t, imagestore.Sign(map[string]string{"public_id": gotPublicID, "timestamp": gotTimestamp}, "secret"), gotSignature)
	assert.Equal(t, pngHeader, gotFile)
	assert.Contains(t, url, gotPublicID)
}

func TestStoreFailureIsDependencyError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid Signature"}}`))
	}))
	defer srv.Close()

	store := imagestore.NewCloudinary(imagestore.Config{CloudName: "demo", APIKey: "key", APISecret: "bad", APIBase: srv.URL}, nil)
	_, err := store.Store(context.Background(), pngHeader, "a.png")
	require.ErrorIs(t, err, httpx.ErrDependency)
	assert.Contains(t, err.Error(), "Invalid Signature")

	unconfigured := imagestore.NewCloudinary(imagestore.Config{}, nil)
	_, err = unconfigured.Store(context.Background(), pngHeader, "a.png")
	require.ErrorIs(t, err, httpx.ErrDependency)
}

func TestDelete(t *testing.T) {
	var calls int
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()
		assert.NoError(t, r.ParseForm())
		result := "ok"
		if r.FormValue("public_id") == "octane/missing" {
			result = "not found"
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"result": result})
	}))
	defer srv.Close()

	store := imagestore.NewCloudinary(imagestore.Config{CloudName: "demo", APIKey: "key", APISecret: "secret", APIBase: srv.URL}, nil)

	deleted, err := store.Delete(context.Background(), "https://res.cloudinary.com/demo/image/upload/v9/octane/abc.jpg")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = store.Delete(context.Background(), "https://res.cloudinary.com/demo/image/upload/v9/octane/missing.jpg")
	require.NoError(t, err)
	assert.False(t, deleted)

	deleted, err = store.Delete(context.Background(), "https://cdn.example.com/abc.jpg")
	require.NoError(t, err)
	assert.False(t, deleted)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, calls)
}

func TestDetectImage(t *testing.T) {
	ct, err := imagestore.DetectImage(pngHeader)
	require.NoError(t, err)
	assert.Equal(t, "image/png", ct)

	_, err = imagestore.DetectImage([]byte("%PDF-1.4 not an image"))
	assert.ErrorIs(t, err, httpx.ErrValidation)
}
