package report_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/octane-tech/nfc-tracker/report"
)

func TestRenderHTMLPostsIndexFile(t *testing.T) {
	var gotPath, gotHTML, gotName string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			file, header, err := r.FormFile("files")
			if assert.NoError(t, err) {
				gotName = header.Filename
				raw, _ := io.ReadAll(file)
				gotHTML = string(raw)
			}
		}
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.7"))
	}))
	defer srv.Close()

	pdf, err := report.NewClient(srv.URL+"/").RenderHTML(context.Background(), "<h1>hi</h1>")
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.7"), pdf)
	assert.Equal(t, "/forms/chromium/convert/html", gotPath)
	assert.Equal(t, "index.html", gotName)
	assert.Equal(t, "<h1>hi</h1>", gotHTML)
}

func TestPingReportsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	assert.Error(t, report.NewClient(srv.URL).Ping(context.Background()))
}
