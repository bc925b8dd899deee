package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(baseURL string, maxPolls int) *AutoTranscriptClient {
	return NewAutoTranscriptClient(baseURL, "test-key", time.Millisecond, maxPolls)
}

func TestTranscribeAsyncJobPolling(t *testing.T) {
	polls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		switch r.URL.Path {
		case "/v1/transcript":
			assert.Equal(t, "auto", r.URL.Query().Get("mode"))
			w.WriteHeader(http.StatusAccepted)
			fmt.Fprint(w, `{"jobId":"j1"}`)
		case "/v1/transcript/j1":
			polls++
			if polls <= 3 {
				fmt.Fprint(w, `{"status":"active"}`)
				return
			}
			fmt.Fprint(w, `{"content":[{"text":"a","offset":0,"duration":1000}],"lang":"en"}`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, 120)
	result, err := client.Transcribe(context.Background(), "https://youtu.be/abc", ModeAuto, "")

	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.IsGenerated)
	assert.Equal(t, "en", result.Language)
	require.Len(t, result.Segments, 1)
	assert.Equal(t, "a", result.Segments[0].Text)
	assert.Equal(t, 0.0, result.Segments[0].Start)
	assert.Equal(t, 1.0, result.Segments[0].End)
	assert.Equal(t, 1.0, result.Duration)
	assert.Equal(t, 4, polls)
}

func TestTranscribeSynchronousNativeCaptions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"content":[{"text":"hello","offset":500,"duration":1500}],"lang":"en"}`)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, 120)
	result, err := client.Transcribe(context.Background(), "https://youtu.be/abc", ModeAuto, "en")

	require.NoError(t, err)
	require.NotNil(t, result)
	assert.False(t, result.IsGenerated)
	require.Len(t, result.Segments, 1)
	assert.Equal(t, 0.5, result.Segments[0].Start)
	assert.Equal(t, 2.0, result.Segments[0].End)
}

func TestTranscribeNativeNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"transcript-unavailable"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, 120)
	result, err := client.Transcribe(context.Background(), "https://youtu.be/abc", ModeNative, "")

	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestTranscribePlainTextContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload, _ := json.Marshal(map[string]interface{}{"content": "just text", "lang": "en"})
		w.Write(payload)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, 120)
	result, err := client.Transcribe(context.Background(), "https://youtu.be/abc", ModeGenerate, "")

	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.IsGenerated)
	require.Len(t, result.Segments, 1)
	assert.Equal(t, "just text", result.Segments[0].Text)
}

func TestTranscribePollingTimesOut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/transcript" {
			w.WriteHeader(http.StatusAccepted)
			fmt.Fprint(w, `{"jobId":"j2"}`)
			return
		}
		fmt.Fprint(w, `{"status":"active"}`)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, 3)
	_, err := client.Transcribe(context.Background(), "https://youtu.be/abc", ModeAuto, "")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
}

func TestTranscribeFailedJobStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/transcript" {
			w.WriteHeader(http.StatusAccepted)
			fmt.Fprint(w, `{"jobId":"j3"}`)
			return
		}
		fmt.Fprint(w, `{"status":"failed"}`)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, 10)
	_, err := client.Transcribe(context.Background(), "https://youtu.be/abc", ModeAuto, "")

	require.Error(t, err)
	assert.Contains(t, err.Error(), `status "failed"`)
}
