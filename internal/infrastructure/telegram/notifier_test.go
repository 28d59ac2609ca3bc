package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishDigestPostsForm(t *testing.T) {
	t.Parallel()

	var gotPath, gotChat, gotText string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		gotPath = r.URL.Path
		gotChat = r.PostForm.Get("chat_id")
		gotText = r.PostForm.Get("text")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	n := NewNotifier("TOKEN", "42", WithBaseURL(srv.URL+"/"), WithHTTPClient(srv.Client()))
	require.NoError(t, n.PublishDigest(context.Background(), "run abc: persisted=3 [bridge_ai]*"))

	assert.Equal(t, "/botTOKEN/sendMessage", gotPath)
	assert.Equal(t, "42", gotChat)
	assert.Equal(t, "run abc: persisted=3 [bridge_ai]*", gotText)
}

func TestPublishDigestTruncatesLongMessages(t *testing.T) {
	t.Parallel()

	var length int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		length = utf8.RuneCountInString(r.PostForm.Get("text"))
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	n := NewNotifier("T", "1", WithBaseURL(srv.URL))
	require.NoError(t, n.PublishDigest(context.Background(), strings.Repeat("ü", maxMessageRunes+100)))
	assert.Equal(t, maxMessageRunes, length)
}

func TestPublishDigestReportsAPIError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"description":"Bad Request: chat not found"}`))
	}))
	defer srv.Close()

	err := NewNotifier("T", "1", WithBaseURL(srv.URL)).PublishDigest(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}

func TestPublishDigestMisconfigured(t *testing.T) {
	t.Parallel()

	assert.Error(t, NewNotifier("", "1").PublishDigest(context.Background(), "x"))
	assert.NoError(t, NewNotifier("T", "1", WithBaseURL("http://127.0.0.1:1")).PublishDigest(context.Background(), "  "))
}

func TestPublishDigestHidesTokenOnTransportError(t *testing.T) {
	t.Parallel()

	err := NewNotifier("SECRET", "1", WithBaseURL("http://127.0.0.1:1")).PublishDigest(context.Background(), "x")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "SECRET")
}
