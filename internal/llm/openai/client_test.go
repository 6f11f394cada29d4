package openai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tradedesk/internal/llm"
)

func TestInvoke_ServerReturnsChoice(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Final Recommendation: BUY"}}]}`))
	})
	srv := httptest.NewServer(h)
	defer srv.Close()

	cli, err := New("test-key", srv.URL, "gpt-4o-mini", 1.0, srv.Client())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	out, err := cli.Invoke(ctx, []llm.Message{
		{Role: "system", Content: "you are a risk manager"},
		{Role: "user", Content: "summarize"},
	})
	require.NoError(t, err)
	require.Equal(t, "Final Recommendation: BUY", out)
}

func TestInvoke_EmptyChoicesIsError(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[]}`))
	})
	srv := httptest.NewServer(h)
	defer srv.Close()

	cli, err := New("test-key", srv.URL, "gpt-4o-mini", 1.0, srv.Client())
	require.NoError(t, err)

	_, err = cli.Invoke(context.Background(), []llm.Message{{Role: "user", Content: "hi"}})
	require.Error(t, err)
}

func TestNew_RequiresAPIKey(t *testing.T) {
	_, err := New("", "", "model", 1.0, nil)
	require.Error(t, err)
}
