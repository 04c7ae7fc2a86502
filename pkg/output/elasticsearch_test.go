package output

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-go-golems/logship/pkg/value"
	"github.com/stretchr/testify/require"
)

type bulkRequest struct {
	path string
	body string
}

func bulkServer(t *testing.T) (*httptest.Server, chan bulkRequest) {
	t.Helper()
	requests := make(chan bulkRequest, 16)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		requests <- bulkRequest{path: r.URL.Path, body: string(body)}
	}))
	t.Cleanup(srv.Close)
	return srv, requests
}

func waitBulk(t *testing.T, requests chan bulkRequest) bulkRequest {
	t.Helper()
	select {
	case req := <-requests:
		return req
	case <-time.After(5 * time.Second):
		t.Fatal("no bulk request arrived")
		return bulkRequest{}
	}
}

func esRecord(msg string) value.Value {
	return value.Object(map[string]value.Value{"message": value.String(msg)})
}

func TestElasticsearchFlushesAtCount(t *testing.T) {
	srv, requests := bulkServer(t)

	sink := NewElasticsearch(ElasticsearchConfig{
		URL:           srv.URL,
		Index:         "logs",
		FlushCount:    2,
		FlushInterval: time.Hour,
	})
	t.Cleanup(func() { _ = sink.Close() })

	sink.Feed(esRecord("one"))
	sink.Feed(esRecord("two"))

	req := waitBulk(t, requests)
	require.Equal(t, "/logs/_bulk", req.path)
	require.Equal(t,
		"{\"index\":{}}\n{\"message\":\"one\"}\n"+
			"{\"index\":{}}\n{\"message\":\"two\"}\n",
		req.body)
}

func TestElasticsearchFlushesOnTimer(t *testing.T) {
	srv, requests := bulkServer(t)

	sink := NewElasticsearch(ElasticsearchConfig{
		URL:           srv.URL,
		Index:         "logs",
		FlushCount:    100,
		FlushInterval: 50 * time.Millisecond,
	})
	t.Cleanup(func() { _ = sink.Close() })

	sink.Feed(esRecord("only"))

	req := waitBulk(t, requests)
	require.Equal(t, "{\"index\":{}}\n{\"message\":\"only\"}\n", req.body)
}

func TestElasticsearchEmptyTimerFlushIsNoOp(t *testing.T) {
	srv, requests := bulkServer(t)

	sink := NewElasticsearch(ElasticsearchConfig{
		URL:           srv.URL,
		Index:         "logs",
		FlushInterval: 20 * time.Millisecond,
	})
	t.Cleanup(func() { _ = sink.Close() })

	// Let several empty timer ticks elapse: nothing should be sent.
	time.Sleep(100 * time.Millisecond)
	select {
	case req := <-requests:
		t.Fatalf("unexpected bulk request: %q", req.body)
	default:
	}
}

func TestElasticsearchTrimsTrailingURLSlash(t *testing.T) {
	srv, requests := bulkServer(t)

	sink := NewElasticsearch(ElasticsearchConfig{
		URL:           srv.URL + "/",
		Index:         "events",
		FlushCount:    1,
		FlushInterval: time.Hour,
	})
	t.Cleanup(func() { _ = sink.Close() })

	sink.Feed(esRecord("x"))
	require.Equal(t, "/events/_bulk", waitBulk(t, requests).path)
}
