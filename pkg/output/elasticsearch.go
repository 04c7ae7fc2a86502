package output

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-go-golems/logship/pkg/pipeline"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	DefaultFlushCount    = 100
	DefaultFlushInterval = 3 * time.Second

	// bulkAction is the fixed index-action header written before every
	// queued item in a bulk payload.
	bulkAction = `{"index":{}}`
)

// ElasticsearchConfig configures the bulk-indexing batch sink.
type ElasticsearchConfig struct {
	// URL is the base endpoint, e.g. "http://localhost:9200".
	URL string
	// Index names the target index; the payload is POSTed to
	// <URL>/<Index>/_bulk.
	Index string
	// FlushCount flushes the queue as soon as it holds this many records.
	FlushCount int
	// FlushInterval flushes whatever is queued when no size-triggered flush
	// happened since the last tick.
	FlushInterval time.Duration
	// Client defaults to http.DefaultClient.
	Client *http.Client
}

// Elasticsearch accumulates serialized records and flushes them as a bulk
// payload on a size-or-timeout trigger. The queue is owned exclusively by
// the sink's own goroutine; Feed only serializes and hands off. Outbound
// requests are fire-and-forget on their own goroutine, so a hung endpoint
// can never block batch accumulation. Failed batches are dropped, never
// retried.
type Elasticsearch struct {
	in       chan string
	done     chan struct{}
	url      string
	count    int
	interval time.Duration
	client   *http.Client
	logger   zerolog.Logger
}

func NewElasticsearch(cfg ElasticsearchConfig) *Elasticsearch {
	if cfg.FlushCount <= 0 {
		cfg.FlushCount = DefaultFlushCount
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = DefaultFlushInterval
	}
	if cfg.Index == "" {
		cfg.Index = "logs"
	}
	if cfg.Client == nil {
		cfg.Client = http.DefaultClient
	}

	e := &Elasticsearch{
		in:       make(chan string, cfg.FlushCount),
		done:     make(chan struct{}),
		url:      fmt.Sprintf("%s/%s/_bulk", strings.TrimRight(cfg.URL, "/"), cfg.Index),
		count:    cfg.FlushCount,
		interval: cfg.FlushInterval,
		client:   cfg.Client,
		logger:   log.With().Str("component", "output.elasticsearch").Logger(),
	}
	go e.run()
	return e
}

func (e *Elasticsearch) Name() string { return "elasticsearch" }

func (e *Elasticsearch) Feed(record pipeline.Record) {
	e.in <- record.JSON()
}

// Close stops the batching goroutine. Queued records are dropped; there is
// no drain.
func (e *Elasticsearch) Close() error {
	close(e.in)
	<-e.done
	return nil
}

func (e *Elasticsearch) run() {
	defer close(e.done)

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	var queue []string
	for {
		select {
		case chunk, ok := <-e.in:
			if !ok {
				return
			}
			queue = append(queue, chunk)
			if len(queue) >= e.count {
				// Reset so the next scheduled timeout does not fire
				// redundantly right after a size-triggered flush.
				ticker.Reset(e.interval)
				e.send(makeBody(queue))
				queue = queue[:0]
			}
		case <-ticker.C:
			e.logger.Debug().Int("queued", len(queue)).Msg("flush timer elapsed")
			e.send(makeBody(queue))
			queue = queue[:0]
		}
	}
}

func makeBody(queue []string) string {
	var sb strings.Builder
	for _, item := range queue {
		sb.WriteString(bulkAction)
		sb.WriteByte('\n')
		sb.WriteString(item)
		sb.WriteByte('\n')
	}
	return sb.String()
}

func (e *Elasticsearch) send(body string) {
	if body == "" {
		return
	}

	flushID := uuid.NewString()
	e.logger.Debug().
		Str("flush", flushID).
		Int("bytes", len(body)).
		Msg("sending bulk index request")

	go func() {
		resp, err := e.client.Post(e.url, "application/x-ndjson", strings.NewReader(body))
		if err != nil {
			e.logger.Warn().Str("flush", flushID).Err(err).Msg("bulk index request failed")
			return
		}
		defer func() {
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
		}()
		e.logger.Debug().
			Str("flush", flushID).
			Str("status", resp.Status).
			Msg("bulk index request done")
	}()
}
