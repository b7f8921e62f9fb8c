package loki

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	flushInterval  = 1 * time.Second
	flushBatchSize = 20
)

// Writer buffers log lines and ships them to Loki's push API.
// It implements io.Writer so it can back a zapcore sink.
type Writer struct {
	url    string
	job    string
	client *http.Client
	mu     sync.Mutex
	buf    []entry
	ticker *time.Ticker
	done   chan struct{}
}

type entry struct {
	ts   string
	line string
}

// NewWriter returns a Writer pushing to the given Loki base URL
// (e.g. http://loki:3100). job is the stream label ("inventory",
// "reservation"). Returns nil when url or job is empty.
func NewWriter(url, job string) *Writer {
	if url == "" || job == "" {
		return nil
	}
	w := &Writer{
		url:    strings.TrimSuffix(url, "/") + "/loki/api/v1/push",
		job:    job,
		client: &http.Client{Timeout: 5 * time.Second},
		buf:    make([]entry, 0, 64),
		ticker: time.NewTicker(flushInterval),
		done:   make(chan struct{}),
	}
	go w.flushLoop()
	return w
}

func (w *Writer) Write(p []byte) (int, error) {
	n := len(p)
	for _, line := range bytes.Split(p, []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		w.mu.Lock()
		w.buf = append(w.buf, entry{
			ts:   strconv.FormatInt(time.Now().UnixNano(), 10),
			line: string(line),
		})
		full := len(w.buf) >= flushBatchSize
		w.mu.Unlock()
		if full {
			w.flush()
		}
	}
	return n, nil
}

func (w *Writer) flushLoop() {
	for {
		select {
		case <-w.done:
			return
		case <-w.ticker.C:
			w.flush()
		}
	}
}

func (w *Writer) flush() {
	w.mu.Lock()
	if len(w.buf) == 0 {
		w.mu.Unlock()
		return
	}
	entries := w.buf
	w.buf = make([]entry, 0, 64)
	w.mu.Unlock()

	values := make([][]string, len(entries))
	for i, e := range entries {
		values[i] = []string{e.ts, e.line}
	}
	body := map[string]interface{}{
		"streams": []map[string]interface{}{
			{
				"stream": map[string]string{"job": w.job},
				"values": values,
			},
		},
	}
	raw, _ := json.Marshal(body)
	req, err := http.NewRequest(http.MethodPost, w.url, bytes.NewReader(raw))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := w.client.Do(req)
	if err != nil {
		return
	}
	resp.Body.Close()
}

// Close flushes the remaining buffer and stops the background flusher.
func (w *Writer) Close() error {
	w.ticker.Stop()
	close(w.done)
	w.flush()
	return nil
}
