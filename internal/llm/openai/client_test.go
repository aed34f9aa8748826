package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/gst-invoices/internal/common"
	"github.com/joseph-ayodele/gst-invoices/internal/llm"
)

type reply struct {
	status  int
	content string
	raw     string
}

func completion(content string) string {
	b, _ := json.Marshal(map[string]any{
		"choices": []any{map[string]any{"message": map[string]any{"role": "assistant", "content": content}}},
	})
	return string(b)
}

// fakeModel serves scripted replies in order; the last one repeats.
func fakeModel(t *testing.T, replies ...reply) (*httptest.Server, *int32, *[]map[string]any) {
	t.Helper()
	var calls int32
	var bodies []map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		bodies = append(bodies, body)

		n := int(atomic.AddInt32(&calls, 1)) - 1
		if n >= len(replies) {
			n = len(replies) - 1
		}
		rep := replies[n]
		w.WriteHeader(rep.status)
		if rep.raw != "" {
			_, _ = w.Write([]byte(rep.raw))
			return
		}
		_, _ = w.Write([]byte(completion(rep.content)))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls, &bodies
}

func newTestClient(baseURL, key string) *Client {
	return NewClient(Config{
		APIKey:  key,
		BaseURL: baseURL + "/v1/",
		Model:   "test-model",
		Retry:   llm.RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 4 * time.Millisecond},
	}, nil)
}

const invoiceJSON = `{
  "vendor": {"name": "Acme Infotech", "gstin": "29ABCDE1234F1Z5"},
  "invoice": {"number": "INV-7", "date": "2024-04-01"},
  "buyer": {"name": "Widget Co", "gstin": "27ABCDE1234F1Z5"},
  "is_inter_state": true,
  "line_items": [{"description": "Software license", "hsn_sac": "998314", "qty": 1, "taxable_value": 10000, "gst_rate": 18}],
  "confidence": {"overall": 0.9}
}`

func TestExtractFields_Success(t *testing.T) {
	srv, calls, bodies := fakeModel(t, reply{status: 200, content: "```json\n" + invoiceJSON + "\n```"})

	draft, raw, err := newTestClient(srv.URL, "test-key").ExtractFields(context.Background(), "TAX INVOICE ...")
	require.NoError(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(calls))
	assert.JSONEq(t, invoiceJSON, string(raw))
	assert.Equal(t, "Acme Infotech", draft.Vendor.Name)
	assert.True(t, draft.IsInterState)
	require.Len(t, draft.LineItems, 1)
	assert.Equal(t, 10000.0, draft.LineItems[0].TaxableValue)

	body := (*bodies)[0]
	assert.Equal(t, "test-model", body["model"])
	msgs := body["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, llm.SystemInstruction, msgs[0].(map[string]any)["content"])
	assert.True(t, strings.HasSuffix(msgs[1].(map[string]any)["content"].(string), "\n\n---\n\nTAX INVOICE ..."))
}

func TestExtractFields_Retries(t *testing.T) {
	tests := []struct {
		name       string
		replies    []reply
		wantCalls  int32
		wantErr    bool
		retryable  bool
		wantStatus int
	}{
		{
			name:      "5xx then success",
			replies:   []reply{{status: 502, raw: "bad gateway"}, {status: 503, raw: "busy"}, {status: 200, content: invoiceJSON}},
			wantCalls: 3,
		},
		{
			name:      "empty content then success",
			replies:   []reply{{status: 200, content: ""}, {status: 200, content: invoiceJSON}},
			wantCalls: 2,
		},
		{
			name:      "blank body then success",
			replies:   []reply{{status: 200, raw: " \n"}, {status: 200, content: invoiceJSON}},
			wantCalls: 2,
		},
		{
			name:      "persistent blank body is retryable",
			replies:   []reply{{status: 200, raw: "\t"}},
			wantCalls: 3,
			wantErr:   true,
			retryable: true,
		},
		{
			name:      "rate limited then success",
			replies:   []reply{{status: 429, raw: "slow down"}, {status: 200, content: invoiceJSON}},
			wantCalls: 2,
		},
		{
			name:       "persistent 5xx gives up after three attempts",
			replies:    []reply{{status: 500, raw: "boom"}},
			wantCalls:  3,
			wantErr:    true,
			retryable:  true,
			wantStatus: 500,
		},
		{
			name:       "bad credential is not retried",
			replies:    []reply{{status: 401, raw: `{"error":"invalid api key"}`}},
			wantCalls:  1,
			wantErr:    true,
			wantStatus: 401,
		},
		{
			name:      "malformed JSON after success is not retried",
			replies:   []reply{{status: 200, content: "I could not find an invoice."}},
			wantCalls: 1,
			wantErr:   true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, calls, _ := fakeModel(t, tt.replies...)
			draft, _, err := newTestClient(srv.URL, "test-key").ExtractFields(context.Background(), "text")
			assert.Equal(t, tt.wantCalls, atomic.LoadInt32(calls))
			if !tt.wantErr {
				require.NoError(t, err)
				assert.Equal(t, "INV-7", draft.Invoice.Number)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, common.ErrUpstream)
			assert.Equal(t, tt.retryable, common.IsRetryable(err))
			if tt.wantStatus != 0 {
				var ue *common.UpstreamError
				require.ErrorAs(t, err, &ue)
				assert.Equal(t, tt.wantStatus, ue.StatusCode)
			}
		})
	}
}

func TestExtractFields_MissingKeyFailsFast(t *testing.T) {
	srv, calls, _ := fakeModel(t, reply{status: 200, content: invoiceJSON})
	_, _, err := newTestClient(srv.URL, "").ExtractFields(context.Background(), "text")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrConfiguration)
	assert.False(t, common.IsRetryable(err))
	assert.EqualValues(t, 0, atomic.LoadInt32(calls))
}

func TestExtractFields_TimeoutIsUpstream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(200 * time.Millisecond):
		case <-r.Context().Done():
		}
		_, _ = fmt.Fprint(w, completion(invoiceJSON))
	}))
	t.Cleanup(srv.Close)

	c := NewClient(Config{
		APIKey:  "test-key",
		BaseURL: srv.URL + "/v1",
		Timeout: 20 * time.Millisecond,
		Retry:   llm.RetryPolicy{MaxAttempts: 2, BaseDelay: time.Millisecond},
	}, nil)
	_, _, err := c.ExtractFields(context.Background(), "text")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrUpstream)
}

func TestExtractFields_SchemaMismatchStillNormalizes(t *testing.T) {
	srv, _, _ := fakeModel(t, reply{status: 200, content: `{"vendor": "Acme", "line_items": [{"description": "Rice", "qty": 2, "unit_price": 50}]}`})
	draft, _, err := newTestClient(srv.URL, "test-key").ExtractFields(context.Background(), "text")
	require.NoError(t, err)
	assert.Equal(t, "", draft.Vendor.Name)
	require.Len(t, draft.LineItems, 1)
	assert.Equal(t, 50.0, draft.LineItems[0].UnitPrice)
}

func TestPreview_KeepsUTF8(t *testing.T) {
	assert.Equal(t, "short", preview("short"))
	long := strings.Repeat("₹", 1500)
	got := preview(long)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, 1025, utf8.RuneCountInString(got))
	assert.True(t, strings.HasSuffix(got, "…"))
}
