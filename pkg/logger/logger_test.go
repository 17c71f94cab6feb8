package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

type userKey struct{}

func userAttrs(ctx context.Context) []slog.Attr {
	if u, ok := ctx.Value(userKey{}).(string); ok {
		return []slog.Attr{slog.String("username", u)}
	}
	return nil
}

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	return record
}

func Test_ContextHandler(t *testing.T) {
	traceID, err := trace.TraceIDFromHex("0af7651916cd43dd8448eb211c80319c")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("b7ad6b7169203331")
	require.NoError(t, err)
	spanCtx := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled})

	testCases := []struct {
		name     string
		ctx      context.Context
		expected map[string]string
		absent   []string
	}{
		{
			name:   "empty context",
			ctx:    context.Background(),
			absent: []string{"trace_id", "request_id", "username"},
		},
		{
			name: "request id, span and user",
			ctx: context.WithValue(
				context.WithValue(trace.ContextWithSpanContext(context.Background(), spanCtx), middleware.RequestIDKey, "req-1"),
				userKey{}, "alice"),
			expected: map[string]string{
				"trace_id":   "0af7651916cd43dd8448eb211c80319c",
				"request_id": "req-1",
				"username":   "alice",
			},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			var buf bytes.Buffer
			logger := slog.New(NewContextHandler(slog.NewJSONHandler(&buf, nil), userAttrs)).With("component", "test")
			// when
			logger.InfoContext(tc.ctx, "msg")
			// then
			record := decode(t, &buf)
			assert.Equal(t, "test", record["component"])
			for k, v := range tc.expected {
				assert.Equal(t, v, record[k], k)
			}
			for _, k := range tc.absent {
				assert.NotContains(t, record, k)
			}
		})
	}
}
