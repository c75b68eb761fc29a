package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newJSONLogger(buf *bytes.Buffer) *SlogLogger {
	return NewSlogLogger(slog.New(slog.NewJSONHandler(buf, nil)))
}

func decodeRecord(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var record map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	return record
}

func TestSlogLogger_Log(t *testing.T) {
	tests := []struct {
		name        string
		event       Event
		wantSuccess bool
		wantError   string
	}{
		{
			name: "camera capture",
			event: Event{
				EventType: EventFaceCaptured,
				Name:      "alice",
				Filename:  "20240501_120000.jpg",
				Source:    SourceHTTP,
				Success:   true,
			},
			wantSuccess: true,
		},
		{
			name: "failed delete",
			event: Event{
				EventType: EventFaceDeleted,
				Name:      "alice",
				Filename:  "a.jpg",
				Source:    SourceCLI,
				Success:   false,
				Error:     "permission denied",
			},
			wantSuccess: false,
			wantError:   "permission denied",
		},
		{
			name: "unknown face stored by the pipeline",
			event: Event{
				EventType: EventUnknownCaptured,
				Filename:  "unknown_20240501_120000.jpg",
				Source:    SourcePipeline,
				Success:   true,
				Metadata:  map[string]string{"hash_distance": "23"},
			},
			wantSuccess: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := newJSONLogger(&buf)

			require.NoError(t, logger.Log(context.Background(), tt.event))

			record := decodeRecord(t, &buf)
			assert.Equal(t, "audit_event", record["msg"])
			assert.Equal(t, "audit", record["component"])
			assert.Equal(t, string(tt.event.EventType), record["event_type"])
			assert.Equal(t, tt.event.Source, record["source"])
			assert.Equal(t, tt.wantSuccess, record["success"])

			var data Event
			require.NoError(t, json.Unmarshal([]byte(record["event_data"].(string)), &data))
			assert.Equal(t, tt.event.Name, data.Name)
			assert.Equal(t, tt.event.Filename, data.Filename)
			assert.Equal(t, tt.wantError, data.Error)
			assert.Equal(t, tt.event.Metadata, data.Metadata)
		})
	}
}

func TestSlogLogger_Log_GeneratesIDAndTimestamp(t *testing.T) {
	var buf bytes.Buffer
	logger := newJSONLogger(&buf)

	before := time.Now().UTC()
	require.NoError(t, logger.Log(context.Background(), Event{EventType: EventFaceUploaded, Source: SourceHTTP}))

	record := decodeRecord(t, &buf)
	id, err := uuid.Parse(record["event_id"].(string))
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, id)

	var data Event
	require.NoError(t, json.Unmarshal([]byte(record["event_data"].(string)), &data))
	assert.False(t, data.Timestamp.Before(before.Add(-time.Second)))
}

func TestSlogLogger_Log_KeepsProvidedIDAndTimestamp(t *testing.T) {
	var buf bytes.Buffer
	logger := newJSONLogger(&buf)

	id := uuid.New()
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, logger.Log(context.Background(), Event{ID: id, Timestamp: ts, EventType: EventUnknownLabeled}))

	record := decodeRecord(t, &buf)
	assert.Equal(t, id.String(), record["event_id"])

	var data Event
	require.NoError(t, json.Unmarshal([]byte(record["event_data"].(string)), &data))
	assert.True(t, ts.Equal(data.Timestamp))
}

func TestEvent_JSONOmitsEmptyFields(t *testing.T) {
	raw, err := json.Marshal(Event{EventType: EventFaceDeleted, Source: SourceCLI, Success: true})
	require.NoError(t, err)

	s := string(raw)
	assert.NotContains(t, s, `"name"`)
	assert.NotContains(t, s, `"filename"`)
	assert.NotContains(t, s, `"error"`)
	assert.NotContains(t, s, `"metadata"`)
	assert.Contains(t, s, `"source":"cli"`)
}

func TestNoOpLogger_Log(t *testing.T) {
	var logger Logger = &NoOpLogger{}
	for _, et := range []EventType{EventFaceCaptured, EventFaceUploaded, EventFaceDeleted, EventUnknownCaptured, EventUnknownLabeled} {
		assert.NoError(t, logger.Log(context.Background(), Event{EventType: et}))
	}
}
