package log

import (
	"bytes"
	"encoding/json"
	"strings"
)

// TestLogger captures zerolog JSON records in memory so tests can assert on
// what a component logged.
type TestLogger struct {
	*ZerologLogger
	buffer *bytes.Buffer
}

// NewTestLogger creates a TestLogger that records everything at or above level.
//
//	logger, buffer := log.NewTestLogger(log.LevelDebug)
//	logger.Info("split done", log.SamplesKey, 10)
//	output := buffer.String()
func NewTestLogger(level Level) (*TestLogger, *bytes.Buffer) {
	buffer := &bytes.Buffer{}
	provider := NewZerologProvider(level, buffer)
	return &TestLogger{
		ZerologLogger: provider.GetLogger().(*ZerologLogger),
		buffer:        buffer,
	}, buffer
}

// GetBuffer returns the buffer holding captured records.
func (t *TestLogger) GetBuffer() *bytes.Buffer {
	return t.buffer
}

// GetLogEntries parses the captured output, one JSON object per line.
func (t *TestLogger) GetLogEntries() ([]map[string]interface{}, error) {
	return parseEntries(t.buffer)
}

// ContainsMessage reports whether any captured output contains message.
func (t *TestLogger) ContainsMessage(message string) bool {
	return strings.Contains(t.buffer.String(), message)
}

// ContainsField reports whether some record has key set to value. Numbers
// compare as float64 after JSON decoding.
func (t *TestLogger) ContainsField(key string, value interface{}) bool {
	return containsField(t.buffer, key, value)
}

// Clear discards captured output.
func (t *TestLogger) Clear() {
	t.buffer.Reset()
}

// TestLoggerProvider implements LoggerProvider over a shared buffer.
type TestLoggerProvider struct {
	*ZerologProvider
	buffer *bytes.Buffer
}

// NewTestLoggerProvider creates a provider whose loggers all write to the
// returned buffer.
func NewTestLoggerProvider(level Level) (*TestLoggerProvider, *bytes.Buffer) {
	buffer := &bytes.Buffer{}
	return &TestLoggerProvider{
		ZerologProvider: NewZerologProvider(level, buffer),
		buffer:          buffer,
	}, buffer
}

// GetLogEntries parses the captured output, one JSON object per line.
func (p *TestLoggerProvider) GetLogEntries() ([]map[string]interface{}, error) {
	return parseEntries(p.buffer)
}

// ContainsField reports whether some record has key set to value.
func (p *TestLoggerProvider) ContainsField(key string, value interface{}) bool {
	return containsField(p.buffer, key, value)
}

func parseEntries(buffer *bytes.Buffer) ([]map[string]interface{}, error) {
	var entries []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buffer.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]interface{}
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func containsField(buffer *bytes.Buffer, key string, value interface{}) bool {
	entries, err := parseEntries(buffer)
	if err != nil {
		return false
	}
	for _, entry := range entries {
		if v, ok := entry[key]; ok && v == value {
			return true
		}
	}
	return false
}
