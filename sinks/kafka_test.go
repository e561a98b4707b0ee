package sinks

import (
	"errors"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedLine struct {
	level string
	msg   string
	args  []any
}

type recordingLogger struct {
	lines []recordedLine
}

func (l *recordingLogger) add(level, msg string, args []any) {
	l.lines = append(l.lines, recordedLine{level: level, msg: msg, args: args})
}

func (l *recordingLogger) Debug(msg string, args ...any) { l.add("debug", msg, args) }
func (l *recordingLogger) Info(msg string, args ...any)  { l.add("info", msg, args) }
func (l *recordingLogger) Warn(msg string, args ...any)  { l.add("warn", msg, args) }
func (l *recordingLogger) Error(msg string, args ...any) { l.add("error", msg, args) }

func TestNewKafkaPublisherRequiresBrokers(t *testing.T) {
	_, err := NewKafkaPublisher(nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "brokers")
}

func TestPartitionKeyReadsMetadata(t *testing.T) {
	msg := message.NewMessage(watermill.NewUUID(), nil)
	msg.Metadata.Set("partition_key", "acct-1")

	key, err := partitionKey("topic", msg)
	require.NoError(t, err)
	assert.Equal(t, "acct-1", key)
}

func TestWatermillLoggerForwardsFields(t *testing.T) {
	rec := &recordingLogger{}
	logger := NewWatermillLogger(rec).With(watermill.LogFields{"topic": "t"})

	logger.Info("published", watermill.LogFields{"uuid": "u-1"})
	logger.Trace("tick", nil)
	logger.Error("failed", errors.New("boom"), nil)

	require.Len(t, rec.lines, 3)
	assert.Equal(t, "info", rec.lines[0].level)
	assert.ElementsMatch(t, []any{"topic", "t", "uuid", "u-1"}, rec.lines[0].args)
	assert.Equal(t, "debug", rec.lines[1].level)
	assert.Equal(t, "error", rec.lines[2].level)
	assert.Contains(t, rec.lines[2].args, "error")
}
