package sinks

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	goerrors "github.com/goliatone/go-errors"
	auth "github.com/pulseapp/pulse-auth"
)

// NewKafkaPublisher returns a synchronous Kafka publisher that keys every
// message on its partition_key metadata.
func NewKafkaPublisher(brokers []string, logger auth.Logger) (message.Publisher, error) {
	if len(brokers) == 0 {
		return nil, goerrors.New("kafka brokers are required", goerrors.CategoryBadInput)
	}

	publisher, err := kafka.NewPublisher(
		kafka.PublisherConfig{
			Brokers:   brokers,
			Marshaler: kafka.NewWithPartitioningMarshaler(partitionKey),
		},
		NewWatermillLogger(logger),
	)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryExternal, "create kafka publisher")
	}
	return publisher, nil
}

func partitionKey(_ string, msg *message.Message) (string, error) {
	return msg.Metadata.Get("partition_key"), nil
}

// WatermillLogger adapts auth.Logger to watermill.LoggerAdapter.
type WatermillLogger struct {
	logger auth.Logger
	fields watermill.LogFields
}

var _ watermill.LoggerAdapter = WatermillLogger{}

func NewWatermillLogger(logger auth.Logger) WatermillLogger {
	if logger == nil {
		logger = auth.DefaultLogger()
	}
	return WatermillLogger{logger: logger}
}

func (l WatermillLogger) Error(msg string, err error, fields watermill.LogFields) {
	l.logger.Error(msg, append(l.args(fields), "error", err)...)
}

func (l WatermillLogger) Info(msg string, fields watermill.LogFields) {
	l.logger.Info(msg, l.args(fields)...)
}

func (l WatermillLogger) Debug(msg string, fields watermill.LogFields) {
	l.logger.Debug(msg, l.args(fields)...)
}

// Trace is folded into Debug, auth.Logger has no trace level.
func (l WatermillLogger) Trace(msg string, fields watermill.LogFields) {
	l.logger.Debug(msg, l.args(fields)...)
}

func (l WatermillLogger) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return WatermillLogger{logger: l.logger, fields: l.fields.Add(fields)}
}

func (l WatermillLogger) args(fields watermill.LogFields) []any {
	merged := l.fields.Add(fields)
	args := make([]any, 0, len(merged)*2)
	for k, v := range merged {
		args = append(args, k, v)
	}
	return args
}
