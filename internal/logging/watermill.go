package logging

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/rs/zerolog"
)

// watermillAdapter bridges watermill's LoggerAdapter interface onto the
// package's zerolog logger, so the event bus's Watermill machinery logs
// through the same pipeline as everything else.
type watermillAdapter struct {
	logger zerolog.Logger
}

// NewWatermillAdapter returns a watermill.LoggerAdapter backed by the
// global zerolog logger, tagged with component=eventbus.
func NewWatermillAdapter() watermill.LoggerAdapter {
	return watermillAdapter{logger: WithComponent("eventbus")}
}

func (a watermillAdapter) applyFields(event *zerolog.Event, fields watermill.LogFields) *zerolog.Event {
	for k, v := range fields {
		event = event.Interface(k, v)
	}
	return event
}

func (a watermillAdapter) Error(msg string, err error, fields watermill.LogFields) {
	a.applyFields(a.logger.Error().Err(err), fields).Msg(msg)
}

func (a watermillAdapter) Info(msg string, fields watermill.LogFields) {
	a.applyFields(a.logger.Info(), fields).Msg(msg)
}

func (a watermillAdapter) Debug(msg string, fields watermill.LogFields) {
	a.applyFields(a.logger.Debug(), fields).Msg(msg)
}

func (a watermillAdapter) Trace(msg string, fields watermill.LogFields) {
	a.applyFields(a.logger.Trace(), fields).Msg(msg)
}

func (a watermillAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	logger := a.logger.With().Fields(map[string]interface{}(fields)).Logger()
	return watermillAdapter{logger: logger}
}
