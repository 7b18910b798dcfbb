package server

import (
	"context"

	"matchpoint/server/logging"
)

// ResultSink durably records finished rounds. Calls are dispatched
// fire-and-forget: a slow or failing sink must never stall a tick loop or a
// later room, so errors are logged by the caller and dropped.
type ResultSink interface {
	RecordMatchResult(ctx context.Context, result MatchResult) error
}

// ResultSinkFunc adapts a function to the ResultSink interface.
type ResultSinkFunc func(ctx context.Context, result MatchResult) error

func (f ResultSinkFunc) RecordMatchResult(ctx context.Context, result MatchResult) error {
	if f == nil {
		return nil
	}
	return f(ctx, result)
}

// LoggingResultSink forwards results into the event router. It stands in
// for the external CRUD layer when none is wired.
func LoggingResultSink(pub logging.Publisher) ResultSink {
	return ResultSinkFunc(func(ctx context.Context, result MatchResult) error {
		pub.Publish(ctx, logging.Event{
			Type:     "match.result_recorded",
			Severity: logging.SeverityInfo,
			Category: logging.CategoryMatch,
			Actor:    logging.EntityRef{Kind: logging.EntityKindSystem},
			Payload:  result,
		})
		return nil
	})
}
