package pipeline

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
)

// HandleSQSEvent is the push-mode entry point. Records that must be
// redelivered are reported as batch item failures; Lambda deletes the rest.
func (w *Worker) HandleSQSEvent(ctx context.Context, event events.SQSEvent) (events.SQSEventResponse, error) {
	var resp events.SQSEventResponse
	for _, record := range event.Records {
		if err := w.process(ctx, []byte(record.Body)); err != nil {
			w.log.Error().Err(err).Str("message_id", record.MessageId).Msg(msgLambdaRecordFailed)
			resp.BatchItemFailures = append(resp.BatchItemFailures, events.SQSBatchItemFailure{
				ItemIdentifier: record.MessageId,
			})
		}
	}
	return resp, nil
}
