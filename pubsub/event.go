package pubsub

import (
	"context"
	"encoding/json"
	"time"

	"cloud.google.com/go/pubsub"
	monitor "github.com/yashutanna/valr-loan-monitor"
)

// EventService publishes cycle notifications on a Pub/Sub topic.
// Publishing is best effort: failures are logged and never affect the
// cycle outcome.
type EventService struct {
	client *Client
	logger monitor.Logger
}

func NewEventService(client *Client, logger monitor.Logger) *EventService {
	return &EventService{client, logger}
}

func (es *EventService) Publish(event *monitor.Event) {
	es.publishOnNotificationsTopic(context.TODO(), event)
}

func (es *EventService) publishOnNotificationsTopic(
	ctx context.Context,
	event *monitor.Event,
) {
	topicLogger := es.logger.WithField("topic", "notifications")

	messageData, err := json.Marshal(&notificationEvent{
		Time:    time.Now().UTC(),
		Payload: event.Payload,
	})
	if err != nil {
		topicLogger.Errorf("could not marshal cycle event: [%v]", err)
		return
	}

	es.publishOnTopic(
		ctx,
		es.client.notificationsTopic,
		messageData,
		topicLogger,
	)
}

func (es *EventService) publishOnTopic(
	ctx context.Context,
	topic *pubsub.Topic,
	messageData []byte,
	topicLogger monitor.Logger,
) {
	result := topic.Publish(ctx, &pubsub.Message{
		Data: messageData,
	})

	go func() {
		id, err := result.Get(ctx)
		if err != nil {
			topicLogger.Errorf(
				"could not publish cycle event: [%v]",
				err,
			)
			return
		}

		topicLogger.Infof("published cycle event with ID: [%v]", id)
	}()
}

type notificationEvent struct {
	Time    time.Time
	Payload string
}
