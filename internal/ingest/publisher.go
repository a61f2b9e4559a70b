package ingest

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"

	"pdf-qa-be/internal/dto"
)

// IPublisher schedules documents for background ingestion.
type IPublisher interface {
	PublishDocument(ctx context.Context, sessionId string, documentId uuid.UUID) error
}

type publisher struct {
	topicName string
	pubSub    *gochannel.GoChannel
}

func NewPublisher(topicName string, pubSub *gochannel.GoChannel) IPublisher {
	return &publisher{
		topicName: topicName,
		pubSub:    pubSub,
	}
}

func (p *publisher) PublishDocument(ctx context.Context, sessionId string, documentId uuid.UUID) error {
	payload, err := json.Marshal(dto.IngestDocumentMessage{
		SessionId:  sessionId,
		DocumentId: documentId,
	})
	if err != nil {
		return err
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	return p.pubSub.Publish(p.topicName, msg)
}
