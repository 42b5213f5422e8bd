// internal/common/aws/sns.go
package aws

import (
	"context"
	"encoding/json"
	"fmt"

	"care-match-workers/internal/matching"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

const EventRecommendationsGenerated = "recommendations.generated"

// PublishAPI is the part of the SNS client the publisher needs.
type PublishAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type SNSClient struct {
	client   PublishAPI
	topicARN string
}

func NewSNSClient(ctx context.Context, region, topicARN string) (*SNSClient, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewSNSClientWithAPI(sns.NewFromConfig(cfg), topicARN), nil
}

func NewSNSClientWithAPI(api PublishAPI, topicARN string) *SNSClient {
	return &SNSClient{client: api, topicARN: topicARN}
}

// PublishRecommendationsGenerated sends the event as a JSON message. The event
// type and request type are message attributes so subscribers can filter.
func (s *SNSClient) PublishRecommendationsGenerated(ctx context.Context, event matching.RecommendationsGeneratedEvent) error {
	body, err := json.Marshal(struct {
		Type string `json:"type"`
		matching.RecommendationsGeneratedEvent
	}{EventRecommendationsGenerated, event})
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	attributes := map[string]types.MessageAttributeValue{
		"eventType": stringAttribute(EventRecommendationsGenerated),
	}
	if event.RequestType != "" {
		attributes["requestType"] = stringAttribute(string(event.RequestType))
	}

	_, err = s.client.Publish(ctx, &sns.PublishInput{
		TopicArn:          awssdk.String(s.topicARN),
		Message:           awssdk.String(string(body)),
		MessageAttributes: attributes,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", EventRecommendationsGenerated, err)
	}
	return nil
}

func stringAttribute(v string) types.MessageAttributeValue {
	return types.MessageAttributeValue{
		DataType:    awssdk.String("String"),
		StringValue: awssdk.String(v),
	}
}
