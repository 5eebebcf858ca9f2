package matchpublisherv1

import (
	"context"
)

// MatchPublisher defines the interface for publishing fill events.
//
//go:generate mockgen -source interface.go -destination=mock/interface_mock.go -package=matchpublisherv1_mock
type MatchPublisher interface {
	// PublishFills publishes the fills of a single order to the match topic.
	PublishFills(ctx context.Context, events []FillEvent) error
}
