package ports

import "context"

type Publisher interface {
	PublishRaw(ctx context.Context, topic string, payload []byte) error
}
