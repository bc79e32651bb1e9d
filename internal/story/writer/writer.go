package writer

import (
	"context"
	"fmt"
	"strings"

	"chayabot/internal/domain/story"
)

// Writer produces story text for a topic. Implementations may call a remote
// model, so callers always pass a context and handle the error.
type Writer interface {
	Write(ctx context.Context, topic string) (string, error)
}

const DefaultTemplate = "Once upon a time, there was a magnificent %s. " +
	"The story unfolds with magical adventures, filled with wonder and excitement. " +
	"Each moment brought new discoveries and the characters learned valuable lessons along their journey. " +
	"The tale concluded with wisdom and joy, leaving everyone with a sense of fulfillment and magic."

// TemplateWriter interpolates the topic into a fixed narrative.
type TemplateWriter struct {
	template string
}

func NewTemplateWriter() *TemplateWriter {
	return &TemplateWriter{template: DefaultTemplate}
}

func (w *TemplateWriter) Write(ctx context.Context, topic string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", story.ErrWritingFailed, err)
	}
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return "", story.ErrEmptyTopic
	}
	return fmt.Sprintf(w.template, topic), nil
}
