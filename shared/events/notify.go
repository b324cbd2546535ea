package events

import (
	"context"
	"log/slog"

	"github.com/kpressOrg/user-service/shared/logging"
	"github.com/kpressOrg/user-service/shared/models"
)

// UserCreatedNotifier returns a post-commit hook that publishes the
// registered username to queue.
func UserCreatedNotifier(pub Publisher, queue string) func(ctx context.Context, user *models.User) error {
	return func(ctx context.Context, user *models.User) error {
		body, err := EncodeUserCreated(user.Username)
		if err != nil {
			return err
		}
		if err := pub.Publish(ctx, queue, body); err != nil {
			return err
		}
		logging.FromContext(ctx).Info("event published",
			slog.String("queue", queue),
			slog.String("username", user.Username),
		)
		return nil
	}
}
