package notification

import (
	"context"
	"fmt"

	"github.com/oshokin/marker-alerts/internal/domain/marker"
)

// Content is what a notification displays.
type Content struct {
	// Title is the headline.
	Title string
	// Body is the message text.
	Body string
}

// Sink is the platform notification API the manager drives.
type Sink interface {
	// RequestPermission asks the user whether notifications may be shown.
	RequestPermission(ctx context.Context) (bool, error)
	// Schedule shows content immediately and returns its handle.
	Schedule(ctx context.Context, content Content) (marker.NotificationHandle, error)
	// Dismiss hides a visible notification.
	Dismiss(ctx context.Context, handle marker.NotificationHandle) error
	// CancelScheduled drops any pending repeat of a notification.
	CancelScheduled(ctx context.Context, handle marker.NotificationHandle) error
}

// NearbyTitle is the headline of every proximity notification.
const NearbyTitle = "You're almost there!"

// NearbyContent builds the notification shown when m comes into range.
func NearbyContent(m *marker.Marker) Content {
	return Content{
		Title: NearbyTitle,
		Body:  fmt.Sprintf("Near you: '%s'", m.DisplayName()),
	}
}
