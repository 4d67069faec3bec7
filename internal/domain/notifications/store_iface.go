package notifications

import "context"

type StoreAPI interface {
	CreateNotification(ctx context.Context, userID string, msg Message) error
	ListNotifications(ctx context.Context, userID string, limit, offset int) ([]Notification, error)
	CountNotifications(ctx context.Context, userID string, unreadOnly bool) (int, error)
	MarkRead(ctx context.Context, userID, notificationID string) (bool, error)
	UserEmail(ctx context.Context, userID string) (string, error)
	Preferences(ctx context.Context, userID string) (Preferences, error)
	UpdatePreferences(ctx context.Context, userID string, prefs Preferences) error
	ListPushSubscriptions(ctx context.Context, userID string) ([]PushSubscription, error)
	SavePushSubscription(ctx context.Context, sub PushSubscription) error
	DeletePushSubscription(ctx context.Context, endpoint string) error
	DeleteUserPushSubscription(ctx context.Context, userID, endpoint string) (bool, error)
	RecordDelivery(ctx context.Context, d Delivery) error
}
