package model

import "context"

// EnemySource returns the current enemy list.
type EnemySource interface {
	ListEnemies(ctx context.Context) ([]Enemy, error)
}

// EnemyReader adds single-entry lookup on top of EnemySource.
type EnemyReader interface {
	EnemySource
	GetEnemy(ctx context.Context, slug string) (Enemy, error)
}

// DeliveryLog records and lists delivered notifications.
type DeliveryLog interface {
	RecordDelivery(rec DeliveryRecord) error
	RecentDeliveries(limit int) ([]DeliveryRecord, error)
}

// Notifier is the background side of the notification messages a view can
// post.
type Notifier interface {
	SendNotification(ctx context.Context) (Enemy, bool)
	StartPeriodicNotifications() bool
	Activate(ctx context.Context, permission Permission) (TriggerMode, error)
	PeriodicSync(ctx context.Context, tag string) bool
	Status() SchedulerStatus
}

// ViewRegistry tracks attached views so notification clicks reuse one.
type ViewRegistry interface {
	AttachView(origin string) string
	PollView(id string) (ViewCommand, bool)
	DetachView(id string)
	OpenLink(url string) error
}

// JournalService is everything the daemon exposes over socket RPC and HTTP.
type JournalService interface {
	EnemyReader
	Notifier
	ViewRegistry
	RecentDeliveries(limit int) ([]DeliveryRecord, error)
}
