package notify

import (
	"fmt"

	"github.com/tinytelemetry/hunters-journal/internal/model"
)

// Build returns the notification announcing e. Repeats share a tag so a new
// one replaces the previous instead of stacking.
func Build(e model.Enemy) model.Notification {
	icon := e.Image
	if icon == "" {
		icon = model.DefaultIcon
	}
	return model.Notification{
		Title:    model.NotificationTitle,
		Body:     fmt.Sprintf("check %s — found at %s", e.Name, e.LocationOrUnknown()),
		Icon:     icon,
		Badge:    model.DefaultIcon,
		Tag:      model.NotificationTag,
		Renotify: true,
		Data: model.NotificationData{
			Slug: e.Slug,
			URL:  model.DeepLink(e.Slug),
		},
		Actions: []model.NotificationAction{
			{Action: "open", Title: model.NotificationOpenTitle},
		},
	}
}
