package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Enemy is one Hunter's Journal entry. It is the canonical type for the
// remote payload, the local caches, socket RPC transport and display.
type Enemy struct {
	Slug                 string `json:"slug"`
	Name                 string `json:"name"`
	Image                string `json:"image"`
	Description          string `json:"description"`
	SecondaryDescription string `json:"secondaryDescription"`
	Location             string `json:"location"`
}

// UnmarshalJSON accepts both the blob shape and the older API shape, where
// the secondary text is "hornetDescription" and location may be a list.
func (e *Enemy) UnmarshalJSON(data []byte) error {
	var raw struct {
		Slug                 string          `json:"slug"`
		Name                 string          `json:"name"`
		Image                string          `json:"image"`
		Description          string          `json:"description"`
		SecondaryDescription string          `json:"secondaryDescription"`
		HornetDescription    string          `json:"hornetDescription"`
		Location             json.RawMessage `json:"location"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	location, err := decodeLocation(raw.Location)
	if err != nil {
		return fmt.Errorf("enemy %q: location: %w", raw.Slug, err)
	}

	*e = Enemy{
		Slug:                 raw.Slug,
		Name:                 raw.Name,
		Image:                raw.Image,
		Description:          raw.Description,
		SecondaryDescription: raw.SecondaryDescription,
		Location:             location,
	}
	if e.SecondaryDescription == "" {
		e.SecondaryDescription = raw.HornetDescription
	}
	return nil
}

func decodeLocation(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return single, nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		return "", err
	}
	if len(list) == 0 {
		return "", nil
	}
	return list[0], nil
}

// LocationOrUnknown returns the location for display in notifications.
func (e Enemy) LocationOrUnknown() string {
	if e.Location == "" {
		return UnknownLocation
	}
	return e.Location
}

// HasSecondary reports whether the secondary description carries real text.
// The source uses "..." as a placeholder for entries without one.
func (e Enemy) HasSecondary() bool {
	return e.SecondaryDescription != "" && e.SecondaryDescription != "..."
}

// IndexOf returns the position of slug in enemies, or -1.
func IndexOf(enemies []Enemy, slug string) int {
	for i, e := range enemies {
		if e.Slug == slug {
			return i
		}
	}
	return -1
}

// Find returns the enemy with the given slug.
func Find(enemies []Enemy, slug string) (Enemy, bool) {
	if i := IndexOf(enemies, slug); i >= 0 {
		return enemies[i], true
	}
	return Enemy{}, false
}

// NotificationAction is one button attached to a delivered notification.
type NotificationAction struct {
	Action string `json:"action"`
	Title  string `json:"title"`
}

// NotificationData is the deep-link payload carried by a notification.
type NotificationData struct {
	Slug string `json:"slug"`
	URL  string `json:"url"`
}

// Notification is the display request handed to a Deliverer.
type Notification struct {
	Title    string               `json:"title"`
	Body     string               `json:"body"`
	Icon     string               `json:"icon"`
	Badge    string               `json:"badge"`
	Tag      string               `json:"tag"`
	Renotify bool                 `json:"renotify"`
	Data     NotificationData     `json:"data"`
	Actions  []NotificationAction `json:"actions"`
}

// DeliveryRecord is one row of the notification delivery log.
type DeliveryRecord struct {
	Slug        string    `json:"slug"`
	Tag         string    `json:"tag"`
	Trigger     string    `json:"trigger"`
	DeliveredAt time.Time `json:"deliveredAt"`
}

// Permission mirrors the notification permission states of the view.
type Permission string

const (
	PermissionDefault Permission = "default"
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
)

// TriggerMode describes which trigger path currently drives notifications.
type TriggerMode string

const (
	TriggerNone     TriggerMode = "none"
	TriggerPeriodic TriggerMode = "periodic"
	TriggerInterval TriggerMode = "interval"
)

// SchedulerStatus is reported by the daemon over RPC and HTTP.
type SchedulerStatus struct {
	Mode            TriggerMode `json:"mode"`
	FallbackRunning bool        `json:"fallbackRunning"`
	FallbackFlag    bool        `json:"fallbackFlag"`
	AttachedViews   int         `json:"attachedViews"`
}

// ViewCommand is what an attached view receives when it polls the daemon.
type ViewCommand struct {
	Focus    bool   `json:"focus"`
	Navigate string `json:"navigate,omitempty"`
}
