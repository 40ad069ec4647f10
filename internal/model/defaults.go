package model

import (
	"net/url"
	"time"
)

// Shared defaults used by both the daemon and the view.
const (
	DefaultBlobURL        = "https://vjjm30byfc5nljjh.public.blob.vercel-storage.com/inimigos.json"
	DefaultAPIBaseURL     = "https://silksong-api.onrender.com/api"
	DefaultIcon           = "icon-192.png"
	DefaultIntroSlug      = "Lace"
	UnknownLocation       = "Unknown"
	NotificationTitle     = "Hunter's Journal 🗡️"
	NotificationTag       = "hunter-journal-enemy"
	PeriodicSyncTag       = "hunter-journal-notification"
	NotificationInterval  = 4 * time.Hour
	WelcomeDelay          = 30 * time.Second
	LocalCacheExpiration  = 72 * time.Hour
	MoveCooldown          = 200 * time.Millisecond
	FrameInterval         = 16 * time.Millisecond
	DeviceIndicatorTTL    = 5 * time.Second
	DevicePollInterval    = time.Second
	DefaultNarrowWidth    = 100
	BlobCacheName         = "blob-json-cache"
	ImageCacheName        = "image-cache"
	DeepLinkParam         = "enemy"
	NotificationOpenTitle = "View enemy"
)

// DeepLink returns the in-app URL that selects slug. The slug is query
// escaped.
func DeepLink(slug string) string {
	return "/?" + url.Values{DeepLinkParam: {slug}}.Encode()
}
