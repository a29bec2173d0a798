package resource

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/utafrali/ecommerce-admin/internal/domain"
	"github.com/utafrali/ecommerce-admin/pkg/pagination"
)

const unreadCountKey = "unreadCount"

// NotificationsConfig is the admin notification feed.
func NotificationsConfig() Config {
	params := pagination.DefaultParams()
	params.Limit = 20
	return Config{
		Name:          "notifications",
		Endpoint:      "/notifications",
		Key:           "notifications",
		Singular:      "notification",
		DefaultParams: params,
	}
}

// NotificationStore manages the admin notification feed.
type NotificationStore struct {
	*Store[domain.Notification]
}

// NewNotificationStore creates the store behind the notification bell.
func NewNotificationStore(deps Deps) *NotificationStore {
	return &NotificationStore{Store: NewStore[domain.Notification](NotificationsConfig(), deps)}
}

// MarkAsRead flags one notification as read.
func (s *NotificationStore) MarkAsRead(ctx context.Context, id string) error {
	wasUnread := false
	return s.Mutate(ctx, Mutation[domain.Notification]{
		Method:   http.MethodPatch,
		Endpoint: "/notifications/" + url.PathEscape(id) + "/read",
		ID:       id,
		Apply: PatchByID(id, func(n *domain.Notification) {
			wasUnread = !n.IsRead
			n.IsRead = true
		}),
		Statistics: func(stats json.RawMessage) json.RawMessage {
			if !wasUnread {
				return stats
			}
			return adjustCounter(stats, unreadCountKey, func(n int) int { return n - 1 })
		},
		Success: "Notification marked as read",
		Failure: "Failed to mark notification as read",
	})
}

// MarkAllAsRead flags every notification as read.
func (s *NotificationStore) MarkAllAsRead(ctx context.Context) error {
	return s.Mutate(ctx, Mutation[domain.Notification]{
		Method:   http.MethodPatch,
		Endpoint: "/notifications/read-all",
		Apply: func(items []domain.Notification) []domain.Notification {
			for i := range items {
				items[i].IsRead = true
			}
			return items
		},
		Statistics: func(stats json.RawMessage) json.RawMessage {
			return adjustCounter(stats, unreadCountKey, func(int) int { return 0 })
		},
		Success: "All notifications marked as read",
		Failure: "Failed to mark all notifications as read",
	})
}

// Delete removes a notification.
func (s *NotificationStore) Delete(ctx context.Context, id string) error {
	wasUnread := false
	return s.Mutate(ctx, Mutation[domain.Notification]{
		Method:   http.MethodDelete,
		Endpoint: "/notifications/" + url.PathEscape(id),
		ID:       id,
		Apply: func(items []domain.Notification) []domain.Notification {
			for _, n := range items {
				if n.ID == id && !n.IsRead {
					wasUnread = true
				}
			}
			return RemoveByID[domain.Notification](id)(items)
		},
		Statistics: func(stats json.RawMessage) json.RawMessage {
			if !wasUnread {
				return stats
			}
			return adjustCounter(stats, unreadCountKey, func(n int) int { return n - 1 })
		},
		Success: "Notification deleted",
		Failure: "Failed to delete notification",
	})
}

// UnreadCount returns the server's unread counter when the feed carried
// one, and otherwise counts the unread notifications on the current page.
func (s *NotificationStore) UnreadCount() int {
	st := s.Snapshot()
	var stats domain.NotificationStatistics
	if st.Statistics != nil && json.Unmarshal(st.Statistics, &stats) == nil && stats.UnreadCount != nil {
		return *stats.UnreadCount
	}

	n := 0
	for _, item := range st.Items {
		if !item.IsRead {
			n++
		}
	}
	return n
}

// adjustCounter rewrites one integer field of a statistics object. Objects
// without the field, or that do not decode, are returned unchanged.
func adjustCounter(stats json.RawMessage, key string, fn func(int) int) json.RawMessage {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(stats, &m); err != nil {
		return stats
	}
	raw, ok := m[key]
	if !ok {
		return stats
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return stats
	}

	next := fn(int(v))
	if next < 0 {
		next = 0
	}
	encoded, err := json.Marshal(next)
	if err != nil {
		return stats
	}
	m[key] = encoded

	out, err := json.Marshal(m)
	if err != nil {
		return stats
	}
	return out
}
