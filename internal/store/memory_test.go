package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifyhub/internal/domain"
	"github.com/dmitrymomot/notifyhub/internal/store"
)

func TestMemory_Events(t *testing.T) {
	t.Parallel()

	t.Run("create assigns id and timestamp", func(t *testing.T) {
		t.Parallel()

		m := store.NewMemory()
		event := domain.Event{SourceType: "GEN", Title: "hello"}
		require.NoError(t, m.CreateEvent(context.Background(), &event))

		assert.NotEqual(t, uuid.Nil, event.ID)
		assert.False(t, event.CreatedAt.IsZero())
		assert.Equal(t, domain.PriorityMedium, event.Priority)

		got, err := m.FindEventByID(context.Background(), event.ID)
		require.NoError(t, err)
		assert.Equal(t, event.Title, got.Title)
	})

	t.Run("duplicate external id rejected", func(t *testing.T) {
		t.Parallel()

		m := store.NewMemory()
		first := domain.Event{SourceType: "GEN", Title: "a", ExternalID: "gen:1"}
		require.NoError(t, m.CreateEvent(context.Background(), &first))

		second := domain.Event{SourceType: "GEN", Title: "b", ExternalID: "gen:1"}
		err := m.CreateEvent(context.Background(), &second)
		assert.ErrorIs(t, err, store.ErrAlreadyExists)

		exists, err := m.EventExistsByExternalID(context.Background(), "gen:1")
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("blank external id never collides", func(t *testing.T) {
		t.Parallel()

		m := store.NewMemory()
		for range 3 {
			event := domain.Event{SourceType: "GEN", Title: "x"}
			require.NoError(t, m.CreateEvent(context.Background(), &event))
		}

		exists, err := m.EventExistsByExternalID(context.Background(), "")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("missing event", func(t *testing.T) {
		t.Parallel()

		m := store.NewMemory()
		_, err := m.FindEventByID(context.Background(), uuid.New())
		assert.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestMemory_Subscriptions(t *testing.T) {
	t.Parallel()

	t.Run("enabled filter", func(t *testing.T) {
		t.Parallel()

		m := store.NewMemory()
		userID := uuid.New()

		on := domain.Subscription{UserID: userID, SourceType: "GEN", Enabled: true}
		off := domain.Subscription{UserID: userID, SourceType: "RSS", Enabled: false}
		require.NoError(t, m.CreateSubscription(context.Background(), &on))
		require.NoError(t, m.CreateSubscription(context.Background(), &off))

		enabled, err := m.FindEnabledSubscriptions(context.Background())
		require.NoError(t, err)
		require.Len(t, enabled, 1)
		assert.Equal(t, on.ID, enabled[0].ID)

		all, err := m.FindSubscriptionsByUserID(context.Background(), userID)
		require.NoError(t, err)
		assert.Len(t, all, 2)
	})

	t.Run("update scoped to owner", func(t *testing.T) {
		t.Parallel()

		m := store.NewMemory()
		sub := domain.Subscription{UserID: uuid.New(), SourceType: "GEN", Enabled: true}
		require.NoError(t, m.CreateSubscription(context.Background(), &sub))

		stranger := sub
		stranger.UserID = uuid.New()
		assert.ErrorIs(t, m.UpdateSubscription(context.Background(), stranger), store.ErrNotFound)

		sub.Enabled = false
		require.NoError(t, m.UpdateSubscription(context.Background(), sub))

		got, err := m.FindSubscriptionByID(context.Background(), sub.ID)
		require.NoError(t, err)
		assert.False(t, got.Enabled)
	})

	t.Run("delete cascades to rules", func(t *testing.T) {
		t.Parallel()

		m := store.NewMemory()
		sub := domain.Subscription{UserID: uuid.New(), SourceType: "GEN", Enabled: true}
		require.NoError(t, m.CreateSubscription(context.Background(), &sub))

		rule := domain.Rule{SubscriptionID: sub.ID, Priority: domain.PriorityHigh}
		require.NoError(t, m.CreateRule(context.Background(), &rule))

		require.NoError(t, m.DeleteSubscription(context.Background(), sub.ID, sub.UserID))

		rules, err := m.FindRulesBySubscriptionID(context.Background(), sub.ID)
		require.NoError(t, err)
		assert.Empty(t, rules)
	})
}

func TestMemory_Rules(t *testing.T) {
	t.Parallel()

	t.Run("listed in creation order", func(t *testing.T) {
		t.Parallel()

		m := store.NewMemory()
		subID := uuid.New()
		base := time.Now().Add(-time.Hour)

		third := domain.Rule{SubscriptionID: subID, KeywordFilter: "c", CreatedAt: base.Add(3 * time.Minute)}
		first := domain.Rule{SubscriptionID: subID, KeywordFilter: "a", CreatedAt: base.Add(time.Minute)}
		second := domain.Rule{SubscriptionID: subID, KeywordFilter: "b", CreatedAt: base.Add(2 * time.Minute)}
		for _, r := range []*domain.Rule{&third, &first, &second} {
			require.NoError(t, m.CreateRule(context.Background(), r))
		}

		rules, err := m.FindRulesBySubscriptionID(context.Background(), subID)
		require.NoError(t, err)
		require.Len(t, rules, 3)
		assert.Equal(t, "a", rules[0].KeywordFilter)
		assert.Equal(t, "b", rules[1].KeywordFilter)
		assert.Equal(t, "c", rules[2].KeywordFilter)
	})

	t.Run("delete scoped to subscription", func(t *testing.T) {
		t.Parallel()

		m := store.NewMemory()
		rule := domain.Rule{SubscriptionID: uuid.New()}
		require.NoError(t, m.CreateRule(context.Background(), &rule))

		assert.ErrorIs(t, m.DeleteRule(context.Background(), rule.ID, uuid.New()), store.ErrNotFound)
		require.NoError(t, m.DeleteRule(context.Background(), rule.ID, rule.SubscriptionID))
	})
}

func TestMemory_NotificationTransitions(t *testing.T) {
	t.Parallel()

	newNotif := func(t *testing.T, m *store.Memory) domain.Notification {
		t.Helper()
		notif := domain.Notification{UserID: uuid.New(), EventID: uuid.New(), Channel: domain.ChannelUI}
		require.NoError(t, m.CreateNotification(context.Background(), &notif))
		return notif
	}

	t.Run("created to queued to sent", func(t *testing.T) {
		t.Parallel()

		m := store.NewMemory()
		notif := newNotif(t, m)
		assert.Equal(t, domain.StatusCreated, notif.Status)

		queued, err := m.UpdateNotificationStatus(context.Background(), notif.ID, domain.StatusQueued, "", 0)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusQueued, queued.Status)

		sent, err := m.UpdateNotificationStatus(context.Background(), notif.ID, domain.StatusSent, "", 3)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusSent, sent.Status)
		assert.Equal(t, 3, sent.Attempts)
	})

	t.Run("terminal status is frozen", func(t *testing.T) {
		t.Parallel()

		m := store.NewMemory()
		notif := newNotif(t, m)

		_, err := m.UpdateNotificationStatus(context.Background(), notif.ID, domain.StatusFailed, "boom", 4)
		require.NoError(t, err)

		_, err = m.UpdateNotificationStatus(context.Background(), notif.ID, domain.StatusSent, "", 5)
		assert.ErrorIs(t, err, store.ErrInvalidTransition)

		got, err := m.FindNotificationByID(context.Background(), notif.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusFailed, got.Status)
		assert.Equal(t, "boom", got.LastError)
	})

	t.Run("cannot return to queued from sent", func(t *testing.T) {
		t.Parallel()

		m := store.NewMemory()
		notif := newNotif(t, m)

		_, err := m.UpdateNotificationStatus(context.Background(), notif.ID, domain.StatusSent, "", 1)
		require.NoError(t, err)

		_, err = m.UpdateNotificationStatus(context.Background(), notif.ID, domain.StatusQueued, "", 1)
		assert.ErrorIs(t, err, store.ErrInvalidTransition)
	})
}

func TestMemory_NotificationQueries(t *testing.T) {
	t.Parallel()

	t.Run("count by user channel and window", func(t *testing.T) {
		t.Parallel()

		m := store.NewMemory()
		userID := uuid.New()
		now := time.Now()

		inside := domain.Notification{UserID: userID, EventID: uuid.New(), Channel: domain.ChannelUI, CreatedAt: now.Add(-30 * time.Minute)}
		outside := domain.Notification{UserID: userID, EventID: uuid.New(), Channel: domain.ChannelUI, CreatedAt: now.Add(-2 * time.Hour)}
		otherChannel := domain.Notification{UserID: userID, EventID: uuid.New(), Channel: domain.ChannelTelegram, CreatedAt: now.Add(-30 * time.Minute)}
		otherUser := domain.Notification{UserID: uuid.New(), EventID: uuid.New(), Channel: domain.ChannelUI, CreatedAt: now.Add(-30 * time.Minute)}
		for _, n := range []*domain.Notification{&inside, &outside, &otherChannel, &otherUser} {
			require.NoError(t, m.CreateNotification(context.Background(), n))
		}

		count, err := m.CountNotifications(context.Background(), userID, domain.ChannelUI, now.Add(-time.Hour))
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("history newest first with paging", func(t *testing.T) {
		t.Parallel()

		m := store.NewMemory()
		userID := uuid.New()
		base := time.Now().Add(-time.Hour)

		var ids []uuid.UUID
		for i := range 5 {
			n := domain.Notification{UserID: userID, EventID: uuid.New(), Channel: domain.ChannelUI, CreatedAt: base.Add(time.Duration(i) * time.Minute)}
			require.NoError(t, m.CreateNotification(context.Background(), &n))
			ids = append(ids, n.ID)
		}

		page, err := m.FindNotificationsByUserID(context.Background(), userID, store.NotificationFilter{Limit: 2, Offset: 1})
		require.NoError(t, err)
		require.Len(t, page, 2)
		assert.Equal(t, ids[3], page[0].ID)
		assert.Equal(t, ids[2], page[1].ID)
	})

	t.Run("filter by status and time range", func(t *testing.T) {
		t.Parallel()

		m := store.NewMemory()
		userID := uuid.New()
		now := time.Now()

		sent := domain.Notification{UserID: userID, EventID: uuid.New(), Channel: domain.ChannelUI, CreatedAt: now.Add(-10 * time.Minute)}
		require.NoError(t, m.CreateNotification(context.Background(), &sent))
		_, err := m.UpdateNotificationStatus(context.Background(), sent.ID, domain.StatusSent, "", 1)
		require.NoError(t, err)

		created := domain.Notification{UserID: userID, EventID: uuid.New(), Channel: domain.ChannelUI, CreatedAt: now.Add(-5 * time.Minute)}
		require.NoError(t, m.CreateNotification(context.Background(), &created))

		status := domain.StatusSent
		got, err := m.FindNotificationsByUserID(context.Background(), userID, store.NotificationFilter{Status: &status})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, sent.ID, got[0].ID)

		from := now.Add(-7 * time.Minute)
		got, err = m.FindNotificationsByUserID(context.Background(), userID, store.NotificationFilter{From: &from})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, created.ID, got[0].ID)
	})
}

func TestMemory_Users(t *testing.T) {
	t.Parallel()

	t.Run("unique username", func(t *testing.T) {
		t.Parallel()

		m := store.NewMemory()
		first := domain.User{Username: "ada", PasswordHash: "x"}
		require.NoError(t, m.CreateUser(context.Background(), &first))
		assert.Equal(t, "USER", first.Role)

		dup := domain.User{Username: "ada", PasswordHash: "y"}
		assert.ErrorIs(t, m.CreateUser(context.Background(), &dup), store.ErrAlreadyExists)
	})

	t.Run("lookup by username", func(t *testing.T) {
		t.Parallel()

		m := store.NewMemory()
		user := domain.User{Username: "grace", PasswordHash: "x", TelegramChatID: "42"}
		require.NoError(t, m.CreateUser(context.Background(), &user))

		got, err := m.FindUserByUsername(context.Background(), "grace")
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
		assert.Equal(t, "42", got.TelegramChatID)

		_, err = m.FindUserByUsername(context.Background(), "nobody")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})
}
