package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/notifyhub/internal/domain"
)

// Memory is an in-memory Store implementation backed by locked maps.
// Suitable for tests and local development.
type Memory struct {
	events        map[uuid.UUID]domain.Event
	eventsByExtID map[string]uuid.UUID
	subscriptions map[uuid.UUID]domain.Subscription
	rules         map[uuid.UUID]domain.Rule
	notifications map[uuid.UUID]domain.Notification
	users         map[uuid.UUID]domain.User
	mu            sync.RWMutex
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		events:        make(map[uuid.UUID]domain.Event),
		eventsByExtID: make(map[string]uuid.UUID),
		subscriptions: make(map[uuid.UUID]domain.Subscription),
		rules:         make(map[uuid.UUID]domain.Rule),
		notifications: make(map[uuid.UUID]domain.Notification),
		users:         make(map[uuid.UUID]domain.User),
	}
}

var _ Store = (*Memory)(nil)

func (m *Memory) CreateEvent(ctx context.Context, event *domain.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	if event.Priority == "" {
		event.Priority = domain.PriorityMedium
	}

	// Second line of defence mirroring the Postgres unique index.
	if event.ExternalID != "" {
		if _, exists := m.eventsByExtID[event.ExternalID]; exists {
			return ErrAlreadyExists
		}
		m.eventsByExtID[event.ExternalID] = event.ID
	}

	m.events[event.ID] = *event
	return nil
}

func (m *Memory) EventExistsByExternalID(ctx context.Context, externalID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, exists := m.eventsByExtID[externalID]
	return exists, nil
}

func (m *Memory) FindEventByID(ctx context.Context, id uuid.UUID) (domain.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	event, ok := m.events[id]
	if !ok {
		return domain.Event{}, ErrNotFound
	}
	return event, nil
}

func (m *Memory) CreateSubscription(ctx context.Context, sub *domain.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now()
	}

	m.subscriptions[sub.ID] = *sub
	return nil
}

func (m *Memory) FindSubscriptionByID(ctx context.Context, id uuid.UUID) (domain.Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sub, ok := m.subscriptions[id]
	if !ok {
		return domain.Subscription{}, ErrNotFound
	}
	return sub, nil
}

func (m *Memory) FindSubscriptionsByUserID(ctx context.Context, userID uuid.UUID) ([]domain.Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var subs []domain.Subscription
	for _, sub := range m.subscriptions {
		if sub.UserID == userID {
			subs = append(subs, sub)
		}
	}
	sortSubscriptions(subs)
	return subs, nil
}

func (m *Memory) FindEnabledSubscriptions(ctx context.Context) ([]domain.Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var subs []domain.Subscription
	for _, sub := range m.subscriptions {
		if sub.Enabled {
			subs = append(subs, sub)
		}
	}
	sortSubscriptions(subs)
	return subs, nil
}

func (m *Memory) UpdateSubscription(ctx context.Context, sub domain.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.subscriptions[sub.ID]
	if !ok || current.UserID != sub.UserID {
		return ErrNotFound
	}
	sub.CreatedAt = current.CreatedAt
	m.subscriptions[sub.ID] = sub
	return nil
}

func (m *Memory) DeleteSubscription(ctx context.Context, id, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sub, ok := m.subscriptions[id]
	if !ok || sub.UserID != userID {
		return ErrNotFound
	}
	delete(m.subscriptions, id)
	for ruleID, rule := range m.rules {
		if rule.SubscriptionID == id {
			delete(m.rules, ruleID)
		}
	}
	return nil
}

func (m *Memory) CreateRule(ctx context.Context, rule *domain.Rule) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if rule.ID == uuid.Nil {
		rule.ID = uuid.New()
	}
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = time.Now()
	}
	if rule.Priority == "" {
		rule.Priority = domain.PriorityMedium
	}

	m.rules[rule.ID] = *rule
	return nil
}

func (m *Memory) FindRulesBySubscriptionID(ctx context.Context, subscriptionID uuid.UUID) ([]domain.Rule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var rules []domain.Rule
	for _, rule := range m.rules {
		if rule.SubscriptionID == subscriptionID {
			rules = append(rules, rule)
		}
	}
	sort.Slice(rules, func(i, j int) bool {
		if rules[i].CreatedAt.Equal(rules[j].CreatedAt) {
			return strings.Compare(rules[i].ID.String(), rules[j].ID.String()) < 0
		}
		return rules[i].CreatedAt.Before(rules[j].CreatedAt)
	})
	return rules, nil
}

func (m *Memory) UpdateRule(ctx context.Context, rule domain.Rule) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.rules[rule.ID]
	if !ok || current.SubscriptionID != rule.SubscriptionID {
		return ErrNotFound
	}
	rule.CreatedAt = current.CreatedAt
	m.rules[rule.ID] = rule
	return nil
}

func (m *Memory) DeleteRule(ctx context.Context, id, subscriptionID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rule, ok := m.rules[id]
	if !ok || rule.SubscriptionID != subscriptionID {
		return ErrNotFound
	}
	delete(m.rules, id)
	return nil
}

func (m *Memory) CreateNotification(ctx context.Context, notif *domain.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if notif.ID == uuid.Nil {
		notif.ID = uuid.New()
	}
	now := time.Now()
	if notif.CreatedAt.IsZero() {
		notif.CreatedAt = now
	}
	if notif.UpdatedAt.IsZero() {
		notif.UpdatedAt = notif.CreatedAt
	}
	if notif.Status == "" {
		notif.Status = domain.StatusCreated
	}

	m.notifications[notif.ID] = *notif
	return nil
}

func (m *Memory) FindNotificationByID(ctx context.Context, id uuid.UUID) (domain.Notification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	notif, ok := m.notifications[id]
	if !ok {
		return domain.Notification{}, ErrNotFound
	}
	return notif, nil
}

func (m *Memory) UpdateNotificationStatus(ctx context.Context, id uuid.UUID, status domain.Status, lastError string, attempts int) (domain.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	notif, ok := m.notifications[id]
	if !ok {
		return domain.Notification{}, ErrNotFound
	}
	if !notif.Status.CanTransition(status) {
		return domain.Notification{}, ErrInvalidTransition
	}

	notif.Status = status
	notif.UpdatedAt = time.Now()
	if attempts > notif.Attempts {
		notif.Attempts = attempts
	}
	if lastError != "" {
		notif.LastError = lastError
	}

	m.notifications[id] = notif
	return notif, nil
}

func (m *Memory) CountNotifications(ctx context.Context, userID uuid.UUID, channel domain.Channel, since time.Time) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, notif := range m.notifications {
		if notif.UserID == userID && notif.Channel == channel && !notif.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (m *Memory) FindNotificationsByUserID(ctx context.Context, userID uuid.UUID, filter NotificationFilter) ([]domain.Notification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var notifs []domain.Notification
	for _, notif := range m.notifications {
		if notif.UserID != userID {
			continue
		}
		if filter.Status != nil && notif.Status != *filter.Status {
			continue
		}
		if filter.From != nil && notif.CreatedAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && notif.CreatedAt.After(*filter.To) {
			continue
		}
		notifs = append(notifs, notif)
	}

	sort.Slice(notifs, func(i, j int) bool {
		return notifs[i].CreatedAt.After(notifs[j].CreatedAt)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(notifs) {
			return []domain.Notification{}, nil
		}
		notifs = notifs[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(notifs) {
		notifs = notifs[:filter.Limit]
	}
	return notifs, nil
}

func (m *Memory) CreateUser(ctx context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.users {
		if existing.Username == user.Username {
			return ErrAlreadyExists
		}
	}

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	if user.Role == "" {
		user.Role = "USER"
	}

	m.users[user.ID] = *user
	return nil
}

func (m *Memory) FindUserByID(ctx context.Context, id uuid.UUID) (domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := m.users[id]
	if !ok {
		return domain.User{}, ErrNotFound
	}
	return user, nil
}

func (m *Memory) FindUserByUsername(ctx context.Context, username string) (domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, user := range m.users {
		if user.Username == username {
			return user, nil
		}
	}
	return domain.User{}, ErrNotFound
}

func (m *Memory) Totals(ctx context.Context) (Totals, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return Totals{
		Users:         int64(len(m.users)),
		Subscriptions: int64(len(m.subscriptions)),
		Events:        int64(len(m.events)),
		Notifications: int64(len(m.notifications)),
	}, nil
}

func sortSubscriptions(subs []domain.Subscription) {
	sort.Slice(subs, func(i, j int) bool {
		if subs[i].CreatedAt.Equal(subs[j].CreatedAt) {
			return strings.Compare(subs[i].ID.String(), subs[j].ID.String()) < 0
		}
		return subs[i].CreatedAt.Before(subs[j].CreatedAt)
	})
}
