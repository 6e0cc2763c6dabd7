package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/notifyhub/internal/domain"
)

// Postgres is the production Store implementation on top of pgx.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres wraps an established connection pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

var _ Store = (*Postgres)(nil)

func (p *Postgres) CreateEvent(ctx context.Context, event *domain.Event) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	if event.Priority == "" {
		event.Priority = domain.PriorityMedium
	}

	_, err := p.pool.Exec(ctx,
		`INSERT INTO events (id, source_type, external_id, title, payload, priority, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		event.ID, event.SourceType, event.ExternalID, event.Title, event.Payload, event.Priority, event.CreatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

func (p *Postgres) EventExistsByExternalID(ctx context.Context, externalID string) (bool, error) {
	var exists bool
	err := p.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM events WHERE external_id = $1)`, externalID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check event existence: %w", err)
	}
	return exists, nil
}

func (p *Postgres) FindEventByID(ctx context.Context, id uuid.UUID) (domain.Event, error) {
	var event domain.Event
	err := p.pool.QueryRow(ctx,
		`SELECT id, source_type, external_id, title, payload, priority, created_at
		 FROM events WHERE id = $1`, id).
		Scan(&event.ID, &event.SourceType, &event.ExternalID, &event.Title,
			&event.Payload, &event.Priority, &event.CreatedAt)
	if err != nil {
		if isNotFoundError(err) {
			return domain.Event{}, ErrNotFound
		}
		return domain.Event{}, fmt.Errorf("find event: %w", err)
	}
	return event, nil
}

func (p *Postgres) CreateSubscription(ctx context.Context, sub *domain.Subscription) error {
	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now()
	}

	_, err := p.pool.Exec(ctx,
		`INSERT INTO subscriptions (id, user_id, source_type, params, enabled, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		sub.ID, sub.UserID, sub.SourceType, sub.Params, sub.Enabled, sub.CreatedAt)
	if err != nil {
		return fmt.Errorf("create subscription: %w", err)
	}
	return nil
}

func (p *Postgres) FindSubscriptionByID(ctx context.Context, id uuid.UUID) (domain.Subscription, error) {
	var sub domain.Subscription
	err := p.pool.QueryRow(ctx,
		`SELECT id, user_id, source_type, params, enabled, created_at
		 FROM subscriptions WHERE id = $1`, id).
		Scan(&sub.ID, &sub.UserID, &sub.SourceType, &sub.Params, &sub.Enabled, &sub.CreatedAt)
	if err != nil {
		if isNotFoundError(err) {
			return domain.Subscription{}, ErrNotFound
		}
		return domain.Subscription{}, fmt.Errorf("find subscription: %w", err)
	}
	return sub, nil
}

func (p *Postgres) FindSubscriptionsByUserID(ctx context.Context, userID uuid.UUID) ([]domain.Subscription, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id, user_id, source_type, params, enabled, created_at
		 FROM subscriptions WHERE user_id = $1 ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	return scanSubscriptions(rows)
}

func (p *Postgres) FindEnabledSubscriptions(ctx context.Context) ([]domain.Subscription, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id, user_id, source_type, params, enabled, created_at
		 FROM subscriptions WHERE enabled ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list enabled subscriptions: %w", err)
	}
	return scanSubscriptions(rows)
}

func scanSubscriptions(rows pgx.Rows) ([]domain.Subscription, error) {
	defer rows.Close()

	var subs []domain.Subscription
	for rows.Next() {
		var sub domain.Subscription
		if err := rows.Scan(&sub.ID, &sub.UserID, &sub.SourceType, &sub.Params, &sub.Enabled, &sub.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

func (p *Postgres) UpdateSubscription(ctx context.Context, sub domain.Subscription) error {
	tag, err := p.pool.Exec(ctx,
		`UPDATE subscriptions SET source_type = $1, params = $2, enabled = $3
		 WHERE id = $4 AND user_id = $5`,
		sub.SourceType, sub.Params, sub.Enabled, sub.ID, sub.UserID)
	if err != nil {
		return fmt.Errorf("update subscription: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) DeleteSubscription(ctx context.Context, id, userID uuid.UUID) error {
	tag, err := p.pool.Exec(ctx,
		`DELETE FROM subscriptions WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) CreateRule(ctx context.Context, rule *domain.Rule) error {
	if rule.ID == uuid.Nil {
		rule.ID = uuid.New()
	}
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = time.Now()
	}
	if rule.Priority == "" {
		rule.Priority = domain.PriorityMedium
	}

	_, err := p.pool.Exec(ctx,
		`INSERT INTO rules (id, subscription_id, keyword_filter, dedup_window_minutes,
		                    rate_limit_per_hour, priority, quiet_start_minutes, quiet_end_minutes, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rule.ID, rule.SubscriptionID, rule.KeywordFilter, rule.DedupWindowMinutes,
		rule.RateLimitPerHour, rule.Priority,
		timeOfDayToMinutes(rule.QuietHoursStart), timeOfDayToMinutes(rule.QuietHoursEnd), rule.CreatedAt)
	if err != nil {
		return fmt.Errorf("create rule: %w", err)
	}
	return nil
}

func (p *Postgres) FindRulesBySubscriptionID(ctx context.Context, subscriptionID uuid.UUID) ([]domain.Rule, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id, subscription_id, keyword_filter, dedup_window_minutes,
		        rate_limit_per_hour, priority, quiet_start_minutes, quiet_end_minutes, created_at
		 FROM rules WHERE subscription_id = $1 ORDER BY created_at, id`, subscriptionID)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	defer rows.Close()

	var rules []domain.Rule
	for rows.Next() {
		var (
			rule       domain.Rule
			quietStart *int16
			quietEnd   *int16
		)
		if err := rows.Scan(&rule.ID, &rule.SubscriptionID, &rule.KeywordFilter, &rule.DedupWindowMinutes,
			&rule.RateLimitPerHour, &rule.Priority, &quietStart, &quietEnd, &rule.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		rule.QuietHoursStart = minutesToTimeOfDay(quietStart)
		rule.QuietHoursEnd = minutesToTimeOfDay(quietEnd)
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

func (p *Postgres) UpdateRule(ctx context.Context, rule domain.Rule) error {
	tag, err := p.pool.Exec(ctx,
		`UPDATE rules SET keyword_filter = $1, dedup_window_minutes = $2, rate_limit_per_hour = $3,
		        priority = $4, quiet_start_minutes = $5, quiet_end_minutes = $6
		 WHERE id = $7 AND subscription_id = $8`,
		rule.KeywordFilter, rule.DedupWindowMinutes, rule.RateLimitPerHour, rule.Priority,
		timeOfDayToMinutes(rule.QuietHoursStart), timeOfDayToMinutes(rule.QuietHoursEnd),
		rule.ID, rule.SubscriptionID)
	if err != nil {
		return fmt.Errorf("update rule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) DeleteRule(ctx context.Context, id, subscriptionID uuid.UUID) error {
	tag, err := p.pool.Exec(ctx,
		`DELETE FROM rules WHERE id = $1 AND subscription_id = $2`, id, subscriptionID)
	if err != nil {
		return fmt.Errorf("delete rule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) CreateNotification(ctx context.Context, notif *domain.Notification) error {
	if notif.ID == uuid.Nil {
		notif.ID = uuid.New()
	}
	if notif.CreatedAt.IsZero() {
		notif.CreatedAt = time.Now()
	}
	if notif.UpdatedAt.IsZero() {
		notif.UpdatedAt = notif.CreatedAt
	}
	if notif.Status == "" {
		notif.Status = domain.StatusCreated
	}

	_, err := p.pool.Exec(ctx,
		`INSERT INTO notifications (id, user_id, event_id, channel, status, attempts, last_error, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		notif.ID, notif.UserID, notif.EventID, notif.Channel, notif.Status,
		notif.Attempts, notif.LastError, notif.CreatedAt, notif.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

func (p *Postgres) FindNotificationByID(ctx context.Context, id uuid.UUID) (domain.Notification, error) {
	notif, err := scanNotificationRow(p.pool.QueryRow(ctx,
		`SELECT id, user_id, event_id, channel, status, attempts, last_error, created_at, updated_at
		 FROM notifications WHERE id = $1`, id))
	if err != nil {
		if isNotFoundError(err) {
			return domain.Notification{}, ErrNotFound
		}
		return domain.Notification{}, fmt.Errorf("find notification: %w", err)
	}
	return notif, nil
}

func (p *Postgres) UpdateNotificationStatus(ctx context.Context, id uuid.UUID, status domain.Status, lastError string, attempts int) (domain.Notification, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return domain.Notification{}, fmt.Errorf("begin transition: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var current domain.Status
	err = tx.QueryRow(ctx,
		`SELECT status FROM notifications WHERE id = $1 FOR UPDATE`, id).Scan(&current)
	if err != nil {
		if isNotFoundError(err) {
			return domain.Notification{}, ErrNotFound
		}
		return domain.Notification{}, fmt.Errorf("lock notification: %w", err)
	}
	if !current.CanTransition(status) {
		return domain.Notification{}, ErrInvalidTransition
	}

	notif, err := scanNotificationRow(tx.QueryRow(ctx,
		`UPDATE notifications
		 SET status = $1,
		     attempts = GREATEST(attempts, $2),
		     last_error = CASE WHEN $3 = '' THEN last_error ELSE $3 END,
		     updated_at = now()
		 WHERE id = $4
		 RETURNING id, user_id, event_id, channel, status, attempts, last_error, created_at, updated_at`,
		status, attempts, lastError, id))
	if err != nil {
		return domain.Notification{}, fmt.Errorf("update notification: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Notification{}, fmt.Errorf("commit transition: %w", err)
	}
	return notif, nil
}

func (p *Postgres) CountNotifications(ctx context.Context, userID uuid.UUID, channel domain.Channel, since time.Time) (int, error) {
	var count int
	err := p.pool.QueryRow(ctx,
		`SELECT count(*) FROM notifications
		 WHERE user_id = $1 AND channel = $2 AND created_at >= $3`,
		userID, channel, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count notifications: %w", err)
	}
	return count, nil
}

func (p *Postgres) FindNotificationsByUserID(ctx context.Context, userID uuid.UUID, filter NotificationFilter) ([]domain.Notification, error) {
	var (
		conds = []string{"user_id = $1"}
		args  = []any{userID}
	)
	if filter.Status != nil {
		args = append(args, *filter.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		conds = append(conds, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		conds = append(conds, fmt.Sprintf("created_at <= $%d", len(args)))
	}

	query := `SELECT id, user_id, event_id, channel, status, attempts, last_error, created_at, updated_at
		 FROM notifications WHERE ` + strings.Join(conds, " AND ") +
		` ORDER BY created_at DESC, id`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var notifs []domain.Notification
	for rows.Next() {
		var notif domain.Notification
		if err := rows.Scan(&notif.ID, &notif.UserID, &notif.EventID, &notif.Channel, &notif.Status,
			&notif.Attempts, &notif.LastError, &notif.CreatedAt, &notif.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		notifs = append(notifs, notif)
	}
	return notifs, rows.Err()
}

func (p *Postgres) CreateUser(ctx context.Context, user *domain.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	if user.Role == "" {
		user.Role = "USER"
	}

	_, err := p.pool.Exec(ctx,
		`INSERT INTO users (id, username, email, password_hash, role, telegram_chat_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		user.ID, user.Username, user.Email, user.PasswordHash, user.Role, user.TelegramChatID, user.CreatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (p *Postgres) FindUserByID(ctx context.Context, id uuid.UUID) (domain.User, error) {
	return p.findUser(ctx, `SELECT id, username, email, password_hash, role, telegram_chat_id, created_at
		 FROM users WHERE id = $1`, id)
}

func (p *Postgres) FindUserByUsername(ctx context.Context, username string) (domain.User, error) {
	return p.findUser(ctx, `SELECT id, username, email, password_hash, role, telegram_chat_id, created_at
		 FROM users WHERE username = $1`, username)
}

func (p *Postgres) findUser(ctx context.Context, query string, arg any) (domain.User, error) {
	var user domain.User
	err := p.pool.QueryRow(ctx, query, arg).
		Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash,
			&user.Role, &user.TelegramChatID, &user.CreatedAt)
	if err != nil {
		if isNotFoundError(err) {
			return domain.User{}, ErrNotFound
		}
		return domain.User{}, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

func (p *Postgres) Totals(ctx context.Context) (Totals, error) {
	var totals Totals
	err := p.pool.QueryRow(ctx,
		`SELECT (SELECT count(*) FROM users),
		        (SELECT count(*) FROM subscriptions),
		        (SELECT count(*) FROM events),
		        (SELECT count(*) FROM notifications)`).
		Scan(&totals.Users, &totals.Subscriptions, &totals.Events, &totals.Notifications)
	if err != nil {
		return Totals{}, fmt.Errorf("count totals: %w", err)
	}
	return totals, nil
}

func scanNotificationRow(row pgx.Row) (domain.Notification, error) {
	var notif domain.Notification
	err := row.Scan(&notif.ID, &notif.UserID, &notif.EventID, &notif.Channel, &notif.Status,
		&notif.Attempts, &notif.LastError, &notif.CreatedAt, &notif.UpdatedAt)
	return notif, err
}

func timeOfDayToMinutes(t *domain.TimeOfDay) *int16 {
	if t == nil {
		return nil
	}
	m := int16(t.MinuteOfDay())
	return &m
}

func minutesToTimeOfDay(m *int16) *domain.TimeOfDay {
	if m == nil {
		return nil
	}
	return &domain.TimeOfDay{Hour: int(*m) / 60, Minute: int(*m) % 60}
}
