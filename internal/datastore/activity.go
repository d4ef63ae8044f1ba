package datastore

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/smmstore/internal/domain"
	"github.com/vladislavdragonenkov/smmstore/internal/messaging/kafka"
)

// LogActivity добавляет запись в журнал действий.
// Ошибка возвращается и дополнительно пишется в лог с уровнем warn:
// вызывающий код обычно не прерывает обработку из-за журнала.
func (s *Store) LogActivity(ctx context.Context, userID int64, action string) error {
	var entry domain.ActivityEntry
	err := s.observe(ctx, "activity.append", func(ctx context.Context) error {
		entry = domain.ActivityEntry{
			ID:     s.newID(),
			UserID: userID,
			Action: action,
			Time:   s.now().UTC(),
		}
		return s.activity.Append(ctx, entry)
	})
	if err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"user_id": userID,
			"action":  action,
		}).Warn("failed to log user activity")
		return err
	}

	event := kafka.NewActivityLoggedEvent(entry)
	s.publish(kafka.TopicActivityEvents, event.Key(), event)
	return nil
}

// ListUserActivity возвращает записи журнала пользователя, новые первыми; limit <= 0 - все.
func (s *Store) ListUserActivity(ctx context.Context, userID int64, limit int) ([]domain.ActivityEntry, error) {
	return run(ctx, s, "activity.list_by_user", func(ctx context.Context) ([]domain.ActivityEntry, error) {
		return s.activity.ListByUser(ctx, userID, limit)
	})
}
