package repository

import (
	"context"

	"github.com/akinalp/tms/models"
)

// TaskRepository, görev kayıtları için interface.
//
// Update ve Delete sahiplik filtresiyle çalışır: id + userID eşleşmezse
// pkg.ErrNotFound döner. "Var ama senin değil" ile "yok" ayırt edilmez.
type TaskRepository interface {
	Create(ctx context.Context, task *models.Task) error
	Update(ctx context.Context, id, userID string, upd models.TaskUpdate) (*models.Task, error)
	Delete(ctx context.Context, id, userID string) error
	// List, filtreye uyan görevleri dueDate'e göre artan sırada döner.
	// filter.UserID boşsa tüm kullanıcıların görevleri döner.
	List(ctx context.Context, filter models.TaskFilter) ([]models.Task, error)
}
