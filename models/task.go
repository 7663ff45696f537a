package models

import (
	"strings"
	"time"
)

// TaskStatus, bir görevin yaşam döngüsündeki yeri.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "Pending"
	TaskStatusInProgress TaskStatus = "In Progress"
	TaskStatusCompleted  TaskStatus = "Completed"
)

// IsValid, status'un bilinen değerlerden biri olup olmadığını döner.
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted:
		return true
	}
	return false
}

// Task, bir kullanıcıya ait görev.
type Task struct {
	ID          string     `json:"id" bson:"_id"`
	Title       string     `json:"title" bson:"title"`
	Description string     `json:"description" bson:"description"`
	DueDate     time.Time  `json:"dueDate" bson:"dueDate"`
	Status      TaskStatus `json:"status" bson:"status"`
	UserID      string     `json:"userId" bson:"userId"`
	CreatedAt   time.Time  `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt" bson:"updatedAt"`
}

// TaskOwner, admin listesinde görevin sahibine ait özet bilgi.
type TaskOwner struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// TaskWithOwner, tüm görevler listesinde dönen satır.
type TaskWithOwner struct {
	Task
	User *TaskOwner `json:"user"`
}

// CreateTaskRequest, görev oluşturma isteği.
// DueDate "2006-01-02" veya RFC3339 biçiminde gelebilir.
type CreateTaskRequest struct {
	Title       string     `json:"title" validate:"required,max=200"`
	Description string     `json:"description" validate:"required,max=2000"`
	DueDate     string     `json:"dueDate" validate:"required"`
	Status      TaskStatus `json:"status,omitempty" validate:"omitempty,oneof=Pending 'In Progress' Completed"`
}

// Normalize, metin alanlarındaki baş/son boşlukları temizler.
func (r *CreateTaskRequest) Normalize() {
	r.Title = strings.TrimSpace(r.Title)
	r.Description = strings.TrimSpace(r.Description)
	r.DueDate = strings.TrimSpace(r.DueDate)
}

// UpdateTaskRequest, kısmi güncelleme. nil alanlar değiştirilmez.
type UpdateTaskRequest struct {
	Title       *string     `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Description *string     `json:"description,omitempty" validate:"omitempty,max=2000"`
	DueDate     *string     `json:"dueDate,omitempty"`
	Status      *TaskStatus `json:"status,omitempty" validate:"omitempty,oneof=Pending 'In Progress' Completed"`
}

// TaskUpdate, repository'ye giden çözümlenmiş güncelleme.
type TaskUpdate struct {
	Title       *string
	Description *string
	DueDate     *time.Time
	Status      *TaskStatus
}

// TaskFilter, arama kriterleri. Boş alanlar filtrelenmez.
type TaskFilter struct {
	UserID    string
	Status    TaskStatus
	DueFrom   *time.Time // dahil
	DueBefore *time.Time // hariç
}
