package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/akinalp/tms/models"
	"github.com/akinalp/tms/pkg"
	"github.com/akinalp/tms/pkg/validator"
	"github.com/akinalp/tms/repository"
	"github.com/akinalp/tms/ws"
)

// searchDateLayout, arama parametresindeki dueDate biçimi (dd-mm-yyyy).
const searchDateLayout = "02-01-2006"

// TaskService, görev işlemleri. Kullanıcı sadece kendi görevlerini görür
// ve değiştirir; ListAll Admin ekranı içindir (yetki kontrolü middleware'de).
type TaskService interface {
	Create(ctx context.Context, userID string, req *models.CreateTaskRequest) (*models.Task, error)
	ListOwn(ctx context.Context, userID string) ([]models.Task, error)
	ListAll(ctx context.Context) ([]models.TaskWithOwner, error)
	Search(ctx context.Context, userID, status, dueDate string) ([]models.Task, error)
	Update(ctx context.Context, userID, id string, req *models.UpdateTaskRequest) (*models.Task, error)
	Delete(ctx context.Context, userID, id string) error
}

type taskService struct {
	taskRepo repository.TaskRepository
	userRepo repository.UserRepository
	hub      ws.EventPublisher
	validate *validator.Validator
}

// NewTaskService, constructor.
func NewTaskService(
	taskRepo repository.TaskRepository,
	userRepo repository.UserRepository,
	hub ws.EventPublisher,
	validate *validator.Validator,
) TaskService {
	return &taskService{
		taskRepo: taskRepo,
		userRepo: userRepo,
		hub:      hub,
		validate: validate,
	}
}

func (s *taskService) Create(ctx context.Context, userID string, req *models.CreateTaskRequest) (*models.Task, error) {
	req.Normalize()
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	due, err := parseDueDate(req.DueDate)
	if err != nil {
		return nil, err
	}

	status := req.Status
	if status == "" {
		status = models.TaskStatusPending
	}

	task := &models.Task{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     due,
		Status:      status,
		UserID:      userID,
	}
	if err := s.taskRepo.Create(ctx, task); err != nil {
		return nil, err
	}

	s.hub.BroadcastToUser(userID, ws.Event{Op: ws.OpTaskCreate, Data: task})
	return task, nil
}

func (s *taskService) ListOwn(ctx context.Context, userID string) ([]models.Task, error) {
	return s.taskRepo.List(ctx, models.TaskFilter{UserID: userID})
}

// ListAll, tüm görevleri sahiplerinin ad ve email'i ile döner.
// Sahipler tek sorguda çekilir (N+1 yok).
func (s *taskService) ListAll(ctx context.Context) ([]models.TaskWithOwner, error) {
	tasks, err := s.taskRepo.List(ctx, models.TaskFilter{})
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	ids := make([]string, 0)
	for _, t := range tasks {
		if !seen[t.UserID] {
			seen[t.UserID] = true
			ids = append(ids, t.UserID)
		}
	}

	owners, err := s.userRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	result := make([]models.TaskWithOwner, len(tasks))
	for i, t := range tasks {
		result[i] = models.TaskWithOwner{Task: t}
		if u, ok := owners[t.UserID]; ok {
			result[i].User = &models.TaskOwner{Name: u.Name, Email: u.Email}
		}
	}
	return result, nil
}

// Search, kullanıcının görevlerini status ve/veya gün bazında filtreler.
// dueDate dd-mm-yyyy biçimindedir ve UTC günü olarak yorumlanır.
func (s *taskService) Search(ctx context.Context, userID, status, dueDate string) ([]models.Task, error) {
	filter := models.TaskFilter{UserID: userID}

	if status = strings.TrimSpace(status); status != "" {
		st := models.TaskStatus(status)
		if !st.IsValid() {
			return nil, fmt.Errorf("%w: status must be one of [Pending, In Progress, Completed]", pkg.ErrBadRequest)
		}
		filter.Status = st
	}

	if dueDate = strings.TrimSpace(dueDate); dueDate != "" {
		day, err := time.Parse(searchDateLayout, dueDate)
		if err != nil {
			return nil, fmt.Errorf("%w: dueDate must be in dd-mm-yyyy format", pkg.ErrBadRequest)
		}
		next := day.AddDate(0, 0, 1)
		filter.DueFrom = &day
		filter.DueBefore = &next
	}

	return s.taskRepo.List(ctx, filter)
}

func (s *taskService) Update(ctx context.Context, userID, id string, req *models.UpdateTaskRequest) (*models.Task, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	upd := models.TaskUpdate{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
	}
	if req.DueDate != nil {
		due, err := parseDueDate(*req.DueDate)
		if err != nil {
			return nil, err
		}
		upd.DueDate = &due
	}

	task, err := s.taskRepo.Update(ctx, id, userID, upd)
	if err != nil {
		return nil, err
	}

	s.hub.BroadcastToUser(userID, ws.Event{Op: ws.OpTaskUpdate, Data: task})
	return task, nil
}

func (s *taskService) Delete(ctx context.Context, userID, id string) error {
	if err := s.taskRepo.Delete(ctx, id, userID); err != nil {
		return err
	}

	s.hub.BroadcastToUser(userID, ws.Event{Op: ws.OpTaskDelete, Data: ws.TaskDeleteData{ID: id, UserID: userID}})
	return nil
}

// parseDueDate, "2006-01-02" veya RFC3339 kabul eder.
func parseDueDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("%w: dueDate must be a date (YYYY-MM-DD) or RFC3339 timestamp", pkg.ErrBadRequest)
}
