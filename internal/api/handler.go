package api

import (
	"log/slog"

	"github.com/shaiso/Conveyor/internal/mq"
	"github.com/shaiso/Conveyor/internal/repo"
)

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	pipelineRepo *repo.PipelineRepo
	runRepo      *repo.RunRepo
	jobRepo      *repo.JobRepo
	scheduleRepo *repo.ScheduleRepo
	releaseRepo  *repo.ReleaseRepo
	publisher    *mq.Publisher
	logger       *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	PipelineRepo *repo.PipelineRepo
	RunRepo      *repo.RunRepo
	JobRepo      *repo.JobRepo
	ScheduleRepo *repo.ScheduleRepo
	ReleaseRepo  *repo.ReleaseRepo
	Publisher    *mq.Publisher
	Logger       *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	return &Handler{
		pipelineRepo: cfg.PipelineRepo,
		runRepo:      cfg.RunRepo,
		jobRepo:      cfg.JobRepo,
		scheduleRepo: cfg.ScheduleRepo,
		releaseRepo:  cfg.ReleaseRepo,
		publisher:    cfg.Publisher,
		logger:       cfg.Logger,
	}
}
