package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Job - одна периодическая задача
type Job struct {
	// Имя для логов
	Name string
	// Интервал между запусками
	Interval time.Duration
	// Запустить ли задачу сразу при старте, не дожидаясь первого тика
	RunAtStart bool
	// Сама задача; получает контекст планировщика
	Fn func(ctx context.Context)
}

// Scheduler - владелец таймеров для плановых задач ядра
//
// Ядро собственных таймеров не держит: оно только предоставляет
// sweep-методы, а расписание целиком принадлежит вызывающему коду.
// Каждая задача работает в своей горутине; перекрытие запусков одной
// задачи исключено, так как следующий тик ждёт завершения предыдущего
// вызова.
type Scheduler struct {
	jobs []Job
	wg   sync.WaitGroup
	log  *zap.Logger

	cancel context.CancelFunc
	once   sync.Once
}

// New создаёт пустой планировщик
func New(log *zap.Logger) *Scheduler {
	return &Scheduler{log: log.Named("scheduler")}
}

// Add регистрирует задачу; вызывать до Start
func (s *Scheduler) Add(job Job) {
	s.jobs = append(s.jobs, job)
}

// Start запускает все задачи и возвращается немедленно
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	for _, job := range s.jobs {
		s.wg.Add(1)
		go s.run(ctx, job)
	}
	s.log.Info("scheduler started", zap.Int("jobs", len(s.jobs)))
}

func (s *Scheduler) run(ctx context.Context, job Job) {
	defer s.wg.Done()

	if job.RunAtStart {
		s.invoke(ctx, job)
	}

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.invoke(ctx, job)
		}
	}
}

func (s *Scheduler) invoke(ctx context.Context, job Job) {
	defer func() {
		if r := recover(); r != nil {
			// паника в одной задаче не должна ронять процесс
			s.log.Error("job panicked",
				zap.String("job", job.Name),
				zap.Any("panic", r))
		}
	}()

	start := time.Now()
	job.Fn(ctx)
	s.log.Debug("job finished",
		zap.String("job", job.Name),
		zap.Duration("took", time.Since(start)))
}

// Stop останавливает задачи и ждёт завершения текущих запусков
func (s *Scheduler) Stop() {
	s.once.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
		s.wg.Wait()
		s.log.Info("scheduler stopped")
	})
}
