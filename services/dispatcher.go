package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// JobStatus beschreibt den Lebenszyklus eines Recherche-Jobs.
type JobStatus string

const (
	JobQueued   JobStatus = "queued"
	JobRunning  JobStatus = "running"
	JobFinished JobStatus = "finished"
	JobFailed   JobStatus = "failed"
)

// ErrQueueFull signalisiert, dass die Job-Queue keinen Platz mehr hat.
var ErrQueueFull = errors.New("job queue full")

// Job ist das In-Memory-Handle eines Recherche-Laufs.
type Job struct {
	ID         string          `json:"id"`
	PersonID   uint            `json:"person_id"`
	Status     JobStatus       `json:"status"`
	Error      string          `json:"error,omitempty"`
	Result     *ResearchResult `json:"result,omitempty"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
	FinishedAt *time.Time      `json:"finished_at,omitempty"`
}

// Dispatcher nimmt Recherche-Jobs an und verteilt sie auf einen festen
// Worker-Pool. Job-Zustand lebt nur im Speicher und wird nach Ablauf der
// Retention-Frist weggeräumt.
type Dispatcher struct {
	Research *ResearchService
	Logger   *zap.Logger

	// OnFinish wird nach jedem Terminal-Zustand mit einer Kopie des
	// Job-Handles aufgerufen, z.B. für Metriken. Darf nil sein.
	OnFinish func(job Job)

	timeout   time.Duration
	retention time.Duration

	mu    sync.RWMutex
	jobs  map[string]*Job
	queue chan *Job
	wg    sync.WaitGroup
	stop  chan struct{}
}

// NewDispatcher erstellt den Dispatcher und startet seine Worker.
func NewDispatcher(research *ResearchService, workers int, timeout, retention time.Duration, logger *zap.Logger) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	d := &Dispatcher{
		Research:  research,
		Logger:    logger,
		timeout:   timeout,
		retention: retention,
		jobs:      make(map[string]*Job),
		queue:     make(chan *Job, workers*8),
		stop:      make(chan struct{}),
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}
	return d
}

// Submit legt einen neuen Job für die Person in die Queue und gibt sein
// Handle zurück.
func (d *Dispatcher) Submit(personID uint) (*Job, error) {
	job := &Job{
		ID:         uuid.NewString(),
		PersonID:   personID,
		Status:     JobQueued,
		EnqueuedAt: time.Now(),
	}

	d.mu.Lock()
	d.jobs[job.ID] = job
	d.mu.Unlock()

	select {
	case d.queue <- job:
		d.Logger.Info("Job eingereiht", zap.String("job_id", job.ID), zap.Uint("person_id", personID))
		return job, nil
	default:
		d.mu.Lock()
		delete(d.jobs, job.ID)
		d.mu.Unlock()
		return nil, ErrQueueFull
	}
}

// Get gibt das Job-Handle zur ID zurück, oder nil wenn unbekannt bzw.
// bereits weggeräumt.
func (d *Dispatcher) Get(id string) *Job {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if job, ok := d.jobs[id]; ok {
		copied := *job
		return &copied
	}
	return nil
}

// Count gibt die Zahl der aktuell gehaltenen Job-Handles zurück.
func (d *Dispatcher) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.jobs)
}

// PurgeExpired räumt abgeschlossene Jobs weg, deren Retention-Frist
// abgelaufen ist. Gibt die Zahl der entfernten Handles zurück.
func (d *Dispatcher) PurgeExpired() int {
	cutoff := time.Now().Add(-d.retention)
	d.mu.Lock()
	defer d.mu.Unlock()

	removed := 0
	for id, job := range d.jobs {
		if job.FinishedAt != nil && job.FinishedAt.Before(cutoff) {
			delete(d.jobs, id)
			removed++
		}
	}
	if removed > 0 {
		d.Logger.Info("Abgelaufene Jobs entfernt", zap.Int("count", removed))
	}
	return removed
}

// Stop hält die Worker an und wartet, bis sie fertig sind. Bereits laufende
// Jobs werden zu Ende geführt; noch nicht gestartete Jobs aus der Queue
// werden als failed markiert, damit kein Handle dauerhaft auf queued steht.
func (d *Dispatcher) Stop() {
	close(d.stop)
	d.wg.Wait()
	for {
		select {
		case job := <-d.queue:
			d.Logger.Warn("Job beim Shutdown verworfen", zap.String("job_id", job.ID))
			d.setStatus(job.ID, JobFailed, "dispatcher stopped before job started", nil)
		default:
			return
		}
	}
}

func (d *Dispatcher) worker(id int) {
	defer d.wg.Done()
	log := d.Logger.With(zap.Int("worker", id))
	for {
		select {
		case <-d.stop:
			return
		case job := <-d.queue:
			d.run(log, job)
		}
	}
}

// run führt einen Job mit Timeout-Überwachung aus. Läuft der Timeout ab,
// wird der Job als failed markiert; der laufende Recherche-Schritt wird
// dabei nicht unterbrochen.
func (d *Dispatcher) run(log *zap.Logger, job *Job) {
	d.setStatus(job.ID, JobRunning, "", nil)
	log.Info("Job gestartet", zap.String("job_id", job.ID), zap.Uint("person_id", job.PersonID))

	type outcome struct {
		result *ResearchResult
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		result, err := d.Research.Research(context.Background(), job.ID, job.PersonID)
		done <- outcome{result: result, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			log.Error("Job fehlgeschlagen", zap.String("job_id", job.ID), zap.Error(out.err))
			d.setStatus(job.ID, JobFailed, out.err.Error(), nil)
		} else {
			log.Info("Job abgeschlossen", zap.String("job_id", job.ID))
			d.setStatus(job.ID, JobFinished, "", out.result)
		}
	case <-time.After(d.timeout):
		log.Error("Job-Timeout erreicht", zap.String("job_id", job.ID), zap.Duration("timeout", d.timeout))
		d.setStatus(job.ID, JobFailed, fmt.Sprintf("job timed out after %s", d.timeout), nil)
	}

	if d.OnFinish != nil {
		if finished := d.Get(job.ID); finished != nil {
			d.OnFinish(*finished)
		}
	}
}

func (d *Dispatcher) setStatus(id string, status JobStatus, errMsg string, result *ResearchResult) {
	d.mu.Lock()
	defer d.mu.Unlock()
	job, ok := d.jobs[id]
	if !ok {
		return
	}
	// Ein bereits per Timeout fehlgeschlagener Job wird nicht mehr
	// überschrieben, auch wenn der Lauf danach noch fertig wird.
	if job.Status == JobFailed || job.Status == JobFinished {
		return
	}
	job.Status = status
	job.Error = errMsg
	job.Result = result
	if status == JobFinished || status == JobFailed {
		now := time.Now()
		job.FinishedAt = &now
	}
}
