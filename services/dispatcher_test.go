package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// waitForTerminal pollt den Job-Status, bis er terminal ist oder die
// Deadline abläuft.
func waitForTerminal(t *testing.T, d *Dispatcher, jobID string, deadline time.Duration) *Job {
	t.Helper()
	timeout := time.After(deadline)
	for {
		select {
		case <-timeout:
			t.Fatalf("job %s did not reach a terminal state within %s", jobID, deadline)
			return nil
		case <-time.After(10 * time.Millisecond):
			job := d.Get(jobID)
			require.NotNil(t, job)
			if job.Status == JobFinished || job.Status == JobFailed {
				return job
			}
		}
	}
}

func TestDispatcherRunsJobToCompletion(t *testing.T) {
	svc, broker := newTestResearchService(t, "pricing_model,team_size")
	person := seedPerson(t, svc.DB, "Acme Corp")

	d := NewDispatcher(svc, 2, 10*time.Second, time.Hour, zap.NewNop())
	defer d.Stop()

	finishedCh := make(chan Job, 1)
	d.OnFinish = func(job Job) { finishedCh <- job }

	job, err := d.Submit(person.ID)
	require.NoError(t, err)
	assert.Equal(t, JobQueued, job.Status)

	done := waitForTerminal(t, d, job.ID, 5*time.Second)
	assert.Equal(t, JobFinished, done.Status)
	require.NotNil(t, done.Result)
	assert.Equal(t, "Acme Corp", done.Result.CompanyName)
	assert.Equal(t, 2, done.Result.QueriesIssued)
	require.NotNil(t, done.FinishedAt)

	select {
	case finished := <-finishedCh:
		assert.Equal(t, JobFinished, finished.Status)
	case <-time.After(time.Second):
		t.Fatal("OnFinish callback was not invoked")
	}

	drainEvents(broker)
}

func TestDispatcherTimeoutMarksJobFailed(t *testing.T) {
	svc, broker := newTestResearchService(t, "pricing_model,team_size")
	// Die Pause zwischen den Feldern macht den Lauf langsamer als den Timeout.
	svc.fieldDelay = 300 * time.Millisecond
	person := seedPerson(t, svc.DB, "Acme Corp")

	d := NewDispatcher(svc, 1, 50*time.Millisecond, time.Hour, zap.NewNop())
	defer d.Stop()

	job, err := d.Submit(person.ID)
	require.NoError(t, err)

	done := waitForTerminal(t, d, job.ID, 5*time.Second)
	assert.Equal(t, JobFailed, done.Status)
	assert.Contains(t, done.Error, "timed out")

	// Der laufende Schritt wird nicht unterbrochen; auch nachdem er fertig
	// ist, bleibt der Job als fehlgeschlagen markiert.
	time.Sleep(600 * time.Millisecond)
	still := d.Get(job.ID)
	require.NotNil(t, still)
	assert.Equal(t, JobFailed, still.Status)

	drainEvents(broker)
}

func TestDispatcherStopLeavesNoJobQueued(t *testing.T) {
	svc, broker := newTestResearchService(t, "pricing_model,team_size")
	svc.fieldDelay = 200 * time.Millisecond
	person := seedPerson(t, svc.DB, "Acme Corp")

	d := NewDispatcher(svc, 1, 10*time.Second, time.Hour, zap.NewNop())

	first, err := d.Submit(person.ID)
	require.NoError(t, err)
	// Kurz warten, bis der einzige Worker den ersten Job gezogen hat.
	time.Sleep(50 * time.Millisecond)

	submitted := []*Job{first}
	for i := 0; i < 3; i++ {
		job, err := d.Submit(person.ID)
		require.NoError(t, err)
		submitted = append(submitted, job)
	}

	d.Stop()

	// Nach dem Shutdown steht kein Handle mehr auf queued oder running:
	// nicht gestartete Jobs sind failed, der Rest regulär abgeschlossen.
	for _, s := range submitted {
		job := d.Get(s.ID)
		require.NotNil(t, job)
		assert.Contains(t, []JobStatus{JobFinished, JobFailed}, job.Status)
		require.NotNil(t, job.FinishedAt)
	}

	drainEvents(broker)
}

func TestDispatcherGetUnknownJob(t *testing.T) {
	svc, _ := newTestResearchService(t, "pricing_model")
	d := NewDispatcher(svc, 1, time.Second, time.Hour, zap.NewNop())
	defer d.Stop()

	assert.Nil(t, d.Get("does-not-exist"))
}

func TestDispatcherPurgeExpired(t *testing.T) {
	svc, broker := newTestResearchService(t, "pricing_model")
	person := seedPerson(t, svc.DB, "Acme Corp")

	d := NewDispatcher(svc, 1, 10*time.Second, 0, zap.NewNop())
	defer d.Stop()

	job, err := d.Submit(person.ID)
	require.NoError(t, err)
	waitForTerminal(t, d, job.ID, 5*time.Second)

	// Retention 0: jeder abgeschlossene Job ist sofort abgelaufen.
	time.Sleep(10 * time.Millisecond)
	removed := d.PurgeExpired()
	assert.Equal(t, 1, removed)
	assert.Nil(t, d.Get(job.ID))
	assert.Zero(t, d.Count())

	drainEvents(broker)
}
