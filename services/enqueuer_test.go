package services

import (
	"context"
	"testing"

	"github.com/saicare2025/dinarexchangenz-sub001/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestEnqueuer(jobs *fakeJobRepo, orders *fakeOrderRepo) *Enqueuer {
	return NewEnqueuer(jobs, orders, zap.NewNop())
}

func TestEnqueueCreatesJobPerChannel(t *testing.T) {
	jobs := newFakeJobRepo()
	orders := newFakeOrderRepo(seedOrder("ORD-1"))

	ids, err := newTestEnqueuer(jobs, orders).
		Enqueue(context.Background(), "ORD-1", models.TypeOrderReceived, EnqueueOptions{})
	require.NoError(t, err)
	require.Len(t, ids, 2)

	pending := jobs.byStatus(models.StatusPending)
	require.Len(t, pending, 2)
	channels := map[string]string{}
	for _, job := range pending {
		channels[job.Channel] = job.Destination
		assert.Equal(t, 0, job.Attempts)
	}
	assert.Equal(t, "tom@example.com", channels[models.ChannelEmail])
	assert.Equal(t, "0211234567", channels[models.ChannelSMS])
}

func TestEnqueueSkipsChannelsWithoutContact(t *testing.T) {
	order := seedOrder("ORD-1")
	order.Mobile = ""
	jobs := newFakeJobRepo()
	orders := newFakeOrderRepo(order)

	ids, err := newTestEnqueuer(jobs, orders).
		Enqueue(context.Background(), "ORD-1", models.TypeOrderReceived, EnqueueOptions{})
	require.NoError(t, err)
	require.Len(t, ids, 1)
	assert.Equal(t, models.ChannelEmail, jobs.byStatus(models.StatusPending)[0].Channel)
}

func TestEnqueueDeduplicatesActiveJobs(t *testing.T) {
	jobs := newFakeJobRepo()
	orders := newFakeOrderRepo(seedOrder("ORD-1"))
	enq := newTestEnqueuer(jobs, orders)

	_, err := enq.Enqueue(context.Background(), "ORD-1", models.TypeOrderReceived, EnqueueOptions{})
	require.NoError(t, err)

	// Same event again before the first jobs are processed: no new rows.
	ids, err := enq.Enqueue(context.Background(), "ORD-1", models.TypeOrderReceived, EnqueueOptions{})
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.Len(t, jobs.byStatus(models.StatusPending), 2)

	// A different event is not a duplicate.
	ids, err = enq.Enqueue(context.Background(), "ORD-1", models.TypeTrackingAdded, EnqueueOptions{})
	require.NoError(t, err)
	assert.Len(t, ids, 2)
}

func TestEnqueueRejectsUnknownEventType(t *testing.T) {
	jobs := newFakeJobRepo()
	orders := newFakeOrderRepo(seedOrder("ORD-1"))

	_, err := newTestEnqueuer(jobs, orders).
		Enqueue(context.Background(), "ORD-1", "order_teleported", EnqueueOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported event type")
	assert.Empty(t, jobs.byStatus(models.StatusPending))
}

func TestEnqueueRejectsMissingOrder(t *testing.T) {
	jobs := newFakeJobRepo()
	orders := newFakeOrderRepo()

	_, err := newTestEnqueuer(jobs, orders).
		Enqueue(context.Background(), "ORD-GONE", models.TypeOrderReceived, EnqueueOptions{})
	require.Error(t, err)
	assert.Empty(t, jobs.byStatus(models.StatusPending))
}

func TestEnqueueCapturesOverrides(t *testing.T) {
	jobs := newFakeJobRepo()
	orders := newFakeOrderRepo(seedOrder("ORD-1"))

	ids, err := newTestEnqueuer(jobs, orders).
		Enqueue(context.Background(), "ORD-1", models.TypeCustom, EnqueueOptions{
			Channels:    []string{models.ChannelEmail},
			Destination: "accounts@example.com",
			Subject:     "Your invoice",
			Body:        "<p>Attached.</p>",
		})
	require.NoError(t, err)
	require.Len(t, ids, 1)

	job, err := jobs.GetJobByID(context.Background(), ids[0])
	require.NoError(t, err)
	assert.Equal(t, "accounts@example.com", job.Destination)
	assert.Equal(t, "Your invoice", job.Subject)
	assert.Equal(t, "<p>Attached.</p>", job.Body)
}
