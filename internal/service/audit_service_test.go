package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"admin-service/internal/models"
)

type capturingPublisher struct {
	mu       sync.Mutex
	payloads [][]byte
	done     chan struct{}
}

func (p *capturingPublisher) Publish(ctx context.Context, key string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.payloads = append(p.payloads, payload)
	close(p.done)
	return nil
}

func TestRecordWritesEntryAndFansOut(t *testing.T) {
	repo := &fakeAuditRepo{}
	publisher := &capturingPublisher{done: make(chan struct{})}
	svc := NewAuditService(repo, publisher)

	svc.Record(context.Background(), "root@launchkart.com", models.AuditActionPromote,
		models.AuditResourceAdminUser, "adm-1", models.AuditOutcomeSuccess, "promoted jordan")

	entries := repo.byAction(models.AuditActionPromote)
	require.Len(t, entries, 1)
	entry := entries[0]
	assert.NotEmpty(t, entry.ID)
	assert.Equal(t, "root@launchkart.com", entry.ActorEmail)
	assert.Equal(t, "adm-1", entry.ResourceID)
	assert.WithinDuration(t, time.Now().UTC(), entry.Timestamp, time.Minute)

	select {
	case <-publisher.done:
	case <-time.After(2 * time.Second):
		t.Fatal("security event was not published")
	}

	publisher.mu.Lock()
	defer publisher.mu.Unlock()
	require.Len(t, publisher.payloads, 1)
	assert.Contains(t, string(publisher.payloads[0]), "promoted jordan")
}

func TestRecordWithoutPublisher(t *testing.T) {
	repo := &fakeAuditRepo{}
	svc := NewAuditService(repo, nil)

	// Must not panic when Kafka is absent.
	svc.Record(context.Background(), "root@launchkart.com", models.AuditActionLogin,
		models.AuditResourceSession, "adm-1", models.AuditOutcomeSuccess, "otp login")

	require.Len(t, repo.byAction(models.AuditActionLogin), 1)
}

func TestQueryFilters(t *testing.T) {
	repo := &fakeAuditRepo{}
	svc := NewAuditService(repo, nil)
	ctx := context.Background()

	svc.Record(ctx, "a@launchkart.com", models.AuditActionLogin,
		models.AuditResourceSession, "adm-1", models.AuditOutcomeSuccess, "")
	svc.Record(ctx, "b@launchkart.com", models.AuditActionDemote,
		models.AuditResourceAdminUser, "adm-2", models.AuditOutcomeSuccess, "")

	entries, err := svc.Query(ctx, models.AuditQuery{ActorEmail: "a@launchkart.com"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.AuditActionLogin, entries[0].Action)

	entries, err = svc.Query(ctx, models.AuditQuery{Action: models.AuditActionDemote})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "b@launchkart.com", entries[0].ActorEmail)
}
