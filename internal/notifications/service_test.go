package notifications

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/swapmeet-backend/pkg/db/dbtest"
	"github.com/angelmondragon/swapmeet-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/swapmeet-backend/pkg/errors"
	"github.com/angelmondragon/swapmeet-backend/pkg/pagination"
)

func newInbox(t *testing.T) (Service, Repository) {
	t.Helper()
	repo := NewRepository(dbtest.Open(t))
	svc, err := NewService(repo)
	require.NoError(t, err)
	return svc, repo
}

// brokenRepo fails every read and write the inbox issues.
type brokenRepo struct {
	Repository
}

var errStorage = errors.New("connection refused")

func (brokenRepo) List(context.Context, listNotificationsParams) ([]models.Notification, *pagination.Cursor, error) {
	return nil, nil, errStorage
}

func (brokenRepo) MarkRead(context.Context, uuid.UUID, uuid.UUID, time.Time) (notificationMarkResult, error) {
	return notificationMarkResult{}, errStorage
}

func (brokenRepo) MarkAllRead(context.Context, uuid.UUID, time.Time) (int64, error) {
	return 0, errStorage
}

func TestInboxPagesWithOpaqueCursor(t *testing.T) {
	svc, repo := newInbox(t)
	ctx := context.Background()
	userID := uuid.New()
	base := time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC)
	older := seedNotification(t, repo, userID, nil, base)
	newer := seedNotification(t, repo, userID, nil, base.Add(time.Second))

	first, err := svc.List(ctx, ListParams{UserID: userID, Limit: 1})
	require.NoError(t, err)
	require.Len(t, first.Items, 1)
	assert.Equal(t, newer.ID, first.Items[0].ID)
	require.NotEmpty(t, first.Cursor)

	second, err := svc.List(ctx, ListParams{UserID: userID, Limit: 1, Cursor: first.Cursor})
	require.NoError(t, err)
	require.Len(t, second.Items, 1)
	assert.Equal(t, older.ID, second.Items[0].ID)
	assert.Empty(t, second.Cursor)
}

func TestInboxEmptyPageIsNotNil(t *testing.T) {
	svc, _ := newInbox(t)

	page, err := svc.List(context.Background(), ListParams{UserID: uuid.New()})
	require.NoError(t, err)
	assert.NotNil(t, page.Items)
	assert.Empty(t, page.Cursor)
}

func TestInboxMarkReadIsOwnerScoped(t *testing.T) {
	svc, repo := newInbox(t)
	ctx := context.Background()
	owner := uuid.New()
	row := seedNotification(t, repo, owner, nil, time.Now().UTC())

	err := svc.MarkRead(ctx, uuid.New(), row.ID)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound), "got %v", err)

	require.NoError(t, svc.MarkRead(ctx, owner, row.ID))
	require.NoError(t, svc.MarkRead(ctx, owner, row.ID), "second read is a no-op")

	unread, err := svc.List(ctx, ListParams{UserID: owner, UnreadOnly: true})
	require.NoError(t, err)
	assert.Empty(t, unread.Items)
}

func TestInboxMarkAllReadCountsOnlyUnread(t *testing.T) {
	svc, repo := newInbox(t)
	ctx := context.Background()
	owner := uuid.New()
	for i := 0; i < 3; i++ {
		seedNotification(t, repo, owner, nil, time.Now().UTC())
	}
	seedNotification(t, repo, uuid.New(), nil, time.Now().UTC())

	n, err := svc.MarkAllRead(ctx, owner)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	n, err = svc.MarkAllRead(ctx, owner)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestInboxRejectsBadInput(t *testing.T) {
	svc, _ := newInbox(t)
	ctx := context.Background()

	_, err := svc.List(ctx, ListParams{})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	_, err = svc.List(ctx, ListParams{UserID: uuid.New(), Cursor: "not-a-cursor"})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	err = svc.MarkRead(ctx, uuid.New(), uuid.Nil)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	_, err = svc.MarkAllRead(ctx, uuid.Nil)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestInboxStorageFailuresAreDependencyErrors(t *testing.T) {
	svc, err := NewService(brokenRepo{})
	require.NoError(t, err)
	ctx := context.Background()

	_, err = svc.List(ctx, ListParams{UserID: uuid.New()})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeDependency))
	assert.ErrorIs(t, err, errStorage)

	err = svc.MarkRead(ctx, uuid.New(), uuid.New())
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeDependency))

	_, err = svc.MarkAllRead(ctx, uuid.New())
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeDependency))
}

func TestNewServiceRequiresRepository(t *testing.T) {
	_, err := NewService(nil)
	assert.Error(t, err)
}
