package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Gopher0727/WhisperWall/internal/models"
	"github.com/Gopher0727/WhisperWall/internal/repositories"
	"github.com/Gopher0727/WhisperWall/internal/storage"
	apperrors "github.com/Gopher0727/WhisperWall/pkg/errors"
	"github.com/Gopher0727/WhisperWall/pkg/mq"
)

// fakePublisher records published events for assertions
type fakePublisher struct {
	mu     sync.Mutex
	events []mq.Event
}

func (f *fakePublisher) Publish(event mq.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *fakePublisher) byType(eventType string) []mq.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []mq.Event
	for _, e := range f.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

// setupTestDB opens a per-test in-memory database with the real schema.
// A single connection keeps sqlite's locking out of the picture so the
// tests exercise the service's transaction logic, not the driver's.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=10000", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, storage.Migrate(db))
	return db
}

func newTestService(t *testing.T, db *gorm.DB) (*MessageService, *fakePublisher) {
	t.Helper()
	pub := &fakePublisher{}
	svc := NewMessageService(
		db,
		repositories.NewMemberRepository(db),
		repositories.NewMessageRepository(db),
		nil, // no cache in most tests
		pub,
		zap.NewNop(),
		MessageServiceOptions{},
	)
	return svc, pub
}

func createMember(t *testing.T, db *gorm.DB, id string) {
	t.Helper()
	require.NoError(t, db.Create(&models.Member{ID: id, Email: id + "@example.com", MessageCounter: 1}).Error)
}

func TestPost_AssignsDenseSequences(t *testing.T) {
	db := setupTestDB(t)
	svc, pub := newTestService(t, db)
	createMember(t, db, "u1")
	ctx := context.Background()

	for want := int64(1); want <= 5; want++ {
		id, err := svc.Post(ctx, "u1", &PostMessageRequest{Content: fmt.Sprintf("msg %d", want)})
		require.NoError(t, err)

		var msg models.Message
		require.NoError(t, db.First(&msg, "id = ?", id).Error)
		assert.Equal(t, want, msg.SequenceNo)
	}

	// counter always equals 1 + number of messages ever created
	var member models.Member
	require.NoError(t, db.First(&member, "id = ?", "u1").Error)
	assert.Equal(t, int64(6), member.MessageCounter)

	assert.Len(t, pub.byType(mq.EventMessagePosted), 5)
}

func TestPost_ConcurrentSequencesAreDense(t *testing.T) {
	db := setupTestDB(t)
	svc, _ := newTestService(t, db)
	createMember(t, db, "u1")

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := range n {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.Post(context.Background(), "u1", &PostMessageRequest{
				Content: fmt.Sprintf("concurrent %d", i),
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	// the resulting sequence set must be exactly {1..n}: no gaps, no dupes
	var seqs []int64
	require.NoError(t, db.Model(&models.Message{}).
		Where("member_id = ?", "u1").
		Order("sequence_no ASC").
		Pluck("sequence_no", &seqs).Error)
	require.Len(t, seqs, n)
	for i, seq := range seqs {
		assert.Equal(t, int64(i+1), seq)
	}

	var member models.Member
	require.NoError(t, db.First(&member, "id = ?", "u1").Error)
	assert.Equal(t, int64(n+1), member.MessageCounter)
}

func TestPost_OwnerNotFound(t *testing.T) {
	db := setupTestDB(t)
	svc, pub := newTestService(t, db)

	_, err := svc.Post(context.Background(), "ghost", &PostMessageRequest{Content: "hello"})
	assert.ErrorIs(t, err, apperrors.ErrOwnerNotFound)

	// the failed transaction must leave nothing behind
	var count int64
	require.NoError(t, db.Model(&models.Message{}).Count(&count).Error)
	assert.Zero(t, count)
	assert.Empty(t, pub.events)
}

func TestPost_ValidatesInput(t *testing.T) {
	db := setupTestDB(t)
	svc, _ := newTestService(t, db)
	createMember(t, db, "u1")
	ctx := context.Background()

	_, err := svc.Post(ctx, "", &PostMessageRequest{Content: "x"})
	assert.Equal(t, apperrors.CodeBadRequest, apperrors.CodeOf(err))

	_, err = svc.Post(ctx, "u1", &PostMessageRequest{Content: ""})
	assert.Equal(t, apperrors.CodeBadRequest, apperrors.CodeOf(err))
}

func TestListWithPage_PaginationTable(t *testing.T) {
	db := setupTestDB(t)
	svc, _ := newTestService(t, db)
	createMember(t, db, "u1")
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		_, err := svc.Post(ctx, "u1", &PostMessageRequest{Content: fmt.Sprintf("msg %d", i)})
		require.NoError(t, err)
	}

	seqsOf := func(dto *MessageListDTO) []int64 {
		var out []int64
		for _, m := range dto.Content {
			out = append(out, m.SequenceNo)
		}
		return out
	}

	// page 1: newest first, seq {5,4}
	page1, err := svc.ListWithPage(ctx, "u1", 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(5), page1.TotalElements)
	assert.Equal(t, int64(3), page1.TotalPages)
	assert.Equal(t, []int64{5, 4}, seqsOf(page1))

	page3, err := svc.ListWithPage(ctx, "u1", 3, 2)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, seqsOf(page3))

	// a page beyond the data is empty, not an error
	page4, err := svc.ListWithPage(ctx, "u1", 4, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(5), page4.TotalElements)
	assert.Equal(t, int64(0), page4.TotalPages)
	assert.Empty(t, page4.Content)
}

func TestListWithPage_EmptyBoard(t *testing.T) {
	db := setupTestDB(t)
	svc, _ := newTestService(t, db)
	createMember(t, db, "u1")

	dto, err := svc.ListWithPage(context.Background(), "u1", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(0), dto.TotalElements)
	assert.Equal(t, int64(0), dto.TotalPages)
	assert.Empty(t, dto.Content)
}

func TestListWithPage_OwnerNotFound(t *testing.T) {
	db := setupTestDB(t)
	svc, _ := newTestService(t, db)

	_, err := svc.ListWithPage(context.Background(), "ghost", 1, 10)
	assert.ErrorIs(t, err, apperrors.ErrOwnerNotFound)
}

func TestPostReply_OnlyOnce(t *testing.T) {
	db := setupTestDB(t)
	svc, pub := newTestService(t, db)
	createMember(t, db, "u1")
	ctx := context.Background()

	id, err := svc.Post(ctx, "u1", &PostMessageRequest{Content: "hello"})
	require.NoError(t, err)

	require.NoError(t, svc.PostReply(ctx, "u1", id, "first reply"))

	var after models.Message
	require.NoError(t, db.First(&after, "id = ?", id).Error)
	require.NotNil(t, after.Reply)
	require.NotNil(t, after.RepliedAt)
	firstRepliedAt := *after.RepliedAt

	// the second reply is rejected and the original stays untouched
	err = svc.PostReply(ctx, "u1", id, "second reply")
	assert.ErrorIs(t, err, apperrors.ErrDuplicateReply)

	require.NoError(t, db.First(&after, "id = ?", id).Error)
	assert.Equal(t, "first reply", *after.Reply)
	assert.True(t, firstRepliedAt.Equal(*after.RepliedAt))

	assert.Len(t, pub.byType(mq.EventReplyPosted), 1)
}

func TestPostReply_ConcurrentWritersOnlyOneWins(t *testing.T) {
	db := setupTestDB(t)
	svc, pub := newTestService(t, db)
	createMember(t, db, "u1")

	id, err := svc.Post(context.Background(), "u1", &PostMessageRequest{Content: "race me"})
	require.NoError(t, err)

	// two owners' sessions answer the same message at once; the
	// conditional update lets exactly one through
	const n = 2
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := range n {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- svc.PostReply(context.Background(), "u1", id, fmt.Sprintf("reply %d", i))
		}(i)
	}
	wg.Wait()
	close(errs)

	var failures int
	for err := range errs {
		if err != nil {
			require.ErrorIs(t, err, apperrors.ErrDuplicateReply)
			failures++
		}
	}
	assert.Equal(t, 1, failures)

	// the stored reply is the winner's and was never overwritten
	var after models.Message
	require.NoError(t, db.First(&after, "id = ?", id).Error)
	require.NotNil(t, after.Reply)
	assert.Contains(t, []string{"reply 0", "reply 1"}, *after.Reply)
	require.NotNil(t, after.RepliedAt)

	assert.Len(t, pub.byType(mq.EventReplyPosted), 1)
}

func TestPostReply_MessageNotFound(t *testing.T) {
	db := setupTestDB(t)
	svc, _ := newTestService(t, db)
	createMember(t, db, "u1")

	err := svc.PostReply(context.Background(), "u1", uuid.NewString(), "hi")
	assert.ErrorIs(t, err, apperrors.ErrMessageNotFound)
}

func TestSetVisibility_MaskingIsReadOnly(t *testing.T) {
	db := setupTestDB(t)
	svc, _ := newTestService(t, db)
	createMember(t, db, "u1")
	ctx := context.Background()

	id, err := svc.Post(ctx, "u1", &PostMessageRequest{Content: "secret text"})
	require.NoError(t, err)

	// deny: every reader sees the placeholder
	_, err = svc.SetVisibility(ctx, "u1", id, true)
	require.NoError(t, err)

	got, err := svc.Get(ctx, "u1", id)
	require.NoError(t, err)
	assert.Equal(t, models.DeniedPlaceholder, got.Content)
	assert.True(t, got.Denied)

	page, err := svc.ListWithPage(ctx, "u1", 1, 10)
	require.NoError(t, err)
	require.Len(t, page.Content, 1)
	assert.Equal(t, models.DeniedPlaceholder, page.Content[0].Content)

	// un-deny: the original text reappears, proving it was never overwritten
	_, err = svc.SetVisibility(ctx, "u1", id, false)
	require.NoError(t, err)

	got, err = svc.Get(ctx, "u1", id)
	require.NoError(t, err)
	assert.Equal(t, "secret text", got.Content)
}

func TestSetVisibility_ReturnsUnmaskedRecord(t *testing.T) {
	db := setupTestDB(t)
	svc, pub := newTestService(t, db)
	createMember(t, db, "u1")
	ctx := context.Background()

	id, err := svc.Post(ctx, "u1", &PostMessageRequest{Content: "raw content"})
	require.NoError(t, err)

	dto, err := svc.SetVisibility(ctx, "u1", id, true)
	require.NoError(t, err)
	assert.Equal(t, "raw content", dto.Content)
	assert.True(t, dto.Denied)

	events := pub.byType(mq.EventVisibilityUpdated)
	require.Len(t, events, 1)
	require.NotNil(t, events[0].Denied)
	assert.True(t, *events[0].Denied)
}

func TestList_NewestCreatedFirstAndMasked(t *testing.T) {
	db := setupTestDB(t)
	svc, _ := newTestService(t, db)
	createMember(t, db, "u1")
	ctx := context.Background()

	var ids []string
	for i := 1; i <= 3; i++ {
		id, err := svc.Post(ctx, "u1", &PostMessageRequest{Content: fmt.Sprintf("msg %d", i)})
		require.NoError(t, err)
		ids = append(ids, id)
	}
	// spread creation times so the ordering assertion is deterministic
	base := time.Now().Add(-time.Hour)
	for i, id := range ids {
		require.NoError(t, db.Model(&models.Message{}).
			Where("id = ?", id).
			Update("created_at", base.Add(time.Duration(i)*time.Minute)).Error)
	}
	_, err := svc.SetVisibility(ctx, "u1", ids[2], true)
	require.NoError(t, err)

	list, err := svc.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, ids[2], list[0].ID) // latest created comes first
	assert.Equal(t, models.DeniedPlaceholder, list[0].Content)
	assert.Equal(t, "msg 2", list[1].Content)
	assert.Equal(t, "msg 1", list[2].Content)
}

func TestGet_ErrorTaxonomy(t *testing.T) {
	db := setupTestDB(t)
	svc, _ := newTestService(t, db)
	createMember(t, db, "u1")
	ctx := context.Background()

	_, err := svc.Get(ctx, "ghost", uuid.NewString())
	assert.Equal(t, apperrors.CodeOwnerNotFound, apperrors.CodeOf(err))

	_, err = svc.Get(ctx, "u1", uuid.NewString())
	assert.Equal(t, apperrors.CodeMessageNotFound, apperrors.CodeOf(err))
}

// TestEndToEnd_FreshBoard walks the whole lifecycle on a brand-new wall.
func TestEndToEnd_FreshBoard(t *testing.T) {
	db := setupTestDB(t)
	svc, _ := newTestService(t, db)
	ctx := context.Background()

	memberSvc := NewMemberService(db, repositories.NewMemberRepository(db))
	created, err := memberSvc.Register(ctx, &RegisterMemberRequest{UID: "u1", Email: "u1@example.com"})
	require.NoError(t, err)
	require.True(t, created)

	id, err := svc.Post(ctx, "u1", &PostMessageRequest{Content: "hello"})
	require.NoError(t, err)

	var msg models.Message
	require.NoError(t, db.First(&msg, "id = ?", id).Error)
	assert.Equal(t, int64(1), msg.SequenceNo)

	var member models.Member
	require.NoError(t, db.First(&member, "id = ?", "u1").Error)
	assert.Equal(t, int64(2), member.MessageCounter)

	page, err := svc.ListWithPage(ctx, "u1", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.TotalElements)
	assert.Equal(t, int64(1), page.TotalPages)
	require.Len(t, page.Content, 1)
	assert.Equal(t, int64(1), page.Content[0].SequenceNo)
	assert.Equal(t, "hello", page.Content[0].Content)

	require.NoError(t, svc.PostReply(ctx, "u1", id, "hi back"))
	assert.ErrorIs(t, svc.PostReply(ctx, "u1", id, "again"), apperrors.ErrDuplicateReply)
}
