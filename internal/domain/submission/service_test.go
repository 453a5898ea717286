package submission

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ecobin/ecobin-api/internal/domain/audit"
	"github.com/ecobin/ecobin-api/internal/domain/fraud"
	"github.com/ecobin/ecobin-api/internal/pkg/geo"
)

var testConfig = Config{
	BaseReward:          100,
	QualityBonusMax:     50,
	AutoVerifyThreshold: 0.9,
	AutoRejectThreshold: 0.05,
}

func newTestService(store *memStore, loc LocationChecker) *Service {
	svc := NewService(store, loc, nil, nil, testConfig)
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}

func ptr(f float64) *float64 { return &f }

func seed(store *memStore, status Status, autoScore *float64) *Submission {
	s := &Submission{
		ID:         uuid.New(),
		UserID:     uuid.New(),
		Latitude:   10,
		Longitude:  76,
		StorageKey: "videos/a.mp4",
		AutoScore:  autoScore,
		Status:     status,
	}
	store.put(s)
	return s
}

func createReq() *CreateRequest {
	return &CreateRequest{
		Latitude:   10.0003,
		Longitude:  76,
		RecordedAt: time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC),
		StorageKey: " videos/a.mp4 ",
	}
}

func eventTypes(t *testing.T, svc *Service, id uuid.UUID) []audit.EventType {
	t.Helper()
	events, err := svc.Events(context.Background(), id)
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	out := make([]audit.EventType, len(events))
	for i, e := range events {
		out[i] = e.EventType
	}
	return out
}

func TestCreateAutoVerifiesHighScore(t *testing.T) {
	store := newMemStore()
	pub := &recordingPublisher{}
	svc := NewService(store, verdict(0.95), nil, pub, testConfig)
	user := uuid.New()

	sub, err := svc.Create(context.Background(), user, createReq())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if sub.Status != StatusAutoVerified {
		t.Fatalf("expected AUTO_VERIFIED, got %s", sub.Status)
	}
	if sub.StorageKey != "videos/a.mp4" {
		t.Fatalf("expected trimmed key, got %q", sub.StorageKey)
	}
	if sub.BinID == nil || sub.LocationScore == nil || *sub.LocationScore != 0.95 {
		t.Fatalf("expected bin and score recorded, got %+v", sub)
	}
	if got := store.points(user); got != 100 {
		t.Fatalf("expected base reward 100, got %d", got)
	}

	types := eventTypes(t, svc, sub.ID)
	if len(types) != 2 || types[0] != audit.EventCreated || types[1] != audit.EventAutoVerified {
		t.Fatalf("unexpected events %v", types)
	}
	if len(pub.events) != 2 || len(pub.wallets) != 1 || pub.wallets[0].PointsBalance != 100 {
		t.Fatalf("unexpected published %+v %+v", pub.events, pub.wallets)
	}
}

func TestCreateQueuesMidScoreForReview(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, verdict(0.4))
	user := uuid.New()

	sub, err := svc.Create(context.Background(), user, createReq())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if sub.Status != StatusNeedsReview {
		t.Fatalf("expected NEEDS_REVIEW, got %s", sub.Status)
	}
	if store.points(user) != 0 || store.ledgerLen() != 0 {
		t.Fatal("expected no reward before review")
	}
}

func TestCreateAutoRejectsLowScore(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, verdict(0.01))

	sub, err := svc.Create(context.Background(), uuid.New(), createReq())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if sub.Status != StatusRejected || sub.RejectionReason == nil || *sub.RejectionReason == "" {
		t.Fatalf("expected rejection with reason, got %+v", sub)
	}
}

func TestCreateOutsideRadiusNeverAutoVerifies(t *testing.T) {
	store := newMemStore()
	cfg := testConfig
	cfg.AutoVerifyThreshold = 0.3
	svc := NewService(store, verdict(0.5), nil, nil, cfg)
	user := uuid.New()

	sub, err := svc.Create(context.Background(), user, createReq())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if sub.Status != StatusNeedsReview {
		t.Fatalf("expected NEEDS_REVIEW for out-of-radius location, got %s", sub.Status)
	}
	if store.points(user) != 0 {
		t.Fatal("expected no reward for out-of-radius location")
	}
}

func TestCreateAutoRejectDisabledAtZero(t *testing.T) {
	store := newMemStore()
	cfg := testConfig
	cfg.AutoRejectThreshold = 0
	svc := NewService(store, verdict(0), nil, nil, cfg)

	sub, err := svc.Create(context.Background(), uuid.New(), createReq())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if sub.Status != StatusNeedsReview {
		t.Fatalf("expected NEEDS_REVIEW, got %s", sub.Status)
	}
}

func TestCreateRejectsBadInput(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, verdict(0.95))

	req := createReq()
	req.Latitude = 91
	if _, err := svc.Create(context.Background(), uuid.New(), req); !errors.Is(err, geo.ErrInvalidCoordinates) {
		t.Fatalf("expected ErrInvalidCoordinates, got %v", err)
	}

	req = createReq()
	req.AutoScore = ptr(1.5)
	if _, err := svc.Create(context.Background(), uuid.New(), req); !errors.Is(err, ErrInvalidAutoScore) {
		t.Fatalf("expected ErrInvalidAutoScore, got %v", err)
	}

	if total := len(store.state.subs); total != 0 {
		t.Fatalf("expected nothing stored, got %d", total)
	}
}

func TestCreateRequiresStoredVideo(t *testing.T) {
	store := newMemStore()
	cfg := testConfig
	cfg.RequireStoredObject = true
	svc := NewService(store, verdict(0.95), stubObjects{exists: false}, nil, cfg)

	if _, err := svc.Create(context.Background(), uuid.New(), createReq()); !errors.Is(err, ErrVideoNotFound) {
		t.Fatalf("expected ErrVideoNotFound, got %v", err)
	}

	lenient := NewService(store, verdict(0.95), stubObjects{exists: false}, nil, testConfig)
	if _, err := lenient.Create(context.Background(), uuid.New(), createReq()); err != nil {
		t.Fatalf("expected lenient create to pass, got %v", err)
	}
}

func TestApproveTwiceCreditsOnce(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, verdict(0.5))
	sub := seed(store, StatusNeedsReview, ptr(0.73))
	moderator := uuid.New()

	res, err := svc.Approve(context.Background(), sub.ID, moderator, &ApproveRequest{Reason: "clear footage"})
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if res.PointsAwarded != 136 || res.PriorStatus != StatusNeedsReview {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.Submission.RejectionReason != nil {
		t.Fatal("expected rejection reason cleared")
	}

	if _, err := svc.Approve(context.Background(), sub.ID, moderator, &ApproveRequest{}); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if got := store.points(sub.UserID); got != 136 {
		t.Fatalf("expected 136 points once, got %d", got)
	}
	if store.ledgerLen() != 1 {
		t.Fatalf("expected one ledger row, got %d", store.ledgerLen())
	}
}

func TestApproveWithoutAutoScoreEarnsBase(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, verdict(0.5))
	sub := seed(store, StatusQueued, nil)

	res, err := svc.Approve(context.Background(), sub.ID, uuid.New(), &ApproveRequest{})
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if res.PointsAwarded != 100 {
		t.Fatalf("expected 100, got %d", res.PointsAwarded)
	}
}

func TestApproveFromIllegalStates(t *testing.T) {
	for _, st := range []Status{StatusAutoVerified, StatusRejected, StatusApproved} {
		store := newMemStore()
		svc := newTestService(store, verdict(0.5))
		sub := seed(store, st, nil)

		if _, err := svc.Approve(context.Background(), sub.ID, uuid.New(), &ApproveRequest{}); !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("%s: expected ErrInvalidTransition, got %v", st, err)
		}
		if store.points(sub.UserID) != 0 {
			t.Fatalf("%s: wallet changed", st)
		}
	}
}

func TestApproveNotFound(t *testing.T) {
	svc := newTestService(newMemStore(), verdict(0.5))
	if _, err := svc.Approve(context.Background(), uuid.New(), uuid.New(), &ApproveRequest{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestApproveWithFlags(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, verdict(0.5))
	sub := seed(store, StatusNeedsReview, nil)

	res, err := svc.Approve(context.Background(), sub.ID, uuid.New(), &ApproveRequest{
		Flags: []FlagInput{{Reason: "same video as yesterday"}, {Reason: "GPS jump"}},
	})
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if len(res.FlagIDs) != 2 || store.flagCount() != 2 {
		t.Fatalf("expected 2 flags, got %v / %d", res.FlagIDs, store.flagCount())
	}
	types := eventTypes(t, svc, sub.ID)
	if len(types) != 2 || types[0] != audit.EventApproved || types[1] != audit.EventFlagged {
		t.Fatalf("unexpected events %v", types)
	}
}

func TestApproveBlankFlagReason(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, verdict(0.5))
	sub := seed(store, StatusNeedsReview, nil)

	_, err := svc.Approve(context.Background(), sub.ID, uuid.New(), &ApproveRequest{Flags: []FlagInput{{Reason: "  "}}})
	if !errors.Is(err, fraud.ErrReasonRequired) {
		t.Fatalf("expected fraud.ErrReasonRequired, got %v", err)
	}
	if got, _ := store.GetByID(context.Background(), sub.ID); got.Status != StatusNeedsReview {
		t.Fatalf("expected status unchanged, got %s", got.Status)
	}
}

func TestApproveRollsBackOnEventFailure(t *testing.T) {
	store := newMemStore()
	store.failOnEvent = audit.EventApproved
	pub := &recordingPublisher{}
	svc := NewService(store, verdict(0.5), nil, pub, testConfig)
	sub := seed(store, StatusNeedsReview, ptr(1))

	if _, err := svc.Approve(context.Background(), sub.ID, uuid.New(), &ApproveRequest{}); !errors.Is(err, errInjected) {
		t.Fatalf("expected injected error, got %v", err)
	}
	got, _ := store.GetByID(context.Background(), sub.ID)
	if got.Status != StatusNeedsReview {
		t.Fatalf("expected status rolled back, got %s", got.Status)
	}
	if store.points(sub.UserID) != 0 || store.ledgerLen() != 0 {
		t.Fatal("expected wallet rolled back")
	}
	if len(pub.events) != 0 || len(pub.wallets) != 0 {
		t.Fatal("expected nothing published for a rolled back transition")
	}
}

func TestConcurrentApproveAwardsOnce(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, verdict(0.5))
	sub := seed(store, StatusNeedsReview, nil)

	const workers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		invalid   int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Approve(context.Background(), sub.ID, uuid.New(), &ApproveRequest{})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, ErrInvalidTransition):
				invalid++
			default:
				t.Errorf("unexpected error %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded != 1 || invalid != workers-1 {
		t.Fatalf("expected 1 success and %d conflicts, got %d/%d", workers-1, succeeded, invalid)
	}
	if got := store.points(sub.UserID); got != 100 {
		t.Fatalf("expected 100 points, got %d", got)
	}
}

func TestRejectApprovedFails(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, verdict(0.5))
	sub := seed(store, StatusNeedsReview, nil)

	if _, err := svc.Approve(context.Background(), sub.ID, uuid.New(), &ApproveRequest{}); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := svc.Reject(context.Background(), sub.ID, uuid.New(), &RejectRequest{Reason: "late"}); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}

	got, _ := store.GetByID(context.Background(), sub.ID)
	if got.Status != StatusApproved || got.RejectionReason != nil {
		t.Fatalf("expected APPROVED untouched, got %+v", got)
	}
	if store.points(sub.UserID) != 100 {
		t.Fatalf("expected wallet untouched, got %d", store.points(sub.UserID))
	}
}

func TestRejectRequiresReason(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, verdict(0.5))
	sub := seed(store, StatusNeedsReview, nil)

	if _, err := svc.Reject(context.Background(), sub.ID, uuid.New(), &RejectRequest{Reason: " \t"}); !errors.Is(err, ErrReasonRequired) {
		t.Fatalf("expected ErrReasonRequired, got %v", err)
	}
}

func TestRejectAutoVerifiedKeepsReward(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, verdict(0.95))
	user := uuid.New()

	sub, err := svc.Create(context.Background(), user, createReq())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	res, err := svc.Reject(context.Background(), sub.ID, uuid.New(), &RejectRequest{Reason: "wrong bin"})
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if res.PriorStatus != StatusAutoVerified || *res.Submission.RejectionReason != "wrong bin" {
		t.Fatalf("unexpected result %+v", res)
	}
	if store.points(user) != 100 {
		t.Fatalf("expected reward kept, got %d", store.points(user))
	}
	if _, err := svc.Reject(context.Background(), sub.ID, uuid.New(), &RejectRequest{Reason: "again"}); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected second reject to fail, got %v", err)
	}
}

func TestListForReviewPresignsVideos(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, verdict(0.5), stubObjects{exists: true}, nil, testConfig)
	seed(store, StatusNeedsReview, nil)
	seed(store, StatusQueued, nil)
	seed(store, StatusApproved, nil)

	items, total, err := svc.ListForReview(context.Background(), 1, 20)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 2 || len(items) != 2 {
		t.Fatalf("expected 2 queued, got %d/%d", total, len(items))
	}
	for _, it := range items {
		if it.VideoURL == "" {
			t.Fatalf("expected video url for %s", it.ID)
		}
	}
}

func TestEventsUnknownSubmission(t *testing.T) {
	svc := newTestService(newMemStore(), verdict(0.5))
	if _, err := svc.Events(context.Background(), uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
