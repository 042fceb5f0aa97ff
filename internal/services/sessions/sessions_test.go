package sessions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	clients "github.com/JorgeSaicoski/freelance-tracker/internal/client"
	"github.com/JorgeSaicoski/freelance-tracker/internal/db"
	"github.com/JorgeSaicoski/freelance-tracker/internal/locks"
	"github.com/JorgeSaicoski/freelance-tracker/internal/services/activity"
	"github.com/JorgeSaicoski/freelance-tracker/internal/services/billing"
)

var testStart = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

// mockClock is settable so one test can walk through a whole workday.
type mockClock struct {
	now time.Time
}

func (c *mockClock) Now() time.Time { return c.now }

func (c *mockClock) advance(d time.Duration) { c.now = c.now.Add(d) }

// fakeStore backs the session, billing and activity stores with maps.
type fakeStore struct {
	sessions map[uint]*db.WorkSession
	blocks   map[uint]*db.TimeBlock
	units    map[uint]*db.BillingUnit
	logs     []db.ActivityLog
	nextID   uint

	failBlockInsert bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		sessions: make(map[uint]*db.WorkSession),
		blocks:   make(map[uint]*db.TimeBlock),
		units:    make(map[uint]*db.BillingUnit),
		nextID:   1,
	}
}

func (f *fakeStore) id() uint {
	id := f.nextID
	f.nextID++
	return id
}

func (f *fakeStore) CreateSession(session *db.WorkSession) error {
	session.ID = f.id()
	copy := *session
	f.sessions[session.ID] = &copy
	return nil
}

func (f *fakeStore) UpdateSession(session *db.WorkSession) error {
	copy := *session
	f.sessions[session.ID] = &copy
	return nil
}

func (f *fakeStore) DeleteSession(session *db.WorkSession) error {
	delete(f.sessions, session.ID)
	return nil
}

func (f *fakeStore) SessionByID(id uint) (*db.WorkSession, error) {
	session, ok := f.sessions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copy := *session
	return &copy, nil
}

func (f *fakeStore) RunningSessionByUser(userID string) (*db.WorkSession, error) {
	for _, s := range f.sessions {
		if s.UserID == userID && s.EndedAt == nil {
			copy := *s
			return &copy, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) SessionsByUser(userID string) ([]db.WorkSession, error) {
	var out []db.WorkSession
	for _, s := range f.sessions {
		if s.UserID == userID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeStore) AllSessions() ([]db.WorkSession, error) {
	var out []db.WorkSession
	for _, s := range f.sessions {
		out = append(out, *s)
	}
	return out, nil
}

func (f *fakeStore) CreateBlock(block *db.TimeBlock) error {
	if f.failBlockInsert {
		return errors.New("insert failed")
	}
	block.ID = f.id()
	copy := *block
	f.blocks[block.ID] = &copy
	return nil
}

func (f *fakeStore) UpdateBlock(block *db.TimeBlock) error {
	copy := *block
	f.blocks[block.ID] = &copy
	return nil
}

func (f *fakeStore) OpenBlock(sessionID uint) (*db.TimeBlock, error) {
	for _, b := range f.blocks {
		if b.SessionID == sessionID && b.EndedAt == nil {
			copy := *b
			return &copy, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) BlocksBySession(sessionID uint) ([]db.TimeBlock, error) {
	var out []db.TimeBlock
	for id := uint(1); id < f.nextID; id++ {
		if b, ok := f.blocks[id]; ok && b.SessionID == sessionID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (f *fakeStore) WindowsByBlock(blockID uint) ([]db.ScreenshotWindow, error) {
	return nil, nil
}

func (f *fakeStore) ScreenshotsByWindow(windowID uint) ([]db.Screenshot, error) {
	return nil, nil
}

func (f *fakeStore) BillingUnitBySession(sessionID uint) (*db.BillingUnit, error) {
	unit, ok := f.units[sessionID]
	if !ok {
		return nil, nil
	}
	copy := *unit
	return &copy, nil
}

func (f *fakeStore) CreateBillingUnit(unit *db.BillingUnit) error {
	unit.ID = f.id()
	copy := *unit
	f.units[unit.SessionID] = &copy
	return nil
}

func (f *fakeStore) BillingUnitsByUser(userID string) ([]db.BillingUnit, error) {
	return nil, nil
}

func (f *fakeStore) AllBillingUnits() ([]db.BillingUnit, error) {
	return nil, nil
}

func (f *fakeStore) CreateActivityLog(entry *db.ActivityLog) error {
	entry.ID = f.id()
	f.logs = append(f.logs, *entry)
	return nil
}

func (f *fakeStore) ActivityByUser(userID string, limit int) ([]db.ActivityLog, error) {
	return nil, nil
}

func (f *fakeStore) AllActivity(limit int) ([]db.ActivityLog, error) {
	return nil, nil
}

func (f *fakeStore) actions() []string {
	var out []string
	for _, entry := range f.logs {
		out = append(out, entry.Action)
	}
	return out
}

type fakeContractClient struct {
	contract *clients.Contract
	calls    int
	failN    int // fail the first N calls
}

func (f *fakeContractClient) GetContract(ctx context.Context, contractID uint) (*clients.Contract, error) {
	f.calls++
	if f.calls <= f.failN {
		return nil, errors.New("contract service unavailable")
	}
	return f.contract, nil
}

func fundedContract() *clients.Contract {
	return &clients.Contract{
		ID:              7,
		Status:          "active",
		EscrowFunded:    true,
		HourlyRate:      decimal.RequireFromString("20.00"),
		RemainingBudget: decimal.RequireFromString("500.00"),
	}
}

func newTestService(store *fakeStore, contracts clients.ContractClient, clock locks.Clock) *Service {
	recorder := activity.NewRecorder(store, clock)
	deriver := billing.NewDeriver(store, contracts, clock)
	return NewService(store, deriver, recorder, locks.NewSessionLocker(), clock)
}

func TestStartSession(t *testing.T) {
	store := newFakeStore()
	clock := &mockClock{now: testStart}
	service := newTestService(store, &fakeContractClient{contract: fundedContract()}, clock)

	result, err := service.Start(context.Background(), "freelancer-1", 7, "laptop-1")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if result.AlreadyRunning {
		t.Error("fresh start reported AlreadyRunning")
	}
	if result.Session.ContractID != 7 || result.Session.DeviceID != "laptop-1" {
		t.Errorf("session = %+v", result.Session)
	}

	open, _ := store.OpenBlock(result.Session.ID)
	if open == nil {
		t.Fatal("no open block after start")
	}
	if !open.StartedAt.Equal(testStart) {
		t.Errorf("block start = %v, want %v", open.StartedAt, testStart)
	}

	if got := store.actions(); len(got) != 1 || got[0] != db.ActionSessionStart {
		t.Errorf("activity = %v, want [SESSION_START]", got)
	}
}

func TestStartIdempotent(t *testing.T) {
	store := newFakeStore()
	clock := &mockClock{now: testStart}
	service := newTestService(store, &fakeContractClient{contract: fundedContract()}, clock)

	first, err := service.Start(context.Background(), "freelancer-1", 7, "laptop-1")
	if err != nil {
		t.Fatalf("first start: %v", err)
	}

	clock.advance(time.Minute)
	second, err := service.Start(context.Background(), "freelancer-1", 7, "laptop-1")
	if err != nil {
		t.Fatalf("second start: %v", err)
	}
	if !second.AlreadyRunning {
		t.Error("second start did not report AlreadyRunning")
	}
	if second.Session.ID != first.Session.ID {
		t.Errorf("second start created session %d, want %d", second.Session.ID, first.Session.ID)
	}
	if len(store.sessions) != 1 {
		t.Errorf("store holds %d sessions, want 1", len(store.sessions))
	}
}

func TestStartRollsBackOnBlockFailure(t *testing.T) {
	store := newFakeStore()
	store.failBlockInsert = true
	clock := &mockClock{now: testStart}
	service := newTestService(store, &fakeContractClient{contract: fundedContract()}, clock)

	if _, err := service.Start(context.Background(), "freelancer-1", 7, "laptop-1"); err == nil {
		t.Fatal("expected error when block insert fails")
	}
	if len(store.sessions) != 0 {
		t.Error("half-created session not rolled back")
	}
}

func TestPauseAndResume(t *testing.T) {
	store := newFakeStore()
	clock := &mockClock{now: testStart}
	service := newTestService(store, &fakeContractClient{contract: fundedContract()}, clock)

	result, err := service.Start(context.Background(), "freelancer-1", 7, "laptop-1")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	sessionID := result.Session.ID

	clock.advance(time.Hour)
	session, err := service.Pause(context.Background(), "freelancer-1", sessionID, 600, "")
	if err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if session.PausedAt == nil {
		t.Error("PausedAt not set")
	}

	blocks, _ := store.BlocksBySession(sessionID)
	if len(blocks) != 1 {
		t.Fatalf("blocks = %d, want 1", len(blocks))
	}
	if blocks[0].EndReason != db.EndReasonPause {
		t.Errorf("end reason = %q, want PAUSE", blocks[0].EndReason)
	}
	if blocks[0].IdleSeconds != 600 || blocks[0].ActiveSeconds != 3000 {
		t.Errorf("idle=%d active=%d, want 600/3000", blocks[0].IdleSeconds, blocks[0].ActiveSeconds)
	}

	// Pausing again has no open block to close.
	if _, err := service.Pause(context.Background(), "freelancer-1", sessionID, 0, ""); !errors.Is(err, ErrNoActiveBlock) {
		t.Errorf("double pause err = %v, want ErrNoActiveBlock", err)
	}

	clock.advance(10 * time.Minute)
	block, err := service.Resume(context.Background(), "freelancer-1", sessionID)
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if !block.StartedAt.Equal(clock.now) {
		t.Errorf("resumed block start = %v, want %v", block.StartedAt, clock.now)
	}

	refreshed, _ := store.SessionByID(sessionID)
	if refreshed.PausedAt != nil {
		t.Error("PausedAt not cleared on resume")
	}

	if _, err := service.Resume(context.Background(), "freelancer-1", sessionID); !errors.Is(err, ErrSessionNotPaused) {
		t.Errorf("double resume err = %v, want ErrSessionNotPaused", err)
	}
}

func TestPauseReasonValidation(t *testing.T) {
	store := newFakeStore()
	clock := &mockClock{now: testStart}
	service := newTestService(store, &fakeContractClient{contract: fundedContract()}, clock)

	result, err := service.Start(context.Background(), "freelancer-1", 7, "laptop-1")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	if _, err := service.Pause(context.Background(), "freelancer-1", result.Session.ID, 0, db.EndReasonStop); !errors.Is(err, ErrInvalidEndReason) {
		t.Errorf("STOP reason err = %v, want ErrInvalidEndReason", err)
	}
	if _, err := service.Pause(context.Background(), "freelancer-1", result.Session.ID, 0, "NAP"); !errors.Is(err, ErrInvalidEndReason) {
		t.Errorf("unknown reason err = %v, want ErrInvalidEndReason", err)
	}

	clock.advance(20 * time.Minute)
	if _, err := service.Pause(context.Background(), "freelancer-1", result.Session.ID, 0, db.EndReasonSystemSleep); err != nil {
		t.Errorf("SYSTEM_SLEEP pause failed: %v", err)
	}
}

func TestStopDerivesBilling(t *testing.T) {
	store := newFakeStore()
	clock := &mockClock{now: testStart}
	service := newTestService(store, &fakeContractClient{contract: fundedContract()}, clock)

	result, err := service.Start(context.Background(), "freelancer-1", 7, "laptop-1")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	sessionID := result.Session.ID

	clock.advance(time.Hour)
	if _, err := service.Pause(context.Background(), "freelancer-1", sessionID, 600, ""); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	clock.advance(10 * time.Minute)
	if _, err := service.Resume(context.Background(), "freelancer-1", sessionID); err != nil {
		t.Fatalf("Resume: %v", err)
	}

	clock.advance(30 * time.Minute)
	stop, err := service.Stop(context.Background(), "freelancer-1", sessionID, 0)
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}

	if stop.Session.EndedAt == nil {
		t.Fatal("EndedAt not set")
	}
	if stop.TrackedSeconds != 5400 {
		t.Errorf("tracked = %d, want 5400", stop.TrackedSeconds)
	}
	if stop.BillingUnit == nil {
		t.Fatal("no billing unit derived")
	}
	if stop.BillingUnit.BillableSeconds != 4800 {
		t.Errorf("billable = %d, want 4800", stop.BillingUnit.BillableSeconds)
	}
	if got := stop.BillingUnit.GrossAmount.StringFixed(2); got != "26.67" {
		t.Errorf("gross = %s, want 26.67", got)
	}
}

func TestStopIdempotent(t *testing.T) {
	store := newFakeStore()
	clock := &mockClock{now: testStart}
	service := newTestService(store, &fakeContractClient{contract: fundedContract()}, clock)

	result, err := service.Start(context.Background(), "freelancer-1", 7, "laptop-1")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	sessionID := result.Session.ID

	clock.advance(time.Hour)
	first, err := service.Stop(context.Background(), "freelancer-1", sessionID, 0)
	if err != nil {
		t.Fatalf("first stop: %v", err)
	}

	clock.advance(time.Hour)
	second, err := service.Stop(context.Background(), "freelancer-1", sessionID, 0)
	if err != nil {
		t.Fatalf("second stop: %v", err)
	}

	if !second.Session.EndedAt.Equal(*first.Session.EndedAt) {
		t.Errorf("second stop moved EndedAt to %v", second.Session.EndedAt)
	}
	if second.TrackedSeconds != first.TrackedSeconds {
		t.Errorf("tracked changed: %d -> %d", first.TrackedSeconds, second.TrackedSeconds)
	}
	if second.BillingUnit == nil || second.BillingUnit.ID != first.BillingUnit.ID {
		t.Error("second stop did not return the existing billing unit")
	}
	if len(store.units) != 1 {
		t.Errorf("store holds %d units, want 1", len(store.units))
	}
}

func TestStopRetriesFailedDerivation(t *testing.T) {
	store := newFakeStore()
	clock := &mockClock{now: testStart}
	contracts := &fakeContractClient{contract: fundedContract(), failN: 1}
	service := newTestService(store, contracts, clock)

	result, err := service.Start(context.Background(), "freelancer-1", 7, "laptop-1")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	sessionID := result.Session.ID

	clock.advance(time.Hour)
	if _, err := service.Stop(context.Background(), "freelancer-1", sessionID, 0); err == nil {
		t.Fatal("expected derivation failure on first stop")
	}

	// The session is stopped despite the billing failure.
	stopped, _ := store.SessionByID(sessionID)
	if stopped.EndedAt == nil {
		t.Fatal("session not stopped after failed derivation")
	}

	retry, err := service.Stop(context.Background(), "freelancer-1", sessionID, 0)
	if err != nil {
		t.Fatalf("retry stop: %v", err)
	}
	if retry.BillingUnit == nil {
		t.Fatal("retry did not derive the billing unit")
	}
	if retry.BillingUnit.BillableSeconds != 3600 {
		t.Errorf("billable = %d, want 3600", retry.BillingUnit.BillableSeconds)
	}
}

func TestStopOwnershipAndMissing(t *testing.T) {
	store := newFakeStore()
	clock := &mockClock{now: testStart}
	service := newTestService(store, &fakeContractClient{contract: fundedContract()}, clock)

	result, err := service.Start(context.Background(), "freelancer-1", 7, "laptop-1")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	if _, err := service.Stop(context.Background(), "intruder", result.Session.ID, 0); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("foreign stop err = %v, want ErrPermissionDenied", err)
	}
	if _, err := service.Stop(context.Background(), "freelancer-1", 999, 0); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("missing session err = %v, want record not found", err)
	}
}

func TestIdleFlush(t *testing.T) {
	store := newFakeStore()
	clock := &mockClock{now: testStart}
	service := newTestService(store, &fakeContractClient{contract: fundedContract()}, clock)

	result, err := service.Start(context.Background(), "freelancer-1", 7, "laptop-1")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	sessionID := result.Session.ID

	if _, err := service.IdleFlush(context.Background(), "freelancer-1", sessionID, 0); !errors.Is(err, ErrInvalidIdle) {
		t.Errorf("zero idle err = %v, want ErrInvalidIdle", err)
	}

	if _, err := service.IdleFlush(context.Background(), "freelancer-1", sessionID, 120); err != nil {
		t.Fatalf("IdleFlush: %v", err)
	}
	block, err := service.IdleFlush(context.Background(), "freelancer-1", sessionID, 60)
	if err != nil {
		t.Fatalf("second IdleFlush: %v", err)
	}
	if block.IdleSeconds != 180 {
		t.Errorf("idle = %d, want 180", block.IdleSeconds)
	}

	clock.advance(20 * time.Minute)
	if _, err := service.Pause(context.Background(), "freelancer-1", sessionID, 0, ""); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if _, err := service.IdleFlush(context.Background(), "freelancer-1", sessionID, 60); !errors.Is(err, ErrNoActiveBlock) {
		t.Errorf("paused flush err = %v, want ErrNoActiveBlock", err)
	}
}

func TestLongIdleBlockFlaggedOnPause(t *testing.T) {
	store := newFakeStore()
	clock := &mockClock{now: testStart}
	service := newTestService(store, &fakeContractClient{contract: fundedContract()}, clock)

	result, err := service.Start(context.Background(), "freelancer-1", 7, "laptop-1")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	clock.advance(time.Hour)
	if _, err := service.Pause(context.Background(), "freelancer-1", result.Session.ID, 1900, ""); err != nil {
		t.Fatalf("Pause: %v", err)
	}

	blocks, _ := store.BlocksBySession(result.Session.ID)
	if !blocks[0].IsFlagged || blocks[0].FlagSource != db.FlagSourceSystem {
		t.Errorf("long-idle block flagged=%v source=%s, want system flag", blocks[0].IsFlagged, blocks[0].FlagSource)
	}
}

func TestActive(t *testing.T) {
	store := newFakeStore()
	clock := &mockClock{now: testStart}
	service := newTestService(store, &fakeContractClient{contract: fundedContract()}, clock)

	status, err := service.Active("freelancer-1")
	if err != nil {
		t.Fatalf("Active: %v", err)
	}
	if status.Running {
		t.Error("no session but Running reported")
	}

	result, err := service.Start(context.Background(), "freelancer-1", 7, "laptop-1")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	clock.advance(15 * time.Minute)
	status, err = service.Active("freelancer-1")
	if err != nil {
		t.Fatalf("Active: %v", err)
	}
	if !status.Running || status.IsPaused {
		t.Errorf("status = %+v, want running unpaused", status)
	}
	if status.TotalSeconds != 0 {
		t.Errorf("closed total = %d, want 0", status.TotalSeconds)
	}
	if status.LiveTotalSeconds != 15*60 {
		t.Errorf("live total = %d, want 900", status.LiveTotalSeconds)
	}

	if _, err := service.Pause(context.Background(), "freelancer-1", result.Session.ID, 0, ""); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	status, _ = service.Active("freelancer-1")
	if !status.IsPaused {
		t.Error("paused session not reported paused")
	}
	if status.TotalSeconds != 900 {
		t.Errorf("closed total = %d, want 900", status.TotalSeconds)
	}
}

func TestTimelineOwnership(t *testing.T) {
	store := newFakeStore()
	clock := &mockClock{now: testStart}
	service := newTestService(store, &fakeContractClient{contract: fundedContract()}, clock)

	result, err := service.Start(context.Background(), "freelancer-1", 7, "laptop-1")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	if _, err := service.Timeline("intruder", result.Session.ID, false); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("foreign timeline err = %v, want ErrPermissionDenied", err)
	}
	if _, err := service.Timeline("intruder", result.Session.ID, true); err != nil {
		t.Errorf("admin timeline err = %v", err)
	}

	timeline, err := service.Timeline("freelancer-1", result.Session.ID, false)
	if err != nil {
		t.Fatalf("Timeline: %v", err)
	}
	if len(timeline.TimeBlocks) != 1 {
		t.Errorf("timeline blocks = %d, want 1", len(timeline.TimeBlocks))
	}
}
