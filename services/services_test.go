package services

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/wfunc/sololeveling/auth"
	"github.com/wfunc/sololeveling/models"
	"github.com/wfunc/sololeveling/persistence"
)

var day1 = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

// fakeClock is a manually advanced clock shared with the services.
type fakeClock struct {
	mutex sync.Mutex
	t     time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.t = c.t.Add(d)
}

func (c *fakeClock) Set(t time.Time) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.t = t
}

// seqRand returns the configured picks in order, wrapping around.
type seqRand struct {
	mutex sync.Mutex
	picks []int
	calls int
}

func (r *seqRand) Intn(n int) int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	v := r.picks[r.calls%len(r.picks)] % n
	r.calls++
	return v
}

type MockNotifier struct {
	mutex  sync.Mutex
	events map[string][]Event
}

func (m *MockNotifier) Notify(userID string, ev Event) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.events == nil {
		m.events = make(map[string][]Event)
	}
	m.events[userID] = append(m.events[userID], ev)
}

func (m *MockNotifier) Types(userID string) []string {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	var out []string
	for _, ev := range m.events[userID] {
		out = append(out, ev.Type)
	}
	return out
}

type MockObserver struct {
	mutex     sync.Mutex
	settled   map[string]int
	levelUps  int
	purchases []string
}

func (m *MockObserver) QuestSettled(t models.QuestType, outcome string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.settled == nil {
		m.settled = make(map[string]int)
	}
	m.settled[string(t)+"/"+outcome]++
}

func (m *MockObserver) LevelUp(levels int) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.levelUps += levels
}

func (m *MockObserver) Purchase(itemID string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.purchases = append(m.purchases, itemID)
}

type testEnv struct {
	svc      *Services
	db       persistence.Database
	clock    *fakeClock
	rand     *seqRand
	notifier *MockNotifier
	observer *MockObserver
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := persistence.NewSQLite(filepath.Join(t.TempDir(), "services.db"), persistence.Options{TxTimeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	env := &testEnv{
		db:       db,
		clock:    &fakeClock{t: day1},
		rand:     &seqRand{picks: []int{0}},
		notifier: &MockNotifier{},
		observer: &MockObserver{},
	}
	env.svc = New(db,
		WithClock(env.clock.Now),
		WithRand(env.rand),
		WithNotifier(env.notifier),
		WithObserver(env.observer),
		WithHasher(auth.NewHasher(bcrypt.MinCost)),
		WithTokenIssuer(auth.NewTokenIssuer("test-secret", time.Hour)),
	)
	return env
}

func (e *testEnv) player(t *testing.T, userID string) *models.Player {
	t.Helper()
	var p models.Player
	if err := e.db.WithContext(context.Background()).Where("user_id = ?", userID).First(&p).Error; err != nil {
		t.Fatalf("load player %s: %v", userID, err)
	}
	return &p
}

func (e *testEnv) setPlayer(t *testing.T, userID string, updates map[string]any) {
	t.Helper()
	if _, err := e.svc.Players.GetOrCreate(context.Background(), userID); err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if err := e.db.WithContext(context.Background()).Model(&models.Player{}).Where("user_id = ?", userID).Updates(updates).Error; err != nil {
		t.Fatalf("update player: %v", err)
	}
}

func (e *testEnv) quest(t *testing.T, id string) *models.Quest {
	t.Helper()
	var q models.Quest
	if err := e.db.WithContext(context.Background()).First(&q, "id = ?", id).Error; err != nil {
		t.Fatalf("load quest %s: %v", id, err)
	}
	return &q
}

func (e *testEnv) ledger(t *testing.T, userID string, kind models.LedgerKind) []models.LedgerEntry {
	t.Helper()
	var entries []models.LedgerEntry
	if err := e.db.WithContext(context.Background()).Where("user_id = ? AND kind = ?", userID, kind).Find(&entries).Error; err != nil {
		t.Fatalf("load ledger: %v", err)
	}
	return entries
}

func (e *testEnv) count(t *testing.T, model any, query string, args ...any) int64 {
	t.Helper()
	var n int64
	if err := e.db.WithContext(context.Background()).Model(model).Where(query, args...).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}
