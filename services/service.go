// Package services implements the game rules on top of the persistence layer.
// Every multi-record mutation runs inside a single Database.Transaction.
package services

import (
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/wfunc/sololeveling/auth"
	"github.com/wfunc/sololeveling/leveling"
	"github.com/wfunc/sololeveling/models"
	"github.com/wfunc/sololeveling/persistence"
)

// Rand picks loot. Implementations must be safe for concurrent use when the
// services are shared across requests.
type Rand interface {
	Intn(n int) int
}

type globalRand struct{}

func (globalRand) Intn(n int) int { return rand.IntN(n) }

// Observer receives settlement outcomes for metrics.
type Observer interface {
	QuestSettled(questType models.QuestType, outcome string)
	LevelUp(levels int)
	Purchase(itemID string)
}

type nopObserver struct{}

func (nopObserver) QuestSettled(models.QuestType, string) {}
func (nopObserver) LevelUp(int)                           {}
func (nopObserver) Purchase(string)                       {}

// Notifier delivers events to a user's live connections. Delivery is best
// effort and happens after the transaction commits.
type Notifier interface {
	Notify(userID string, event Event)
}

type nopNotifier struct{}

func (nopNotifier) Notify(string, Event) {}

type core struct {
	db       persistence.Database
	calc     *leveling.Calculator
	now      func() time.Time
	loc      *time.Location
	rand     Rand
	notifier Notifier
	observer Observer
	tokens   *auth.TokenIssuer
	hasher   auth.Hasher
}

type Option func(*core)

// WithClock replaces time.Now. Returned times are converted to UTC.
func WithClock(now func() time.Time) Option {
	return func(c *core) { c.now = func() time.Time { return now().UTC() } }
}

// WithLocation sets the time zone whose midnight starts a new daily cycle.
func WithLocation(loc *time.Location) Option {
	return func(c *core) { c.loc = loc }
}

func WithCalculator(calc *leveling.Calculator) Option {
	return func(c *core) { c.calc = calc }
}

func WithRand(r Rand) Option {
	return func(c *core) { c.rand = r }
}

func WithNotifier(n Notifier) Option {
	return func(c *core) { c.notifier = n }
}

func WithObserver(o Observer) Option {
	return func(c *core) { c.observer = o }
}

func WithTokenIssuer(t *auth.TokenIssuer) Option {
	return func(c *core) { c.tokens = t }
}

func WithHasher(h auth.Hasher) Option {
	return func(c *core) { c.hasher = h }
}

func newCore(db persistence.Database, opts ...Option) *core {
	c := &core{
		db:       db,
		calc:     leveling.MustCalculator(leveling.DefaultConfig()),
		now:      func() time.Time { return time.Now().UTC() },
		loc:      time.UTC,
		rand:     globalRand{},
		notifier: nopNotifier{},
		observer: nopObserver{},
		hasher:   auth.NewHasher(0),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.tokens == nil {
		c.tokens = auth.NewTokenIssuer(uuid.NewString(), 7*24*time.Hour)
	}
	return c
}

func (c *core) publish(userID string, events ...Event) {
	now := c.now()
	for _, ev := range events {
		if ev.At.IsZero() {
			ev.At = now
		}
		c.notifier.Notify(userID, ev)
	}
}

// Services bundles every service over one store.
type Services struct {
	Players      *PlayerService
	Quests       *QuestService
	Settlement   *SettlementService
	Shop         *ShopService
	Inventory    *InventoryService
	Analytics    *AnalyticsService
	Achievements *AchievementService
	Skills       *SkillService
	Auth         *AuthService
}

func New(db persistence.Database, opts ...Option) *Services {
	c := newCore(db, opts...)

	achievements := &AchievementService{core: c}
	players := &PlayerService{core: c, achievements: achievements}
	settlement := &SettlementService{core: c, players: players, achievements: achievements}

	return &Services{
		Players:      players,
		Quests:       &QuestService{core: c, players: players, settlement: settlement},
		Settlement:   settlement,
		Shop:         &ShopService{core: c},
		Inventory:    &InventoryService{core: c},
		Analytics:    &AnalyticsService{core: c, players: players},
		Achievements: achievements,
		Skills:       &SkillService{core: c, players: players, achievements: achievements},
		Auth:         &AuthService{core: c, players: players},
	}
}
