package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/wfunc/sololeveling/catalog"
	"github.com/wfunc/sololeveling/models"
)

func TestComplete_NewPlayerDailyQuest(t *testing.T) {
	env := newTestEnv(t)
	env.rand.picks = []int{1}
	ctx := context.Background()

	q, err := env.svc.Quests.EnsureDaily(ctx, "hunter")
	if err != nil {
		t.Fatalf("EnsureDaily: %v", err)
	}
	res, err := env.svc.Settlement.Complete(ctx, "hunter", q.ID)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}

	p := env.player(t, "hunter")
	// 250 xp consumes the 100 and 125 thresholds
	if p.Level != 3 || p.XP != 25 {
		t.Fatalf("Expected level 3 with 25 xp, got level %d with %d xp", p.Level, p.XP)
	}
	if res.LevelsGained != 2 || p.UnallocatedStatPoints != 10 {
		t.Fatalf("Expected 2 levels and 10 stat points, got %d and %d", res.LevelsGained, p.UnallocatedStatPoints)
	}
	if p.StreakCount != 1 || p.LongestStreak != 1 {
		t.Fatalf("Expected streak 1/1, got %d/%d", p.StreakCount, p.LongestStreak)
	}
	if p.Mana != 150 {
		t.Fatalf("Expected mana 150, got %d", p.Mana)
	}
	if p.Strength != 11 || p.Agility != 11 || p.Vitality != 11 || p.Intelligence != 10 || p.Sense != 10 {
		t.Fatalf("Stat reward not applied: %+v", p.Stats())
	}
	if p.Rank != models.RankE {
		t.Fatalf("Expected rank E, got %s", p.Rank)
	}

	stored := env.quest(t, q.ID)
	if stored.Status != models.QuestStatusCompleted || stored.CompletedAt == nil {
		t.Fatalf("Quest not completed: %s %v", stored.Status, stored.CompletedAt)
	}

	rewards := env.ledger(t, "hunter", models.LedgerQuestReward)
	if len(rewards) != 1 || rewards[0].Amount != 250 {
		t.Fatalf("Expected one QUEST_REWARD of 250, got %+v", rewards)
	}
	if rewards[0].Metadata.Data().ManaReward != 50 {
		t.Fatalf("Expected mana reward metadata 50, got %+v", rewards[0].Metadata.Data())
	}

	items, err := env.svc.Inventory.List(ctx, "hunter")
	if err != nil {
		t.Fatalf("Inventory.List: %v", err)
	}
	names := map[string]bool{}
	for _, it := range items {
		names[it.Name] = true
	}
	if len(items) != 2 || !names["Recovery Potion"] || !names["Lightweight Trainers"] {
		t.Fatalf("Unexpected loot: %+v", items)
	}

	if env.observer.settled["DAILY/completed"] != 1 || env.observer.levelUps != 2 {
		t.Errorf("Observer not notified: %+v levelUps=%d", env.observer.settled, env.observer.levelUps)
	}
	types := strings.Join(env.notifier.Types("hunter"), ",")
	if types != "quest.completed,player.level_up,achievement.unlocked" {
		t.Errorf("Unexpected events: %s", types)
	}
}

func TestComplete_Twice(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	q, _ := env.svc.Quests.EnsureDaily(ctx, "hunter")
	if _, err := env.svc.Settlement.Complete(ctx, "hunter", q.ID); err != nil {
		t.Fatalf("first Complete: %v", err)
	}
	before := env.player(t, "hunter")

	_, err := env.svc.Settlement.Complete(ctx, "hunter", q.ID)
	if !errors.Is(err, ErrQuestNotActive) {
		t.Fatalf("Expected ErrQuestNotActive, got %v", err)
	}
	after := env.player(t, "hunter")
	if before.Level != after.Level || before.XP != after.XP || before.Mana != after.Mana || before.StreakCount != after.StreakCount {
		t.Fatalf("Second completion mutated the player: before %+v after %+v", before, after)
	}
	if n := len(env.ledger(t, "hunter", models.LedgerQuestReward)); n != 1 {
		t.Fatalf("Expected 1 reward entry, got %d", n)
	}
}

func TestComplete_ConcurrentCallsCreditOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	q, _ := env.svc.Quests.EnsureDaily(ctx, "hunter")

	const callers = 8
	var (
		wg        sync.WaitGroup
		mutex     sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.svc.Settlement.Complete(ctx, "hunter", q.ID)
			mutex.Lock()
			defer mutex.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrQuestNotActive):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if successes != 1 || conflicts != callers-1 {
		t.Fatalf("Expected 1 success and %d conflicts, got %d and %d", callers-1, successes, conflicts)
	}
	if n := len(env.ledger(t, "hunter", models.LedgerQuestReward)); n != 1 {
		t.Fatalf("Expected 1 reward entry, got %d", n)
	}
	if p := env.player(t, "hunter"); p.StreakCount != 1 {
		t.Fatalf("Expected streak 1, got %d", p.StreakCount)
	}
}

func TestComplete_ForeignOrMissingQuest(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	q, _ := env.svc.Quests.EnsureDaily(ctx, "owner")
	if _, err := env.svc.Settlement.Complete(ctx, "intruder", q.ID); !errors.Is(err, ErrQuestNotFound) {
		t.Fatalf("Expected ErrQuestNotFound for another player's quest, got %v", err)
	}
	if _, err := env.svc.Settlement.Complete(ctx, "owner", "no-such-quest"); !errors.Is(err, ErrQuestNotFound) {
		t.Fatalf("Expected ErrQuestNotFound for missing quest, got %v", err)
	}
	if env.quest(t, q.ID).Status != models.QuestStatusActive {
		t.Fatal("Rejected completion changed the quest")
	}
}

func TestComplete_ExpiredQuestFailsInstead(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	q, _ := env.svc.Quests.EnsureDaily(ctx, "hunter")
	env.clock.Advance(25 * time.Hour)

	res, err := env.svc.Settlement.Complete(ctx, "hunter", q.ID)
	if !errors.Is(err, ErrQuestExpired) {
		t.Fatalf("Expected ErrQuestExpired, got %v", err)
	}
	if res == nil || res.Failure == nil || res.Failure.PenaltyQuest == nil {
		t.Fatalf("Expected failure details with a penalty quest, got %+v", res)
	}
	if env.quest(t, q.ID).Status != models.QuestStatusFailed {
		t.Fatal("Expired quest should be FAILED")
	}
	if n := len(env.ledger(t, "hunter", models.LedgerQuestReward)); n != 0 {
		t.Fatalf("Expired quest must not be rewarded, got %d entries", n)
	}
}

func TestFail_AppliesPenaltyAndSpawnsPenaltyQuest(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	q, _ := env.svc.Quests.EnsureDaily(ctx, "hunter")
	env.setPlayer(t, "hunter", map[string]any{"xp": 30, "streak_count": 4})

	res, err := env.svc.Settlement.Fail(ctx, "hunter", q.ID, ReasonManual)
	if err != nil {
		t.Fatalf("Fail: %v", err)
	}

	p := env.player(t, "hunter")
	if p.XP != 0 || p.StreakCount != 0 {
		t.Fatalf("Expected xp 0 and streak 0, got %d and %d", p.XP, p.StreakCount)
	}
	if res.XPLost != 30 {
		t.Fatalf("Expected 30 xp lost, got %d", res.XPLost)
	}

	penalties := env.ledger(t, "hunter", models.LedgerPenalty)
	if len(penalties) != 1 || penalties[0].Amount != 100 {
		t.Fatalf("Expected one PENALTY entry of 100, got %+v", penalties)
	}
	if md := penalties[0].Metadata.Data(); md.XPLost != 30 || md.Reason != ReasonManual {
		t.Fatalf("Unexpected penalty metadata: %+v", md)
	}

	pq := env.quest(t, res.PenaltyQuest.ID)
	if pq.Type != models.QuestTypePenalty || pq.Status != models.QuestStatusActive {
		t.Fatalf("Unexpected penalty quest: %s %s", pq.Type, pq.Status)
	}
	if !strings.Contains(pq.Description, "Failed quest "+q.ID) {
		t.Fatalf("Penalty quest should name the failed quest, got %q", pq.Description)
	}
	if types := strings.Join(env.notifier.Types("hunter"), ","); types != "quest.failed,quest.penalty" {
		t.Errorf("Unexpected events: %s", types)
	}
}

func TestFail_TerminalQuestIsRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	q, _ := env.svc.Quests.EnsureDaily(ctx, "hunter")
	if _, err := env.svc.Settlement.Fail(ctx, "hunter", q.ID, ReasonManual); err != nil {
		t.Fatalf("Fail: %v", err)
	}
	env.setPlayer(t, "hunter", map[string]any{"xp": 80})

	if _, err := env.svc.Settlement.Fail(ctx, "hunter", q.ID, ReasonManual); !errors.Is(err, ErrQuestNotActive) {
		t.Fatalf("Expected ErrQuestNotActive, got %v", err)
	}
	if p := env.player(t, "hunter"); p.XP != 80 {
		t.Fatalf("Rejected failure changed xp to %d", p.XP)
	}
	if n := env.count(t, &models.Quest{}, "user_id = ? AND type = ?", "hunter", models.QuestTypePenalty); n != 1 {
		t.Fatalf("Expected exactly 1 penalty quest, got %d", n)
	}
}

func TestFail_XPFloor(t *testing.T) {
	tests := []struct {
		xp, want int
	}{
		{0, 0},
		{99, 0},
		{100, 0},
		{150, 50},
	}
	for _, tt := range tests {
		env := newTestEnv(t)
		ctx := context.Background()
		q, _ := env.svc.Quests.EnsureDaily(ctx, "hunter")
		env.setPlayer(t, "hunter", map[string]any{"xp": tt.xp})

		if _, err := env.svc.Settlement.Fail(ctx, "hunter", q.ID, ReasonManual); err != nil {
			t.Fatalf("Fail: %v", err)
		}
		if got := env.player(t, "hunter").XP; got != tt.want {
			t.Errorf("xp %d after 100 loss: got %d, want %d", tt.xp, got, tt.want)
		}
	}
}

func lootTestTemplate() catalog.QuestTemplate {
	return catalog.QuestTemplate{
		Type:       models.QuestTypeEmergency,
		Title:      "Loot Run",
		Difficulty: models.DifficultyB,
		Rewards: []models.Reward{
			{Kind: models.RewardXP, Amount: 10},
			{Kind: models.RewardItem, Items: []models.LootEntry{{Name: "Mana Crystal"}, {Name: "Gate Key", Category: models.CategoryMisc, Quantity: 2}}},
			{Kind: models.RewardItemPool, Items: []models.LootEntry{{Name: "Red"}, {Name: "Green"}, {Name: "Blue"}}},
		},
	}
}

func TestResolveLoot_DeterministicPick(t *testing.T) {
	table := lootTestTemplate().Instantiate("u", day1).LootTable.Data()

	for pick, want := range []string{"Red", "Green", "Blue"} {
		items := resolveLoot("u", table, &seqRand{picks: []int{pick}})
		if len(items) != 3 {
			t.Fatalf("Expected 3 items, got %d", len(items))
		}
		if items[2].Name != want || items[2].Description != want+" (random drop)" {
			t.Errorf("pick %d: got %q (%q), want %q", pick, items[2].Name, items[2].Description, want)
		}
	}

	items := resolveLoot("u", table, &seqRand{picks: []int{0}})
	potion := items[0]
	if potion.Category != models.CategoryMisc || potion.Rarity != models.RarityCommon || potion.Quantity != 1 {
		t.Errorf("Defaults not applied: %+v", potion)
	}
	if potion.Description != "Mana Crystal obtained from quest rewards" {
		t.Errorf("Unexpected description %q", potion.Description)
	}
	if items[1].Quantity != 2 {
		t.Errorf("Explicit quantity lost: %d", items[1].Quantity)
	}
}

func TestResolveLoot_RandomPickStaysInPool(t *testing.T) {
	table := lootTestTemplate().Instantiate("u", day1).LootTable.Data()
	pool := map[string]bool{"Red": true, "Green": true, "Blue": true}

	for i := 0; i < 200; i++ {
		items := resolveLoot("u", table, globalRand{})
		if len(items) != 3 {
			t.Fatalf("Expected 3 items, got %d", len(items))
		}
		if !pool[items[2].Name] {
			t.Fatalf("Random item %q is not in the pool", items[2].Name)
		}
	}
}

func TestComplete_LootTableCreatesThreeItems(t *testing.T) {
	env := newTestEnv(t)
	env.rand.picks = []int{2}
	ctx := context.Background()

	q := lootTestTemplate().Instantiate("hunter", day1)
	if err := env.db.WithContext(ctx).Create(q).Error; err != nil {
		t.Fatalf("create quest: %v", err)
	}
	res, err := env.svc.Settlement.Complete(ctx, "hunter", q.ID)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if len(res.Items) != 3 || res.Items[2].Name != "Blue" {
		t.Fatalf("Unexpected loot: %+v", res.Items)
	}
	if n := env.count(t, &models.InventoryItem{}, "user_id = ?", "hunter"); n != 3 {
		t.Fatalf("Expected 3 stored items, got %d", n)
	}
	if p := env.player(t, "hunter"); p.StreakCount != 0 {
		t.Fatalf("Non-daily completion changed streak to %d", p.StreakCount)
	}
}

func TestComplete_UnlocksStreakMaster(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.setPlayer(t, "hunter", map[string]any{"streak_count": 6, "longest_streak": 6})
	q, _ := env.svc.Quests.EnsureDaily(ctx, "hunter")
	res, err := env.svc.Settlement.Complete(ctx, "hunter", q.ID)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}

	codes := map[string]bool{}
	for _, a := range res.Achievements {
		codes[a.Code] = true
	}
	if !codes[catalog.AchievementFirstBlood] || !codes[catalog.AchievementStreakMaster] {
		t.Fatalf("Expected FIRST_BLOOD and STREAK_MASTER, got %+v", res.Achievements)
	}

	views, err := env.svc.Achievements.List(ctx, "hunter")
	if err != nil {
		t.Fatalf("Achievements.List: %v", err)
	}
	for _, v := range views {
		switch v.Code {
		case catalog.AchievementStreakMaster:
			if !v.Completed || v.Progress != 7 || v.UnlockedAt == nil {
				t.Errorf("Unexpected streak progress: %+v", v)
			}
		case catalog.AchievementShadowCommander:
			if v.Completed {
				t.Errorf("Shadow commander should still be locked")
			}
		}
	}
}
