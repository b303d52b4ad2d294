package state

import (
	"errors"
	"testing"

	"github.com/wfunc/sololeveling/models"
)

func TestStateMachine_InitialState(t *testing.T) {
	sm := NewQuestMachine(models.QuestStatusActive)
	if sm.GetCurrentState() != models.QuestStatusActive {
		t.Errorf("Expected ACTIVE, got %s", sm.GetCurrentState())
	}
}

func TestQuestMachine_ActiveTransitions(t *testing.T) {
	for _, to := range []models.QuestStatus{models.QuestStatusCompleted, models.QuestStatusFailed} {
		sm := NewQuestMachine(models.QuestStatusActive)
		if err := sm.ChangeState(to); err != nil {
			t.Fatalf("ACTIVE -> %s should be allowed, got %v", to, err)
		}
		if sm.GetCurrentState() != to {
			t.Fatalf("Expected current state %s, got %s", to, sm.GetCurrentState())
		}
	}
}

func TestQuestMachine_TerminalStates(t *testing.T) {
	terminal := []models.QuestStatus{models.QuestStatusCompleted, models.QuestStatusFailed}
	targets := []models.QuestStatus{models.QuestStatusActive, models.QuestStatusCompleted, models.QuestStatusFailed}

	for _, from := range terminal {
		for _, to := range targets {
			sm := NewQuestMachine(from)
			err := sm.ChangeState(to)
			if !errors.Is(err, ErrTransitionNotAllowed) {
				t.Errorf("%s -> %s: expected ErrTransitionNotAllowed, got %v", from, to, err)
			}
			if sm.GetCurrentState() != from {
				t.Errorf("%s -> %s: state changed to %s after a blocked transition", from, to, sm.GetCurrentState())
			}
		}
	}
}

func TestQuestMachine_Pending(t *testing.T) {
	if err := CheckQuestTransition(models.QuestStatusPending, models.QuestStatusCompleted); !errors.Is(err, ErrTransitionNotAllowed) {
		t.Errorf("PENDING -> COMPLETED should be rejected, got %v", err)
	}
	if err := CheckQuestTransition(models.QuestStatusPending, models.QuestStatusFailed); err != nil {
		t.Errorf("PENDING -> FAILED should be allowed, got %v", err)
	}
}

func TestStateMachine_ConditionBlocksTransition(t *testing.T) {
	sm := NewBaseStateMachine(models.QuestStatusActive)
	sm.AddTransition(models.QuestStatusActive, models.QuestStatusCompleted, func() bool { return false })
	sm.AddTransition(models.QuestStatusActive, models.QuestStatusFailed, func() bool { return true })

	if err := sm.ChangeState(models.QuestStatusCompleted); !errors.Is(err, ErrTransitionNotAllowed) {
		t.Errorf("Expected blocked transition, got %v", err)
	}
	if sm.GetCurrentState() != models.QuestStatusActive {
		t.Errorf("Expected state to remain ACTIVE, got %s", sm.GetCurrentState())
	}
	if err := sm.ChangeState(models.QuestStatusFailed); err != nil {
		t.Errorf("Expected transition to FAILED, got %v", err)
	}
}

func TestCheckQuestTransition(t *testing.T) {
	if err := CheckQuestTransition(models.QuestStatusActive, models.QuestStatusFailed); err != nil {
		t.Errorf("Expected ACTIVE -> FAILED to be allowed, got %v", err)
	}
	if err := CheckQuestTransition(models.QuestStatusActive, models.QuestStatusActive); err == nil {
		t.Error("Expected ACTIVE -> ACTIVE to be rejected")
	}
	if err := CheckQuestTransition(models.QuestStatusFailed, models.QuestStatusCompleted); err == nil {
		t.Error("Expected FAILED -> COMPLETED to be rejected")
	}
}
