// Package state guards quest status transitions.
package state

import (
	"errors"
	"fmt"
	"sync"

	"github.com/wfunc/sololeveling/models"
)

// ErrTransitionNotAllowed is returned when a state transition is not allowed.
var ErrTransitionNotAllowed = errors.New("state transition not allowed")

type StateMachine interface {
	ChangeState(to models.QuestStatus) error
	GetCurrentState() models.QuestStatus
	AddTransition(from, to models.QuestStatus, condition func() bool)
}

// BaseStateMachine only permits registered transitions whose condition, if
// any, holds at the time of the change.
type BaseStateMachine struct {
	currentState models.QuestStatus
	transitions  map[models.QuestStatus]map[models.QuestStatus]func() bool
	mutex        sync.RWMutex
}

func NewBaseStateMachine(initial models.QuestStatus) *BaseStateMachine {
	return &BaseStateMachine{
		currentState: initial,
		transitions:  make(map[models.QuestStatus]map[models.QuestStatus]func() bool),
	}
}

// NewQuestMachine registers the quest lifecycle: ACTIVE may move to COMPLETED
// or FAILED, and both are terminal. A PENDING quest can start or fail but
// never complete directly.
func NewQuestMachine(current models.QuestStatus) *BaseStateMachine {
	sm := NewBaseStateMachine(current)
	sm.AddTransition(models.QuestStatusPending, models.QuestStatusActive, nil)
	sm.AddTransition(models.QuestStatusPending, models.QuestStatusFailed, nil)
	sm.AddTransition(models.QuestStatusActive, models.QuestStatusCompleted, nil)
	sm.AddTransition(models.QuestStatusActive, models.QuestStatusFailed, nil)
	return sm
}

func (sm *BaseStateMachine) ChangeState(to models.QuestStatus) error {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	conditions, ok := sm.transitions[sm.currentState]
	if !ok {
		return fmt.Errorf("%w: %s is terminal", ErrTransitionNotAllowed, sm.currentState)
	}
	condition, ok := conditions[to]
	if !ok {
		return fmt.Errorf("%w: %s -> %s", ErrTransitionNotAllowed, sm.currentState, to)
	}
	if condition != nil && !condition() {
		return fmt.Errorf("%w: %s -> %s rejected", ErrTransitionNotAllowed, sm.currentState, to)
	}

	sm.currentState = to
	return nil
}

func (sm *BaseStateMachine) GetCurrentState() models.QuestStatus {
	sm.mutex.RLock()
	defer sm.mutex.RUnlock()
	return sm.currentState
}

func (sm *BaseStateMachine) AddTransition(from, to models.QuestStatus, condition func() bool) {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	if _, exists := sm.transitions[from]; !exists {
		sm.transitions[from] = make(map[models.QuestStatus]func() bool)
	}
	sm.transitions[from][to] = condition
}

// CheckQuestTransition reports whether a quest in status from may move to to.
func CheckQuestTransition(from, to models.QuestStatus) error {
	return NewQuestMachine(from).ChangeState(to)
}
