package services

import (
	"context"
	"fmt"
	"strings"

	"saku/internal/core"
	"saku/internal/log"
	"saku/internal/storage"
)

// GoalLedger manages savings goals. Funding goes through TransferEngine.
type GoalLedger struct {
	*deps
}

func (g *GoalLedger) CreateGoal(ctx context.Context, owner, name string, target core.Money) (core.GoalProgress, error) {
	goal := core.Goal{Owner: owner, Name: strings.TrimSpace(name), Target: target, CreatedAt: g.timestamp()}
	if err := goal.Validate(); err != nil {
		return core.GoalProgress{}, err
	}
	err := g.store.Update(ctx, func(tx storage.Tx) error {
		var err error
		goal, err = tx.InsertGoal(ctx, goal)
		return err
	})
	if err != nil {
		return core.GoalProgress{}, fmt.Errorf("create goal: %w", err)
	}

	g.logger.WithComponent(log.ComponentGoal).InfoContext(ctx, "Goal created",
		log.FieldOwnerID, owner, log.FieldGoalID, goal.ID, log.FieldAmountMinor, target.Minor)
	return core.EvaluateGoal(goal), nil
}

func (g *GoalLedger) GetGoal(ctx context.Context, owner string, id int64) (core.GoalProgress, error) {
	if err := requireOwner(owner); err != nil {
		return core.GoalProgress{}, err
	}
	var goal core.Goal
	err := g.store.View(ctx, func(tx storage.Tx) error {
		var err error
		goal, err = tx.GetGoal(ctx, owner, id)
		return err
	})
	if err != nil {
		return core.GoalProgress{}, fmt.Errorf("get goal: %w", err)
	}
	return core.EvaluateGoal(goal), nil
}

func (g *GoalLedger) ListGoals(ctx context.Context, owner string) ([]core.GoalProgress, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	var goals []core.Goal
	err := g.store.View(ctx, func(tx storage.Tx) error {
		var err error
		goals, err = tx.ListGoals(ctx, owner)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	out := make([]core.GoalProgress, 0, len(goals))
	for _, goal := range goals {
		out = append(out, core.EvaluateGoal(goal))
	}
	return out, nil
}

// DeleteGoal removes the goal. Money already moved into it is not returned
// to any pocket.
func (g *GoalLedger) DeleteGoal(ctx context.Context, owner string, id int64) error {
	if err := requireOwner(owner); err != nil {
		return err
	}
	var discarded core.Money
	err := g.store.Update(ctx, func(tx storage.Tx) error {
		goal, err := tx.GetGoal(ctx, owner, id)
		if err != nil {
			return err
		}
		discarded = goal.Current
		return tx.DeleteGoal(ctx, owner, id)
	})
	if err != nil {
		return fmt.Errorf("delete goal: %w", err)
	}

	g.logger.WithComponent(log.ComponentGoal).InfoContext(ctx, "Goal deleted without refund",
		log.FieldOwnerID, owner, log.FieldGoalID, id, "discarded_minor", discarded.Minor)
	return nil
}
