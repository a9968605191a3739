package services

import (
	"context"
	"fmt"

	"saku/internal/core"
	"saku/internal/log"
	"saku/internal/storage"
)

// TransferEngine performs the two compound money movements: pocket to
// pocket, and pocket to goal. Each runs as a single transaction, retried on
// write conflicts.
type TransferEngine struct {
	*deps
	retry RetryPolicy
}

// TransferBetweenPockets records an outflow on src and an inflow on dst
// sharing one correlation id and timestamp. Pockets may go negative.
func (e *TransferEngine) TransferBetweenPockets(ctx context.Context, owner string, src, dst int64, amount core.Money) (core.Transfer, error) {
	if err := requireOwner(owner); err != nil {
		return core.Transfer{}, err
	}
	if err := amount.Validate(); err != nil {
		return core.Transfer{}, err
	}
	if src == dst {
		return core.Transfer{}, core.NewValidationError("destination_pocket_id", "must differ from the source pocket")
	}

	var result core.Transfer
	err := e.withRetry(ctx, e.retry, "transfer between pockets", func() error {
		return e.store.Update(ctx, func(tx storage.Tx) error {
			from, err := tx.GetPocket(ctx, owner, src)
			if err != nil {
				return err
			}
			to, err := tx.GetPocket(ctx, owner, dst)
			if err != nil {
				return err
			}

			now := e.timestamp()
			correlationID := e.newID()
			out, err := tx.InsertEntry(ctx, core.Entry{
				Owner:         owner,
				Description:   "Transfer to " + to.Name,
				Amount:        amount,
				Kind:          core.Outflow,
				PocketID:      from.ID,
				CorrelationID: correlationID,
				CreatedAt:     now,
			})
			if err != nil {
				return err
			}
			in, err := tx.InsertEntry(ctx, core.Entry{
				Owner:         owner,
				Description:   "Transfer from " + from.Name,
				Amount:        amount,
				Kind:          core.Inflow,
				PocketID:      to.ID,
				CorrelationID: correlationID,
				CreatedAt:     now,
			})
			if err != nil {
				return err
			}

			result = core.Transfer{CorrelationID: correlationID, Amount: amount, Outflow: out, Inflow: in}
			return nil
		})
	})
	if err != nil {
		e.logger.WithComponent(log.ComponentTransfer).WarnContext(ctx, "Transfer failed",
			log.NewFields().WithOwner(owner).WithOperation(log.OpTransfer).WithError(err).ToSlice()...)
		return core.Transfer{}, fmt.Errorf("transfer between pockets: %w", err)
	}

	e.logger.WithComponent(log.ComponentTransfer).InfoContext(ctx, "Transfer completed",
		log.FieldOwnerID, owner,
		log.FieldCorrelationID, result.CorrelationID,
		log.FieldAmountMinor, amount.Minor,
		"source_pocket_id", src,
		"destination_pocket_id", dst)

	e.publish(ctx, core.JournalEvent{
		Type:          core.EventTransferCompleted,
		Owner:         owner,
		EntryIDs:      []int64{result.Outflow.ID, result.Inflow.ID},
		CorrelationID: result.CorrelationID,
		PocketID:      src,
		Amount:        amount,
		OccurredAt:    result.Outflow.CreatedAt,
	})
	return result, nil
}

// FundGoal moves amount out of a pocket into a goal: one outflow entry plus
// an increment of the goal's current amount, committed together. The goal
// may end up above its target.
func (e *TransferEngine) FundGoal(ctx context.Context, owner string, goalID, pocketID int64, amount core.Money) (core.Funding, error) {
	if err := requireOwner(owner); err != nil {
		return core.Funding{}, err
	}
	if err := amount.Validate(); err != nil {
		return core.Funding{}, err
	}

	var result core.Funding
	err := e.withRetry(ctx, e.retry, "fund goal", func() error {
		return e.store.Update(ctx, func(tx storage.Tx) error {
			goal, err := tx.GetGoal(ctx, owner, goalID)
			if err != nil {
				return err
			}
			pocket, err := tx.GetPocket(ctx, owner, pocketID)
			if err != nil {
				return err
			}

			correlationID := e.newID()
			entry, err := tx.InsertEntry(ctx, core.Entry{
				Owner:         owner,
				Description:   "Saving for " + goal.Name,
				Amount:        amount,
				Kind:          core.Outflow,
				PocketID:      pocket.ID,
				CorrelationID: correlationID,
				CreatedAt:     e.timestamp(),
			})
			if err != nil {
				return err
			}
			updated, err := tx.AddToGoal(ctx, owner, goal.ID, amount)
			if err != nil {
				return err
			}

			result = core.Funding{CorrelationID: correlationID, Entry: entry, Goal: updated}
			return nil
		})
	})
	if err != nil {
		e.logger.WithComponent(log.ComponentTransfer).WarnContext(ctx, "Goal funding failed",
			log.NewFields().WithOwner(owner).WithOperation(log.OpFund).WithError(err).ToSlice()...)
		return core.Funding{}, fmt.Errorf("fund goal: %w", err)
	}

	e.logger.WithComponent(log.ComponentTransfer).InfoContext(ctx, "Goal funded",
		log.FieldOwnerID, owner,
		log.FieldGoalID, goalID,
		log.FieldPocketID, pocketID,
		log.FieldCorrelationID, result.CorrelationID,
		log.FieldAmountMinor, amount.Minor)

	e.publish(ctx, core.JournalEvent{
		Type:          core.EventGoalFunded,
		Owner:         owner,
		EntryIDs:      []int64{result.Entry.ID},
		CorrelationID: result.CorrelationID,
		PocketID:      pocketID,
		GoalID:        goalID,
		Amount:        amount,
		OccurredAt:    result.Entry.CreatedAt,
	})
	return result, nil
}
