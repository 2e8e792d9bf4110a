// Package participation keeps the two halves of mission membership in step:
// a mission's participants list and each user's active missions.
//
// Every write touches both documents. On a replica set the pair runs in one
// transaction. On a standalone server the writes run in sequence and a
// failure on the second side is undone on the first; if that undo fails too
// the caller gets a KindPartial error.
package participation

import (
	"context"

	"github.com/civicapp/civichub/internal/app/system/apperr"
	"github.com/civicapp/civichub/internal/app/system/timeouts"
	"github.com/civicapp/civichub/internal/app/system/txn"
	"github.com/civicapp/civichub/internal/domain/models"
	"go.uber.org/zap"
)

// DefaultPointsPerMission is awarded to each participant when a mission completes.
const DefaultPointsPerMission = 10

// Missions is the mission-side store.
type Missions interface {
	GetByID(ctx context.Context, id string) (*models.Mission, error)
	AddParticipant(ctx context.Context, missionID, userID string, enforceCapacity bool) (bool, error)
	RemoveParticipant(ctx context.Context, missionID, userID string) (bool, error)
	UpdateStatus(ctx context.Context, missionID, creatorID, status string) (bool, error)
}

// Users is the user-side store.
type Users interface {
	AddActiveMission(ctx context.Context, userID, missionID string) error
	RemoveActiveMission(ctx context.Context, userID, missionID string) error
	IncrementPoints(ctx context.Context, userID string, delta int64) error
	IncrementCompleted(ctx context.Context, userID string) error
}

// TxRunner runs fn, inside a transaction when it can. *txn.Runner satisfies it.
type TxRunner interface {
	Run(ctx context.Context, fn func(ctx context.Context) error) error
}

// Options tune the coordinator.
type Options struct {
	// EnforceCapacity rejects joins once max_participants is reached.
	EnforceCapacity bool
	// PointsPerMission is awarded on completion. Zero means DefaultPointsPerMission.
	PointsPerMission int64
}

// Coordinator composes the mission and user stores.
type Coordinator struct {
	missions Missions
	users    Users
	tx       TxRunner
	opts     Options
	log      *zap.Logger
}

// New returns a Coordinator. A nil logger is replaced by a no-op one.
func New(missions Missions, users Users, tx TxRunner, opts Options, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.PointsPerMission == 0 {
		opts.PointsPerMission = DefaultPointsPerMission
	}
	return &Coordinator{missions: missions, users: users, tx: tx, opts: opts, log: logger}
}

var errIDsRequired = apperr.Validation("user id and mission id are required")

// Join adds userID to the mission and the mission to the user. Joining twice
// is a success and changes nothing the second time.
func (c *Coordinator) Join(ctx context.Context, userID, missionID string) error {
	if userID == "" || missionID == "" {
		return errIDsRequired
	}
	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Long(), c.log, "join mission")
	defer cancel()

	return c.tx.Run(ctx, func(ctx context.Context) error {
		added, err := c.missions.AddParticipant(ctx, missionID, userID, c.opts.EnforceCapacity)
		if err != nil {
			return err
		}
		if err := c.users.AddActiveMission(ctx, userID, missionID); err != nil {
			if !added || txn.InTransaction(ctx) {
				return err
			}
			return c.compensate(ctx, "join", userID, missionID, err, func(ctx context.Context) error {
				_, undoErr := c.missions.RemoveParticipant(ctx, missionID, userID)
				return undoErr
			})
		}
		return nil
	})
}

// Leave removes userID from the mission and the mission from the user.
// Leaving a mission the user is not in is a success.
func (c *Coordinator) Leave(ctx context.Context, userID, missionID string) error {
	if userID == "" || missionID == "" {
		return errIDsRequired
	}
	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Long(), c.log, "leave mission")
	defer cancel()

	return c.tx.Run(ctx, func(ctx context.Context) error {
		removed, err := c.missions.RemoveParticipant(ctx, missionID, userID)
		if err != nil {
			return err
		}
		if err := c.users.RemoveActiveMission(ctx, userID, missionID); err != nil {
			if !removed || txn.InTransaction(ctx) {
				return err
			}
			return c.compensate(ctx, "leave", userID, missionID, err, func(ctx context.Context) error {
				_, undoErr := c.missions.AddParticipant(ctx, missionID, userID, false)
				return undoErr
			})
		}
		return nil
	})
}

// Complete marks the mission completed and credits every participant with
// points and one completed mission. Only the creator may complete a mission;
// completing it again awards nothing.
func (c *Coordinator) Complete(ctx context.Context, creatorID, missionID string) error {
	if creatorID == "" || missionID == "" {
		return errIDsRequired
	}
	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Long(), c.log, "complete mission")
	defer cancel()

	return c.tx.Run(ctx, func(ctx context.Context) error {
		changed, err := c.missions.UpdateStatus(ctx, missionID, creatorID, models.MissionCompleted)
		if err != nil || !changed {
			return err
		}
		m, err := c.missions.GetByID(ctx, missionID)
		if err != nil {
			return err
		}

		var failed []string
		for _, userID := range m.Participants {
			err := c.users.IncrementPoints(ctx, userID, c.opts.PointsPerMission)
			if err == nil {
				err = c.users.IncrementCompleted(ctx, userID)
			}
			switch {
			case err == nil:
			case apperr.KindOf(err) == apperr.KindNotFound:
				// Account deleted since joining.
				c.log.Debug("skipping award for missing user",
					zap.String("user_id", userID), zap.String("mission_id", missionID))
			case txn.InTransaction(ctx):
				return err
			default:
				failed = append(failed, userID)
				c.log.Error("award failed after mission completed",
					zap.String("user_id", userID),
					zap.String("mission_id", missionID),
					zap.Error(err))
			}
		}
		if len(failed) > 0 {
			return apperr.New(apperr.KindPartial, "mission completed but some participants were not credited")
		}
		return nil
	})
}

// compensate runs undo after the second write of a pair failed. It returns
// cause when the undo worked, and a KindPartial error when it did not.
func (c *Coordinator) compensate(ctx context.Context, op, userID, missionID string, cause error, undo func(ctx context.Context) error) error {
	c.log.Warn("participation write failed; undoing mission side",
		zap.String("op", op),
		zap.String("user_id", userID),
		zap.String("mission_id", missionID),
		zap.Error(cause))

	if err := undo(ctx); err != nil {
		c.log.Error("participation left inconsistent",
			zap.String("op", op),
			zap.String("user_id", userID),
			zap.String("mission_id", missionID),
			zap.NamedError("cause", cause),
			zap.NamedError("undo_error", err))
		return apperr.Wrap(apperr.KindPartial, cause, op+" applied to the mission only")
	}
	return cause
}
