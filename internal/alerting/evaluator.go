package alerting

import (
	"context"
	"fmt"
	"time"

	"github.com/mkugel/radiation-server/internal/database"
	"github.com/mkugel/radiation-server/internal/protocol"
	"github.com/mkugel/radiation-server/internal/queue"
)

// Evaluator compares incoming readings against the network-wide mean and
// manages alert state. A sensor enters PENDING_ALERT when its counts per
// minute exceed MeanFactor times the mean of all positive readings, and
// ALERTING once the breach has lasted PendingDuration.
type Evaluator struct {
	db              *database.DB
	stateManager    *StateManager
	alertProducer   *queue.Producer
	meanFactor      float64
	pendingDuration time.Duration

	cachedMean   float64
	lastMeanLoad time.Time
	meanValidity time.Duration
}

// NewEvaluator creates a new alert evaluator
func NewEvaluator(db *database.DB, stateManager *StateManager, alertProducer *queue.Producer, meanFactor float64, pendingDuration time.Duration) *Evaluator {
	return &Evaluator{
		db:              db,
		stateManager:    stateManager,
		alertProducer:   alertProducer,
		meanFactor:      meanFactor,
		pendingDuration: pendingDuration,
		meanValidity:    5 * time.Minute,
	}
}

// EvaluateReading evaluates a single reading message
func (e *Evaluator) EvaluateReading(ctx context.Context, msg *protocol.ReadingMessage) error {
	cpm := msg.Reading.CountsPerMinute
	if cpm == nil || *cpm <= 0 {
		// No usable counts per minute, nothing to evaluate
		return nil
	}

	networkMean, err := e.getNetworkMean()
	if err != nil {
		return fmt.Errorf("failed to get network mean: %w", err)
	}
	if networkMean <= 0 {
		return nil
	}

	state, err := e.stateManager.GetState(ctx, msg.Reading.SensorID)
	if err != nil {
		return err
	}

	now := time.Now()
	breached := Breached(*cpm, networkMean, e.meanFactor)

	if breached {
		return e.handleBreach(ctx, msg, *cpm, networkMean, state, now)
	}
	return e.handleNoBreach(ctx, msg, state)
}

// Breached reports whether cpm exceeds factor times the network mean
func Breached(cpm, networkMean, factor float64) bool {
	return cpm > factor*networkMean
}

func (e *Evaluator) handleBreach(ctx context.Context, msg *protocol.ReadingMessage, cpm, networkMean float64, state *AlertState, now time.Time) error {
	switch state.Status {
	case AlertStateClear:
		// New breach detected
		newState := &AlertState{
			Status:          AlertStatePending,
			BreachStartTime: now,
			LastChecked:     now,
			BreachCPM:       cpm,
			NetworkMean:     networkMean,
		}
		return e.stateManager.SetState(ctx, msg.Reading.SensorID, newState)

	case AlertStatePending:
		if now.Sub(state.BreachStartTime) >= e.pendingDuration {
			return e.triggerAlert(ctx, msg, cpm, networkMean, state, now)
		}

		state.LastChecked = now
		state.BreachCPM = cpm
		state.NetworkMean = networkMean
		return e.stateManager.SetState(ctx, msg.Reading.SensorID, state)

	case AlertStateActive:
		// Alert already active, update last checked
		state.LastChecked = now
		state.BreachCPM = cpm
		return e.stateManager.SetState(ctx, msg.Reading.SensorID, state)
	}

	return nil
}

func (e *Evaluator) handleNoBreach(ctx context.Context, msg *protocol.ReadingMessage, state *AlertState) error {
	switch state.Status {
	case AlertStateClear:
		// Nothing to do
		return nil

	case AlertStatePending:
		// Breach ended before the alert triggered
		return e.stateManager.DeleteState(ctx, msg.Reading.SensorID)

	case AlertStateActive:
		return e.clearAlert(ctx, msg, state)
	}

	return nil
}

func (e *Evaluator) triggerAlert(ctx context.Context, msg *protocol.ReadingMessage, cpm, networkMean float64, state *AlertState, now time.Time) error {
	fmt.Printf("🚨 ALERT TRIGGERED: sensor=%d type=%s cpm=%.1f network_mean=%.1f\n",
		msg.Reading.SensorID, msg.Reading.SensorType, cpm, networkMean)

	state.Status = AlertStateActive
	state.LastChecked = now
	state.BreachCPM = cpm
	state.NetworkMean = networkMean
	if err := e.stateManager.SetState(ctx, msg.Reading.SensorID, state); err != nil {
		return err
	}

	notification := &protocol.AlertNotification{
		Type:            protocol.AlertTypeTriggered,
		SensorID:        msg.Reading.SensorID,
		SensorType:      msg.Reading.SensorType,
		CountsPerMinute: cpm,
		NetworkMean:     networkMean,
		MeanFactor:      e.meanFactor,
		StartTime:       state.BreachStartTime,
	}

	return e.sendNotification(ctx, notification)
}

func (e *Evaluator) clearAlert(ctx context.Context, msg *protocol.ReadingMessage, state *AlertState) error {
	fmt.Printf("✅ ALERT CLEARED: sensor=%d type=%s\n",
		msg.Reading.SensorID, msg.Reading.SensorType)

	if err := e.stateManager.DeleteState(ctx, msg.Reading.SensorID); err != nil {
		return err
	}

	notification := &protocol.AlertNotification{
		Type:        protocol.AlertTypeCleared,
		SensorID:    msg.Reading.SensorID,
		SensorType:  msg.Reading.SensorType,
		NetworkMean: state.NetworkMean,
		MeanFactor:  e.meanFactor,
		StartTime:   state.BreachStartTime,
	}

	return e.sendNotification(ctx, notification)
}

func (e *Evaluator) sendNotification(ctx context.Context, notification *protocol.AlertNotification) error {
	data, err := protocol.EncodeAlertNotification(notification)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}

	key := fmt.Sprintf("%d", notification.SensorID)
	return e.alertProducer.Publish(ctx, key, data)
}

// getNetworkMean returns the mean of positive counts per minute across all
// sensors, cached so every reading does not hit the database.
func (e *Evaluator) getNetworkMean() (float64, error) {
	if time.Since(e.lastMeanLoad) < e.meanValidity {
		return e.cachedMean, nil
	}

	mean, err := e.db.MeanPositiveCPM()
	if err != nil {
		return 0, err
	}

	e.cachedMean = mean
	e.lastMeanLoad = time.Now()

	return mean, nil
}
