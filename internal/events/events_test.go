package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/templui/goalpulse/internal/model"
)

type recordingWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func TestNewProducer_Validation(t *testing.T) {
	_, err := NewProducer(nil, "goal-events")
	assert.Error(t, err)
	_, err = NewProducer([]string{"localhost:9092"}, "")
	assert.Error(t, err)

	p, err := NewProducer([]string{"localhost:9092"}, "goal-events")
	require.NoError(t, err)
	assert.NoError(t, p.Close())
}

func TestNotifier_PublishesKeyedEvents(t *testing.T) {
	w := &recordingWriter{}
	at := time.Date(2026, 3, 11, 15, 30, 0, 0, time.UTC)
	n := &Notifier{
		pub: &Producer{writer: w, topic: "goal-events", writeTimeout: time.Second},
		now: func() time.Time { return at },
	}

	goal := &model.Goal{ID: "g-1", UserID: "u-1", CurrentValue: 500}
	require.NoError(t, n.MilestoneAchieved(context.Background(), goal, &model.Milestone{ID: "m-1", MilestonePercentage: 50}))
	goal.CurrentValue = 1000
	require.NoError(t, n.GoalCompleted(context.Background(), goal))

	require.Len(t, w.msgs, 2)
	for _, m := range w.msgs {
		assert.Equal(t, "g-1", string(m.Key))
	}

	var milestone, completed Event
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &milestone))
	require.NoError(t, json.Unmarshal(w.msgs[1].Value, &completed))

	assert.Equal(t, Event{
		Type: TypeMilestoneAchieved, GoalID: "g-1", UserID: "u-1",
		MilestoneID: "m-1", Percentage: 50, Value: 500, OccurredAt: at,
	}, milestone)
	assert.Equal(t, TypeGoalCompleted, completed.Type)
	assert.Equal(t, 1000.0, completed.Value)
	assert.Empty(t, completed.MilestoneID)
}

func TestNotifier_ReturnsWriteErrors(t *testing.T) {
	w := &recordingWriter{err: errors.New("leader not available")}
	n := &Notifier{pub: &Producer{writer: w, topic: "goal-events", writeTimeout: time.Second}, now: time.Now}

	err := n.GoalCompleted(context.Background(), &model.Goal{ID: "g"})
	assert.ErrorContains(t, err, "leader not available")
	assert.ErrorContains(t, err, "goal-events")
}
