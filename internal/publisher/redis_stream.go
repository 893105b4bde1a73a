package publisher

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
)

// Stream names
const (
	SyncEventsStream         = "pitchside.sync.events"
	PredictionRequestsStream = "pitchside.predictions.requests"

	streamMaxLen = 10000
)

// SyncEvent summarizes one job run within a cadence.
type SyncEvent struct {
	RunID      string    `json:"run_id"`
	Cadence    string    `json:"cadence"`
	Job        string    `json:"job"`
	League     string    `json:"league,omitempty"`
	Succeeded  int       `json:"succeeded"`
	Skipped    int       `json:"skipped"`
	Failed     int       `json:"failed"`
	Structural bool      `json:"structural_change,omitempty"`
	Error      string    `json:"error,omitempty"`
	At         time.Time `json:"at"`
}

// EventSink receives sync events
type EventSink interface {
	PublishSyncEvent(ctx context.Context, ev SyncEvent) error
}

// RedisStreamPublisher publishes sync events and prediction requests to
// Redis streams.
type RedisStreamPublisher struct {
	client *redis.Client
}

// NewRedisStreamPublisher creates a new Redis stream publisher from existing client
func NewRedisStreamPublisher(client *redis.Client) *RedisStreamPublisher {
	return &RedisStreamPublisher{
		client: client,
	}
}

// PublishSyncEvent appends ev to the sync event stream
func (rsp *RedisStreamPublisher) PublishSyncEvent(ctx context.Context, ev SyncEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	return rsp.client.XAdd(ctx, &redis.XAddArgs{
		Stream: SyncEventsStream,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]interface{}{
			"job":       ev.Job,
			"data":      string(data),
			"timestamp": ev.At.Unix(),
		},
	}).Err()
}

// PredictLineup hands a (match, team) pair to the prediction workers. The
// request is fire-and-forget; the workers write lineup_predictions.
func (rsp *RedisStreamPublisher) PredictLineup(ctx context.Context, matchID, teamID int64) error {
	err := rsp.client.XAdd(ctx, &redis.XAddArgs{
		Stream: PredictionRequestsStream,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]interface{}{
			"match_id":  strconv.FormatInt(matchID, 10),
			"team_id":   strconv.FormatInt(teamID, 10),
			"timestamp": time.Now().Unix(),
		},
	}).Err()
	if err != nil {
		return crerr.Wrapf(err, "request prediction for match %d team %d", matchID, teamID)
	}
	return nil
}

// Fanout delivers each event to every sink. A failing sink does not stop
// delivery to the rest; the first error is returned.
type Fanout []EventSink

func (f Fanout) PublishSyncEvent(ctx context.Context, ev SyncEvent) error {
	var first error
	for _, sink := range f {
		if sink == nil {
			continue
		}
		if err := sink.PublishSyncEvent(ctx, ev); err != nil && first == nil {
			first = err
		}
	}
	return first
}
