package kinesis

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"freight-service/internal/storage"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kinesis"
)

// KinesisAPI interface for mocking
type KinesisAPI interface {
	PutRecord(ctx context.Context, params *kinesis.PutRecordInput, optFns ...func(*kinesis.Options)) (*kinesis.PutRecordOutput, error)
	DescribeStream(ctx context.Context, params *kinesis.DescribeStreamInput, optFns ...func(*kinesis.Options)) (*kinesis.DescribeStreamOutput, error)
	GetShardIterator(ctx context.Context, params *kinesis.GetShardIteratorInput, optFns ...func(*kinesis.Options)) (*kinesis.GetShardIteratorOutput, error)
	GetRecords(ctx context.Context, params *kinesis.GetRecordsInput, optFns ...func(*kinesis.Options)) (*kinesis.GetRecordsOutput, error)
}

// Streamer publishes load lifecycle events
type Streamer struct {
	client     KinesisAPI
	streamName string
}

// LoadEvent is the record written for every load change
type LoadEvent struct {
	LoadID        string    `json:"load_id"`
	TruckID       string    `json:"truck_id"`
	EventType     string    `json:"event_type"` // created, recalculated, in_transit, delivered, cancelled
	Timestamp     time.Time `json:"timestamp"`
	Status        string    `json:"status"`
	Origin        string    `json:"origin,omitempty"`
	Destination   string    `json:"destination,omitempty"`
	Pay           float64   `json:"pay"`
	Miles         float64   `json:"miles"`
	DeadheadMiles float64   `json:"deadhead_miles"`
	CostPerMile   float64   `json:"cost_per_mile"`
	Profit        float64   `json:"profit"`
	IsProfitable  bool      `json:"is_profitable"`
}

func NewStreamer(client KinesisAPI, streamName string) *Streamer {
	return &Streamer{
		client:     client,
		streamName: streamName,
	}
}

// StreamLoadEvent writes a load event partitioned by load ID. Failures are logged.
func (s *Streamer) StreamLoadEvent(ctx context.Context, eventType string, load *storage.Load) {
	if s == nil || s.client == nil {
		return // Kinesis not enabled
	}

	event := LoadEvent{
		LoadID:        load.ID,
		TruckID:       load.TruckID,
		EventType:     eventType,
		Timestamp:     time.Now().UTC(),
		Status:        load.Status,
		Origin:        load.Origin,
		Destination:   load.Destination,
		Pay:           load.Pay,
		Miles:         load.Miles,
		DeadheadMiles: load.DeadheadMiles,
	}
	if load.Calculation != nil {
		event.CostPerMile = load.Calculation.CostPerMile
		event.Profit = load.Calculation.Profit
		event.IsProfitable = load.Calculation.IsProfitable
	}

	data, err := json.Marshal(event)
	if err != nil {
		slog.Error("Failed to marshal load event", "load_id", load.ID, "error", err)
		return
	}

	_, err = s.client.PutRecord(ctx, &kinesis.PutRecordInput{
		StreamName:   aws.String(s.streamName),
		Data:         data,
		PartitionKey: aws.String(load.ID),
	})

	if err != nil {
		slog.Error("Failed to stream load event", "load_id", load.ID, "event_type", eventType, "error", err)
	} else {
		slog.Debug("Streamed load event", "load_id", load.ID, "event_type", eventType)
	}
}
