package kinesis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"freight-service/internal/service"
	"freight-service/internal/storage"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kinesis"
	"github.com/aws/aws-sdk-go-v2/service/kinesis/types"
)

// FuelRecorder stores fuel purchases decoded from the stream
type FuelRecorder interface {
	RecordPurchase(ctx context.Context, req service.RecordPurchaseRequest) (*storage.FuelPurchase, error)
}

// FuelCardTransaction is a fuel-card swipe as published by the card provider feed
type FuelCardTransaction struct {
	TransactionID  string    `json:"transaction_id"`
	TruckID        string    `json:"truck_id"`
	Gallons        float64   `json:"gallons"`
	PricePerGallon float64   `json:"price_per_gallon"`
	Odometer       float64   `json:"odometer,omitempty"`
	Location       string    `json:"location,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// Consumer reads fuel-card transactions from every shard of a stream.
// Records are read from the start of each shard; transaction IDs make
// redelivered records harmless. An expired iterator is replaced with one
// positioned after the last record read.
type Consumer struct {
	client       KinesisAPI
	streamName   string
	recorder     FuelRecorder
	pollInterval time.Duration
	wg           sync.WaitGroup
}

func NewConsumer(client KinesisAPI, streamName string, recorder FuelRecorder, pollInterval time.Duration) *Consumer {
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	return &Consumer{
		client:       client,
		streamName:   streamName,
		recorder:     recorder,
		pollInterval: pollInterval,
	}
}

// Start begins polling every shard until ctx is cancelled
func (c *Consumer) Start(ctx context.Context) error {
	slog.Info("Starting Kinesis consumer", "stream", c.streamName)

	describeOutput, err := c.client.DescribeStream(ctx, &kinesis.DescribeStreamInput{
		StreamName: aws.String(c.streamName),
	})
	if err != nil {
		return fmt.Errorf("failed to describe stream %s: %w", c.streamName, err)
	}

	for _, shard := range describeOutput.StreamDescription.Shards {
		c.wg.Add(1)
		go func(shardID string) {
			defer c.wg.Done()
			c.processShard(ctx, shardID)
		}(aws.ToString(shard.ShardId))
	}

	return nil
}

// Wait blocks until every shard reader has stopped
func (c *Consumer) Wait() {
	c.wg.Wait()
}

func (c *Consumer) processShard(ctx context.Context, shardID string) {
	slog.Info("Processing shard", "shard_id", shardID)

	var (
		shardIterator *string
		lastSequence  string
		stale         = true
	)

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		if stale {
			it, err := c.shardIterator(ctx, shardID, lastSequence)
			switch {
			case err == nil:
				shardIterator, stale = it, false
			case ctx.Err() != nil:
				return
			default:
				slog.Error("Failed to get shard iterator", "error", err, "shard_id", shardID, "after_sequence", lastSequence)
			}
		}

		if !stale {
			if shardIterator == nil {
				slog.Info("Shard closed", "shard_id", shardID)
				return
			}

			recordsOutput, err := c.client.GetRecords(ctx, &kinesis.GetRecordsInput{
				ShardIterator: shardIterator,
			})

			var expired *types.ExpiredIteratorException
			switch {
			case err == nil:
				for _, record := range recordsOutput.Records {
					c.processRecord(ctx, record)
					lastSequence = aws.ToString(record.SequenceNumber)
				}
				shardIterator = recordsOutput.NextShardIterator
			case ctx.Err() != nil:
				return
			case errors.As(err, &expired):
				slog.Warn("Shard iterator expired, re-acquiring", "shard_id", shardID, "after_sequence", lastSequence)
				stale = true
				continue
			default:
				slog.Error("Failed to get records", "error", err, "shard_id", shardID)
			}
		}

		select {
		case <-ctx.Done():
			slog.Info("Stopping shard processing", "shard_id", shardID)
			return
		case <-ticker.C:
		}
	}
}

// shardIterator starts at the trim horizon, or just after afterSequence once
// records have been read from the shard.
func (c *Consumer) shardIterator(ctx context.Context, shardID, afterSequence string) (*string, error) {
	input := &kinesis.GetShardIteratorInput{
		StreamName:        aws.String(c.streamName),
		ShardId:           aws.String(shardID),
		ShardIteratorType: types.ShardIteratorTypeTrimHorizon,
	}
	if afterSequence != "" {
		input.ShardIteratorType = types.ShardIteratorTypeAfterSequenceNumber
		input.StartingSequenceNumber = aws.String(afterSequence)
	}

	output, err := c.client.GetShardIterator(ctx, input)
	if err != nil {
		return nil, err
	}
	return output.ShardIterator, nil
}

// processRecord stores one transaction. Bad records are logged and skipped.
func (c *Consumer) processRecord(ctx context.Context, record types.Record) {
	var txn FuelCardTransaction
	if err := json.Unmarshal(record.Data, &txn); err != nil {
		slog.Error("Failed to unmarshal fuel card record", "sequence_number", aws.ToString(record.SequenceNumber), "error", err)
		return
	}

	_, err := c.recorder.RecordPurchase(ctx, service.RecordPurchaseRequest{
		ID:             txn.TransactionID,
		TruckID:        txn.TruckID,
		Gallons:        txn.Gallons,
		PricePerGallon: txn.PricePerGallon,
		Odometer:       txn.Odometer,
		Location:       txn.Location,
		PurchasedAt:    txn.Timestamp,
	})

	var validation *service.ValidationError
	switch {
	case err == nil:
		slog.Debug("Recorded fuel card transaction", "transaction_id", txn.TransactionID, "truck_id", txn.TruckID)
	case errors.Is(err, storage.ErrAlreadyExists):
		slog.Debug("Skipping duplicate fuel card transaction", "transaction_id", txn.TransactionID)
	case errors.As(err, &validation), errors.Is(err, storage.ErrNotFound):
		slog.Warn("Rejected fuel card transaction", "transaction_id", txn.TransactionID, "truck_id", txn.TruckID, "error", err)
	default:
		slog.Error("Failed to record fuel card transaction", "transaction_id", txn.TransactionID, "error", err)
	}
}
