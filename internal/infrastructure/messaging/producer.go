// Package messaging 提供消息队列实现
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("messaging")

// Producer 消息生产者
type Producer struct {
	client *redis.Client
	maxLen int64
}

// NewProducer 创建消息生产者
func NewProducer(client *redis.Client, maxLen int64) *Producer {
	if maxLen <= 0 {
		maxLen = 100000
	}
	return &Producer{
		client: client,
		maxLen: maxLen,
	}
}

// Publish 发布消息到指定流
func (p *Producer) Publish(ctx context.Context, stream Stream, msg *Message) (string, error) {
	ctx, span := tracer.Start(ctx, "producer.Publish",
		trace.WithAttributes(
			attribute.String("stream", string(stream)),
			attribute.String("message.id", msg.ID),
			attribute.String("message.type", msg.Type),
		))
	defer span.End()

	data, err := json.Marshal(msg)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to marshal message: %w", err)
	}

	result, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: string(stream),
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"data": string(data),
		},
	}).Result()

	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to publish message: %w", err)
	}

	span.SetAttributes(attribute.String("stream.message_id", result))
	return result, nil
}

// PublishRunCommand 发布迁移执行命令
func (p *Producer) PublishRunCommand(ctx context.Context, cmd *RunMigrationCommand) (string, error) {
	msg, err := NewMessage(cmd.CommandID, MessageTypeRunMigration, "", cmd)
	if err != nil {
		return "", err
	}

	msg.SetMetadata("requested_by", cmd.RequestedBy)
	if cmd.DryRun {
		msg.SetMetadata("dry_run", "true")
	}

	return p.Publish(ctx, StreamMigrationCmd, msg)
}

// PublishRollbackCommand 发布迁移回滚命令
func (p *Producer) PublishRollbackCommand(ctx context.Context, cmd *RollbackMigrationCommand) (string, error) {
	msg, err := NewMessage(cmd.CommandID, MessageTypeRollbackMigration, cmd.RunID, cmd)
	if err != nil {
		return "", err
	}

	msg.SetMetadata("requested_by", cmd.RequestedBy)
	return p.Publish(ctx, StreamMigrationCmd, msg)
}

// PublishValidateCommand 发布校验命令
func (p *Producer) PublishValidateCommand(ctx context.Context, cmd *ValidateMigrationCommand) (string, error) {
	msg, err := NewMessage(cmd.CommandID, MessageTypeValidateMigration, "", cmd)
	if err != nil {
		return "", err
	}

	msg.SetMetadata("phase", cmd.Phase)
	return p.Publish(ctx, StreamMigrationCmd, msg)
}

// PublishEvent 发布迁移生命周期事件
func (p *Producer) PublishEvent(ctx context.Context, event *MigrationEventMessage) (string, error) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	msg, err := NewMessage(event.RunID, event.Event, event.RunID, event)
	if err != nil {
		return "", err
	}

	msg.SetMetadata("stage", event.Stage)
	return p.Publish(ctx, StreamMigrationEvents, msg)
}

// RunMigrationCommand 迁移执行命令
type RunMigrationCommand struct {
	CommandID       string   `json:"command_id"`
	BatchSize       int      `json:"batch_size,omitempty"`
	DryRun          bool     `json:"dry_run"`
	SkipValidation  bool     `json:"skip_validation"`
	RollbackOnError bool     `json:"rollback_on_error"`
	BookIDs         []string `json:"book_ids,omitempty"`
	RequestedBy     string   `json:"requested_by,omitempty"`
}

// RollbackMigrationCommand 迁移回滚命令，RunID 为空时回滚最近一次可回滚的运行
type RollbackMigrationCommand struct {
	CommandID   string `json:"command_id"`
	RunID       string `json:"run_id,omitempty"`
	RequestedBy string `json:"requested_by,omitempty"`
}

// ValidateMigrationCommand 校验命令，Phase 为 before 或 after
type ValidateMigrationCommand struct {
	CommandID   string `json:"command_id"`
	Phase       string `json:"phase"`
	RequestedBy string `json:"requested_by,omitempty"`
}

// MigrationEventMessage 迁移生命周期事件
type MigrationEventMessage struct {
	RunID          string    `json:"run_id"`
	Event          string    `json:"event"`
	Stage          string    `json:"stage,omitempty"`
	Percentage     float64   `json:"percentage,omitempty"`
	ProcessedBooks int       `json:"processed_books,omitempty"`
	TotalBooks     int       `json:"total_books,omitempty"`
	Message        string    `json:"message,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}
