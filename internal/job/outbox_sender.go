package job

import (
	"context"
	"time"

	"bookswap/internal/config"
	"bookswap/internal/infrastructure/mq"
	"bookswap/internal/model"
	"bookswap/internal/repository"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// OutboxSender 轮询 outbox 表，把账本事件投递到消息队列
type OutboxSender struct {
	outboxRepo *repository.OutboxRepository
	publisher  mq.Publisher
	stopCh     chan struct{}
	interval   time.Duration
	batchSize  int
	maxRetry   int
	log        *logrus.Entry
}

func NewOutboxSender(db *gorm.DB, publisher mq.Publisher, cfg *config.Config, log *logrus.Logger) *OutboxSender {
	return &OutboxSender{
		outboxRepo: repository.NewOutboxRepository(db),
		publisher:  publisher,
		stopCh:     make(chan struct{}),
		interval:   cfg.Jobs.OutboxInterval,
		batchSize:  cfg.Jobs.OutboxBatchSize,
		maxRetry:   cfg.Jobs.MaxRetryCount,
		log:        log.WithField("component", "OutboxSender"),
	}
}

func (s *OutboxSender) Start(ctx context.Context) {
	s.log.Info("消息发送任务启动")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("收到停止信号，任务退出")
			return
		case <-s.stopCh:
			s.log.Info("任务停止")
			return
		case <-ticker.C:
			s.ProcessPending(ctx)
		}
	}
}

func (s *OutboxSender) Stop() {
	close(s.stopCh)
}

// ProcessPending 投递一批待发送消息，返回成功条数。
// 同一 key 的消息失败后，本批次内该 key 的后续消息留到下一轮，保证单个钱包的事件顺序。
func (s *OutboxSender) ProcessPending(ctx context.Context) int {
	messages, err := s.outboxRepo.GetPending(ctx, s.batchSize)
	if err != nil {
		s.log.WithError(err).Error("查询消息失败")
		return 0
	}

	sent := 0
	blocked := make(map[string]bool)
	for _, msg := range messages {
		if blocked[msg.MessageKey] {
			continue
		}
		if s.send(ctx, msg) {
			sent++
		} else {
			blocked[msg.MessageKey] = true
		}
	}
	return sent
}

func (s *OutboxSender) send(ctx context.Context, msg *model.OutboxMessage) bool {
	log := s.log.WithFields(logrus.Fields{
		"id":    msg.ID,
		"topic": msg.Topic,
		"key":   msg.MessageKey,
		"event": msg.EventType,
	})

	err := s.publisher.Publish(ctx, msg.Topic, msg.MessageKey, msg.Payload)
	if err == nil {
		if updateErr := s.outboxRepo.MarkSent(ctx, msg.ID); updateErr != nil {
			log.WithError(updateErr).Error("更新消息状态失败")
		} else {
			log.Debug("消息发送成功")
		}
		return true
	}

	log.WithError(err).Warn("消息发送失败")

	if err := s.outboxRepo.RecordFailure(ctx, msg, s.maxRetry); err != nil {
		log.WithError(err).Error("记录重试次数失败")
	} else if msg.RetryCount+1 >= s.maxRetry {
		log.Error("消息超过最大重试次数，标记为失败")
	}
	return false
}
