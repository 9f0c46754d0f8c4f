package job

import (
	"context"
	"log"
	"time"

	"aichat/internal/config"
	"aichat/internal/infrastructure/mq"
	"aichat/internal/model"
	"aichat/internal/repository"

	"gorm.io/gorm"
)

// EventPublisher 扫描 outbox 表并将计费/聊天事件投递到 Kafka
type EventPublisher struct {
	db         *gorm.DB
	outboxRepo *repository.OutboxRepository
	cfg        *config.Config
	stopCh     chan struct{}
	interval   time.Duration
	batchSize  int
}

func NewEventPublisher(db *gorm.DB, cfg *config.Config) *EventPublisher {
	return &EventPublisher{
		db:         db,
		outboxRepo: repository.NewOutboxRepository(db),
		cfg:        cfg,
		stopCh:     make(chan struct{}),
		interval:   200 * time.Millisecond,
		batchSize:  100,
	}
}

func (p *EventPublisher) Start(ctx context.Context) {
	log.Println("[EventPublisher] 事件投递任务启动")

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[EventPublisher] 收到停止信号，任务退出")
			return
		case <-p.stopCh:
			log.Println("[EventPublisher] 任务停止")
			return
		case <-ticker.C:
			p.publishPending(ctx)
		}
	}
}

func (p *EventPublisher) Stop() {
	close(p.stopCh)
}

func (p *EventPublisher) publishPending(ctx context.Context) {
	events, err := p.outboxRepo.GetPendingMessages(ctx, p.batchSize)
	if err != nil {
		log.Printf("[EventPublisher] 查询待投递事件失败: %v", err)
		return
	}

	for _, ev := range events {
		p.publish(ctx, ev)
	}
}

func (p *EventPublisher) publish(ctx context.Context, ev *model.OutboxMessage) {
	if err := mq.SendMessage(ev.Topic, ev.MessageKey, ev.Payload); err != nil {
		log.Printf("[EventPublisher] 事件投递失败: id=%d, key=%s, err=%v", ev.ID, ev.MessageKey, err)
		p.handleFailure(ctx, ev)
		return
	}

	if err := p.outboxRepo.UpdateStatus(ctx, ev.ID, model.OutboxStatusSent); err != nil {
		log.Printf("[EventPublisher] 更新事件状态失败: id=%d, err=%v", ev.ID, err)
		return
	}
	log.Printf("[EventPublisher] 事件已投递: id=%d, topic=%s, key=%s", ev.ID, ev.Topic, ev.MessageKey)
}

func (p *EventPublisher) handleFailure(ctx context.Context, ev *model.OutboxMessage) {
	if err := p.outboxRepo.IncrementRetryCount(ctx, ev.ID); err != nil {
		log.Printf("[EventPublisher] 增加重试次数失败: id=%d, err=%v", ev.ID, err)
	}

	if ev.RetryCount+1 < p.cfg.Job.OutboxMaxRetryCount {
		return
	}

	if err := p.outboxRepo.MarkAsFailed(ctx, ev.ID); err != nil {
		log.Printf("[EventPublisher] 标记失败状态失败: id=%d, err=%v", ev.ID, err)
	} else {
		log.Printf("[EventPublisher] 事件重试超限，标记为失败: id=%d, key=%s", ev.ID, ev.MessageKey)
	}
}
