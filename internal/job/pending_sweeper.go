package job

import (
	"context"
	"log"
	"time"

	"aichat/internal/config"
	"aichat/internal/service"

	"gorm.io/gorm"
)

// PendingSweeper 巡检写入后始终没有拿到 AI 回复的消息
//
// 消息先落库、AI 回复后补写，两步之间进程崩溃会留下空回复的行。
// 这类行对用户表现为"无回复"，巡检只做记录，便于人工排查。
type PendingSweeper struct {
	chatService *service.ChatService
	cfg         *config.Config
	stopCh      chan struct{}
	interval    time.Duration
	batchSize   int
}

func NewPendingSweeper(db *gorm.DB, cfg *config.Config) *PendingSweeper {
	return &PendingSweeper{
		chatService: service.NewChatService(db, nil, nil, cfg),
		cfg:         cfg,
		stopCh:      make(chan struct{}),
		interval:    time.Duration(cfg.Job.PendingSweepMinutes) * time.Minute,
		batchSize:   100,
	}
}

func (j *PendingSweeper) Start(ctx context.Context) {
	log.Printf("[PendingSweeper] 未回复消息巡检启动, 间隔 %v", j.interval)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[PendingSweeper] 收到停止信号，任务退出")
			return
		case <-j.stopCh:
			log.Println("[PendingSweeper] 任务停止")
			return
		case <-ticker.C:
			j.sweep(ctx)
		}
	}
}

func (j *PendingSweeper) Stop() {
	close(j.stopCh)
}

func (j *PendingSweeper) sweep(ctx context.Context) {
	count, err := j.chatService.SweepUnanswered(ctx, j.interval, j.batchSize)
	if err != nil {
		log.Printf("[PendingSweeper] 巡检失败: %v", err)
		return
	}
	if count > 0 {
		log.Printf("[PendingSweeper] 发现 %d 条未回复消息", count)
	}
}
