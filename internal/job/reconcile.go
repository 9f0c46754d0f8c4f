package job

import (
	"context"
	"log"
	"time"

	"aichat/internal/config"
	"aichat/internal/service"

	"gorm.io/gorm"
)

// ReconcileJob 周期性对账：续期到期账户、标记逾期账户
type ReconcileJob struct {
	billingService *service.BillingService
	cfg            *config.Config
	stopCh         chan struct{}
	interval       time.Duration
}

func NewReconcileJob(db *gorm.DB, cfg *config.Config) *ReconcileJob {
	return &ReconcileJob{
		billingService: service.NewBillingService(db, cfg),
		cfg:            cfg,
		stopCh:         make(chan struct{}),
		interval:       time.Duration(cfg.Job.ReconcileIntervalHours) * time.Hour,
	}
}

func (j *ReconcileJob) Start(ctx context.Context) {
	log.Printf("[ReconcileJob] 对账任务启动, 间隔 %v", j.interval)

	// 启动时先跑一轮，避免错过重启期间到期的账户
	j.runOnce(ctx)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[ReconcileJob] 收到停止信号，任务退出")
			return
		case <-j.stopCh:
			log.Println("[ReconcileJob] 任务停止")
			return
		case <-ticker.C:
			j.runOnce(ctx)
		}
	}
}

func (j *ReconcileJob) Stop() {
	close(j.stopCh)
}

func (j *ReconcileJob) runOnce(ctx context.Context) {
	result, err := j.billingService.ReconcileAll(ctx, time.Now())
	if result == nil {
		log.Printf("[ReconcileJob] 对账失败: %v", err)
		return
	}

	if err != nil {
		log.Printf("[ReconcileJob] 对账完成但有 %d 个账户失败: %v", result.Failed, err)
	}
	log.Printf("[ReconcileJob] 本轮对账: 处理 %d, 变更 %d, 失败 %d",
		result.Processed, result.Updated, result.Failed)
}
