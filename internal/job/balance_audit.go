package job

import (
	"context"
	"time"

	"bookswap/internal/config"
	"bookswap/internal/repository"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// BalanceAuditJob 定期核对钱包余额与流水合计，发现不一致只记录错误日志，不做自动修正
type BalanceAuditJob struct {
	walletRepo      *repository.WalletRepository
	transactionRepo *repository.TransactionRepository
	stopCh          chan struct{}
	interval        time.Duration
	batchSize       int
	log             *logrus.Entry
}

func NewBalanceAuditJob(db *gorm.DB, cfg *config.Config, log *logrus.Logger) *BalanceAuditJob {
	return &BalanceAuditJob{
		walletRepo:      repository.NewWalletRepository(db),
		transactionRepo: repository.NewTransactionRepository(db),
		stopCh:          make(chan struct{}),
		interval:        cfg.Jobs.AuditInterval,
		batchSize:       cfg.Jobs.AuditBatchSize,
		log:             log.WithField("component", "BalanceAuditJob"),
	}
}

func (j *BalanceAuditJob) Start(ctx context.Context) {
	j.log.Info("余额核对任务启动")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.log.Info("收到停止信号，任务退出")
			return
		case <-j.stopCh:
			j.log.Info("任务停止")
			return
		case <-ticker.C:
			j.Audit(ctx)
		}
	}
}

func (j *BalanceAuditJob) Stop() {
	close(j.stopCh)
}

// Audit 扫描全部钱包，返回核对数与不一致数
func (j *BalanceAuditJob) Audit(ctx context.Context) (checked, drifted int) {
	var afterID int64
	for {
		if ctx.Err() != nil {
			return
		}

		wallets, err := j.walletRepo.ListAfter(ctx, afterID, j.batchSize)
		if err != nil {
			j.log.WithError(err).Error("查询钱包失败")
			return
		}
		if len(wallets) == 0 {
			break
		}

		for _, w := range wallets {
			afterID = w.ID
			sum, count, err := j.transactionRepo.SumByUserID(ctx, w.UserID)
			if err != nil {
				j.log.WithError(err).WithField("user_id", w.UserID).Error("汇总流水失败")
				continue
			}
			checked++
			if !sum.Equal(w.Balance) {
				drifted++
				j.log.WithFields(logrus.Fields{
					"user_id":      w.UserID,
					"balance":      w.Balance.String(),
					"ledger_sum":   sum.String(),
					"transactions": count,
				}).Error("钱包余额与流水合计不一致")
			}
		}

		if len(wallets) < j.batchSize {
			break
		}
	}

	if checked > 0 {
		j.log.WithFields(logrus.Fields{"checked": checked, "drifted": drifted}).Info("余额核对完成")
	}
	return checked, drifted
}
