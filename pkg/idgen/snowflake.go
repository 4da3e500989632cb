package idgen

import (
	"fmt"
	"sync"
	"time"
)

// 雪花算法：41位时间戳 | 10位机器ID | 12位序列号
const (
	epoch          = int64(1735689600000) // 2025-01-01 00:00:00 UTC
	workerIDBits   = 10
	sequenceBits   = 12
	maxWorkerID    = -1 ^ (-1 << workerIDBits)
	maxSequence    = -1 ^ (-1 << sequenceBits)
	workerIDShift  = sequenceBits
	timestampShift = sequenceBits + workerIDBits
)

// Snowflake ID 生成器
type Snowflake struct {
	mu        sync.Mutex
	timestamp int64
	workerID  int64
	sequence  int64
}

// NewSnowflake 创建生成器，workerID 取值 0-1023
func NewSnowflake(workerID int64) (*Snowflake, error) {
	if workerID < 0 || workerID > maxWorkerID {
		return nil, fmt.Errorf("worker id must be between 0 and %d, got %d", maxWorkerID, workerID)
	}
	return &Snowflake{workerID: workerID}, nil
}

var (
	mu               sync.RWMutex
	defaultGenerator = &Snowflake{workerID: 1}
)

// Init 替换默认生成器的机器ID
func Init(workerID int64) error {
	g, err := NewSnowflake(workerID)
	if err != nil {
		return err
	}
	mu.Lock()
	defaultGenerator = g
	mu.Unlock()
	return nil
}

// NextID 生成下一个ID
func NextID() int64 {
	mu.RLock()
	g := defaultGenerator
	mu.RUnlock()
	return g.Generate()
}

// Generate 生成ID，同一毫秒序列号用完时自旋到下一毫秒
func (s *Snowflake) Generate() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UnixMilli()
	if now < s.timestamp {
		// 时钟回拨时沿用上一个时间戳
		now = s.timestamp
	}

	if now == s.timestamp {
		s.sequence = (s.sequence + 1) & maxSequence
		if s.sequence == 0 {
			for now <= s.timestamp {
				now = time.Now().UnixMilli()
			}
		}
	} else {
		s.sequence = 0
	}

	s.timestamp = now

	return ((now - epoch) << timestampShift) |
		(s.workerID << workerIDShift) |
		s.sequence
}

func withPrefix(prefix string) string {
	return fmt.Sprintf("%s%s%d", prefix, time.Now().UTC().Format("20060102"), NextID())
}

// GenerateTransactionNo ZCoin 流水号，如 ZTX20250429...
func GenerateTransactionNo() string {
	return withPrefix("ZTX")
}

// GenerateSwapNo 换书申请号
func GenerateSwapNo() string {
	return withPrefix("SWP")
}

// GeneratePurchaseNo 商品兑换单号
func GeneratePurchaseNo() string {
	return withPrefix("PUR")
}
