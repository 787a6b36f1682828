// Package scanner 实现扫码签到的采集循环：
// 周期性从帧源取画面、解码 QR、将令牌提交到签到接口。
//
// 循环不变式：
//   - 任意时刻至多一个提交在途（单飞），新解码结果在提交期间被丢弃
//   - 提交成功后循环终止；提交失败（网络/业务错误）后恢复扫描
//   - 退出时帧源恰好释放一次，无论是成功、取消还是帧源故障
package scanner

import (
	"context"
	"errors"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// ErrSourceClosed 帧源已关闭或不可用
var ErrSourceClosed = errors.New("帧源已关闭")

// ErrNoQRFound 当前帧中没有可识别的 QR 码
var ErrNoQRFound = errors.New("未识别到 QR 码")

// FrameSource 帧源（摄像头等外部采集设备的抽象）
type FrameSource interface {
	// Frame 返回当前画面；源不可用时返回 ErrSourceClosed
	Frame(ctx context.Context) (image.Image, error)
	// Release 释放底层资源；可被安全地多次调用
	Release() error
}

// Decoder QR 解码器
type Decoder interface {
	// Decode 从画面中提取 QR 内容；无码时返回 ErrNoQRFound
	Decode(img image.Image) (string, error)
}

// Submitter 令牌提交端（通常是签到 HTTP 接口的客户端）
type Submitter interface {
	// Submit 提交令牌；返回 nil 表示签到成功（含重复扫码按成功处理）
	Submit(ctx context.Context, token string) error
}

// defaultInterval 帧采样间隔
const defaultInterval = 300 * time.Millisecond

// Loop 扫码循环
type Loop struct {
	source    FrameSource
	decoder   Decoder
	submitter Submitter
	interval  time.Duration
	logger    *zap.Logger

	inFlight    atomic.Bool // 单飞守卫：提交在途时丢弃新帧
	releaseOnce sync.Once
	releaseErr  error
}

// Option Loop 可选配置
type Option func(*Loop)

// WithInterval 自定义帧采样间隔
func WithInterval(d time.Duration) Option {
	return func(l *Loop) {
		if d > 0 {
			l.interval = d
		}
	}
}

// New 创建扫码循环
func New(source FrameSource, decoder Decoder, submitter Submitter, logger *zap.Logger, opts ...Option) *Loop {
	l := &Loop{
		source:    source,
		decoder:   decoder,
		submitter: submitter,
		interval:  defaultInterval,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Run 启动扫码循环，直到提交成功、ctx 取消或帧源故障。
// 提交异步进行，扫描不停帧；返回时帧源已释放。
func (l *Loop) Run(ctx context.Context) error {
	defer l.release()

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	// 提交结果回传；容量 1 保证提交协程在循环退出后也能结束
	resultCh := make(chan error, 1)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-resultCh:
			l.inFlight.Store(false)
			if err != nil {
				// 提交失败后恢复扫描，等待下一次识别
				l.logger.Warn("提交签到失败，恢复扫描", zap.Error(err))
				continue
			}
			l.logger.Info("签到提交成功，扫码循环结束")
			return nil

		case <-ticker.C:
		}

		// 提交在途时丢弃本帧
		if l.inFlight.Load() {
			continue
		}

		img, err := l.source.Frame(ctx)
		if err != nil {
			if errors.Is(err, ErrSourceClosed) {
				return err
			}
			l.logger.Warn("取帧失败，继续扫描", zap.Error(err))
			continue
		}

		token, err := l.decoder.Decode(img)
		if err != nil {
			// 无码是常态，静默继续
			if !errors.Is(err, ErrNoQRFound) {
				l.logger.Warn("解码失败，继续扫描", zap.Error(err))
			}
			continue
		}

		if !l.inFlight.CompareAndSwap(false, true) {
			continue
		}
		go func(token string) {
			resultCh <- l.submitter.Submit(ctx, token)
		}(token)
	}
}

// release 释放帧源，幂等
func (l *Loop) release() error {
	l.releaseOnce.Do(func() {
		l.releaseErr = l.source.Release()
		if l.releaseErr != nil {
			l.logger.Warn("释放帧源失败", zap.Error(l.releaseErr))
		}
	})
	return l.releaseErr
}
