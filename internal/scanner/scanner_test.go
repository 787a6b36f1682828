package scanner

import (
	"context"
	"errors"
	"image"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

// ── 测试替身 ──

type fakeSource struct {
	mu       sync.Mutex
	released int
	frameErr error
}

func (f *fakeSource) Frame(_ context.Context) (image.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.frameErr != nil {
		return nil, f.frameErr
	}
	return image.NewRGBA(image.Rect(0, 0, 1, 1)), nil
}

func (f *fakeSource) Release() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.released++
	return nil
}

func (f *fakeSource) releaseCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.released
}

// fakeDecoder 按预设序列返回解码结果，序列耗尽后报无码
type fakeDecoder struct {
	mu      sync.Mutex
	results []string // "" 表示本帧无码
}

func (f *fakeDecoder) Decode(_ image.Image) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.results) == 0 {
		return "", ErrNoQRFound
	}
	next := f.results[0]
	f.results = f.results[1:]
	if next == "" {
		return "", ErrNoQRFound
	}
	return next, nil
}

type fakeSubmitter struct {
	mu       sync.Mutex
	delay    time.Duration
	errs     []error // 每次调用依次弹出；耗尽后返回 nil
	calls    []string
	inFlight atomic.Int32
	maxSeen  atomic.Int32
}

func (f *fakeSubmitter) Submit(_ context.Context, token string) error {
	cur := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		prev := f.maxSeen.Load()
		if cur <= prev || f.maxSeen.CompareAndSwap(prev, cur) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, token)
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return err
	}
	return nil
}

func (f *fakeSubmitter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// ── 测试 ──

func TestRun_TerminatesOnSuccess(t *testing.T) {
	source := &fakeSource{}
	decoder := &fakeDecoder{results: []string{"", "", "tok-abc"}}
	submitter := &fakeSubmitter{}

	loop := New(source, decoder, submitter, zap.NewNop(), WithInterval(time.Millisecond))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := loop.Run(ctx); err != nil {
		t.Fatalf("提交成功后 Run 应返回 nil: %v", err)
	}
	if submitter.callCount() != 1 {
		t.Errorf("期望提交 1 次，实际 %d 次", submitter.callCount())
	}
	if source.releaseCount() != 1 {
		t.Errorf("帧源应释放恰好一次，实际 %d 次", source.releaseCount())
	}
}

func TestRun_ResumesAfterSubmitFailure(t *testing.T) {
	source := &fakeSource{}
	decoder := &fakeDecoder{results: []string{"tok-1", "", "tok-2"}}
	submitter := &fakeSubmitter{errs: []error{errors.New("网络错误")}}

	loop := New(source, decoder, submitter, zap.NewNop(), WithInterval(time.Millisecond))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := loop.Run(ctx); err != nil {
		t.Fatalf("第二次提交成功后 Run 应返回 nil: %v", err)
	}
	if submitter.callCount() != 2 {
		t.Errorf("期望提交 2 次（失败后重试），实际 %d 次", submitter.callCount())
	}
}

func TestRun_CancellationReleasesSource(t *testing.T) {
	source := &fakeSource{}
	decoder := &fakeDecoder{} // 永远无码
	submitter := &fakeSubmitter{}

	loop := New(source, decoder, submitter, zap.NewNop(), WithInterval(time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("期望 context.Canceled，实际: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("取消后 Run 未退出")
	}
	if source.releaseCount() != 1 {
		t.Errorf("取消后帧源应释放恰好一次，实际 %d 次", source.releaseCount())
	}
	if submitter.callCount() != 0 {
		t.Errorf("无码时不应提交，实际 %d 次", submitter.callCount())
	}
}

func TestRun_SourceClosedStopsLoop(t *testing.T) {
	source := &fakeSource{frameErr: ErrSourceClosed}
	decoder := &fakeDecoder{}
	submitter := &fakeSubmitter{}

	loop := New(source, decoder, submitter, zap.NewNop(), WithInterval(time.Millisecond))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := loop.Run(ctx)
	if !errors.Is(err, ErrSourceClosed) {
		t.Errorf("期望 ErrSourceClosed，实际: %v", err)
	}
	if source.releaseCount() != 1 {
		t.Errorf("帧源应释放恰好一次，实际 %d 次", source.releaseCount())
	}
}

func TestRun_SingleFlightSubmit(t *testing.T) {
	source := &fakeSource{}
	// 慢提交期间解码器持续产出新令牌
	decoder := &fakeDecoder{results: []string{
		"tok-1", "tok-x", "tok-x", "tok-x", "tok-x", "tok-x", "tok-x", "tok-x",
	}}
	submitter := &fakeSubmitter{delay: 30 * time.Millisecond}

	loop := New(source, decoder, submitter, zap.NewNop(), WithInterval(time.Millisecond))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := loop.Run(ctx); err != nil {
		t.Fatalf("Run 应成功: %v", err)
	}
	if max := submitter.maxSeen.Load(); max != 1 {
		t.Errorf("任意时刻至多一个提交在途，实际并发峰值 %d", max)
	}
	if submitter.callCount() != 1 {
		t.Errorf("首次提交成功即终止，期望提交 1 次，实际 %d 次", submitter.callCount())
	}
}
