// Package debounce 尾沿防抖：输入停止变化delay之后才传播最后一个值
//
// 使用场景：搜索框自动过滤，把按键级别的请求合并为一次
package debounce

import (
	"context"
	"sync"
	"time"
)

// Debouncer 回调式防抖器
// 每次Push都会重置计时器；delay内没有新值时以最后一个值调用fn
type Debouncer[T any] struct {
	delay time.Duration
	fn    func(T)

	mu      sync.Mutex
	timer   *time.Timer
	pending T
	armed   bool
	stopped bool
	seq     uint64 // 每次Push/Flush/Stop递增，已经启动的旧回调据此作废
}

// New 创建防抖器
func New[T any](delay time.Duration, fn func(T)) *Debouncer[T] {
	return &Debouncer[T]{delay: delay, fn: fn}
}

// Push 提交新值
func (d *Debouncer[T]) Push(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.pending = v
	d.armed = true
	d.seq++
	seq := d.seq

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, func() { d.fire(seq) })
}

// Flush 立即传播待处理的值（如果有）
func (d *Debouncer[T]) Flush() {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.seq++
	seq := d.seq
	d.mu.Unlock()
	d.fire(seq)
}

// Stop 丢弃待处理的值，之后的Push不再生效
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	d.armed = false
	d.seq++
	if d.timer != nil {
		d.timer.Stop()
	}
}

// Pending 是否有尚未传播的值
func (d *Debouncer[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.armed
}

// fire 只有seq仍是最新时才传播；Stop无法取消已经开始执行的AfterFunc回调
func (d *Debouncer[T]) fire(seq uint64) {
	d.mu.Lock()
	if !d.armed || d.stopped || seq != d.seq {
		d.mu.Unlock()
		return
	}
	v := d.pending
	d.armed = false
	d.mu.Unlock()

	d.fn(v)
}

// Channel 值流形式的防抖：in上的值静默delay之后才出现在返回的channel上
// in关闭时，待处理的值会先被发出再关闭输出
func Channel[T any](ctx context.Context, in <-chan T, delay time.Duration) <-chan T {
	out := make(chan T)

	go func() {
		defer close(out)

		var (
			timer   *time.Timer
			timerC  <-chan time.Time
			pending T
			armed   bool
		)

		emit := func() bool {
			select {
			case out <- pending:
				armed = false
				return true
			case <-ctx.Done():
				return false
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case v, ok := <-in:
				if !ok {
					if armed {
						emit()
					}
					return
				}
				pending = v
				armed = true
				if timer == nil {
					timer = time.NewTimer(delay)
				} else {
					timer.Reset(delay)
				}
				timerC = timer.C
			case <-timerC:
				timerC = nil
				if armed && !emit() {
					return
				}
			}
		}
	}()

	return out
}
