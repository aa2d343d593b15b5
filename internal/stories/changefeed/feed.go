package changefeed

import "sync"

// Feed рассылает уведомления об изменении состояния панели
// (конфиг, тарифы, кнопки) заинтересованным подписчикам — в первую
// очередь менеджеру бота, чтобы тот пересобрал клавиатуры и webhook.
type Feed struct {
	mu        sync.RWMutex
	listeners []func()
}

func New() *Feed {
	return &Feed{}
}

func (f *Feed) Register(fn func()) {
	if fn == nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listeners = append(f.listeners, fn)
}

func (f *Feed) Notify() {
	f.mu.RLock()
	listeners := make([]func(), len(f.listeners))
	copy(listeners, f.listeners)
	f.mu.RUnlock()

	for _, fn := range listeners {
		fn()
	}
}
