package websocket

import (
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"stablearb/internal/bot"
	"stablearb/internal/models"
)

// ============================================================
// Unit Tests
// ============================================================

func TestNewHub(t *testing.T) {
	hub := NewHub(zap.NewNop())

	if hub == nil {
		t.Fatal("NewHub returned nil")
	}

	if hub.ClientCount() != 0 {
		t.Errorf("expected 0 clients, got %d", hub.ClientCount())
	}

	if hub.DroppedMessages() != 0 {
		t.Errorf("expected 0 dropped messages, got %d", hub.DroppedMessages())
	}
}

func TestOriginChecker_Check(t *testing.T) {
	checker := &OriginChecker{
		allowedOrigins: map[string]struct{}{
			"http://localhost:3000": {},
			"https://example.com":   {},
		},
		allowAll: false,
	}

	tests := []struct {
		origin string
		want   bool
	}{
		{"", true},                       // empty origin allowed
		{"http://localhost:3000", true},  // allowed
		{"https://example.com", true},    // allowed
		{"http://evil.com", false},       // not allowed
		{"http://localhost:8080", false}, // not in list
	}

	for _, tt := range tests {
		got := checker.Check(tt.origin)
		if got != tt.want {
			t.Errorf("Check(%q) = %v, want %v", tt.origin, got, tt.want)
		}
	}
}

func TestOriginChecker_AllowAll(t *testing.T) {
	checker := &OriginChecker{
		allowAll: true,
	}

	origins := []string{
		"http://localhost:3000",
		"https://evil.com",
		"http://anything.example.org",
	}

	for _, origin := range origins {
		if !checker.Check(origin) {
			t.Errorf("allowAll=true but Check(%q) = false", origin)
		}
	}
}

func TestHub_BroadcastNonBlocking(t *testing.T) {
	hub := NewHub(zap.NewNop())
	go hub.Run()
	defer hub.Stop()

	// заливаем broadcast канал быстрее, чем Run успевает разгребать
	for i := 0; i < 10000; i++ {
		hub.Broadcast(map[string]int{"i": i})
	}

	// Broadcast не должен блокироваться; лишнее отбрасывается
	time.Sleep(10 * time.Millisecond)

	if hub.DroppedMessages() == 0 {
		t.Log("no messages dropped (channel was not full)")
	}
}

func TestHub_Stop(t *testing.T) {
	hub := NewHub(zap.NewNop())

	done := make(chan struct{})
	go func() {
		hub.Run()
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	hub.Stop()

	select {
	case <-done:
		// Run() завершился
	case <-time.After(1 * time.Second):
		t.Error("Hub.Run() did not exit after Stop()")
	}
}

func TestHub_SlowClientRemoved(t *testing.T) {
	hub := NewHub(zap.NewNop())
	go hub.Run()
	defer hub.Stop()

	// клиент, который никогда не читает свой канал
	client := &Client{hub: hub, send: make(chan []byte, 1)}
	hub.register <- client

	for i := 0; i < clientSendBufferSize+10; i++ {
		hub.BroadcastRaw([]byte(`{"type":"test"}`))
	}

	deadline := time.After(time.Second)
	for hub.ClientCount() != 0 {
		select {
		case <-deadline:
			t.Fatal("slow client was not removed")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

// ============================================================
// Benchmarks
// ============================================================

// BenchmarkHub_Broadcast тестирует скорость broadcast
func BenchmarkHub_Broadcast(b *testing.B) {
	hub := NewHub(zap.NewNop())
	go hub.Run()
	defer hub.Stop()

	msg := map[string]interface{}{
		"type": "test",
		"data": "benchmark message",
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		hub.Broadcast(msg)
	}
}

// BenchmarkHub_BroadcastRaw тестирует скорость broadcast уже сериализованных данных
func BenchmarkHub_BroadcastRaw(b *testing.B) {
	hub := NewHub(zap.NewNop())
	go hub.Run()
	defer hub.Stop()

	data := []byte(`{"type":"test","data":"benchmark message"}`)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		hub.BroadcastRaw(data)
	}
}

// BenchmarkHub_BroadcastTargetUpdate тестирует реальный use case
func BenchmarkHub_BroadcastTargetUpdate(b *testing.B) {
	hub := NewHub(zap.NewNop())
	go hub.Run()
	defer hub.Stop()

	status := &bot.TargetStatus{
		Target:       "ARB",
		State:        "idle",
		SpotPrice:    2.4,
		TargetPrice:  2.5,
		DriftPercent: -4.0,
		PendingSwaps: 1,
		Deposits:     12,
		Committed:    models.PoolBalances{"INTEREST": 1000, "STABLE": 2400},
		Projected:    models.PoolBalances{"INTEREST": 990, "STABLE": 2430},
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		hub.BroadcastTargetUpdate(status)
	}
}

// BenchmarkOriginChecker_Check тестирует скорость проверки origin
func BenchmarkOriginChecker_Check(b *testing.B) {
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		originChecker.Check("http://localhost:3000")
	}
}

// BenchmarkClientPool тестирует sync.Pool для клиентов
func BenchmarkClientPool(b *testing.B) {
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		client := clientPool.Get().(*Client)
		clientPool.Put(client)
	}
}

// ============================================================
// Parallel Stress Test
// ============================================================

func TestHub_ConcurrentOperations(t *testing.T) {
	hub := NewHub(zap.NewNop())
	go hub.Run()
	defer hub.Stop()

	var wg sync.WaitGroup
	const goroutines = 10
	const operations = 1000

	// concurrent broadcasts
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < operations; j++ {
				hub.Broadcast(map[string]int{"goroutine": id, "op": j})
			}
		}(i)
	}

	// concurrent ClientCount reads
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < operations; j++ {
				_ = hub.ClientCount()
			}
		}()
	}

	wg.Wait()
}
