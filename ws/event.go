// Package ws, görev değişikliklerini WebSocket üzerinden gerçek zamanlı iletir.
//
// Mimari:
//   - Hub: tüm bağlantıları userID bazında tutar
//   - Client: tek bir WebSocket bağlantısı (ReadPump + WritePump)
//   - Event: client-server arası mesaj formatı
//
// Event akışı:
//  1. Kullanıcı görev oluşturur/günceller/siler → HTTP → TaskService → DB
//  2. TaskService, EventPublisher.BroadcastToUser ile sahibine event yollar
//  3. Hub aynı event'i Admin bağlantılarına da iletir (tüm görevler ekranı)
//  4. Her client'ın WritePump'ı event'i WebSocket'e yazar
package ws

// Event, WebSocket üzerinden iletilen bir mesaj.
//
// Seq her outbound event'te artar; client eksik event'i bununla fark eder.
type Event struct {
	Op   string `json:"op"`
	Data any    `json:"d,omitempty"`
	Seq  int64  `json:"seq,omitempty"`
}

// Client → Server
const (
	OpHeartbeat = "heartbeat"
)

// Server → Client
const (
	OpReady        = "ready"
	OpHeartbeatAck = "heartbeat_ack"
	OpTaskCreate   = "task_create"
	OpTaskUpdate   = "task_update"
	OpTaskDelete   = "task_delete"
)

// ReadyData, bağlantı kurulunca gönderilen ilk event'in payload'ı.
type ReadyData struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
}

// TaskDeleteData, silinen görevin kimliği.
type TaskDeleteData struct {
	ID     string `json:"id"`
	UserID string `json:"userId"`
}
