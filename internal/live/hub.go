package live

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
)

// Hub maneja las conexiones WebSocket del dashboard de administración.
// Los eventos de asistencia (clock-in, clock-out, altas y bajas de usuarios)
// se difunden en vivo a los administradores conectados.
type Hub struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	mu         sync.RWMutex
}

// NewHub crea el hub y arranca su loop de difusión.
func NewHub() *Hub {
	h := &Hub{
		broadcast:  make(chan []byte, 256),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		clients:    make(map[*websocket.Conn]bool),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			log.Printf("🔌 Dashboard conectado. Total clientes: %d", total)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.Close()
			}
			total := len(h.clients)
			h.mu.Unlock()
			log.Printf("🔌 Dashboard desconectado. Total clientes: %d", total)

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
					log.Printf("Error enviando mensaje al dashboard: %v", err)
					client.Close()
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// HandleConnection maneja una conexión WebSocket de Fiber.
func (h *Hub) HandleConnection(conn *websocket.Conn) {
	h.register <- conn

	defer func() {
		h.unregister <- conn
	}()

	// Leer mensajes del cliente (para comandos futuros)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (h *Hub) hasClients() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients) > 0
}

func (h *Hub) send(payload any) {
	if h == nil || !h.hasClients() {
		return // No hay clientes conectados
	}
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Error al serializar evento para dashboard: %v", err)
		return
	}
	select {
	case h.broadcast <- data:
	default:
		// Canal lleno, saltar mensaje
	}
}

// AttendanceEvent es un evento de asistencia difundido al dashboard.
type AttendanceEvent struct {
	Type      string    `json:"type"` // "clock_in" / "clock_out"
	UserEmail string    `json:"userEmail"`
	UserName  string    `json:"userName,omitempty"`
	RecordID  int64     `json:"recordId"`
	At        time.Time `json:"at"`
}

// SendAttendance difunde un clock-in o clock-out.
func (h *Hub) SendAttendance(eventType, email, name string, recordID int64, at time.Time) {
	h.send(AttendanceEvent{
		Type:      eventType,
		UserEmail: email,
		UserName:  name,
		RecordID:  recordID,
		At:        at,
	})
}

// AdminEvent es una mutación administrativa (alta, baja, reset de PTP).
type AdminEvent struct {
	Type      string    `json:"type"` // "user_created" / "user_deleted" / "ptp_reset"
	UserEmail string    `json:"userEmail"`
	At        time.Time `json:"at"`
}

// SendAdmin difunde una mutación del panel de administración.
func (h *Hub) SendAdmin(eventType, email string) {
	h.send(AdminEvent{Type: eventType, UserEmail: email, At: time.Now()})
}

// LogMessage representa un log de request para el dashboard.
type LogMessage struct {
	Type     string         `json:"type"`
	Level    string         `json:"level"`
	Message  string         `json:"message"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// SendLog envía un log al dashboard.
func (h *Hub) SendLog(level, message string, metadata map[string]any) {
	h.send(LogMessage{Type: "log", Level: level, Message: message, Metadata: metadata})
}
