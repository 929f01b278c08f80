package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Canal reservado para o painel do admin (lista de chamados, estatísticas).
const AdminChannel = "admin"

// Event é a mensagem enviada aos assinantes de um canal.
type Event struct {
	EventType string                 `json:"event_type"`
	QueueType string                 `json:"queue_type,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// Tipos de evento emitidos pelo núcleo da fila.
const (
	EventQueueUpdated  = "queue_updated"
	EventPersonCalled  = "person_called"
	EventCalledUpdated = "called_updated"
	EventConfigUpdated = "config_updated"
	EventQueueCleared  = "queue_cleared"
)

// Hub agrupa as conexões por canal (tipo de fila ou admin).
type Hub struct {
	clients    map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan broadcastMessage
	mu         sync.RWMutex
}

type broadcastMessage struct {
	Channel string
	Message []byte
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan broadcastMessage),
	}
}

// Run processa os canais do hub. Deve rodar em uma goroutine própria.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.Channel] == nil {
				h.clients[client.Channel] = make(map[*Client]bool)
			}
			h.clients[client.Channel][client] = true
			h.mu.Unlock()
		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.clients[client.Channel]; ok {
				if _, ok := clients[client]; ok {
					delete(clients, client)
					close(client.Send)
					if len(clients) == 0 {
						delete(h.clients, client.Channel)
					}
				}
			}
			h.mu.Unlock()
		case message := <-h.broadcast:
			// Lock de escrita: clientes lentos são removidos do mapa aqui.
			h.mu.Lock()
			if clients, ok := h.clients[message.Channel]; ok {
				for client := range clients {
					select {
					case client.Send <- message.Message:
					default:
						close(client.Send)
						delete(clients, client)
						if len(clients) == 0 {
							delete(h.clients, message.Channel)
						}
					}
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast envia um evento para todos os assinantes do canal.
func (h *Hub) Broadcast(channel string, ev Event) {
	raw, err := json.Marshal(ev)
	if err != nil {
		log.Println("Erro ao serializar evento WS:", err)
		return
	}
	h.broadcast <- broadcastMessage{Channel: channel, Message: raw}
}

// Client representa uma conexão WebSocket assinando um canal.
type Client struct {
	Hub     *Hub
	Conn    *websocket.Conn
	Send    chan []byte
	Channel string
}

func (c *Client) readPump() {
	defer func() {
		c.Hub.unregister <- c
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(512)
	c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})
	for {
		// Os clientes só escutam; a leitura serve para detectar a desconexão.
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Subscribe atualiza a conexão para WebSocket e registra o cliente no canal.
func (h *Hub) Subscribe(c *gin.Context, channel string) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		http.Error(c.Writer, "Erro ao atualizar para WebSocket", http.StatusInternalServerError)
		return
	}
	client := &Client{
		Hub:     h,
		Conn:    conn,
		Send:    make(chan []byte, 256),
		Channel: channel,
	}
	h.register <- client

	go client.writePump()
	client.readPump()
}
