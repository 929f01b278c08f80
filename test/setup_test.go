package test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"

	"fila_dnj/internal/config"
	"fila_dnj/internal/handlers"
	"fila_dnj/internal/models"
	"fila_dnj/internal/notify"
	"fila_dnj/internal/queue"
	"fila_dnj/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"fila_dnj/internal/ws"
)

// fakeNotifier registra os envios em memória no lugar do webhook real.
type fakeNotifier struct {
	mu    sync.Mutex
	sends []sentMessage
}

type sentMessage struct {
	Name      string
	Phone     string
	QueueType string
	Kind      notify.Kind
	Position  int
}

func (f *fakeNotifier) Send(name, phone, queueType string, kind notify.Kind, position int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sends = append(f.sends, sentMessage{name, phone, queueType, kind, position})
	return nil
}

func (f *fakeNotifier) byKind(kind notify.Kind) []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []sentMessage
	for _, s := range f.sends {
		if s.Kind == kind {
			out = append(out, s)
		}
	}
	return out
}

func (f *fakeNotifier) countByKind(kind notify.Kind) int {
	return len(f.byKind(kind))
}

type testEnv struct {
	ts       *httptest.Server
	db       *gorm.DB
	svc      *queue.Service
	cfg      *config.Store
	notifier *fakeNotifier
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	key := os.Getenv("ENV_CHEK")
	if key == "" {
		fmt.Println("Carregando .env")
		if err := godotenv.Load("../.env"); err != nil {
			log.Fatal("Erro ao carregar o .env")
		}
	}

	db := storage.ConnectTestingDatabase()

	if err := db.AutoMigrate(&models.QueueEntry{}, &models.CalledPerson{}, &models.QueueConfig{}); err != nil {
		log.Fatal("Erro na migração... ", err.Error())
	}
	db.Exec("TRUNCATE TABLE queue_entries, called_people, queue_configs RESTART IDENTITY CASCADE;")

	cfgStore := config.NewStore(db, nil)
	fake := &fakeNotifier{}
	hub := ws.NewHub()
	go hub.Run()

	svc := queue.NewService(db, cfgStore, fake, hub)
	h := handlers.New(svc, cfgStore, hub)

	gin.SetMode(gin.TestMode)
	r := gin.Default()

	api := r.Group("/api")
	{
		api.GET("/config", h.GetConfig)

		queues := api.Group("/queues")
		{
			queues.POST("/:type/join", h.JoinQueue)
			queues.GET("/:type/status/:docId", h.GetUserQueueStatus)
			queues.GET("/:type/ws", h.QueueWebSocket)
		}

		// Nos testes o grupo admin fica sem o middleware de JWT.
		admin := api.Group("/admin")
		{
			admin.GET("/queues/:type", h.ListQueue)
			admin.POST("/queues/:type/call", h.CallNext)
			admin.DELETE("/entries/:id", h.RemoveEntry)
			admin.GET("/called", h.ListCalled)
			admin.DELETE("/called", h.ClearCalled)
			admin.GET("/called/stats", h.CalledStats)
			admin.POST("/called/:id/confirm", h.ConfirmPresence)
			admin.POST("/called/:id/no-show", h.MarkNoShow)
			admin.PUT("/config", h.UpdateConfig)
			admin.POST("/config/reset", h.ResetConfig)
			admin.GET("/ws", h.AdminWebSocket)
		}
	}

	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)

	return &testEnv{ts: ts, db: db, svc: svc, cfg: cfgStore, notifier: fake}
}

// setConfig grava a configuração usada pelo teste (sem atraso de envio).
func (e *testEnv) setConfig(t *testing.T, almostThere int, open bool) {
	t.Helper()
	delay := 0
	_, err := e.cfg.Set(config.Update{
		AlmostTherePosition: &almostThere,
		NotificationDelay:   &delay,
		IsQueueOpen:         &open,
	})
	assert.NoError(t, err, "Erro ao preparar a configuração de teste")
}

// postJSON faz um POST e decodifica a resposta em out (quando out != nil).
func (e *testEnv) postJSON(t *testing.T, path string, body interface{}, out interface{}) *http.Response {
	t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		assert.NoError(t, err)
	}
	res, err := http.Post(e.ts.URL+path, "application/json", bytes.NewReader(payload))
	assert.NoError(t, err, "Erro na requisição POST "+path)
	if out != nil {
		defer res.Body.Close()
		assert.NoError(t, json.NewDecoder(res.Body).Decode(out))
	}
	return res
}

// getJSON faz um GET e decodifica a resposta em out.
func (e *testEnv) getJSON(t *testing.T, path string, out interface{}) *http.Response {
	t.Helper()
	res, err := http.Get(e.ts.URL + path)
	assert.NoError(t, err, "Erro na requisição GET "+path)
	if out != nil {
		defer res.Body.Close()
		assert.NoError(t, json.NewDecoder(res.Body).Decode(out))
	}
	return res
}
