package test

import (
	"encoding/json"
	"net/http"
	"strconv"
	"testing"
	"time"

	"fila_dnj/internal/models"
	"fila_dnj/internal/notify"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
)

type joinResponse struct {
	Status   string `json:"status"`
	DocID    uint   `json:"doc_id"`
	Position int    `json:"position"`
	Message  string `json:"message"`
}

type statusResponse struct {
	Status       string `json:"status"`
	Position     int    `json:"position"`
	TotalInQueue int    `json:"total_in_queue"`
}

func join(t *testing.T, e *testEnv, name, phone, queueType string) (joinResponse, int) {
	t.Helper()
	var out joinResponse
	res := e.postJSON(t, "/api/queues/"+queueType+"/join",
		map[string]string{"name": name, "phone": phone}, &out)
	return out, res.StatusCode
}

// Cenário principal: A, B e C entram, B e depois C cruzam a posição do
// "quase lá", o admin chama A e o chamado expira sem confirmação.
func TestQueueFlow(t *testing.T) {
	e := setupTestEnv(t)
	e.setConfig(t, 2, true)

	// Conecta um cliente WS antes das entradas para receber os eventos.
	wsURL := "ws" + e.ts.URL[4:] + "/api/queues/" + models.QueueConfissoes + "/ws"
	wsConn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	assert.NoError(t, err, "Erro ao conectar no WS da fila")
	defer wsConn.Close()

	resA, code := join(t, e, "Ana", "5541999990001", models.QueueConfissoes)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "success", resA.Status)
	assert.Equal(t, 1, resA.Position)

	resB, code := join(t, e, "Bruno", "5541999990002", models.QueueConfissoes)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, 2, resB.Position)

	resC, code := join(t, e, "Clara", "5541999990003", models.QueueConfissoes)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, 3, resC.Position)

	// Posições contíguas 1..3 pela visão de cada pessoa.
	var st statusResponse
	e.getJSON(t, "/api/queues/confissoes/status/"+strconv.Itoa(int(resB.DocID)), &st)
	assert.Equal(t, "success", st.Status)
	assert.Equal(t, 2, st.Position)
	assert.Equal(t, 3, st.TotalInQueue)

	// Boas-vindas para os três; "quase lá" só para Bruno (posição 2).
	assert.Eventually(t, func() bool {
		return e.notifier.countByKind(notify.KindWelcome) == 3
	}, 2*time.Second, 20*time.Millisecond, "Boas-vindas não enviadas")
	assert.Eventually(t, func() bool {
		return e.notifier.countByKind(notify.KindAlmostThere) == 1
	}, 2*time.Second, 20*time.Millisecond, "'quase lá' não enviado para Bruno")
	almost := e.notifier.byKind(notify.KindAlmostThere)
	assert.Equal(t, "Bruno", almost[0].Name)
	assert.Equal(t, 2, almost[0].Position)

	// WS recebeu ao menos um evento de atualização da fila.
	wsConn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := wsConn.ReadMessage()
	assert.NoError(t, err, "Erro ao ler mensagem WS")
	var ev map[string]interface{}
	assert.NoError(t, json.Unmarshal(raw, &ev))
	assert.Equal(t, "queue_updated", ev["event_type"])

	// Admin chama o próximo: Ana sai da fila e vira chamado "waiting".
	var call struct {
		Status string               `json:"status"`
		Called *models.CalledPerson `json:"called_person"`
	}
	e.postJSON(t, "/api/admin/queues/confissoes/call", nil, &call)
	assert.Equal(t, "success", call.Status)
	assert.Equal(t, "Ana", call.Called.Name)
	assert.Equal(t, models.StatusWaiting, call.Called.Status)
	assert.WithinDuration(t, call.Called.CalledAt.Add(models.ResponseWindow), call.Called.ExpiresAt, time.Second)

	// Bruno e Clara sobem para 1 e 2; Clara cruza o "quase lá".
	e.getJSON(t, "/api/queues/confissoes/status/"+strconv.Itoa(int(resB.DocID)), &st)
	assert.Equal(t, 1, st.Position)
	assert.Equal(t, 2, st.TotalInQueue)
	e.getJSON(t, "/api/queues/confissoes/status/"+strconv.Itoa(int(resC.DocID)), &st)
	assert.Equal(t, 2, st.Position)

	assert.Eventually(t, func() bool {
		return e.notifier.countByKind(notify.KindAlmostThere) == 2
	}, 2*time.Second, 20*time.Millisecond, "'quase lá' não enviado para Clara")
	assert.Eventually(t, func() bool {
		return e.notifier.countByKind(notify.KindTurn) == 1
	}, 2*time.Second, 20*time.Millisecond, "Notificação de vez não enviada")

	// Ana não vê mais a própria posição: foi chamada.
	e.getJSON(t, "/api/queues/confissoes/status/"+strconv.Itoa(int(resA.DocID)), &st)
	assert.Equal(t, "not_found", st.Status)

	// O chamado expira sem confirmação e vira no-show.
	e.db.Model(&models.CalledPerson{}).Where("id = ?", call.Called.ID).
		Update("expires_at", time.Now().Add(-time.Second))
	changed, err := e.svc.SweepExpired(time.Now())
	assert.NoError(t, err)
	assert.Equal(t, int64(1), changed)

	var swept models.CalledPerson
	e.db.First(&swept, call.Called.ID)
	assert.Equal(t, models.StatusNoShow, swept.Status)
}

func TestCallNextEmptyQueue(t *testing.T) {
	e := setupTestEnv(t)
	e.setConfig(t, 5, true)

	var call struct {
		Status string `json:"status"`
	}
	res := e.postJSON(t, "/api/admin/queues/direcao-espiritual/call", nil, &call)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "empty", call.Status)

	// Nenhuma mutação: sem registros de chamados e sem notificações.
	var count int64
	e.db.Model(&models.CalledPerson{}).Count(&count)
	assert.Equal(t, int64(0), count)
	assert.Equal(t, 0, e.notifier.countByKind(notify.KindTurn))
}

// Chamar N vezes esvazia a fila na ordem de admissão, cada pessoa uma vez.
func TestCallNextDrainsInOrder(t *testing.T) {
	e := setupTestEnv(t)
	e.setConfig(t, 10, true)

	names := []string{"Ana", "Bruno", "Clara"}
	for i, name := range names {
		_, code := join(t, e, name, "55418880000"+strconv.Itoa(i), models.QueueConfissoes)
		assert.Equal(t, http.StatusOK, code)
	}

	for _, expected := range names {
		var call struct {
			Status string               `json:"status"`
			Called *models.CalledPerson `json:"called_person"`
		}
		e.postJSON(t, "/api/admin/queues/confissoes/call", nil, &call)
		assert.Equal(t, "success", call.Status)
		assert.Equal(t, expected, call.Called.Name)
	}

	var call struct {
		Status string `json:"status"`
	}
	e.postJSON(t, "/api/admin/queues/confissoes/call", nil, &call)
	assert.Equal(t, "empty", call.Status)
}
