package test

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"testing"
	"time"

	"fila_dnj/internal/models"
	"fila_dnj/internal/notify"

	"github.com/stretchr/testify/assert"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Uma pessoa aguardando em uma fila não pode entrar na outra.
func TestSingleQueueMembership(t *testing.T) {
	e := setupTestEnv(t)
	e.setConfig(t, 5, true)

	_, code := join(t, e, "Paula", "5541988880001", models.QueueConfissoes)
	assert.Equal(t, http.StatusOK, code)

	res := e.postJSON(t, "/api/queues/direcao-espiritual/join",
		map[string]string{"name": "Paula", "phone": "5541988880001"}, nil)
	defer res.Body.Close()
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	var errRes errorResponse
	assert.NoError(t, json.NewDecoder(res.Body).Decode(&errRes))
	assert.Equal(t, "OTHER_QUEUE", errRes.Code)

	// Continua sendo uma única entrada aguardando para o telefone.
	var count int64
	e.db.Model(&models.QueueEntry{}).
		Where("phone = ? AND status = ?", "5541988880001", models.StatusWaiting).
		Count(&count)
	assert.Equal(t, int64(1), count)
}

// Entrar de novo na mesma fila recupera a sessão em vez de duplicar.
func TestSessionRecovery(t *testing.T) {
	e := setupTestEnv(t)
	e.setConfig(t, 5, true)

	first, code := join(t, e, "Paula", "5541988880002", models.QueueConfissoes)
	assert.Equal(t, http.StatusOK, code)

	second, code := join(t, e, "Paula", "5541988880002", models.QueueConfissoes)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "success", second.Status)
	assert.Equal(t, first.DocID, second.DocID, "Recuperação de sessão deve devolver o mesmo registro")
	assert.Equal(t, "Sua sessão na fila foi recuperada.", second.Message)
}

// Quem foi chamado há menos de 15 minutos não reentra; depois disso, sim.
func TestRecentlyCalledCooldown(t *testing.T) {
	e := setupTestEnv(t)
	e.setConfig(t, 5, true)

	called := models.CalledPerson{
		Name:      "Paula",
		Phone:     "5541988880003",
		QueueType: models.QueueConfissoes,
		CalledAt:  time.Now().Add(-5 * time.Minute),
		ExpiresAt: time.Now(),
		Status:    models.StatusNoShow,
	}
	assert.NoError(t, e.db.Create(&called).Error)

	res := e.postJSON(t, "/api/queues/confissoes/join",
		map[string]string{"name": "Paula", "phone": "5541988880003"}, nil)
	defer res.Body.Close()
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	var errRes errorResponse
	assert.NoError(t, json.NewDecoder(res.Body).Decode(&errRes))
	assert.Equal(t, "RECENTLY_CALLED", errRes.Code)

	// Passados os 15 minutos, a entrada volta a ser aceita.
	e.db.Model(&models.CalledPerson{}).Where("id = ?", called.ID).
		Update("called_at", time.Now().Add(-16*time.Minute))

	result, code := join(t, e, "Paula", "5541988880003", models.QueueConfissoes)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "success", result.Status)
}

// Quem já foi chamado e ainda não respondeu cai na tela de chamada.
func TestAlreadyCalledReturnsCalledScreen(t *testing.T) {
	e := setupTestEnv(t)
	e.setConfig(t, 5, true)

	called := models.CalledPerson{
		Name:      "Paula",
		Phone:     "5541988880004",
		QueueType: models.QueueConfissoes,
		CalledAt:  time.Now(),
		ExpiresAt: time.Now().Add(models.ResponseWindow),
		Status:    models.StatusWaiting,
	}
	assert.NoError(t, e.db.Create(&called).Error)

	result, code := join(t, e, "Paula", "5541988880004", models.QueueConfissoes)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "called", result.Status)
	assert.Equal(t, called.ID, result.DocID)
}

func TestQueueClosedRejects(t *testing.T) {
	e := setupTestEnv(t)
	e.setConfig(t, 5, false)

	res := e.postJSON(t, "/api/queues/confissoes/join",
		map[string]string{"name": "Paula", "phone": "5541988880005"}, nil)
	defer res.Body.Close()
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	var errRes errorResponse
	assert.NoError(t, json.NewDecoder(res.Body).Decode(&errRes))
	assert.Equal(t, "QUEUE_CLOSED", errRes.Code)
}

// O "quase lá" sai uma única vez por pessoa mesmo com reconciliações extras.
func TestAlmostThereSentOnce(t *testing.T) {
	e := setupTestEnv(t)
	e.setConfig(t, 2, true)

	join(t, e, "Ana", "5541977770001", models.QueueConfissoes)
	join(t, e, "Bruno", "5541977770002", models.QueueConfissoes)

	assert.Eventually(t, func() bool {
		return e.notifier.countByKind(notify.KindAlmostThere) == 1
	}, 2*time.Second, 20*time.Millisecond)

	// Entradas e remoções extras reconcilham a fila de novo; Bruno continua
	// na posição 2, mas a trava impede um segundo envio.
	clara, _ := join(t, e, "Clara", "5541977770003", models.QueueConfissoes)
	req, _ := http.NewRequest(http.MethodDelete,
		e.ts.URL+"/api/admin/entries/"+strconv.Itoa(int(clara.DocID)), nil)
	res, err := http.DefaultClient.Do(req)
	assert.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)

	time.Sleep(200 * time.Millisecond)
	almost := e.notifier.byKind(notify.KindAlmostThere)
	assert.Len(t, almost, 1, "O 'quase lá' deve sair no máximo uma vez por pessoa")
	assert.Equal(t, "Bruno", almost[0].Name)
}

// Entradas simultâneas do mesmo telefone não duplicam o registro: o índice
// único parcial deixa uma inserção vencer e as demais recuperam a sessão
// vencedora, mesmo quando todas validam antes de qualquer commit.
func TestConcurrentJoinsKeepSingleWaitingEntry(t *testing.T) {
	e := setupTestEnv(t)
	e.setConfig(t, 5, true)

	const workers = 8
	results := make([]joinResponse, workers)
	codes := make([]int, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], codes[i] = join(t, e, "Paula", "5541966660001", models.QueueConfissoes)
		}(i)
	}
	wg.Wait()

	var count int64
	e.db.Model(&models.QueueEntry{}).
		Where("phone = ? AND status = ?", "5541966660001", models.StatusWaiting).
		Count(&count)
	assert.Equal(t, int64(1), count, "Só pode restar uma entrada aguardando para o telefone")

	for i := 0; i < workers; i++ {
		assert.Equal(t, http.StatusOK, codes[i])
		assert.Equal(t, "success", results[i].Status)
		assert.Equal(t, results[0].DocID, results[i].DocID, "Todas as respostas devolvem o mesmo registro")
		assert.Equal(t, 1, results[i].Position)
	}

	// Só o vencedor da inserção recebe as boas-vindas.
	assert.Eventually(t, func() bool {
		return e.notifier.countByKind(notify.KindWelcome) == 1
	}, 2*time.Second, 20*time.Millisecond)
}

// Validação de entrada: nome e telefone obrigatórios, fila conhecida.
func TestJoinValidation(t *testing.T) {
	e := setupTestEnv(t)
	e.setConfig(t, 5, true)

	res := e.postJSON(t, "/api/queues/confissoes/join",
		map[string]string{"name": "Paula"}, nil)
	defer res.Body.Close()
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	res2 := e.postJSON(t, "/api/queues/fila-inexistente/join",
		map[string]string{"name": "Paula", "phone": "5541988880006"}, nil)
	defer res2.Body.Close()
	assert.Equal(t, http.StatusBadRequest, res2.StatusCode)
	var errRes errorResponse
	assert.NoError(t, json.NewDecoder(res2.Body).Decode(&errRes))
	assert.Equal(t, "INVALID_QUEUE_TYPE", errRes.Code)
}
