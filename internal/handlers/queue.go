package handlers

import (
	"net/http"
	"strconv"

	"fila_dnj/internal/models"
	"fila_dnj/internal/response"

	"github.com/gin-gonic/gin"
)

type JoinQueueRequest struct {
	Name  string `json:"name" binding:"required"`
	Phone string `json:"phone" binding:"required"`
}

// JoinQueueResponse é o desfecho da entrada na fila exibido ao usuário.
type JoinQueueResponse struct {
	Status   string `json:"status"`
	DocID    uint   `json:"doc_id,omitempty"`
	Position int    `json:"position,omitempty"`
	Message  string `json:"message"`
}

// JoinQueue godoc
// @Summary		Entrada na fila
// @Description	Valida a admissão e coloca a pessoa na fila escolhida
// @Tags			queue
// @Accept			json
// @Produce		json
// @Param			type	path		string				true	"Tipo de fila (confissoes | direcao-espiritual)"
// @Param			user	body		JoinQueueRequest	true	"Nome e telefone"
// @Success		200		{object}	JoinQueueResponse	"Entrada, recuperação de sessão ou tela de chamada"
// @Failure		400		{object}	response.ErrorResponse	"Erro de validação (VALIDATION_ERROR, INVALID_QUEUE_TYPE) ou admissão bloqueada"
// @Failure		500		{object}	response.ErrorResponse	"Erro do servidor (INTERNAL_ERROR)"
// @Router			/api/queues/{type}/join [post]
func (h *Handler) JoinQueue(c *gin.Context) {
	queueType := c.Param("type")
	if !models.ValidQueueType(queueType) {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{
			Code:    "INVALID_QUEUE_TYPE",
			Message: "Tipo de fila inválido",
		})
		return
	}

	var req JoinQueueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Nome e telefone são obrigatórios",
			Details: err.Error(),
		})
		return
	}

	result, err := h.Queue.JoinQueue(req.Name, req.Phone, queueType)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "INTERNAL_ERROR",
			Message: "Ocorreu um erro interno ao tentar entrar na fila.",
		})
		return
	}

	if result.Status == "blocked" {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{
			Code:    result.Code,
			Message: result.Message,
		})
		return
	}

	c.JSON(http.StatusOK, JoinQueueResponse{
		Status:   result.Status,
		DocID:    result.DocID,
		Position: result.Position,
		Message:  result.Message,
	})
}

// QueueStatusResponse é a visão da pessoa sobre sua posição na fila.
type QueueStatusResponse struct {
	Status       string `json:"status"`
	Position     int    `json:"position"`
	TotalInQueue int    `json:"total_in_queue"`
}

// GetUserQueueStatus godoc
// @Summary		Posição na fila
// @Description	Devolve a posição atual e o total de pessoas aguardando
// @Tags			queue
// @Accept			json
// @Produce		json
// @Param			type	path		string	true	"Tipo de fila"
// @Param			docId	path		int		true	"ID do registro na fila"
// @Success		200		{object}	QueueStatusResponse	"Posição atual ou not_found"
// @Failure		400		{object}	response.ErrorResponse	"Erro de validação (INVALID_QUEUE_TYPE, INVALID_DOC_ID)"
// @Failure		500		{object}	response.ErrorResponse	"Erro do servidor (INTERNAL_ERROR)"
// @Router			/api/queues/{type}/status/{docId} [get]
func (h *Handler) GetUserQueueStatus(c *gin.Context) {
	queueType := c.Param("type")
	if !models.ValidQueueType(queueType) {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{
			Code:    "INVALID_QUEUE_TYPE",
			Message: "Tipo de fila inválido",
		})
		return
	}

	docID, err := strconv.Atoi(c.Param("docId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{
			Code:    "INVALID_DOC_ID",
			Message: "Identificador de registro inválido",
		})
		return
	}

	result, err := h.Queue.GetUserQueueStatus(queueType, uint(docID))
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "INTERNAL_ERROR",
			Message: "Ocorreu um erro ao buscar o status da fila.",
		})
		return
	}

	c.JSON(http.StatusOK, QueueStatusResponse{
		Status:       result.Status,
		Position:     result.Position,
		TotalInQueue: result.TotalInQueue,
	})
}

// QueueWebSocket godoc
// @Summary		Assinatura de eventos da fila
// @Description	Atualiza a conexão para WebSocket e transmite os eventos da fila
// @Tags			queue
// @Param			type	path	string	true	"Tipo de fila"
// @Router			/api/queues/{type}/ws [get]
func (h *Handler) QueueWebSocket(c *gin.Context) {
	queueType := c.Param("type")
	if !models.ValidQueueType(queueType) {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{
			Code:    "INVALID_QUEUE_TYPE",
			Message: "Tipo de fila inválido",
		})
		return
	}
	h.Hub.Subscribe(c, queueType)
}
