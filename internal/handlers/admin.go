package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"fila_dnj/internal/models"
	"fila_dnj/internal/response"
	"fila_dnj/internal/ws"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// CallNextResponse é o desfecho da chamada do próximo da fila.
type CallNextResponse struct {
	Status string               `json:"status"`
	Called *models.CalledPerson `json:"called_person,omitempty"`
}

// CallNext godoc
// @Summary		Chamar o próximo da fila
// @Description	Remove a cabeça da fila, cria o registro de chamada e notifica a pessoa
// @Tags			admin
// @Accept			json
// @Produce		json
// @Param			type	path		string	true	"Tipo de fila"
// @Security		BearerAuth
// @Success		200		{object}	CallNextResponse	"Pessoa chamada ou fila vazia"
// @Failure		400		{object}	response.ErrorResponse	"Erro de validação (INVALID_QUEUE_TYPE)"
// @Failure		500		{object}	response.ErrorResponse	"Erro do servidor (INTERNAL_ERROR)"
// @Router			/api/admin/queues/{type}/call [post]
func (h *Handler) CallNext(c *gin.Context) {
	queueType := c.Param("type")
	if !models.ValidQueueType(queueType) {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{
			Code:    "INVALID_QUEUE_TYPE",
			Message: "Tipo de fila inválido",
		})
		return
	}

	result, err := h.Queue.CallNext(queueType)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "INTERNAL_ERROR",
			Message: "Ocorreu um erro interno ao chamar o próximo da fila.",
		})
		return
	}

	c.JSON(http.StatusOK, CallNextResponse{Status: result.Status, Called: result.Called})
}

// ListQueue godoc
// @Summary		Lista de uma fila
// @Description	Devolve as pessoas aguardando em ordem de posição
// @Tags			admin
// @Produce		json
// @Param			type	path		string	true	"Tipo de fila"
// @Security		BearerAuth
// @Success		200		{array}		models.QueueEntry	"Pessoas aguardando"
// @Failure		400		{object}	response.ErrorResponse	"Erro de validação (INVALID_QUEUE_TYPE)"
// @Failure		500		{object}	response.ErrorResponse	"Erro do servidor (INTERNAL_ERROR)"
// @Router			/api/admin/queues/{type} [get]
func (h *Handler) ListQueue(c *gin.Context) {
	queueType := c.Param("type")
	if !models.ValidQueueType(queueType) {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{
			Code:    "INVALID_QUEUE_TYPE",
			Message: "Tipo de fila inválido",
		})
		return
	}

	entries, err := h.Queue.ListQueue(queueType)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "INTERNAL_ERROR",
			Message: "Erro ao carregar a fila.",
		})
		return
	}
	c.JSON(http.StatusOK, entries)
}

// RemoveEntry godoc
// @Summary		Remover pessoa da fila
// @Description	Exclui um registro da fila e recalcula as posições
// @Tags			admin
// @Produce		json
// @Param			id	path		int	true	"ID do registro na fila"
// @Security		BearerAuth
// @Success		200	{object}	response.SuccessResponse	"Registro removido"
// @Failure		400	{object}	response.ErrorResponse	"Erro de validação (INVALID_DOC_ID)"
// @Failure		404	{object}	response.ErrorResponse	"Registro não encontrado (ENTRY_NOT_FOUND)"
// @Failure		500	{object}	response.ErrorResponse	"Erro do servidor (INTERNAL_ERROR)"
// @Router			/api/admin/entries/{id} [delete]
func (h *Handler) RemoveEntry(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{
			Code:    "INVALID_DOC_ID",
			Message: "Identificador de registro inválido",
		})
		return
	}

	if err := h.Queue.RemoveFromQueue(uint(id)); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, response.ErrorResponse{
				Code:    "ENTRY_NOT_FOUND",
				Message: "Registro não encontrado na fila",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "INTERNAL_ERROR",
			Message: "Erro ao remover da fila.",
		})
		return
	}

	c.JSON(http.StatusOK, response.SuccessResponse{Message: "Registro removido da fila"})
}

// ListCalled godoc
// @Summary		Lista de chamados
// @Description	Devolve os chamados aguardando ação e os recém-resolvidos
// @Tags			admin
// @Produce		json
// @Security		BearerAuth
// @Success		200	{array}		models.CalledPerson	"Chamados visíveis no painel"
// @Failure		500	{object}	response.ErrorResponse	"Erro do servidor (INTERNAL_ERROR)"
// @Router			/api/admin/called [get]
func (h *Handler) ListCalled(c *gin.Context) {
	called, err := h.Queue.ListCalled()
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "INTERNAL_ERROR",
			Message: "Erro ao carregar a lista de chamados.",
		})
		return
	}
	c.JSON(http.StatusOK, called)
}

// CalledStats godoc
// @Summary		Estatísticas de atendimento
// @Description	Contadores de presenças confirmadas por fila
// @Tags			admin
// @Produce		json
// @Security		BearerAuth
// @Success		200	{object}	queue.CalledStats	"Contadores por fila"
// @Failure		500	{object}	response.ErrorResponse	"Erro do servidor (INTERNAL_ERROR)"
// @Router			/api/admin/called/stats [get]
func (h *Handler) CalledStats(c *gin.Context) {
	stats, err := h.Queue.Stats()
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "INTERNAL_ERROR",
			Message: "Erro ao carregar as estatísticas.",
		})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// ConfirmPresence godoc
// @Summary		Confirmar presença
// @Description	Marca o chamado como confirmado; só a primeira transição vence
// @Tags			admin
// @Produce		json
// @Param			id	path		int	true	"ID do chamado"
// @Security		BearerAuth
// @Success		200	{object}	response.SuccessResponse	"Presença confirmada"
// @Failure		400	{object}	response.ErrorResponse	"Erro de validação (INVALID_DOC_ID)"
// @Failure		409	{object}	response.ErrorResponse	"Chamado já resolvido (ALREADY_RESOLVED)"
// @Failure		500	{object}	response.ErrorResponse	"Erro do servidor (INTERNAL_ERROR)"
// @Router			/api/admin/called/{id}/confirm [post]
func (h *Handler) ConfirmPresence(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{
			Code:    "INVALID_DOC_ID",
			Message: "Identificador de chamado inválido",
		})
		return
	}

	won, err := h.Queue.ConfirmPresence(uint(id))
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "INTERNAL_ERROR",
			Message: "Erro ao confirmar presença.",
		})
		return
	}
	if !won {
		c.JSON(http.StatusConflict, response.ErrorResponse{
			Code:    "ALREADY_RESOLVED",
			Message: "Este chamado já foi resolvido",
		})
		return
	}

	c.JSON(http.StatusOK, response.SuccessResponse{Message: "Presença confirmada"})
}

// MarkNoShow godoc
// @Summary		Marcar não comparecimento
// @Description	Marca o chamado como no-show; só a primeira transição vence
// @Tags			admin
// @Produce		json
// @Param			id	path		int	true	"ID do chamado"
// @Security		BearerAuth
// @Success		200	{object}	response.SuccessResponse	"Não comparecimento registrado"
// @Failure		400	{object}	response.ErrorResponse	"Erro de validação (INVALID_DOC_ID)"
// @Failure		409	{object}	response.ErrorResponse	"Chamado já resolvido (ALREADY_RESOLVED)"
// @Failure		500	{object}	response.ErrorResponse	"Erro do servidor (INTERNAL_ERROR)"
// @Router			/api/admin/called/{id}/no-show [post]
func (h *Handler) MarkNoShow(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{
			Code:    "INVALID_DOC_ID",
			Message: "Identificador de chamado inválido",
		})
		return
	}

	won, err := h.Queue.MarkNoShow(uint(id))
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "INTERNAL_ERROR",
			Message: "Erro ao marcar não comparecimento.",
		})
		return
	}
	if !won {
		c.JSON(http.StatusConflict, response.ErrorResponse{
			Code:    "ALREADY_RESOLVED",
			Message: "Este chamado já foi resolvido",
		})
		return
	}

	c.JSON(http.StatusOK, response.SuccessResponse{Message: "Não comparecimento registrado"})
}

// ClearCalled godoc
// @Summary		Limpar histórico de chamados
// @Description	Apaga todos os registros de chamados
// @Tags			admin
// @Produce		json
// @Security		BearerAuth
// @Success		200	{object}	response.SuccessResponse	"Histórico limpo"
// @Failure		500	{object}	response.ErrorResponse	"Erro do servidor (INTERNAL_ERROR)"
// @Router			/api/admin/called [delete]
func (h *Handler) ClearCalled(c *gin.Context) {
	if err := h.Queue.ClearCalledHistory(); err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "INTERNAL_ERROR",
			Message: "Erro ao limpar o histórico.",
		})
		return
	}
	c.JSON(http.StatusOK, response.SuccessResponse{Message: "Histórico de chamados limpo"})
}

// AdminWebSocket godoc
// @Summary		Assinatura de eventos do painel
// @Description	Transmite os eventos de chamados e configuração para o painel
// @Tags			admin
// @Router			/api/admin/ws [get]
func (h *Handler) AdminWebSocket(c *gin.Context) {
	h.Hub.Subscribe(c, ws.AdminChannel)
}
