package handlers

import (
	"net/http"

	"fila_dnj/internal/config"
	"fila_dnj/internal/response"
	"fila_dnj/internal/ws"

	"github.com/gin-gonic/gin"
)

// GetConfig godoc
// @Summary		Configuração das filas
// @Description	Devolve a configuração atual (pública: a tela de espera usa a posição do "quase lá")
// @Tags			config
// @Produce		json
// @Success		200	{object}	models.QueueConfig	"Configuração atual"
// @Failure		500	{object}	response.ErrorResponse	"Erro do servidor (INTERNAL_ERROR)"
// @Router			/api/config [get]
func (h *Handler) GetConfig(c *gin.Context) {
	cfg, err := h.Config.Get()
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "INTERNAL_ERROR",
			Message: "Erro ao carregar a configuração.",
		})
		return
	}
	c.JSON(http.StatusOK, cfg)
}

// UpdateConfig godoc
// @Summary		Atualizar configuração
// @Description	Aplica uma atualização parcial da configuração das filas
// @Tags			config
// @Accept			json
// @Produce		json
// @Param			config	body		config.Update	true	"Campos a alterar"
// @Security		BearerAuth
// @Success		200		{object}	models.QueueConfig	"Configuração resultante"
// @Failure		400		{object}	response.ErrorResponse	"Valores fora do intervalo (VALIDATION_ERROR)"
// @Failure		500		{object}	response.ErrorResponse	"Erro do servidor (INTERNAL_ERROR)"
// @Router			/api/admin/config [put]
func (h *Handler) UpdateConfig(c *gin.Context) {
	var update config.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Erro de validação dos dados",
			Details: err.Error(),
		})
		return
	}

	if err := update.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: err.Error(),
		})
		return
	}

	cfg, err := h.Config.Set(update)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "INTERNAL_ERROR",
			Message: "Erro ao salvar a configuração.",
		})
		return
	}

	h.Hub.Broadcast(ws.AdminChannel, ws.Event{EventType: ws.EventConfigUpdated})
	c.JSON(http.StatusOK, cfg)
}

// ResetConfig godoc
// @Summary		Restaurar configuração padrão
// @Description	Volta a configuração das filas para os valores padrão
// @Tags			config
// @Produce		json
// @Security		BearerAuth
// @Success		200	{object}	models.QueueConfig	"Configuração padrão"
// @Failure		500	{object}	response.ErrorResponse	"Erro do servidor (INTERNAL_ERROR)"
// @Router			/api/admin/config/reset [post]
func (h *Handler) ResetConfig(c *gin.Context) {
	cfg, err := h.Config.Reset()
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "INTERNAL_ERROR",
			Message: "Erro ao restaurar a configuração.",
		})
		return
	}

	h.Hub.Broadcast(ws.AdminChannel, ws.Event{EventType: ws.EventConfigUpdated})
	c.JSON(http.StatusOK, cfg)
}
