package queue

import (
	"log"
	"time"

	"fila_dnj/internal/models"
	"fila_dnj/internal/ws"
)

// ConfirmPresence marca um chamado como confirmado. A transição só acontece
// se o registro ainda está em "waiting"; sob disputa com o varredor de
// expiração ou outro admin, o primeiro commit vence. Devolve se este
// chamador efetuou a transição.
func (s *Service) ConfirmPresence(id uint) (bool, error) {
	won, err := claimOnce(s.db, &models.CalledPerson{}, id,
		map[string]interface{}{"status": models.StatusWaiting},
		map[string]interface{}{"status": models.StatusConfirmed})
	if err != nil {
		return false, err
	}
	if won {
		s.hub.Broadcast(ws.AdminChannel, ws.Event{EventType: ws.EventCalledUpdated})
	}
	return won, nil
}

// MarkNoShow marca um chamado como não compareceu (ação do admin).
func (s *Service) MarkNoShow(id uint) (bool, error) {
	won, err := claimOnce(s.db, &models.CalledPerson{}, id,
		map[string]interface{}{"status": models.StatusWaiting},
		map[string]interface{}{"status": models.StatusNoShow})
	if err != nil {
		return false, err
	}
	if won {
		s.hub.Broadcast(ws.AdminChannel, ws.Event{EventType: ws.EventCalledUpdated})
	}
	return won, nil
}

// SweepExpired transforma em no-show todo chamado "waiting" cuja janela de
// resposta terminou. Idempotente: registros terminais não são tocados.
// Devolve quantos registros mudaram.
func (s *Service) SweepExpired(now time.Time) (int64, error) {
	res := s.db.Model(&models.CalledPerson{}).
		Where("status = ? AND expires_at <= ?", models.StatusWaiting, now).
		Update("status", models.StatusNoShow)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected > 0 {
		log.Printf("%d chamado(s) expiraram sem confirmação", res.RowsAffected)
		s.hub.Broadcast(ws.AdminChannel, ws.Event{EventType: ws.EventCalledUpdated})
	}
	return res.RowsAffected, nil
}

// ListCalled devolve os chamados que ainda exigem ação do admin, mais os
// que mudaram de status há menos de um minuto (retenção no painel).
func (s *Service) ListCalled() ([]models.CalledPerson, error) {
	cutoff := time.Now().Add(-models.DisplayRetention)
	var called []models.CalledPerson
	err := s.db.Where("status = ? OR updated_at >= ?", models.StatusWaiting, cutoff).
		Order("called_at ASC").Find(&called).Error
	return called, err
}

// CalledStats são os contadores de atendimentos confirmados por fila.
type CalledStats struct {
	ConfissoesConfirmed        int64 `json:"confissoesConfirmed"`
	DirecaoEspiritualConfirmed int64 `json:"direcaoEspiritualConfirmed"`
}

// Stats conta os atendimentos confirmados de cada fila.
func (s *Service) Stats() (CalledStats, error) {
	var stats CalledStats
	err := s.db.Model(&models.CalledPerson{}).
		Where("queue_type = ? AND status = ?", models.QueueConfissoes, models.StatusConfirmed).
		Count(&stats.ConfissoesConfirmed).Error
	if err != nil {
		return CalledStats{}, err
	}
	err = s.db.Model(&models.CalledPerson{}).
		Where("queue_type = ? AND status = ?", models.QueueDirecaoEspiritual, models.StatusConfirmed).
		Count(&stats.DirecaoEspiritualConfirmed).Error
	if err != nil {
		return CalledStats{}, err
	}
	return stats, nil
}

// ClearCalledHistory apaga todo o histórico de chamados (ação do admin).
func (s *Service) ClearCalledHistory() error {
	if err := s.db.Where("1 = 1").Delete(&models.CalledPerson{}).Error; err != nil {
		return err
	}
	s.hub.Broadcast(ws.AdminChannel, ws.Event{EventType: ws.EventQueueCleared})
	log.Println("Histórico de chamados limpo pelo admin.")
	return nil
}

// PruneCalledHistory remove chamados terminais com mais de 24h.
func (s *Service) PruneCalledHistory() error {
	threshold := time.Now().Add(-24 * time.Hour)
	res := s.db.Where("status IN ? AND updated_at < ?",
		[]string{models.StatusConfirmed, models.StatusNoShow}, threshold).
		Delete(&models.CalledPerson{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		log.Printf("%d chamado(s) antigos removidos.", res.RowsAffected)
	}
	return nil
}
