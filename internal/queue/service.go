package queue

import (
	"errors"
	"log"
	"time"

	"fila_dnj/internal/config"
	"fila_dnj/internal/models"
	"fila_dnj/internal/notify"
	"fila_dnj/internal/ws"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Service é o núcleo da fila: admissão, recálculo de posições, chamada do
// próximo e os disparos de notificação. Todas as mutações multi-registro
// rodam dentro de transações do banco; não há locks de aplicação.
type Service struct {
	db       *gorm.DB
	config   *config.Store
	notifier notify.Notifier
	hub      *ws.Hub
}

func NewService(db *gorm.DB, cfg *config.Store, notifier notify.Notifier, hub *ws.Hub) *Service {
	return &Service{db: db, config: cfg, notifier: notifier, hub: hub}
}

// Códigos de bloqueio de admissão devolvidos ao chamador.
const (
	BlockAlreadyCalled  = "ALREADY_CALLED"
	BlockRecentlyCalled = "RECENTLY_CALLED"
	BlockOtherQueue     = "OTHER_QUEUE"
	BlockQueueClosed    = "QUEUE_CLOSED"
)

// AdmissionDecision é o resultado puro da validação de entrada.
type AdmissionDecision struct {
	CanJoin  bool
	Code     string
	Reason   string
	Called   *models.CalledPerson // pessoa já chamada, aguardando confirmação
	Existing *models.QueueEntry   // sessão recuperável na mesma fila
}

// ValidateAdmission decide se a pessoa pode entrar na fila. Sem efeitos
// colaterais; quem chama faz a inserção. As regras são avaliadas em ordem:
// os registros de chamada vêm antes dos de espera, porque quem acabou de
// ser chamado não tem mais registro na fila e poderia reentrar na hora.
func (s *Service) ValidateAdmission(name, phone, queueType string) (AdmissionDecision, error) {
	// 1. Já foi chamado e ainda não respondeu: devolve a tela de chamada.
	var called models.CalledPerson
	err := s.db.Where("phone = ? AND queue_type = ? AND status = ?",
		phone, queueType, models.StatusWaiting).First(&called).Error
	if err == nil {
		return AdmissionDecision{
			Code:   BlockAlreadyCalled,
			Reason: "Você já foi chamado! Dirija-se ao local de atendimento.",
			Called: &called,
		}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return AdmissionDecision{}, err
	}

	// 2. Trava de reentrada: chamado nesta fila nos últimos 15 minutos.
	cutoff := time.Now().Add(-models.RejoinCooldown)
	var recent models.CalledPerson
	err = s.db.Where("phone = ? AND queue_type = ? AND called_at >= ?",
		phone, queueType, cutoff).Order("called_at DESC").First(&recent).Error
	if err == nil {
		return AdmissionDecision{
			Code:   BlockRecentlyCalled,
			Reason: "Você já foi chamado nesta fila recentemente. Aguarde 15 minutos para entrar novamente.",
		}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return AdmissionDecision{}, err
	}

	// 3. Fila única por telefone, em qualquer tipo de atendimento.
	var existing models.QueueEntry
	err = s.db.Where("phone = ? AND status = ?", phone, models.StatusWaiting).First(&existing).Error
	if err == nil {
		if existing.QueueType == queueType {
			// Mesma fila: recuperação de sessão, não é erro.
			return AdmissionDecision{Existing: &existing}, nil
		}
		return AdmissionDecision{
			Code: BlockOtherQueue,
			Reason: "Este telefone já está sendo usado na fila de " +
				models.QueueLabel(existing.QueueType) + ". Não é possível entrar em duas filas ao mesmo tempo.",
		}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return AdmissionDecision{}, err
	}

	// 4. Fila fechada rejeita novas entradas.
	cfg, err := s.config.Get()
	if err != nil {
		return AdmissionDecision{}, err
	}
	if !cfg.IsQueueOpen {
		return AdmissionDecision{
			Code:   BlockQueueClosed,
			Reason: "A fila está fechada no momento. Tente novamente mais tarde.",
		}, nil
	}

	return AdmissionDecision{CanJoin: true}, nil
}

// JoinResult é o desfecho de uma tentativa de entrada na fila.
type JoinResult struct {
	Status   string // success | called | blocked
	DocID    uint
	Position int
	Code     string
	Message  string
}

// JoinQueue valida a admissão e, quando permitida, insere a pessoa e
// recalcula as posições na mesma transação. Notificações saem após o commit.
func (s *Service) JoinQueue(name, phone, queueType string) (JoinResult, error) {
	decision, err := s.ValidateAdmission(name, phone, queueType)
	if err != nil {
		return JoinResult{}, err
	}

	if decision.Called != nil {
		log.Printf("%s já foi chamado na fila %s e aguarda confirmação", name, queueType)
		return JoinResult{
			Status:  "called",
			DocID:   decision.Called.ID,
			Message: decision.Reason,
		}, nil
	}
	if decision.Existing != nil {
		log.Printf("Recuperando sessão do telefone %s na fila %s", phone, queueType)
		return JoinResult{
			Status:   "success",
			DocID:    decision.Existing.ID,
			Position: decision.Existing.Position,
			Message:  "Sua sessão na fila foi recuperada.",
		}, nil
	}
	if !decision.CanJoin {
		log.Printf("Entrada bloqueada para %s na fila %s: %s", name, queueType, decision.Code)
		return JoinResult{Status: "blocked", Code: decision.Code, Message: decision.Reason}, nil
	}

	cfg, err := s.config.Get()
	if err != nil {
		return JoinResult{}, err
	}

	entry := models.QueueEntry{
		Name:      name,
		Phone:     phone,
		QueueType: queueType,
		Status:    models.StatusWaiting,
	}
	var almostThere []models.QueueEntry
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&entry).Error; err != nil {
			// O índice único parcial rejeita o segundo "waiting" do mesmo
			// telefone; uma entrada concorrente venceu a corrida.
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return errAlreadyWaiting
			}
			return err
		}
		var err error
		if almostThere, err = s.reconcile(tx, queueType, cfg); err != nil {
			return err
		}
		// Recarrega a posição atribuída pela reconciliação.
		return tx.First(&entry, entry.ID).Error
	})
	if errors.Is(err, errAlreadyWaiting) {
		return s.recoverConcurrentJoin(phone, queueType)
	}
	if err != nil {
		return JoinResult{}, err
	}

	s.dispatch(cfg, entry.Name, entry.Phone, entry.QueueType, notify.KindWelcome, 0, 0)
	s.dispatchAlmostThere(cfg, almostThere)
	s.hub.Broadcast(queueType, ws.Event{
		EventType: ws.EventQueueUpdated,
		QueueType: queueType,
		Data:      map[string]interface{}{"joined": entry.Name, "position": entry.Position},
	})

	log.Printf("Sucesso: %s entrou na fila %s com ID %d (posição %d)",
		name, queueType, entry.ID, entry.Position)
	return JoinResult{
		Status:   "success",
		DocID:    entry.ID,
		Position: entry.Position,
		Message:  "Você entrou na fila!",
	}, nil
}

// reconcile recalcula as posições 1..N da fila dentro da transação do
// chamador, travando as linhas em ordem de admissão (created_at, id).
// Devolve as entradas que acabaram de cruzar a posição do "quase lá" e
// venceram a trava de envio único.
func (s *Service) reconcile(tx *gorm.DB, queueType string, cfg models.QueueConfig) ([]models.QueueEntry, error) {
	var entries []models.QueueEntry
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("queue_type = ? AND status = ?", queueType, models.StatusWaiting).
		Order("created_at ASC, id ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}

	var almostThere []models.QueueEntry
	for i := range entries {
		position := i + 1
		entry := &entries[i]
		if entry.Position == position {
			continue
		}

		if position == cfg.AlmostTherePosition && !entry.AlmostThereNotified {
			// A trava entra no mesmo UPDATE da posição: se outra passagem de
			// reconciliação já marcou a flag, esta perde e não notifica.
			won, err := claimOnce(tx, &models.QueueEntry{}, entry.ID,
				map[string]interface{}{"almost_there_notified": false},
				map[string]interface{}{"position": position, "almost_there_notified": true})
			if err != nil {
				return nil, err
			}
			entry.Position = position
			if won {
				almostThere = append(almostThere, *entry)
			}
			continue
		}

		if err := tx.Model(&models.QueueEntry{}).Where("id = ?", entry.ID).
			Update("position", position).Error; err != nil {
			return nil, err
		}
		entry.Position = position
	}
	return almostThere, nil
}

var (
	errEmptyQueue     = errors.New("fila vazia")
	errAlreadyWaiting = errors.New("telefone já aguardando na fila")
)

// recoverConcurrentJoin resolve a entrada que perdeu a corrida de inserção:
// o registro vencedor vira recuperação de sessão na mesma fila ou bloqueio
// de fila única quando está no outro atendimento.
func (s *Service) recoverConcurrentJoin(phone, queueType string) (JoinResult, error) {
	var existing models.QueueEntry
	if err := s.db.Where("phone = ? AND status = ?", phone, models.StatusWaiting).
		First(&existing).Error; err != nil {
		return JoinResult{}, err
	}
	if existing.QueueType != queueType {
		return JoinResult{
			Status: "blocked",
			Code:   BlockOtherQueue,
			Message: "Este telefone já está sendo usado na fila de " +
				models.QueueLabel(existing.QueueType) + ". Não é possível entrar em duas filas ao mesmo tempo.",
		}, nil
	}
	log.Printf("Recuperando sessão do telefone %s na fila %s", phone, queueType)
	return JoinResult{
		Status:   "success",
		DocID:    existing.ID,
		Position: existing.Position,
		Message:  "Sua sessão na fila foi recuperada.",
	}, nil
}

// CallResult é o desfecho da chamada do próximo da fila.
type CallResult struct {
	Status string // success | empty
	Called *models.CalledPerson
}

// CallNext remove atomicamente a cabeça da fila, cria o registro de chamada
// com janela de 5 minutos e recalcula as posições restantes. Uma segunda
// chamada concorrente vê a fila vazia ou o próximo da vez, nunca a mesma
// pessoa duas vezes: a remoção acontece dentro da transação.
func (s *Service) CallNext(queueType string) (CallResult, error) {
	cfg, err := s.config.Get()
	if err != nil {
		return CallResult{}, err
	}

	var called models.CalledPerson
	var almostThere []models.QueueEntry
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var next models.QueueEntry
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("queue_type = ? AND status = ?", queueType, models.StatusWaiting).
			Order("created_at ASC, id ASC").
			First(&next).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errEmptyQueue
		}
		if err != nil {
			return err
		}

		if err := tx.Delete(&models.QueueEntry{}, next.ID).Error; err != nil {
			return err
		}

		now := time.Now()
		called = models.CalledPerson{
			Name:      next.Name,
			Phone:     next.Phone,
			QueueType: next.QueueType,
			CalledAt:  now,
			ExpiresAt: now.Add(models.ResponseWindow),
			Status:    models.StatusWaiting,
		}
		if err := tx.Create(&called).Error; err != nil {
			return err
		}

		almostThere, err = s.reconcile(tx, queueType, cfg)
		return err
	})
	if errors.Is(err, errEmptyQueue) {
		log.Printf("Fila %s está vazia. Ninguém para chamar.", queueType)
		return CallResult{Status: "empty"}, nil
	}
	if err != nil {
		return CallResult{}, err
	}

	// A notificação de vez é melhor-esforço e não bloqueia a chamada.
	s.dispatch(cfg, called.Name, called.Phone, called.QueueType, notify.KindTurn, 0, 0)
	s.dispatchAlmostThere(cfg, almostThere)
	s.hub.Broadcast(queueType, ws.Event{
		EventType: ws.EventPersonCalled,
		QueueType: queueType,
		Data:      map[string]interface{}{"name": called.Name},
	})
	s.hub.Broadcast(ws.AdminChannel, ws.Event{
		EventType: ws.EventCalledUpdated,
		QueueType: queueType,
	})

	log.Printf("Sucesso: %s foi chamado(a) da fila %s.", called.Name, queueType)
	return CallResult{Status: "success", Called: &called}, nil
}

// StatusResult é a visão da pessoa sobre sua situação na fila.
type StatusResult struct {
	Status       string // success | not_found
	Position     int
	TotalInQueue int
}

// GetUserQueueStatus calcula a posição contando quantos aguardando foram
// admitidos antes deste registro. Registro ausente significa que a pessoa
// foi chamada ou removida.
func (s *Service) GetUserQueueStatus(queueType string, docID uint) (StatusResult, error) {
	var entry models.QueueEntry
	err := s.db.Where("id = ? AND queue_type = ? AND status = ?",
		docID, queueType, models.StatusWaiting).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return StatusResult{Status: "not_found"}, nil
	}
	if err != nil {
		return StatusResult{}, err
	}

	var ahead int64
	err = s.db.Model(&models.QueueEntry{}).
		Where("queue_type = ? AND status = ?", queueType, models.StatusWaiting).
		Where("(created_at < ?) OR (created_at = ? AND id < ?)",
			entry.CreatedAt, entry.CreatedAt, entry.ID).
		Count(&ahead).Error
	if err != nil {
		return StatusResult{}, err
	}

	var total int64
	err = s.db.Model(&models.QueueEntry{}).
		Where("queue_type = ? AND status = ?", queueType, models.StatusWaiting).
		Count(&total).Error
	if err != nil {
		return StatusResult{}, err
	}

	return StatusResult{
		Status:       "success",
		Position:     int(ahead) + 1,
		TotalInQueue: int(total),
	}, nil
}

// RemoveFromQueue exclui uma entrada (ação do admin) e recalcula as posições.
func (s *Service) RemoveFromQueue(id uint) error {
	cfg, err := s.config.Get()
	if err != nil {
		return err
	}

	var entry models.QueueEntry
	var almostThere []models.QueueEntry
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&entry, id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.QueueEntry{}, entry.ID).Error; err != nil {
			return err
		}
		var err error
		almostThere, err = s.reconcile(tx, entry.QueueType, cfg)
		return err
	})
	if err != nil {
		return err
	}

	s.dispatchAlmostThere(cfg, almostThere)
	s.hub.Broadcast(entry.QueueType, ws.Event{
		EventType: ws.EventQueueUpdated,
		QueueType: entry.QueueType,
		Data:      map[string]interface{}{"removed": entry.Name},
	})
	log.Printf("%s removido(a) da fila %s pelo admin", entry.Name, entry.QueueType)
	return nil
}

// ListQueue devolve os aguardando de uma fila em ordem de posição.
func (s *Service) ListQueue(queueType string) ([]models.QueueEntry, error) {
	var entries []models.QueueEntry
	err := s.db.Where("queue_type = ? AND status = ?", queueType, models.StatusWaiting).
		Order("position ASC").Find(&entries).Error
	return entries, err
}

// dispatch envia uma notificação em segundo plano, respeitando o toggle de
// WhatsApp e o atraso configurado. Falhas só aparecem no log.
func (s *Service) dispatch(cfg models.QueueConfig, name, phone, queueType string, kind notify.Kind, position, delaySeconds int) {
	if !cfg.WhatsAppEnabled {
		log.Printf("WhatsApp desabilitado - não enviando '%s' para %s", kind, name)
		return
	}
	go func() {
		if delaySeconds > 0 {
			time.Sleep(time.Duration(delaySeconds) * time.Second)
		}
		if err := s.notifier.Send(name, phone, queueType, kind, position); err != nil {
			log.Printf("Erro ao enviar WhatsApp '%s' para %s: %v", kind, name, err)
			return
		}
		log.Printf("WhatsApp '%s' enviado para %s", kind, name)
	}()
}

// dispatchAlmostThere notifica quem cruzou a posição configurada.
// Só o "quase lá" usa o atraso configurado; boas-vindas e vez saem na hora.
func (s *Service) dispatchAlmostThere(cfg models.QueueConfig, entries []models.QueueEntry) {
	for _, e := range entries {
		s.dispatch(cfg, e.Name, e.Phone, e.QueueType, notify.KindAlmostThere, e.Position, cfg.NotificationDelay)
	}
}
