package models

import (
	"time"

	"gorm.io/gorm"
)

// Tipos de fila disponíveis no evento.
const (
	QueueConfissoes        = "confissoes"
	QueueDirecaoEspiritual = "direcao-espiritual"
)

// Status de uma pessoa na fila ou na lista de chamados.
const (
	StatusWaiting   = "waiting"
	StatusConfirmed = "confirmed"
	StatusNoShow    = "no-show"
)

// Constantes de tempo do fluxo de chamada.
const (
	// ResponseWindow é o tempo que a pessoa chamada tem para confirmar presença.
	ResponseWindow = 5 * time.Minute
	// RejoinCooldown é o tempo mínimo de espera para reentrar na mesma fila após ser chamado.
	RejoinCooldown = 15 * time.Minute
	// DisplayRetention é quanto tempo um registro terminal ainda aparece no painel do admin.
	DisplayRetention = 1 * time.Minute
)

// ValidQueueType informa se o tipo de fila é um dos atendimentos do evento.
func ValidQueueType(queueType string) bool {
	return queueType == QueueConfissoes || queueType == QueueDirecaoEspiritual
}

// QueueLabel retorna o nome do atendimento exibido nas mensagens.
func QueueLabel(queueType string) string {
	if queueType == QueueConfissoes {
		return "Confissão"
	}
	return "Direção Espiritual"
}

// QueueEntry é uma pessoa aguardando na fila.
// CreatedAt (gorm.Model) é o timestamp de admissão; a ordem da fila é
// created_at ASC com desempate por id.
// O índice único parcial garante no banco a regra de fila única por
// telefone: duas entradas "waiting" para o mesmo número não coexistem,
// mesmo com inserções concorrentes.
type QueueEntry struct {
	gorm.Model
	Name                string `gorm:"not null"`
	Phone               string `gorm:"index;not null;uniqueIndex:uniq_waiting_phone,where:status = 'waiting' AND deleted_at IS NULL"`
	QueueType           string `gorm:"index;not null"`
	Status              string `gorm:"index;not null;default:waiting"`
	Position            int    `gorm:"index;not null"`
	AlmostThereNotified bool   `gorm:"not null;default:false"` // trava de envio único do "quase lá"
}

// CalledPerson é o registro pós-chamada, separado da fila: a QueueEntry é
// removida no momento da chamada e este registro nasce com status "waiting".
// UpdatedAt (gorm.Model) marca a transição terminal (confirmed/no-show).
type CalledPerson struct {
	gorm.Model
	Name      string    `gorm:"not null"`
	Phone     string    `gorm:"index;not null"`
	QueueType string    `gorm:"index;not null"`
	CalledAt  time.Time `gorm:"index;not null"`
	ExpiresAt time.Time `gorm:"index;not null"` // CalledAt + ResponseWindow
	Status    string    `gorm:"index;not null;default:waiting"`
}

// QueueConfig é o documento único de configuração das filas.
type QueueConfig struct {
	gorm.Model
	AlmostTherePosition int  `gorm:"not null;default:5"` // posição que dispara o "quase lá" [1,20]
	WhatsAppEnabled     bool `gorm:"not null;default:true"`
	NotificationDelay   int  `gorm:"not null;default:10"` // atraso do envio em segundos [0,300]
	IsQueueOpen         bool `gorm:"not null;default:true"`
}
