package config

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"fila_dnj/internal/models"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

var ctx = context.Background()

const (
	cacheKey = "fila:config"
	cacheTTL = 5 * time.Second
)

// Valores padrão da configuração, criados na primeira leitura.
var defaults = models.QueueConfig{
	AlmostTherePosition: 5,
	WhatsAppEnabled:     true,
	NotificationDelay:   10,
	IsQueueOpen:         true,
}

// Store lê e grava o documento único de configuração no Postgres,
// com cache curto em Redis na frente. O Redis é opcional: qualquer
// falha de cache é registrada e a leitura segue direto no banco.
type Store struct {
	db  *gorm.DB
	rdb *redis.Client
}

func NewStore(db *gorm.DB, rdb *redis.Client) *Store {
	return &Store{db: db, rdb: rdb}
}

// Get retorna a configuração atual, criando o registro padrão se não existir.
func (s *Store) Get() (models.QueueConfig, error) {
	if cached, ok := s.fromCache(); ok {
		return cached, nil
	}

	var cfg models.QueueConfig
	err := s.db.First(&cfg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		cfg = defaults
		if err := s.db.Create(&cfg).Error; err != nil {
			return models.QueueConfig{}, err
		}
	} else if err != nil {
		return models.QueueConfig{}, err
	}

	s.toCache(cfg)
	return cfg, nil
}

// Update carrega alterações parciais da configuração.
type Update struct {
	AlmostTherePosition *int  `json:"almostTherePosition"`
	WhatsAppEnabled     *bool `json:"whatsAppEnabled"`
	NotificationDelay   *int  `json:"notificationDelay"`
	IsQueueOpen         *bool `json:"isQueueOpen"`
}

// Validate confere os intervalos aceitos para cada campo.
func (u Update) Validate() error {
	if u.AlmostTherePosition != nil && (*u.AlmostTherePosition < 1 || *u.AlmostTherePosition > 20) {
		return errors.New("almostTherePosition deve estar entre 1 e 20")
	}
	if u.NotificationDelay != nil && (*u.NotificationDelay < 0 || *u.NotificationDelay > 300) {
		return errors.New("notificationDelay deve estar entre 0 e 300 segundos")
	}
	return nil
}

// Set aplica uma atualização parcial e devolve a configuração resultante.
func (s *Store) Set(u Update) (models.QueueConfig, error) {
	if err := u.Validate(); err != nil {
		return models.QueueConfig{}, err
	}

	cfg, err := s.Get()
	if err != nil {
		return models.QueueConfig{}, err
	}

	if u.AlmostTherePosition != nil {
		cfg.AlmostTherePosition = *u.AlmostTherePosition
	}
	if u.WhatsAppEnabled != nil {
		cfg.WhatsAppEnabled = *u.WhatsAppEnabled
	}
	if u.NotificationDelay != nil {
		cfg.NotificationDelay = *u.NotificationDelay
	}
	if u.IsQueueOpen != nil {
		cfg.IsQueueOpen = *u.IsQueueOpen
	}

	if err := s.db.Save(&cfg).Error; err != nil {
		return models.QueueConfig{}, err
	}

	s.invalidate()
	return cfg, nil
}

// Reset volta a configuração para os valores padrão.
func (s *Store) Reset() (models.QueueConfig, error) {
	cfg, err := s.Get()
	if err != nil {
		return models.QueueConfig{}, err
	}

	cfg.AlmostTherePosition = defaults.AlmostTherePosition
	cfg.WhatsAppEnabled = defaults.WhatsAppEnabled
	cfg.NotificationDelay = defaults.NotificationDelay
	cfg.IsQueueOpen = defaults.IsQueueOpen

	if err := s.db.Save(&cfg).Error; err != nil {
		return models.QueueConfig{}, err
	}

	s.invalidate()
	return cfg, nil
}

func (s *Store) fromCache() (models.QueueConfig, bool) {
	if s.rdb == nil {
		return models.QueueConfig{}, false
	}
	raw, err := s.rdb.Get(ctx, cacheKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Println("Erro ao ler configuração do cache:", err)
		}
		return models.QueueConfig{}, false
	}
	var cfg models.QueueConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		log.Println("Cache de configuração inválido, ignorando:", err)
		return models.QueueConfig{}, false
	}
	return cfg, true
}

func (s *Store) toCache(cfg models.QueueConfig) {
	if s.rdb == nil {
		return
	}
	raw, err := json.Marshal(cfg)
	if err != nil {
		return
	}
	if err := s.rdb.Set(ctx, cacheKey, raw, cacheTTL).Err(); err != nil {
		log.Println("Erro ao gravar configuração no cache:", err)
	}
}

func (s *Store) invalidate() {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Del(ctx, cacheKey).Err(); err != nil {
		log.Println("Erro ao invalidar cache de configuração:", err)
	}
}
