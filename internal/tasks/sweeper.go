package tasks

import (
	"log"
	"time"

	"fila_dnj/internal/queue"

	"github.com/robfig/cron/v3"
)

// InitScheduler sobe as tarefas de fundo:
//   - varredura de chamados expirados a cada segundo;
//   - poda diária do histórico de chamados às 03:00.
func InitScheduler(svc *queue.Service) *cron.Cron {
	c := cron.New(cron.WithSeconds())

	_, err := c.AddFunc("* * * * * *", func() {
		if _, err := svc.SweepExpired(time.Now()); err != nil {
			log.Println("Erro na varredura de chamados expirados:", err)
		}
	})
	if err != nil {
		log.Println("Erro ao registrar a varredura de expirados:", err)
	}

	_, err = c.AddFunc("0 0 3 * * *", func() {
		if err := svc.PruneCalledHistory(); err != nil {
			log.Println("Erro na poda do histórico de chamados:", err)
		}
	})
	if err != nil {
		log.Println("Erro ao registrar a poda do histórico:", err)
	}

	c.Start()
	log.Println("Agendador de tarefas iniciado.")
	return c
}
