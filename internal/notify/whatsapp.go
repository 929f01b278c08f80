package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"fila_dnj/internal/models"
)

// Kind é o tipo de mensagem enviada pelo WhatsApp.
type Kind string

const (
	KindWelcome     Kind = "welcome"
	KindAlmostThere Kind = "almost-there"
	KindTurn        Kind = "turn"
)

// Notifier envia uma mensagem para a pessoa. A entrega é melhor-esforço:
// o chamador registra falhas no log e nunca as propaga para a operação principal.
type Notifier interface {
	Send(name, phone, queueType string, kind Kind, position int) error
}

// WhatsAppGateway publica {name, phone, message} no webhook de automação.
type WhatsAppGateway struct {
	URL    string
	Client *http.Client
}

func NewWhatsAppGateway(url string) *WhatsAppGateway {
	return &WhatsAppGateway{
		URL:    url,
		Client: &http.Client{Timeout: 10 * time.Second},
	}
}

type webhookPayload struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

func (g *WhatsAppGateway) Send(name, phone, queueType string, kind Kind, position int) error {
	if g.URL == "" {
		return fmt.Errorf("webhook do WhatsApp não configurado")
	}

	message, err := BuildMessage(kind, name, queueType, position)
	if err != nil {
		return err
	}

	body, err := json.Marshal(webhookPayload{Name: name, Phone: phone, Message: message})
	if err != nil {
		return err
	}

	resp, err := g.Client.Post(g.URL, "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook respondeu com status %d", resp.StatusCode)
	}
	return nil
}

// BuildMessage monta o texto da mensagem para o tipo informado.
// position só é usado no "quase lá".
func BuildMessage(kind Kind, name, queueType string, position int) (string, error) {
	queueName := models.QueueLabel(queueType)

	switch kind {
	case KindTurn:
		return fmt.Sprintf("Agora sim! Chegou sua vez %s! :)\n\n"+
			"Faça uma ótima %s! Se quiser pode fazer sua oração de penitência ou ação de graças na Paróquia ao lado do Espaço Esperança.\n\n"+
			"Deus abençoe e Salve Maria!\n_______\n"+
			"*Esta é uma mensagem automática, não precisa responder :)*", name, queueName), nil
	case KindAlmostThere:
		return fmt.Sprintf("Oba! Está chegando sua vez %s! :D\n\n"+
			"_*Você está na posição %d!*_\n\n"+
			"Vá se direcionando para o Espaço Esperança para poder desfrutar da sua %s!\n_______\n"+
			"*Esta é uma mensagem automática, não precisa responder :)*", name, position, queueName), nil
	case KindWelcome:
		return fmt.Sprintf("Oi %s! Você já está na fila para %s! :D\n\n"+
			"* Fique atento(a) ao número de pessoas na sua frente no web-app!\n"+
			"* Você pode curtir o evento enquanto espera, mas evite ficar muito longe.\n"+
			"* Aqui no whats também iremos tentar te avisar quando estiver chegando próximo da sua vez, ok?\n\n"+
			"Desejamos que você tenha uma %s abençoada!\n_______\n"+
			"*Esta é uma mensagem automática, não precisa responder :)*", name, queueName, queueName), nil
	default:
		return "", fmt.Errorf("tipo de mensagem inválido: %s", kind)
	}
}
