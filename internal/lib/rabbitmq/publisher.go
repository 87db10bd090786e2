package rabbitmq

import (
	"encoding/json"
	"fmt"

	"github.com/streadway/amqp"

	"github.com/glebknyazev/vpn-miniapp/internal/models"
)

// PublishMessage публикует сообщение в RabbitMQ.
func PublishMessage(ch *amqp.Channel, exchange string, routingkey string, message any) error {
	const op = "rabbitmq.PublishMessage"
	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	err = ch.Publish(
		exchange,
		routingkey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// TicketPublisher публикует заявки на вывод в очередь withdrawal.requests.
type TicketPublisher struct {
	ch *amqp.Channel
}

// NewTicketPublisher создает издателя заявок поверх открытого канала.
func NewTicketPublisher(ch *amqp.Channel) *TicketPublisher {
	return &TicketPublisher{ch: ch}
}

// Publish отправляет заявку на вывод в очередь.
func (p *TicketPublisher) Publish(ticket models.WithdrawalTicket) error {
	return PublishMessage(p.ch, WithdrawalsExchange, WithdrawalRoutingKey, ticket)
}
