// Package rabbitmq — подключение к RabbitMQ и публикация заявок на вывод
// средств. Заявки на карту и крипту обрабатываются оператором асинхронно,
// очередь переживает рестарты брокера.
package rabbitmq

import (
	"fmt"
	"time"

	"github.com/streadway/amqp"
)

// Топология заявок на вывод: direct-exchange и одна durable-очередь.
const (
	WithdrawalsExchange  = "withdrawals"
	WithdrawalQueue      = "withdrawal.requests"
	WithdrawalRoutingKey = "withdrawal.request"
)

// Connect подключается к RabbitMQ с повторными попытками.
func Connect(connection string, retries int, delay time.Duration) (*amqp.Connection, error) {
	const op = "rabbitmq.Connect"
	var conn *amqp.Connection
	var err error

	for i := 0; i < retries; i++ {
		conn, err = amqp.Dial(connection)
		if err == nil {
			return conn, nil
		}
		time.Sleep(delay)
	}

	return nil, fmt.Errorf("%s: %w", op, err)
}

// SetupChannel открывает канал и объявляет топологию заявок на вывод.
func SetupChannel(conn *amqp.Connection) (*amqp.Channel, error) {
	const op = "rabbitmq.SetupChannel"

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	err = ch.ExchangeDeclare(
		WithdrawalsExchange,
		"direct",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	_, err = ch.QueueDeclare(
		WithdrawalQueue,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	err = ch.QueueBind(WithdrawalQueue, WithdrawalRoutingKey, WithdrawalsExchange, false, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return ch, nil
}
