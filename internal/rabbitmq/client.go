// Package rabbitmq is a thin client for the work queues the dispatch worker
// feeds: email jobs and receipt-document jobs.
package rabbitmq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Client holds one connection and one channel to the broker.
type Client struct {
	conn *amqp.Connection
	chn  *amqp.Channel
}

func NewClient(url string) (*Client, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	chn, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	return &Client{conn: conn, chn: chn}, nil
}

// Close releases the channel, then the connection.
func (c *Client) Close() error {
	if err := c.chn.Close(); err != nil {
		return err
	}
	return c.conn.Close()
}

// CreateQueue declares a durable queue. Declaring an existing queue is a
// no-op, so every process declares what it uses at startup.
func (c *Client) CreateQueue(queueName string) error {
	_, err := c.chn.QueueDeclare(
		queueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	return err
}

// Publish sends a persistent JSON message to the named queue.
func (c *Client) Publish(ctx context.Context, queueName string, body []byte) error {
	return c.chn.PublishWithContext(
		ctx,
		"",        // exchange
		queueName, // routing key
		false,     // mandatory
		false,     // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
}

// Consume starts delivering messages from the named queue. Acks are manual;
// a worker acknowledges only after its job finished.
func (c *Client) Consume(queueName string) (<-chan amqp.Delivery, error) {
	msgs, err := c.chn.Consume(
		queueName,
		"",    // consumer
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return nil, fmt.Errorf("consume %s: %w", queueName, err)
	}
	return msgs, nil
}
