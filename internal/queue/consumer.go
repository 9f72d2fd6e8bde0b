package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// StartAcceptedConsumer connects to RabbitMQ, declares the durable
// quotation.accepted queue and consumes it, appending one line per
// acceptance to logs/acceptance.log.  It runs a reconnect loop with
// exponential backoff and never returns under normal operation; broken
// messages are rejected without requeue so a poison message cannot
// wedge the consumer.
func StartAcceptedConsumer() error {
	url := brokerURL()

	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Printf("acceptance-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		if err := consumeLoop(conn); err != nil {
			log.Printf("acceptance-consumer: consume loop ended: %v; reconnecting", err)
			time.Sleep(2 * time.Second)
			continue
		}
	}
}

func consumeLoop(conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Printf("acceptance-consumer: set QoS failed: %v", err)
	}

	if _, err = ch.QueueDeclare(acceptedQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(acceptedQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := handleMessage(d.Body); err != nil {
			log.Printf("acceptance-consumer: handle message failed: %v", err)
			_ = d.Nack(false, false)
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

func handleMessage(body []byte) error {
	var ev QuotationAcceptedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if err := os.MkdirAll("logs", 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	fpath := filepath.Join("logs", "acceptance.log")
	f, err := os.OpenFile(fpath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	eventID := "-"
	if ev.EventID != nil {
		eventID = fmt.Sprintf("%d", *ev.EventID)
	}
	line := fmt.Sprintf("[%s] Quotation accepted | quote=%s | quotation_id=%d | client_id=%d | event_id=%s | total=%.2f %s | deposit=%.2f | reservations=%d | by=%d\n",
		ev.AcceptedAt, ev.QuoteNumber, ev.QuotationID, ev.ClientID, eventID, ev.Total, ev.Currency, ev.DepositDue, ev.ReservationCount, ev.AcceptedBy)

	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}
