// The background consumer listens to the pass.events queue and
// appends a structured line per event to logs/checkin.log, giving
// the venue a plain-text record of the evening that survives a
// dashboard outage.
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

// StartPassEventConsumer connects to RabbitMQ, declares the durable
// pass.events queue and starts consuming. It runs a reconnect loop
// forever: broker failures are logged and retried with backoff, and
// a message that cannot be processed is rejected without requeue so
// the consumer keeps moving.
func StartPassEventConsumer() error {
	url := brokerURL()

	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Printf("pass-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		if err := consumeLoop(conn); err != nil {
			log.Printf("pass-consumer: consume loop ended: %v; reconnecting", err)
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
		log.Printf("pass-consumer: set QoS failed: %v", err)
	}

	_, err = ch.QueueDeclare(passQueueName, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(passQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := handleMessage(d.Body); err != nil {
			log.Printf("pass-consumer: handle message failed: %v", err)
			_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

func handleMessage(body []byte) error {
	var ev PassEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if err := os.MkdirAll("logs", 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	fpath := filepath.Join("logs", "checkin.log")
	f, err := os.OpenFile(fpath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	var line string
	switch ev.Event {
	case EventEntryRecorded:
		line = fmt.Sprintf("[%s] Entry recorded | family=%q | code=%s | entering=%d | inside=%d/%d | completed=%t | staff=%d\n",
			ev.OccurredAt, ev.FamilyName, ev.AccessCode, ev.CountEntering, ev.EnteredCount, ev.PartySize, ev.Completed, ev.RecordedBy)
	case EventPassChanged:
		line = fmt.Sprintf("[%s] Pass %s | family=%q | code=%s | party=%d\n",
			ev.OccurredAt, ev.Action, ev.FamilyName, ev.AccessCode, ev.PartySize)
	case EventTableChanged:
		line = fmt.Sprintf("[%s] Table changed | table_id=%d\n", ev.OccurredAt, ev.TableID)
	default:
		line = fmt.Sprintf("[%s] %s | event_id=%s\n", ev.OccurredAt, ev.Event, ev.EventID)
	}

	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}
