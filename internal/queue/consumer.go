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

// StartActivityConsumer connects to RabbitMQ, declares the activity queues
// and consumes them, appending each event to logs/activity.log as a
// single human-readable line. It runs a reconnect loop with backoff and
// never returns under normal operation; processing errors are logged and
// the offending message rejected without requeue so the loop cannot spin.
func StartActivityConsumer() {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(brokerURL())
		if err != nil {
			log.Printf("activity-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		if err := consumeLoop(conn); err != nil {
			log.Printf("activity-consumer: consume loop ended: %v; reconnecting", err)
		}
		_ = conn.Close()
		time.Sleep(2 * time.Second)
	}
}

func consumeLoop(conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Printf("activity-consumer: set QoS failed: %v", err)
	}

	for _, q := range []string{BookUploadedQueue, ReviewPostedQueue} {
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			return fmt.Errorf("queue declare %s: %w", q, err)
		}
	}

	books, err := ch.Consume(BookUploadedQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", BookUploadedQueue, err)
	}
	reviews, err := ch.Consume(ReviewPostedQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", ReviewPostedQueue, err)
	}

	for {
		select {
		case d, ok := <-books:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			ackOrReject(d, handleBookUploaded(d.Body))
		case d, ok := <-reviews:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			ackOrReject(d, handleReviewPosted(d.Body))
		}
	}
}

func ackOrReject(d amqp.Delivery, err error) {
	if err != nil {
		log.Printf("activity-consumer: handle message failed: %v", err)
		_ = d.Nack(false, false) // reject, no requeue
		return
	}
	_ = d.Ack(false)
}

func handleBookUploaded(body []byte) error {
	var ev BookUploadedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	line := fmt.Sprintf("[%s] Book uploaded | book_id=%d | title=%q | author=%q | user_id=%d | username=%q\n",
		ev.UploadedAt, ev.BookID, ev.Title, ev.Author, ev.UserID, ev.Username)
	return appendActivity(line)
}

func handleReviewPosted(body []byte) error {
	var ev ReviewPostedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	line := fmt.Sprintf("[%s] Review posted | review_id=%d | book_id=%d | title=%q | user_id=%d | username=%q | rating=%d\n",
		ev.PostedAt, ev.ReviewID, ev.BookID, ev.Title, ev.UserID, ev.Username, ev.Rating)
	return appendActivity(line)
}

func appendActivity(line string) error {
	if err := os.MkdirAll("logs", 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(filepath.Join("logs", "activity.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}
