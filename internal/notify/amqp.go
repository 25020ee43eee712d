package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// dialer opens a channel ready for publishing. closed fires when the
// underlying connection goes away; it may be nil.
type dialer func() (ch publisher, conn io.Closer, closed <-chan *amqp.Error, err error)

// AMQP publishes notifications as persistent JSON messages to a topic
// exchange, routed by notification kind. A dropped connection is redialed on
// the next Send.
type AMQP struct {
	dial     dialer
	exchange string
	timeout  time.Duration
	logger   *log.Logger

	mu   sync.Mutex
	ch   publisher
	conn io.Closer
}

// DialAMQP connects to the broker and declares the durable exchange.
func DialAMQP(url, exchange string, logger *log.Logger) (*AMQP, error) {
	a := newAMQP(func() (publisher, io.Closer, <-chan *amqp.Error, error) {
		return dialExchange(url, exchange)
	}, exchange, logger)
	if _, err := a.channel(); err != nil {
		return nil, err
	}
	return a, nil
}

func dialExchange(url, exchange string) (publisher, io.Closer, <-chan *amqp.Error, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, nil, fmt.Errorf("open amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(
		exchange,
		amqp.ExchangeTopic,
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		_ = conn.Close()
		return nil, nil, nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return ch, conn, conn.NotifyClose(make(chan *amqp.Error, 1)), nil
}

func newAMQP(dial dialer, exchange string, logger *log.Logger) *AMQP {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &AMQP{dial: dial, exchange: exchange, timeout: 5 * time.Second, logger: logger}
}

func (a *AMQP) channel() (publisher, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.ch != nil {
		return a.ch, nil
	}
	ch, conn, closed, err := a.dial()
	if err != nil {
		return nil, err
	}
	a.ch, a.conn = ch, conn
	if closed != nil {
		go a.watch(closed, ch)
	}
	return ch, nil
}

// watch forgets ch once its connection closes so the next Send redials.
func (a *AMQP) watch(closed <-chan *amqp.Error, ch publisher) {
	reason := <-closed
	if a.drop(ch) {
		a.logger.Printf("notify: amqp connection closed reason=%v", reason)
	}
}

func (a *AMQP) drop(ch publisher) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.ch != ch {
		return false
	}
	if a.conn != nil {
		_ = a.conn.Close()
	}
	a.ch, a.conn = nil, nil
	return true
}

func (a *AMQP) Send(ctx context.Context, n Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	ch, err := a.channel()
	if err != nil {
		a.logger.Printf("notify: redial kind=%s order_id=%s error=%v", n.Kind, n.OrderID, err)
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	msg := amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		MessageId:    uuid.NewString(),
		Timestamp:    time.Now(),
		Type:         string(n.Kind),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, a.exchange, "notification."+string(n.Kind), false, false, msg); err != nil {
		a.drop(ch)
		a.logger.Printf("notify: publish kind=%s order_id=%s error=%v", n.Kind, n.OrderID, err)
		return err
	}
	a.logger.Printf("notify: published kind=%s order_id=%s", n.Kind, n.OrderID)
	return nil
}

func (a *AMQP) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	conn := a.conn
	a.ch, a.conn = nil, nil
	if conn == nil {
		return nil
	}
	return conn.Close()
}
