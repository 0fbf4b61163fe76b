package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/kilianp07/foodredist/core/model"
	"github.com/kilianp07/foodredist/core/monitoring"
	"github.com/kilianp07/foodredist/infra/logger"
)

// PickupNotice tells a charity that surplus was scheduled for it.
type PickupNotice struct {
	NoticeID        string    `json:"notice_id"`
	RunID           string    `json:"run_id"`
	ItemID          string    `json:"item_id"`
	CharityID       string    `json:"charity_id"`
	CharityName     string    `json:"charity_name"`
	QuantityKG      float64   `json:"quantity_kg"`
	DistanceKM      float64   `json:"distance_km"`
	SurplusLocation string    `json:"surplus_location"`
	OperatingNow    bool      `json:"operating_now"`
	ScheduledPickup time.Time `json:"scheduled_pickup"`
}

// Notifier publishes one pickup notice per committed allocation on
// <topic_prefix>/<charity_id>/pickup.
type Notifier struct {
	cli        pahoClient
	prefix     string
	qos        byte
	retain     bool
	maxRetries int
	backoff    time.Duration
	log        logger.Logger
	monitor    monitoring.Monitor
}

// NewNotifier connects to the broker.
func NewNotifier(cfg Config, mon monitoring.Monitor) (*Notifier, error) {
	cfg.SetDefaults()
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}
	log := logger.New("mqtt_notifier")
	opts.OnConnect = func(paho.Client) { log.Infof("MQTT connected to %s", cfg.Broker) }
	opts.OnConnectionLost = func(_ paho.Client, err error) { log.Errorf("connection lost: %v", err) }
	opts.OnReconnecting = func(paho.Client, *paho.ClientOptions) { log.Warnf("reconnecting to MQTT broker") }
	if mon == nil {
		mon = monitoring.NopMonitor{}
	}
	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.Broker, token.Error())
	}
	return &Notifier{
		cli:        c,
		prefix:     cfg.TopicPrefix,
		qos:        cfg.QoS,
		retain:     cfg.Retain,
		maxRetries: cfg.MaxRetries,
		backoff:    time.Duration(cfg.BackoffMS) * time.Millisecond,
		log:        log,
		monitor:    mon,
	}, nil
}

// Topic returns the pickup topic of a charity.
func (n *Notifier) Topic(charityID string) string {
	return fmt.Sprintf("%s/%s/pickup", n.prefix, charityID)
}

// NotifyBatch publishes a notice for every allocation. A failed notice does
// not stop the others.
func (n *Notifier) NotifyBatch(ctx context.Context, runID string, at time.Time, batch model.AllocationBatch) error {
	var errs []error
	for _, a := range batch {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		notice := PickupNotice{
			NoticeID:        uuid.NewString(),
			RunID:           runID,
			ItemID:          a.ItemID,
			CharityID:       a.CharityID,
			CharityName:     a.CharityName,
			QuantityKG:      a.AllocatedKG,
			DistanceKM:      a.DistanceKM,
			SurplusLocation: a.SurplusLocation,
			OperatingNow:    a.OperatingNow,
			ScheduledPickup: at,
		}
		if err := n.publish(ctx, n.Topic(a.CharityID), notice); err != nil {
			n.monitor.CaptureException(err, map[string]string{"module": "mqtt", "run_id": runID, "charity_id": a.CharityID})
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		n.log.Infof("run %s: sent %d pickup notices to %d charities", runID, len(batch), len(batch.Charities()))
	}
	return errors.Join(errs...)
}

func (n *Notifier) publish(ctx context.Context, topic string, notice PickupNotice) error {
	payload, err := json.Marshal(notice)
	if err != nil {
		return err
	}
	var publishErr error
	for attempt := 0; attempt <= n.maxRetries; attempt++ {
		token := n.cli.Publish(topic, n.qos, n.retain, payload)
		token.Wait()
		if publishErr = token.Error(); publishErr == nil {
			n.log.Debugf("sent pickup notice %s to %s", notice.NoticeID, topic)
			return nil
		}
		n.log.Warnf("publish attempt %d to %s failed: %v", attempt+1, topic, publishErr)
		if attempt == n.maxRetries {
			break
		}
		select {
		case <-time.After(n.backoff * time.Duration(1<<attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("publish %s: %w", topic, publishErr)
}

// Disconnect closes the broker connection.
func (n *Notifier) Disconnect() {
	if n.cli != nil && n.cli.IsConnected() {
		n.cli.Disconnect(250)
	}
}
