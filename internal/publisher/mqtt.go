package publisher

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"gridwatt/internal/config"
	"gridwatt/internal/scraper"
)

// Publisher pushes the freshest readings per account to an MQTT broker so
// Home Assistant (or anything else) can pick them up.
type Publisher struct {
	client      mqtt.Client
	topicPrefix string
}

// New connects to the broker configured in cfg.
func New(cfg config.MQTTConfig) (*Publisher, error) {
	if cfg.Broker == "" {
		return nil, fmt.Errorf("mqtt broker address is required when enabled")
	}

	topicPrefix := cfg.TopicPrefix
	if topicPrefix == "" {
		topicPrefix = "electricity"
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s", cfg.Broker))
	opts.SetClientID("gridwatt")
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectTimeout(10 * time.Second)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connecting to MQTT broker: %w", token.Error())
	}

	return &Publisher{client: client, topicPrefix: topicPrefix}, nil
}

// reading is the payload published per account.
type reading struct {
	Balance        *float64 `json:"balance,omitempty"`
	YearlyUsage    *float64 `json:"yearly_usage,omitempty"`
	YearlyCharge   *float64 `json:"yearly_charge,omitempty"`
	LastDailyDate  string   `json:"last_daily_date,omitempty"`
	LastDailyUsage *float64 `json:"last_daily_usage,omitempty"`
}

// Publish sends one account's figures as a retained message on
// <prefix>/<account>/state.
func (p *Publisher) Publish(figures scraper.AccountFigures) error {
	payload := reading{
		Balance:        figures.Balance,
		YearlyUsage:    figures.YearlyUsage,
		YearlyCharge:   figures.YearlyCharge,
		LastDailyUsage: figures.LastDailyUsage,
	}
	if figures.LastDailyDate != nil {
		payload.LastDailyDate = figures.LastDailyDate.Format("2006-01-02")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}

	topic := fmt.Sprintf("%s/%s/state", p.topicPrefix, figures.Account.ID)
	if token := p.client.Publish(topic, 0, true, body); token.Wait() && token.Error() != nil {
		return fmt.Errorf("publishing to %s: %w", topic, token.Error())
	}

	return nil
}

// Close disconnects from the broker
func (p *Publisher) Close() {
	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(250)
	}
}
