package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gyanoda/user-service/internal/config"
	"go.uber.org/zap"
)

const (
	ChannelSMS      = "sms"
	ChannelWhatsApp = "whatsapp"
)

// twilioClient posts to the Twilio Messages endpoint with basic auth. The
// same client backs both the SMS and the WhatsApp channel.
type twilioClient struct {
	cfg    config.TwilioConfig
	http   *http.Client
	logger *zap.Logger
}

func newTwilioClient(cfg config.TwilioConfig, logger *zap.Logger) *twilioClient {
	return &twilioClient{
		cfg:    cfg,
		http:   &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}
}

type twilioResponse struct {
	Sid     string `json:"sid"`
	Status  string `json:"status"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

func (c *twilioClient) createMessage(ctx context.Context, form url.Values) error {
	endpoint := fmt.Sprintf("https://api.twilio.com/2010-04-01/Accounts/%s/Messages.json", c.cfg.AccountSID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.cfg.AccountSID, c.cfg.AuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("twilio request failed: %w", err)
	}
	defer resp.Body.Close()

	var body twilioResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("twilio response decode failed: %w", err)
	}

	if resp.StatusCode >= 400 {
		return fmt.Errorf("twilio error %d: %s", body.Code, body.Message)
	}
	switch body.Status {
	case "queued", "sent", "delivered", "accepted":
		c.logger.Info("Twilio message accepted",
			zap.String("sid", body.Sid),
			zap.String("status", body.Status))
		return nil
	default:
		return fmt.Errorf("unexpected twilio message status: %s", body.Status)
	}
}

// SMSChannel sends activation codes and confirmations as plain SMS through
// a Twilio messaging service.
type SMSChannel struct {
	client *twilioClient
}

func NewSMSChannel(cfg config.TwilioConfig, logger *zap.Logger) *SMSChannel {
	return &SMSChannel{client: newTwilioClient(cfg, logger.Named("SMSChannel"))}
}

func (s *SMSChannel) Name() string { return ChannelSMS }

func (s *SMSChannel) Send(ctx context.Context, n Notification) error {
	if n.Phone == "" {
		return fmt.Errorf("no phone number for sms")
	}
	form := url.Values{}
	form.Set("MessagingServiceSid", s.client.cfg.MessagingServiceSID)
	form.Set("To", n.Phone)
	form.Set("Body", renderText(n))
	return s.client.createMessage(ctx, form)
}

// WhatsAppChannel sends the same copy over Twilio's WhatsApp transport.
type WhatsAppChannel struct {
	client *twilioClient
}

func NewWhatsAppChannel(cfg config.TwilioConfig, logger *zap.Logger) *WhatsAppChannel {
	return &WhatsAppChannel{client: newTwilioClient(cfg, logger.Named("WhatsAppChannel"))}
}

func (w *WhatsAppChannel) Name() string { return ChannelWhatsApp }

func (w *WhatsAppChannel) Send(ctx context.Context, n Notification) error {
	if n.Phone == "" {
		return fmt.Errorf("no phone number for whatsapp")
	}
	form := url.Values{}
	form.Set("From", "whatsapp:"+w.client.cfg.WhatsAppFrom)
	form.Set("To", "whatsapp:"+n.Phone)
	form.Set("Body", renderText(n))
	return w.client.createMessage(ctx, form)
}

func renderText(n Notification) string {
	switch n.Kind {
	case KindActivation:
		return fmt.Sprintf("Dear %s, you have successfully registered. Your activation code is %s. It is valid for 5 minutes. Please verify your account to get activated.", n.Name, n.Code)
	case KindConfirmation:
		return fmt.Sprintf("Congratulations %s! Your registration is complete and your account has been verified. Welcome to Gyanoda.", n.Name)
	default:
		return ""
	}
}
