package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/ignatzorin/lemon-backend/internal/goroutine"
	"github.com/ignatzorin/lemon-backend/internal/logger"
)

// messageCreator - часть клиента Twilio, которой пользуется TwilioSender.
type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// TwilioSender отправляет SMS через Twilio Messages API.
type TwilioSender struct {
	api        messageCreator
	fromNumber string
}

// NewTwilioSender создаёт отправителя. Все три параметра обязательны.
func NewTwilioSender(accountSID, authToken, fromNumber string) (*TwilioSender, error) {
	if accountSID == "" || authToken == "" || fromNumber == "" {
		return nil, errors.New("twilio: account sid, auth token and from number are required")
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})

	return &TwilioSender{api: client.Api, fromNumber: fromNumber}, nil
}

// Send отправляет сообщение. SDK не принимает context, поэтому дедлайн ctx
// соблюдается через goroutine.RunWithContext.
func (s *TwilioSender) Send(ctx context.Context, to, message string) error {
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(s.fromNumber)
	params.SetBody(message)

	err := goroutine.RunWithContext(ctx, func() error {
		resp, err := s.api.CreateMessage(params)
		if err != nil {
			return err
		}
		if resp != nil && resp.Sid != nil {
			logger.Component("notify").WithField("sid", *resp.Sid).Debug("twilio: message queued")
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("twilio: send sms: %w", err)
	}
	return nil
}
