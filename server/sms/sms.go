package sms

import (
	"github.com/sudarshan/carebuddy/shared"
	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
)

// Client wraps the optional twilio SMS side channel used by the SOS fanout.
type Client struct {
	client *twilio.RestClient
	config shared.TwilioConfig
}

func NewClient(config shared.TwilioConfig) *Client {
	client := twilio.NewRestClientWithParams(twilio.RestClientParams{
		Username: config.AccountSid,
		Password: config.AuthToken,
	})

	return &Client{
		client: client,
		config: config,
	}
}

func (c *Client) IsConfigured() bool {
	return c.config.AccountSid != "" && c.config.AuthToken != "" && c.config.MessagingServiceSid != ""
}

func (c *Client) SendMessage(to, msg string) error {
	params := &openapi.CreateMessageParams{}
	params.SetMessagingServiceSid(c.config.MessagingServiceSid)
	params.SetTo(to)
	params.SetBody(msg)

	_, err := c.client.ApiV2010.CreateMessage(params)
	return err
}
