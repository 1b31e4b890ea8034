package mailer

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

const charsetUTF8 = "UTF-8"

// SESAPI is the subset of the SES v2 client used here.
type SESAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SES sends through Amazon SES v2.
type SES struct {
	Client SESAPI
	From   string
	// ConfigurationSet is optional.
	ConfigurationSet string
}

func NewSES(client SESAPI, from string) *SES {
	return &SES{Client: client, From: from}
}

func (s *SES) Send(ctx context.Context, to, subject, text, html string) error {
	if s.Client == nil {
		return errors.New("SES client not initialized")
	}
	_, err := s.Client.SendEmail(ctx, s.input(to, subject, text, html))
	return err
}

func (s *SES) input(to, subject, text, html string) *sesv2.SendEmailInput {
	body := &types.Body{}
	if text != "" {
		body.Text = &types.Content{Data: aws.String(text), Charset: aws.String(charsetUTF8)}
	}
	if html != "" {
		body.Html = &types.Content{Data: aws.String(html), Charset: aws.String(charsetUTF8)}
	}
	in := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(s.From),
		Destination:      &types.Destination{ToAddresses: []string{to}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subject), Charset: aws.String(charsetUTF8)},
				Body:    body,
			},
		},
	}
	if s.ConfigurationSet != "" {
		in.ConfigurationSetName = aws.String(s.ConfigurationSet)
	}
	return in
}
