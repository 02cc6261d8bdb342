package slackbot

import (
	"context"

	"QueueFM/logger"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/socketmode"
)

// RunSocketMode is the alternate integration wrapper: instead of receiving
// signed HTTP requests it holds a Socket Mode connection open to Slack and
// feeds the same Handler. Blocks until the context is cancelled or the
// connection fails permanently.
func RunSocketMode(ctx context.Context, handler *Handler, botToken, appToken string) error {
	api := slack.New(botToken, slack.OptionAppLevelToken(appToken))
	client := socketmode.New(api)

	go func() {
		for evt := range client.Events {
			switch evt.Type {
			case socketmode.EventTypeConnected:
				logger.Info("slack socket mode connected")

			case socketmode.EventTypeConnectionError:
				logger.Warn("slack socket mode connection error, retrying")

			case socketmode.EventTypeSlashCommand:
				cmd, ok := evt.Data.(slack.SlashCommand)
				if !ok || evt.Request == nil {
					continue
				}
				msg := handler.HandleCommand(ctx, cmd)
				client.Ack(*evt.Request, msg)

			case socketmode.EventTypeInteractive:
				cb, ok := evt.Data.(slack.InteractionCallback)
				if !ok || evt.Request == nil {
					continue
				}
				client.Ack(*evt.Request)

				if cb.Type != slack.InteractionTypeBlockActions {
					continue
				}
				msg, handled := handler.HandleBlockAction(ctx, cb)
				if !handled || cb.ResponseURL == "" {
					continue
				}
				if err := postToResponseURL(ctx, cb.ResponseURL, msg); err != nil {
					logger.Warn("failed to post interaction response", logger.ErrorField(err))
				}
			}
		}
	}()

	return client.RunContext(ctx)
}
