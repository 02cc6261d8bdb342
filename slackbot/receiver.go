package slackbot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"QueueFM/logger"

	"github.com/gorilla/mux"
	"github.com/slack-go/slack"
)

// Receiver is the HTTP integration wrapper: it verifies request signatures and
// hands validated commands to the Handler. Use RunSocketMode instead when the
// server is not reachable from Slack.
type Receiver struct {
	handler       *Handler
	signingSecret string
}

// NewReceiver creates an HTTP receiver for the given handler.
func NewReceiver(handler *Handler, signingSecret string) *Receiver {
	return &Receiver{handler: handler, signingSecret: signingSecret}
}

// RegisterRoutes mounts the Slack endpoints on the given router.
func (rc *Receiver) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/commands", rc.handleSlashCommand).Methods(http.MethodPost)
	router.HandleFunc("/interactions", rc.handleInteraction).Methods(http.MethodPost)
}

// verify checks the Slack signature and restores the request body for the
// parsers that run after it.
func (rc *Receiver) verify(r *http.Request) error {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return fmt.Errorf("failed to read request body: %w", err)
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	verifier, err := slack.NewSecretsVerifier(r.Header, rc.signingSecret)
	if err != nil {
		return fmt.Errorf("failed to create signature verifier: %w", err)
	}
	if _, err := verifier.Write(body); err != nil {
		return fmt.Errorf("failed to hash request body: %w", err)
	}
	return verifier.Ensure()
}

func (rc *Receiver) handleSlashCommand(w http.ResponseWriter, r *http.Request) {
	if err := rc.verify(r); err != nil {
		logger.Warn("rejected slack command", logger.ErrorField(err))
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	cmd, err := slack.SlashCommandParse(r)
	if err != nil {
		http.Error(w, "malformed command payload", http.StatusBadRequest)
		return
	}

	msg := rc.handler.HandleCommand(r.Context(), cmd)
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(msg); err != nil {
		logger.Error("failed to write command response", logger.ErrorField(err))
	}
}

func (rc *Receiver) handleInteraction(w http.ResponseWriter, r *http.Request) {
	if err := rc.verify(r); err != nil {
		logger.Warn("rejected slack interaction", logger.ErrorField(err))
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	var cb slack.InteractionCallback
	if err := json.Unmarshal([]byte(r.FormValue("payload")), &cb); err != nil {
		http.Error(w, "malformed interaction payload", http.StatusBadRequest)
		return
	}
	if cb.Type != slack.InteractionTypeBlockActions {
		w.WriteHeader(http.StatusOK)
		return
	}

	// Ack immediately; Slack expects a response within 3 seconds. The
	// replacement message goes through the response URL.
	w.WriteHeader(http.StatusOK)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		msg, handled := rc.handler.HandleBlockAction(ctx, cb)
		if !handled || cb.ResponseURL == "" {
			return
		}
		if err := postToResponseURL(ctx, cb.ResponseURL, msg); err != nil {
			logger.Warn("failed to post interaction response", logger.ErrorField(err))
		}
	}()
}

// postToResponseURL delivers a message through a Slack response URL.
func postToResponseURL(ctx context.Context, responseURL string, msg slack.Msg) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal response message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, responseURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create response request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("response URL request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("response URL returned status %d", resp.StatusCode)
	}
	return nil
}
