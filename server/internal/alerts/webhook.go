package alerts

import (
	"bytes"
	"fmt"
	"log/slog"

	"github.com/goccy/go-json"

	"github.com/reviewpulse/reviewpulse/server/internal/config"
)

type severityStyle struct {
	tag   string // Slack markdown prefix
	color string // Teams theme color
}

var severityStyles = map[string]severityStyle{
	"critical": {"*[CRITICAL]*", "FF4F6A"},
	"warning":  {"*[WARNING]*", "FFAB40"},
	"info":     {"*[INFO]*", "00D4FF"},
}

func styleOf(severity string) severityStyle {
	if s, ok := severityStyles[severity]; ok {
		return s
	}
	return severityStyles["info"]
}

// payloads builds the request body of each webhook type.
var payloads = map[string]func(a *Alert) any{
	"slack": slackPayload,
	"teams": teamsPayload,
	"http":  func(a *Alert) any { return map[string]any{"alert": a} },
}

func slackPayload(a *Alert) any {
	text := styleOf(a.Severity).tag + " " + a.Message
	if a.State == "resolved" {
		text = fmt.Sprintf("*[RESOLVED]* %s on store %s (%s)", a.RuleName, a.StoreID, a.Company)
	}
	return map[string]string{"text": text}
}

func teamsPayload(a *Alert) any {
	return map[string]any{
		"@type":      "MessageCard",
		"@context":   "http://schema.org/extensions",
		"themeColor": styleOf(a.Severity).color,
		"summary":    a.RuleName,
		"title":      fmt.Sprintf("Review ranking alert: %s on %s (%s)", a.RuleName, a.StoreID, a.State),
		"text":       a.Message,
	}
}

// deliver sends a to every configured target. Errors are logged only.
func (e *Engine) deliver(hooks []config.WebhookConfig, a *Alert) {
	for _, wh := range hooks {
		build, ok := payloads[wh.Type]
		if !ok {
			slog.Warn("alerts: unknown webhook type, skipping", "type", wh.Type)
			continue
		}
		url := wh.URL()
		if url == "" {
			continue
		}
		body, err := json.Marshal(build(a))
		if err == nil {
			err = e.post(url, body)
		}
		if err != nil {
			slog.Error("alerts: webhook delivery failed", "type", wh.Type, "rule", a.RuleName, "store", a.StoreID, "err", err)
			continue
		}
		slog.Debug("alerts: webhook delivered", "type", wh.Type, "rule", a.RuleName, "state", a.State)
	}
}

func (e *Engine) post(url string, body []byte) error {
	resp, err := e.client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("http post: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned HTTP %d", resp.StatusCode)
	}
	return nil
}
