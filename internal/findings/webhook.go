package findings

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/openeurope/energyaudit/pkg/types"
)

// RunDigest is the slice of a run a webhook receiver needs to act on a
// finding without fetching the run from the API.
type RunDigest struct {
	ID         string        `json:"id,omitempty"`
	Input      string        `json:"input"`
	Summary    types.Summary `json:"summary"`
	Stats      types.Stats   `json:"stats"`
	DroppedPct float64       `json:"dropped_pct"`
	ReportPath string        `json:"report_path,omitempty"`
}

func digest(run *types.Run, input string) RunDigest {
	d := RunDigest{
		ID:         run.ID,
		Input:      input,
		Summary:    run.Summary,
		Stats:      run.Stats,
		ReportPath: run.ReportPath,
	}
	if run.Stats.Ingested > 0 {
		d.DroppedPct = float64(run.Stats.Dropped) / float64(run.Stats.Ingested) * 100
	}
	return d
}

// notice is one state change of an alert, ready for delivery.
type notice struct {
	Alert Alert
	Run   RunDigest
}

// payloadFunc renders a notice in the body format of one webhook type.
type payloadFunc func(n *notice) interface{}

var payloads = map[string]payloadFunc{
	"slack": slackPayload,
	"teams": teamsPayload,
	"http":  httpPayload,
}

// deliver posts n to every configured webhook. Failures are logged only.
func (e *Engine) deliver(n *notice) {
	for _, wh := range e.webhooks {
		url := wh.URL()
		if url == "" {
			continue
		}
		render, ok := payloads[wh.Type]
		if !ok {
			slog.Warn("findings: unknown webhook type, skipping", "type", wh.Type)
			continue
		}

		body, err := json.Marshal(render(n))
		if err == nil {
			err = e.post(url, body)
		}
		if err != nil {
			slog.Error("findings: webhook delivery failed",
				"type", wh.Type,
				"rule", n.Alert.Rule,
				"input", n.Run.Input,
				"err", err,
			)
			continue
		}
		slog.Debug("findings: webhook delivered",
			"type", wh.Type,
			"rule", n.Alert.Rule,
			"state", n.Alert.State,
		)
	}
}

func slackPayload(n *notice) interface{} {
	s := n.Run.Summary
	return map[string]string{
		"text": fmt.Sprintf("*%s* %s\n%s: baseline %.2f, new %.2f, savings %.2f%% over %d of %d rows",
			label(&n.Alert), n.Alert.Message, n.Run.Input,
			s.BaselineAvg, s.NewAvg, s.SavingsPct, n.Run.Stats.Used, n.Run.Stats.Ingested),
	}
}

func teamsPayload(n *notice) interface{} {
	s, st := n.Run.Summary, n.Run.Stats
	fact := func(name, value string) map[string]string {
		return map[string]string{"name": name, "value": value}
	}
	return map[string]interface{}{
		"@type":      "MessageCard",
		"@context":   "http://schema.org/extensions",
		"themeColor": severityColor(n.Alert.Severity),
		"summary":    n.Alert.Rule,
		"title":      fmt.Sprintf("Energy audit finding: %s on %s (%s)", n.Alert.Rule, n.Run.Input, n.Alert.State),
		"text":       n.Alert.Message,
		"sections": []map[string]interface{}{{
			"facts": []map[string]string{
				fact("Baseline average", fmt.Sprintf("%.2f", s.BaselineAvg)),
				fact("New average", fmt.Sprintf("%.2f", s.NewAvg)),
				fact("Savings", fmt.Sprintf("%.2f (%.2f%%)", s.SavingsAbs, s.SavingsPct)),
				fact("Rows used", fmt.Sprintf("%d of %d (%d dropped)", st.Used, st.Ingested, st.Dropped)),
			},
		}},
	}
}

func httpPayload(n *notice) interface{} {
	return map[string]interface{}{"finding": n.Alert, "run": n.Run}
}

func (e *Engine) post(url string, body []byte) error {
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("http post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned HTTP %d", resp.StatusCode)
	}
	return nil
}

func label(a *Alert) string {
	if a.State == StateResolved {
		return "[RESOLVED]"
	}
	switch a.Severity {
	case "critical":
		return "[CRITICAL]"
	case "warning":
		return "[WARNING]"
	default:
		return "[INFO]"
	}
}

func severityColor(s string) string {
	switch s {
	case "critical":
		return "FF4F6A"
	case "warning":
		return "FFAB40"
	default:
		return "00D4FF"
	}
}
