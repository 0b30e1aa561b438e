package workflows

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"
)

type SlackPayload struct {
	Text string `json:"text"`
}

// ReportErrorToSlack posts an error message to the monitoring-alerts channel.
func ReportErrorToSlack(err error) error {
	if err == nil {
		return nil
	}

	webhookURL := os.Getenv("SLACK_WEBHOOK_URL")
	if webhookURL == "" {
		return errors.New("SLACK_WEBHOOK_URL environment variable is not set")
	}

	message := fmt.Sprintf(
		":rotating_light: *Monitoring Pipeline Error*\n"+
			"*Time:* %s\n"+
			"*Error:* ```%s```",
		time.Now().UTC().Format(time.RFC3339),
		err.Error(),
	)

	payload := SlackPayload{
		Text: message,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequest("POST", webhookURL, bytes.NewBuffer(body))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("slack webhook returned status %d", resp.StatusCode)
	}

	return nil
}

// reportPipelineFailure posts a pipeline failure with context. Delivery
// problems are logged and swallowed so alerting never fails a workflow.
func reportPipelineFailure(pipeline, analysisID, companyName string, reason string, err error) {
	if err == nil {
		return
	}
	if companyName == "" {
		companyName = "unknown"
	}

	reportErr := fmt.Errorf(
		"pipeline failed: pipeline=%s reason=%s analysis_id=%s company=%s error=%v",
		pipeline,
		reason,
		analysisID,
		companyName,
		err,
	)

	if sendErr := ReportErrorToSlack(reportErr); sendErr != nil {
		fmt.Printf("[SlackAlerts] Failed to deliver alert: %v\n", sendErr)
	}
}
