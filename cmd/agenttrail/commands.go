package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/loykin/agenttrail/pkg/client"
	"github.com/loykin/agenttrail/pkg/template"
)

const defaultAPIURL = "http://127.0.0.1:8080/api"

type command struct{}

// newAPIClient builds a client for the daemon API, defaulting to the
// local daemon when no URL is given.
func newAPIClient(apiURL, token string, timeout time.Duration) (*client.Client, string) {
	if apiURL == "" {
		apiURL = defaultAPIURL
	}
	return client.New(client.Config{BaseURL: apiURL, Token: token, Timeout: timeout}), apiURL
}

// Status prints the daemon's recorder and sink state
func (c *command) Status(f StatusFlags) error {
	apiClient, apiURL := newAPIClient(f.APIUrl, f.APIToken, f.APITimeout)
	ctx := context.Background()
	if !apiClient.IsReachable(ctx) {
		return fmt.Errorf("daemon not reachable at %s - please start daemon first with 'agenttrail serve'", apiURL)
	}

	st, err := apiClient.Status(ctx)
	if err != nil {
		return err
	}
	printJSON(st)
	return nil
}

// Events lists stored events, newest first
func (c *command) Events(f EventsFlags) error {
	apiClient, apiURL := newAPIClient(f.APIUrl, f.APIToken, f.APITimeout)
	ctx := context.Background()
	if !apiClient.IsReachable(ctx) {
		return fmt.Errorf("daemon not reachable at %s - please start daemon first with 'agenttrail serve'", apiURL)
	}

	events, err := apiClient.Events(ctx, client.EventsQuery{
		SessionID:    f.SessionID,
		InvocationID: f.InvocationID,
		EventType:    f.EventType,
		Limit:        f.Limit,
	})
	if err != nil {
		return err
	}
	printJSON(events)
	return nil
}

// Record submits one notification to the daemon. Missing session and
// invocation IDs are generated so ad-hoc events are still queryable.
func (c *command) Record(f RecordFlags) error {
	if f.Text == "" && f.ErrorMessage == "" {
		return fmt.Errorf("record requires --text or --error")
	}

	sessionID := f.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	invocationID := f.InvocationID
	if invocationID == "" {
		invocationID = uuid.NewString()
	}
	author := f.Author
	if author == "" {
		author = f.Agent
	}

	var content *client.Content
	if f.Text != "" {
		content = &client.Content{
			Role:  f.Role,
			Parts: []client.Part{{Text: f.Text}},
		}
	}

	apiClient, apiURL := newAPIClient(f.APIUrl, f.APIToken, f.APITimeout)
	ctx := context.Background()
	if !apiClient.IsReachable(ctx) {
		return fmt.Errorf("daemon not reachable at %s - please start daemon first with 'agenttrail serve'", apiURL)
	}

	resp, err := apiClient.Record(ctx, client.RecordRequest{
		Agent:        f.Agent,
		SessionID:    sessionID,
		InvocationID: invocationID,
		UserID:       f.UserID,
		Event: client.Notification{
			Author:       author,
			Time:         time.Now().UTC(),
			Content:      content,
			ErrorMessage: f.ErrorMessage,
		},
	})
	if err != nil {
		return err
	}

	printJSON(struct {
		SessionID    string `json:"session_id"`
		InvocationID string `json:"invocation_id"`
		OK           bool   `json:"ok"`
		Recorded     bool   `json:"recorded"`
	}{sessionID, invocationID, resp.OK, resp.Recorded})
	return nil
}

// TemplateCreate writes a starter configuration file
func (c *command) TemplateCreate(f TemplateCreateFlags) error {
	templateName := f.Name
	if templateName == "" {
		templateName = "agenttrail"
	}

	outputPath := f.Output
	if outputPath == "" {
		outputPath = templateName + ".toml"
	}

	// Check if file already exists and force flag not set
	if _, err := os.Stat(outputPath); err == nil && !f.Force {
		return fmt.Errorf("template file '%s' already exists (use --force to overwrite)", outputPath)
	}

	generator := template.NewGenerator()
	content, err := generator.GenerateTOML(template.Kind(f.Kind), templateName)
	if err != nil {
		return fmt.Errorf("failed to generate template: %w", err)
	}

	if err := os.WriteFile(outputPath, content, 0o644); err != nil {
		return fmt.Errorf("failed to write template file: %w", err)
	}

	fmt.Printf("Template '%s' created: %s\n", templateName, outputPath)
	fmt.Printf("Edit the config and start the daemon with: agenttrail serve --config %s\n", outputPath)
	return nil
}
