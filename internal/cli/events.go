package cli

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/redskie/bamaco/internal/config"
	"github.com/redskie/bamaco/internal/model"
)

func newEventsCmd(rt *runtime) *cobra.Command {
	var collection string

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Stream store changes from the server",
		Long: `Connect to the server's change feed and print every write as it happens.

Each event names the collection (identities, guilds, achievements, articles,
queue_requests, queue_entries, notifications, reports), the record ID and the
operation. Use --collection to follow a single collection.

Press Ctrl+C to disconnect.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return streamEvents(cmd, rt, model.Collection(collection))
		},
	}

	cmd.Flags().StringVar(&collection, "collection", "", "only show changes to this collection")

	return cmd
}

// SSEEvent is one parsed server-sent event
type SSEEvent struct {
	Time  time.Time `json:"time"`
	Event string    `json:"event"`
	Data  string    `json:"data"`
}

func streamEvents(cmd *cobra.Command, rt *runtime, collection model.Collection) error {
	if rt.cfg.ServerURL == "" {
		return errors.New("no server configured: pass --server or set BAMACO_SERVER")
	}
	u := strings.TrimSuffix(rt.cfg.ServerURL, "/") + "/api/v1/events"
	if collection != "" {
		u += "?collection=" + url.QueryEscape(string(collection))
	}

	ctx := cmd.Context()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	if rt.cfg.APIKey != "" {
		req.Header.Set("X-API-Key", rt.cfg.APIKey)
	}

	// no timeout, the stream stays open
	resp, err := (&http.Client{}).Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("connection failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	jsonOutput := rt.cfg.Output == config.OutputJSON
	w := cmd.OutOrStdout()
	if !jsonOutput {
		fmt.Fprintf(w, "Connected to %s\n", rt.cfg.ServerURL)
	}

	scanner := bufio.NewScanner(resp.Body)
	var event string
	var dataLines []string

	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			dataLines = append(dataLines, strings.TrimPrefix(line, "data: "))
		case line == "":
			if event != "" {
				printEvent(cmd, event, strings.Join(dataLines, "\n"), jsonOutput)
			}
			event = ""
			dataLines = nil
		}
	}

	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("stream error: %w", err)
	}
	if !jsonOutput {
		fmt.Fprintln(w, "Disconnected")
	}
	return nil
}

func printEvent(cmd *cobra.Command, event, data string, jsonOutput bool) {
	w := cmd.OutOrStdout()
	now := time.Now()

	if jsonOutput {
		line, _ := json.Marshal(SSEEvent{Time: now, Event: event, Data: data})
		fmt.Fprintln(w, string(line))
		return
	}

	var change model.ChangeEvent
	if err := json.Unmarshal([]byte(data), &change); err == nil && change.Collection != "" {
		fmt.Fprintf(w, "[%s] %s %s/%s\n", now.Format("2006-01-02 15:04:05"), change.Op, change.Collection, change.ID)
		return
	}
	display := strings.ReplaceAll(data, "\n", " ")
	if len(display) > 100 {
		display = display[:100] + "..."
	}
	fmt.Fprintf(w, "[%s] %s: %s\n", now.Format("2006-01-02 15:04:05"), event, display)
}
