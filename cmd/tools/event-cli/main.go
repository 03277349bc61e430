package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/annel0/tilecraft/internal/eventbus"
)

const (
	defaultNATS   = "nats://127.0.0.1:4222"
	defaultServer = "http://localhost:8088"
	timeFormat    = "15:04:05"
)

func main() {
	var (
		natsURL    = flag.String("nats", defaultNATS, "NATS server URL")
		stream     = flag.String("stream", "WORLD", "JetStream stream name")
		serverAddr = flag.String("server", defaultServer, "REST API base URL")
		command    = flag.String("cmd", "tail", "Command: tail, events, stats")
		eventTypes = flag.String("types", "", "Event types filter (comma-separated)")
		kind       = flag.String("kind", "destroyed", "Stats kind: destroyed, crafted")
		limit      = flag.Int("limit", 100, "Maximum number of events")
		follow     = flag.Bool("follow", false, "Follow new events (like tail -f)")
		timeout    = flag.Duration("timeout", 5*time.Second, "REST request timeout")
	)
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client := &http.Client{Timeout: *timeout}

	var err error
	switch *command {
	case "tail":
		err = tailEvents(ctx, &TailOptions{
			URL:        *natsURL,
			Stream:     *stream,
			EventTypes: parseStringList(*eventTypes),
			Limit:      *limit,
			Follow:     *follow,
		})
	case "events":
		types := parseStringList(*eventTypes)
		typ := ""
		if len(types) > 0 {
			typ = types[0]
		}
		err = showEvents(ctx, client, *serverAddr, typ, *limit)
	case "stats":
		err = showStats(ctx, client, *serverAddr, *kind)
	default:
		fmt.Printf("❌ Unknown command: %s\n", *command)
		fmt.Println("Available commands: tail, events, stats")
		os.Exit(1)
	}
	if err != nil {
		log.Fatalf("❌ %s failed: %v", *command, err)
	}
}

type TailOptions struct {
	URL        string
	Stream     string
	EventTypes []string
	Limit      int
	Follow     bool
}

// tailEvents читает события мира из JetStream
func tailEvents(ctx context.Context, opts *TailOptions) error {
	fmt.Printf("🎬 Tailing %s/%s (limit: %d, follow: %v)\n", opts.URL, opts.Stream, opts.Limit, opts.Follow)

	bus, err := eventbus.NewJetStreamBus(opts.URL, opts.Stream, 0)
	if err != nil {
		return err
	}
	defer bus.Close()

	received := make(chan *eventbus.Envelope, 64)
	sub, err := bus.Subscribe(ctx, eventbus.Filter{
		Types:   opts.EventTypes,
		Sources: []string{eventbus.SourceWorld},
	}, func(_ context.Context, ev *eventbus.Envelope) {
		select {
		case received <- ev:
		case <-ctx.Done():
		}
	})
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	eventCount := 0
	for {
		select {
		case <-ctx.Done():
			fmt.Printf("\n📊 Total events: %d\n", eventCount)
			return nil
		case ev := <-received:
			printEvent(ev)
			eventCount++
			if !opts.Follow && eventCount >= opts.Limit {
				fmt.Printf("\n📊 Total events: %d\n", eventCount)
				return nil
			}
		}
	}
}

type response struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func getJSON(ctx context.Context, client *http.Client, rawURL string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	var r response
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if !r.Success {
		return fmt.Errorf("server: %s (HTTP %d)", r.Message, resp.StatusCode)
	}
	return json.Unmarshal(r.Data, out)
}

// showEvents выводит последние события из журнала сервера
func showEvents(ctx context.Context, client *http.Client, base, eventType string, limit int) error {
	q := url.Values{}
	q.Set("limit", fmt.Sprint(limit))
	if eventType != "" {
		q.Set("type", eventType)
	}

	var data struct {
		Events []struct {
			ID        string                     `json:"id"`
			Type      string                     `json:"type"`
			Timestamp time.Time                  `json:"timestamp"`
			Data      eventbus.WorldEventPayload `json:"data"`
		} `json:"events"`
		Total uint64 `json:"total"`
	}
	if err := getJSON(ctx, client, strings.TrimRight(base, "/")+"/api/events?"+q.Encode(), &data); err != nil {
		return err
	}

	for _, ev := range data.Events {
		printPayload(ev.Timestamp, ev.Type, ev.ID, ev.Data)
	}
	fmt.Printf("\n📊 Shown %d of %d events\n", len(data.Events), data.Total)
	return nil
}

// showStats выводит счётчики уничтоженных или созданных предметов
func showStats(ctx context.Context, client *http.Client, base, kind string) error {
	var data struct {
		Kind   string         `json:"kind"`
		Counts map[string]int `json:"counts"`
		Items  []string       `json:"items"`
	}
	if err := getJSON(ctx, client, strings.TrimRight(base, "/")+"/api/stats/"+url.PathEscape(kind), &data); err != nil {
		return err
	}

	fmt.Printf("📊 Items %s\n", data.Kind)
	total := 0
	for _, name := range data.Items {
		fmt.Printf("  %s: %d\n", name, data.Counts[name])
		total += data.Counts[name]
	}
	fmt.Printf("Total: %d\n", total)
	return nil
}

// printEvent выводит событие в читаемом формате
func printEvent(env *eventbus.Envelope) {
	payload, err := eventbus.DecodeWorldEvent(env)
	if err != nil {
		fmt.Printf("[%s] %s %s: %v\n", env.Timestamp.Format(timeFormat), env.EventType, env.ID, err)
		return
	}
	printPayload(env.Timestamp, env.EventType, env.ID, payload)
}

func printPayload(ts time.Time, eventType, id string, p eventbus.WorldEventPayload) {
	fmt.Printf("[%s] tick %d [%s] %s\n", ts.Format(timeFormat), p.Tick, eventType, id)

	var details []string
	if p.Tile != "" {
		details = append(details, fmt.Sprintf("Tile: %s (%d,%d)", p.Tile, p.TX, p.TY))
	}
	if p.Item != "" {
		details = append(details, "Item: "+p.Item)
	}
	if p.Recipe != "" {
		details = append(details, "Recipe: "+p.Recipe)
	}
	if p.Reason != "" {
		details = append(details, "Reason: "+p.Reason)
	}
	if len(details) > 0 {
		fmt.Printf("  Player: %d %s\n", p.PlayerID, strings.Join(details, " "))
	}
}

// parseStringList парсит строку с разделителями-запятыми
func parseStringList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
