package commands

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/ccollicutt/availog/pkg/availability"
	"github.com/ccollicutt/availog/pkg/config"
	"github.com/ccollicutt/availog/pkg/output"
	"github.com/ccollicutt/availog/pkg/subject"
)

func breachReport(breached bool) *output.Report {
	r := &output.Report{}
	if breached {
		r.Summary.InBreach = 1
	}
	return r
}

func TestShouldFireWebhook(t *testing.T) {
	tests := []struct {
		name     string
		trigger  config.WebhookTrigger
		breached bool
		want     bool
	}{
		{"on_breach with breach", config.WebhookTriggerOnBreach, true, true},
		{"on_breach without breach", config.WebhookTriggerOnBreach, false, false},
		{"always with breach", config.WebhookTriggerAlways, true, true},
		{"always without breach", config.WebhookTriggerAlways, false, true},
		{"never with breach", config.WebhookTriggerNever, true, false},
		{"never without breach", config.WebhookTriggerNever, false, false},
		{"empty trigger with breach", "", true, true},
		{"empty trigger without breach", "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := shouldFireWebhook(tt.trigger, tt.breached)
			if got != tt.want {
				t.Errorf("shouldFireWebhook(%q, %v) = %v, want %v",
					tt.trigger, tt.breached, got, tt.want)
			}
		})
	}
}

func TestCollectWebhooks(t *testing.T) {
	t.Run("config only", func(t *testing.T) {
		cfg := &config.Config{
			Webhooks: []config.WebhookConfig{
				{Name: "slack", URL: "https://slack.com/webhook"},
				{Name: "pagerduty", URL: "https://pagerduty.com/webhook"},
			},
		}

		webhooks := collectWebhooks(cfg, &ReportOptions{})

		if len(webhooks) != 2 {
			t.Errorf("got %d webhooks, want 2", len(webhooks))
		}
	})

	t.Run("cli only", func(t *testing.T) {
		opts := &ReportOptions{
			WebhookURL:     "https://cli.example.com/webhook",
			WebhookToken:   "secret",
			WebhookTrigger: "always",
		}

		webhooks := collectWebhooks(&config.Config{}, opts)

		if len(webhooks) != 1 {
			t.Fatalf("got %d webhooks, want 1", len(webhooks))
		}
		if webhooks[0].Name != "cli" {
			t.Errorf("got name %q, want cli", webhooks[0].Name)
		}
		if webhooks[0].Token != "secret" {
			t.Errorf("got token %q, want secret", webhooks[0].Token)
		}
		if webhooks[0].Trigger != config.WebhookTriggerAlways {
			t.Errorf("got trigger %q, want always", webhooks[0].Trigger)
		}
		if webhooks[0].Timeout != config.DefaultWebhookTimeout {
			t.Errorf("got timeout %s", webhooks[0].Timeout)
		}
	})

	t.Run("default trigger", func(t *testing.T) {
		webhooks := collectWebhooks(&config.Config{}, &ReportOptions{WebhookURL: "https://example.com/webhook"})

		if len(webhooks) != 1 {
			t.Fatalf("got %d webhooks, want 1", len(webhooks))
		}
		if webhooks[0].Trigger != config.WebhookTriggerOnBreach {
			t.Errorf("got trigger %q, want on_breach", webhooks[0].Trigger)
		}
	})
}

func TestSendWebhooks(t *testing.T) {
	var mu sync.Mutex
	var receivedPayloads [][]byte
	var receivedAuths []string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		receivedPayloads = append(receivedPayloads, body)
		receivedAuths = append(receivedAuths, r.Header.Get("Authorization"))
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := &config.Config{
		Webhooks: []config.WebhookConfig{
			{
				Name:    "test-webhook",
				URL:     server.URL,
				Token:   "test-token",
				Trigger: config.WebhookTriggerAlways,
				Timeout: 10 * time.Second,
			},
		},
	}

	sendWebhooks(context.Background(), zaptest.NewLogger(t), cfg, &ReportOptions{}, breachReport(true))

	if len(receivedPayloads) != 1 {
		t.Fatalf("expected 1 webhook call, got %d", len(receivedPayloads))
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(receivedPayloads[0], &payload); err != nil {
		t.Fatalf("invalid JSON payload: %v", err)
	}
	if payload["breached"] != true {
		t.Errorf("breached = %v", payload["breached"])
	}

	if receivedAuths[0] != "Bearer test-token" {
		t.Errorf("got auth %q, want Bearer test-token", receivedAuths[0])
	}
}

func TestSendWebhooks_Triggers(t *testing.T) {
	var mu sync.Mutex
	calls := map[string]int{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls[r.URL.Path]++
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := &config.Config{
		Webhooks: []config.WebhookConfig{
			{Name: "breach", URL: server.URL + "/breach", Trigger: config.WebhookTriggerOnBreach},
			{Name: "always", URL: server.URL + "/always", Trigger: config.WebhookTriggerAlways},
			{Name: "never", URL: server.URL + "/never", Trigger: config.WebhookTriggerNever},
		},
	}
	logger := zaptest.NewLogger(t)

	sendWebhooks(context.Background(), logger, cfg, &ReportOptions{}, breachReport(false))
	sendWebhooks(context.Background(), logger, cfg, &ReportOptions{}, breachReport(true))

	if calls["/breach"] != 1 {
		t.Errorf("on_breach fired %d times, want 1", calls["/breach"])
	}
	if calls["/always"] != 2 {
		t.Errorf("always fired %d times, want 2", calls["/always"])
	}
	if calls["/never"] != 0 {
		t.Errorf("never fired %d times, want 0", calls["/never"])
	}
}

func TestSendWebhooks_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	cfg := &config.Config{
		Webhooks: []config.WebhookConfig{
			{Name: "error-webhook", URL: server.URL, Trigger: config.WebhookTriggerAlways},
		},
	}

	// Should not panic, just log the failure
	sendWebhooks(context.Background(), zaptest.NewLogger(t), cfg, &ReportOptions{}, breachReport(true))
}

func TestSubjectFilter(t *testing.T) {
	tests := []struct {
		name     string
		hosts    []string
		services []string
		kind     subject.Kind
		host     string
		service  string
		want     bool
	}{
		{"no filter host", nil, nil, subject.KindHost, "web1", "", true},
		{"no filter service", nil, nil, subject.KindService, "web1", "HTTP", true},
		{"host match", []string{"web1"}, nil, subject.KindService, "web1", "HTTP", true},
		{"host mismatch", []string{"db1"}, nil, subject.KindHost, "web1", "", false},
		{"service match", nil, []string{"HTTP"}, subject.KindService, "web1", "HTTP", true},
		{"service mismatch", nil, []string{"SSH"}, subject.KindService, "web1", "HTTP", false},
		{"service filter drops hosts", nil, []string{"HTTP"}, subject.KindHost, "web1", "", false},
		{"host and service", []string{"web1"}, []string{"HTTP"}, subject.KindService, "web2", "HTTP", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := subjectFilter(tt.hosts, tt.services)(tt.kind, tt.host, tt.service)
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBuildPolicy(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.LogFile = "/var/log/nagios/nagios.log"
	cfg.LogRotationMethod = "n"
	cfg.Hosts = []string{"web1"}
	cfg.Policy.InitialAssumedHostState = "down"
	cfg.Policy.IncludeSoftStates = true
	if err := config.Validate(cfg); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	p := buildPolicy(cfg)

	if p.InitialHostState != subject.HostDown {
		t.Errorf("initial host state = %s", p.InitialHostState)
	}
	if p.InitialServiceState != subject.NoData {
		t.Errorf("initial service state = %s", p.InitialServiceState)
	}
	if !p.IncludeSoftStates || !p.AssumeInitialStates || !p.ShowScheduledDowntime {
		t.Errorf("unexpected policy %+v", p)
	}
	if p.Backtrack != config.DefaultBacktrackArchives {
		t.Errorf("backtrack = %d", p.Backtrack)
	}
}

func TestWindowOptions_Resolve(t *testing.T) {
	now := time.Date(2024, 1, 17, 15, 30, 0, 0, time.UTC)

	tests := []struct {
		name      string
		opts      WindowOptions
		wantStart time.Time
		wantEnd   time.Time
		wantErr   string
	}{
		{
			name:      "default period",
			opts:      WindowOptions{},
			wantStart: now.Add(-24 * time.Hour),
			wantEnd:   now,
		},
		{
			name:      "named period",
			opts:      WindowOptions{Period: "yesterday"},
			wantStart: time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2024, 1, 17, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "time range",
			opts:      WindowOptions{Period: "lastyear", TimeRange: "2h"},
			wantStart: now.Add(-2 * time.Hour),
			wantEnd:   now,
		},
		{
			name:      "explicit start wins",
			opts:      WindowOptions{TimeRange: "2h", Start: "2024-01-10T00:00:00Z", End: "1705017600"},
			wantStart: time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2024, 1, 12, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "start only ends now",
			opts:      WindowOptions{Start: "2024-01-17T00:00:00Z"},
			wantStart: time.Date(2024, 1, 17, 0, 0, 0, 0, time.UTC),
			wantEnd:   now,
		},
		{name: "end without start", opts: WindowOptions{End: "2024-01-17T00:00:00Z"}, wantErr: "--end requires --start"},
		{name: "inverted", opts: WindowOptions{Start: "2024-01-17T00:00:00Z", End: "2024-01-16T00:00:00Z"}, wantErr: "before start"},
		{name: "bad start", opts: WindowOptions{Start: "last tuesday"}, wantErr: "invalid start"},
		{name: "negative range", opts: WindowOptions{TimeRange: "-1h"}, wantErr: "must be positive"},
		{name: "unknown period", opts: WindowOptions{Period: "fortnight"}, wantErr: "fortnight"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := tt.opts.resolve(now, time.UTC)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("error = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !w.Start.Equal(tt.wantStart) || !w.End.Equal(tt.wantEnd) {
				t.Errorf("window = %s - %s, want %s - %s", w.Start, w.End, tt.wantStart, tt.wantEnd)
			}
		})
	}
}

func TestSelectArchives_Rotated(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.LogFile = "/var/log/nagios/nagios.log"
	cfg.LogArchivePath = "/var/log/nagios/archives"
	cfg.Hosts = []string{"web1"}
	cfg.Timezone = "UTC"
	if err := config.Validate(cfg); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	now := time.Date(2024, 1, 17, 15, 30, 0, 0, time.UTC)
	window := availability.Window{
		Start: time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 1, 17, 0, 0, 0, 0, time.UTC),
	}

	paths, err := selectArchives(cfg, buildPolicy(cfg), window, now)
	if err != nil {
		t.Fatalf("selectArchives: %v", err)
	}

	// The window ends on the current log's rotation boundary, so the
	// current log is read along with two backtrack archives.
	want := []string{
		"/var/log/nagios/nagios.log",
		"/var/log/nagios/archives/nagios-01-17-2024-00.log",
		"/var/log/nagios/archives/nagios-01-16-2024-00.log",
		"/var/log/nagios/archives/nagios-01-15-2024-00.log",
	}
	if strings.Join(paths, ",") != strings.Join(want, ",") {
		t.Errorf("paths = %v, want %v", paths, want)
	}
}

func TestSelectArchives_BacktrackFromPolicy(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.LogFile = "/var/log/nagios/nagios.log"
	cfg.LogArchivePath = "/var/log/nagios/archives"
	cfg.Hosts = []string{"web1"}
	cfg.Timezone = "UTC"
	if err := config.Validate(cfg); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	now := time.Date(2024, 1, 17, 15, 30, 0, 0, time.UTC)
	window := availability.Window{
		Start: time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 1, 17, 0, 0, 0, 0, time.UTC),
	}

	policy := buildPolicy(cfg)
	policy.Backtrack = 0
	paths, err := selectArchives(cfg, policy, window, now)
	if err != nil {
		t.Fatalf("selectArchives: %v", err)
	}

	want := []string{
		"/var/log/nagios/nagios.log",
		"/var/log/nagios/archives/nagios-01-17-2024-00.log",
	}
	if strings.Join(paths, ",") != strings.Join(want, ",") {
		t.Errorf("paths = %v, want %v", paths, want)
	}
}

func TestReadSources(t *testing.T) {
	got := readSources([]string{"a", "b", "c"}, []string{"b"})
	if strings.Join(got, ",") != "a,c" {
		t.Errorf("got %v", got)
	}
}
