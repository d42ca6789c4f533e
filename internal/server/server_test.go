package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gin-gonic/gin"

	"github.com/threadsokc/workday-calendar/internal/calendar"
	"github.com/threadsokc/workday-calendar/internal/config"
	"github.com/threadsokc/workday-calendar/internal/logger"
	"github.com/threadsokc/workday-calendar/internal/nonce"
)

var (
	testClock = time.Date(2024, 2, 20, 9, 30, 0, 0, time.UTC)
	testUID   = "00000000-0000-4000-8000-000000000000"
)

func newTestServer(t *testing.T, mutate func(*config.Config)) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.DefaultConfig()
	cfg.Nonce.Secret = "test-secret"
	cfg.Widget.Date = "2024-03-01"
	if mutate != nil {
		mutate(cfg)
	}

	issuer, err := nonce.New(cfg.Nonce.Secret, nonce.WithClock(func() time.Time { return testClock }))
	if err != nil {
		t.Fatalf("nonce.New() error = %v", err)
	}

	s, err := New(Options{
		Config:  cfg,
		Issuer:  issuer,
		Encoder: calendar.NewEncoder(calendar.Options{NewUID: func() string { return testUID }}),
		Logger:  logger.New(logger.LevelDebug, io.Discard),
		Metrics: logger.NewMetrics(),
		Now:     func() time.Time { return testClock },
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s
}

func do(s *Server, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func postForm(s *Server, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, PathCalendar, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return do(s, req)
}

// widgetForm fetches the widget and returns the values its form would post.
func widgetForm(t *testing.T, s *Server) url.Values {
	t.Helper()

	w := do(s, httptest.NewRequest(http.MethodGet, PathWidget, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("GET / status = %d, want 200", w.Code)
	}

	doc, err := goquery.NewDocumentFromReader(w.Body)
	if err != nil {
		t.Fatalf("parsing widget: %v", err)
	}

	form := url.Values{}
	doc.Find(`form[name="build-ics"] input[type="hidden"]`).Each(func(_ int, sel *goquery.Selection) {
		name, _ := sel.Attr("name")
		value, _ := sel.Attr("value")
		form.Set(name, value)
	})
	return form
}

func TestNew_RequiresConfigAndIssuer(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Error("New() without config should fail")
	}
	if _, err := New(Options{Config: config.DefaultConfig()}); err == nil {
		t.Error("New() without issuer should fail")
	}
}

func TestWidgetToCalendar(t *testing.T) {
	s := newTestServer(t, nil)

	form := widgetForm(t, s)
	if form.Get("threads-next-workday_nonce") == "" {
		t.Fatal("widget form has no nonce")
	}

	w := postForm(s, form)
	if w.Code != http.StatusOK {
		t.Fatalf("POST /calendar status = %d, body = %s", w.Code, w.Body.String())
	}

	if got := w.Header().Get("Content-Type"); got != calendar.ContentType {
		t.Errorf("Content-Type = %q", got)
	}
	wantDisposition := "attachment; filename=threadsokc-workday-2024-03-01.ics"
	if got := w.Header().Get("Content-Disposition"); got != wantDisposition {
		t.Errorf("Content-Disposition = %q, want %q", got, wantDisposition)
	}

	body := w.Body.String()
	for _, want := range []string{
		"BEGIN:VCALENDAR\r\n",
		"UID:" + testUID + "@threadsokc.org\r\n",
		"DTSTAMP:20240220T093000Z\r\n",
		"DTSTART:20240301T200000Z\r\n",
		"DTEND:20240301T230000Z\r\n",
		"SUMMARY:Threads OKC Workday\r\n",
		"LOCATION:2221 E. Memorial Rd.\\, Edmond\\, OK 73013\r\n",
		"END:VCALENDAR\r\n",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}

	if got := s.metrics.Counter(MetricGenerated); got != 1 {
		t.Errorf("%s = %d, want 1", MetricGenerated, got)
	}
}

func TestPostCalendar_Rejections(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(url.Values)
		wantStatus int
		wantMetric string
	}{
		{
			name:       "missing nonce",
			mutate:     func(v url.Values) { v.Del("threads-next-workday_nonce") },
			wantStatus: http.StatusForbidden,
			wantMetric: MetricRejected + "unauthorized",
		},
		{
			name:       "forged nonce",
			mutate:     func(v url.Values) { v.Set("threads-next-workday_nonce", "deadbeefdeadbeefdead") },
			wantStatus: http.StatusForbidden,
			wantMetric: MetricRejected + "unauthorized",
		},
		{
			name:       "header injection in filename",
			mutate:     func(v url.Values) { v.Set("filename", "evil.ics\r\nX-Injected: yes") },
			wantStatus: http.StatusBadRequest,
			wantMetric: MetricRejected + "invalid",
		},
		{
			name:       "missing summary",
			mutate:     func(v url.Values) { v.Del("summary") },
			wantStatus: http.StatusBadRequest,
			wantMetric: MetricRejected + "invalid",
		},
		{
			name: "end before start",
			mutate: func(v url.Values) {
				v.Set("datestart", "1709334000")
				v.Set("dateend", "1709323200")
			},
			wantStatus: http.StatusBadRequest,
			wantMetric: MetricRejected + "invalid",
		},
		{
			name: "five digit year",
			mutate: func(v url.Values) {
				v.Set("datestart", "999999999999")
				v.Set("dateend", "999999999999")
			},
			wantStatus: http.StatusBadRequest,
			wantMetric: MetricRejected + "invalid",
		},
		{
			name:       "relative uri",
			mutate:     func(v url.Values) { v.Set("uri", "events.html") },
			wantStatus: http.StatusBadRequest,
			wantMetric: MetricRejected + "invalid",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, nil)
			form := widgetForm(t, s)
			tt.mutate(form)

			w := postForm(s, form)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %q)", w.Code, tt.wantStatus, w.Body.String())
			}
			if got := w.Header().Get("Content-Disposition"); got != "" {
				t.Errorf("Content-Disposition = %q, want none", got)
			}
			if strings.Contains(w.Body.String(), "BEGIN:VCALENDAR") {
				t.Error("rejected request should not receive calendar text")
			}
			if got := s.metrics.Counter(tt.wantMetric); got != 1 {
				t.Errorf("%s = %d, want 1", tt.wantMetric, got)
			}
			if got := s.metrics.Counter(MetricGenerated); got != 0 {
				t.Errorf("%s = %d, want 0", MetricGenerated, got)
			}
		})
	}
}

func TestPostCalendar_AcceptsWallClockDates(t *testing.T) {
	s := newTestServer(t, nil)
	form := widgetForm(t, s)
	form.Set("datestart", "2024-03-01 14:00")
	form.Set("dateend", "2024-03-01T17:00:00")

	w := postForm(s, form)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "DTSTART:20240301T200000Z\r\n") {
		t.Error("wall clock start should be read in the configured zone")
	}
}

func TestGetWorkday(t *testing.T) {
	s := newTestServer(t, nil)

	w := do(s, httptest.NewRequest(http.MethodGet, PathWorkday, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if got := w.Header().Get("Content-Disposition"); got != "attachment; filename=threadsokc-workday-2024-03-01.ics" {
		t.Errorf("Content-Disposition = %q", got)
	}
	if !strings.Contains(w.Body.String(), "DTEND:20240301T230000Z\r\n") {
		t.Error("body missing workday end")
	}
}

func TestBadWidgetDate(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) { c.Widget.Date = "someday" })

	for _, path := range []string{PathWidget, PathWorkday} {
		w := do(s, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusInternalServerError {
			t.Errorf("GET %s status = %d, want 500", path, w.Code)
		}
		if strings.Contains(w.Body.String(), "someday") {
			t.Errorf("GET %s leaked config detail: %q", path, w.Body.String())
		}
	}
}

func TestWidgetUsesConfiguredEvent(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) {
		c.Timezone = "UTC"
		c.Widget.Summary = "Spring cleanup"
		c.Widget.Start = "09:00"
		c.Widget.End = "12:00"
	})

	form := widgetForm(t, s)
	if form.Get("summary") != "Spring cleanup" {
		t.Errorf("summary = %q", form.Get("summary"))
	}
	// 2024-03-01 09:00 UTC
	if form.Get("datestart") != "1709283600" {
		t.Errorf("datestart = %q, want 1709283600", form.Get("datestart"))
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil)

	w := do(s, httptest.NewRequest(http.MethodGet, PathHealth, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding health: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status = %q, want ok", body["status"])
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, nil)
	do(s, httptest.NewRequest(http.MethodGet, PathWorkday, nil))

	w := do(s, httptest.NewRequest(http.MethodGet, PathMetrics, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var snap struct {
		Counters map[string]int64          `json:"counters"`
		Gauges   map[string]float64        `json:"gauges"`
		Timings  map[string]map[string]any `json:"timings"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decoding metrics: %v", err)
	}
	if snap.Counters[MetricGenerated] != 1 {
		t.Errorf("counters[%s] = %d, want 1", MetricGenerated, snap.Counters[MetricGenerated])
	}
	if _, ok := snap.Timings[MetricRequest]; !ok {
		t.Errorf("timings missing %s", MetricRequest)
	}
	if uptime, ok := snap.Gauges[MetricUptime]; !ok || uptime < 0 {
		t.Errorf("gauges[%s] = %v (present %v), want >= 0", MetricUptime, uptime, ok)
	}
}

func TestGeneratedCalendarIsLogged(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cfg := config.DefaultConfig()
	cfg.Nonce.Secret = "test-secret"
	cfg.Widget.Date = "2024-03-01"
	issuer, err := nonce.New(cfg.Nonce.Secret)
	if err != nil {
		t.Fatal(err)
	}

	var logs bytes.Buffer
	s, err := New(Options{
		Config:  cfg,
		Issuer:  issuer,
		Logger:  logger.New(logger.LevelDebug, &logs),
		Metrics: logger.NewMetrics(),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if w := do(s, httptest.NewRequest(http.MethodGet, PathWorkday, nil)); w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var found bool
	for _, line := range strings.Split(strings.TrimSpace(logs.String()), "\n") {
		var entry logger.LogEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("log line %q is not JSON: %v", line, err)
		}
		if entry.Message != "calendar generated" {
			continue
		}
		found = true
		if entry.Fields["length"] != "3h0m0s" {
			t.Errorf("length = %v, want 3h0m0s", entry.Fields["length"])
		}
		if entry.Fields["component"] != "server" {
			t.Errorf("component = %v, want server", entry.Fields["component"])
		}
	}
	if !found {
		t.Errorf("no calendar generated entry in logs:\n%s", logs.String())
	}
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(t, nil)

	w := do(s, httptest.NewRequest(http.MethodGet, "/wp-admin", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}
