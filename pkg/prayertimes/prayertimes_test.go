package prayertimes

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-drift/geogate/pkg/geolocation"
)

const aladhanBody = `{"code":200,"status":"OK","data":{
	"timings":{"Fajr":"05:00","Sunrise":"06:20","Dhuhr":"12:00","Asr":"15:30","Sunset":"18:10","Maghrib":"18:10","Isha":"19:40 (AST)","Imsak":"04:50","Midnight":"00:05"},
	"meta":{"latitude":21.4225,"longitude":39.8262,"timezone":"Asia/Riyadh","method":{"id":4}}}}`

var testTimings = Timings{Fajr: "05:00", Dhuhr: "12:00", Asr: "15:30", Maghrib: "18:10", Isha: "19:40 (AST)"}

func TestTimings(t *testing.T) {
	var gotQuery, gotAgent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		gotAgent = r.Header.Get("User-Agent")
		io.WriteString(w, aladhanBody)
	}))
	defer srv.Close()

	loc := geolocation.Location{Latitude: 21.4225, Longitude: 39.8262}
	day, err := New(WithEndpoint(srv.URL), WithMethod(4), WithUserAgent("com.example.prayertimes")).Timings(context.Background(), loc)
	if err != nil {
		t.Fatalf("Timings: %v", err)
	}
	want := Day{Timings: testTimings, Timezone: "Asia/Riyadh"}
	if day != want {
		t.Errorf("day = %+v, want %+v", day, want)
	}
	if gotQuery != "latitude=21.4225&longitude=39.8262&method=4" {
		t.Errorf("query = %q", gotQuery)
	}
	if gotAgent != "com.example.prayertimes" {
		t.Errorf("User-Agent = %q", gotAgent)
	}
}

func TestTimingsDefaultMethod(t *testing.T) {
	var gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.URL.Query().Get("method")
		io.WriteString(w, aladhanBody)
	}))
	defer srv.Close()

	if _, err := New(WithEndpoint(srv.URL)).Timings(context.Background(), geolocation.Location{}); err != nil {
		t.Fatal(err)
	}
	if gotMethod != "2" {
		t.Errorf("method = %q, want 2", gotMethod)
	}
}

func TestTimingsFailures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		method  Method
		wantErr string
		wantIs  error
	}{
		{"server error", http.StatusInternalServerError, `{}`, DefaultMethod, "unexpected status", nil},
		{"bad json", http.StatusOK, `{`, DefaultMethod, "decode", nil},
		{"api error", http.StatusOK, `{"code":400,"status":"BAD_REQUEST","data":null}`, DefaultMethod, "no timings", ErrNoTimings},
		{"no timings", http.StatusOK, `{"code":200,"data":{"meta":{}}}`, DefaultMethod, "no timings", ErrNoTimings},
		{"bad time", http.StatusOK, `{"code":200,"data":{"timings":{"Fajr":"soon","Dhuhr":"12:00","Asr":"15:30","Maghrib":"18:10","Isha":"19:40"}}}`, DefaultMethod, "Fajr", nil},
		{"bad method", http.StatusOK, aladhanBody, -1, "invalid method", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			_, err := New(WithEndpoint(srv.URL), WithMethod(tt.method)).Timings(context.Background(), geolocation.Location{})
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("err = %v, want containing %q", err, tt.wantErr)
			}
			if tt.wantIs != nil && !errors.Is(err, tt.wantIs) {
				t.Errorf("err = %v, want %v", err, tt.wantIs)
			}
		})
	}
}

func TestNextPrayer(t *testing.T) {
	at := func(day, hour, min, sec int) time.Time {
		return time.Date(2026, time.March, day, hour, min, sec, 0, time.UTC)
	}
	tests := []struct {
		name      string
		now       time.Time
		want      Prayer
		wantAt    time.Time
		wantUntil string
		wantDue   bool
	}{
		{"before dawn", at(10, 4, 0, 0), Fajr, at(10, 5, 0, 0), "1h 0m", false},
		{"exactly at fajr", at(10, 5, 0, 0), Fajr, at(10, 5, 0, 0), "0h 0m", true},
		{"just after fajr", at(10, 5, 0, 30), Dhuhr, at(10, 12, 0, 0), "6h 59m", false},
		{"asr in 90 seconds", at(10, 15, 28, 30), Asr, at(10, 15, 30, 0), "0h 1m", true},
		{"asr in two minutes", at(10, 15, 28, 0), Asr, at(10, 15, 30, 0), "0h 2m", false},
		{"between maghrib and isha", at(10, 18, 30, 0), Isha, at(10, 19, 40, 0), "1h 10m", false},
		{"after isha rolls to tomorrow", at(10, 20, 0, 0), Fajr, at(11, 5, 0, 0), "9h 0m", false},
		{"before midnight", at(10, 23, 59, 0), Fajr, at(11, 5, 0, 0), "5h 1m", false},
		{"month end rolls over", time.Date(2026, time.March, 31, 22, 0, 0, 0, time.UTC), Fajr, time.Date(2026, time.April, 1, 5, 0, 0, 0, time.UTC), "7h 0m", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, err := NextPrayer(testTimings, tt.now)
			if err != nil {
				t.Fatalf("NextPrayer: %v", err)
			}
			if next.Prayer != tt.want {
				t.Errorf("prayer = %s, want %s", next.Prayer, tt.want)
			}
			if !next.At.Equal(tt.wantAt) {
				t.Errorf("at = %v, want %v", next.At, tt.wantAt)
			}
			if got := FormatUntil(next.Until); got != tt.wantUntil {
				t.Errorf("until = %s, want %s", got, tt.wantUntil)
			}
			if next.Due() != tt.wantDue {
				t.Errorf("due = %v, want %v", next.Due(), tt.wantDue)
			}
		})
	}
}

func TestNextPrayerUsesNowLocation(t *testing.T) {
	riyadh := time.FixedZone("AST", 3*60*60)
	// 02:30 UTC is 05:30 in Riyadh, so Fajr has passed there.
	now := time.Date(2026, time.March, 10, 2, 30, 0, 0, time.UTC).In(riyadh)
	next, err := NextPrayer(testTimings, now)
	if err != nil {
		t.Fatal(err)
	}
	if next.Prayer != Dhuhr || next.Until != 6*time.Hour+30*time.Minute {
		t.Errorf("next = %s in %v", next.Prayer, next.Until)
	}
}

func TestNextPrayerInvalidTimings(t *testing.T) {
	tests := []struct {
		name string
		isha string
	}{
		{"empty", ""},
		{"no colon", "1940"},
		{"hour out of range", "24:00"},
		{"minute out of range", "19:60"},
		{"not a number", "ab:cd"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			timings := testTimings
			timings.Isha = tt.isha
			if _, err := NextPrayer(timings, time.Now()); err == nil || !strings.Contains(err.Error(), "Isha") {
				t.Errorf("err = %v", err)
			}
		})
	}
}

func TestNewSchedule(t *testing.T) {
	// Timings are read in the location's zone, not the caller's.
	caller := time.FixedZone("X", -5*60*60)
	now := time.Date(2026, time.March, 10, 7, 0, 0, 0, time.UTC).In(caller)

	s, err := NewSchedule(Day{Timings: testTimings, Timezone: "UTC"}, now)
	if err != nil {
		t.Fatal(err)
	}
	if s.Next != Dhuhr || s.Until != "5h 0m" || s.Due {
		t.Errorf("schedule = %+v", s)
	}
	if !s.NextAt.Equal(time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("next_at = %v", s.NextAt)
	}
	if s.Timings != testTimings || s.Timezone != "UTC" {
		t.Errorf("schedule lost the day: %+v", s)
	}
}

func TestDayZoneFallsBackToLocal(t *testing.T) {
	for _, tz := range []string{"", "Not/AZone"} {
		if got := (Day{Timezone: tz}).Zone(); got != time.Local {
			t.Errorf("Zone(%q) = %v, want Local", tz, got)
		}
	}
}
