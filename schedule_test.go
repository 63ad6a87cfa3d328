package boschhttp

import (
	"context"
	"testing"
	"time"
)

const (
	testProgram   = "/heatingCircuits/hc1/switchPrograms/A"
	testLevels    = "/heatingCircuits/hc1/temperatureLevels"
	testTimeStart = "2024-01-01T09:00:00" // monday
)

func dayNightDevice() *memRequester {
	mem := newMemRequester()
	mem.set(testProgram, map[string]any{
		"switchPoints": []any{
			map[string]any{"dayOfWeek": "Mo", "setpoint": "day", "time": 480},
			map[string]any{"dayOfWeek": "Mo", "setpoint": "night", "time": 1320},
		},
		"setpointProperty": map[string]any{"id": testLevels},
	})
	mem.set(testLevels+"/day", map[string]any{"value": 21, "minValue": 5, "maxValue": 30})
	mem.set(testLevels+"/night", map[string]any{"value": 16, "minValue": 5, "maxValue": 30})
	return mem
}

func testSchedule(conn Requester, bus BusType, now *string) *Schedule {
	env := &Env{Conn: conn}
	return NewSchedule(env, "/heatingCircuits", "hc1", bus, func(context.Context) (string, error) {
		return *now, nil
	})
}

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(DEVICE_TIME_LAYOUT, s)
	if err != nil {
		t.Fatal(err)
	}
	return ts
}

func TestScheduleDayNight(t *testing.T) {
	mem := dayNightDevice()
	now := testTimeStart
	s := testSchedule(mem, BUS_EMS, &now)
	ctx := context.Background()

	if err := s.Update(ctx, "A"); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	sp, ok := s.GetTemperatureForMode("auto", MODE_AUTO)
	if !ok || sp.ID != "day" || sp.Value != 21 {
		t.Errorf("09:00 = %+v %v, want day 21", sp, ok)
	}
	if sp.Min != 5 || sp.Max != 30 || sp.URI != testLevels+"/day" {
		t.Errorf("setpoint details = %+v", sp)
	}

	now = "2024-01-01T23:00:00"
	if err := s.Update(ctx, "A"); err != nil {
		t.Fatal(err)
	}
	if sp, ok := s.Active(); !ok || sp.ID != "night" || sp.Value != 16 {
		t.Errorf("23:00 = %+v %v, want night 16", sp, ok)
	}

	for _, level := range []string{"day", "night"} {
		if n := mem.getCount(testLevels + "/" + level); n != 1 {
			t.Errorf("%s fetched %d times, want 1", level, n)
		}
	}
	if n := mem.getCount(testProgram); n != 2 {
		t.Errorf("program fetched %d times, want 2", n)
	}
}

func TestResolveActiveSetpointWraparound(t *testing.T) {
	points := []SwitchPoint{
		{DayOfWeek: "Mo", Setpoint: "monday", Time: 8 * 60},
		{DayOfWeek: "Fr", Setpoint: "friday", Time: 18 * 60},
	}

	for _, tc := range []struct {
		now  string
		want string
	}{
		{"2024-01-07T23:59:00", "friday"}, // sunday
		{"2024-01-01T00:01:00", "friday"},
		{"2024-01-01T08:00:00", "monday"},
		{"2024-01-01T09:00:00", "monday"},
		{"2024-01-05T17:59:00", "monday"},
		{"2024-01-05T18:00:00", "friday"},
	} {
		got, ok := resolveActiveSetpoint(points, mustTime(t, tc.now))
		if !ok || got != tc.want {
			t.Errorf("%s: got %q %v, want %q", tc.now, got, ok, tc.want)
		}
	}

	early := []SwitchPoint{{DayOfWeek: "Mo", Setpoint: "early", Time: 0}}
	if got, _ := resolveActiveSetpoint(early, mustTime(t, "2024-01-01T00:01:00")); got != "early" {
		t.Errorf("monday point before probe: got %q", got)
	}
}

func TestResolveActiveSetpointOrderInvariant(t *testing.T) {
	points := []SwitchPoint{
		{DayOfWeek: "We", Setpoint: "c", Time: 600},
		{DayOfWeek: "Mo", Setpoint: "a", Time: 360},
		{DayOfWeek: "Su", Setpoint: "e", Time: 1200},
		{DayOfWeek: "Mo", Setpoint: "b", Time: 1080},
		{DayOfWeek: "Th", Setpoint: "d", Time: 420},
	}
	reversed := make([]SwitchPoint, len(points))
	for i, p := range points {
		reversed[len(points)-1-i] = p
	}

	for _, now := range []string{
		"2024-01-01T05:00:00",
		"2024-01-01T07:00:00",
		"2024-01-02T12:00:00",
		"2024-01-04T07:00:00",
		"2024-01-07T21:00:00",
	} {
		ts := mustTime(t, now)
		a, _ := resolveActiveSetpoint(points, ts)
		b, _ := resolveActiveSetpoint(reversed, ts)
		c, _ := resolveActiveSetpoint(points, ts)
		if a != b || a != c {
			t.Errorf("%s: %q %q %q differ", now, a, b, c)
		}
	}

	if points[0].Setpoint != "c" {
		t.Error("input order was modified")
	}
	if _, ok := resolveActiveSetpoint(nil, time.Now()); ok {
		t.Error("empty table resolved")
	}
}

func TestScheduleCANLiveSetpoint(t *testing.T) {
	mem := dayNightDevice()
	mem.set(testLevels+"/day", map[string]any{"value": 1})
	now := testTimeStart
	s := testSchedule(mem, BUS_CAN, &now)

	if err := s.Update(context.Background(), "A"); err != nil {
		t.Fatal(err)
	}
	sp, ok := s.Active()
	if !ok || !sp.Live {
		t.Errorf("CAN level with value 1 = %+v, want live", sp)
	}

	night := s.Setpoints()["night"]
	if night.Live || night.Value != 16 {
		t.Errorf("night = %+v", night)
	}
}

func TestScheduleOnFallsBackToHigh(t *testing.T) {
	mem := newMemRequester()
	mem.set("/dhwCircuits/dhw1/switchPrograms/A", map[string]any{
		"switchPoints": []any{
			map[string]any{"dayOfWeek": "Mo", "setpoint": "on", "time": 300},
			map[string]any{"dayOfWeek": "Mo", "setpoint": "off", "time": 1200},
		},
		"setpointProperty": map[string]any{"id": "/dhwCircuits/dhw1/temperatureLevels"},
	})
	mem.set("/dhwCircuits/dhw1/temperatureLevels/high", map[string]any{"value": 60, "minValue": 30, "maxValue": 80})
	mem.set("/dhwCircuits/dhw1/temperatureLevels/off", map[string]any{"value": 0})
	now := testTimeStart

	s := NewSchedule(&Env{Conn: mem}, "/dhwCircuits", "dhw1", BUS_EMS, func(context.Context) (string, error) { return now, nil })
	if err := s.Update(context.Background(), "A"); err != nil {
		t.Fatal(err)
	}
	sp, ok := s.Active()
	if !ok || sp.ID != "on" || sp.Value != 60 || sp.URI != "/dhwCircuits/dhw1/temperatureLevels/high" {
		t.Errorf("on level = %+v %v", sp, ok)
	}

	can := NewSchedule(&Env{Conn: mem}, "/dhwCircuits", "dhw1", BUS_CAN, func(context.Context) (string, error) { return now, nil })
	if err := can.Update(context.Background(), "A"); err == nil {
		t.Error("CAN bus fell back to high")
	}
	if _, ok := can.Setpoints()["on"]; ok {
		t.Error("failed level was cached")
	}
}

func TestScheduleCacheTempForMode(t *testing.T) {
	mem := dayNightDevice()
	now := testTimeStart
	s := testSchedule(mem, BUS_EMS, &now)
	if err := s.Update(context.Background(), "A"); err != nil {
		t.Fatal(err)
	}

	if !s.CacheTempForMode(22.5, "auto", MODE_AUTO) {
		t.Fatal("CacheTempForMode() = false")
	}
	if sp, _ := s.Active(); sp.Value != 22.5 {
		t.Errorf("day = %v, want 22.5", sp.Value)
	}
	if s.Setpoints()["night"].Value != 16 {
		t.Error("inactive level modified")
	}

	if !s.CacheTempForMode(15, "night", MODE_MANUAL) {
		t.Fatal("manual CacheTempForMode() = false")
	}
	if sp, ok := s.GetTemperatureForMode("night", MODE_MANUAL); !ok || sp.Value != 15 {
		t.Errorf("night = %+v", sp)
	}
	if s.CacheTempForMode(10, "unknown", MODE_MANUAL) {
		t.Error("unknown level cached")
	}
}

func TestScheduleIgnoresUnknownDays(t *testing.T) {
	mem := dayNightDevice()
	mem.set(testProgram, map[string]any{
		"switchPoints": []any{
			map[string]any{"dayOfWeek": "Xx", "setpoint": "night", "time": 0},
			map[string]any{"dayOfWeek": "Mo", "setpoint": "day", "time": 0},
		},
		"setpointProperty": map[string]any{"id": testLevels},
	})
	now := testTimeStart
	s := testSchedule(mem, BUS_EMS, &now)
	if err := s.Update(context.Background(), "A"); err != nil {
		t.Fatal(err)
	}
	if n := len(s.SwitchPoints()); n != 1 {
		t.Errorf("switch points = %d, want 1", n)
	}
	if mem.getCount(testLevels+"/night") != 0 {
		t.Error("level of ignored switch point fetched")
	}
}
