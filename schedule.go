package boschhttp

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"
)

// Schedule is the weekly switch point table of one circuit. Setpoint levels
// referenced by the table are fetched once and kept for the session.
type Schedule struct {
	env         *Env
	root        string
	circuitName string
	bus         BusType
	deviceTime  func(ctx context.Context) (string, error)

	activeProgram    string
	programURI       string
	setpointProperty string
	switchPoints     []SwitchPoint
	setpoints        map[string]*Setpoint
	time             string
}

// NewSchedule creates the schedule of circuit name below root, e.g.
// "/heatingCircuits". deviceTime supplies the gateway clock.
func NewSchedule(env *Env, root, name string, bus BusType, deviceTime func(ctx context.Context) (string, error)) *Schedule {
	return &Schedule{
		env:         env,
		root:        strings.Trim(root, "/"),
		circuitName: name,
		bus:         bus,
		deviceTime:  deviceTime,
		setpoints:   make(map[string]*Setpoint),
	}
}

func (s *Schedule) ActiveProgram() string {
	return s.activeProgram
}

func (s *Schedule) SwitchPoints() []SwitchPoint {
	return slices.Clone(s.switchPoints)
}

// Setpoints returns a copy of the cached setpoint levels
func (s *Schedule) Setpoints() map[string]Setpoint {
	res := make(map[string]Setpoint, len(s.setpoints))
	for k, v := range s.setpoints {
		res[k] = *v
	}
	return res
}

// Time is the last device time read by Update
func (s *Schedule) Time() string {
	return s.time
}

// Now parses the last device time
func (s *Schedule) Now() (time.Time, bool) {
	if s.time == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(DEVICE_TIME_LAYOUT, s.time)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Update reads the device time and the switch points of program. Setpoint
// levels not seen before are fetched and memoized.
func (s *Schedule) Update(ctx context.Context, program string) error {
	if program == "" {
		return errors.New("no active program")
	}

	if s.deviceTime != nil {
		t, err := s.deviceTime(ctx)
		if err != nil {
			return fmt.Errorf("device time: %w", err)
		}
		s.time = t
	}

	uri := fmt.Sprintf(SWITCHPROGRAM_URL, s.root, s.circuitName, program)

	var res SwitchProgram
	if err := s.env.Conn.Get(ctx, uri, &res); err != nil {
		return fmt.Errorf("switch program %s: %w", program, err)
	}

	if s.activeProgram != "" && s.activeProgram != program {
		s.env.debug("%s: active program changed from %s to %s", s.circuitName, s.activeProgram, program)
	}
	s.activeProgram = program
	s.programURI = uri
	if res.SetpointProperty.ID != "" {
		s.setpointProperty = res.SetpointProperty.ID
	}

	points := make([]SwitchPoint, 0, len(res.SwitchPoints))
	for _, sp := range res.SwitchPoints {
		if dayIndex(sp.DayOfWeek) < 0 {
			s.env.debug("%s: ignoring switch point with day %q", s.circuitName, sp.DayOfWeek)
			continue
		}
		points = append(points, sp)
	}
	s.switchPoints = points

	var errs []error
	for _, sp := range points {
		if err := s.EnsureSetpoint(ctx, sp.Setpoint); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// EnsureSetpoint fetches the level id unless it is cached already
func (s *Schedule) EnsureSetpoint(ctx context.Context, id string) error {
	if _, ok := s.setpoints[id]; ok {
		return nil
	}
	if s.setpointProperty == "" {
		return fmt.Errorf("setpoint %s: no setpoint property known", id)
	}

	sp, err := s.fetchSetpoint(ctx, id)
	if err != nil {
		return fmt.Errorf("setpoint %s: %w", id, err)
	}
	s.setpoints[id] = sp

	return nil
}

func (s *Schedule) fetchSetpoint(ctx context.Context, id string) (*Setpoint, error) {
	uri := s.setpointProperty + "/" + id

	var node Node
	err := s.env.Conn.Get(ctx, uri, &node)
	if err != nil && id == SETPOINT_ON && s.bus != BUS_CAN {
		s.env.debug("%s: setpoint %s failed, trying %s: %v", s.circuitName, id, SETPOINT_HIGH, err)
		uri = s.setpointProperty + "/" + SETPOINT_HIGH
		err = s.env.Conn.Get(ctx, uri, &node)
	}
	if err != nil {
		return nil, err
	}

	sp := &Setpoint{ID: id, URI: uri}

	v, ok := node.Float()
	if s.bus == BUS_CAN && ok && v == 1 {
		// level defers to the circuit's live setpoint
		sp.Live = true
		return sp, nil
	}

	sp.Value = v
	sp.Min = node.MinValue(0)
	sp.Max = node.MaxValue(0)

	return sp, nil
}

func dayIndex(day string) int {
	return slices.Index(DAYS_OF_WEEK, day)
}

// weekdayIndex maps time.Weekday to a Monday based index
func weekdayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// ResolveActiveSetpoint returns the setpoint id of the switch point that was
// last passed at now, wrapping around the week.
func (s *Schedule) ResolveActiveSetpoint(now time.Time) (string, bool) {
	return resolveActiveSetpoint(s.switchPoints, now)
}

func resolveActiveSetpoint(points []SwitchPoint, now time.Time) (string, bool) {
	if len(points) == 0 {
		return "", false
	}

	type entry struct {
		day, minute int
		setpoint    string
		probe       bool
	}

	entries := make([]entry, 0, len(points)+1)
	for _, sp := range points {
		entries = append(entries, entry{day: dayIndex(sp.DayOfWeek), minute: sp.Time, setpoint: sp.Setpoint})
	}
	entries = append(entries, entry{
		day:    weekdayIndex(now),
		minute: now.Hour()*60 + now.Minute(),
		probe:  true,
	})

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].day != entries[j].day {
			return entries[i].day < entries[j].day
		}
		return entries[i].minute < entries[j].minute
	})

	idx := slices.IndexFunc(entries, func(e entry) bool { return e.probe })
	if idx == 0 {
		idx = len(entries)
	}

	return entries[idx-1].setpoint, true
}

// Active returns the setpoint level in effect at the last device time
func (s *Schedule) Active() (Setpoint, bool) {
	now, ok := s.Now()
	if !ok {
		return Setpoint{}, false
	}
	id, ok := s.ResolveActiveSetpoint(now)
	if !ok {
		return Setpoint{}, false
	}
	sp, ok := s.setpoints[id]
	if !ok {
		return Setpoint{ID: id}, false
	}
	return *sp, true
}

// GetTemperatureForMode returns the level backing mode. Manual modes are named
// after their level, auto modes resolve the weekly table.
func (s *Schedule) GetTemperatureForMode(mode string, modeType ModeType) (Setpoint, bool) {
	switch modeType {
	case MODE_MANUAL:
		sp, ok := s.setpoints[mode]
		if !ok {
			return Setpoint{}, false
		}
		return *sp, true
	case MODE_AUTO:
		return s.Active()
	default:
		return Setpoint{}, false
	}
}

// CacheTempForMode stores a written temperature in the level that backs mode
// so reads reflect it before the next device round trip.
func (s *Schedule) CacheTempForMode(temp float64, mode string, modeType ModeType) bool {
	id := mode
	if modeType == MODE_AUTO {
		sp, ok := s.Active()
		if !ok {
			return false
		}
		id = sp.ID
	}

	sp, ok := s.setpoints[id]
	if !ok {
		return false
	}
	sp.Value = temp

	return true
}
