package domain

import (
	"errors"
	"sort"
	"strings"
	"time"
)

type EventFilter string

const (
	FilterAll      EventFilter = "all"
	FilterUpcoming EventFilter = "upcoming"
	FilterPast     EventFilter = "past"
)

var ErrInvalidFilter = errors.New("invalid_filter")

func ParseEventFilter(s string) (EventFilter, error) {
	switch f := EventFilter(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FilterAll, nil
	case FilterAll, FilterUpcoming, FilterPast:
		return f, nil
	}
	return "", ErrInvalidFilter
}

// FilterEvents narrows events by a free-text query and a time filter.
// Upcoming events sort soonest first; everything else sorts newest first.
func FilterEvents(events []Event, query string, filter EventFilter, now time.Time) []Event {
	q := strings.ToLower(strings.TrimSpace(query))

	out := make([]Event, 0, len(events))
	for _, ev := range events {
		if q != "" && !matches(&ev, q) {
			continue
		}
		switch filter {
		case FilterUpcoming:
			if ev.IsPast(now) {
				continue
			}
		case FilterPast:
			if !ev.IsPast(now) {
				continue
			}
		}
		out = append(out, ev)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if filter == FilterUpcoming {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Date.After(out[j].Date)
	})
	return out
}

func matches(ev *Event, q string) bool {
	for _, field := range []string{ev.Name, ev.DescriptionText(), ev.Location, ev.ServiceProvider.Name} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}
