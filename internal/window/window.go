// Package window implements the evening notification-window gate. Each
// configured country has an IANA timezone and a local target time; the
// country is active from the target onward within the same hour, and for the
// first half of the following hour.
package window

import (
	"fmt"
	"sort"
	"time"

	"github.com/lumapix/engage/internal/config"
)

type countryWindow struct {
	country string
	loc     *time.Location
	hour    int
	minute  int
}

// Gate answers which countries are currently inside their window.
type Gate struct {
	windows []countryWindow
}

// New builds a Gate, resolving every configured timezone up front. An
// unknown timezone is a configuration error and fails here, at startup,
// never mid-run.
func New(windows []config.CountryWindow) (*Gate, error) {
	if len(windows) == 0 {
		return nil, fmt.Errorf("no notification windows configured")
	}

	g := &Gate{windows: make([]countryWindow, 0, len(windows))}
	for _, w := range windows {
		loc, err := time.LoadLocation(w.Timezone)
		if err != nil {
			return nil, fmt.Errorf("country %s: load timezone %q: %w", w.Country, w.Timezone, err)
		}
		g.windows = append(g.windows, countryWindow{
			country: w.Country,
			loc:     loc,
			hour:    w.Hour,
			minute:  w.Minute,
		})
	}
	return g, nil
}

// ActiveCountries returns the countries whose local time is inside their
// notification window at the given instant, sorted for stable reporting.
func (g *Gate) ActiveCountries(now time.Time) []string {
	var active []string
	for _, w := range g.windows {
		local := now.In(w.loc)
		if inWindow(local.Hour(), local.Minute(), w.hour, w.minute) {
			active = append(active, w.country)
		}
	}
	sort.Strings(active)
	return active
}

// inWindow reports whether the local clock is inside the window: the target
// hour at or past the target minute, or the next hour before minute 30.
// For a 20:30 target that means [20:30, 21:30). The hour step wraps past
// midnight.
func inWindow(localH, localM, targetH, targetM int) bool {
	if localH == targetH {
		return localM >= targetM
	}
	return localH == (targetH+1)%24 && localM < 30
}
