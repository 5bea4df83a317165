package lumped

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
)

// epwHeaderLines precede the hourly data in an EPW file.
const epwHeaderLines = 8

// epwDryBulbField is the column of the dry-bulb temperature in degC.
const epwDryBulbField = 6

// weather yields the outdoor dry-bulb temperature over time.
type weather struct {
	hourly   []float64 // degC, one entry per hour
	constant float64
}

// loadEPW reads the hourly dry-bulb temperatures of an EPW weather file.
func loadEPW(path string) (*weather, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening weather file: %w", err)
	}
	defer f.Close()
	return readEPW(f)
}

func readEPW(r io.Reader) (*weather, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	w := &weather{}
	line := 0
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading weather file: %w", err)
		}
		line++
		if line <= epwHeaderLines {
			continue
		}
		if len(rec) <= epwDryBulbField {
			return nil, fmt.Errorf("weather file line %d: %d fields, want at least %d", line, len(rec), epwDryBulbField+1)
		}
		t, err := strconv.ParseFloat(rec[epwDryBulbField], 64)
		if err != nil {
			return nil, fmt.Errorf("weather file line %d: dry bulb: %w", line, err)
		}
		w.hourly = append(w.hourly, t)
	}
	if len(w.hourly) == 0 {
		return nil, fmt.Errorf("weather file has no hourly data")
	}
	return w, nil
}

// dryBulb returns the outdoor temperature at t seconds into the year,
// interpolated linearly between hourly records. EPW records are
// hour-ending, so record 0 holds the value at t = 3600.
func (w *weather) dryBulb(t float64) float64 {
	n := len(w.hourly)
	if n == 0 {
		return w.constant
	}
	h := t/3600.0 - 1
	lo := math.Floor(h)
	frac := h - lo
	i := ((int(lo) % n) + n) % n
	j := (i + 1) % n
	return w.hourly[i]*(1-frac) + w.hourly[j]*frac
}
