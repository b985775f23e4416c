// Package export implements the data export subsystem (spec §4.I):
// re-materializing a recorded_at range of VehicleSnapshots into CSV or
// HDF5.
package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strconv"
	"sync/atomic"

	"github.com/groundstation/servo/internal/apierr"
	"github.com/groundstation/servo/internal/store"
	"github.com/groundstation/servo/internal/vehicle"
	"github.com/groundstation/servo/internal/wire"
)

// sentinelValue and sentinelID fill cells with no observation, per spec
// §4.I's HDF5 section — chosen ad-hoc by the source and flagged in spec §9
// as a candidate for a documented NaN/null in a future format revision.
const (
	sentinelValue = -6942069420.0
	sentinelID    = -69
)

// scratchCounter names HDF5 scratch files uniquely across concurrent
// export requests, the same lock-free counter idiom the teacher uses for
// its own process-wide counters.
var scratchCounter atomic.Uint64

// Result is the materialized export body and its MIME type.
type Result struct {
	Body        []byte
	ContentType string
}

// Service implements spec §4.I over store.Store.
type Service struct {
	store *store.Store
}

func New(st *store.Store) *Service {
	return &Service{store: st}
}

type snapshotRow struct {
	recordedAt float64
	state      *vehicle.State
}

// Export queries snapshots in [from, to], then materializes them per
// format (spec §4.I).
func (s *Service) Export(ctx context.Context, format string, from, to float64) (*Result, error) {
	snapshots, err := s.loadRange(ctx, from, to)
	if err != nil {
		return nil, err
	}

	sensorNames, valveNames := unionColumns(snapshots)

	switch format {
	case "csv":
		return s.exportCSV(ctx, from, to, snapshots, sensorNames, valveNames)
	case "hdf5":
		return exportHDF5(snapshots, sensorNames, valveNames)
	default:
		return nil, apierr.BadRequestf("unsupported export format %q", format)
	}
}

func (s *Service) loadRange(ctx context.Context, from, to float64) ([]snapshotRow, error) {
	rows, err := s.store.Query(ctx,
		`SELECT recorded_at, vehicle_state FROM VehicleSnapshots WHERE recorded_at >= ? AND recorded_at <= ? ORDER BY recorded_at ASC`,
		from, to,
	)
	if err != nil {
		return nil, apierr.Internalf(err, "export: querying snapshot range")
	}
	defer rows.Close()

	var out []snapshotRow
	for rows.Next() {
		var recordedAt float64
		var blob []byte
		if err := rows.Scan(&recordedAt, &blob); err != nil {
			return nil, apierr.Internalf(err, "export: scanning snapshot row")
		}
		st, err := wire.DecodeState(blob)
		if err != nil {
			return nil, apierr.Internalf(err, "export: decoding snapshot at %v", recordedAt)
		}
		out = append(out, snapshotRow{recordedAt: recordedAt, state: st})
	}
	return out, rows.Err()
}

// unionColumns returns the union of observed sensor and valve names across
// every snapshot, in a deterministic (sorted) order for this response
// (spec §4.I: "order deterministic within a response, not across
// responses").
func unionColumns(snapshots []snapshotRow) (sensors, valves []string) {
	sensorSet := make(map[string]struct{})
	valveSet := make(map[string]struct{})
	for _, row := range snapshots {
		for name := range row.state.SensorReadings {
			sensorSet[name] = struct{}{}
		}
		for name := range row.state.ValveStates {
			valveSet[name] = struct{}{}
		}
	}
	for name := range sensorSet {
		sensors = append(sensors, name)
	}
	for name := range valveSet {
		valves = append(valves, name)
	}
	sort.Strings(sensors)
	sort.Strings(valves)
	return sensors, valves
}

func (s *Service) exportCSV(ctx context.Context, from, to float64, snapshots []snapshotRow, sensorNames, valveNames []string) (*Result, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := append([]string{"timestamp"}, sensorNames...)
	header = append(header, valveNames...)
	if err := w.Write(header); err != nil {
		return nil, apierr.Internalf(err, "export: writing CSV header")
	}

	for _, row := range snapshots {
		record := make([]string, 0, len(header))
		record = append(record, strconv.FormatFloat(row.recordedAt, 'g', -1, 64))
		for _, name := range sensorNames {
			if reading, ok := row.state.SensorReadings[name]; ok {
				record = append(record, fmt.Sprintf("%v %s", reading.Value, reading.Unit))
			} else {
				record = append(record, "")
			}
		}
		for _, name := range valveNames {
			if v, ok := row.state.ValveStates[name]; ok {
				record = append(record, v.Actual.String())
			} else {
				record = append(record, "")
			}
		}
		if err := w.Write(record); err != nil {
			return nil, apierr.Internalf(err, "export: writing CSV row")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, apierr.Internalf(err, "export: flushing CSV")
	}

	body := buf.Bytes()
	if _, err := s.store.Exec(ctx,
		`INSERT INTO ExportRecords (from_time, to_time, format, contents) VALUES (?, ?, ?, ?)`,
		from, to, "csv", body,
	); err != nil {
		return nil, apierr.Internalf(err, "export: persisting export record")
	}

	return &Result{Body: body, ContentType: "text/csv"}, nil
}

func scratchPath() string {
	n := scratchCounter.Add(1)
	return fmt.Sprintf("%s/servo-export-%d.h5", os.TempDir(), n)
}
