// Package mapping is the configuration authority (spec §4.F): CRUD over
// channel-mapping configurations, atomic active-set swap, and a
// best-effort push of the active set to the flight computer after every
// mutation.
package mapping

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"

	"github.com/groundstation/servo/internal/apierr"
	"github.com/groundstation/servo/internal/channelmap"
	"github.com/groundstation/servo/internal/store"
	"github.com/groundstation/servo/internal/vehicle"
)

// Pusher sends the active mapping set to the flight computer. Implemented
// by *flightlink.Session.
type Pusher interface {
	SendMappings(mappings []channelmap.NodeMapping) error
}

// Service implements spec §4.F over store.Store.
type Service struct {
	logger *slog.Logger
	store  *store.Store
	flight Pusher
	hub    *vehicle.Hub
}

func New(logger *slog.Logger, st *store.Store, flight Pusher, hub *vehicle.Hub) *Service {
	return &Service{logger: logger, store: st, flight: flight, hub: hub}
}

// Configuration is one named set of mappings, as returned by List.
type Configuration struct {
	ConfigurationID string                    `json:"configuration_id"`
	Mappings        []channelmap.NodeMapping `json:"mappings"`
}

const selectMappingColumns = `configuration_id, text_id, board_id, channel_type, channel, computer,
	max, min, calibrated_offset, connected_threshold, powered_threshold, normally_closed, active`

func scanMapping(row interface{ Scan(...any) error }) (channelmap.NodeMapping, error) {
	var m channelmap.NodeMapping
	var channelType, computer string
	var active int
	if err := row.Scan(
		&m.ConfigurationID, &m.TextID, &m.BoardID, &channelType, &m.Channel, &computer,
		&m.Max, &m.Min, &m.CalibratedOffset, &m.ConnectedThreshold, &m.PoweredThreshold, &m.NormallyClosed,
		&active,
	); err != nil {
		return m, err
	}
	if err := (&m.ChannelType).UnmarshalJSON([]byte(`"` + channelType + `"`)); err != nil {
		return m, err
	}
	if err := (&m.Computer).UnmarshalJSON([]byte(`"` + computer + `"`)); err != nil {
		return m, err
	}
	m.Active = active != 0
	return m, nil
}

// List returns every configuration, grouped by configuration_id (spec
// §4.F "List").
func (s *Service) List(ctx context.Context) ([]Configuration, error) {
	rows, err := s.store.Query(ctx, `SELECT `+selectMappingColumns+` FROM NodeMappings`)
	if err != nil {
		return nil, apierr.Internalf(err, "mapping: listing configurations")
	}
	defer rows.Close()

	byID := make(map[string]*Configuration)
	var order []string
	for rows.Next() {
		m, err := scanMapping(rows)
		if err != nil {
			return nil, apierr.Internalf(err, "mapping: scanning row")
		}
		cfg, ok := byID[m.ConfigurationID]
		if !ok {
			cfg = &Configuration{ConfigurationID: m.ConfigurationID}
			byID[m.ConfigurationID] = cfg
			order = append(order, m.ConfigurationID)
		}
		cfg.Mappings = append(cfg.Mappings, m)
	}
	if err := rows.Err(); err != nil {
		return nil, apierr.Internalf(err, "mapping: reading rows")
	}

	sort.Strings(order)
	out := make([]Configuration, 0, len(order))
	for _, id := range order {
		out = append(out, *byID[id])
	}
	return out, nil
}

// Replace deletes every row under configurationID and inserts the provided
// mappings, within a single locked transaction, then pushes the active set
// (spec §4.F "Replace").
func (s *Service) Replace(ctx context.Context, configurationID string, mappings []channelmap.NodeMapping) error {
	err := s.store.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM NodeMappings WHERE configuration_id = ?`, configurationID); err != nil {
			return fmt.Errorf("deleting existing mappings: %w", err)
		}
		for _, m := range mappings {
			m.ConfigurationID = configurationID
			if err := insertMapping(ctx, tx, m); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return apierr.Internalf(err, "mapping: replacing configuration %s", configurationID)
	}
	return s.pushActive(ctx)
}

// Upsert inserts or updates each mapping keyed by (configuration_id,
// text_id), then pushes (spec §4.F "Upsert").
func (s *Service) Upsert(ctx context.Context, mappings []channelmap.NodeMapping) error {
	err := s.store.WithTx(ctx, func(tx *sql.Tx) error {
		for _, m := range mappings {
			if err := upsertMapping(ctx, tx, m); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return apierr.Internalf(err, "mapping: upserting mappings")
	}
	return s.pushActive(ctx)
}

// Delete removes the named mappings if provided, else the whole
// configuration, then pushes (spec §4.F "Delete").
func (s *Service) Delete(ctx context.Context, configurationID string, textIDs []string) error {
	err := s.store.WithTx(ctx, func(tx *sql.Tx) error {
		if len(textIDs) == 0 {
			_, err := tx.ExecContext(ctx, `DELETE FROM NodeMappings WHERE configuration_id = ?`, configurationID)
			return err
		}
		for _, id := range textIDs {
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM NodeMappings WHERE configuration_id = ? AND text_id = ?`, configurationID, id,
			); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return apierr.Internalf(err, "mapping: deleting from configuration %s", configurationID)
	}
	return s.pushActive(ctx)
}

// Activate atomically clears every row's active flag, then sets it for
// configurationID. Zero affected rows is a BadRequest and the push does
// not happen (spec §4.F "Activate").
func (s *Service) Activate(ctx context.Context, configurationID string) error {
	var affected int64
	err := s.store.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `UPDATE NodeMappings SET active = 0`); err != nil {
			return fmt.Errorf("clearing active flags: %w", err)
		}
		res, err := tx.ExecContext(ctx, `UPDATE NodeMappings SET active = 1 WHERE configuration_id = ?`, configurationID)
		if err != nil {
			return fmt.Errorf("setting active flags: %w", err)
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return apierr.Internalf(err, "mapping: activating configuration %s", configurationID)
	}
	if affected == 0 {
		return apierr.BadRequestf("no configuration named %q exists", configurationID)
	}
	return s.pushActive(ctx)
}

// GetActive returns the configuration_id shared by every active row, or
// NotFound if none is active (spec §4.F "Get active").
func (s *Service) GetActive(ctx context.Context) (string, error) {
	var id string
	err := s.store.QueryRow(ctx, `SELECT configuration_id FROM NodeMappings WHERE active = 1 LIMIT 1`).Scan(&id)
	if err == sql.ErrNoRows {
		return "", apierr.NotFoundf("no active configuration")
	}
	if err != nil {
		return "", apierr.Internalf(err, "mapping: reading active configuration")
	}
	return id, nil
}

// Calibrate writes the live reading of every active current_loop or
// differential_signal mapping into its calibrated_offset, pushes, and
// returns the map of updated sensor to offset (spec §4.F "Calibrate").
func (s *Service) Calibrate(ctx context.Context) (map[string]float64, error) {
	rows, err := s.store.Query(ctx,
		`SELECT text_id FROM NodeMappings WHERE active = 1 AND channel_type IN ('current_loop', 'differential_signal')`,
	)
	if err != nil {
		return nil, apierr.Internalf(err, "mapping: listing calibratable mappings")
	}
	var textIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, apierr.Internalf(err, "mapping: scanning calibratable mapping")
		}
		textIDs = append(textIDs, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, apierr.Internalf(err, "mapping: reading calibratable mappings")
	}

	live := s.hub.Snapshot()
	updated := make(map[string]float64)
	for _, id := range textIDs {
		reading, ok := live.SensorReadings[id]
		if !ok {
			continue
		}
		if _, err := s.store.Exec(ctx,
			`UPDATE NodeMappings SET calibrated_offset = ? WHERE text_id = ? AND active = 1`,
			reading.Value, id,
		); err != nil {
			return nil, apierr.Internalf(err, "mapping: writing calibrated offset for %s", id)
		}
		updated[id] = reading.Value
	}

	if err := s.pushActive(ctx); err != nil {
		return nil, err
	}
	return updated, nil
}

// pushActive reads the current active mapping set and sends it to flight.
// Push failure does not roll back the database write already committed but
// is surfaced as an Internal error (spec §4.F: "Push failure... is
// surfaced as a 500").
func (s *Service) pushActive(ctx context.Context) error {
	rows, err := s.store.Query(ctx, `SELECT `+selectMappingColumns+` FROM NodeMappings WHERE active = 1`)
	if err != nil {
		return apierr.Internalf(err, "mapping: reading active set for push")
	}
	var active []channelmap.NodeMapping
	for rows.Next() {
		m, err := scanMapping(rows)
		if err != nil {
			rows.Close()
			return apierr.Internalf(err, "mapping: scanning active row for push")
		}
		active = append(active, m)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return apierr.Internalf(err, "mapping: reading active rows for push")
	}

	if err := s.flight.SendMappings(active); err != nil {
		s.logger.Error("mapping: push to flight computer failed", "error", err)
		return apierr.Internalf(err, "mapping: pushing active set to flight computer")
	}
	return nil
}

func insertMapping(ctx context.Context, tx *sql.Tx, m channelmap.NodeMapping) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO NodeMappings (
			configuration_id, text_id, board_id, channel_type, channel, computer,
			max, min, calibrated_offset, connected_threshold, powered_threshold, normally_closed, active
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		m.ConfigurationID, m.TextID, m.BoardID, m.ChannelType.String(), m.Channel, m.Computer.String(),
		m.Max, m.Min, m.CalibratedOffset, m.ConnectedThreshold, m.PoweredThreshold, boolToInt(m.NormallyClosed), boolToIntV(m.Active),
	)
	if err != nil {
		return fmt.Errorf("inserting mapping %s/%s: %w", m.ConfigurationID, m.TextID, err)
	}
	return nil
}

func upsertMapping(ctx context.Context, tx *sql.Tx, m channelmap.NodeMapping) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO NodeMappings (
			configuration_id, text_id, board_id, channel_type, channel, computer,
			max, min, calibrated_offset, connected_threshold, powered_threshold, normally_closed, active
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (configuration_id, text_id) DO UPDATE SET
			board_id = excluded.board_id,
			channel_type = excluded.channel_type,
			channel = excluded.channel,
			computer = excluded.computer,
			max = excluded.max,
			min = excluded.min,
			calibrated_offset = excluded.calibrated_offset,
			connected_threshold = excluded.connected_threshold,
			powered_threshold = excluded.powered_threshold,
			normally_closed = excluded.normally_closed
	`,
		m.ConfigurationID, m.TextID, m.BoardID, m.ChannelType.String(), m.Channel, m.Computer.String(),
		m.Max, m.Min, m.CalibratedOffset, m.ConnectedThreshold, m.PoweredThreshold, boolToInt(m.NormallyClosed), boolToIntV(m.Active),
	)
	if err != nil {
		return fmt.Errorf("upserting mapping %s/%s: %w", m.ConfigurationID, m.TextID, err)
	}
	return nil
}

func boolToInt(b *bool) any {
	if b == nil {
		return nil
	}
	if *b {
		return 1
	}
	return 0
}

func boolToIntV(b bool) int {
	if b {
		return 1
	}
	return 0
}
