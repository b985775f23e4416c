// Package sequence is the named-script registry of spec §4.G: CRUD keyed
// by name, with dispatch to the flight computer. The server never parses
// or interprets the script it stores — it is relayed verbatim.
package sequence

import (
	"context"
	"database/sql"
	"encoding/base64"
	"unicode/utf8"

	"github.com/groundstation/servo/internal/apierr"
	"github.com/groundstation/servo/internal/store"
)

// Dispatcher sends a named sequence to the flight computer. Implemented by
// *flightlink.Session.
type Dispatcher interface {
	SendSequence(name, script string) error
}

// Sequence mirrors the Sequence row (spec §3).
type Sequence struct {
	Name            string  `json:"name"`
	Script          string  `json:"script"`
	ConfigurationID *string `json:"configuration_id,omitempty"`
}

// Service implements spec §4.G over store.Store.
type Service struct {
	store  *store.Store
	flight Dispatcher
}

func New(st *store.Store, flight Dispatcher) *Service {
	return &Service{store: st, flight: flight}
}

// List returns every stored sequence.
func (s *Service) List(ctx context.Context) ([]Sequence, error) {
	rows, err := s.store.Query(ctx, `SELECT name, script, configuration_id FROM Sequences`)
	if err != nil {
		return nil, apierr.Internalf(err, "sequence: listing sequences")
	}
	defer rows.Close()

	var out []Sequence
	for rows.Next() {
		var seq Sequence
		if err := rows.Scan(&seq.Name, &seq.Script, &seq.ConfigurationID); err != nil {
			return nil, apierr.Internalf(err, "sequence: scanning row")
		}
		out = append(out, seq)
	}
	return out, rows.Err()
}

// Save base64-decodes script, validates it is UTF-8, and stores the
// plaintext keyed by name alongside configurationID (spec §4.G
// "save_sequence").
func (s *Service) Save(ctx context.Context, name string, configurationID *string, scriptB64 string) error {
	decoded, err := base64.StdEncoding.DecodeString(scriptB64)
	if err != nil {
		return apierr.BadRequestf("script is not valid base64: %v", err)
	}
	if !utf8.Valid(decoded) {
		return apierr.BadRequestf("decoded script is not valid UTF-8")
	}

	_, err = s.store.Exec(ctx,
		`INSERT INTO Sequences (name, configuration_id, script) VALUES (?, ?, ?)
		 ON CONFLICT (name) DO UPDATE SET configuration_id = excluded.configuration_id, script = excluded.script`,
		name, configurationID, string(decoded),
	)
	if err != nil {
		return apierr.Internalf(err, "sequence: saving %s", name)
	}
	return nil
}

// Delete removes the named sequence.
func (s *Service) Delete(ctx context.Context, name string) error {
	res, err := s.store.Exec(ctx, `DELETE FROM Sequences WHERE name = ?`, name)
	if err != nil {
		return apierr.Internalf(err, "sequence: deleting %s", name)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apierr.Internalf(err, "sequence: checking delete result")
	}
	if n == 0 {
		return apierr.NotFoundf("no sequence named %q", name)
	}
	return nil
}

// Run loads name and sends it to the flight computer. force is advisory
// only: spec §4.G and §9 leave the configuration-match check stubbed for a
// future revision, so it is accepted but never enforced.
func (s *Service) Run(ctx context.Context, name string, force bool) error {
	var script string
	err := s.store.QueryRow(ctx, `SELECT script FROM Sequences WHERE name = ?`, name).Scan(&script)
	if err == sql.ErrNoRows {
		return apierr.BadRequestf("no sequence named %q", name)
	}
	if err != nil {
		return apierr.Internalf(err, "sequence: loading %s", name)
	}

	if err := s.flight.SendSequence(name, script); err != nil {
		return apierr.Internalf(err, "sequence: dispatching %s to flight computer", name)
	}
	return nil
}
