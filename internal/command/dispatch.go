// Package command translates operator requests into flight-link wire
// messages (spec §4.H). It never interprets a script, only builds the
// one-line form click_valve dispatches as.
package command

import (
	"context"
	"fmt"

	"github.com/groundstation/servo/internal/apierr"
	"github.com/groundstation/servo/internal/mapping"
)

// Dispatcher sends a synthetic one-shot sequence to the flight computer.
// Implemented by *flightlink.Session.
type Dispatcher interface {
	SendSequence(name, script string) error
}

// Request mirrors the /operator/command body (spec §4.H).
type Request struct {
	Command string  `json:"command"`
	Target  *string `json:"target,omitempty"`
	State   *string `json:"state,omitempty"`
}

// Service dispatches operator commands.
type Service struct {
	flight  Dispatcher
	mapping *mapping.Service
}

func New(flight Dispatcher, mappingSvc *mapping.Service) *Service {
	return &Service{flight: flight, mapping: mappingSvc}
}

// Dispatch handles one operator command (spec §4.H). Currently the only
// supported command is click_valve.
func (s *Service) Dispatch(ctx context.Context, req Request) error {
	switch req.Command {
	case "click_valve":
		return s.clickValve(ctx, req)
	case "":
		return apierr.BadRequestf("command is required")
	default:
		return apierr.BadRequestf("unrecognized command %q", req.Command)
	}
}

func (s *Service) clickValve(ctx context.Context, req Request) error {
	if req.Target == nil || *req.Target == "" {
		return apierr.BadRequestf("click_valve requires a target")
	}
	if err := s.validTarget(ctx, *req.Target); err != nil {
		return err
	}

	var verb string
	switch {
	case req.State == nil:
		return apierr.BadRequestf("click_valve requires a state")
	case *req.State == "open":
		verb = "open"
	case *req.State == "closed":
		verb = "close"
	default:
		return apierr.BadRequestf("unrecognized valve state %q", *req.State)
	}

	script := fmt.Sprintf("%s.%s()", *req.Target, verb)
	if err := s.flight.SendSequence("command", script); err != nil {
		return apierr.Internalf(err, "command: dispatching click_valve")
	}
	return nil
}

// validTarget checks that target resolves in the active mapping set (spec
// §4.H: "must resolve in active mappings").
func (s *Service) validTarget(ctx context.Context, target string) error {
	configID, err := s.mapping.GetActive(ctx)
	if err != nil {
		return apierr.BadRequestf("no active configuration to resolve target %q against", target)
	}
	configs, err := s.mapping.List(ctx)
	if err != nil {
		return err
	}
	for _, cfg := range configs {
		if cfg.ConfigurationID != configID {
			continue
		}
		for _, m := range cfg.Mappings {
			if m.TextID == target && m.Active {
				return nil
			}
		}
	}
	return apierr.BadRequestf("target %q does not resolve in active mappings", target)
}
