package cmd

import (
	"fmt"
	"net"

	"github.com/spf13/cobra"

	"github.com/groundstation/servo/internal/vehicle"
	"github.com/groundstation/servo/internal/wire"
)

var emulateAddr string

// emulateCmd is recognized per spec §6. Unlike deploy, its contract is
// simple enough to actually exercise: send one mock VehicleState datagram
// to the core's telemetry socket, the way a flight computer's first packet
// would look.
var emulateCmd = &cobra.Command{
	Use:   "emulate",
	Short: "Send one mock telemetry datagram to the core's UDP socket",
	RunE:  runEmulate,
}

func init() {
	rootCmd.AddCommand(emulateCmd)
	emulateCmd.Flags().StringVar(&emulateAddr, "telemetry-addr", "localhost:7201", "core's telemetry UDP address")
}

func runEmulate(cmd *cobra.Command, args []string) error {
	conn, err := net.Dial("udp", emulateAddr)
	if err != nil {
		return fmt.Errorf("servo: dialing %s: %w", emulateAddr, err)
	}
	defer conn.Close()

	state := vehicle.NewState()
	state.SensorReadings["KBPT"] = vehicle.Measurement{Value: 120, Unit: vehicle.UnitPsi}
	state.SensorReadings["WTPT"] = vehicle.Measurement{Value: 1000, Unit: vehicle.UnitPsi}
	state.ValveStates["BBV"] = vehicle.CompositeValveState{Commanded: vehicle.ValveClosed, Actual: vehicle.ValveClosed}
	state.ValveStates["SWV"] = vehicle.CompositeValveState{Commanded: vehicle.ValveCommandedClosed, Actual: vehicle.ValveOpen}

	if _, err := conn.Write(wire.EncodeState(state)); err != nil {
		return fmt.Errorf("servo: sending datagram: %w", err)
	}
	fmt.Println(styleSuccess.Render("sent mock telemetry to " + emulateAddr))
	return nil
}
