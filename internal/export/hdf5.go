package export

import (
	"fmt"
	"os"

	"gonum.org/v1/hdf5"

	"github.com/groundstation/servo/internal/vehicle"
)

const deflateLevel = 9

// exportHDF5 materializes snapshots into a self-contained HDF5 file per
// spec §4.I's layout, reads the bytes back, and deletes the scratch file.
// gonum.org/v1/hdf5 is a new, named (not pack-grounded) dependency — see
// DESIGN.md; no example repo touches a binary scientific format.
func exportHDF5(snapshots []snapshotRow, sensorNames, valveNames []string) (*Result, error) {
	path := scratchPath()
	defer os.Remove(path)

	if err := writeHDF5(path, snapshots, sensorNames, valveNames); err != nil {
		return nil, err
	}

	body, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("export: reading back scratch HDF5 file: %w", err)
	}
	return &Result{Body: body, ContentType: "file/hdf5"}, nil
}

func writeHDF5(path string, snapshots []snapshotRow, sensorNames, valveNames []string) error {
	f, err := hdf5.CreateFile(path, hdf5.F_ACC_TRUNC)
	if err != nil {
		return fmt.Errorf("export: creating HDF5 file: %w", err)
	}
	defer f.Close()

	timestamps := make([]float64, len(snapshots))
	for i, row := range snapshots {
		timestamps[i] = row.recordedAt
	}

	metaGroup, err := f.CreateGroup("metadata")
	if err != nil {
		return fmt.Errorf("export: creating /metadata group: %w", err)
	}
	defer metaGroup.Close()

	if err := writeFloat64Dataset(f, "/metadata/timestamps", timestamps, false); err != nil {
		return err
	}

	valveStateGroup, err := metaGroup.CreateGroup("valve_state_ids")
	if err != nil {
		return fmt.Errorf("export: creating /metadata/valve_state_ids group: %w", err)
	}
	defer valveStateGroup.Close()

	if err := writeValveStateIDs(valveStateGroup); err != nil {
		return err
	}

	if len(sensorNames) > 0 {
		sensorsGroup, err := f.CreateGroup("sensors")
		if err != nil {
			return fmt.Errorf("export: creating /sensors group: %w", err)
		}
		defer sensorsGroup.Close()

		for _, name := range sensorNames {
			group, err := sensorsGroup.CreateGroup(name)
			if err != nil {
				return fmt.Errorf("export: creating /sensors/%s group: %w", name, err)
			}

			readings := make([]float64, len(snapshots))
			units := make([]int8, len(snapshots))
			for i, row := range snapshots {
				if m, ok := row.state.SensorReadings[name]; ok {
					readings[i] = m.Value
					units[i] = int8(m.Unit)
				} else {
					readings[i] = sentinelValue
					units[i] = sentinelID
				}
			}

			if err := writeFloat64DatasetIn(group, "readings", readings, true); err != nil {
				group.Close()
				return err
			}
			if err := writeInt8DatasetIn(group, "units", units, false); err != nil {
				group.Close()
				return err
			}
			group.Close()
		}
	}

	if len(valveNames) > 0 {
		valvesGroup, err := f.CreateGroup("valves")
		if err != nil {
			return fmt.Errorf("export: creating /valves group: %w", err)
		}
		defer valvesGroup.Close()

		for _, name := range valveNames {
			states := make([]int8, len(snapshots))
			for i, row := range snapshots {
				if v, ok := row.state.ValveStates[name]; ok {
					states[i] = int8(v.Actual)
				} else {
					states[i] = sentinelID
				}
			}
			if err := writeInt8DatasetIn(valvesGroup, name, states, true); err != nil {
				return err
			}
		}
	}

	return nil
}

// writeValveStateIDs writes one scalar attribute for every valve-state enum
// value (observed in the export or not), mapping its string name to its
// integer id (spec §4.I "/metadata/valve_state_ids").
func writeValveStateIDs(group *hdf5.Group) error {
	dspace, err := hdf5.CreateDataspace(hdf5.S_SCALAR)
	if err != nil {
		return fmt.Errorf("export: creating scalar dataspace: %w", err)
	}
	defer dspace.Close()

	dtype, err := hdf5.NewDatatypeFromType(int8(0))
	if err != nil {
		return fmt.Errorf("export: creating int8 datatype: %w", err)
	}
	defer dtype.Close()

	for _, state := range vehicle.AllValveStates() {
		attr, err := group.CreateAttribute(state.String(), dtype, dspace)
		if err != nil {
			return fmt.Errorf("export: creating valve_state_ids attribute %s: %w", state.String(), err)
		}
		id := int8(state)
		if err := attr.Write(&id, dtype); err != nil {
			attr.Close()
			return fmt.Errorf("export: writing valve_state_ids attribute %s: %w", state.String(), err)
		}
		attr.Close()
	}
	return nil
}

func writeFloat64Dataset(f *hdf5.File, path string, data []float64, compress bool) error {
	return writeFloat64DatasetAt(f, nil, path, data, compress)
}

func writeFloat64DatasetIn(g *hdf5.Group, name string, data []float64, compress bool) error {
	return writeFloat64DatasetAt(nil, g, name, data, compress)
}

func writeFloat64DatasetAt(f *hdf5.File, g *hdf5.Group, name string, data []float64, compress bool) error {
	dspace, err := hdf5.CreateSimpleDataspace([]uint{uint(len(data))}, nil)
	if err != nil {
		return fmt.Errorf("export: creating dataspace for %s: %w", name, err)
	}
	defer dspace.Close()

	dtype, err := hdf5.NewDatatypeFromType(float64(0))
	if err != nil {
		return fmt.Errorf("export: creating float64 datatype for %s: %w", name, err)
	}
	defer dtype.Close()

	dset, err := createDataset(f, g, name, dtype, dspace, len(data), compress)
	if err != nil {
		return err
	}
	defer dset.Close()

	if err := dset.Write(&data); err != nil {
		return fmt.Errorf("export: writing dataset %s: %w", name, err)
	}
	return nil
}

func writeInt8DatasetIn(g *hdf5.Group, name string, data []int8, compress bool) error {
	dspace, err := hdf5.CreateSimpleDataspace([]uint{uint(len(data))}, nil)
	if err != nil {
		return fmt.Errorf("export: creating dataspace for %s: %w", name, err)
	}
	defer dspace.Close()

	dtype, err := hdf5.NewDatatypeFromType(int8(0))
	if err != nil {
		return fmt.Errorf("export: creating int8 datatype for %s: %w", name, err)
	}
	defer dtype.Close()

	dset, err := createDataset(nil, g, name, dtype, dspace, len(data), compress)
	if err != nil {
		return err
	}
	defer dset.Close()

	if err := dset.Write(&data); err != nil {
		return fmt.Errorf("export: writing dataset %s: %w", name, err)
	}
	return nil
}

// createDataset creates a dataset under f or g (whichever is non-nil),
// applying deflate-9 chunked compression when compress is set (spec §4.I:
// "deflate level 9" for sensor readings and valve datasets).
func createDataset(f *hdf5.File, g *hdf5.Group, name string, dtype *hdf5.Datatype, dspace *hdf5.Dataspace, n int, compress bool) (*hdf5.Dataset, error) {
	if !compress || n == 0 {
		if g != nil {
			return g.CreateDataset(name, dtype, dspace)
		}
		return f.CreateDataset(name, dtype, dspace)
	}

	plist, err := hdf5.NewPropList(hdf5.P_DATASET_CREATE)
	if err != nil {
		return nil, fmt.Errorf("export: creating dataset property list for %s: %w", name, err)
	}
	defer plist.Close()
	if err := plist.SetChunk([]uint{uint(n)}); err != nil {
		return nil, fmt.Errorf("export: setting chunk size for %s: %w", name, err)
	}
	if err := plist.SetDeflate(deflateLevel); err != nil {
		return nil, fmt.Errorf("export: setting deflate level for %s: %w", name, err)
	}

	if g != nil {
		return g.CreateDatasetWith(name, dtype, dspace, plist)
	}
	return f.CreateDatasetWith(name, dtype, dspace, plist)
}
