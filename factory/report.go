/*
Package factory provides JSON to Go report payload conversion.

PURPOSE:
  Converts the free-form "reportData" object of a submission into the typed
  reporting.Payload variant selected by "reportType", and back again for
  responses. Field names follow the report forms used on board.

JSON SCHEMA (shared by every type):
  {
    "meLSIFO": 12.5, "aeLSIFO": 2, "boilerLSIFO": 0.5,
    "meLSMGO": 0,    "aeLSMGO": 1, "boilerLSMGO": 0,
    "cylOil": 0.2, "meOil": 0.1, "aeOil": 0.05, "volOil": 0,
    "supplyLSIFO": 0, "supplyLSMGO": 0, "supplyCylOil": 0,
    "supplyMEOil": 0, "supplyAEOil": 0, "supplyVOLOil": 0
  }

  departure adds:
    voyageNumber, departurePort, destinationPort, cargoStatus, cargoType,
    cargoQuantity, voyageDistance, harbourDistance,
    initialRobLSIFO ... initialRobVOLOil (first departure only),
    latitude, longitude, windForce, windDirection, seaState, visibility,
    meRPM, meLoadPct, slipPct, runningHours
  noon adds:
    passageState (noon|sosp|rosp, default noon), distanceSinceLastReport,
    averageSpeed, position/weather/engine as departure
  arrival adds:
    arrivalPort, distanceSinceLastReport, position/weather/engine
  berth adds:
    berthName, cargoOperation (none|load|unload, default none),
    cargoLoaded, cargoUnloaded

  Quantities may be JSON numbers or numeric strings. Missing quantities
  read as 0.

KEY FEATURES:
  - Unknown reportType and malformed JSON are reporting.ValidationError
  - Initial ROB is only set when at least one initialRob* field is present
  - Range checks (negative quantities, lat/lon) are left to the engine

USAGE:
  f := NewReportFactory()
  payload, err := f.Parse("noon", body.ReportData)
  ...
  data := f.Encode(report.Payload)

SEE ALSO:
  - reporting/payload.go: Payload variants
  - api/handlers.go: Calls Parse on submission
*/
package factory

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/voyage-ledger/reporting"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// BunkersJSON is the consumption and supply block every report carries.
type BunkersJSON struct {
	MELSIFO     decimal.Decimal `json:"meLSIFO"`
	AELSIFO     decimal.Decimal `json:"aeLSIFO"`
	BoilerLSIFO decimal.Decimal `json:"boilerLSIFO"`
	MELSMGO     decimal.Decimal `json:"meLSMGO"`
	AELSMGO     decimal.Decimal `json:"aeLSMGO"`
	BoilerLSMGO decimal.Decimal `json:"boilerLSMGO"`
	CylOil      decimal.Decimal `json:"cylOil"`
	MEOil       decimal.Decimal `json:"meOil"`
	AEOil       decimal.Decimal `json:"aeOil"`
	VOLOil      decimal.Decimal `json:"volOil"`

	SupplyLSIFO  decimal.Decimal `json:"supplyLSIFO"`
	SupplyLSMGO  decimal.Decimal `json:"supplyLSMGO"`
	SupplyCylOil decimal.Decimal `json:"supplyCylOil"`
	SupplyMEOil  decimal.Decimal `json:"supplyMEOil"`
	SupplyAEOil  decimal.Decimal `json:"supplyAEOil"`
	SupplyVOLOil decimal.Decimal `json:"supplyVOLOil"`
}

// NavigationJSON is position, weather and engine telemetry.
type NavigationJSON struct {
	Latitude      float64         `json:"latitude"`
	Longitude     float64         `json:"longitude"`
	WindForce     int             `json:"windForce"`
	WindDirection string          `json:"windDirection,omitempty"`
	SeaState      int             `json:"seaState"`
	Visibility    string          `json:"visibility,omitempty"`
	MERPM         decimal.Decimal `json:"meRPM"`
	MELoadPct     decimal.Decimal `json:"meLoadPct"`
	SlipPct       decimal.Decimal `json:"slipPct"`
	RunningHours  decimal.Decimal `json:"runningHours"`
}

type DepartureJSON struct {
	BunkersJSON
	NavigationJSON

	VoyageNumber    string          `json:"voyageNumber"`
	DeparturePort   string          `json:"departurePort"`
	DestinationPort string          `json:"destinationPort"`
	CargoStatus     string          `json:"cargoStatus"`
	CargoType       string          `json:"cargoType,omitempty"`
	CargoQuantity   decimal.Decimal `json:"cargoQuantity"`
	VoyageDistance  decimal.Decimal `json:"voyageDistance"`
	HarbourDistance decimal.Decimal `json:"harbourDistance"`

	InitialROBLSIFO  *decimal.Decimal `json:"initialRobLSIFO,omitempty"`
	InitialROBLSMGO  *decimal.Decimal `json:"initialRobLSMGO,omitempty"`
	InitialROBCylOil *decimal.Decimal `json:"initialRobCylOil,omitempty"`
	InitialROBMEOil  *decimal.Decimal `json:"initialRobMEOil,omitempty"`
	InitialROBAEOil  *decimal.Decimal `json:"initialRobAEOil,omitempty"`
	InitialROBVOLOil *decimal.Decimal `json:"initialRobVOLOil,omitempty"`
}

type NoonJSON struct {
	BunkersJSON
	NavigationJSON

	PassageState            string          `json:"passageState"`
	DistanceSinceLastReport decimal.Decimal `json:"distanceSinceLastReport"`
	AverageSpeed            decimal.Decimal `json:"averageSpeed"`
}

type ArrivalJSON struct {
	BunkersJSON
	NavigationJSON

	ArrivalPort             string          `json:"arrivalPort,omitempty"`
	DistanceSinceLastReport decimal.Decimal `json:"distanceSinceLastReport"`
}

type BerthJSON struct {
	BunkersJSON

	BerthName      string          `json:"berthName,omitempty"`
	CargoOperation string          `json:"cargoOperation"`
	CargoLoaded    decimal.Decimal `json:"cargoLoaded"`
	CargoUnloaded  decimal.Decimal `json:"cargoUnloaded"`
}

// =============================================================================
// REPORT FACTORY
// =============================================================================

// ReportFactory converts JSON report data to typed payloads.
type ReportFactory struct{}

func NewReportFactory() *ReportFactory {
	return &ReportFactory{}
}

// Parse decodes raw into the payload variant for reportType.
func (f *ReportFactory) Parse(reportType string, raw json.RawMessage) (reporting.Payload, error) {
	t := reporting.ReportType(reportType)
	if !t.Valid() {
		return nil, &reporting.ValidationError{
			Field:   "reportType",
			Message: fmt.Sprintf("unknown report type %q (want departure, noon, arrival or berth)", reportType),
		}
	}
	if len(raw) == 0 || string(raw) == "null" {
		raw = json.RawMessage("{}")
	}

	switch t {
	case reporting.ReportDeparture:
		var dj DepartureJSON
		if err := decode(raw, &dj); err != nil {
			return nil, err
		}
		return f.departure(dj), nil

	case reporting.ReportNoon:
		var nj NoonJSON
		if err := decode(raw, &nj); err != nil {
			return nil, err
		}
		state := reporting.PassageState(nj.PassageState)
		if state == "" {
			state = reporting.PassageNoon
		}
		return &reporting.NoonPayload{
			PassageState:            state,
			DistanceSinceLastReport: nj.DistanceSinceLastReport,
			AverageSpeed:            nj.AverageSpeed,
			Position:                nj.position(),
			Weather:                 nj.weather(),
			Engine:                  nj.engine(),
			Bunkers:                 nj.input(),
		}, nil

	case reporting.ReportArrival:
		var aj ArrivalJSON
		if err := decode(raw, &aj); err != nil {
			return nil, err
		}
		return &reporting.ArrivalPayload{
			ArrivalPort:             aj.ArrivalPort,
			DistanceSinceLastReport: aj.DistanceSinceLastReport,
			Position:                aj.position(),
			Weather:                 aj.weather(),
			Engine:                  aj.engine(),
			Bunkers:                 aj.input(),
		}, nil

	default:
		var bj BerthJSON
		if err := decode(raw, &bj); err != nil {
			return nil, err
		}
		op := reporting.CargoOperation(bj.CargoOperation)
		if op == "" {
			op = reporting.CargoOpNone
		}
		return &reporting.BerthPayload{
			BerthName:      bj.BerthName,
			CargoOperation: op,
			CargoLoaded:    bj.CargoLoaded,
			CargoUnloaded:  bj.CargoUnloaded,
			Bunkers:        bj.input(),
		}, nil
	}
}

func (f *ReportFactory) departure(dj DepartureJSON) *reporting.DeparturePayload {
	p := &reporting.DeparturePayload{
		VoyageNumber:    dj.VoyageNumber,
		DeparturePort:   dj.DeparturePort,
		DestinationPort: dj.DestinationPort,
		CargoStatus:     reporting.CargoStatus(dj.CargoStatus),
		CargoType:       dj.CargoType,
		CargoQuantity:   dj.CargoQuantity,
		VoyageDistance:  dj.VoyageDistance,
		HarbourDistance: dj.HarbourDistance,
		Position:        dj.position(),
		Weather:         dj.weather(),
		Engine:          dj.engine(),
		Bunkers:         dj.input(),
	}

	initial := []*decimal.Decimal{
		dj.InitialROBLSIFO, dj.InitialROBLSMGO, dj.InitialROBCylOil,
		dj.InitialROBMEOil, dj.InitialROBAEOil, dj.InitialROBVOLOil,
	}
	var (
		rob     reporting.Levels
		present bool
	)
	for i, s := range reporting.Substances {
		if initial[i] != nil {
			rob = rob.Set(s, *initial[i])
			present = true
		}
	}
	if present {
		p.InitialROB = &rob
	}
	return p
}

// Encode converts a payload back to its JSON form.
func (f *ReportFactory) Encode(p reporting.Payload) any {
	switch v := p.(type) {
	case *reporting.DeparturePayload:
		dj := DepartureJSON{
			BunkersJSON:     bunkersJSON(v.Bunkers),
			NavigationJSON:  navigationJSON(v.Position, v.Weather, v.Engine),
			VoyageNumber:    v.VoyageNumber,
			DeparturePort:   v.DeparturePort,
			DestinationPort: v.DestinationPort,
			CargoStatus:     string(v.CargoStatus),
			CargoType:       v.CargoType,
			CargoQuantity:   v.CargoQuantity,
			VoyageDistance:  v.VoyageDistance,
			HarbourDistance: v.HarbourDistance,
		}
		if v.InitialROB != nil {
			rob := *v.InitialROB
			dj.InitialROBLSIFO = &rob.LSIFO
			dj.InitialROBLSMGO = &rob.LSMGO
			dj.InitialROBCylOil = &rob.CylOil
			dj.InitialROBMEOil = &rob.MEOil
			dj.InitialROBAEOil = &rob.AEOil
			dj.InitialROBVOLOil = &rob.VOLOil
		}
		return dj
	case *reporting.NoonPayload:
		return NoonJSON{
			BunkersJSON:             bunkersJSON(v.Bunkers),
			NavigationJSON:          navigationJSON(v.Position, v.Weather, v.Engine),
			PassageState:            string(v.PassageState),
			DistanceSinceLastReport: v.DistanceSinceLastReport,
			AverageSpeed:            v.AverageSpeed,
		}
	case *reporting.ArrivalPayload:
		return ArrivalJSON{
			BunkersJSON:             bunkersJSON(v.Bunkers),
			NavigationJSON:          navigationJSON(v.Position, v.Weather, v.Engine),
			ArrivalPort:             v.ArrivalPort,
			DistanceSinceLastReport: v.DistanceSinceLastReport,
		}
	case *reporting.BerthPayload:
		return BerthJSON{
			BunkersJSON:    bunkersJSON(v.Bunkers),
			BerthName:      v.BerthName,
			CargoOperation: string(v.CargoOperation),
			CargoLoaded:    v.CargoLoaded,
			CargoUnloaded:  v.CargoUnloaded,
		}
	}
	return nil
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

func decode(raw json.RawMessage, v any) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return &reporting.ValidationError{Field: "reportData", Message: err.Error()}
	}
	return nil
}

func (b BunkersJSON) input() reporting.BunkerInput {
	return reporting.BunkerInput{
		Consumption: reporting.Consumption{
			LSIFO:  reporting.FuelBurn{ME: b.MELSIFO, AE: b.AELSIFO, Boiler: b.BoilerLSIFO},
			LSMGO:  reporting.FuelBurn{ME: b.MELSMGO, AE: b.AELSMGO, Boiler: b.BoilerLSMGO},
			CylOil: b.CylOil,
			MEOil:  b.MEOil,
			AEOil:  b.AEOil,
			VOLOil: b.VOLOil,
		},
		Supply: reporting.Levels{
			LSIFO:  b.SupplyLSIFO,
			LSMGO:  b.SupplyLSMGO,
			CylOil: b.SupplyCylOil,
			MEOil:  b.SupplyMEOil,
			AEOil:  b.SupplyAEOil,
			VOLOil: b.SupplyVOLOil,
		},
	}
}

func bunkersJSON(in reporting.BunkerInput) BunkersJSON {
	c := in.Consumption
	return BunkersJSON{
		MELSIFO: c.LSIFO.ME, AELSIFO: c.LSIFO.AE, BoilerLSIFO: c.LSIFO.Boiler,
		MELSMGO: c.LSMGO.ME, AELSMGO: c.LSMGO.AE, BoilerLSMGO: c.LSMGO.Boiler,
		CylOil: c.CylOil, MEOil: c.MEOil, AEOil: c.AEOil, VOLOil: c.VOLOil,

		SupplyLSIFO:  in.Supply.LSIFO,
		SupplyLSMGO:  in.Supply.LSMGO,
		SupplyCylOil: in.Supply.CylOil,
		SupplyMEOil:  in.Supply.MEOil,
		SupplyAEOil:  in.Supply.AEOil,
		SupplyVOLOil: in.Supply.VOLOil,
	}
}

func (n NavigationJSON) position() reporting.Position {
	return reporting.Position{Latitude: n.Latitude, Longitude: n.Longitude}
}

func (n NavigationJSON) weather() reporting.Weather {
	return reporting.Weather{
		WindForce:     n.WindForce,
		WindDirection: n.WindDirection,
		SeaState:      n.SeaState,
		Visibility:    n.Visibility,
	}
}

func (n NavigationJSON) engine() reporting.EngineReadings {
	return reporting.EngineReadings{
		MERPM:        n.MERPM,
		MELoadPct:    n.MELoadPct,
		SlipPct:      n.SlipPct,
		RunningHours: n.RunningHours,
	}
}

func navigationJSON(p reporting.Position, w reporting.Weather, e reporting.EngineReadings) NavigationJSON {
	return NavigationJSON{
		Latitude:      p.Latitude,
		Longitude:     p.Longitude,
		WindForce:     w.WindForce,
		WindDirection: w.WindDirection,
		SeaState:      w.SeaState,
		Visibility:    w.Visibility,
		MERPM:         e.MERPM,
		MELoadPct:     e.MELoadPct,
		SlipPct:       e.SlipPct,
		RunningHours:  e.RunningHours,
	}
}
