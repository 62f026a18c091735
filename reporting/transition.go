package reporting

// =============================================================================
// TRANSITION RULES - Which report may follow the approved baseline
// =============================================================================
//
//   Baseline                         Departure  Noon         Arrival  Berth
//   none                             yes        -            -        -
//   arrival / berth                  yes        no           no       yes
//   departure / noon(noon|rosp)      no         yes          yes      no
//   noon(sosp)                       no         rosp only    no       no
//
// "-" is InvalidState: a continuation with nothing approved to continue from.
//
// Inside "Noon legal", the passage sub-state must also be legal:
//   sosp follows noon or rosp only
//   rosp follows sosp only
//   noon never directly follows sosp

// CheckTransition validates that a report of type requested (with passage
// state, for noon reports) may follow baseline. baseline is nil when the
// vessel has no approved report.
func CheckTransition(baseline *Report, requested ReportType, state PassageState) error {
	if baseline == nil {
		if requested == ReportDeparture {
			return nil
		}
		return &TransitionError{Requested: requested, RequestedState: state}
	}

	fail := &TransitionError{
		Baseline:       baseline.Type,
		BaselineState:  baseline.PassageState(),
		Requested:      requested,
		RequestedState: state,
	}

	switch baseline.Type {
	case ReportArrival, ReportBerth:
		if requested == ReportDeparture || requested == ReportBerth {
			return nil
		}
		return fail

	case ReportDeparture:
		switch requested {
		case ReportArrival:
			return nil
		case ReportNoon:
			if state == PassageNoon {
				return nil
			}
		}
		return fail

	case ReportNoon:
		prev := baseline.PassageState()
		if prev == PassageSOSP {
			if requested == ReportNoon && state == PassageROSP {
				return nil
			}
			return fail
		}
		switch requested {
		case ReportArrival:
			return nil
		case ReportNoon:
			// prev is noon or rosp here
			if state == PassageNoon || state == PassageSOSP {
				return nil
			}
		}
		return fail
	}

	return fail
}

// LegalSuccessors lists the report types that may follow baseline, for UI
// hints. Noon sub-states are not expanded.
func LegalSuccessors(baseline *Report) []ReportType {
	var out []ReportType
	for _, t := range []ReportType{ReportDeparture, ReportNoon, ReportArrival, ReportBerth} {
		state := PassageState("")
		if t == ReportNoon {
			state = PassageNoon
			if baseline != nil && baseline.PassageState() == PassageSOSP {
				state = PassageROSP
			}
		}
		if CheckTransition(baseline, t, state) == nil {
			out = append(out, t)
		}
	}
	return out
}
