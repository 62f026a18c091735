package reporting

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func approvedReport(t ReportType) *Report {
	r := &Report{ID: 7, Type: t, SequenceNumber: 3, Status: StatusApproved}
	switch t {
	case ReportDeparture:
		r.Payload = &DeparturePayload{}
	case ReportArrival:
		r.Payload = &ArrivalPayload{}
	case ReportBerth:
		r.Payload = &BerthPayload{}
	}
	return r
}

func approvedNoon(state PassageState) *Report {
	return &Report{ID: 7, Type: ReportNoon, SequenceNumber: 3, Status: StatusApproved,
		Payload: &NoonPayload{PassageState: state}}
}

// =============================================================================
// TRANSITION TABLE
// =============================================================================

func TestCheckTransition(t *testing.T) {
	tests := []struct {
		name      string
		baseline  *Report
		requested ReportType
		state     PassageState
		wantErr   error
	}{
		// No approved history
		{"first departure", nil, ReportDeparture, "", nil},
		{"noon without baseline", nil, ReportNoon, PassageNoon, ErrInvalidState},
		{"arrival without baseline", nil, ReportArrival, "", ErrInvalidState},
		{"berth without baseline", nil, ReportBerth, "", ErrInvalidState},

		// After departure
		{"departure then noon", approvedReport(ReportDeparture), ReportNoon, PassageNoon, nil},
		{"departure then sosp", approvedReport(ReportDeparture), ReportNoon, PassageSOSP, ErrInvalidTransition},
		{"departure then rosp", approvedReport(ReportDeparture), ReportNoon, PassageROSP, ErrInvalidTransition},
		{"departure then arrival", approvedReport(ReportDeparture), ReportArrival, "", nil},
		{"departure then berth", approvedReport(ReportDeparture), ReportBerth, "", ErrInvalidTransition},
		{"departure then departure", approvedReport(ReportDeparture), ReportDeparture, "", ErrInvalidTransition},

		// After a normal noon
		{"noon then noon", approvedNoon(PassageNoon), ReportNoon, PassageNoon, nil},
		{"noon then sosp", approvedNoon(PassageNoon), ReportNoon, PassageSOSP, nil},
		{"noon then rosp", approvedNoon(PassageNoon), ReportNoon, PassageROSP, ErrInvalidTransition},
		{"noon then arrival", approvedNoon(PassageNoon), ReportArrival, "", nil},
		{"noon then berth", approvedNoon(PassageNoon), ReportBerth, "", ErrInvalidTransition},
		{"noon then departure", approvedNoon(PassageNoon), ReportDeparture, "", ErrInvalidTransition},

		// Stopped at sea
		{"sosp then rosp", approvedNoon(PassageSOSP), ReportNoon, PassageROSP, nil},
		{"sosp then noon", approvedNoon(PassageSOSP), ReportNoon, PassageNoon, ErrInvalidTransition},
		{"sosp then sosp", approvedNoon(PassageSOSP), ReportNoon, PassageSOSP, ErrInvalidTransition},
		{"sosp then arrival", approvedNoon(PassageSOSP), ReportArrival, "", ErrInvalidTransition},
		{"sosp then berth", approvedNoon(PassageSOSP), ReportBerth, "", ErrInvalidTransition},

		// Resumed
		{"rosp then noon", approvedNoon(PassageROSP), ReportNoon, PassageNoon, nil},
		{"rosp then sosp", approvedNoon(PassageROSP), ReportNoon, PassageSOSP, nil},
		{"rosp then rosp", approvedNoon(PassageROSP), ReportNoon, PassageROSP, ErrInvalidTransition},
		{"rosp then arrival", approvedNoon(PassageROSP), ReportArrival, "", nil},

		// In port
		{"arrival then berth", approvedReport(ReportArrival), ReportBerth, "", nil},
		{"arrival then departure", approvedReport(ReportArrival), ReportDeparture, "", nil},
		{"arrival then noon", approvedReport(ReportArrival), ReportNoon, PassageNoon, ErrInvalidTransition},
		{"arrival then arrival", approvedReport(ReportArrival), ReportArrival, "", ErrInvalidTransition},
		{"berth then berth", approvedReport(ReportBerth), ReportBerth, "", nil},
		{"berth then departure", approvedReport(ReportBerth), ReportDeparture, "", nil},
		{"berth then noon", approvedReport(ReportBerth), ReportNoon, PassageNoon, ErrInvalidTransition},
		{"berth then arrival", approvedReport(ReportBerth), ReportArrival, "", ErrInvalidTransition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckTransition(tt.baseline, tt.requested, tt.state)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)

			var te *TransitionError
			require.ErrorAs(t, err, &te)
			assert.Equal(t, tt.requested, te.Requested)
		})
	}
}

func TestTransitionError_Message(t *testing.T) {
	err := CheckTransition(approvedNoon(PassageSOSP), ReportNoon, PassageNoon)
	assert.EqualError(t, err, "cannot submit noon(noon) report after approved noon(sosp) report")

	err = CheckTransition(nil, ReportArrival, "")
	assert.EqualError(t, err, "cannot submit arrival report: vessel has no approved report to continue from")
}

func TestLegalSuccessors(t *testing.T) {
	tests := []struct {
		name     string
		baseline *Report
		want     []ReportType
	}{
		{"no history", nil, []ReportType{ReportDeparture}},
		{"at sea", approvedReport(ReportDeparture), []ReportType{ReportNoon, ReportArrival}},
		{"stopped", approvedNoon(PassageSOSP), []ReportType{ReportNoon}},
		{"resumed", approvedNoon(PassageROSP), []ReportType{ReportNoon, ReportArrival}},
		{"alongside", approvedReport(ReportBerth), []ReportType{ReportDeparture, ReportBerth}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LegalSuccessors(tt.baseline))
		})
	}
}
