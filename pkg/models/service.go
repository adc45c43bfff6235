package models

import (
	"fmt"
	"strconv"
	"strings"
)

// ServiceRow is one train-service observation as exported by the data
// source: one row per service calling at (or passing) the observed
// location on a given run date.
//
// Times are strings in "hhmm" form at minute-of-day granularity; delay
// fields are derived and nil when either side is missing.
type ServiceRow struct {
	STPIndicator           string
	TransportType          string
	ScheduleUID            string
	RunDate                string // canonically DD/MM/YYYY in merged output
	TrainIdentity          string
	ThisTiploc             string
	ThisCRS                string
	OriginTiploc           string
	OriginDescription      string
	DestinationTiploc      string
	DestinationDescription string
	GBTTArr                string
	GBTTDep                string
	WTTArr                 string
	WTTDep                 string
	WTTPass                string
	ActualArr              string
	ActualArrDelayMins     *int
	ActualDep              string
	ActualDepDelayMins     *int
	ActualPass             string
	ActualPassDelayMins    *int
	Platform               string
	PlatformActual         string
	LeadClass              string
	NumVehicles            string
}

// Columns is the canonical header of the source export, in order.
var Columns = []string{
	"stp_indicator",
	"transport_type",
	"schedule_uid",
	"run_date",
	"train_identity",
	"this_tiploc",
	"this_crs",
	"origin_tiploc",
	"origin_description",
	"destination_tiploc",
	"destination_description",
	"gbtt_arr",
	"gbtt_dep",
	"wtt_arr",
	"wtt_dep",
	"wtt_pass",
	"actual_arr",
	"actual_arr_delay_mins",
	"actual_dep",
	"actual_dep_delay_mins",
	"actual_pass",
	"actual_pass_delay_mins",
	"platform",
	"platform_actual",
	"lead_class",
	"num_vehicles",
}

// MinuteOfDay converts an "hhmm" time string to minutes past midnight.
func MinuteOfDay(t string) (int, error) {
	if len(t) != 4 {
		return 0, fmt.Errorf("invalid hhmm time %q", t)
	}
	h, err := strconv.Atoi(t[:2])
	if err != nil {
		return 0, fmt.Errorf("invalid hhmm time %q", t)
	}
	m, err := strconv.Atoi(t[2:])
	if err != nil {
		return 0, fmt.Errorf("invalid hhmm time %q", t)
	}
	if h > 23 || m > 59 {
		return 0, fmt.Errorf("invalid hhmm time %q", t)
	}
	return h*60 + m, nil
}

// Delay computes actual minus planned in minutes. Returns nil when
// either side is missing or unparseable.
func Delay(actual, planned string) *int {
	if actual == "" || planned == "" {
		return nil
	}
	a, err := MinuteOfDay(actual)
	if err != nil {
		return nil
	}
	p, err := MinuteOfDay(planned)
	if err != nil {
		return nil
	}
	d := a - p
	return &d
}

// ServiceRowFromRecord maps one CSV record, keyed by header name, to a
// ServiceRow. Delay columns are taken from the record when present and
// recomputed otherwise.
func ServiceRowFromRecord(rec map[string]string) *ServiceRow {
	row := &ServiceRow{
		STPIndicator:           rec["stp_indicator"],
		TransportType:          rec["transport_type"],
		ScheduleUID:            rec["schedule_uid"],
		RunDate:                rec["run_date"],
		TrainIdentity:          rec["train_identity"],
		ThisTiploc:             rec["this_tiploc"],
		ThisCRS:                rec["this_crs"],
		OriginTiploc:           rec["origin_tiploc"],
		OriginDescription:      rec["origin_description"],
		DestinationTiploc:      rec["destination_tiploc"],
		DestinationDescription: rec["destination_description"],
		GBTTArr:                rec["gbtt_arr"],
		GBTTDep:                rec["gbtt_dep"],
		WTTArr:                 rec["wtt_arr"],
		WTTDep:                 rec["wtt_dep"],
		WTTPass:                rec["wtt_pass"],
		ActualArr:              rec["actual_arr"],
		ActualDep:              rec["actual_dep"],
		ActualPass:             rec["actual_pass"],
		Platform:               rec["platform"],
		PlatformActual:         rec["platform_actual"],
		LeadClass:              rec["lead_class"],
		NumVehicles:            rec["num_vehicles"],
	}

	row.ActualArrDelayMins = delayFromRecord(rec, "actual_arr_delay_mins", row.ActualArr, row.GBTTArr)
	row.ActualDepDelayMins = delayFromRecord(rec, "actual_dep_delay_mins", row.ActualDep, row.GBTTDep)
	row.ActualPassDelayMins = delayFromRecord(rec, "actual_pass_delay_mins", row.ActualPass, row.WTTPass)

	return row
}

func delayFromRecord(rec map[string]string, key, actual, planned string) *int {
	if v, ok := rec[key]; ok {
		v = strings.TrimSpace(v)
		if v != "" {
			if n, err := strconv.Atoi(strings.TrimSuffix(v, ".0")); err == nil {
				return &n
			}
		}
	}
	return Delay(actual, planned)
}
