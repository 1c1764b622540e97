package model

import "time"

// ZScoreMode selects how the z-score baseline is computed.
type ZScoreMode string

const (
	ZScoreGlobal  ZScoreMode = "global"
	ZScoreRolling ZScoreMode = "rolling"
)

// Policy names the detection rule that flagged a point.
type Policy string

const (
	PolicyZScore Policy = "Z_SCORE"
	PolicyIQR    Policy = "IQR"
)

// AnomalyFlag is the per-timestamp outcome of anomaly detection.
// ZScore, Median, Lower and Upper are NaN where undefined.
type AnomalyFlag struct {
	Timestamp time.Time
	Price     float64
	ZScore    float64
	ByZScore  bool
	Median    float64
	Lower     float64
	Upper     float64
	ByIQR     bool
}

// Anomalous reports whether any policy flagged the point.
func (f AnomalyFlag) Anomalous() bool { return f.ByZScore || f.ByIQR }

// Policies lists the policies that flagged the point.
func (f AnomalyFlag) Policies() []Policy {
	var out []Policy
	if f.ByZScore {
		out = append(out, PolicyZScore)
	}
	if f.ByIQR {
		out = append(out, PolicyIQR)
	}
	return out
}

// AnomalyReport holds one flag per observation plus the parameters that produced them.
type AnomalyReport struct {
	ZThreshold    float64
	ZMode         ZScoreMode
	ZWindow       int
	IQRWindow     int
	IQRMultiplier float64
	Flags         []AnomalyFlag
}

// Anomalies returns the flagged points in timestamp order.
func (r AnomalyReport) Anomalies() []AnomalyFlag {
	var out []AnomalyFlag
	for _, f := range r.Flags {
		if f.Anomalous() {
			out = append(out, f)
		}
	}
	return out
}

// CountZ returns how many points the z-score policy flagged.
func (r AnomalyReport) CountZ() int {
	n := 0
	for _, f := range r.Flags {
		if f.ByZScore {
			n++
		}
	}
	return n
}

// CountIQR returns how many points the IQR policy flagged.
func (r AnomalyReport) CountIQR() int {
	n := 0
	for _, f := range r.Flags {
		if f.ByIQR {
			n++
		}
	}
	return n
}
