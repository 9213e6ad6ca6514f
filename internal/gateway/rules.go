package gateway

// Source names the view an actuator value was taken from.
type Source string

const (
	SourceSupervisory Source = "supervisory"
	SourceGateway     Source = "gateway"
	SourceField       Source = "field"
)

// Observation is one actuator as seen by the three views during a tick.
type Observation struct {
	Field       bool
	Supervisory bool
	Gateway     bool
}

// Rule picks an actuator value when Match holds. Rules are evaluated in
// order and the first match wins.
type Rule struct {
	Source Source
	Match  func(o Observation, last bool) bool
	Value  func(o Observation) bool
}

// DefaultRules gives an HMI change priority over a SCADA change, and falls
// back to the field device when neither client changed anything since the
// last tick.
var DefaultRules = []Rule{
	{
		Source: SourceSupervisory,
		Match:  func(o Observation, last bool) bool { return o.Supervisory != last },
		Value:  func(o Observation) bool { return o.Supervisory },
	},
	{
		Source: SourceGateway,
		Match:  func(o Observation, last bool) bool { return o.Gateway != last },
		Value:  func(o Observation) bool { return o.Gateway },
	},
	{
		Source: SourceField,
		Match:  func(Observation, bool) bool { return true },
		Value:  func(o Observation) bool { return o.Field },
	},
}

// Resolve applies rules to o. If no rule matches, the field value wins.
func Resolve(rules []Rule, o Observation, last bool) (bool, Source) {
	for _, r := range rules {
		if r.Match(o, last) {
			return r.Value(o), r.Source
		}
	}
	return o.Field, SourceField
}
