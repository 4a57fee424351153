package metrics

import "strings"

const prefix = "relembraq_"

// MetricName adds the project prefix unless already present.
func MetricName(name string) string {
	if strings.HasPrefix(name, prefix) {
		return name
	}
	return prefix + name
}

// MetricNameWithSubsystem joins subsystem and name under the project prefix.
func MetricNameWithSubsystem(subsystem, name string) string {
	if strings.HasPrefix(name, prefix) {
		return name
	}
	subsystem = strings.Trim(subsystem, "_")
	switch {
	case subsystem == "":
		return MetricName(name)
	case name == "":
		return prefix + subsystem
	default:
		return prefix + subsystem + "_" + name
	}
}
