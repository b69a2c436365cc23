package enums

import "fmt"

// AppProfileAttribute names one of the parallel vectors carried by an
// AppProfile. Used as a stable key for store encoding and for naming
// attributes inside a detector's abnormal_attributes set.
type AppProfileAttribute int

const (
	AttrMemoryRSS AppProfileAttribute = iota
	AttrCPUPercent
	AttrChildrenCount
	AttrThreadsNumber
	AttrConnectionsNumber
	AttrUsernames
	AttrOpenFiles
	AttrRetrievalTimestamps
)

var appProfileAttributeNames = [...]string{
	AttrMemoryRSS:           "memory_rss",
	AttrCPUPercent:          "cpu_percent",
	AttrChildrenCount:       "children_count",
	AttrThreadsNumber:       "threads_number",
	AttrConnectionsNumber:   "connections_number",
	AttrUsernames:           "usernames",
	AttrOpenFiles:           "open_files",
	AttrRetrievalTimestamps: "retrieval_timestamps",
}

func (a AppProfileAttribute) String() string {
	if int(a) < 0 || int(a) >= len(appProfileAttributeNames) {
		return "unknown"
	}
	return appProfileAttributeNames[a]
}

// ParseAppProfileAttribute reverses String, for decoding attribute names
// persisted in the anomaly log back into their enum values.
func ParseAppProfileAttribute(name string) (AppProfileAttribute, error) {
	for i, n := range appProfileAttributeNames {
		if n == name {
			return AppProfileAttribute(i), nil
		}
	}
	return 0, fmt.Errorf("enums: unknown app profile attribute %q", name)
}

// NumericProfileAttributes are the attributes the frequency detector scores
// with IQR fences and histogram-bin support.
var NumericProfileAttributes = []AppProfileAttribute{
	AttrMemoryRSS,
	AttrCPUPercent,
	AttrChildrenCount,
	AttrThreadsNumber,
	AttrConnectionsNumber,
}

// AppSummaryAttribute names a field of an AppSummary, used when encoding
// summaries to the anomaly log.
type AppSummaryAttribute int

const (
	SummaryAppName AppSummaryAttribute = iota
	SummaryErrorMessage
	SummaryRisk
	SummaryAbnormalAttributes
	SummaryLatestSnapshot
	SummaryModelSnapshot
)

var appSummaryAttributeNames = [...]string{
	SummaryAppName:            "app_name",
	SummaryErrorMessage:       "error_message",
	SummaryRisk:               "risk",
	SummaryAbnormalAttributes: "abnormal_attributes",
	SummaryLatestSnapshot:     "latest_snapshot",
	SummaryModelSnapshot:      "model_snapshot",
}

func (a AppSummaryAttribute) String() string {
	if int(a) < 0 || int(a) >= len(appSummaryAttributeNames) {
		return "unknown"
	}
	return appSummaryAttributeNames[a]
}

// ProcessAttribute names one field of a single process record produced by
// the OS probe, before it is grouped into an application's row.
type ProcessAttribute int

const (
	ProcName ProcessAttribute = iota
	ProcPID
	ProcUsername
	ProcRSSBytes
	ProcCPUPercent
	ProcOpenFiles
	ProcChildrenCount
	ProcThreadsNumber
	ProcConnectionsNumber
)

var processAttributeNames = [...]string{
	ProcName:              "name",
	ProcPID:               "pid",
	ProcUsername:          "username",
	ProcRSSBytes:          "rss_bytes",
	ProcCPUPercent:        "cpu_percent",
	ProcOpenFiles:         "open_files",
	ProcChildrenCount:     "children_count",
	ProcThreadsNumber:     "threads_number",
	ProcConnectionsNumber: "connections_number",
}

func (a ProcessAttribute) String() string {
	if int(a) < 0 || int(a) >= len(processAttributeNames) {
		return "unknown"
	}
	return processAttributeNames[a]
}
